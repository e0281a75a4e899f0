package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/auth"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/config"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/httputil"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/images"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/notifications"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/ratings"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/repository"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/seasons"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/validation"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/version"
)

// Deps is everything the server is built from. Mailer and Uploader may be
// nil: mail is then skipped and data URI images are rejected.
type Deps struct {
	Config   *config.Config
	Logger   hclog.Logger
	Auth     *auth.Auth
	Users    UserStore
	Movies   MovieStore
	Shows    ShowStore
	Ratings  RatingStore
	Contacts ContactStore
	Mailer   notifications.Sender
	Uploader images.Uploader
	Version  version.Info

	// HTTPClient fetches upstream media for downloads.
	HTTPClient *http.Client
}

type Server struct {
	config   *config.Config
	logger   hclog.Logger
	auth     *auth.Auth
	users    UserStore
	movies   MovieStore
	shows    ShowStore
	ratings  RatingStore
	contacts ContactStore
	rater    *ratings.Service
	grouper  *seasons.Grouper
	mailer   notifications.Sender
	uploader images.Uploader
	version  version.Info
	client   *http.Client
	limiter  *ipRateLimiter
	trusted  []*net.IPNet
	now      func() time.Time
	router   chi.Router
}

func NewServer(d Deps) (*Server, error) {
	if d.Config == nil || d.Auth == nil {
		return nil, errors.New("api: config and auth are required")
	}
	if d.Users == nil || d.Movies == nil || d.Shows == nil || d.Ratings == nil || d.Contacts == nil {
		return nil, errors.New("api: all stores are required")
	}
	logger := d.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	strategy, err := seasons.ParseStrategy(d.Config.SeasonGrouping)
	if err != nil {
		return nil, err
	}
	trusted, err := config.Networks(d.Config.TrustedProxies)
	if err != nil {
		return nil, err
	}
	client := d.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: d.Config.DownloadTimeout}
	}

	s := &Server{
		config:   d.Config,
		logger:   logger.Named("api"),
		auth:     d.Auth,
		users:    d.Users,
		movies:   d.Movies,
		shows:    d.Shows,
		ratings:  d.Ratings,
		contacts: d.Contacts,
		grouper:  seasons.NewGrouper(strategy),
		mailer:   d.Mailer,
		uploader: d.Uploader,
		version:  d.Version,
		client:   client,
		limiter:  newIPRateLimiter(d.Config.AuthRateLimit, d.Config.AuthRateBurst),
		trusted:  trusted,
		now:      time.Now,
		router:   chi.NewRouter(),
	}
	s.rater = ratings.NewService(d.Ratings, titles{movies: d.Movies, shows: d.Shows}, logger)

	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(s.realIP)
	r.Use(s.recoverer)
	r.Use(s.accessLog)
	r.Use(securityHeaders)
	r.Use(s.cors)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.With(s.rateLimit).Post("/register", s.handleRegister)
			r.With(s.rateLimit).Post("/login", s.handleLogin)
			r.Get("/me", s.authMiddleware(s.handleMe, models.RoleUser))
		})

		r.Route("/movies", func(r chi.Router) {
			r.Get("/", s.optionalAuth(s.handleListMovies))
			r.Post("/", s.authMiddleware(s.handleCreateMovie, models.RoleAdmin))
			r.Get("/stats", s.authMiddleware(s.handleMovieStats, models.RoleAdmin))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.optionalAuth(s.handleGetMovie))
				r.Put("/", s.authMiddleware(s.handleUpdateMovie, models.RoleAdmin))
				r.Delete("/", s.authMiddleware(s.handleDeleteMovie, models.RoleAdmin))
				r.Patch("/status", s.authMiddleware(s.handleMovieStatus, models.RoleAdmin))
				r.Post("/rate", s.authMiddleware(s.handleRateMovie, models.RoleUser))
				r.Get("/rating", s.authMiddleware(s.handleGetMovieRating, models.RoleUser))
				r.Get("/download", s.authMiddleware(s.handleDownloadMovie, models.RoleUser))
			})
		})

		r.Route("/tvshows", func(r chi.Router) {
			r.Get("/", s.optionalAuth(s.handleListShows))
			r.Post("/", s.authMiddleware(s.handleCreateShow, models.RoleAdmin))
			r.Get("/stats", s.authMiddleware(s.handleShowStats, models.RoleAdmin))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.optionalAuth(s.handleGetShow))
				r.Put("/", s.authMiddleware(s.handleUpdateShow, models.RoleAdmin))
				r.Delete("/", s.authMiddleware(s.handleDeleteShow, models.RoleAdmin))
				r.Patch("/status", s.authMiddleware(s.handleShowStatus, models.RoleAdmin))
				r.Get("/seasons", s.optionalAuth(s.handleShowSeasons))
				r.Post("/rate", s.authMiddleware(s.handleRateShow, models.RoleUser))
				r.Get("/rating", s.authMiddleware(s.handleGetShowRating, models.RoleUser))
				r.Get("/download", s.authMiddleware(s.handleDownloadEpisode, models.RoleUser))
			})
		})

		r.Route("/contacts", func(r chi.Router) {
			r.With(s.rateLimit).Post("/", s.handleCreateContact)
			r.Get("/", s.authMiddleware(s.handleListContacts, models.RoleAdmin))
			r.Get("/stats", s.authMiddleware(s.handleContactStats, models.RoleAdmin))
			r.Get("/{id}", s.authMiddleware(s.handleGetContact, models.RoleAdmin))
			r.Put("/{id}", s.authMiddleware(s.handleUpdateContact, models.RoleAdmin))
			r.Post("/{id}/reply", s.authMiddleware(s.handleReplyContact, models.RoleAdmin))
			r.Delete("/{id}", s.authMiddleware(s.handleDeleteContact, models.RoleAdmin))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.authMiddleware(s.handleListUsers, models.RoleAdmin))
			r.Post("/", s.authMiddleware(s.handleCreateUser, models.RoleAdmin))
			r.Get("/stats", s.authMiddleware(s.handleUserStats, models.RoleAdmin))
			r.Get("/{id}", s.authMiddleware(s.handleGetUser, models.RoleAdmin))
			r.Put("/{id}", s.authMiddleware(s.handleUpdateUser, models.RoleAdmin))
			r.Patch("/{id}/status", s.authMiddleware(s.handleUserStatus, models.RoleAdmin))
			r.Delete("/{id}", s.authMiddleware(s.handleDeleteUser, models.RoleAdmin))
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, http.StatusOK, "", map[string]string{
		"status":  "ok",
		"version": s.version.Version,
	})
}

// ──────────────────── Helpers ────────────────────

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	httputil.WriteError(w, status, message)
}

// respondStoreError maps repository errors to responses. Anything
// unexpected is logged and reported as a 500.
func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, err error, entity string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.respondError(w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, repository.ErrConflict):
		s.respondError(w, http.StatusConflict, entity+" already exists")
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		"method", r.Method, "path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()), "error", err)
	s.respondError(w, http.StatusInternalServerError, "internal server error")
}

// decode reads and validates a request body, writing the error response
// itself. It reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := httputil.ReadJSON(w, r, dst); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return s.check(w, dst)
}

func (s *Server) check(w http.ResponseWriter, v interface{}) bool {
	if err := validation.Struct(v); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			httputil.WriteValidation(w, verrs)
			return false
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s id", entity))
		return uuid.Nil, false
	}
	return id, true
}

// sendMail delivers msg best effort. Failures never undo the caller's write.
func (s *Server) sendMail(r *http.Request, msg notifications.Message) bool {
	if s.mailer == nil {
		return false
	}
	if err := s.mailer.Send(r.Context(), msg); err != nil {
		s.logger.Warn("email not sent", "subject", msg.Subject, "error", err)
		return false
	}
	return true
}

func (s *Server) monthStart() time.Time {
	return models.MonthStart(s.now())
}
