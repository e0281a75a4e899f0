package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/auth"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/repository"
)

// ──────────────────── Authentication ────────────────────

// authMiddleware requires a valid token for an active account holding at
// least requiredRole. The account is reloaded so role and status changes
// apply to tokens already issued.
func (s *Server) authMiddleware(next http.HandlerFunc, requiredRole models.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := auth.ExtractToken(r)
		if tokenString == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization")
			return
		}

		user, status, msg := s.authenticate(r, tokenString)
		if user == nil {
			s.respondError(w, status, msg)
			return
		}

		if !user.IsActive() {
			s.respondError(w, http.StatusForbidden, "account is inactive")
			return
		}
		if !s.auth.CheckPermission(user.Role, requiredRole) {
			s.respondError(w, http.StatusForbidden, "insufficient permissions")
			return
		}

		next(w, r.WithContext(auth.WithUser(r.Context(), user)))
	}
}

// optionalAuth attaches the caller when a usable token is present and
// otherwise serves the request anonymously.
func (s *Server) optionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tokenString := auth.ExtractToken(r); tokenString != "" {
			if user, _, _ := s.authenticate(r, tokenString); user != nil && user.IsActive() {
				r = r.WithContext(auth.WithUser(r.Context(), user))
			}
		}
		next(w, r)
	}
}

func (s *Server) authenticate(r *http.Request, tokenString string) (*models.User, int, string) {
	claims, err := s.auth.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, http.StatusUnauthorized, "token expired"
		}
		return nil, http.StatusUnauthorized, "invalid token"
	}
	user, err := s.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("load token user", "user_id", claims.UserID, "error", err)
		}
		return nil, http.StatusUnauthorized, "invalid token"
	}
	return user, 0, ""
}

func isAdmin(r *http.Request) bool {
	u := auth.UserFromContext(r.Context())
	return u != nil && u.IsAdmin()
}

// ──────────────────── Cross-cutting ────────────────────

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic serving request",
					"method", r.Method, "path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()),
					"panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
				s.respondError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// realIP applies forwarding headers only to requests arriving from a trusted
// proxy. Anyone else keeps their connection address.
func (s *Server) realIP(next http.Handler) http.Handler {
	forwarded := middleware.RealIP(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.trustedPeer(r.RemoteAddr) {
			forwarded.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) trustedPeer(remoteAddr string) bool {
	if len(s.trusted) == 0 {
		return false
	}
	ip := net.ParseIP(clientIP(remoteAddr))
	if ip == nil {
		return false
	}
	for _, n := range s.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		args := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
		}
		if status >= 500 {
			s.logger.Warn("request", args...)
			return
		}
		s.logger.Debug("request", args...)
	})
}

// securityHeaders adds standard security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-XSS-Protection", "0")
		next.ServeHTTP(w, r)
	})
}

// cors answers preflights and sets CORS headers. With no configured origins
// any origin is reflected.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Expose-Headers", "X-Total-Count, Content-Disposition")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if len(s.config.CORSOrigins) == 0 {
		return true
	}
	for _, o := range s.config.CORSOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
