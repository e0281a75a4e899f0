package api

import (
	"net/http"
	"strings"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/auth"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/httputil"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

type MovieRequest struct {
	titleFields
	MovieURL string `json:"movieUrl" validate:"omitempty,url"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	f, page := catalogFilter(r)
	movies, total, err := s.movies.List(r.Context(), f)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if !isAdmin(r) {
		for _, t := range movies {
			t.CreatedBy = nil
		}
	}
	httputil.List(w, movies, page, total)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movie, ok := s.loadMovie(w, r)
	if !ok {
		return
	}
	if !isAdmin(r) {
		movie.CreatedBy = nil
	}
	httputil.OK(w, http.StatusOK, "", movie)
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req MovieRequest
	if !s.decode(w, r, &req) {
		return
	}
	imageURL, gallery, ok := s.resolveImages(w, r, &req.titleFields)
	if !ok {
		return
	}

	user := auth.UserFromContext(r.Context())
	movie := &models.Movie{CreatedBy: &user.ID}
	applyMovie(movie, &req, imageURL, gallery)
	if movie.Status == "" {
		movie.Status = models.StatusActive
	}

	if err := s.movies.Create(r.Context(), movie); err != nil {
		s.respondStoreError(w, r, err, "movie")
		return
	}
	s.logger.Info("movie created", "movie_id", movie.ID, "title", movie.Title, "by", user.ID)
	httputil.OK(w, http.StatusCreated, "Movie created successfully", movie)
}

// handleUpdateMovie replaces the editable fields. Status is kept when the
// body leaves it out.
func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "movie")
	if !ok {
		return
	}
	var req MovieRequest
	if !s.decode(w, r, &req) {
		return
	}

	movie, err := s.movies.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err, "movie")
		return
	}
	imageURL, gallery, ok := s.resolveImages(w, r, &req.titleFields)
	if !ok {
		return
	}
	applyMovie(movie, &req, imageURL, gallery)

	if err := s.movies.Update(r.Context(), movie); err != nil {
		s.respondStoreError(w, r, err, "movie")
		return
	}
	httputil.OK(w, http.StatusOK, "Movie updated successfully", movie)
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "movie")
	if !ok {
		return
	}
	if err := s.movies.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, r, err, "movie")
		return
	}
	s.logger.Info("movie deleted", "movie_id", id)
	httputil.OK(w, http.StatusOK, "Movie deleted successfully", nil)
}

// handleMovieStatus sets the status from the body, or toggles it when the
// body is empty.
func (s *Server) handleMovieStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "movie")
	if !ok {
		return
	}
	movie, err := s.movies.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err, "movie")
		return
	}
	next, ok := s.nextStatus(w, r, movie.Status)
	if !ok {
		return
	}
	if err := s.movies.SetStatus(r.Context(), id, next); err != nil {
		s.respondStoreError(w, r, err, "movie")
		return
	}
	movie.Status = next
	httputil.OK(w, http.StatusOK, "Movie status updated to "+string(next), movie)
}

func (s *Server) handleMovieStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.movies.Stats(r.Context(), s.monthStart())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	httputil.OK(w, http.StatusOK, "", stats)
}

func (s *Server) handleRateMovie(w http.ResponseWriter, r *http.Request) {
	movie, ok := s.loadMovie(w, r)
	if !ok {
		return
	}
	s.rate(w, r, models.MediaRef{MediaType: models.MediaMovie, MediaID: movie.ID})
}

func (s *Server) handleGetMovieRating(w http.ResponseWriter, r *http.Request) {
	movie, ok := s.loadMovie(w, r)
	if !ok {
		return
	}
	s.userRating(w, r, models.MediaRef{MediaType: models.MediaMovie, MediaID: movie.ID},
		models.RatingSummary{AverageRating: movie.AverageRating, TotalRatings: movie.TotalRatings})
}

func (s *Server) handleDownloadMovie(w http.ResponseWriter, r *http.Request) {
	movie, ok := s.loadMovie(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(movie.MovieURL) == "" {
		s.respondError(w, http.StatusNotFound, "no downloadable file for this title")
		return
	}
	s.logger.Info("movie download", "movie_id", movie.ID, "user_id", auth.UserFromContext(r.Context()).ID)
	s.stream(w, r, movie.MovieURL, attachmentName(movie.Title, movie.MovieURL))
}

// loadMovie fetches the movie named in the path. Inactive movies are
// reported missing to non-admins.
func (s *Server) loadMovie(w http.ResponseWriter, r *http.Request) (*models.Movie, bool) {
	id, ok := pathID(w, r, "movie")
	if !ok {
		return nil, false
	}
	movie, err := s.movies.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err, "movie")
		return nil, false
	}
	if !visible(r, movie.Status) {
		s.respondError(w, http.StatusNotFound, "movie not found")
		return nil, false
	}
	return movie, true
}

func applyMovie(m *models.Movie, req *MovieRequest, imageURL string, gallery []string) {
	m.Title = strings.TrimSpace(req.Title)
	m.Year = req.Year
	m.Description = strings.TrimSpace(req.Description)
	m.ImageURL = imageURL
	m.Images = gallery
	m.MovieURL = strings.TrimSpace(req.MovieURL)
	m.IMDBRating = req.IMDBRating
	m.Genre = strings.TrimSpace(req.Genre)
	if req.Status != "" {
		m.Status = models.ContentStatus(req.Status)
	}
}
