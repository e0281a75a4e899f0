package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/auth"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/httputil"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/repository"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// handleRegister creates an account. The very first account is made an
// admin so a fresh install can be managed.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        auth.NormalizeEmail(req.Email),
		PasswordHash: hash,
		Status:       models.UserActive,
	}
	if err := s.users.Register(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.respondError(w, http.StatusConflict, "email already registered")
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.issueToken(w, r, user, http.StatusCreated, "Registration successful")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.users.GetByEmail(r.Context(), auth.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.serverError(w, r, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !user.IsActive() {
		s.respondError(w, http.StatusForbidden, "account is inactive")
		return
	}

	now := s.now()
	if err := s.users.TouchLastLogin(r.Context(), user.ID, now); err != nil {
		s.logger.Warn("record last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	s.issueToken(w, r, user, http.StatusOK, "Login successful")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, http.StatusOK, "", auth.UserFromContext(r.Context()))
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, user *models.User, status int, message string) {
	token, exp, err := s.auth.GenerateToken(user)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	httputil.OK(w, status, message, LoginResponse{Token: token, ExpiresAt: exp, User: user})
}
