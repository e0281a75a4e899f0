package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/auth"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/httputil"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/repository"
)

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
	Status   string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// UpdateUserRequest is a partial update; nil fields are left alone.
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Password *string `json:"password" validate:"omitempty,min=6,max=128"`
	Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
	Status   *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

type UserStatusRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := httputil.ParsePage(q, 20)
	f := repository.UserFilter{
		Search: q.Get("search"),
		Page:   repository.Page{Limit: page.Limit, Offset: page.Offset()},
	}
	switch role := models.UserRole(q.Get("role")); role {
	case models.RoleUser, models.RoleAdmin:
		f.Role = role
	}
	switch st := models.UserStatus(q.Get("status")); st {
	case models.UserActive, models.UserInactive:
		f.Status = st
	}

	users, total, err := s.users.List(r.Context(), f)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	httputil.List(w, users, page, total)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
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
		Role:         models.RoleUser,
		Status:       models.UserActive,
	}
	if req.Role != "" {
		user.Role = models.UserRole(req.Role)
	}
	if req.Status != "" {
		user.Status = models.UserStatus(req.Status)
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		s.respondStoreError(w, r, err, "user")
		return
	}
	s.logger.Info("user created", "user_id", user.ID, "role", user.Role,
		"by", auth.UserFromContext(r.Context()).ID)
	httputil.OK(w, http.StatusCreated, "User created successfully", user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err, "user")
		return
	}
	httputil.OK(w, http.StatusOK, "", user)
}

// handleUpdateUser applies a partial update. Admins cannot change their own
// role or status.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !s.decode(w, r, &req) {
		return
	}
	self := auth.UserFromContext(r.Context()).ID == id

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err, "user")
		return
	}
	if self && ((req.Role != nil && models.UserRole(*req.Role) != user.Role) ||
		(req.Status != nil && models.UserStatus(*req.Status) != user.Status)) {
		s.respondError(w, http.StatusForbidden, "you cannot change your own role or status")
		return
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = auth.NormalizeEmail(*req.Email)
	}
	if req.Role != nil {
		user.Role = models.UserRole(*req.Role)
	}
	if req.Status != nil {
		user.Status = models.UserStatus(*req.Status)
	}
	if err := s.users.Update(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.respondError(w, http.StatusConflict, "email already registered")
			return
		}
		s.respondStoreError(w, r, err, "user")
		return
	}

	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		if err := s.users.UpdatePassword(r.Context(), id, hash); err != nil {
			s.respondStoreError(w, r, err, "user")
			return
		}
		s.logger.Info("user password reset", "user_id", id)
	}
	httputil.OK(w, http.StatusOK, "User updated successfully", user)
}

// handleUserStatus sets or toggles an account's status.
func (s *Server) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	if auth.UserFromContext(r.Context()).ID == id {
		s.respondError(w, http.StatusForbidden, "you cannot change your own status")
		return
	}
	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err, "user")
		return
	}

	var req UserStatusRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.check(w, &req) {
		return
	}
	switch {
	case req.Status != "":
		user.Status = models.UserStatus(req.Status)
	case user.Status == models.UserActive:
		user.Status = models.UserInactive
	default:
		user.Status = models.UserActive
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		s.respondStoreError(w, r, err, "user")
		return
	}
	httputil.OK(w, http.StatusOK, "User status updated to "+string(user.Status), user)
}

// handleDeleteUser removes an account. Its ratings go with it, so the
// aggregates of every title it rated are recomputed afterwards.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	if auth.UserFromContext(r.Context()).ID == id {
		s.respondError(w, http.StatusForbidden, "you cannot delete your own account")
		return
	}

	rated, err := s.ratings.RatedBy(r.Context(), id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, r, err, "user")
		return
	}
	if len(rated) > 0 {
		updated := s.rater.RecomputeAll(r.Context(), rated)
		s.logger.Info("recomputed ratings after user delete", "user_id", id,
			"titles", len(rated), "updated", updated)
	}
	httputil.OK(w, http.StatusOK, "User deleted successfully", nil)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.users.Stats(r.Context(), s.monthStart())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	httputil.OK(w, http.StatusOK, "", stats)
}
