package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/auth"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

func register(env *testEnv, name, email string) LoginResponse {
	env.t.Helper()
	rec := env.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": "secret123",
	}, "")
	var got LoginResponse
	decodeData(env.t, rec, http.StatusCreated, &got)
	return got
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	env := newTestEnv(t)

	first := register(env, "Nima", "Nima@MovieHub.test")
	assert.Equal(t, models.RoleAdmin, first.User.Role)
	assert.Equal(t, "nima@moviehub.test", first.User.Email)
	assert.NotEmpty(t, first.Token)

	second := register(env, "Ana", "ana@moviehub.test")
	assert.Equal(t, models.RoleUser, second.User.Role)

	rec := env.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Again", "email": "NIMA@moviehub.test", "password": "secret123",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email already registered", decodeEnvelope(t, rec).Message)

	var me models.User
	decodeData(t, env.do(http.MethodGet, "/api/auth/me", nil, first.Token), http.StatusOK, &me)
	assert.Equal(t, first.User.ID, me.ID)
}

func TestConcurrentRegistrationYieldsOneAdmin(t *testing.T) {
	env := newTestEnv(t)

	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = env.do(http.MethodPost, "/api/auth/register", map[string]string{
				"name":     fmt.Sprintf("  User %d  ", i),
				"email":    fmt.Sprintf("user%d@moviehub.test", i),
				"password": "secret123",
			}, "").Code
		}(i)
	}
	wg.Wait()

	admins := 0
	for _, code := range codes {
		assert.Equal(t, http.StatusCreated, code)
	}
	for _, u := range env.users.users {
		if u.Role == models.RoleAdmin {
			admins++
		}
		assert.Regexp(t, `^User \d$`, u.Name)
	}
	assert.Equal(t, 1, admins)
	assert.Len(t, env.users.users, len(codes))
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "x"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := fieldErrors(decodeEnvelope(t, rec))
	assert.Equal(t, "name is required", errs["name"])
	assert.Equal(t, "must be a valid email address", errs["email"])
	assert.Equal(t, "password is required", errs["password"])
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	registered := register(env, "Nima", "nima@moviehub.test")

	var got LoginResponse
	resp := decodeData(t, env.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "NIMA@moviehub.test", "password": "secret123",
	}, ""), http.StatusOK, &got)
	assert.Equal(t, "Login successful", resp.Message)
	assert.NotNil(t, got.User.LastLoginAt)
	assert.NotNil(t, env.users.users[registered.User.ID].LastLoginAt)

	rec := env.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nima@moviehub.test", "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decodeEnvelope(t, rec).Message)

	rec = env.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nobody@moviehub.test", "password": "secret123",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env.users.users[registered.User.ID].Status = models.UserInactive
	rec = env.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nima@moviehub.test", "password": "secret123",
	}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Config.AuthRateLimit = 0.001
		d.Config.AuthRateBurst = 1
	})
	body := map[string]string{"email": "nobody@moviehub.test", "password": "secret123"}

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/auth/login", body, "").Code)
	rec := env.do(http.MethodPost, "/api/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/movies", nil, "").Code)
}

func TestCreateAndListUsers(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser("admin", models.RoleAdmin)

	var created models.User
	decodeData(t, env.do(http.MethodPost, "/api/users", map[string]string{
		"name": "Editor", "email": "editor@moviehub.test", "password": "secret123", "role": "admin",
	}, token), http.StatusCreated, &created)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.Equal(t, models.UserActive, created.Status)

	rec := env.do(http.MethodPost, "/api/users", map[string]string{
		"name": "Editor", "email": "editor@moviehub.test", "password": "secret123",
	}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var admins []models.User
	decodeData(t, env.do(http.MethodGet, "/api/users?role=admin", nil, token), http.StatusOK, &admins)
	assert.Len(t, admins, 2)

	var stats models.UserStats
	decodeData(t, env.do(http.MethodGet, "/api/users/stats", nil, token), http.StatusOK, &stats)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByRole[models.RoleAdmin])
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	admin, token := env.seedUser("admin", models.RoleAdmin)
	ana, _ := env.seedUser("ana", models.RoleUser)

	var got models.User
	decodeData(t, env.do(http.MethodPut, "/api/users/"+ana.ID.String(), map[string]string{
		"name": "Ana Maria", "password": "new-secret",
	}, token), http.StatusOK, &got)
	assert.Equal(t, "Ana Maria", got.Name)
	assert.Equal(t, ana.Email, got.Email)
	assert.True(t, auth.CheckPassword(env.users.users[ana.ID].PasswordHash, "new-secret"))

	rec := env.do(http.MethodPut, "/api/users/"+admin.ID.String(), map[string]string{"role": "user"}, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	decodeData(t, env.do(http.MethodPut, "/api/users/"+admin.ID.String(), map[string]string{"name": "Boss"}, token),
		http.StatusOK, &got)
	assert.Equal(t, "Boss", got.Name)

	rec = env.do(http.MethodPut, "/api/users/"+ana.ID.String(), map[string]string{"email": admin.Email}, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUserStatus(t *testing.T) {
	env := newTestEnv(t)
	admin, token := env.seedUser("admin", models.RoleAdmin)
	ana, anaToken := env.seedUser("ana", models.RoleUser)

	assert.Equal(t, http.StatusForbidden,
		env.do(http.MethodPatch, "/api/users/"+admin.ID.String()+"/status", nil, token).Code)

	var got models.User
	decodeData(t, env.do(http.MethodPatch, "/api/users/"+ana.ID.String()+"/status", nil, token), http.StatusOK, &got)
	assert.Equal(t, models.UserInactive, got.Status)

	rec := env.do(http.MethodGet, "/api/auth/me", nil, anaToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "account is inactive", decodeEnvelope(t, rec).Message)

	decodeData(t, env.do(http.MethodPatch, "/api/users/"+ana.ID.String()+"/status",
		map[string]string{"status": "active"}, token), http.StatusOK, &got)
	assert.Equal(t, models.UserActive, got.Status)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/auth/me", nil, anaToken).Code)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	admin, token := env.seedUser("admin", models.RoleAdmin)
	ana, anaToken := env.seedUser("ana", models.RoleUser)
	_, benToken := env.seedUser("ben", models.RoleUser)
	m := seedMovie(env, "Shared", models.StatusActive)

	rate := "/api/movies/" + m.ID.String() + "/rate"
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, rate, map[string]int{"rating": 10}, anaToken).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, rate, map[string]int{"rating": 4}, benToken).Code)
	require.Equal(t, 7.0, env.movies.movies[m.ID].AverageRating)

	rec := env.do(http.MethodDelete, "/api/users/"+admin.ID.String(), nil, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "you cannot delete your own account", decodeEnvelope(t, rec).Message)

	assert.Equal(t, http.StatusOK, env.do(http.MethodDelete, "/api/users/"+ana.ID.String(), nil, token).Code)
	_, err := env.users.GetByID(context.Background(), ana.ID)
	assert.Error(t, err)
	assert.Equal(t, 1, env.ratings.len())
	assert.Equal(t, 4.0, env.movies.movies[m.ID].AverageRating)
	assert.Equal(t, 1, env.movies.movies[m.ID].TotalRatings)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/users/"+ana.ID.String(), nil, token).Code)
}
