package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

type contextKey string

const contextUser contextKey = "user"

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, contextUser, user)
}

func UserFromContext(ctx context.Context) *models.User {
	if u, ok := ctx.Value(contextUser).(*models.User); ok {
		return u
	}
	return nil
}

// ExtractToken reads a bearer token from the Authorization header, falling
// back to the token query parameter used by download links.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
