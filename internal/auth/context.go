package auth

import (
	"context"

	"github.com/ayush/cybertodo/internal/models"
)

type contextKey struct{ name string }

var (
	userKey      = &contextKey{"user"}
	sessionIDKey = &contextKey{"session"}
)

// WithUser returns a copy of ctx carrying the authenticated user and the
// session it was loaded from.
func WithUser(ctx context.Context, u *models.User, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userKey, u)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// UserFrom returns the authenticated user, or nil for anonymous requests.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// SessionFrom returns the current session id, or "".
func SessionFrom(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}
