package middleware

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ayush/cybertodo/internal/apperr"
	"github.com/ayush/cybertodo/internal/auth"
	"github.com/ayush/cybertodo/internal/models"
)

// UserLoader resolves a session's user id.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// LoadSession resolves the session cookie, if any, and injects the user
// into the request context. Anonymous requests pass through unchanged.
func LoadSession(sessions *auth.SessionStore, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				zap.L().Warn("load session", zap.Error(err))
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				// Session outlived its user.
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithUser(r.Context(), user, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Flasher queues a message for the next page.
type Flasher interface {
	Flash(w http.ResponseWriter, r *http.Request, category, message string)
}

// RequireLogin redirects anonymous browsers to the login page, keeping
// the requested path in ?next=.
func RequireLogin(flash Flasher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.UserFrom(r.Context()) == nil {
				flash.Flash(w, r, "info", "Please log in to access this page.")
				target := "/auth/login?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous API calls with a 401 JSON body.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserFrom(r.Context()) == nil {
			apperr.WriteJSON(w, apperr.Auth("not authenticated"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
