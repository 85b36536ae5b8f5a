package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/signups/internal/auth"
	"github.com/dukerupert/signups/internal/identity"
)

// Sessions is the subset of identity.Service the middleware needs.
type Sessions interface {
	Authenticate(token string) (int64, bool)
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// Authenticate resolves the session cookie into an AuthContext. It never
// rejects a request: a missing or invalid token yields an anonymous caller.
func Authenticate(sessions Sessions, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var ac auth.AuthContext
			if cookie, err := r.Cookie(identity.CookieName); err == nil && cookie.Value != "" {
				if userID, ok := sessions.Authenticate(cookie.Value); ok {
					ac.UserID = userID
					admin, err := sessions.IsAdmin(r.Context(), userID)
					if err != nil {
						logger.Error("admin lookup", "user_id", userID, "error", err)
					}
					ac.IsAdmin = admin
				}
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserID(r.Context()) == 0 {
			deny(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserID(r.Context()) == 0 {
			deny(w, http.StatusUnauthorized, "login required")
			return
		}
		if !auth.IsAdmin(r.Context()) {
			deny(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
