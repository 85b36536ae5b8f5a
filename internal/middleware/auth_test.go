package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/signups/internal/auth"
	"github.com/dukerupert/signups/internal/identity"
)

type fakeSessions struct {
	tokens map[string]int64
	admins map[int64]bool
	err    error
}

func (f *fakeSessions) Authenticate(token string) (int64, bool) {
	id, ok := f.tokens[token]
	return id, ok
}

func (f *fakeSessions) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return f.admins[userID], f.err
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		tokens: map[string]int64{"alice": 1, "root": 2},
		admins: map[int64]bool{2: true},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func captureAuth(t *testing.T, sessions Sessions, cookie string) auth.AuthContext {
	t.Helper()
	var got auth.AuthContext
	handler := Authenticate(sessions, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		got = ac
	}))

	req := httptest.NewRequest("GET", "/", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: identity.CookieName, Value: cookie})
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestAuthenticateNoCookie(t *testing.T) {
	ac := captureAuth(t, newFakeSessions(), "")
	if ac.UserID != 0 || ac.IsAdmin {
		t.Errorf("ac = %+v, want anonymous", ac)
	}
}

func TestAuthenticateInvalidToken(t *testing.T) {
	ac := captureAuth(t, newFakeSessions(), "forged")
	if ac.UserID != 0 {
		t.Errorf("UserID = %d, want 0", ac.UserID)
	}
}

func TestAuthenticateUser(t *testing.T) {
	ac := captureAuth(t, newFakeSessions(), "alice")
	if ac.UserID != 1 || ac.IsAdmin {
		t.Errorf("ac = %+v, want user 1 non-admin", ac)
	}
}

func TestAuthenticateAdmin(t *testing.T) {
	ac := captureAuth(t, newFakeSessions(), "root")
	if ac.UserID != 2 || !ac.IsAdmin {
		t.Errorf("ac = %+v, want admin 2", ac)
	}
}

func TestAuthenticateAdminLookupError(t *testing.T) {
	s := newFakeSessions()
	s.err = errors.New("db down")
	ac := captureAuth(t, s, "root")
	if ac.UserID != 2 {
		t.Errorf("UserID = %d, want 2", ac.UserID)
	}
}

func serveWith(ac auth.AuthContext, mw func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(auth.WithAuth(req.Context(), ac))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireUser(t *testing.T) {
	if rec := serveWith(auth.AuthContext{}, RequireUser); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if rec := serveWith(auth.AuthContext{UserID: 1}, RequireUser); rec.Code != http.StatusOK {
		t.Errorf("user: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name string
		ac   auth.AuthContext
		want int
	}{
		{"anonymous", auth.AuthContext{}, http.StatusUnauthorized},
		{"member", auth.AuthContext{UserID: 1}, http.StatusForbidden},
		{"admin", auth.AuthContext{UserID: 2, IsAdmin: true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveWith(tt.ac, RequireAdmin)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
