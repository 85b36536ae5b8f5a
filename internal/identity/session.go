package identity

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionTTL = 14 * 24 * time.Hour
	CookieName = "token"
)

// Claims is the session token payload.
type Claims struct {
	UserID int64 `json:"userID"`
	jwt.RegisteredClaims
}

// IssueSession signs a session token for userID valid for 14 days.
func (s *Service) IssueSession(userID int64) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Authenticate returns the user id carried by a valid session token. Any
// malformed, forged or expired token yields ok=false.
func (s *Service) Authenticate(token string) (userID int64, ok bool) {
	if token == "" {
		return 0, false
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.UserID <= 0 {
		return 0, false
	}
	return claims.UserID, true
}

// SessionCookie wraps a session token in the login cookie.
func (s *Service) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL / time.Second),
		Expires:  s.now().Add(SessionTTL),
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie expires the login cookie on the client. Tokens are not
// revocable server side.
func (s *Service) ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteLaxMode,
	}
}
