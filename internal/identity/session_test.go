package identity

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionRoundTrip(t *testing.T) {
	svc, clock, _ := setupService(t)

	token, err := svc.IssueSession(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, ok := svc.Authenticate(token)
	if !ok || id != 7 {
		t.Fatalf("authenticate = %d, %v; want 7, true", id, ok)
	}

	clock.Advance(SessionTTL - time.Hour)
	if _, ok := svc.Authenticate(token); !ok {
		t.Error("token should be valid before 14 days")
	}

	clock.Advance(2 * time.Hour)
	if _, ok := svc.Authenticate(token); ok {
		t.Error("token should expire after 14 days")
	}
}

func TestSessionClaimShape(t *testing.T) {
	svc, _, _ := setupService(t)
	token, err := svc.IssueSession(3)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims["userID"] != float64(3) {
		t.Errorf("userID claim = %v, want 3", claims["userID"])
	}
	if _, ok := claims["exp"]; !ok {
		t.Error("missing exp claim")
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	svc, _, _ := setupService(t)
	token, _ := svc.IssueSession(1)

	other, _, _ := setupService(t)
	other.secret = []byte("different")
	forged, _ := other.IssueSession(1)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, tok := range map[string]string{
		"empty":     "",
		"garbage":   "not.a.jwt",
		"truncated": token[:len(token)-4],
		"forged":    forged,
		"none-alg":  unsigned,
	} {
		if _, ok := svc.Authenticate(tok); ok {
			t.Errorf("%s token accepted", name)
		}
	}
}

func TestSessionCookieContract(t *testing.T) {
	svc, _, _ := setupService(t)
	c := svc.SessionCookie("abc")

	if c.Name != "token" || c.Value != "abc" || c.Path != "/" {
		t.Errorf("cookie = %+v", c)
	}
	if !c.HttpOnly {
		t.Error("cookie must be HttpOnly")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("samesite = %v, want Lax", c.SameSite)
	}
	if c.MaxAge != 14*24*60*60 {
		t.Errorf("max age = %d", c.MaxAge)
	}
	if c.Secure {
		t.Error("cookie should not be Secure outside production")
	}

	WithProduction(true)(svc)
	if !svc.SessionCookie("abc").Secure {
		t.Error("cookie must be Secure in production")
	}

	cleared := svc.ClearSessionCookie()
	if cleared.MaxAge >= 0 || !strings.EqualFold(cleared.Name, "token") {
		t.Errorf("cleared cookie = %+v", cleared)
	}
}
