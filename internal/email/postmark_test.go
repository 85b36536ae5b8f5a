package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, received *postmarkEmail, gotToken *string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSendLoginCode(t *testing.T) {
	var received postmarkEmail
	var gotToken string
	server := newTestServer(t, &received, &gotToken)

	client := NewClient("test-token", "noreply@example.com", "https://signups.test", WithAPIURL(server.URL))
	if err := client.SendLoginCode(context.Background(), "alice@example.com", 7, "magic-abc", "123456"); err != nil {
		t.Fatalf("send login code: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q, want %q", received.To, "alice@example.com")
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From, "noreply@example.com")
	}
	if !strings.Contains(received.TextBody, "123456") {
		t.Errorf("text body missing code: %q", received.TextBody)
	}
	if !strings.Contains(received.TextBody, "https://signups.test/auth/magic?code=magic-abc&id=7") {
		t.Errorf("text body missing magic link: %q", received.TextBody)
	}
}

func TestSendSignupConfirmationEscapesHTML(t *testing.T) {
	var received postmarkEmail
	var gotToken string
	server := newTestServer(t, &received, &gotToken)

	client := NewClient("test-token", "noreply@example.com", "https://signups.test", WithAPIURL(server.URL))
	err := client.SendSignupConfirmation(context.Background(), "bob@example.com", "<Bob>", "Winter Drive", "Coats", 3)
	if err != nil {
		t.Fatalf("send confirmation: %v", err)
	}
	if received.Subject != "Signup confirmed: Winter Drive" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if strings.Contains(received.HtmlBody, "<Bob>") {
		t.Errorf("html body not escaped: %q", received.HtmlBody)
	}
	if !strings.Contains(received.TextBody, "3 x Coats") {
		t.Errorf("text body = %q", received.TextBody)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://signups.test")

	err := client.SendAlert(context.Background(), "alice@example.com", "hi", "body")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://signups.test", WithAPIURL(server.URL))
	if err := client.SendAlert(context.Background(), "alice@example.com", "hi", "body"); err == nil {
		t.Fatal("expected error for API failure")
	}
}

func TestConfigured(t *testing.T) {
	c1 := NewClient("token", "from@test.com", "https://test.com")
	if !c1.Configured() {
		t.Error("expected Configured() = true")
	}

	c2 := NewClient("", "from@test.com", "https://test.com")
	if c2.Configured() {
		t.Error("expected Configured() = false")
	}
}
