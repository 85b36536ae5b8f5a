package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
)

const postmarkURL = "https://api.postmarkapp.com/email"

var ErrNotConfigured = errors.New("email client not configured: missing server token")

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL points the client at a different Postmark-compatible endpoint.
func WithAPIURL(u string) Option {
	return func(cl *Client) {
		cl.apiURL = u
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      postmarkURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// MagicLink builds the one-click login URL for a user.
func (c *Client) MagicLink(userID int64, magicCode string) string {
	q := url.Values{}
	q.Set("id", fmt.Sprint(userID))
	q.Set("code", magicCode)
	return c.baseURL + "/auth/magic?" + q.Encode()
}

// SendLoginCode emails the one-time code together with the user's magic link.
func (c *Client) SendLoginCode(ctx context.Context, toEmail string, userID int64, magicCode, otp string) error {
	link := c.MagicLink(userID, magicCode)
	textBody := fmt.Sprintf("Your login code is %s. It expires in 15 minutes.\n\nOr sign in directly:\n\n%s", otp, link)
	htmlBody := fmt.Sprintf(
		`<p>Your login code is <strong>%s</strong>. It expires in 15 minutes.</p><p>Or <a href="%s">sign in directly</a>.</p>`,
		otp, html.EscapeString(link),
	)
	return c.send(ctx, postmarkEmail{
		To:       toEmail,
		Subject:  "Your E4L Signups login code",
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

// SendSignupConfirmation thanks a volunteer for a pledge.
func (c *Client) SendSignupConfirmation(ctx context.Context, toEmail, name, eventTitle, itemTitle string, quantity int) error {
	textBody := fmt.Sprintf("Thanks %s!\n\nYou signed up to bring %d x %s for %s.\n\nSee your signups at %s/signups", name, quantity, itemTitle, eventTitle, c.baseURL)
	htmlBody := fmt.Sprintf(
		`<p>Thanks %s!</p><p>You signed up to bring %d &times; %s for %s.</p><p><a href="%s/signups">See your signups</a></p>`,
		html.EscapeString(name), quantity, html.EscapeString(itemTitle), html.EscapeString(eventTitle), html.EscapeString(c.baseURL),
	)
	return c.send(ctx, postmarkEmail{
		To:       toEmail,
		Subject:  "Signup confirmed: " + eventTitle,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

// SendAlert delivers a plain-text organizer notice.
func (c *Client) SendAlert(ctx context.Context, toEmail, subject, body string) error {
	return c.send(ctx, postmarkEmail{
		To:       toEmail,
		Subject:  subject,
		HtmlBody: "<p>" + html.EscapeString(body) + "</p>",
		TextBody: body,
	})
}

func (c *Client) send(ctx context.Context, payload postmarkEmail) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	payload.From = c.fromEmail

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
