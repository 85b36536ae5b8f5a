package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/signups/internal/auth"
	"github.com/dukerupert/signups/internal/identity"
	"github.com/dukerupert/signups/internal/notify"
)

type AuthHandler struct {
	identity *identity.Service
	notifier *notify.Dispatcher
	logger   *slog.Logger
}

func NewAuthHandler(id *identity.Service, n *notify.Dispatcher, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{identity: id, notifier: n, logger: logger}
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, created, err := h.identity.Register(r.Context(), req.Name, req.Email, req.Phone)
	switch {
	case errors.Is(err, identity.ErrNoChannel),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("register", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	if !created {
		// The caller is not signed in, so an existing account is only sent a
		// login code; none of its details go back in the response.
		h.resendLoginCode(r, req)
		writeJSON(w, http.StatusOK, map[string]string{"status": "login code sent"})
		return
	}
	h.notifier.Registered(r.Context(), u)
	writeJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) resendLoginCode(r *http.Request, req registerRequest) {
	identifier := req.Email
	if strings.TrimSpace(identifier) == "" {
		identifier = req.Phone
	}
	ident, err := h.identity.Identify(r.Context(), identifier)
	if err != nil || ident == nil {
		h.logger.Error("identify existing registration", "error", err)
		return
	}
	if err := h.notifier.LoginCode(r.Context(), ident); err != nil {
		h.logger.Warn("deliver login code", "user_id", ident.User.ID, "channel", ident.Channel, "error", err)
	}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
}

// Login sends a one-time code to the email or phone the caller typed in.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ident, err := h.identity.Identify(r.Context(), req.Identifier)
	switch {
	case errors.Is(err, identity.ErrNoChannel),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, "enter an email address or a 10 digit phone number")
		return
	case err != nil:
		h.logger.Error("identify", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start login")
		return
	case ident == nil:
		writeError(w, http.StatusNotFound, "no account found")
		return
	}

	if err := h.notifier.LoginCode(r.Context(), ident); err != nil {
		h.logger.Error("deliver login code", "user_id", ident.User.ID, "channel", ident.Channel, "error", err)
		writeError(w, http.StatusBadGateway, "could not send login code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": ident.User.ID,
		"channel": ident.Channel,
	})
}

type verifyRequest struct {
	UserID int64  `json:"user_id"`
	Code   string `json:"code"`
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.identity.VerifyOTP(r.Context(), req.UserID, req.Code)
	if err != nil {
		h.logger.Error("verify otp", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to verify code")
		return
	}
	if u == nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}

	if !h.startSession(w, u.ID) {
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Magic logs a user in from the link in their login email.
func (h *AuthHandler) Magic(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid link")
		return
	}

	ok, err := h.identity.VerifyMagicCode(r.Context(), userID, r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Error("verify magic code", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to verify link")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid link")
		return
	}

	if !h.startSession(w, userID) {
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, userID int64) bool {
	token, err := h.identity.IssueSession(userID)
	if err != nil {
		h.logger.Error("issue session", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return false
	}
	http.SetCookie(w, h.identity.SessionCookie(token))
	h.logger.Info("login", "user_id", userID)
	return true
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.identity.ClearSessionCookie())
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// Me returns the signed-in user, or 401.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	u, err := h.identity.User(r.Context(), ac.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if u == nil {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":     u,
		"is_admin": ac.IsAdmin,
	})
}
