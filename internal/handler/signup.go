package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/signups/internal/auth"
	"github.com/dukerupert/signups/internal/events"
	"github.com/dukerupert/signups/internal/identity"
	"github.com/dukerupert/signups/internal/ledger"
	"github.com/dukerupert/signups/internal/model"
	"github.com/dukerupert/signups/internal/notify"
	"github.com/dukerupert/signups/internal/websocket"
)

type SignupHandler struct {
	ledger   *ledger.Ledger
	events   *events.Service
	identity *identity.Service
	notifier *notify.Dispatcher
	hub      Broadcaster
	logger   *slog.Logger
}

func NewSignupHandler(l *ledger.Ledger, es *events.Service, id *identity.Service, n *notify.Dispatcher, hub Broadcaster, logger *slog.Logger) *SignupHandler {
	return &SignupHandler{ledger: l, events: es, identity: id, notifier: n, hub: hub, logger: logger}
}

type signupRequest struct {
	Quantity        int    `json:"quantity"`
	Comment         string `json:"comment"`
	SubmissionToken string `json:"submission_token"`
}

type signupResponse struct {
	Signup   *model.Signup `json:"signup"`
	Item     *model.Item   `json:"item"`
	Replayed bool          `json:"replayed"`
}

// Create pledges against an item. Resubmitting the same token returns the
// original signup with 200 instead of recording a second one.
func (h *SignupHandler) Create(w http.ResponseWriter, r *http.Request) {
	itemID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := auth.UserID(r.Context())

	receipt, err := h.ledger.CreateSignup(r.Context(), ledger.SignupRequest{
		ItemID:          itemID,
		UserID:          userID,
		Quantity:        req.Quantity,
		Comment:         req.Comment,
		SubmissionToken: req.SubmissionToken,
	})
	switch {
	case errors.Is(err, ledger.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ledger.ErrItemClosed), errors.Is(err, ledger.ErrTokenConflict):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Error("create signup", "item_id", itemID, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create signup")
		return
	case receipt == nil:
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	resp := signupResponse{Signup: receipt.Signup, Item: receipt.Item, Replayed: receipt.Replayed}
	if receipt.Replayed {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	broadcast(h.hub, websocket.SignupCreated(receipt.Item.EventID, receipt.Signup))
	if u, ev := h.context(r.Context(), userID, receipt.Item.EventID); u != nil && ev != nil {
		h.notifier.SignupCreated(r.Context(), u, ev, receipt.Item, receipt.Signup)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Cancel withdraws a signup. Donors may cancel their own; admins any.
func (h *SignupHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signup id")
		return
	}
	ctx := r.Context()

	sg, err := h.ledger.GetSignup(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get signup")
		return
	}
	if sg == nil {
		writeError(w, http.StatusNotFound, "signup not found")
		return
	}
	if sg.UserID != auth.UserID(ctx) && !auth.IsAdmin(ctx) {
		writeError(w, http.StatusForbidden, "not your signup")
		return
	}

	canceled, err := h.ledger.CancelSignup(ctx, id)
	if err != nil {
		h.logger.Error("cancel signup", "signup_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to cancel signup")
		return
	}
	if sg, err = h.ledger.GetSignup(ctx, id); err != nil || sg == nil {
		writeError(w, http.StatusInternalServerError, "failed to get signup")
		return
	}

	if canceled {
		item, err := h.ledger.GetItem(ctx, sg.ItemID)
		if err != nil {
			h.logger.Error("load item for cancel", "item_id", sg.ItemID, "error", err)
		}
		if item != nil {
			broadcast(h.hub, websocket.SignupCanceled(item.EventID, sg))
			if u, ev := h.context(ctx, sg.UserID, item.EventID); u != nil && ev != nil {
				h.notifier.SignupCanceled(ctx, u, ev, item, sg)
			}
		}
	}
	writeJSON(w, http.StatusOK, sg)
}

// Mine lists the caller's active signups split into current and past events.
func (h *SignupHandler) Mine(w http.ResponseWriter, r *http.Request) {
	current, past, err := h.ledger.SignupsForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list signups")
		return
	}
	if current == nil {
		current = []model.SignupDetail{}
	}
	if past == nil {
		past = []model.SignupDetail{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"current": current, "past": past})
}

// ForEvent lists every signup on an event for organizers.
func (h *SignupHandler) ForEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	list, err := h.ledger.SignupsForEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list signups")
		return
	}
	if list == nil {
		list = []model.SignupDetail{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *SignupHandler) context(ctx context.Context, userID, eventID int64) (*model.User, *model.Event) {
	u, err := h.identity.User(ctx, userID)
	if err != nil {
		h.logger.Error("load user for notification", "user_id", userID, "error", err)
		return nil, nil
	}
	ev, err := h.events.Get(ctx, eventID)
	if err != nil {
		h.logger.Error("load event for notification", "event_id", eventID, "error", err)
		return nil, nil
	}
	return u, ev
}
