package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/signups/internal/auth"
	"github.com/dukerupert/signups/internal/blob"
	"github.com/dukerupert/signups/internal/events"
	"github.com/dukerupert/signups/internal/ledger"
	"github.com/dukerupert/signups/internal/model"
	"github.com/dukerupert/signups/internal/store"
)

const maxImageBytes = 10 << 20

type EventHandler struct {
	events *events.Service
	ledger *ledger.Ledger
	images *blob.Store
	logger *slog.Logger
}

func NewEventHandler(es *events.Service, l *ledger.Ledger, images *blob.Store, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: es, ledger: l, images: images, logger: logger}
}

// public strips organizer-only fields from an event.
func public(e model.Event) model.Event {
	e.FormCode = ""
	e.AlertEmail = ""
	return e
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	admin := auth.IsAdmin(r.Context())
	list, err := h.events.List(r.Context(), !admin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	out := make([]model.Event, 0, len(list))
	for _, e := range list {
		if !admin {
			e = public(e)
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns an event with its open items and progress. Hidden events are
// visible to admins only.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	ctx := r.Context()
	admin := auth.IsAdmin(ctx)

	e, err := h.events.Get(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if e == nil || (!e.Active && !admin) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	items, err := h.ledger.Items(ctx, id, !admin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	summary, err := h.ledger.FulfillmentSummary(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to summarize event")
		return
	}
	shelters, err := h.events.Shelters(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list shelters")
		return
	}
	if shelters == nil {
		shelters = []model.Shelter{}
	}

	if !admin {
		*e = public(*e)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event":    e,
		"items":    items,
		"summary":  summary,
		"shelters": shelters,
	})
}

type eventRequest struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	Summary          *string  `json:"summary"`
	EmailInfo        *string  `json:"email_info"`
	Active           *bool    `json:"active"`
	AdoptSignup      *bool    `json:"adopt_signup"`
	AllowKids        *bool    `json:"allow_kids"`
	AlertEmail       *string  `json:"alert_email"`
	AlertOnSignup    *bool    `json:"alert_on_signup"`
	AlertOnCancel    *bool    `json:"alert_on_cancel"`
	KidTitle         *string  `json:"kid_title"`
	KidNotes         *string  `json:"kid_notes"`
	KidEmailInfo     *string  `json:"kid_email_info"`
	KidCommentsLabel *string  `json:"kid_comments_label"`
	KidCommentsHelp  *string  `json:"kid_comments_help"`
	KidNeeded        *int     `json:"kid_needed"`
	ShelterIDs       *[]int64 `json:"shelter_ids"`
}

// patch lists only the fields present in the request.
func (req *eventRequest) patch() store.Patch {
	p := store.Patch{}
	setString := func(col string, v *string) {
		if v != nil {
			p[col] = *v
		}
	}
	setBool := func(col string, v *bool) {
		if v != nil {
			p[col] = *v
		}
	}
	setString("title", req.Title)
	setString("description", req.Description)
	setString("summary", req.Summary)
	setString("email_info", req.EmailInfo)
	setBool("active", req.Active)
	setBool("adopt_signup", req.AdoptSignup)
	setBool("allow_kids", req.AllowKids)
	setString("alert_email", req.AlertEmail)
	setBool("alert_on_signup", req.AlertOnSignup)
	setBool("alert_on_cancel", req.AlertOnCancel)
	setString("kid_title", req.KidTitle)
	setString("kid_notes", req.KidNotes)
	setString("kid_email_info", req.KidEmailInfo)
	setString("kid_comments_label", req.KidCommentsLabel)
	setString("kid_comments_help", req.KidCommentsHelp)
	if req.KidNeeded != nil {
		p["kid_needed"] = *req.KidNeeded
	}
	return p
}

func (req *eventRequest) event() *model.Event {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	flag := func(b *bool) bool { return b != nil && *b }
	e := &model.Event{
		Title:            deref(req.Title),
		Description:      deref(req.Description),
		Summary:          deref(req.Summary),
		EmailInfo:        deref(req.EmailInfo),
		Active:           flag(req.Active),
		AdoptSignup:      flag(req.AdoptSignup),
		AllowKids:        flag(req.AllowKids),
		AlertEmail:       deref(req.AlertEmail),
		AlertOnSignup:    flag(req.AlertOnSignup),
		AlertOnCancel:    flag(req.AlertOnCancel),
		KidTitle:         deref(req.KidTitle),
		KidNotes:         deref(req.KidNotes),
		KidEmailInfo:     deref(req.KidEmailInfo),
		KidCommentsLabel: deref(req.KidCommentsLabel),
		KidCommentsHelp:  deref(req.KidCommentsHelp),
		KidNeeded:        1,
	}
	if req.KidNeeded != nil {
		e.KidNeeded = *req.KidNeeded
	}
	return e
}

func (h *EventHandler) eventError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, events.ErrTitleRequired),
		errors.Is(err, events.ErrUnknownShelter),
		errors.Is(err, model.ErrAdoptNeedsShelter),
		errors.Is(err, model.ErrAlertNeedsEmail):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(action, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.KidNeeded != nil && *req.KidNeeded < 0 {
		writeError(w, http.StatusBadRequest, "kid_needed must not be negative")
		return
	}
	var shelterIDs []int64
	if req.ShelterIDs != nil {
		shelterIDs = *req.ShelterIDs
	}

	e, err := h.events.Create(r.Context(), req.event(), shelterIDs)
	if err != nil {
		h.eventError(w, err, "create event")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.KidNeeded != nil && *req.KidNeeded < 0 {
		writeError(w, http.StatusBadRequest, "kid_needed must not be negative")
		return
	}
	var shelterIDs []int64
	if req.ShelterIDs != nil {
		shelterIDs = *req.ShelterIDs
		if shelterIDs == nil {
			shelterIDs = []int64{}
		}
	}

	e, err := h.events.Update(r.Context(), id, req.patch(), shelterIDs)
	if err != nil {
		h.eventError(w, err, "update event")
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if err := h.events.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete event", "event_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) RotateFormCode(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	e, err := h.events.RotateFormCode(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to rotate form code")
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"form_code": e.FormCode})
}

// UploadImage stores the multipart "image" field and points the event at it.
func (h *EventHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if !h.images.Configured() {
		writeError(w, http.StatusServiceUnavailable, "image storage not configured")
		return
	}
	ctx := r.Context()
	e, err := h.events.Get(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	url, err := h.images.PutEventImage(ctx, id, header.Header.Get("Content-Type"), file)
	if errors.Is(err, blob.ErrUnsupportedImage) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("upload event image", "event_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "failed to store image")
		return
	}

	updated, err := h.events.SetImage(ctx, id, url)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}
	if e.Image != "" {
		if err := h.images.Delete(ctx, e.Image); err != nil {
			h.logger.Warn("delete old event image", "event_id", id, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *EventHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	sum, err := h.ledger.FulfillmentSummary(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to summarize event")
		return
	}
	if sum == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type itemRequest struct {
	Title     *string    `json:"title"`
	Notes     *string    `json:"notes"`
	EmailInfo *string    `json:"email_info"`
	Needed    *int       `json:"needed"`
	Active    *bool      `json:"active"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

func (h *EventHandler) itemError(w http.ResponseWriter, err error, action string) {
	if errors.Is(err, ledger.ErrTitleRequired) || errors.Is(err, ledger.ErrInvalidNeeded) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error(action, "error", err)
	writeError(w, http.StatusInternalServerError, "failed to "+action)
}

func (h *EventHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.events.Get(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	it := &model.Item{EventID: eventID, Active: true, StartTime: req.StartTime, EndTime: req.EndTime}
	if req.Title != nil {
		it.Title = *req.Title
	}
	if req.Notes != nil {
		it.Notes = *req.Notes
	}
	if req.EmailInfo != nil {
		it.EmailInfo = *req.EmailInfo
	}
	if req.Needed != nil {
		it.Needed = *req.Needed
	}
	if req.Active != nil {
		it.Active = *req.Active
	}

	created, err := h.ledger.CreateItem(r.Context(), it)
	if err != nil {
		h.itemError(w, err, "create item")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *EventHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := store.Patch{}
	if req.Title != nil {
		p["title"] = *req.Title
	}
	if req.Notes != nil {
		p["notes"] = *req.Notes
	}
	if req.EmailInfo != nil {
		p["email_info"] = *req.EmailInfo
	}
	if req.Needed != nil {
		p["needed"] = *req.Needed
	}
	if req.Active != nil {
		p["active"] = *req.Active
	}
	if req.StartTime != nil {
		p["start_time"] = *req.StartTime
	}
	if req.EndTime != nil {
		p["end_time"] = *req.EndTime
	}

	it, err := h.ledger.UpdateItem(r.Context(), id, p)
	if err != nil {
		h.itemError(w, err, "update item")
		return
	}
	if it == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// RetireItem deletes an unused item or deactivates one with history.
func (h *EventHandler) RetireItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	it, err := h.ledger.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if it == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	deleted, err := h.ledger.RetireItem(r.Context(), id)
	if err != nil {
		h.logger.Error("retire item", "item_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to retire item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}
