package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/signups/internal/kids"
	"github.com/dukerupert/signups/internal/model"
	"github.com/dukerupert/signups/internal/store"
	"github.com/dukerupert/signups/internal/websocket"
)

type KidHandler struct {
	pipeline *kids.Pipeline
	hub      Broadcaster
	logger   *slog.Logger
}

func NewKidHandler(p *kids.Pipeline, hub Broadcaster, logger *slog.Logger) *KidHandler {
	return &KidHandler{pipeline: p, hub: hub, logger: logger}
}

type kidRequest struct {
	ShelterID     *int64  `json:"shelter_id"`
	Name          *string `json:"name"`
	Age           *int    `json:"age"`
	Gender        *string `json:"gender"`
	ShirtSize     *string `json:"shirt_size"`
	PantSize      *string `json:"pant_size"`
	Color         *string `json:"color"`
	Comments      *string `json:"comments"`
	InternalNotes *string `json:"internal_notes"`
	ContactName   *string `json:"contact_name"`
	ContactEmail  *string `json:"contact_email"`
	ContactPhone  *string `json:"contact_phone"`
}

func (req *kidRequest) input() kids.Input {
	s := func(v *string) string {
		if v == nil {
			return ""
		}
		return *v
	}
	in := kids.Input{
		Name:          s(req.Name),
		Gender:        s(req.Gender),
		ShirtSize:     s(req.ShirtSize),
		PantSize:      s(req.PantSize),
		Color:         s(req.Color),
		Comments:      s(req.Comments),
		InternalNotes: s(req.InternalNotes),
		ContactName:   s(req.ContactName),
		ContactEmail:  s(req.ContactEmail),
		ContactPhone:  s(req.ContactPhone),
	}
	if req.ShelterID != nil {
		in.ShelterID = *req.ShelterID
	}
	if req.Age != nil {
		in.Age = *req.Age
	}
	return in
}

func (req *kidRequest) patch() store.Patch {
	p := store.Patch{}
	if req.ShelterID != nil {
		p["shelter_id"] = *req.ShelterID
	}
	if req.Age != nil {
		p["age"] = *req.Age
	}
	for col, v := range map[string]*string{
		"name": req.Name, "gender": req.Gender, "shirt_size": req.ShirtSize,
		"pant_size": req.PantSize, "color": req.Color, "comments": req.Comments,
		"internal_notes": req.InternalNotes, "contact_name": req.ContactName,
		"contact_email": req.ContactEmail, "contact_phone": req.ContactPhone,
	} {
		if v != nil {
			p[col] = *v
		}
	}
	return p
}

func (h *KidHandler) kidError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, kids.ErrKidsClosed):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, kids.ErrInvalidFormCode):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, kids.ErrUnknownShelter), errors.Is(err, kids.ErrInvalidAge):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(action, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// Intake is the public kid form. The form code travels as ?code=.
func (h *KidHandler) Intake(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var req kidRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	kid, err := h.pipeline.Intake(r.Context(), eventID, r.URL.Query().Get("code"), req.input())
	if err != nil {
		h.kidError(w, err, "submit kid")
		return
	}
	if kid == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	broadcast(h.hub, websocket.KidSubmitted(eventID, kid.ID))
	writeJSON(w, http.StatusCreated, map[string]int64{"id": kid.ID})
}

func (h *KidHandler) Add(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var req kidRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kid, err := h.pipeline.Add(r.Context(), eventID, req.input())
	if err != nil {
		h.kidError(w, err, "add kid")
		return
	}
	broadcast(h.hub, websocket.KidSubmitted(eventID, kid.ID))
	writeJSON(w, http.StatusCreated, kid)
}

// List returns an event's kids; ?pending=true narrows to unapproved ones.
func (h *KidHandler) List(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	list, err := h.pipeline.ForEvent(r.Context(), eventID, r.URL.Query().Get("pending") == "true")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list kids")
		return
	}
	if list == nil {
		list = []model.Kid{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *KidHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kid id")
		return
	}
	kid, err := h.pipeline.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get kid")
		return
	}
	if kid == nil {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}
	writeJSON(w, http.StatusOK, kid)
}

func (h *KidHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kid id")
		return
	}
	ctx := r.Context()
	kid, err := h.pipeline.Get(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get kid")
		return
	}
	if kid == nil {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}

	itemID, err := h.pipeline.Approve(ctx, id)
	if err != nil {
		h.kidError(w, err, "approve kid")
		return
	}
	broadcast(h.hub, websocket.KidApproved(kid.EventID, id, itemID))
	writeJSON(w, http.StatusOK, map[string]int64{"item_id": itemID})
}

func (h *KidHandler) ApproveAll(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	itemIDs, err := h.pipeline.ApproveAll(r.Context(), eventID)
	if err != nil {
		h.kidError(w, err, "approve kids")
		return
	}
	if len(itemIDs) > 0 {
		broadcast(h.hub, websocket.NewMessage("kid", "approved_all", 0, eventID, map[string]any{"count": len(itemIDs)}))
	}
	writeJSON(w, http.StatusOK, map[string]any{"item_ids": itemIDs})
}

func (h *KidHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kid id")
		return
	}
	var req kidRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kid, err := h.pipeline.Update(r.Context(), id, req.patch())
	if err != nil {
		h.kidError(w, err, "update kid")
		return
	}
	if kid == nil {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}
	writeJSON(w, http.StatusOK, kid)
}

func (h *KidHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kid id")
		return
	}
	found, err := h.pipeline.Delete(r.Context(), id)
	if err != nil {
		h.kidError(w, err, "delete kid")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
