package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/signups/internal/model"
	"github.com/dukerupert/signups/internal/shelter"
	"github.com/dukerupert/signups/internal/websocket"
)

type ShelterHandler struct {
	shelters *shelter.Allocator
	hub      Broadcaster
	logger   *slog.Logger
}

func NewShelterHandler(a *shelter.Allocator, hub Broadcaster, logger *slog.Logger) *ShelterHandler {
	return &ShelterHandler{shelters: a, hub: hub, logger: logger}
}

func (h *ShelterHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.shelters.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list shelters")
		return
	}
	if list == nil {
		list = []model.Shelter{}
	}
	writeJSON(w, http.StatusOK, list)
}

type shelterRequest struct {
	Names []string `json:"names"`
}

// Create adds one or more shelters, each getting the next free code.
func (h *ShelterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req shelterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Names) == 0 {
		writeError(w, http.StatusBadRequest, "names are required")
		return
	}

	created, err := h.shelters.Create(r.Context(), req.Names...)
	if errors.Is(err, shelter.ErrEmptyName) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("create shelters", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create shelters")
		return
	}
	for _, sh := range created {
		broadcast(h.hub, websocket.ShelterCreated(sh))
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ShelterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shelter id")
		return
	}
	err = h.shelters.Delete(r.Context(), id)
	if errors.Is(err, shelter.ErrShelterInUse) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("delete shelter", "shelter_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete shelter")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
