package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/signups/internal/model"
)

// Message is a live update pushed to admin dashboards.
type Message struct {
	Type    string         `json:"type"`
	Entity  string         `json:"entity"`
	Action  string         `json:"action"`
	ID      int64          `json:"id,omitempty"`
	EventID int64          `json:"event_id,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id, eventID int64, extra map[string]any) Message {
	return Message{
		Type:    fmt.Sprintf("%s_%s", entity, action),
		Entity:  entity,
		Action:  action,
		ID:      id,
		EventID: eventID,
		Extra:   extra,
	}
}

func SignupCreated(eventID int64, s *model.Signup) Message {
	return NewMessage("signup", "created", s.ID, eventID, map[string]any{
		"item_id":  s.ItemID,
		"quantity": s.Quantity,
	})
}

func SignupCanceled(eventID int64, s *model.Signup) Message {
	return NewMessage("signup", "canceled", s.ID, eventID, map[string]any{
		"item_id":  s.ItemID,
		"quantity": s.Quantity,
	})
}

func KidApproved(eventID, kidID, itemID int64) Message {
	return NewMessage("kid", "approved", kidID, eventID, map[string]any{"item_id": itemID})
}

func KidSubmitted(eventID, kidID int64) Message {
	return NewMessage("kid", "submitted", kidID, eventID, nil)
}

func ShelterCreated(sh model.Shelter) Message {
	return NewMessage("shelter", "created", sh.ID, 0, map[string]any{"code": sh.Code, "name": sh.Name})
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends msg to every client watching its event. Messages with no
// event go to everyone. Slow clients drop messages rather than block.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if msg.EventID != 0 && !c.wants(msg) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Debug("dropped message for slow client", "type", msg.Type)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
