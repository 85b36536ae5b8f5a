package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/signups/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, eventID int64) *Client {
	return &Client{
		hub:     hub,
		send:    make(chan []byte, sendBufferSize),
		eventID: eventID,
	}
}

func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got, true
	case <-time.After(50 * time.Millisecond):
		return Message{}, false
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(testLogger())

	c1 := mockClient(hub, 0)
	c2 := mockClient(hub, 0)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}
	hub.Unregister(c2)
}

func TestBroadcastSignupCreated(t *testing.T) {
	hub := NewHub(testLogger())
	c := mockClient(hub, 0)
	hub.Register(c)
	defer hub.Unregister(c)

	hub.Broadcast(SignupCreated(3, &model.Signup{ID: 42, ItemID: 7, Quantity: 2}))

	got, ok := receive(t, c)
	if !ok {
		t.Fatal("timeout waiting for message")
	}
	if got.Type != "signup_created" {
		t.Errorf("type = %q, want signup_created", got.Type)
	}
	if got.ID != 42 || got.EventID != 3 {
		t.Errorf("id = %d event = %d", got.ID, got.EventID)
	}
	if got.Extra["quantity"] != float64(2) {
		t.Errorf("quantity = %v", got.Extra["quantity"])
	}
}

func TestBroadcastFiltersByEvent(t *testing.T) {
	hub := NewHub(testLogger())
	all := mockClient(hub, 0)
	ev1 := mockClient(hub, 1)
	ev2 := mockClient(hub, 2)
	for _, c := range []*Client{all, ev1, ev2} {
		hub.Register(c)
		defer hub.Unregister(c)
	}

	hub.Broadcast(KidApproved(1, 9, 30))

	if _, ok := receive(t, all); !ok {
		t.Error("unfiltered client should receive")
	}
	if got, ok := receive(t, ev1); !ok || got.Type != "kid_approved" {
		t.Errorf("event 1 client got %+v, %v", got, ok)
	}
	if _, ok := receive(t, ev2); ok {
		t.Error("event 2 client should not receive event 1 updates")
	}

	hub.Broadcast(ShelterCreated(model.Shelter{ID: 4, Code: "D", Name: "Harbor"}))
	if got, ok := receive(t, ev2); !ok || got.Type != "shelter_created" {
		t.Errorf("global message should reach every client, got %+v, %v", got, ok)
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(testLogger())
	c := mockClient(hub, 0)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("test", "fill", int64(i), 0, nil))
	}
	hub.Broadcast(NewMessage("test", "dropped", 999, 0, nil))

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered %d messages, want %d", got, sendBufferSize)
	}
	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(testLogger())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, int64(i%3))
			hub.Register(c)
			hub.Broadcast(NewMessage("test", "concurrent", 0, int64(i%3), nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
