package store

import (
	"context"
	"testing"

	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestEvent(t *testing.T, db *database.DB) *model.Event {
	t.Helper()
	e, err := NewEventStore(db).Create(context.Background(), &model.Event{
		Title:    "Winter Drive",
		Active:   true,
		FormCode: "form-code",
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

func createTestItem(t *testing.T, db *database.DB, eventID int64, needed int) *model.Item {
	t.Helper()
	it, err := NewItemStore(db).Create(context.Background(), &model.Item{
		EventID: eventID,
		Title:   "Coats",
		Needed:  needed,
		Active:  true,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return it
}

func createTestUser(t *testing.T, db *database.DB, email string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(context.Background(), "Alice", email, "", "magic-"+email)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}
