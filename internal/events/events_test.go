package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
	"github.com/dukerupert/signups/internal/shelter"
	"github.com/dukerupert/signups/internal/store"
)

func setupService(t *testing.T) (*Service, []model.Shelter) {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	alloc := shelter.NewAllocator(db, logger)
	shelters, err := alloc.Create(context.Background(), "North", "South")
	if err != nil {
		t.Fatalf("create shelters: %v", err)
	}
	return NewService(db, alloc, logger), shelters
}

func TestCreateAssignsFormCodeAndShelters(t *testing.T) {
	svc, shelters := setupService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, &model.Event{Title: " Holiday Drive ", AdoptSignup: true},
		[]int64{shelters[0].ID, shelters[1].ID, shelters[0].ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Title != "Holiday Drive" {
		t.Errorf("title = %q", e.Title)
	}
	if e.FormCode == "" {
		t.Error("expected a generated form code")
	}
	got, err := svc.Shelters(ctx, e.ID)
	if err != nil {
		t.Fatalf("shelters: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("shelters = %d, want 2", len(got))
	}
}

func TestCreateValidation(t *testing.T) {
	svc, shelters := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		event   model.Event
		ids     []int64
		wantErr error
	}{
		{"no title", model.Event{Title: "  "}, nil, ErrTitleRequired},
		{"adopt without shelter", model.Event{Title: "A", AdoptSignup: true}, nil, model.ErrAdoptNeedsShelter},
		{"alert without email", model.Event{Title: "A", AlertOnSignup: true}, nil, model.ErrAlertNeedsEmail},
		{"cancel alert without email", model.Event{Title: "A", AlertOnCancel: true}, nil, model.ErrAlertNeedsEmail},
		{"unknown shelter", model.Event{Title: "A"}, []int64{shelters[1].ID + 100}, ErrUnknownShelter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.event
			if _, err := svc.Create(ctx, &e, tt.ids); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	list, err := svc.List(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("rejected events were stored: %d", len(list))
	}
}

func TestUpdateChecksMergedEvent(t *testing.T) {
	svc, shelters := setupService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, &model.Event{Title: "Drive", AdoptSignup: true}, []int64{shelters[0].ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Keeping the existing shelter list satisfies the adopt rule.
	if _, err := svc.Update(ctx, e.ID, store.Patch{"summary": "new"}, nil); err != nil {
		t.Fatalf("update summary: %v", err)
	}

	// Emptying it does not.
	if _, err := svc.Update(ctx, e.ID, store.Patch{}, []int64{}); !errors.Is(err, model.ErrAdoptNeedsShelter) {
		t.Errorf("err = %v, want ErrAdoptNeedsShelter", err)
	}

	// Turning adoption off in the same change makes it legal.
	updated, err := svc.Update(ctx, e.ID, store.Patch{"adopt_signup": false}, []int64{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.AdoptSignup {
		t.Error("adopt_signup should be false")
	}

	if _, err := svc.Update(ctx, e.ID, store.Patch{"alert_on_signup": true}, nil); !errors.Is(err, model.ErrAlertNeedsEmail) {
		t.Errorf("err = %v, want ErrAlertNeedsEmail", err)
	}
	updated, err = svc.Update(ctx, e.ID, store.Patch{"alert_on_signup": true, "alert_email": "org@example.com"}, nil)
	if err != nil {
		t.Fatalf("update alerts: %v", err)
	}
	if !updated.AlertOnSignup || updated.AlertEmail != "org@example.com" {
		t.Errorf("event = %+v", updated)
	}
}

func TestUpdateMissing(t *testing.T) {
	svc, _ := setupService(t)
	e, err := svc.Update(context.Background(), 999, store.Patch{"title": "x"}, nil)
	if err != nil || e != nil {
		t.Errorf("got %v, %v; want nil, nil", e, err)
	}
}

func TestRotateFormCode(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, &model.Event{Title: "Drive", AllowKids: true}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rotated, err := svc.RotateFormCode(ctx, e.ID)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.FormCode == "" || rotated.FormCode == e.FormCode {
		t.Errorf("form code not rotated: %q -> %q", e.FormCode, rotated.FormCode)
	}
}
