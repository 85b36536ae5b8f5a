// Package events manages campaigns: their settings, shelter lists and the
// cross-field rules that tie the two together.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/signups/internal/codegen"
	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
	"github.com/dukerupert/signups/internal/shelter"
	"github.com/dukerupert/signups/internal/store"
)

var (
	ErrTitleRequired  = errors.New("event title is required")
	ErrUnknownShelter = errors.New("unknown shelter")
)

type Service struct {
	db       *database.DB
	events   *store.EventStore
	shelters *shelter.Allocator
	logger   *slog.Logger
}

func NewService(db *database.DB, shelters *shelter.Allocator, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		events:   store.NewEventStore(db),
		shelters: shelters,
		logger:   logger.With("component", "events"),
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]model.Event, error) {
	return s.events.List(ctx, activeOnly)
}

func (s *Service) Shelters(ctx context.Context, eventID int64) ([]model.Shelter, error) {
	return s.shelters.ForEvent(ctx, eventID)
}

// Create stores a new event with its shelters. An event without a form
// code gets a fresh one.
func (s *Service) Create(ctx context.Context, e *model.Event, shelterIDs []int64) (*model.Event, error) {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return nil, ErrTitleRequired
	}
	shelterIDs = dedupe(shelterIDs)
	if err := s.checkShelters(ctx, shelterIDs); err != nil {
		return nil, err
	}
	if err := e.Validate(len(shelterIDs)); err != nil {
		return nil, err
	}
	if e.FormCode == "" {
		e.FormCode = codegen.FormCode()
	}

	var created *model.Event
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		created, err = store.NewEventStore(tx).Create(ctx, e)
		if err != nil {
			return err
		}
		return store.NewShelterStore(tx).SetEventShelters(ctx, created.ID, shelterIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event created", "event_id", created.ID, "shelters", len(shelterIDs))
	return created, nil
}

// Update applies p and, when shelterIDs is non-nil, replaces the shelter
// list. The rules are checked against the event as it will be after the
// change. A missing event yields nil.
func (s *Service) Update(ctx context.Context, id int64, p store.Patch, shelterIDs []int64) (*model.Event, error) {
	existing, err := s.events.GetByID(ctx, id)
	if err != nil || existing == nil {
		return nil, err
	}
	if v, ok := p["title"].(string); ok && strings.TrimSpace(v) == "" {
		return nil, ErrTitleRequired
	}

	var count int
	if shelterIDs != nil {
		shelterIDs = dedupe(shelterIDs)
		if err := s.checkShelters(ctx, shelterIDs); err != nil {
			return nil, err
		}
		count = len(shelterIDs)
	} else {
		current, err := s.shelters.ForEvent(ctx, id)
		if err != nil {
			return nil, err
		}
		count = len(current)
	}
	merged := apply(*existing, p)
	if err := merged.Validate(count); err != nil {
		return nil, err
	}

	var updated *model.Event
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		updated, err = store.NewEventStore(tx).Update(ctx, id, p)
		if err != nil {
			return err
		}
		if shelterIDs == nil {
			return nil
		}
		return store.NewShelterStore(tx).SetEventShelters(ctx, id, shelterIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

// RotateFormCode invalidates the public kid form link.
func (s *Service) RotateFormCode(ctx context.Context, id int64) (*model.Event, error) {
	return s.events.Update(ctx, id, store.Patch{"form_code": codegen.FormCode()})
}

func (s *Service) SetImage(ctx context.Context, id int64, url string) (*model.Event, error) {
	return s.events.Update(ctx, id, store.Patch{"image": url})
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.events.Delete(ctx, id)
}

func (s *Service) checkShelters(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	all, err := s.shelters.List(ctx)
	if err != nil {
		return err
	}
	known := make(map[int64]bool, len(all))
	for _, sh := range all {
		known[sh.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return fmt.Errorf("%w: %d", ErrUnknownShelter, id)
		}
	}
	return nil
}

// apply copies the rule-relevant fields of p onto e.
func apply(e model.Event, p store.Patch) model.Event {
	if v, ok := p["adopt_signup"].(bool); ok {
		e.AdoptSignup = v
	}
	if v, ok := p["alert_on_signup"].(bool); ok {
		e.AlertOnSignup = v
	}
	if v, ok := p["alert_on_cancel"].(bool); ok {
		e.AlertOnCancel = v
	}
	if v, ok := p["alert_email"].(string); ok {
		e.AlertEmail = v
	}
	return e
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
