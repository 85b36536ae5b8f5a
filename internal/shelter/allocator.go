package shelter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
	"github.com/dukerupert/signups/internal/store"
)

var (
	ErrEmptyName    = errors.New("shelter name is required")
	ErrShelterInUse = errors.New("shelter is the only one left on an adopt-signup event")
)

// Allocator creates shelters with stable codes and serves the shelter list
// from a read-through cache that is dropped on every write.
type Allocator struct {
	db     *database.DB
	store  *store.ShelterStore
	logger *slog.Logger

	mu         sync.RWMutex
	loaded     bool
	generation uint64
	list       []model.Shelter
	byID       map[int64]model.Shelter
}

func NewAllocator(db *database.DB, logger *slog.Logger) *Allocator {
	return &Allocator{
		db:     db,
		store:  store.NewShelterStore(db),
		logger: logger.With("component", "shelters"),
	}
}

// Create inserts shelters in one transaction, giving each the next free code.
func (a *Allocator) Create(ctx context.Context, names ...string) ([]model.Shelter, error) {
	trimmed := make([]string, len(names))
	for i, n := range names {
		trimmed[i] = strings.TrimSpace(n)
		if trimmed[i] == "" {
			return nil, ErrEmptyName
		}
	}

	var created []model.Shelter
	err := a.db.WithTx(ctx, func(tx *database.Tx) error {
		ss := store.NewShelterStore(tx)
		if err := ss.Lock(ctx); err != nil {
			return err
		}
		codes, err := ss.Codes(ctx)
		if err != nil {
			return err
		}
		for _, name := range trimmed {
			code := NextCode(codes)
			sh, err := ss.Insert(ctx, name, code)
			if err != nil {
				return err
			}
			codes = append(codes, code)
			created = append(created, *sh)
		}
		return nil
	})
	a.Invalidate()
	if err != nil {
		return nil, fmt.Errorf("create shelters: %w", err)
	}

	for _, sh := range created {
		a.logger.Info("shelter created", "shelter_id", sh.ID, "code", sh.Code)
	}
	return created, nil
}

// Delete removes a shelter. Its code is never handed out again. A shelter
// that is the last one linked to an adopt-signup event is kept and
// ErrShelterInUse is returned.
func (a *Allocator) Delete(ctx context.Context, id int64) error {
	err := a.db.WithTx(ctx, func(tx *database.Tx) error {
		ss := store.NewShelterStore(tx)
		n, err := ss.SoleAdoptShelterCount(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrShelterInUse
		}
		return ss.Delete(ctx, id)
	})
	a.Invalidate()
	if err != nil {
		return fmt.Errorf("delete shelter: %w", err)
	}
	a.logger.Info("shelter deleted", "shelter_id", id)
	return nil
}

// SetEventShelters replaces an event's shelter list atomically.
func (a *Allocator) SetEventShelters(ctx context.Context, eventID int64, shelterIDs []int64) error {
	err := a.db.WithTx(ctx, func(tx *database.Tx) error {
		return store.NewShelterStore(tx).SetEventShelters(ctx, eventID, shelterIDs)
	})
	if err != nil {
		return fmt.Errorf("set event shelters: %w", err)
	}
	return nil
}

// ForEvent lists the shelters associated with an event.
func (a *Allocator) ForEvent(ctx context.Context, eventID int64) ([]model.Shelter, error) {
	return a.store.ListByEvent(ctx, eventID)
}

// List returns all shelters, loading them on first use after an invalidation.
func (a *Allocator) List(ctx context.Context) ([]model.Shelter, error) {
	list, _, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Shelter, len(list))
	copy(out, list)
	return out, nil
}

// Label returns the display code for a shelter id. Unknown ids fall back to
// the code the id itself would render to.
func (a *Allocator) Label(ctx context.Context, shelterID int64) (string, error) {
	_, byID, err := a.snapshot(ctx)
	if err != nil {
		return "", err
	}
	if sh, ok := byID[shelterID]; ok && sh.Code != "" {
		return sh.Code, nil
	}
	return Code(int(shelterID)), nil
}

// Invalidate drops the cached shelter list.
func (a *Allocator) Invalidate() {
	a.mu.Lock()
	a.loaded = false
	a.list = nil
	a.byID = nil
	a.generation++
	a.mu.Unlock()
}

func (a *Allocator) snapshot(ctx context.Context) ([]model.Shelter, map[int64]model.Shelter, error) {
	a.mu.RLock()
	if a.loaded {
		list, byID := a.list, a.byID
		a.mu.RUnlock()
		return list, byID, nil
	}
	gen := a.generation
	a.mu.RUnlock()

	list, err := a.store.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]model.Shelter, len(list))
	for _, sh := range list {
		byID[sh.ID] = sh
	}

	a.mu.Lock()
	// A write that landed mid-load leaves the cache empty for the next reader.
	if a.generation == gen {
		a.list = list
		a.byID = byID
		a.loaded = true
	}
	a.mu.Unlock()
	return list, byID, nil
}
