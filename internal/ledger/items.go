package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/dukerupert/signups/internal/model"
	"github.com/dukerupert/signups/internal/store"
)

var (
	ErrInvalidNeeded = errors.New("needed must not be negative")
	ErrTitleRequired = errors.New("item title is required")
)

func (l *Ledger) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return l.items.GetByID(ctx, id)
}

func (l *Ledger) Items(ctx context.Context, eventID int64, activeOnly bool) ([]model.Item, error) {
	return l.items.ListByEvent(ctx, eventID, activeOnly)
}

// CreateItem adds an item under an event.
func (l *Ledger) CreateItem(ctx context.Context, it *model.Item) (*model.Item, error) {
	it.Title = strings.TrimSpace(it.Title)
	if it.Title == "" {
		return nil, ErrTitleRequired
	}
	if it.Needed < 0 {
		return nil, ErrInvalidNeeded
	}
	created, err := l.items.Create(ctx, it)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("item created", "item_id", created.ID, "event_id", created.EventID)
	return created, nil
}

// UpdateItem patches an item's editable fields.
func (l *Ledger) UpdateItem(ctx context.Context, id int64, p store.Patch) (*model.Item, error) {
	if v, ok := p["needed"]; ok {
		if n, ok := v.(int); ok && n < 0 {
			return nil, ErrInvalidNeeded
		}
	}
	if v, ok := p["title"]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil, ErrTitleRequired
		}
	}
	return l.items.Update(ctx, id, p)
}

// DeleteItem removes an item and, through the schema, its signups.
func (l *Ledger) DeleteItem(ctx context.Context, id int64) error {
	return l.items.Delete(ctx, id)
}

func (l *Ledger) SetItemActive(ctx context.Context, id int64, active bool) (*model.Item, error) {
	return l.items.Update(ctx, id, store.Patch{"active": active})
}

// RetireItem deletes an item nobody has signed up for. Items with signup
// history, or that belong to a kid, are deactivated instead so the history
// survives. It reports whether the row was deleted.
func (l *Ledger) RetireItem(ctx context.Context, id int64) (bool, error) {
	n, err := l.items.SignupCount(ctx, id)
	if err != nil {
		return false, err
	}
	kidItem, err := l.items.IsKidItem(ctx, id)
	if err != nil {
		return false, err
	}
	if n > 0 || kidItem {
		if _, err := l.SetItemActive(ctx, id, false); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := l.items.Delete(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}
