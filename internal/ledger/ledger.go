// Package ledger records pledges against items: idempotent signup creation,
// soft cancellation and fulfillment accounting. It also owns item writes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
	"github.com/dukerupert/signups/internal/store"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrItemClosed      = errors.New("item is not accepting signups")
	ErrTokenConflict   = errors.New("submission token was used by another user")
)

type Ledger struct {
	events  *store.EventStore
	items   *store.ItemStore
	signups *store.SignupStore
	users   *store.UserStore
	kids    *store.KidStore
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Ledger)

// WithClock overrides the time source for created_at and canceled_at stamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(db database.Querier, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{logger: logger.With("component", "ledger"), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	l.bind(db)
	return l
}

func (l *Ledger) bind(db database.Querier) {
	l.events = store.NewEventStore(db)
	l.items = store.NewItemStore(db)
	l.signups = store.NewSignupStore(db)
	l.users = store.NewUserStore(db)
	l.kids = store.NewKidStore(db)
}

// WithTx returns a copy of the ledger whose reads and writes go through tx.
func (l *Ledger) WithTx(tx *database.Tx) *Ledger {
	cp := *l
	cp.bind(tx)
	return &cp
}

// SignupRequest is a pledge of Quantity units of an item. SubmissionToken is
// minted by the client once per form and resent verbatim on retry.
type SignupRequest struct {
	ItemID          int64
	UserID          int64
	Quantity        int
	Comment         string
	SubmissionToken string
}

// Receipt is the outcome of CreateSignup. Replayed is set when the token had
// already been recorded and Signup is that earlier row.
type Receipt struct {
	Signup   *model.Signup
	Item     *model.Item
	Replayed bool
}

// CreateSignup records a signup at most once per submission token. A repeated
// token returns the stored signup with its original quantity and comment.
// Unknown items or users yield a nil receipt.
func (l *Ledger) CreateSignup(ctx context.Context, req SignupRequest) (*Receipt, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	req.SubmissionToken = strings.TrimSpace(req.SubmissionToken)
	if req.SubmissionToken == "" {
		req.SubmissionToken = uuid.NewString()
	}

	item, err := l.items.GetByID(ctx, req.ItemID)
	if err != nil || item == nil {
		return nil, err
	}
	user, err := l.users.GetByID(ctx, req.UserID)
	if err != nil || user == nil {
		return nil, err
	}
	if !item.Active {
		// A retry of a signup made before the item closed still gets its receipt.
		existing, err := l.replay(ctx, req)
		if err != nil || existing != nil {
			return existing, err
		}
		return nil, ErrItemClosed
	}

	sg, err := l.signups.Create(ctx, &model.Signup{
		ItemID:          req.ItemID,
		UserID:          req.UserID,
		Quantity:        req.Quantity,
		Comment:         strings.TrimSpace(req.Comment),
		SubmissionToken: req.SubmissionToken,
		CreatedAt:       l.now(),
	})
	if err != nil {
		if !database.IsUniqueViolation(err, "signups", "submission_token") {
			return nil, err
		}
		existing, rerr := l.replay(ctx, req)
		if rerr != nil {
			return nil, rerr
		}
		if existing == nil {
			return nil, fmt.Errorf("signup for token vanished after conflict: %w", err)
		}
		return existing, nil
	}

	l.logger.Info("signup created", "signup_id", sg.ID, "item_id", sg.ItemID, "user_id", sg.UserID, "quantity", sg.Quantity)
	return &Receipt{Signup: sg, Item: item}, nil
}

func (l *Ledger) replay(ctx context.Context, req SignupRequest) (*Receipt, error) {
	existing, err := l.signups.GetByToken(ctx, req.SubmissionToken)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.UserID != req.UserID {
		return nil, ErrTokenConflict
	}
	item, err := l.items.GetByID(ctx, existing.ItemID)
	if err != nil {
		return nil, err
	}
	l.logger.Info("signup replayed", "signup_id", existing.ID, "user_id", existing.UserID)
	return &Receipt{Signup: existing, Item: item, Replayed: true}, nil
}

// CancelSignup soft-deletes a signup. It reports true only for the call that
// actually canceled it; unknown or already canceled signups are a no-op.
func (l *Ledger) CancelSignup(ctx context.Context, signupID int64) (bool, error) {
	canceled, err := l.signups.Cancel(ctx, signupID, l.now())
	if err != nil {
		return false, err
	}
	if canceled {
		l.logger.Info("signup canceled", "signup_id", signupID)
	}
	return canceled, nil
}

func (l *Ledger) GetSignup(ctx context.Context, signupID int64) (*model.Signup, error) {
	return l.signups.GetByID(ctx, signupID)
}

// SignupsForUser splits a user's active signups into those on events still
// running and those on events that have closed.
func (l *Ledger) SignupsForUser(ctx context.Context, userID int64) (current, past []model.SignupDetail, err error) {
	all, err := l.signups.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	for _, d := range all {
		if d.EventActive {
			current = append(current, d)
		} else {
			past = append(past, d)
		}
	}
	return current, past, nil
}

// SignupsForEvent lists every signup on an event, canceled ones included.
func (l *Ledger) SignupsForEvent(ctx context.Context, eventID int64) ([]model.SignupDetail, error) {
	return l.signups.ListByEvent(ctx, eventID)
}
