// Package kids runs the sponsorship workflow: public intake of kids and their
// approval into reservable items.
package kids

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/ledger"
	"github.com/dukerupert/signups/internal/model"
	"github.com/dukerupert/signups/internal/shelter"
	"github.com/dukerupert/signups/internal/store"
)

var (
	ErrKidsClosed      = errors.New("event is not accepting kids")
	ErrInvalidFormCode = errors.New("invalid form code")
	ErrUnknownShelter  = errors.New("shelter is not part of this event")
	ErrInvalidAge      = errors.New("age must not be negative")

	errAlreadyApproved = errors.New("kid already approved")
)

const (
	defaultKidTitle = "{{shelter}}-{{id}}: {{age}} year old {{gender}}"
	defaultKidNotes = "Shirt: {{shirt_size}}, Pants: {{pant_size}}, Favorite color: {{color}}. {{comments}}"
)

// Input is the profile submitted for a kid.
type Input struct {
	ShelterID     int64
	Name          string
	Age           int
	Gender        string
	ShirtSize     string
	PantSize      string
	Color         string
	Comments      string
	InternalNotes string
	ContactName   string
	ContactEmail  string
	ContactPhone  string
}

type Pipeline struct {
	db       *database.DB
	events   *store.EventStore
	kids     *store.KidStore
	ledger   *ledger.Ledger
	shelters *shelter.Allocator
	logger   *slog.Logger
}

func NewPipeline(db *database.DB, l *ledger.Ledger, shelters *shelter.Allocator, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		db:       db,
		events:   store.NewEventStore(db),
		kids:     store.NewKidStore(db),
		ledger:   l,
		shelters: shelters,
		logger:   logger.With("component", "kids"),
	}
}

// Intake records a pending kid from the public form. The event must allow
// kids and formCode must match the event's code. A missing event yields nil.
func (p *Pipeline) Intake(ctx context.Context, eventID int64, formCode string, in Input) (*model.Kid, error) {
	event, err := p.events.GetByID(ctx, eventID)
	if err != nil || event == nil {
		return nil, err
	}
	if !event.AllowKids {
		return nil, ErrKidsClosed
	}
	if subtle.ConstantTimeCompare([]byte(event.FormCode), []byte(formCode)) != 1 {
		return nil, ErrInvalidFormCode
	}
	return p.Add(ctx, eventID, in)
}

// Add records a pending kid on behalf of an organizer.
func (p *Pipeline) Add(ctx context.Context, eventID int64, in Input) (*model.Kid, error) {
	if in.Age < 0 {
		return nil, ErrInvalidAge
	}
	if err := p.checkShelter(ctx, eventID, in.ShelterID); err != nil {
		return nil, err
	}

	k, err := p.kids.Create(ctx, &model.Kid{
		EventID:       eventID,
		ShelterID:     in.ShelterID,
		Name:          strings.TrimSpace(in.Name),
		Age:           in.Age,
		Gender:        strings.TrimSpace(in.Gender),
		ShirtSize:     strings.TrimSpace(in.ShirtSize),
		PantSize:      strings.TrimSpace(in.PantSize),
		Color:         strings.TrimSpace(in.Color),
		Comments:      strings.TrimSpace(in.Comments),
		InternalNotes: strings.TrimSpace(in.InternalNotes),
		ContactName:   strings.TrimSpace(in.ContactName),
		ContactEmail:  strings.TrimSpace(in.ContactEmail),
		ContactPhone:  strings.TrimSpace(in.ContactPhone),
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("kid added", "kid_id", k.ID, "event_id", eventID)
	return k, nil
}

func (p *Pipeline) checkShelter(ctx context.Context, eventID, shelterID int64) error {
	shelters, err := p.shelters.ForEvent(ctx, eventID)
	if err != nil {
		return err
	}
	for _, sh := range shelters {
		if sh.ID == shelterID {
			return nil
		}
	}
	return ErrUnknownShelter
}

// Approve turns a pending kid into an item under its event and links the two.
// Approving an approved kid returns its existing item id. A missing kid
// yields 0 with no error.
func (p *Pipeline) Approve(ctx context.Context, kidID int64) (int64, error) {
	kid, err := p.kids.GetByID(ctx, kidID)
	if err != nil || kid == nil {
		return 0, err
	}
	if kid.Added {
		return *kid.ItemID, nil
	}
	event, err := p.events.GetByID(ctx, kid.EventID)
	if err != nil {
		return 0, err
	}
	if event == nil {
		return 0, fmt.Errorf("kid %d references missing event %d", kid.ID, kid.EventID)
	}
	label, err := p.shelters.Label(ctx, kid.ShelterID)
	if err != nil {
		return 0, err
	}

	var itemID int64
	err = p.db.WithTx(ctx, func(tx *database.Tx) error {
		item, err := p.ledger.WithTx(tx).CreateItem(ctx, itemFor(event, kid, label))
		if err != nil {
			return err
		}
		marked, err := store.NewKidStore(tx).MarkAdded(ctx, kid.ID, item.ID)
		if err != nil {
			return err
		}
		if !marked {
			return errAlreadyApproved
		}
		itemID = item.ID
		return nil
	})
	if errors.Is(err, errAlreadyApproved) {
		// Lost a race with another approval; report the winner's item.
		kid, err := p.kids.GetByID(ctx, kidID)
		if err != nil || kid == nil || kid.ItemID == nil {
			return 0, err
		}
		return *kid.ItemID, nil
	}
	if err != nil {
		return 0, fmt.Errorf("approve kid: %w", err)
	}

	p.logger.Info("kid approved", "kid_id", kid.ID, "item_id", itemID, "shelter", label)
	return itemID, nil
}

// ApproveAll approves every pending kid of an event and returns the new item ids.
func (p *Pipeline) ApproveAll(ctx context.Context, eventID int64) ([]int64, error) {
	pending, err := p.kids.ListByEvent(ctx, eventID, true)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(pending))
	for _, k := range pending {
		id, err := p.Approve(ctx, k.ID)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Update edits a kid's profile. An approved kid's item is re-rendered in
// place in the same transaction.
func (p *Pipeline) Update(ctx context.Context, kidID int64, patch store.Patch) (*model.Kid, error) {
	kid, err := p.kids.GetByID(ctx, kidID)
	if err != nil || kid == nil {
		return nil, err
	}
	if age, ok := patch["age"].(int); ok && age < 0 {
		return nil, ErrInvalidAge
	}
	shelterID := kid.ShelterID
	if v, ok := patch["shelter_id"]; ok {
		id, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("shelter_id must be int64, got %T", v)
		}
		if err := p.checkShelter(ctx, kid.EventID, id); err != nil {
			return nil, err
		}
		shelterID = id
	}
	event, err := p.events.GetByID(ctx, kid.EventID)
	if err != nil {
		return nil, err
	}
	label, err := p.shelters.Label(ctx, shelterID)
	if err != nil {
		return nil, err
	}

	var updated *model.Kid
	err = p.db.WithTx(ctx, func(tx *database.Tx) error {
		updated, err = store.NewKidStore(tx).Update(ctx, kidID, patch)
		if err != nil {
			return err
		}
		if !updated.Added || event == nil {
			return nil
		}
		it := itemFor(event, updated, label)
		_, err = p.ledger.WithTx(tx).UpdateItem(ctx, *updated.ItemID, store.Patch{
			"title":      it.Title,
			"notes":      it.Notes,
			"email_info": it.EmailInfo,
			"needed":     it.Needed,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update kid: %w", err)
	}
	updated.ShelterLabel = label
	return updated, nil
}

// Delete removes a kid. Its item goes too unless someone has signed up for
// it, in which case the item is deactivated and the signups are kept. It
// reports false when the kid does not exist.
func (p *Pipeline) Delete(ctx context.Context, kidID int64) (bool, error) {
	var found bool
	err := p.db.WithTx(ctx, func(tx *database.Tx) error {
		ks := store.NewKidStore(tx)
		kid, err := ks.GetByID(ctx, kidID)
		if err != nil || kid == nil {
			return err
		}
		found = true
		if err := ks.Delete(ctx, kidID); err != nil {
			return err
		}
		if kid.ItemID != nil {
			_, err := p.ledger.WithTx(tx).RetireItem(ctx, *kid.ItemID)
			return err
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete kid: %w", err)
	}
	if found {
		p.logger.Info("kid deleted", "kid_id", kidID)
	}
	return found, nil
}

// Get loads a kid with its shelter label, or nil.
func (p *Pipeline) Get(ctx context.Context, kidID int64) (*model.Kid, error) {
	kid, err := p.kids.GetByID(ctx, kidID)
	if err != nil || kid == nil {
		return nil, err
	}
	if kid.ShelterLabel, err = p.shelters.Label(ctx, kid.ShelterID); err != nil {
		return nil, err
	}
	return kid, nil
}

// ForEvent lists an event's kids with their shelter labels.
func (p *Pipeline) ForEvent(ctx context.Context, eventID int64, pendingOnly bool) ([]model.Kid, error) {
	list, err := p.kids.ListByEvent(ctx, eventID, pendingOnly)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ShelterLabel, err = p.shelters.Label(ctx, list[i].ShelterID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func itemFor(event *model.Event, kid *model.Kid, label string) *model.Item {
	f := FieldsFor(kid, label)
	title, notes := event.KidTitle, event.KidNotes
	if strings.TrimSpace(title) == "" {
		title = defaultKidTitle
	}
	if strings.TrimSpace(notes) == "" {
		notes = defaultKidNotes
	}
	return &model.Item{
		EventID:   event.ID,
		Title:     strings.TrimSpace(Render(title, f)),
		Notes:     strings.TrimSpace(Render(notes, f)),
		EmailInfo: Render(event.KidEmailInfo, f),
		Needed:    event.KidNeeded,
		Active:    true,
	}
}
