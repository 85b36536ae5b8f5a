package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
)

type EventStore struct {
	db database.Querier
}

func NewEventStore(db database.Querier) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := scanner.Scan(
		&e.ID, &e.Title, &e.Description, &e.Summary, &e.EmailInfo, &e.Image,
		&e.Active, &e.AdoptSignup, &e.AllowKids, &e.FormCode,
		&e.AlertEmail, &e.AlertOnSignup, &e.AlertOnCancel,
		&e.KidTitle, &e.KidNotes, &e.KidEmailInfo, &e.KidCommentsLabel, &e.KidCommentsHelp, &e.KidNeeded,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const eventCols = `id, title, description, summary, email_info, image,
	active, adopt_signup, allow_kids, form_code,
	alert_email, alert_on_signup, alert_on_cancel,
	kid_title, kid_notes, kid_email_info, kid_comments_label, kid_comments_help, kid_needed,
	created_at`

var eventPatchable = map[string]bool{
	"title": true, "description": true, "summary": true, "email_info": true, "image": true,
	"active": true, "adopt_signup": true, "allow_kids": true, "form_code": true,
	"alert_email": true, "alert_on_signup": true, "alert_on_cancel": true,
	"kid_title": true, "kid_notes": true, "kid_email_info": true,
	"kid_comments_label": true, "kid_comments_help": true, "kid_needed": true,
}

func (s *EventStore) Create(ctx context.Context, e *model.Event) (*model.Event, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO events (title, description, summary, email_info, image,
			active, adopt_signup, allow_kids, form_code,
			alert_email, alert_on_signup, alert_on_cancel,
			kid_title, kid_notes, kid_email_info, kid_comments_label, kid_comments_help, kid_needed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		e.Title, e.Description, e.Summary, e.EmailInfo, e.Image,
		e.Active, e.AdoptSignup, e.AllowKids, e.FormCode,
		e.AlertEmail, e.AlertOnSignup, e.AlertOnCancel,
		e.KidTitle, e.KidNotes, e.KidEmailInfo, e.KidCommentsLabel, e.KidCommentsHelp, e.KidNeeded,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *EventStore) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns events newest first. When activeOnly is set, hidden events are skipped.
func (s *EventStore) List(ctx context.Context, activeOnly bool) ([]model.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events`
	var args []any
	if activeOnly {
		query += ` WHERE active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(ctx context.Context, id int64, p Patch) (*model.Event, error) {
	query, args, err := buildUpdate("events", eventPatchable, id, p)
	if err != nil {
		return nil, err
	}
	if query != "" {
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("update event: %w", err)
		}
	}
	return s.GetByID(ctx, id)
}

func (s *EventStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
