package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
)

type SignupStore struct {
	db database.Querier
}

func NewSignupStore(db database.Querier) *SignupStore {
	return &SignupStore{db: db}
}

func scanSignup(scanner interface{ Scan(...any) error }) (*model.Signup, error) {
	var s model.Signup
	var canceledAt sql.NullTime

	err := scanner.Scan(
		&s.ID, &s.ItemID, &s.UserID, &s.Quantity, &s.Comment,
		&s.SubmissionToken, &s.CreatedAt, &canceledAt,
	)
	if err != nil {
		return nil, err
	}
	s.CanceledAt = timePtr(canceledAt)
	return &s, nil
}

const signupCols = `id, item_id, user_id, quantity, comment, submission_token, created_at, canceled_at`

// Create inserts a signup. Constraint errors are returned wrapped so callers
// can inspect them with database.IsUniqueViolation.
func (s *SignupStore) Create(ctx context.Context, sg *model.Signup) (*model.Signup, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO signups (item_id, user_id, quantity, comment, submission_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		sg.ItemID, sg.UserID, sg.Quantity, sg.Comment, sg.SubmissionToken, sg.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert signup: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *SignupStore) GetByID(ctx context.Context, id int64) (*model.Signup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+signupCols+` FROM signups WHERE id = ?`, id)
	sg, err := scanSignup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get signup: %w", err)
	}
	return sg, nil
}

func (s *SignupStore) GetByToken(ctx context.Context, token string) (*model.Signup, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+signupCols+` FROM signups WHERE submission_token = ?`, token)
	sg, err := scanSignup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get signup by token: %w", err)
	}
	return sg, nil
}

// Cancel stamps canceled_at on an active signup. It reports false when the
// signup was already canceled or does not exist.
func (s *SignupStore) Cancel(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE signups SET canceled_at = ? WHERE id = ? AND canceled_at IS NULL`, at.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("cancel signup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

const signupDetailSelect = `SELECT s.id, s.item_id, s.user_id, s.quantity, s.comment, s.submission_token, s.created_at, s.canceled_at,
	i.title, e.id, e.title, e.active, u.name, COALESCE(u.email, '')
	FROM signups s
	JOIN items i ON i.id = s.item_id
	JOIN events e ON e.id = i.event_id
	JOIN users u ON u.id = s.user_id`

func scanSignupDetail(scanner interface{ Scan(...any) error }) (*model.SignupDetail, error) {
	var d model.SignupDetail
	var canceledAt sql.NullTime

	err := scanner.Scan(
		&d.ID, &d.ItemID, &d.UserID, &d.Quantity, &d.Comment, &d.SubmissionToken, &d.CreatedAt, &canceledAt,
		&d.ItemTitle, &d.EventID, &d.EventTitle, &d.EventActive, &d.UserName, &d.UserEmail,
	)
	if err != nil {
		return nil, err
	}
	d.CanceledAt = timePtr(canceledAt)
	return &d, nil
}

func (s *SignupStore) listDetails(ctx context.Context, where string, args ...any) ([]model.SignupDetail, error) {
	rows, err := s.db.QueryContext(ctx, signupDetailSelect+` WHERE `+where+` ORDER BY s.created_at, s.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list signups: %w", err)
	}
	defer rows.Close()

	var out []model.SignupDetail
	for rows.Next() {
		d, err := scanSignupDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signup: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// ListByUser returns a user's active signups across all events.
func (s *SignupStore) ListByUser(ctx context.Context, userID int64) ([]model.SignupDetail, error) {
	return s.listDetails(ctx, `s.user_id = ? AND s.canceled_at IS NULL`, userID)
}

// ListByEvent returns every signup for an event, canceled ones included.
func (s *SignupStore) ListByEvent(ctx context.Context, eventID int64) ([]model.SignupDetail, error) {
	return s.listDetails(ctx, `e.id = ?`, eventID)
}

// Fulfillment returns one row per active item of an event with the sum of its
// non-canceled signup quantities.
func (s *SignupStore) Fulfillment(ctx context.Context, eventID int64) ([]model.ItemFulfillment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.title, i.needed,
			COALESCE(SUM(CASE WHEN s.canceled_at IS NULL THEN s.quantity ELSE 0 END), 0),
			(SELECT COUNT(*) FROM kids k WHERE k.item_id = i.id)
		FROM items i
		LEFT JOIN signups s ON s.item_id = i.id
		WHERE i.event_id = ? AND i.active = ?
		GROUP BY i.id, i.title, i.needed
		ORDER BY i.id`,
		eventID, true,
	)
	if err != nil {
		return nil, fmt.Errorf("fulfillment: %w", err)
	}
	defer rows.Close()

	var out []model.ItemFulfillment
	for rows.Next() {
		var f model.ItemFulfillment
		var kids int
		if err := rows.Scan(&f.ItemID, &f.Title, &f.Needed, &f.Signups, &kids); err != nil {
			return nil, fmt.Errorf("scan fulfillment: %w", err)
		}
		f.KidItem = kids > 0
		out = append(out, f)
	}
	return out, rows.Err()
}
