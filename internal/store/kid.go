package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
)

type KidStore struct {
	db database.Querier
}

func NewKidStore(db database.Querier) *KidStore {
	return &KidStore{db: db}
}

func scanKid(scanner interface{ Scan(...any) error }) (*model.Kid, error) {
	var k model.Kid
	var itemID sql.NullInt64

	err := scanner.Scan(
		&k.ID, &k.EventID, &k.ShelterID, &k.Name, &k.Age, &k.Gender,
		&k.ShirtSize, &k.PantSize, &k.Color, &k.Comments, &k.InternalNotes,
		&k.ContactName, &k.ContactEmail, &k.ContactPhone,
		&k.Added, &itemID, &k.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if itemID.Valid {
		k.ItemID = &itemID.Int64
	}
	return &k, nil
}

const kidCols = `id, event_id, shelter_id, name, age, gender,
	shirt_size, pant_size, color, comments, internal_notes,
	contact_name, contact_email, contact_phone,
	added, item_id, created_at`

// Profile columns only. added and item_id move together through MarkAdded.
var kidPatchable = map[string]bool{
	"shelter_id": true, "name": true, "age": true, "gender": true,
	"shirt_size": true, "pant_size": true, "color": true, "comments": true,
	"internal_notes": true, "contact_name": true, "contact_email": true, "contact_phone": true,
}

func (s *KidStore) Create(ctx context.Context, k *model.Kid) (*model.Kid, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO kids (event_id, shelter_id, name, age, gender,
			shirt_size, pant_size, color, comments, internal_notes,
			contact_name, contact_email, contact_phone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		k.EventID, k.ShelterID, k.Name, k.Age, k.Gender,
		k.ShirtSize, k.PantSize, k.Color, k.Comments, k.InternalNotes,
		k.ContactName, k.ContactEmail, k.ContactPhone,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert kid: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *KidStore) GetByID(ctx context.Context, id int64) (*model.Kid, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+kidCols+` FROM kids WHERE id = ?`, id)
	k, err := scanKid(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get kid: %w", err)
	}
	return k, nil
}

// ListByEvent returns the event's kids. With pendingOnly set, approved kids are skipped.
func (s *KidStore) ListByEvent(ctx context.Context, eventID int64, pendingOnly bool) ([]model.Kid, error) {
	query := `SELECT ` + kidCols + ` FROM kids WHERE event_id = ?`
	args := []any{eventID}
	if pendingOnly {
		query += ` AND added = ?`
		args = append(args, false)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list kids: %w", err)
	}
	defer rows.Close()

	var kids []model.Kid
	for rows.Next() {
		k, err := scanKid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan kid: %w", err)
		}
		kids = append(kids, *k)
	}
	return kids, rows.Err()
}

func (s *KidStore) CountByEvent(ctx context.Context, eventID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kids WHERE event_id = ?`, eventID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count kids: %w", err)
	}
	return n, nil
}

func (s *KidStore) Update(ctx context.Context, id int64, p Patch) (*model.Kid, error) {
	query, args, err := buildUpdate("kids", kidPatchable, id, p)
	if err != nil {
		return nil, err
	}
	if query != "" {
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("update kid: %w", err)
		}
	}
	return s.GetByID(ctx, id)
}

// MarkAdded links a pending kid to its item. It reports false when the kid
// was already approved.
func (s *KidStore) MarkAdded(ctx context.Context, id, itemID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE kids SET added = ?, item_id = ? WHERE id = ? AND added = ?`,
		true, itemID, id, false,
	)
	if err != nil {
		return false, fmt.Errorf("mark kid added: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *KidStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kids WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete kid: %w", err)
	}
	return nil
}
