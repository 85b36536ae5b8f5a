package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
)

type ItemStore struct {
	db database.Querier
}

func NewItemStore(db database.Querier) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var it model.Item
	var start, end sql.NullTime

	err := scanner.Scan(
		&it.ID, &it.EventID, &it.Title, &it.Notes, &it.EmailInfo,
		&it.Needed, &it.Active, &start, &end, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.StartTime = timePtr(start)
	it.EndTime = timePtr(end)
	return &it, nil
}

const itemCols = `id, event_id, title, notes, email_info, needed, active, start_time, end_time, created_at`

var itemPatchable = map[string]bool{
	"title": true, "notes": true, "email_info": true, "needed": true,
	"active": true, "start_time": true, "end_time": true,
}

func (s *ItemStore) Create(ctx context.Context, it *model.Item) (*model.Item, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO items (event_id, title, notes, email_info, needed, active, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		it.EventID, it.Title, it.Notes, it.EmailInfo, it.Needed, it.Active,
		nullTime(it.StartTime), nullTime(it.EndTime),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ItemStore) GetByID(ctx context.Context, id int64) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (s *ItemStore) ListByEvent(ctx context.Context, eventID int64, activeOnly bool) ([]model.Item, error) {
	query := `SELECT ` + itemCols + ` FROM items WHERE event_id = ?`
	args := []any{eventID}
	if activeOnly {
		query += ` AND active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *ItemStore) Update(ctx context.Context, id int64, p Patch) (*model.Item, error) {
	query, args, err := buildUpdate("items", itemPatchable, id, p)
	if err != nil {
		return nil, err
	}
	if query != "" {
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("update item: %w", err)
		}
	}
	return s.GetByID(ctx, id)
}

func (s *ItemStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// SignupCount returns how many signups, canceled or not, reference the item.
func (s *ItemStore) SignupCount(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signups WHERE item_id = ?`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count item signups: %w", err)
	}
	return n, nil
}

// IsKidItem reports whether the item was synthesized from a kid.
func (s *ItemStore) IsKidItem(ctx context.Context, id int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kids WHERE item_id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check kid item: %w", err)
	}
	return n > 0, nil
}
