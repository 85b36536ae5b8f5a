package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
)

type ShelterStore struct {
	db database.Querier
}

func NewShelterStore(db database.Querier) *ShelterStore {
	return &ShelterStore{db: db}
}

func scanShelter(scanner interface{ Scan(...any) error }) (*model.Shelter, error) {
	var sh model.Shelter
	if err := scanner.Scan(&sh.ID, &sh.Name, &sh.Code, &sh.CreatedAt); err != nil {
		return nil, err
	}
	return &sh, nil
}

const shelterCols = `id, name, code, created_at`

func (s *ShelterStore) listWhere(ctx context.Context, query string, args ...any) ([]model.Shelter, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shelters: %w", err)
	}
	defer rows.Close()

	var shelters []model.Shelter
	for rows.Next() {
		sh, err := scanShelter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shelter: %w", err)
		}
		shelters = append(shelters, *sh)
	}
	return shelters, rows.Err()
}

func (s *ShelterStore) List(ctx context.Context) ([]model.Shelter, error) {
	return s.listWhere(ctx, `SELECT `+shelterCols+` FROM shelters ORDER BY id`)
}

func (s *ShelterStore) ListByEvent(ctx context.Context, eventID int64) ([]model.Shelter, error) {
	return s.listWhere(ctx,
		`SELECT s.id, s.name, s.code, s.created_at FROM shelters s
		JOIN event_shelters es ON es.shelter_id = s.id
		WHERE es.event_id = ? ORDER BY s.id`, eventID)
}

func (s *ShelterStore) GetByID(ctx context.Context, id int64) (*model.Shelter, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shelterCols+` FROM shelters WHERE id = ?`, id)
	sh, err := scanShelter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shelter: %w", err)
	}
	return sh, nil
}

// Codes returns every code currently in use.
func (s *ShelterStore) Codes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code FROM shelters`)
	if err != nil {
		return nil, fmt.Errorf("list shelter codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan shelter code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// Lock takes a table lock for code allocation on postgres. SQLite
// transactions already hold the write lock from BEGIN IMMEDIATE.
func (s *ShelterStore) Lock(ctx context.Context) error {
	if s.db.Dialect() != database.Postgres {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `LOCK TABLE shelters IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock shelters: %w", err)
	}
	return nil
}

func (s *ShelterStore) Insert(ctx context.Context, name, code string) (*model.Shelter, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO shelters (name, code) VALUES (?, ?) RETURNING id`, name, code,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert shelter: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ShelterStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM shelters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shelter: %w", err)
	}
	return nil
}

// SoleAdoptShelterCount counts the adopt-signup events for which shelterID
// is the only linked shelter.
func (s *ShelterStore) SoleAdoptShelterCount(ctx context.Context, shelterID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events e
		JOIN event_shelters es ON es.event_id = e.id
		WHERE es.shelter_id = ? AND e.adopt_signup
		  AND (SELECT COUNT(*) FROM event_shelters o WHERE o.event_id = e.id) = 1`,
		shelterID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count adopt events for shelter: %w", err)
	}
	return n, nil
}

// SetEventShelters replaces the event's shelter associations.
func (s *ShelterStore) SetEventShelters(ctx context.Context, eventID int64, shelterIDs []int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM event_shelters WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("clear event shelters: %w", err)
	}
	for _, id := range shelterIDs {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO event_shelters (event_id, shelter_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			eventID, id,
		)
		if err != nil {
			return fmt.Errorf("insert event shelter: %w", err)
		}
	}
	return nil
}
