package store

import (
	"context"
	"fmt"

	"github.com/dukerupert/signups/internal/database"
)

// AdminStore manages the admin marker. Membership is binary.
type AdminStore struct {
	db database.Querier
}

func NewAdminStore(db database.Querier) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return n > 0, nil
}

func (s *AdminStore) Grant(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (user_id) VALUES (?) ON CONFLICT (user_id) DO NOTHING`, userID,
	)
	if err != nil {
		return fmt.Errorf("grant admin: %w", err)
	}
	return nil
}

func (s *AdminStore) Revoke(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("revoke admin: %w", err)
	}
	return nil
}
