package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/signups/internal/database"
	"github.com/dukerupert/signups/internal/model"
)

type UserStore struct {
	db database.Querier
}

func NewUserStore(db database.Querier) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var email, phone, loginCode sql.NullString
	var expires sql.NullTime

	err := scanner.Scan(
		&u.ID, &u.Name, &email, &phone, &u.MagicCode,
		&loginCode, &expires, &u.LoginAttempts, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Email = email.String
	u.Phone = phone.String
	u.LoginCode = loginCode.String
	u.LoginCodeExpires = timePtr(expires)
	return &u, nil
}

const userCols = `id, name, email, phone, magic_code, login_code, login_code_expires, login_attempts, created_at`

var userPatchable = map[string]bool{"name": true, "email": true, "phone": true}

func (s *UserStore) Create(ctx context.Context, name, email, phone, magicCode string) (*model.User, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, phone, magic_code) VALUES (?, ?, ?, ?) RETURNING id`,
		name, nullString(email), nullString(phone), magicCode,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetByPhone returns the oldest user registered with phone.
func (s *UserStore) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE phone = ? ORDER BY id LIMIT 1`, phone)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	return u, nil
}

// SetLoginCode replaces the user's one-time code, its expiry and resets the
// attempt counter in a single statement.
func (s *UserStore) SetLoginCode(ctx context.Context, id int64, codeHash string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET login_code = ?, login_code_expires = ?, login_attempts = 0 WHERE id = ?`,
		codeHash, expires.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set login code: %w", err)
	}
	return nil
}

// IncrementLoginAttempts bumps the failed attempt counter and returns the new value.
func (s *UserStore) IncrementLoginAttempts(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET login_attempts = login_attempts + 1 WHERE id = ? RETURNING login_attempts`, id,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment login attempts: %w", err)
	}
	return attempts, nil
}

func (s *UserStore) ClearLoginCode(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET login_code = NULL, login_code_expires = NULL WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("clear login code: %w", err)
	}
	return nil
}

// Update applies a patch over name, email and phone.
func (s *UserStore) Update(ctx context.Context, id int64, p Patch) (*model.User, error) {
	query, args, err := buildUpdate("users", userPatchable, id, p)
	if err != nil {
		return nil, err
	}
	if query != "" {
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	return s.GetByID(ctx, id)
}
