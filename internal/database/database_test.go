package database

import (
	"context"
	"errors"
	"testing"
)

func TestRebind(t *testing.T) {
	q := `SELECT * FROM t WHERE a = ? AND b = '?' AND c = ?`
	if got := Rebind(SQLite, q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	want := `SELECT * FROM t WHERE a = $1 AND b = '?' AND c = $2`
	if got := Rebind(Postgres, q); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestOpenMemoryRunsMigrations(t *testing.T) {
	db, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"users", "admins", "events", "items", "signups", "kids", "shelters", "event_shelters"} {
		var n int
		err := db.QueryRowContext(context.Background(),
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		if err != nil {
			t.Fatalf("query %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestWithTxRollback(t *testing.T) {
	db, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	boom := errors.New("boom")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO shelters (name, code) VALUES (?, ?)`, "North", "A"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shelters`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("shelters = %d, want 0 after rollback", n)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	_, err = db.ExecContext(context.Background(),
		`INSERT INTO items (event_id, title, needed) VALUES (?, ?, ?)`, 999, "orphan", 1)
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestIsUniqueViolationNil(t *testing.T) {
	if IsUniqueViolation(nil, "signups", "submission_token") {
		t.Error("nil error reported as violation")
	}
	if IsUniqueViolation(errors.New("other"), "signups", "submission_token") {
		t.Error("plain error reported as violation")
	}
}
