package store

import (
	"context"
	"testing"

	"github.com/dukerupert/signups/internal/model"
)

func TestKidMarkAddedOnce(t *testing.T) {
	db := setupTestDB(t)
	ks := NewKidStore(db)
	ctx := context.Background()
	e := createTestEvent(t, db)
	it := createTestItem(t, db, e.ID, 1)
	other := createTestItem(t, db, e.ID, 1)

	k, err := ks.Create(ctx, &model.Kid{EventID: e.ID, ShelterID: 3, Name: "Sam", Age: 7})
	if err != nil {
		t.Fatalf("create kid: %v", err)
	}
	if k.Added || k.ItemID != nil {
		t.Fatalf("new kid should be pending, got %+v", k)
	}

	ok, err := ks.MarkAdded(ctx, k.ID, it.ID)
	if err != nil || !ok {
		t.Fatalf("mark added = %v, %v; want true, nil", ok, err)
	}
	ok, err = ks.MarkAdded(ctx, k.ID, other.ID)
	if err != nil || ok {
		t.Fatalf("second mark added = %v, %v; want false, nil", ok, err)
	}

	got, err := ks.GetByID(ctx, k.ID)
	if err != nil {
		t.Fatalf("get kid: %v", err)
	}
	if !got.Added || got.ItemID == nil || *got.ItemID != it.ID {
		t.Errorf("kid = %+v, want added with item %d", got, it.ID)
	}
}

func TestKidAddedRequiresItem(t *testing.T) {
	db := setupTestDB(t)
	e := createTestEvent(t, db)
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO kids (event_id, shelter_id, added) VALUES (?, ?, ?)`, e.ID, 1, true)
	if err == nil {
		t.Fatal("expected check constraint to reject added kid without item")
	}
}

func TestKidPendingList(t *testing.T) {
	db := setupTestDB(t)
	ks := NewKidStore(db)
	ctx := context.Background()
	e := createTestEvent(t, db)
	it := createTestItem(t, db, e.ID, 1)

	a, _ := ks.Create(ctx, &model.Kid{EventID: e.ID, ShelterID: 1, Name: "A"})
	if _, err := ks.Create(ctx, &model.Kid{EventID: e.ID, ShelterID: 1, Name: "B"}); err != nil {
		t.Fatalf("create kid: %v", err)
	}
	if _, err := ks.MarkAdded(ctx, a.ID, it.ID); err != nil {
		t.Fatalf("mark added: %v", err)
	}

	pending, err := ks.ListByEvent(ctx, e.ID, true)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "B" {
		t.Errorf("pending = %+v, want only B", pending)
	}

	n, err := ks.CountByEvent(ctx, e.ID)
	if err != nil || n != 2 {
		t.Errorf("count = %d, %v; want 2", n, err)
	}
}
