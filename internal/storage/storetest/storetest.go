// Package storetest holds behaviour tests shared by every storage.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Factory returns a fresh, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) storage.Store

// Run exercises the full storage.Store contract against newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateExpense assigns ID and CreatedAt", func(t *testing.T) {
		testCreateExpense(t, newStore(t))
	})
	t.Run("ListExpenses newest first", func(t *testing.T) {
		testListOrder(t, newStore(t))
	})
	t.Run("GetExpense returns ErrNotFound", func(t *testing.T) {
		testGetMissing(t, newStore(t))
	})
	t.Run("DeleteExpense archives", func(t *testing.T) {
		testDeleteArchives(t, newStore(t))
	})
	t.Run("ClearExpenses archives everything", func(t *testing.T) {
		testClear(t, newStore(t))
	})
	t.Run("Subscribe delivers snapshots", func(t *testing.T) {
		testSubscribe(t, newStore(t))
	})
	t.Run("Snapshot is a copy", func(t *testing.T) {
		testSnapshotCopy(t, newStore(t))
	})
	t.Run("Users", func(t *testing.T) {
		testUsers(t, newStore(t))
	})
}

func newExpense(amount float64, payer string, sharers ...string) *models.Expense {
	return &models.Expense{
		Date:        "2025-03-01",
		Amount:      amount,
		Payer:       payer,
		Description: "Groceries",
		Sharers:     sharers,
	}
}

func mustCreate(t *testing.T, s storage.Store, e *models.Expense) *models.Expense {
	t.Helper()
	if err := s.CreateExpense(context.Background(), e); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	return e
}

func testCreateExpense(t *testing.T, s storage.Store) {
	ctx := context.Background()
	e := mustCreate(t, s, newExpense(300, "Alice", "Charlie", "Alice", "Bob"))

	if e.ID == "" {
		t.Error("Expected expense ID to be generated")
	}
	if e.CreatedAt == 0 {
		t.Error("Expected CreatedAt to be set")
	}

	got, err := s.GetExpense(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if got.Amount != 300 || got.Payer != "Alice" || got.Date != "2025-03-01" || got.Description != "Groceries" {
		t.Errorf("GetExpense returned %+v", got)
	}
	want := []string{"Charlie", "Alice", "Bob"}
	if len(got.Sharers) != len(want) {
		t.Fatalf("Sharers = %v, want %v", got.Sharers, want)
	}
	for i := range want {
		if got.Sharers[i] != want[i] {
			t.Errorf("Sharers[%d] = %s, want %s (order must be preserved)", i, got.Sharers[i], want[i])
		}
	}
}

func testListOrder(t *testing.T, s storage.Store) {
	ctx := context.Background()
	first := mustCreate(t, s, newExpense(10, "Alice", "Alice"))
	second := mustCreate(t, s, newExpense(20, "Bob", "Bob"))
	third := mustCreate(t, s, newExpense(30, "Alice", "Bob"))

	if !(first.CreatedAt < second.CreatedAt && second.CreatedAt < third.CreatedAt) {
		t.Errorf("CreatedAt not increasing: %d, %d, %d", first.CreatedAt, second.CreatedAt, third.CreatedAt)
	}

	list, err := s.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 expenses, got %d", len(list))
	}
	for i, want := range []string{third.ID, second.ID, first.ID} {
		if list[i].ID != want {
			t.Errorf("list[%d] = %s, want %s", i, list[i].ID, want)
		}
	}
}

func testGetMissing(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if _, err := s.GetExpense(ctx, "nonexistent-id"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetExpense error = %v, want ErrNotFound", err)
	}
	if _, err := s.DeleteExpense(ctx, "nonexistent-id"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteExpense error = %v, want ErrNotFound", err)
	}
}

func testDeleteArchives(t *testing.T, s storage.Store) {
	ctx := context.Background()
	keep := mustCreate(t, s, newExpense(10, "Alice", "Alice", "Bob"))
	gone := mustCreate(t, s, newExpense(20, "Bob", "Bob", "Alice"))

	archived, err := s.DeleteExpense(ctx, gone.ID)
	if err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	if archived.ID != gone.ID || archived.Amount != 20 || archived.DeletedAt == 0 {
		t.Errorf("unexpected archived copy: %+v", archived)
	}
	if len(archived.Sharers) != 2 || archived.Sharers[0] != "Bob" {
		t.Errorf("archived sharers = %v, want [Bob Alice]", archived.Sharers)
	}

	if _, err := s.GetExpense(ctx, gone.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("deleted expense still active: %v", err)
	}
	if _, err := s.DeleteExpense(ctx, gone.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}

	active, err := s.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != keep.ID {
		t.Errorf("active = %+v, want only %s", active, keep.ID)
	}

	list, err := s.ListArchived(ctx)
	if err != nil {
		t.Fatalf("ListArchived failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != gone.ID || list[0].DeletedAt != archived.DeletedAt {
		t.Errorf("archive = %+v, want %s", list, gone.ID)
	}
}

func testClear(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCreate(t, s, newExpense(10, "Alice", "Alice"))
	mustCreate(t, s, newExpense(20, "Bob", "Bob"))

	n, err := s.ClearExpenses(ctx)
	if err != nil {
		t.Fatalf("ClearExpenses failed: %v", err)
	}
	if n != 2 {
		t.Errorf("ClearExpenses moved %d, want 2", n)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.Expenses) != 0 || len(snap.Archived) != 2 {
		t.Errorf("after clear: %d active, %d archived", len(snap.Expenses), len(snap.Archived))
	}

	if n, err := s.ClearExpenses(ctx); err != nil || n != 0 {
		t.Errorf("second ClearExpenses = %d, %v; want 0, nil", n, err)
	}
}

func receive(t *testing.T, ch <-chan storage.Snapshot) storage.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return storage.Snapshot{}
}

func testSubscribe(t *testing.T, s storage.Store) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	mustCreate(t, s, newExpense(10, "Alice", "Alice"))

	updates, cancel, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer cancel()

	initial := receive(t, updates)
	if len(initial.Expenses) != 1 {
		t.Fatalf("initial snapshot has %d expenses, want 1", len(initial.Expenses))
	}

	e := mustCreate(t, s, newExpense(20, "Bob", "Bob"))
	next := receive(t, updates)
	if next.Version <= initial.Version {
		t.Errorf("Version did not increase: %d -> %d", initial.Version, next.Version)
	}
	if len(next.Expenses) != 2 {
		t.Errorf("snapshot after create has %d expenses, want 2", len(next.Expenses))
	}

	if _, err := s.DeleteExpense(context.Background(), e.ID); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	afterDelete := receive(t, updates)
	if len(afterDelete.Expenses) != 1 || len(afterDelete.Archived) != 1 {
		t.Errorf("snapshot after delete: %d active, %d archived", len(afterDelete.Expenses), len(afterDelete.Archived))
	}

	// Cancelling the context ends the subscription.
	cancelCtx()
	select {
	case _, ok := <-updates:
		if ok {
			// a pending snapshot may still be buffered; the next read must see close
			if _, ok := <-updates; ok {
				t.Error("expected subscription to close after context cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Error("subscription not closed after context cancel")
	}
}

func testSnapshotCopy(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustCreate(t, s, newExpense(10, "Alice", "Alice", "Bob"))

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	snap.Expenses[0].Sharers[0] = "Mallory"
	snap.Expenses[0].Amount = 999

	again, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if again.Expenses[0].Sharers[0] != "Alice" || again.Expenses[0].Amount != 10 {
		t.Errorf("store state changed through snapshot: %+v", again.Expenses[0])
	}
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	user := models.NewUser("alice@example.com", "Alice", "hash")

	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID || byEmail.DisplayName != "Alice" || byEmail.PasswordHash != "hash" {
		t.Errorf("GetUserByEmail returned %+v", byEmail)
	}

	byID, err := s.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if byID.Email != user.Email {
		t.Errorf("GetUserByID email = %s, want %s", byID.Email, user.Email)
	}

	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetUserByEmail error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetUserByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetUserByID error = %v, want ErrNotFound", err)
	}

	dup := models.NewUser("alice@example.com", "Bob", "hash")
	if err := s.CreateUser(ctx, dup); err == nil {
		t.Error("expected error for duplicate email")
	}
}
