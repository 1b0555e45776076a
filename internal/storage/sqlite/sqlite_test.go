package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/storetest"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "splitledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "ledger.db")
	ctx := context.Background()

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	first := &models.Expense{
		Date:      "2025-02-01",
		Amount:    90,
		Payer:     "Krishna Kumar",
		Sharers:   []string{"Shubham Jana", "Krishna Kumar", "Suvajit Jana"},
		CreatedBy: "user-1",
	}
	if err := store.CreateExpense(ctx, first); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	store.Close()

	// Migrations are idempotent and data survives
	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetExpense(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if got.CreatedBy != "user-1" || len(got.Sharers) != 3 {
		t.Errorf("reopened expense = %+v", got)
	}

	second := &models.Expense{Date: "2025-02-02", Amount: 10, Payer: "Suvajit Jana", Sharers: []string{"Suvajit Jana"}}
	if err := reopened.CreateExpense(ctx, second); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if second.CreatedAt <= first.CreatedAt {
		t.Errorf("CreatedAt went backwards after reopen: %d then %d", first.CreatedAt, second.CreatedAt)
	}
}

func TestSQLiteStore_RejectsNonPositiveAmount(t *testing.T) {
	store := newTestStore(t)
	err := store.CreateExpense(context.Background(), &models.Expense{
		Date:    "2025-02-01",
		Amount:  0,
		Payer:   "Alice",
		Sharers: []string{"Alice"},
	})
	if err == nil {
		t.Fatal("Expected CHECK constraint to reject zero amount")
	}

	list, err := store.ListExpenses(context.Background())
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected no expenses after failed insert, got %d", len(list))
	}
}

func waitForSnapshot(t *testing.T, ch <-chan storage.Snapshot) storage.Snapshot {
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

func TestSQLiteStore_SeesChangesFromOtherStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	server, err := New(dbPath, WithPollInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer server.Close()

	cli, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create second store: %v", err)
	}
	defer cli.Close()

	updates, cancel, err := server.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer cancel()

	initial := waitForSnapshot(t, updates)
	if initial.Version != 0 || len(initial.Expenses) != 0 {
		t.Fatalf("initial snapshot = version %d, %d expenses", initial.Version, len(initial.Expenses))
	}

	// Written through the other handle; the subscriber must still hear of it.
	first := &models.Expense{Date: "2025-02-01", Amount: 30, Payer: "Alice", Sharers: []string{"Alice", "Bob"}}
	if err := cli.CreateExpense(ctx, first); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	external := waitForSnapshot(t, updates)
	if external.Version != 1 {
		t.Errorf("Version after external write = %d, want 1", external.Version)
	}
	if len(external.Expenses) != 1 || external.Expenses[0].ID != first.ID {
		t.Errorf("snapshot after external write = %+v", external.Expenses)
	}

	snap, err := server.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Version != 1 {
		t.Errorf("Snapshot().Version = %d, want 1", snap.Version)
	}

	// Local writes continue from the shared version and creation clock.
	second := &models.Expense{Date: "2025-02-02", Amount: 10, Payer: "Bob", Sharers: []string{"Bob"}}
	if err := server.CreateExpense(ctx, second); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	local := waitForSnapshot(t, updates)
	if local.Version != 2 {
		t.Errorf("Version after local write = %d, want 2", local.Version)
	}
	if second.CreatedAt <= first.CreatedAt {
		t.Errorf("CreatedAt not increasing across stores: %d then %d", first.CreatedAt, second.CreatedAt)
	}

	if _, err := cli.DeleteExpense(ctx, first.ID); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	afterDelete := waitForSnapshot(t, updates)
	if afterDelete.Version != 3 || len(afterDelete.Archived) != 1 {
		t.Errorf("snapshot after external delete = version %d, %d archived", afterDelete.Version, len(afterDelete.Archived))
	}
}

func TestSQLiteStore_VersionSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	for i := 0; i < 3; i++ {
		e := &models.Expense{Date: "2025-02-01", Amount: 5, Payer: "Alice", Sharers: []string{"Alice"}}
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
	}
	store.Close()

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	snap, err := reopened.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Version != 3 {
		t.Errorf("Version after reopen = %d, want 3", snap.Version)
	}
}
