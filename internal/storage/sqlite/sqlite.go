// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// DefaultPollInterval is how often a subscribed store checks for changes
// committed by other processes.
const DefaultPollInterval = 500 * time.Millisecond

// SQLiteStore implements storage.Store using SQLite.
//
// Writes are serialized by mu, which also covers the snapshot published
// after each commit, so subscribers see versions in commit order. The
// version lives in the database, so changes committed by another process
// (the CLI, a second server) are picked up by polling once someone
// subscribes.
type SQLiteStore struct {
	db *sql.DB

	mu        sync.RWMutex
	published uint64
	watch     *storage.Broadcaster
	now       func() time.Time

	pollInterval time.Duration
	pollOnce     sync.Once
	stopPoll     context.CancelFunc
	pollDone     chan struct{}
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithPollInterval sets how often external changes are checked for.
// Zero or less disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(s *SQLiteStore) { s.pollInterval = d }
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string, opts ...Option) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver. Write transactions take the lock
	// up front so concurrent processes wait on busy_timeout instead of
	// failing on lock upgrade.
	db, err := sql.Open("sqlite", dbPath+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps the pragmas
	// below in effect for every query.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &SQLiteStore{
		db:           db,
		watch:        storage.NewBroadcaster(),
		now:          time.Now,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.published, err = s.readVersion(context.Background(), db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close stops polling, ends all subscriptions and closes the database
// connection.
func (s *SQLiteStore) Close() error {
	s.pollOnce.Do(func() {}) // no poller may start after Close
	if s.stopPoll != nil {
		s.stopPoll()
		<-s.pollDone
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.watch.Close()
	return s.db.Close()
}

// CreateExpense persists a new expense to the database.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Generate ID if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Read inside the write transaction so creation times stay increasing
	// across every process writing to the file.
	var lastCreated int64
	err = tx.QueryRowContext(ctx, `SELECT MAX(
		(SELECT COALESCE(MAX(created_at), 0) FROM expenses),
		(SELECT COALESCE(MAX(created_at), 0) FROM archived_expenses))`).Scan(&lastCreated)
	if err != nil {
		return fmt.Errorf("failed to read last creation time: %w", err)
	}
	createdAt := storage.NextTimestamp(lastCreated, s.now())

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, date, amount, payer, description, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.Date, expense.Amount, expense.Payer, expense.Description,
		nullString(expense.CreatedBy), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	// Insert sharers, keeping their order
	for i, member := range expense.Sharers {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_sharers (expense_id, position, member) VALUES (?, ?, ?)",
			expense.ID, i, member,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sharer: %w", err)
		}
	}

	if err := bumpVersion(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	expense.CreatedAt = createdAt
	s.publishLocked(ctx)
	return nil
}

// GetExpense retrieves an active expense by ID, including its sharers.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expense := &models.Expense{}
	var createdBy sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, date, amount, payer, description, created_by, created_at
		 FROM expenses WHERE id = ?`,
		id,
	).Scan(&expense.ID, &expense.Date, &expense.Amount, &expense.Payer, &expense.Description,
		&createdBy, &expense.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	expense.CreatedBy = createdBy.String

	sharers, err := s.loadSharers(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	expense.Sharers = sharers[id]

	return expense, nil
}

// ListExpenses retrieves all active expenses, newest first.
func (s *SQLiteStore) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listExpenses(ctx, s.db)
}

// DeleteExpense moves an expense to the archived_expenses table.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, id string) (*models.ArchivedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deletedAt := s.now().UnixMilli()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO archived_expenses (id, date, amount, payer, description, created_by, created_at, deleted_at)
		 SELECT id, date, amount, payer, description, created_by, created_at, ?
		 FROM expenses WHERE id = ?`,
		deletedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to archive expense: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check archived rows: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to delete expense: %w", err)
	}

	archived, err := s.getArchived(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := bumpVersion(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publishLocked(ctx)
	return archived, nil
}

// ClearExpenses archives every active expense in one transaction.
func (s *SQLiteStore) ClearExpenses(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO archived_expenses (id, date, amount, payer, description, created_by, created_at, deleted_at)
		 SELECT id, date, amount, payer, description, created_by, created_at, ?
		 FROM expenses`,
		s.now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to archive expenses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check archived rows: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses"); err != nil {
		return 0, fmt.Errorf("failed to delete expenses: %w", err)
	}

	if err := bumpVersion(ctx, tx); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publishLocked(ctx)
	return int(n), nil
}

// ListArchived retrieves all archived expenses, most recently deleted first.
func (s *SQLiteStore) ListArchived(ctx context.Context) ([]models.ArchivedExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listArchived(ctx, s.db)
}

// Snapshot returns every active and archived expense.
func (s *SQLiteStore) Snapshot(ctx context.Context) (*storage.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(ctx)
}

// Subscribe registers for change notifications. The first subscription
// starts polling for changes committed by other processes.
func (s *SQLiteStore) Subscribe(ctx context.Context) (<-chan storage.Snapshot, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	initial, err := s.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	if initial.Version != s.published {
		// Another process committed since the last publish.
		s.published = initial.Version
		s.watch.Publish(*initial)
	}

	ch, cancel := s.watch.Subscribe(initial)
	stop := context.AfterFunc(ctx, cancel)

	s.pollOnce.Do(s.startPolling)

	return ch, func() {
		stop()
		cancel()
	}, nil
}

func (s *SQLiteStore) startPolling() {
	if s.pollInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopPoll = cancel
	s.pollDone = make(chan struct{})
	go s.poll(ctx)
}

// poll publishes a snapshot whenever the stored version moves past the
// last published one.
func (s *SQLiteStore) poll(ctx context.Context) {
	defer close(s.pollDone)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.refresh(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("Failed to check for external changes", "error", err)
			}
		}
	}
}

// refresh publishes the current snapshot if another process changed the
// database since the last publish.
func (s *SQLiteStore) refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, err := s.readVersion(ctx, s.db)
	if err != nil {
		return err
	}
	if version == s.published {
		return nil
	}
	s.publishLocked(ctx)
	return nil
}

// publishLocked notifies subscribers of the current snapshot unless it was
// already published. Caller must hold the write lock.
func (s *SQLiteStore) publishLocked(ctx context.Context) {
	// The change is already committed; a failed read only delays the
	// notification until the next change or poll.
	snap, err := s.snapshot(context.WithoutCancel(ctx))
	if err != nil {
		slog.Warn("Failed to load snapshot after commit", "error", err)
		return
	}
	if snap.Version == s.published {
		return
	}
	s.published = snap.Version
	s.watch.Publish(*snap)
}

// snapshot reads the version and both lists in one read transaction.
func (s *SQLiteStore) snapshot(ctx context.Context) (*storage.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	version, err := s.readVersion(ctx, tx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.listExpenses(ctx, tx)
	if err != nil {
		return nil, err
	}
	archived, err := s.listArchived(ctx, tx)
	if err != nil {
		return nil, err
	}
	return &storage.Snapshot{
		Version:  version,
		Expenses: expenses,
		Archived: archived,
		TakenAt:  s.now(),
	}, nil
}

func (s *SQLiteStore) readVersion(ctx context.Context, q queryer) (uint64, error) {
	var version int64
	if err := q.QueryRowContext(ctx, "SELECT version FROM ledger_version WHERE id = 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read ledger version: %w", err)
	}
	return uint64(version), nil
}

// bumpVersion records a committed change. Must run inside the change's
// transaction.
func bumpVersion(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "UPDATE ledger_version SET version = version + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to bump ledger version: %w", err)
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) listExpenses(ctx context.Context, q queryer) ([]models.Expense, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, date, amount, payer, description, created_by, created_at
		 FROM expenses ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		var createdBy sql.NullString
		if err := rows.Scan(&e.ID, &e.Date, &e.Amount, &e.Payer, &e.Description, &createdBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.CreatedBy = createdBy.String
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	sharers, err := s.loadSharers(ctx, q, "")
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		expenses[i].Sharers = sharers[expenses[i].ID]
	}
	return expenses, nil
}

func (s *SQLiteStore) listArchived(ctx context.Context, q queryer) ([]models.ArchivedExpense, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, date, amount, payer, description, created_by, created_at, deleted_at
		 FROM archived_expenses ORDER BY deleted_at DESC, created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived expenses: %w", err)
	}
	defer rows.Close()

	archived := []models.ArchivedExpense{}
	for rows.Next() {
		a, err := scanArchived(rows)
		if err != nil {
			return nil, err
		}
		archived = append(archived, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archived expenses: %w", err)
	}
	rows.Close()

	sharers, err := s.loadSharers(ctx, q, "")
	if err != nil {
		return nil, err
	}
	for i := range archived {
		archived[i].Sharers = sharers[archived[i].ID]
	}
	return archived, nil
}

func (s *SQLiteStore) getArchived(ctx context.Context, q queryer, id string) (*models.ArchivedExpense, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, date, amount, payer, description, created_by, created_at, deleted_at
		 FROM archived_expenses WHERE id = ?`,
		id,
	)
	a, err := scanArchived(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("archived expense %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	sharers, err := s.loadSharers(ctx, q, id)
	if err != nil {
		return nil, err
	}
	a.Sharers = sharers[id]
	return a, nil
}

// loadSharers returns expense ID -> sharers in stored order. An empty
// expenseID loads sharers for every expense in one query.
func (s *SQLiteStore) loadSharers(ctx context.Context, q queryer, expenseID string) (map[string][]string, error) {
	query := "SELECT expense_id, member FROM expense_sharers ORDER BY expense_id, position"
	var args []any
	if expenseID != "" {
		query = "SELECT expense_id, member FROM expense_sharers WHERE expense_id = ? ORDER BY position"
		args = append(args, expenseID)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get sharers: %w", err)
	}
	defer rows.Close()

	sharers := make(map[string][]string)
	for rows.Next() {
		var id, member string
		if err := rows.Scan(&id, &member); err != nil {
			return nil, fmt.Errorf("failed to scan sharer: %w", err)
		}
		sharers[id] = append(sharers[id], member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sharers: %w", err)
	}
	return sharers, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArchived(row scanner) (*models.ArchivedExpense, error) {
	a := &models.ArchivedExpense{}
	var createdBy sql.NullString
	err := row.Scan(&a.ID, &a.Date, &a.Amount, &a.Payer, &a.Description, &createdBy, &a.CreatedAt, &a.DeletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan archived expense: %w", err)
	}
	a.CreatedBy = createdBy.String
	return a, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
