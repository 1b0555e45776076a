// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/splitledger/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// Snapshot is a consistent view of every active and archived expense.
// Slices are copies owned by the receiver.
type Snapshot struct {
	// Version increases by one with every committed change.
	Version uint64

	// Expenses are the active expenses, newest first.
	Expenses []models.Expense

	// Archived are the deleted expenses, most recently deleted first.
	Archived []models.ArchivedExpense

	// TakenAt is when the snapshot was read.
	TakenAt time.Time
}

// ExpenseStore is the storage collaborator for expense records.
// Writers are serialized by the implementation; the last write wins.
type ExpenseStore interface {
	// CreateExpense persists a new expense.
	// The expense.ID and expense.CreatedAt fields will be populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an active expense by its ID.
	// Returns ErrNotFound if the expense does not exist or was deleted.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)

	// ListExpenses returns all active expenses, newest first.
	ListExpenses(ctx context.Context) ([]models.Expense, error)

	// DeleteExpense moves an expense to the archive and returns the archived copy.
	// Returns ErrNotFound if the expense is not active.
	DeleteExpense(ctx context.Context, id string) (*models.ArchivedExpense, error)

	// ClearExpenses archives every active expense and returns how many were moved.
	ClearExpenses(ctx context.Context) (int, error)

	// ListArchived returns all archived expenses, most recently deleted first.
	ListArchived(ctx context.Context) ([]models.ArchivedExpense, error)

	// Snapshot returns the current state of the store.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Subscribe registers for change notifications. The current snapshot is
	// delivered right away, then a new one after every committed change.
	// Slow subscribers only see the latest snapshot. Call cancel to stop.
	Subscribe(ctx context.Context) (updates <-chan Snapshot, cancel func(), err error)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail returns ErrNotFound if no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID returns ErrNotFound if no user has the ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store defines the interface for all storage operations.
// This abstraction allows swapping storage backends (SQLite, memory)
// without changing the service layer.
type Store interface {
	ExpenseStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}

// NextTimestamp returns now in Unix milliseconds, bumped past last so
// creation timestamps are strictly increasing within one store.
func NextTimestamp(last int64, now time.Time) int64 {
	ts := now.UnixMilli()
	if ts <= last {
		ts = last + 1
	}
	return ts
}
