// Package memory provides an in-memory implementation of storage.Store.
// Data is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store keeps expenses and users in maps guarded by a mutex.
type Store struct {
	mu          sync.RWMutex
	expenses    map[string]models.Expense
	archived    map[string]models.ArchivedExpense
	users       map[string]*models.User
	version     uint64
	lastCreated int64
	closed      bool

	now   func() time.Time
	watch *storage.Broadcaster
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		expenses: make(map[string]models.Expense),
		archived: make(map[string]models.ArchivedExpense),
		users:    make(map[string]*models.User),
		now:      time.Now,
		watch:    storage.NewBroadcaster(),
	}
}

// Close closes the store and ends all subscriptions.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.watch.Close()
	return nil
}

// CreateExpense stores a copy of the expense.
func (s *Store) CreateExpense(_ context.Context, expense *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if _, exists := s.expenses[expense.ID]; exists {
		return fmt.Errorf("expense %s already exists", expense.ID)
	}
	expense.CreatedAt = storage.NextTimestamp(s.lastCreated, s.now())
	s.lastCreated = expense.CreatedAt

	s.expenses[expense.ID] = expense.Clone()
	s.commitLocked()
	return nil
}

// GetExpense returns a copy of an active expense.
func (s *Store) GetExpense(_ context.Context, id string) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[id]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	c := e.Clone()
	return &c, nil
}

// ListExpenses returns active expenses, newest first.
func (s *Store) ListExpenses(_ context.Context) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listExpensesLocked(), nil
}

// DeleteExpense moves an expense to the archive.
func (s *Store) DeleteExpense(_ context.Context, id string) (*models.ArchivedExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrClosed
	}

	e, ok := s.expenses[id]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", id, storage.ErrNotFound)
	}
	archived := models.ArchivedExpense{Expense: e, DeletedAt: s.now().UnixMilli()}
	delete(s.expenses, id)
	s.archived[id] = archived
	s.commitLocked()

	out := archived
	out.Expense = archived.Expense.Clone()
	return &out, nil
}

// ClearExpenses archives every active expense.
func (s *Store) ClearExpenses(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, storage.ErrClosed
	}

	n := len(s.expenses)
	if n == 0 {
		return 0, nil
	}
	deletedAt := s.now().UnixMilli()
	for id, e := range s.expenses {
		s.archived[id] = models.ArchivedExpense{Expense: e, DeletedAt: deletedAt}
		delete(s.expenses, id)
	}
	s.commitLocked()
	return n, nil
}

// ListArchived returns archived expenses, most recently deleted first.
func (s *Store) ListArchived(_ context.Context) ([]models.ArchivedExpense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listArchivedLocked(), nil
}

// Snapshot returns the current state.
func (s *Store) Snapshot(_ context.Context) (*storage.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// Subscribe registers for change notifications.
func (s *Store) Subscribe(ctx context.Context) (<-chan storage.Snapshot, func(), error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, nil, storage.ErrClosed
	}

	ch, cancel := s.watch.Subscribe(s.snapshotLocked())
	stop := context.AfterFunc(ctx, cancel)
	return ch, func() {
		stop()
		cancel()
	}, nil
}

// CreateUser stores a new user. Emails must be unique.
func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return fmt.Errorf("failed to create user: email %s already registered", user.Email)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	u := *user
	s.users[u.ID] = &u
	return nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
}

// GetUserByID retrieves a user by their ID.
func (s *Store) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	c := *u
	return &c, nil
}

// commitLocked bumps the version and notifies subscribers.
// Caller must hold the write lock.
func (s *Store) commitLocked() {
	s.version++
	s.watch.Publish(*s.snapshotLocked())
}

func (s *Store) snapshotLocked() *storage.Snapshot {
	return &storage.Snapshot{
		Version:  s.version,
		Expenses: s.listExpensesLocked(),
		Archived: s.listArchivedLocked(),
		TakenAt:  s.now(),
	}
}

func (s *Store) listExpensesLocked() []models.Expense {
	out := make([]models.Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		out = append(out, e.Clone())
	}
	storage.SortExpenses(out)
	return out
}

func (s *Store) listArchivedLocked() []models.ArchivedExpense {
	out := make([]models.ArchivedExpense, 0, len(s.archived))
	for _, a := range s.archived {
		c := a
		c.Expense = a.Expense.Clone()
		out = append(out, c)
	}
	storage.SortArchived(out)
	return out
}
