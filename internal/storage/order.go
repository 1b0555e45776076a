package storage

import (
	"cmp"
	"slices"

	"github.com/mmynk/splitledger/internal/models"
)

// SortExpenses orders expenses newest first, ties broken by ID.
func SortExpenses(expenses []models.Expense) {
	slices.SortFunc(expenses, func(a, b models.Expense) int {
		return cmp.Or(
			cmp.Compare(b.CreatedAt, a.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

// SortArchived orders archived expenses most recently deleted first.
func SortArchived(archived []models.ArchivedExpense) {
	slices.SortFunc(archived, func(a, b models.ArchivedExpense) int {
		return cmp.Or(
			cmp.Compare(b.DeletedAt, a.DeletedAt),
			cmp.Compare(b.CreatedAt, a.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
}
