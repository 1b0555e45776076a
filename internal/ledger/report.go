// Package ledger turns store snapshots into settlement reports.
//
// The store notifies subscribers of every change with a full snapshot; the
// Recomputer runs the two pure calculator steps over it and hands the
// resulting Report to its sinks. Nothing is cached between snapshots.
package ledger

import (
	"fmt"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Report is everything the presentation layer needs for one snapshot.
type Report struct {
	// Version is the store version the report was built from.
	Version uint64

	Balances   *calculator.BalanceSheet
	Settlement calculator.Settlement

	// History holds the active expenses, newest first.
	History []models.Expense

	// Archived holds the deleted expenses, most recently deleted first.
	Archived []models.ArchivedExpense

	// TotalExpense is the sum of every active expense.
	TotalExpense float64

	ComputedAt time.Time
}

// Build computes balances and transfers for a snapshot.
func Build(snap *storage.Snapshot, roster *calculator.Roster) (*Report, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot is required")
	}

	sheet, err := calculator.ComputeBalances(snap.Expenses, roster)
	if err != nil {
		return nil, fmt.Errorf("failed to compute balances for version %d: %w", snap.Version, err)
	}

	history := append([]models.Expense(nil), snap.Expenses...)
	storage.SortExpenses(history)
	archived := append([]models.ArchivedExpense(nil), snap.Archived...)
	storage.SortArchived(archived)

	return &Report{
		Version:      snap.Version,
		Balances:     sheet,
		Settlement:   calculator.PlanSettlement(sheet),
		History:      history,
		Archived:     archived,
		TotalExpense: sheet.TotalExpense(),
		ComputedAt:   time.Now(),
	}, nil
}
