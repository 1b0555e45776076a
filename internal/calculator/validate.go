package calculator

import (
	"fmt"
	"math"
	"time"

	"github.com/mmynk/splitledger/internal/models"
)

// ValidateExpense checks a new expense before it is stored. ComputeBalances
// assumes every stored record passed this check.
func ValidateExpense(e models.Expense, roster *Roster) error {
	if roster == nil {
		return ErrNoRoster
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) || e.Amount <= 0 {
		return &InvalidRecordError{RecordID: e.ID, Err: fmt.Errorf("%w: got %v", ErrInvalidAmount, e.Amount)}
	}
	if _, err := time.Parse(models.DateLayout, e.Date); err != nil {
		return &InvalidRecordError{RecordID: e.ID, Err: fmt.Errorf("%w: got %q", ErrInvalidDate, e.Date)}
	}
	if !roster.Contains(e.Payer) {
		return &UnknownMemberError{RecordID: e.ID, Member: e.Payer, Role: RolePayer}
	}
	if len(e.Sharers) == 0 {
		return &InvalidRecordError{RecordID: e.ID, Err: ErrNoSharers}
	}

	seen := make(map[string]bool, len(e.Sharers))
	for _, s := range e.Sharers {
		if !roster.Contains(s) {
			return &UnknownMemberError{RecordID: e.ID, Member: s, Role: RoleSharer}
		}
		if seen[s] {
			return &InvalidRecordError{RecordID: e.ID, Err: fmt.Errorf("%w: %q", ErrDuplicateSharer, s)}
		}
		seen[s] = true
	}
	return nil
}
