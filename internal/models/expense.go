package models

// DateLayout is the calendar date format used by Expense.Date.
const DateLayout = "2006-01-02"

// Expense represents one shared cost event.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	// Assigned by the store on creation.
	ID string

	// Date is the calendar date of the expense (YYYY-MM-DD).
	Date string

	// Amount is the total paid, always positive.
	Amount float64

	// Payer is the roster member who paid the full amount.
	Payer string

	// Description is free text entered with the expense.
	Description string

	// Sharers is the list of roster members splitting the cost equally.
	// Order is preserved for display only.
	Sharers []string

	// CreatedBy is the user ID that recorded the expense, if known.
	CreatedBy string

	// CreatedAt is the Unix timestamp in milliseconds when the expense was
	// recorded. Used for newest-first ordering.
	CreatedAt int64
}

// SharePerPerson returns the equal share each sharer owes.
// Returns 0 when the expense has no sharers.
func (e Expense) SharePerPerson() float64 {
	if len(e.Sharers) == 0 {
		return 0
	}
	return e.Amount / float64(len(e.Sharers))
}

// Clone returns a deep copy so callers can hand snapshots around without
// sharing the Sharers backing array.
func (e Expense) Clone() Expense {
	c := e
	c.Sharers = append([]string(nil), e.Sharers...)
	return c
}

// ArchivedExpense is an expense that has been deleted.
// It never participates in balance calculations.
type ArchivedExpense struct {
	Expense

	// DeletedAt is the Unix timestamp in milliseconds when the expense was
	// moved to the archive. Immutable.
	DeletedAt int64
}
