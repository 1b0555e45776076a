// Package api defines the request and response messages of the splitledger
// RPC services. Messages travel as JSON.
package api

// Expense is an active or archived expense record.
type Expense struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"`
	Amount      float64  `json:"amount"`
	Payer       string   `json:"payer"`
	Description string   `json:"description,omitempty"`
	Sharers     []string `json:"sharers"`
	CreatedBy   string   `json:"createdBy,omitempty"`
	CreatedAt   int64    `json:"createdAt"`
	// DeletedAt is set only on archived expenses.
	DeletedAt int64 `json:"deletedAt,omitempty"`
}

// Balance is one member's position.
type Balance struct {
	Member     string  `json:"member"`
	TotalPaid  float64 `json:"totalPaid"`
	NetBalance float64 `json:"netBalance"`
	// Standing is "creditor", "debtor" or "neutral".
	Standing string `json:"standing"`
}

// Transfer is one payment instruction.
type Transfer struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type ListMembersRequest struct{}

type ListMembersResponse struct {
	Members []string `json:"members"`
}

type AddExpenseRequest struct {
	Date        string   `json:"date"`
	Amount      float64  `json:"amount"`
	Payer       string   `json:"payer"`
	Description string   `json:"description,omitempty"`
	Sharers     []string `json:"sharers"`
}

type AddExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	ID string `json:"id"`
}

type DeleteExpenseResponse struct {
	Archived *Expense `json:"archived"`
}

type ListExpensesRequest struct{}

type ListExpensesResponse struct {
	Expenses     []*Expense `json:"expenses"`
	TotalExpense float64    `json:"totalExpense"`
}

type ListArchivedRequest struct{}

type ListArchivedResponse struct {
	Archived []*Expense `json:"archived"`
}

type ClearExpensesRequest struct{}

type ClearExpensesResponse struct {
	ArchivedCount int `json:"archivedCount"`
}

type GetSettlementRequest struct{}

type GetSettlementResponse struct {
	Version      uint64      `json:"version"`
	Balances     []*Balance  `json:"balances"`
	Transfers    []*Transfer `json:"transfers"`
	Settled      bool        `json:"settled"`
	TotalExpense float64     `json:"totalExpense"`
	// Instructions are the transfers rendered for display, or the settled
	// message.
	Instructions []string `json:"instructions"`
}
