package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
)

// BalanceView is the JSON form of one member's balance.
type BalanceView struct {
	Member     string  `json:"member"`
	TotalPaid  float64 `json:"total_paid"`
	NetBalance float64 `json:"net_balance"`
	Standing   string  `json:"standing"`
}

// TransferView is the JSON form of one transfer.
type TransferView struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

// ExpenseView is the JSON form of an active or archived expense.
type ExpenseView struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"`
	Amount      float64  `json:"amount"`
	Payer       string   `json:"payer"`
	Description string   `json:"description,omitempty"`
	Sharers     []string `json:"sharers"`
	Share       float64  `json:"share_per_person"`
	CreatedBy   string   `json:"created_by,omitempty"`
	CreatedAt   int64    `json:"created_at"`
	DeletedAt   int64    `json:"deleted_at,omitempty"`
}

// View is the JSON form of a full report.
type View struct {
	Version      uint64         `json:"version"`
	ComputedAt   time.Time      `json:"computed_at"`
	Settled      bool           `json:"settled"`
	TotalExpense float64        `json:"total_expense"`
	Balances     []BalanceView  `json:"balances"`
	Transfers    []TransferView `json:"transfers"`
	History      []ExpenseView  `json:"history"`
	Archived     []ExpenseView  `json:"archived"`

	// Stale is set when newer changes exist that could not be computed.
	Stale bool   `json:"stale"`
	Error string `json:"error,omitempty"`
}

// NewBalanceViews converts a balance sheet, rounding to cents.
func NewBalanceViews(sheet *calculator.BalanceSheet) []BalanceView {
	members := sheet.Members()
	views := make([]BalanceView, len(members))
	for i, b := range members {
		views[i] = BalanceView{
			Member:     b.Member,
			TotalPaid:  calculator.Round2(b.TotalPaid),
			NetBalance: b.DisplayNet(),
			Standing:   b.Standing().String(),
		}
	}
	return views
}

// NewTransferViews converts transfers. The result is never nil.
func NewTransferViews(transfers []calculator.Transfer) []TransferView {
	views := make([]TransferView, len(transfers))
	for i, t := range transfers {
		views[i] = TransferView{From: t.From, To: t.To, Amount: t.Amount}
	}
	return views
}

// NewExpenseView converts an active expense.
func NewExpenseView(e models.Expense) ExpenseView {
	return ExpenseView{
		ID:          e.ID,
		Date:        e.Date,
		Amount:      e.Amount,
		Payer:       e.Payer,
		Description: e.Description,
		Sharers:     append([]string{}, e.Sharers...),
		Share:       calculator.Round2(e.SharePerPerson()),
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

// NewArchivedView converts an archived expense.
func NewArchivedView(a models.ArchivedExpense) ExpenseView {
	v := NewExpenseView(a.Expense)
	v.DeletedAt = a.DeletedAt
	return v
}

// NewView converts a report.
func NewView(r *ledger.Report) View {
	v := View{
		Version:      r.Version,
		ComputedAt:   r.ComputedAt,
		Settled:      r.Settlement.Settled,
		TotalExpense: calculator.Round2(r.TotalExpense),
		Balances:     NewBalanceViews(r.Balances),
		Transfers:    NewTransferViews(r.Settlement.Transfers),
		History:      make([]ExpenseView, len(r.History)),
		Archived:     make([]ExpenseView, len(r.Archived)),
	}
	for i, e := range r.History {
		v.History[i] = NewExpenseView(e)
	}
	for i, a := range r.Archived {
		v.Archived[i] = NewArchivedView(a)
	}
	return v
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
