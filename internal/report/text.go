// Package report renders ledger reports for people: plain-text tables for
// the CLI, JSON for scripts and an HTML dashboard for browsers.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
)

// SettledMessage is shown when no transfers are needed.
const SettledMessage = "All accounts are settled!"

// NotComputedMessage is shown before the first report exists.
const NotComputedMessage = "Calculating..."

// Formatter renders amounts with an optional currency label.
type Formatter struct {
	// Currency is appended to every amount, e.g. "100.00 INR".
	Currency string
}

// Amount formats x with two decimals and the currency label.
func (f Formatter) Amount(x float64) string {
	s := calculator.FormatAmount(x)
	if f.Currency == "" {
		return s
	}
	return s + " " + f.Currency
}

// NetResult describes a member's balance as "Receives X", "Owes X" or
// "Neutral".
func (f Formatter) NetResult(b calculator.MemberBalance) string {
	switch b.Standing() {
	case calculator.Creditor:
		return "Receives " + f.Amount(b.NetBalance)
	case calculator.Debtor:
		return "Owes " + f.Amount(-b.NetBalance)
	default:
		return "Neutral"
	}
}

// Instruction renders a transfer as "A pays B 100.00".
func (f Formatter) Instruction(t calculator.Transfer) string {
	return fmt.Sprintf("%s pays %s %s", t.From, t.To, f.Amount(t.Amount))
}

// Instructions returns the settlement as display lines. A settled or
// uncomputed settlement yields the matching single message.
func (f Formatter) Instructions(s calculator.Settlement) []string {
	switch {
	case !s.Computed:
		return []string{NotComputedMessage}
	case s.Settled:
		return []string{SettledMessage}
	}
	lines := make([]string, len(s.Transfers))
	for i, t := range s.Transfers {
		lines[i] = f.Instruction(t)
	}
	return lines
}

// Total renders the total group expense line.
func (f Formatter) Total(total float64) string {
	return "Total group expense: " + f.Amount(total)
}

// Sharers joins sharer names for a table cell.
func Sharers(sharers []string) string {
	return strings.Join(sharers, ", ")
}

// FormatMillis renders a Unix millisecond timestamp in local time.
func FormatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteBalances writes the balance table followed by the total line.
func (f Formatter) WriteBalances(w io.Writer, sheet *calculator.BalanceSheet) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "MEMBER\tPAID\tNET RESULT")
	for _, b := range sheet.Members() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Member, f.Amount(b.TotalPaid), f.NetResult(b))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", f.Total(sheet.TotalExpense()))
	return err
}

// WriteSettlement writes one instruction per line.
func (f Formatter) WriteSettlement(w io.Writer, s calculator.Settlement) error {
	for _, line := range f.Instructions(s) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// WriteHistory writes the expense table in the given order.
func (f Formatter) WriteHistory(w io.Writer, expenses []models.Expense) error {
	if len(expenses) == 0 {
		_, err := fmt.Fprintln(w, "No expenses recorded.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tAMOUNT\tPAID BY\tSHARED BY")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date, e.Description, f.Amount(e.Amount), e.Payer, Sharers(e.Sharers))
	}
	return tw.Flush()
}

// WriteArchive writes the archived expense table with deletion times.
func (f Formatter) WriteArchive(w io.Writer, archived []models.ArchivedExpense) error {
	if len(archived) == 0 {
		_, err := fmt.Fprintln(w, "Archive is empty.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tAMOUNT\tPAID BY\tSHARED BY\tDELETED AT")
	for _, a := range archived {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Date, a.Description, f.Amount(a.Amount), a.Payer, Sharers(a.Sharers), FormatMillis(a.DeletedAt))
	}
	return tw.Flush()
}

// WriteReport writes balances, instructions and history as one document.
func (f Formatter) WriteReport(w io.Writer, r *ledger.Report) error {
	if r == nil {
		_, err := fmt.Fprintln(w, NotComputedMessage)
		return err
	}
	if _, err := fmt.Fprintln(w, "BALANCES"); err != nil {
		return err
	}
	if err := f.WriteBalances(w, r.Balances); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "\nSETTLEMENT"); err != nil {
		return err
	}
	if err := f.WriteSettlement(w, r.Settlement); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "\nHISTORY"); err != nil {
		return err
	}
	return f.WriteHistory(w, r.History)
}
