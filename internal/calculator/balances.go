package calculator

import (
	"github.com/mmynk/splitledger/internal/models"
)

// MemberBalance represents the balance information for one roster member.
type MemberBalance struct {
	Member     string
	TotalPaid  float64 // Total amount paid across all expenses
	NetBalance float64 // Positive = owed money, Negative = owes money
}

// Standing classifies a balance for settlement and display.
type Standing int

const (
	Neutral Standing = iota
	Creditor
	Debtor
)

func (s Standing) String() string {
	switch s {
	case Creditor:
		return "creditor"
	case Debtor:
		return "debtor"
	default:
		return "neutral"
	}
}

// Standing reports whether the member is owed money, owes money or is even.
func (b MemberBalance) Standing() Standing {
	switch {
	case IsZero(b.NetBalance):
		return Neutral
	case b.NetBalance > 0:
		return Creditor
	default:
		return Debtor
	}
}

// DisplayNet returns the net balance rounded to cents, or exactly 0 for a
// neutral member.
func (b MemberBalance) DisplayNet() float64 {
	if b.Standing() == Neutral {
		return 0
	}
	return Round2(b.NetBalance)
}

// BalanceSheet holds one MemberBalance per roster member, in roster order.
// It is fixed-shape: there is no way to add a member after construction.
type BalanceSheet struct {
	roster   *Roster
	balances []MemberBalance
}

func newBalanceSheet(roster *Roster) *BalanceSheet {
	sheet := &BalanceSheet{
		roster:   roster,
		balances: make([]MemberBalance, roster.Len()),
	}
	for i, m := range roster.members {
		sheet.balances[i] = MemberBalance{Member: m}
	}
	return sheet
}

// Members returns a copy of all balances in roster order.
func (b *BalanceSheet) Members() []MemberBalance {
	return append([]MemberBalance(nil), b.balances...)
}

// Get returns the balance of one member.
func (b *BalanceSheet) Get(member string) (MemberBalance, bool) {
	i, ok := b.roster.Index(member)
	if !ok {
		return MemberBalance{}, false
	}
	return b.balances[i], true
}

// Net returns the member -> net balance mapping.
func (b *BalanceSheet) Net() map[string]float64 {
	net := make(map[string]float64, len(b.balances))
	for _, bal := range b.balances {
		net[bal.Member] = bal.NetBalance
	}
	return net
}

// Sum returns the sum of all net balances. Always zero up to float noise.
func (b *BalanceSheet) Sum() float64 {
	var sum float64
	for _, bal := range b.balances {
		sum += bal.NetBalance
	}
	return sum
}

// TotalExpense returns the total amount paid by the whole group.
func (b *BalanceSheet) TotalExpense() float64 {
	var total float64
	for _, bal := range b.balances {
		total += bal.TotalPaid
	}
	return total
}

// ComputeBalances derives every roster member's total paid and net balance
// from the given expenses. Records are only read, never modified.
//
// Algorithm:
//   - payer: totalPaid += amount, netBalance += amount
//   - each sharer: netBalance -= amount / len(sharers)
//
// A payer who also shares the expense gets both adjustments, so they still
// owe their own portion. Expenses naming someone outside the roster fail
// with *UnknownMemberError instead of creating a new balance entry.
func ComputeBalances(records []models.Expense, roster *Roster) (*BalanceSheet, error) {
	if roster == nil {
		return nil, ErrNoRoster
	}

	sheet := newBalanceSheet(roster)

	for _, rec := range records {
		payer, ok := roster.Index(rec.Payer)
		if !ok {
			return nil, &UnknownMemberError{RecordID: rec.ID, Member: rec.Payer, Role: RolePayer}
		}

		shares, err := CalculateSplit(rec.Amount, rec.Sharers)
		if err != nil {
			return nil, &InvalidRecordError{RecordID: rec.ID, Err: err}
		}

		// Resolve sharers against the roster
		idx := make([]int, len(shares))
		for i, share := range shares {
			j, ok := roster.Index(share.Member)
			if !ok {
				return nil, &UnknownMemberError{RecordID: rec.ID, Member: share.Member, Role: RoleSharer}
			}
			idx[i] = j
		}

		// Payer paid the full amount
		sheet.balances[payer].TotalPaid += rec.Amount

		// Each sharer owes their share
		for i, share := range shares {
			sheet.balances[idx[i]].NetBalance -= share.Amount
		}

		// Payer gets credit for the full amount
		sheet.balances[payer].NetBalance += rec.Amount
	}

	return sheet, nil
}
