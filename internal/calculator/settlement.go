package calculator

import (
	"cmp"
	"math"
	"slices"
)

// Transfer represents one recommended payment from a debtor to a creditor.
type Transfer struct {
	From   string  // Person who owes
	To     string  // Person who is owed
	Amount float64 // Rounded to cents
}

// Settlement is the output of PlanSettlement.
//
// The zero value means "not computed yet". A computed settlement with
// Settled set and no transfers means every balance is already within
// Epsilon of zero.
type Settlement struct {
	Transfers []Transfer
	Settled   bool
	Computed  bool
}

// TotalTransferred returns the sum of all transfer amounts.
func (s Settlement) TotalTransferred() float64 {
	var total float64
	for _, t := range s.Transfers {
		total += t.Amount
	}
	return total
}

// party is a debtor or creditor with the amount still to be matched.
type party struct {
	name   string
	amount float64
}

// PlanSettlement turns the balances into a short list of transfers that
// zero out every balance.
func PlanSettlement(sheet *BalanceSheet) Settlement {
	if sheet == nil {
		return Settlement{}
	}
	debtors, creditors := classify(sheet.balances)
	return match(debtors, creditors)
}

// PlanSettlementFromNet is PlanSettlement for callers holding a plain
// member -> net balance mapping.
func PlanSettlementFromNet(net map[string]float64) Settlement {
	balances := make([]MemberBalance, 0, len(net))
	for member, amount := range net {
		balances = append(balances, MemberBalance{Member: member, NetBalance: amount})
	}
	debtors, creditors := classify(balances)
	return match(debtors, creditors)
}

// classify splits balances into debtors and creditors, both holding
// positive amounts, sorted largest first. Equal amounts are ordered by
// member name so the result never depends on input order.
func classify(balances []MemberBalance) (debtors, creditors []party) {
	for _, bal := range balances {
		switch bal.Standing() {
		case Creditor:
			creditors = append(creditors, party{name: bal.Member, amount: bal.NetBalance})
		case Debtor:
			debtors = append(debtors, party{name: bal.Member, amount: -bal.NetBalance})
		}
	}

	byAmountDesc := func(a, b party) int {
		if c := cmp.Compare(b.amount, a.amount); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	}
	slices.SortFunc(debtors, byAmountDesc)
	slices.SortFunc(creditors, byAmountDesc)
	return debtors, creditors
}

// match runs the greedy two-pointer sweep: the largest remaining debtor pays
// the largest remaining creditor as much as possible, then whoever is fully
// settled drops out. This is a heuristic; it does not always find the global
// minimum number of transfers, but it never emits more than
// len(debtors)+len(creditors)-1 of them.
func match(debtors, creditors []party) Settlement {
	if len(debtors) == 0 && len(creditors) == 0 {
		return Settlement{Settled: true, Computed: true}
	}

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		// Amount to settle is minimum of what debtor owes and creditor is owed
		amount := math.Min(debtor.amount, creditor.amount)

		if amount > Epsilon { // Avoid floating point noise
			transfers = append(transfers, Transfer{
				From:   debtor.name,
				To:     creditor.name,
				Amount: Round2(amount),
			})
		}

		debtor.amount -= amount
		creditor.amount -= amount

		// Move to next debtor/creditor if fully settled
		if debtor.amount < Epsilon {
			i++
		}
		if creditor.amount < Epsilon {
			j++
		}
	}

	return Settlement{Transfers: transfers, Computed: true}
}
