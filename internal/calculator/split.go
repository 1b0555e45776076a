package calculator

// PersonShare represents the calculated share of one expense for one person.
type PersonShare struct {
	Member string
	Amount float64
}

// CalculateSplit divides amount equally among sharers, keeping their order.
// The divisor is the number of sharers on the record; an expense is never
// re-split after it was authored. Amount is not validated here, see
// ValidateExpense.
func CalculateSplit(amount float64, sharers []string) ([]PersonShare, error) {
	if len(sharers) == 0 {
		return nil, ErrNoSharers
	}

	perPerson := amount / float64(len(sharers))
	shares := make([]PersonShare, len(sharers))
	for i, s := range sharers {
		shares[i] = PersonShare{Member: s, Amount: perPerson}
	}
	return shares, nil
}
