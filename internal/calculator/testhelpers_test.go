package calculator

import (
	"testing"

	"github.com/mmynk/splitledger/internal/models"
)

const (
	shubham = "Shubham Jana"
	krishna = "Krishna Kumar"
	suvajit = "Suvajit Jana"
)

var everyone = []string{shubham, krishna, suvajit}

func testRoster(t *testing.T, names ...string) *Roster {
	t.Helper()
	if len(names) == 0 {
		names = everyone
	}
	r, err := NewRoster(names)
	if err != nil {
		t.Fatalf("NewRoster(%v) failed: %v", names, err)
	}
	return r
}

func expense(id string, amount float64, payer string, sharers ...string) models.Expense {
	return models.Expense{
		ID:      id,
		Date:    "2025-01-15",
		Amount:  amount,
		Payer:   payer,
		Sharers: sharers,
	}
}

// applyTransfers returns a copy of net with every transfer applied: the
// payer moves up by the amount and the receiver moves down.
func applyTransfers(net map[string]float64, transfers []Transfer) map[string]float64 {
	out := make(map[string]float64, len(net))
	for k, v := range net {
		out[k] = v
	}
	for _, t := range transfers {
		out[t.From] += t.Amount
		out[t.To] -= t.Amount
	}
	return out
}
