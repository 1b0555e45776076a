package calculator

import (
	"math"
	"strconv"
)

// Epsilon is the currency threshold below which an amount is treated as zero.
const Epsilon = 0.01

// Round2 rounds x to 2 fractional digits (cents).
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// IsZero reports whether x is within Epsilon of zero. A balance for which
// IsZero holds is neutral and never takes part in a transfer.
func IsZero(x float64) bool {
	return math.Abs(x) <= Epsilon
}

// FormatAmount renders x with exactly 2 decimals, never as "-0.00".
func FormatAmount(x float64) string {
	r := Round2(x)
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', 2, 64)
}
