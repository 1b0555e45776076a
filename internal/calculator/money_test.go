package calculator

import "testing"

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{100, "100.00"},
		{33.333333, "33.33"},
		{66.666667, "66.67"},
		{0.01, "0.01"},
		{0.004, "0.00"},
		{-0.004, "0.00"},
		{-12.5, "-12.50"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatAmount(tt.in); got != tt.want {
				t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(33.3333); got != 33.33 {
		t.Errorf("Round2(33.3333) = %v, want 33.33", got)
	}
}

func TestIsZero(t *testing.T) {
	for _, x := range []float64{0, 0.004, -0.004, Epsilon, -Epsilon} {
		if !IsZero(x) {
			t.Errorf("IsZero(%v) = false, want true", x)
		}
	}
	for _, x := range []float64{0.011, -0.011, 5} {
		if IsZero(x) {
			t.Errorf("IsZero(%v) = true, want false", x)
		}
	}
}
