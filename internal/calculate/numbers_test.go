package calculate

import (
	"math"
	"testing"
)

func TestFormatNumberTruncatesNotRounds(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1.23456789012345, "1,2345678901"},
		{0, "0,0"},
		{2.5, "2,5"},
		{100, "100,0"},
		{-1.999999999999, "-1,9999999999"},
	}
	for _, c := range cases {
		got := FormatNumber(c.in)
		if got != c.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncateToDecimalsNeverRounds(t *testing.T) {
	got := truncateToDecimals(1.999, 2)
	if got != 1.99 {
		t.Errorf("truncateToDecimals(1.999, 2) = %v, want 1.99", got)
	}
}

func TestTruncateToDecimalsNaNPassthrough(t *testing.T) {
	nan := truncateToDecimals(math.NaN(), 10)
	if !math.IsNaN(nan) {
		t.Errorf("expected NaN to pass through unchanged, got %v", nan)
	}
}
