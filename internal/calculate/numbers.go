// Package calculate implements C5, the emission calculator: turning a
// matched or decomposed catalogue selection into biogenic/common
// CO2-Eq factors and the templated provenance text (Beschreibung,
// Quelle, detailed calculation), §4.5.
package calculate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// truncateToDecimals truncates (never rounds) value to decimals
// decimal places, flooring for positive values and ceiling for
// negative ones, grounded on calculator.py's truncate_to_decimals.
func truncateToDecimals(value float64, decimals int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	factor := math.Pow10(decimals)
	if value >= 0 {
		return math.Floor(value*factor) / factor
	}
	return math.Ceil(value*factor) / factor
}

// FormatNumber renders value truncated to 10 decimals, with a comma
// decimal separator, trailing zeros stripped but at least one decimal
// digit kept — calculator.py's format_number, exactly.
func FormatNumber(value float64) string {
	truncated := truncateToDecimals(value, 10)
	formatted := strconv.FormatFloat(truncated, 'f', 10, 64)

	dot := strings.IndexByte(formatted, '.')
	integerPart, decimalPart := formatted, "0"
	if dot != -1 {
		integerPart = formatted[:dot]
		decimalPart = strings.TrimRight(formatted[dot+1:], "0")
		if decimalPart == "" {
			decimalPart = "0"
		}
	}
	return fmt.Sprintf("%s,%s", integerPart, decimalPart)
}
