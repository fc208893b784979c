package calculate

import (
	"fmt"
	"strings"

	"github.com/timmy/ecomatch/internal/domain"
)

// MaxChars bounds Beschreibung and Quelle, §2C/§4.5.
const MaxChars = 1000

// ErrOutputTooLong is returned by BuildQuelle when the deduplicated
// UUID list would not fit within MaxChars. A hard failure rather than
// silent truncation, grounded on output_builder.py's build_quelle.
type ErrOutputTooLong struct {
	Field        string
	ActualLength int
	MaxLength    int
}

func (e *ErrOutputTooLong) Error() string {
	return fmt.Sprintf("%s exceeds %d char limit (%d chars)", e.Field, e.MaxLength, e.ActualLength)
}

// BuildBeschreibungMatch renders the one-sentence match summary,
// grounded on output_builder.py's build_beschreibung_match.
func BuildBeschreibungMatch(referenzeinheit string, calc MatchCalc) string {
	conversionNote := ""
	if calc.UnitConversion != nil {
		conversionNote = fmt.Sprintf(" [Umrechnung: %s]", calc.UnitConversion.Explanation)
	}

	quantityNote := ""
	if calc.Quantity != 1 {
		quantityNote = fmt.Sprintf("%g", calc.Quantity)
	}

	desc := fmt.Sprintf(
		"1 %s = %s (%s); Common: %s t CO2-Eq (%s kg × 1/%s1000); Biogen: %s t CO2-Eq; Einheit: %s%s",
		referenzeinheit,
		calc.ActivityName, calc.Geography,
		FormatNumber(calc.TotalT), FormatNumber(calc.TotalKg), quantityNote,
		FormatNumber(calc.BiogenicT),
		calc.Unit,
		conversionNote,
	)
	return collapseSpaces(desc)
}

// BuildBeschreibungDecomp renders the decomposition summary, with
// each component's activity name truncated to 40 chars, grounded on
// output_builder.py's build_beschreibung_decomp.
func BuildBeschreibungDecomp(referenzeinheit string, decomp DecompCalc) string {
	parts := make([]string, 0, len(decomp.Components))
	for _, c := range decomp.Components {
		activity := c.MatchedActivity
		if len(activity) > 40 {
			activity = activity[:40] + "..."
		}
		parts = append(parts, fmt.Sprintf("%s (%g %s)", activity, c.AssumedQuantity, c.AssumedUnit))
	}
	desc := fmt.Sprintf("1 %s = Zerlegung: %s", referenzeinheit, strings.Join(parts, " + "))
	return collapseSpaces(desc)
}

// BuildQuelle renders "ecoinvent <version>; UUIDs: ..." from a
// deduplicated, order-preserving UUID list capped at 10 entries, and
// hard-fails with ErrOutputTooLong rather than truncating, grounded
// on output_builder.py's build_quelle.
func BuildQuelle(catalogueVersion string, uuids []string) (string, error) {
	deduped := dedupUUIDs(uuids)
	if len(deduped) > 10 {
		deduped = deduped[:10]
	}
	quelle := fmt.Sprintf("ecoinvent %s; UUIDs: %s", catalogueVersion, strings.Join(deduped, ", "))
	if len(quelle) > MaxChars {
		return "", &ErrOutputTooLong{Field: "Quelle", ActualLength: len(quelle), MaxLength: MaxChars}
	}
	return quelle, nil
}

func dedupUUIDs(uuids []string) []string {
	seen := make(map[string]bool, len(uuids))
	out := make([]string, 0, len(uuids))
	for _, u := range uuids {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// BuildDetailedCalculationMatch renders the full line-by-line
// reproduction of a match's inputs and arithmetic, grounded on
// output_builder.py's build_detailed_calculation_match.
func BuildDetailedCalculationMatch(row domain.InputRow, calc MatchCalc) string {
	var b strings.Builder
	writeLines(&b,
		"=== Detailed Calculation ===",
		"",
		"Input: "+row.Bezeichnung,
		"Produktinformationen: "+row.Produktinformationen,
		"Referenzeinheit: "+row.Referenzeinheit,
		"Region: "+orDefault(row.RegionNorm, "GLO"),
		"",
		"--- Matched Dataset ---",
		"UUID: "+calc.UUID,
		"Activity: "+calc.ActivityName,
		"Geography: "+calc.Geography,
		"Unit: "+calc.Unit,
		fmt.Sprintf("Quantity: %g", calc.Quantity),
	)

	if calc.UnitConversion != nil {
		writeLines(&b,
			"",
			"--- Unit Conversion ---",
			"Reference unit: "+row.Referenzeinheit,
			"Dataset unit: "+calc.Unit,
			fmt.Sprintf("Conversion factor: %g", calc.ConversionFactor),
			"Explanation: "+calc.UnitConversion.Explanation,
		)
	}

	writeLines(&b,
		"",
		"--- Calculation ---",
		fmt.Sprintf("Biogenic [kg CO2-Eq]: %g", calc.BiogenicKg),
		fmt.Sprintf("  = DB value x %g = %g kg", calc.Quantity, calc.BiogenicKg),
		fmt.Sprintf("  = %g / 1000 = %g t CO2-Eq", calc.BiogenicKg, calc.BiogenicT),
		"  Formatted: "+FormatNumber(calc.BiogenicT)+" t CO2-Eq",
		"",
		fmt.Sprintf("Total excl. biogenic [kg CO2-Eq]: %g", calc.TotalKg),
		fmt.Sprintf("  = DB value x %g = %g kg", calc.Quantity, calc.TotalKg),
		fmt.Sprintf("  = %g / 1000 = %g t CO2-Eq", calc.TotalKg, calc.TotalT),
		"  Formatted: "+FormatNumber(calc.TotalT)+" t CO2-Eq",
	)

	return b.String()
}

// BuildDetailedCalculationDecomp renders the full line-by-line
// reproduction of a decomposition's assumptions, components and
// totals, grounded on output_builder.py's
// build_detailed_calculation_decomp.
func BuildDetailedCalculationDecomp(row domain.InputRow, decomp DecompCalc) string {
	var b strings.Builder
	writeLines(&b,
		"=== Detailed Calculation (Decomposition) ===",
		"",
		"Input: "+row.Bezeichnung,
		"Produktinformationen: "+row.Produktinformationen,
		"Referenzeinheit: "+row.Referenzeinheit,
		"Region: "+orDefault(row.RegionNorm, "GLO"),
		"",
		"--- Assumptions ---",
	)
	for _, a := range decomp.Assumptions {
		writeLines(&b, "  - "+a)
	}

	writeLines(&b, "", "--- Components ---")
	for _, c := range decomp.Components {
		writeLines(&b,
			"",
			"  ["+c.ComponentLabel+"]",
			"  UUID: "+c.MatchedUUID,
			"  Activity: "+c.MatchedActivity,
			"  Geography: "+c.MatchedGeography,
			fmt.Sprintf("  Quantity: %g %s", c.AssumedQuantity, c.AssumedUnit),
			fmt.Sprintf("  Biogenic: %g kg CO2-Eq", c.ScaledBiogenicKg),
			fmt.Sprintf("  Total excl. biogenic: %g kg CO2-Eq", c.ScaledTotalKg),
		)
	}

	writeLines(&b,
		"",
		"--- Totals ---",
		fmt.Sprintf("Sum biogenic [kg]: %g", decomp.BiogenicKgSum),
		fmt.Sprintf("Sum total excl. biogenic [kg]: %g", decomp.TotalKgSum),
		"",
		fmt.Sprintf("Biogenic [t CO2-Eq]: %g / 1000 = %g", decomp.BiogenicKgSum, decomp.BiogenicT),
		"  Formatted: "+FormatNumber(decomp.BiogenicT),
		fmt.Sprintf("Total excl. biogenic [t CO2-Eq]: %g / 1000 = %g", decomp.TotalKgSum, decomp.TotalT),
		"  Formatted: "+FormatNumber(decomp.TotalT),
	)

	return b.String()
}

func writeLines(b *strings.Builder, lines ...string) {
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
