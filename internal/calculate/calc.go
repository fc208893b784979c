package calculate

import "github.com/timmy/ecomatch/internal/domain"

// MatchCalc is the calculated result for one direct catalogue match
// (or one decomposition component), §4.5.
type MatchCalc struct {
	UUID             string
	ActivityName     string
	Geography        string
	Unit             string
	Quantity         float64
	ConversionFactor float64
	BiogenicKg       float64
	TotalKg          float64
	BiogenicT        float64
	TotalT           float64
	UnitConversion   *domain.UnitConversion
}

// DecompCalc is the summed result across a decomposition's resolved
// components, §4.5.
type DecompCalc struct {
	Components    []domain.ResolvedComponent
	Assumptions   []string
	BiogenicKgSum float64
	TotalKgSum    float64
	BiogenicT     float64
	TotalT        float64
}

// CalculateMatch scales entry's per-unit factors by quantity and
// conversionFactor (q, 1.0 when no unit conversion applies),
// accounting for a signed reference-product amount: by-product credit
// rows carry amount < 0, and their per-unit factor is the dataset
// value divided by |amount| and sign-flipped, grounded on
// calculator.py's calculate_match.
func CalculateMatch(entry domain.CatalogueEntry, quantity, conversionFactor float64, conversion *domain.UnitConversion) MatchCalc {
	if quantity == 0 {
		quantity = 1
	}
	if conversionFactor == 0 {
		conversionFactor = 1
	}

	var perUnitBio, perUnitTotal float64
	if entry.Amount != 0 {
		abs := float64(entry.Amount)
		if abs < 0 {
			abs = -abs
		}
		perUnitBio = entry.BiogenicFactor / abs
		perUnitTotal = entry.CommonFactor / abs
		if entry.Amount < 0 {
			perUnitBio = -perUnitBio
			perUnitTotal = -perUnitTotal
		}
	}

	biogenicKg := perUnitBio * conversionFactor * quantity
	totalKg := perUnitTotal * conversionFactor * quantity

	return MatchCalc{
		UUID:             entry.UUID,
		ActivityName:     entry.ActivityName,
		Geography:        entry.Geography,
		Unit:             entry.Unit,
		Quantity:         quantity,
		ConversionFactor: conversionFactor,
		BiogenicKg:       biogenicKg,
		TotalKg:          totalKg,
		BiogenicT:        biogenicKg / 1000,
		TotalT:           totalKg / 1000,
		UnitConversion:   conversion,
	}
}

// ComponentInput is one decomposition component ready for
// calculation: an assumed quantity/unit paired with its resolved
// catalogue entry.
type ComponentInput struct {
	Label            string
	AssumedQuantity  float64
	AssumedUnit      string
	Entry            domain.CatalogueEntry
	ConversionFactor float64
}

// CalculateDecomposition sums CalculateMatch across every resolved
// component, grounded on calculator.py's calculate_decomposition.
func CalculateDecomposition(components []ComponentInput, assumptions []string) DecompCalc {
	resolved := make([]domain.ResolvedComponent, 0, len(components))
	var totalBio, totalTotal float64

	for _, c := range components {
		calc := CalculateMatch(c.Entry, c.AssumedQuantity, c.ConversionFactor, nil)
		resolved = append(resolved, domain.ResolvedComponent{
			ComponentLabel:   c.Label,
			AssumedQuantity:  c.AssumedQuantity,
			AssumedUnit:      c.AssumedUnit,
			MatchedUUID:      c.Entry.UUID,
			MatchedActivity:  c.Entry.ActivityName,
			MatchedGeography: c.Entry.Geography,
			ScaledBiogenicKg: calc.BiogenicKg,
			ScaledTotalKg:    calc.TotalKg,
		})
		totalBio += calc.BiogenicKg
		totalTotal += calc.TotalKg
	}

	return DecompCalc{
		Components:    resolved,
		Assumptions:   assumptions,
		BiogenicKgSum: totalBio,
		TotalKgSum:    totalTotal,
		BiogenicT:     totalBio / 1000,
		TotalT:        totalTotal / 1000,
	}
}

