package calculate

import (
	"math"
	"testing"

	"github.com/timmy/ecomatch/internal/domain"
)

func TestCalculateMatchSimple(t *testing.T) {
	entry := domain.CatalogueEntry{
		UUID: "steel", ActivityName: "steel production", Geography: "RER", Unit: "kg",
		Amount: 1, BiogenicFactor: 0.5, CommonFactor: 2.0,
	}
	calc := CalculateMatch(entry, 1, 1, nil)
	if calc.BiogenicKg != 0.5 || calc.TotalKg != 2.0 {
		t.Fatalf("unexpected kg values: %+v", calc)
	}
	if calc.BiogenicT != 0.0005 || calc.TotalT != 0.002 {
		t.Fatalf("unexpected t values: %+v", calc)
	}
}

func TestCalculateMatchNegativeAmountSignFlips(t *testing.T) {
	// A by-product credit row: reference-product amount is negative,
	// so the per-unit factor is divided by |amount| and sign-flipped.
	entry := domain.CatalogueEntry{
		UUID: "byproduct", Amount: -2, BiogenicFactor: 1.0, CommonFactor: 4.0,
	}
	calc := CalculateMatch(entry, 1, 1, nil)
	if calc.BiogenicKg != -0.5 {
		t.Errorf("expected biogenic -0.5 (1.0 / |-2| negated), got %v", calc.BiogenicKg)
	}
	if calc.TotalKg != -2.0 {
		t.Errorf("expected total -2.0 (4.0 / |-2| negated), got %v", calc.TotalKg)
	}
}

func TestCalculateMatchAppliesQuantityAndConversion(t *testing.T) {
	entry := domain.CatalogueEntry{Amount: 1, BiogenicFactor: 0, CommonFactor: 3.0}
	calc := CalculateMatch(entry, 2, 36, nil)
	if calc.TotalKg != 216 { // 3.0 * 36 * 2
		t.Errorf("expected 216, got %v", calc.TotalKg)
	}
}

func TestCalculateMatchDefaultsZeroQuantityAndFactor(t *testing.T) {
	entry := domain.CatalogueEntry{Amount: 1, BiogenicFactor: 0, CommonFactor: 5.0}
	calc := CalculateMatch(entry, 0, 0, nil)
	if calc.Quantity != 1 || calc.ConversionFactor != 1 {
		t.Fatalf("expected defaults of 1, got quantity=%v factor=%v", calc.Quantity, calc.ConversionFactor)
	}
	if calc.TotalKg != 5.0 {
		t.Errorf("expected 5.0, got %v", calc.TotalKg)
	}
}

func TestCalculateDecompositionSumsComponents(t *testing.T) {
	beef := domain.CatalogueEntry{UUID: "beef", ActivityName: "beef production", Amount: 1, BiogenicFactor: 1, CommonFactor: 10}
	bun := domain.CatalogueEntry{UUID: "bun", ActivityName: "bread production", Amount: 1, BiogenicFactor: 0.2, CommonFactor: 2}

	inputs := []ComponentInput{
		{Label: "beef", AssumedQuantity: 0.12, ConversionFactor: 1, Entry: beef},
		{Label: "bun", AssumedQuantity: 0.08, ConversionFactor: 1, Entry: bun},
	}
	decomp := CalculateDecomposition(inputs, []string{"beef: 0.12", "bun: 0.08"})

	wantBio := 1*0.12 + 0.2*0.08
	wantTotal := 10*0.12 + 2*0.08
	if math.Abs(decomp.BiogenicKgSum-wantBio) > 1e-9 {
		t.Errorf("biogenic sum = %v, want %v", decomp.BiogenicKgSum, wantBio)
	}
	if math.Abs(decomp.TotalKgSum-wantTotal) > 1e-9 {
		t.Errorf("total sum = %v, want %v", decomp.TotalKgSum, wantTotal)
	}
	if math.Abs(decomp.TotalT-wantTotal/1000) > 1e-9 {
		t.Errorf("total t = %v, want %v", decomp.TotalT, wantTotal/1000)
	}
	if len(decomp.Components) != 2 {
		t.Fatalf("expected 2 resolved components, got %d", len(decomp.Components))
	}
}
