package calculate

import (
	"strings"
	"testing"

	"github.com/timmy/ecomatch/internal/domain"
)

func TestBuildBeschreibungMatchQuantityOneQuirk(t *testing.T) {
	calc := MatchCalc{
		ActivityName: "steel production", Geography: "RER", Unit: "kg",
		Quantity: 1, BiogenicKg: 500, TotalKg: 2000, BiogenicT: 0.5, TotalT: 2,
	}
	desc := BuildBeschreibungMatch("kg", calc)
	if !strings.Contains(desc, "1/1000") {
		t.Errorf("expected literal 1/1000 for quantity=1, got %q", desc)
	}
}

func TestBuildBeschreibungMatchQuantityConcatenatesDigits(t *testing.T) {
	calc := MatchCalc{
		ActivityName: "diesel, burned", Geography: "RER", Unit: "MJ",
		Quantity: 2, BiogenicKg: 0, TotalKg: 216, BiogenicT: 0, TotalT: 0.216,
	}
	desc := BuildBeschreibungMatch("Liter", calc)
	if !strings.Contains(desc, "1/21000") {
		t.Errorf("expected quantity digits concatenated before 1000 (1/21000), got %q", desc)
	}
}

func TestBuildBeschreibungMatchIncludesConversionNote(t *testing.T) {
	calc := MatchCalc{
		ActivityName: "diesel, burned", Geography: "RER", Unit: "MJ", Quantity: 1,
		UnitConversion: &domain.UnitConversion{Factor: 36, Explanation: "1 l diesel = 36 MJ"},
	}
	desc := BuildBeschreibungMatch("Liter", calc)
	if !strings.Contains(desc, "Umrechnung: 1 l diesel = 36 MJ") {
		t.Errorf("expected conversion note in description, got %q", desc)
	}
}

func TestBuildBeschreibungDecompTruncatesLongActivityNames(t *testing.T) {
	long := strings.Repeat("a", 60)
	decomp := DecompCalc{
		Components: []domain.ResolvedComponent{
			{MatchedActivity: long, AssumedQuantity: 0.5, AssumedUnit: "kg"},
		},
	}
	desc := BuildBeschreibungDecomp("unit", decomp)
	if !strings.Contains(desc, strings.Repeat("a", 40)+"...") {
		t.Errorf("expected activity name truncated to 40 chars, got %q", desc)
	}
}

func TestBuildQuelleDedupsAndCapsAtTen(t *testing.T) {
	uuids := []string{"a", "b", "a", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
	quelle, err := BuildQuelle("3.11", uuids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(quelle, "ecoinvent 3.11; UUIDs:") {
		t.Errorf("unexpected quelle prefix: %q", quelle)
	}
	count := strings.Count(quelle, ",") + 1
	if count != 10 {
		t.Errorf("expected 10 uuids after dedup+cap, got %d in %q", count, quelle)
	}
}

func TestBuildQuelleFailsHardWhenTooLong(t *testing.T) {
	uuids := make([]string, 10)
	for i := range uuids {
		uuids[i] = strings.Repeat("x", 200)
	}
	_, err := BuildQuelle("3.11", uuids)
	if err == nil {
		t.Fatal("expected ErrOutputTooLong")
	}
	if _, ok := err.(*ErrOutputTooLong); !ok {
		t.Errorf("expected *ErrOutputTooLong, got %T", err)
	}
}
