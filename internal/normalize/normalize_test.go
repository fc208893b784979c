package normalize

import (
	"testing"

	"github.com/timmy/ecomatch/internal/domain"
)

func TestNormaliseText(t *testing.T) {
	cases := map[string]string{
		"  Stahl  ":        "stahl",
		"Düngemittel":       "dungemittel",
		"Straße":            "strasse",
		"Büro  Material":    "buro material",
	}
	for in, want := range cases {
		if got := NormaliseText(in); got != want {
			t.Errorf("NormaliseText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormaliseRegion(t *testing.T) {
	cases := map[string]string{
		"":            "GLO",
		"Deutschland": "DE",
		"Europa":      "RER",
		"Absurdistan": "Absurdistan",
	}
	for in, want := range cases {
		if got := NormaliseRegion(in); got != want {
			t.Errorf("NormaliseRegion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormaliseUnitKnown(t *testing.T) {
	cases := map[string]string{
		"Stück":            "unit",
		"Liter":            "l",
		"kg":               "kg",
		"Kilowattstunde":   "kWh",
		"Quadratmeter":     "m2",
		"Kubikmeter":       "m3",
		"Kilometer":        "km",
		"Hektar":           "ha",
		"Stunde":           "hour",
		"MJ":               "MJ",
	}
	for in, want := range cases {
		got, ok := NormaliseUnit(in)
		if !ok {
			t.Errorf("NormaliseUnit(%q) unexpectedly unmapped", in)
			continue
		}
		if got != want {
			t.Errorf("NormaliseUnit(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormaliseUnitUnknown(t *testing.T) {
	if _, ok := NormaliseUnit("Faß"); ok {
		t.Errorf("expected Faß to be unmapped")
	}
}

func TestNormaliseRowUnknownUnit(t *testing.T) {
	row := domain.InputRow{Bezeichnung: "Irgendwas", Referenzeinheit: "Faß"}
	_, err := Normalise(row)
	if err == nil {
		t.Fatalf("expected error for unknown unit")
	}
	kind, ok := domain.KindOf(err)
	if !ok || kind != domain.ErrUnknownUnit {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
}

func TestTranslateTermsAppendsGloss(t *testing.T) {
	got := TranslateTerms("diesel verbrennung")
	if got == "diesel verbrennung" {
		t.Fatalf("expected translation to append a gloss, got unchanged text")
	}
}

func TestTranslateTermsNoOp(t *testing.T) {
	got := TranslateTerms("zzqqxx")
	if got != "zzqqxx" {
		t.Fatalf("expected unknown text to pass through unchanged, got %q", got)
	}
}
