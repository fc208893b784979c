package calculate

import (
	"context"
	"strings"
	"testing"

	"github.com/timmy/ecomatch/internal/catalogue"
	"github.com/timmy/ecomatch/internal/domain"
)

type fakeStore struct {
	entries map[string]domain.CatalogueEntry
}

func (s *fakeStore) ByUUID(uuid string) (domain.CatalogueEntry, bool) {
	e, ok := s.entries[uuid]
	return e, ok
}
func (s *fakeStore) LexicalSearch(terms []string, k int) []catalogue.ScoredID { return nil }
func (s *fakeStore) VectorSearch(ctx context.Context, v []float32, k int) ([]catalogue.ScoredID, error) {
	return nil, nil
}
func (s *fakeStore) AllSearchable() []domain.CatalogueEntry { return nil }

func TestValidatePassesForNonMarketMatch(t *testing.T) {
	store := &fakeStore{entries: map[string]domain.CatalogueEntry{
		"steel": {UUID: "steel", ActivityName: "steel production"},
	}}
	result := domain.RowResult{SelectedUUID: "steel", Beschreibung: "short", Quelle: "short"}
	if err := Validate(store, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsMarketEntry(t *testing.T) {
	store := &fakeStore{entries: map[string]domain.CatalogueEntry{
		"m": {UUID: "m", ActivityName: "market for diesel"},
	}}
	result := domain.RowResult{SelectedUUID: "m"}
	err := Validate(store, result)
	if err == nil || !strings.Contains(err.Error(), "market entry") {
		t.Fatalf("expected a market-entry rejection, got %v", err)
	}
}

func TestValidateRejectsUnresolvableUUID(t *testing.T) {
	store := &fakeStore{entries: map[string]domain.CatalogueEntry{}}
	result := domain.RowResult{SelectedUUID: "missing"}
	err := Validate(store, result)
	if err == nil || !strings.Contains(err.Error(), "does not resolve") {
		t.Fatalf("expected an unresolved-uuid error, got %v", err)
	}
}

func TestValidateRejectsOverlongBeschreibung(t *testing.T) {
	store := &fakeStore{entries: map[string]domain.CatalogueEntry{}}
	result := domain.RowResult{Beschreibung: strings.Repeat("a", MaxChars+1)}
	err := Validate(store, result)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected an overlong-beschreibung error, got %v", err)
	}
}

func TestValidateChecksEveryComponentUUID(t *testing.T) {
	store := &fakeStore{entries: map[string]domain.CatalogueEntry{
		"beef": {UUID: "beef", ActivityName: "beef production"},
	}}
	result := domain.RowResult{
		Components: []domain.ResolvedComponent{{MatchedUUID: "beef"}, {MatchedUUID: "missing"}},
	}
	err := Validate(store, result)
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected the second component's missing uuid to be caught, got %v", err)
	}
}
