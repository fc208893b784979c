package orchestrate

import (
	"context"
	"testing"

	"github.com/timmy/ecomatch/internal/catalogue"
	"github.com/timmy/ecomatch/internal/domain"
	"github.com/timmy/ecomatch/internal/oracle"
	"github.com/timmy/ecomatch/internal/retrieve"
)

type fakeStore struct {
	rows       map[int64]domain.InputRow
	statuses   map[int64]domain.RowStatus
	candidates map[int64][]domain.AmbiguousCandidate
	results    map[int64]domain.RowResult
}

func newFakeStore(rows ...domain.InputRow) *fakeStore {
	s := &fakeStore{
		rows:       map[int64]domain.InputRow{},
		statuses:   map[int64]domain.RowStatus{},
		candidates: map[int64][]domain.AmbiguousCandidate{},
		results:    map[int64]domain.RowResult{},
	}
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	return s
}

func (s *fakeStore) LoadRow(rowID int64) (domain.InputRow, error) { return s.rows[rowID], nil }

func (s *fakeStore) UpdateRowStatus(rowID int64, status domain.RowStatus, errMsg string) error {
	s.statuses[rowID] = status
	row := s.rows[rowID]
	row.Status = status
	row.ErrorMessage = errMsg
	s.rows[rowID] = row
	return nil
}

func (s *fakeStore) SaveCandidates(rowID int64, candidates []domain.AmbiguousCandidate) error {
	s.candidates[rowID] = candidates
	return nil
}

func (s *fakeStore) ResolveRow(rowID int64, uuid string, mustMatchCandidate bool) error {
	if s.rows[rowID].Status != domain.RowAmbiguous {
		return errRowNotAmbiguous
	}
	if mustMatchCandidate {
		found := false
		for _, c := range s.candidates[rowID] {
			if c.UUID == uuid {
				found = true
			}
		}
		if !found {
			return errCandidateNotFound
		}
	}
	return s.UpdateRowStatus(rowID, domain.RowMatched, "")
}

func (s *fakeStore) SaveResult(result domain.RowResult) error {
	s.results[result.InputRowID] = result
	return s.UpdateRowStatus(result.InputRowID, domain.RowCalculated, "")
}

type stubErr string

func (e stubErr) Error() string { return string(e) }

const errCandidateNotFound = stubErr("uuid not among saved candidates")
const errRowNotAmbiguous = stubErr("row is not in ambiguous status")

type fakeCatalogue struct {
	entries map[string]domain.CatalogueEntry
}

func (c *fakeCatalogue) ByUUID(uuid string) (domain.CatalogueEntry, bool) {
	e, ok := c.entries[uuid]
	return e, ok
}
func (c *fakeCatalogue) LexicalSearch(terms []string, k int) []catalogue.ScoredID { return nil }
func (c *fakeCatalogue) VectorSearch(ctx context.Context, v []float32, k int) ([]catalogue.ScoredID, error) {
	return nil, nil
}
func (c *fakeCatalogue) AllSearchable() []domain.CatalogueEntry { return nil }

type fakeRetriever struct {
	candidates     []retrieve.Candidate
	forceDecompose bool
}

func (r *fakeRetriever) Retrieve(ctx context.Context, row domain.InputRow) ([]retrieve.Candidate, bool, error) {
	return r.candidates, r.forceDecompose, nil
}
func (r *fakeRetriever) RetrieveComponent(ctx context.Context, searchText string) ([]retrieve.Candidate, bool, error) {
	return r.candidates, r.forceDecompose, nil
}

type fakeOracle struct {
	decision        oracle.Decision
	conversionFactor float64
}

func (o *fakeOracle) Decide(ctx context.Context, row domain.InputRow, candidates []retrieve.Candidate, allowDecompose bool) (oracle.Decision, error) {
	return o.decision, nil
}
func (o *fakeOracle) ConvertUnit(ctx context.Context, description, fromUnit, toUnit string) (float64, string, error) {
	factor := o.conversionFactor
	if factor == 0 {
		factor = 1
	}
	return factor, "stub conversion", nil
}

func steelEntry() domain.CatalogueEntry {
	return domain.CatalogueEntry{
		UUID: "steel-1", ActivityName: "steel production",
		Geography: "RER", Unit: "kg", Amount: 1,
		BiogenicFactor: 0.1, CommonFactor: 2.0,
	}
}

func TestRunSimpleMatchSameUnit(t *testing.T) {
	row := domain.InputRow{ID: 1, Bezeichnung: "Stahl", Referenzeinheit: "kg", Region: "RER", Scope: domain.Scope3}
	s := newFakeStore(row)
	cat := &fakeCatalogue{entries: map[string]domain.CatalogueEntry{"steel-1": steelEntry()}}
	ret := &fakeRetriever{candidates: []retrieve.Candidate{{Entry: steelEntry(), Rank: 1}}}
	orc := &fakeOracle{decision: oracle.Decision{Type: domain.DecisionMatch, Match: &oracle.MatchDecision{SelectedUUID: "steel-1"}}}

	o := New(s, cat, ret, orc, domain.ModeReview, "3.11")
	if err := o.Run(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.rows[1].Status != domain.RowCalculated {
		t.Fatalf("expected row calculated, got %s (msg=%q)", s.rows[1].Status, s.rows[1].ErrorMessage)
	}
	result := s.results[1]
	if result.UnitConversion != nil {
		t.Errorf("expected no unit conversion for matching units, got %+v", result.UnitConversion)
	}
	if result.SelectedUUID != "steel-1" {
		t.Errorf("unexpected selected uuid: %s", result.SelectedUUID)
	}
}

func TestRunMatchWithConversion(t *testing.T) {
	entry := domain.CatalogueEntry{UUID: "diesel-mj", ActivityName: "diesel, burned", Geography: "RER", Unit: "MJ", Amount: 1, BiogenicFactor: 0, CommonFactor: 3.0}
	row := domain.InputRow{ID: 2, Bezeichnung: "Diesel", Referenzeinheit: "Liter", Region: "RER", Scope: domain.Scope1}
	s := newFakeStore(row)
	cat := &fakeCatalogue{entries: map[string]domain.CatalogueEntry{"diesel-mj": entry}}
	ret := &fakeRetriever{candidates: []retrieve.Candidate{{Entry: entry, Rank: 1}}}
	orc := &fakeOracle{
		decision:         oracle.Decision{Type: domain.DecisionMatch, Match: &oracle.MatchDecision{SelectedUUID: "diesel-mj"}},
		conversionFactor: 36,
	}

	o := New(s, cat, ret, orc, domain.ModeReview, "3.11")
	if err := o.Run(context.Background(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := s.results[2]
	if result.UnitConversion == nil || result.UnitConversion.Factor != 36 {
		t.Fatalf("expected unit conversion factor 36, got %+v", result.UnitConversion)
	}
}

func TestRunAmbiguousReviewModeSuspends(t *testing.T) {
	row := domain.InputRow{ID: 3, Bezeichnung: "Diesel Verbrennung", Referenzeinheit: "l", Scope: domain.Scope1}
	s := newFakeStore(row)
	cat := &fakeCatalogue{entries: map[string]domain.CatalogueEntry{}}
	plausible := []domain.AmbiguousCandidate{
		{UUID: "a", ActivityName: "burned in building"},
		{UUID: "b", ActivityName: "burned in fishing vessel"},
	}
	ret := &fakeRetriever{candidates: []retrieve.Candidate{{Entry: domain.CatalogueEntry{UUID: "a"}}, {Entry: domain.CatalogueEntry{UUID: "b"}}}}
	orc := &fakeOracle{decision: oracle.Decision{Type: domain.DecisionAmbiguous, Ambiguous: &oracle.AmbiguousDecision{Plausible: plausible}}}

	o := New(s, cat, ret, orc, domain.ModeReview, "3.11")
	if err := o.Run(context.Background(), 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.rows[3].Status != domain.RowAmbiguous {
		t.Fatalf("expected row ambiguous, got %s", s.rows[3].Status)
	}
	if len(s.candidates[3]) != 2 {
		t.Fatalf("expected 2 saved candidates, got %d", len(s.candidates[3]))
	}
}

func TestRunAmbiguousAutoModePicksRankOne(t *testing.T) {
	entry := domain.CatalogueEntry{UUID: "a", ActivityName: "burned in building", Unit: "l"}
	row := domain.InputRow{ID: 4, Bezeichnung: "Diesel Verbrennung", Referenzeinheit: "Liter", Scope: domain.Scope1}
	s := newFakeStore(row)
	cat := &fakeCatalogue{entries: map[string]domain.CatalogueEntry{"a": entry}}
	plausible := []domain.AmbiguousCandidate{{UUID: "a", ActivityName: "burned in building"}, {UUID: "b", ActivityName: "burned elsewhere"}}
	ret := &fakeRetriever{candidates: []retrieve.Candidate{{Entry: entry}}}
	orc := &fakeOracle{decision: oracle.Decision{Type: domain.DecisionAmbiguous, Ambiguous: &oracle.AmbiguousDecision{Plausible: plausible}}}

	o := New(s, cat, ret, orc, domain.ModeAuto, "3.11")
	if err := o.Run(context.Background(), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.rows[4].Status != domain.RowCalculated {
		t.Fatalf("expected auto mode to resolve to calculated, got %s", s.rows[4].Status)
	}
	if s.results[4].SelectedUUID != "a" {
		t.Errorf("expected rank-1 candidate auto-picked, got %s", s.results[4].SelectedUUID)
	}
}

func TestRunUnknownUnitFailsRow(t *testing.T) {
	row := domain.InputRow{ID: 5, Bezeichnung: "Stahl", Referenzeinheit: "Faß", Scope: domain.Scope3}
	s := newFakeStore(row)
	cat := &fakeCatalogue{entries: map[string]domain.CatalogueEntry{}}
	ret := &fakeRetriever{}
	orc := &fakeOracle{}

	o := New(s, cat, ret, orc, domain.ModeReview, "3.11")
	if err := o.Run(context.Background(), 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.rows[5].Status != domain.RowError {
		t.Fatalf("expected row error, got %s", s.rows[5].Status)
	}
}

func TestResolveCompletesPostAmbiguityTail(t *testing.T) {
	entry := domain.CatalogueEntry{UUID: "a", ActivityName: "burned in building", Unit: "l"}
	row := domain.InputRow{ID: 6, Bezeichnung: "Diesel", Referenzeinheit: "Liter", UnitNorm: "l", Scope: domain.Scope1}
	s := newFakeStore(row)
	s.candidates[6] = []domain.AmbiguousCandidate{{UUID: "a"}, {UUID: "b"}}
	s.UpdateRowStatus(6, domain.RowAmbiguous, "")
	cat := &fakeCatalogue{entries: map[string]domain.CatalogueEntry{"a": entry}}
	ret := &fakeRetriever{}
	orc := &fakeOracle{}

	o := New(s, cat, ret, orc, domain.ModeReview, "3.11")
	if err := o.Resolve(context.Background(), 6, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.rows[6].Status != domain.RowCalculated {
		t.Fatalf("expected calculated after resolve, got %s", s.rows[6].Status)
	}
}

func TestResolveRejectsUuidNotInCandidateSet(t *testing.T) {
	row := domain.InputRow{ID: 7}
	s := newFakeStore(row)
	s.candidates[7] = []domain.AmbiguousCandidate{{UUID: "a"}}
	s.UpdateRowStatus(7, domain.RowAmbiguous, "")
	cat := &fakeCatalogue{entries: map[string]domain.CatalogueEntry{}}

	o := New(s, cat, &fakeRetriever{}, &fakeOracle{}, domain.ModeReview, "3.11")
	if err := o.Resolve(context.Background(), 7, "not-a-candidate"); err == nil {
		t.Errorf("expected an error resolving a uuid outside the saved candidate set")
	}
}

func TestResolveRejectsRowNotAmbiguous(t *testing.T) {
	row := domain.InputRow{ID: 8, Status: domain.RowPending}
	s := newFakeStore(row)
	cat := &fakeCatalogue{entries: map[string]domain.CatalogueEntry{}}

	o := New(s, cat, &fakeRetriever{}, &fakeOracle{}, domain.ModeReview, "3.11")
	if err := o.Resolve(context.Background(), 8, "a"); err == nil {
		t.Errorf("expected an error resolving a row that was never in ambiguous status")
	}

	s.UpdateRowStatus(8, domain.RowCalculated, "")
	if err := o.Resolve(context.Background(), 8, "a"); err == nil {
		t.Errorf("expected an error resolving an already-calculated row again")
	}
}
