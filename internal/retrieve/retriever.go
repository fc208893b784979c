package retrieve

import (
	"context"
	"fmt"
	"sync"

	"github.com/timmy/ecomatch/internal/catalogue"
	"github.com/timmy/ecomatch/internal/domain"
)

// Params are the tunable retrieval parameters, §4.3.
type Params struct {
	TopK int
	Pool int
	RRFK int
}

// DefaultParams matches spec.md's stated defaults.
var DefaultParams = Params{TopK: 20, Pool: 100, RRFK: 60}

// Retriever implements C3 over a catalogue Store and an Embedder.
type Retriever struct {
	store    catalogue.Store
	embedder Embedder
	params   Params
}

func NewRetriever(store catalogue.Store, embedder Embedder, params Params) *Retriever {
	if params.TopK <= 0 {
		params = DefaultParams
	}
	return &Retriever{store: store, embedder: embedder, params: params}
}

// Candidate is one ranked catalogue entry returned to C4/C6.
type Candidate struct {
	Entry     domain.CatalogueEntry
	Rank      int
	Rationale string
}

// Retrieve runs C3 for a normalised input row. forceDecompose is true
// when the query text was empty and retrieval never ran, §2C.
func (r *Retriever) Retrieve(ctx context.Context, row domain.InputRow) (candidates []Candidate, forceDecompose bool, err error) {
	query := buildQuery(row)
	return r.retrieveText(ctx, query, row.RegionNorm, row.UnitNorm)
}

// RetrieveComponent runs C3 for a decomposition component's free-text
// search query, using GLO/no unit preference since components carry
// no region/unit of their own until a catalogue entry is chosen.
func (r *Retriever) RetrieveComponent(ctx context.Context, searchText string) (candidates []Candidate, forceDecompose bool, err error) {
	query := componentQuery(searchText)
	return r.retrieveText(ctx, query, "GLO", "")
}

func (r *Retriever) retrieveText(ctx context.Context, query, regionNorm, unitNorm string) ([]Candidate, bool, error) {
	if query == "" {
		return nil, true, nil
	}

	var (
		lexical  []catalogue.ScoredID
		semantic []catalogue.ScoredID
		embedErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		lexical = r.store.LexicalSearch(catalogue.Tokenize(query), r.params.Pool)
	}()

	go func() {
		defer wg.Done()
		vec, err := r.embedder.EmbedQuery(ctx, query)
		if err != nil {
			embedErr = err
			return
		}
		semantic, embedErr = r.store.VectorSearch(ctx, vec, r.params.Pool)
	}()

	wg.Wait()

	if embedErr != nil && len(lexical) == 0 {
		return nil, false, fmt.Errorf("retrieve: %w", embedErr)
	}

	fused := fuse(lexical, semantic, r.params.RRFK)
	if len(fused) == 0 {
		return nil, false, nil
	}

	entries := make(map[string]domain.CatalogueEntry, len(fused))
	for _, h := range fused {
		if e, ok := r.store.ByUUID(h.UUID); ok {
			entries[h.UUID] = e
		}
	}

	ranked := regionRerank(fused, entries, regionNorm)
	ranked = unitPartition(ranked, entries, unitNorm)

	if len(ranked) > r.params.TopK {
		ranked = ranked[:r.params.TopK]
	}

	out := make([]Candidate, 0, len(ranked))
	for i, h := range ranked {
		entry, ok := entries[h.UUID]
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Entry:     entry,
			Rank:      i + 1,
			Rationale: rationale(entry),
		})
	}
	return out, false, nil
}

func rationale(e domain.CatalogueEntry) string {
	return fmt.Sprintf("%s, %s (%s), %s", e.ActivityName, e.ProductName, e.Geography, e.Unit)
}
