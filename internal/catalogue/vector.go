package catalogue

import (
	"context"
	"math"
	"sort"

	"github.com/timmy/ecomatch/internal/domain"
)

// MemoryVectorIndex is an in-process, brute-force cosine-similarity
// vector index over the searchable catalogue entries. cmd/runbatch
// does not construct one: without a Qdrant endpoint it runs with no
// vector searcher. The precomputed embeddings themselves come from the
// out-of-scope offline index-build step; this type only owns the
// search, not the embedding computation.
type MemoryVectorIndex struct {
	uuids   []string
	vectors [][]float32
}

// NewMemoryVectorIndex builds an index from uuid→embedding pairs. Both
// slices must be the same length and in the same order.
func NewMemoryVectorIndex(uuids []string, vectors [][]float32) *MemoryVectorIndex {
	return &MemoryVectorIndex{uuids: uuids, vectors: vectors}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (idx *MemoryVectorIndex) Search(_ context.Context, vector []float32, k int) ([]ScoredID, error) {
	if len(idx.vectors) == 0 {
		return nil, nil
	}

	type hit struct {
		pos   int
		score float64
	}
	hits := make([]hit, len(idx.vectors))
	for i, v := range idx.vectors {
		hits[i] = hit{pos: i, score: cosine(vector, v)}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}

	out := make([]ScoredID, len(hits))
	for i, h := range hits {
		out[i] = ScoredID{UUID: idx.uuids[h.pos], Score: h.score}
	}
	return out, nil
}

// EntryUUIDs extracts the searchable UUIDs from entries, a convenience
// for building a MemoryVectorIndex alongside externally-computed
// embeddings (e.g. loaded from a precomputed artifact file).
func EntryUUIDs(entries []domain.CatalogueEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.UUID
	}
	return out
}
