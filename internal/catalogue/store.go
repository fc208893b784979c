// Package catalogue implements C2, read-only access to the ecoinvent
// reference dataset and the precomputed lexical/vector search
// artifacts built over it. Loading and indexing happen once, at
// startup, against a static CSV snapshot; every subsequent access is
// read-only and safe for concurrent callers.
package catalogue

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/timmy/ecomatch/internal/domain"
)

// ScoredID is one ranked search hit: a catalogue UUID and its score
// under whichever ranking function produced it.
type ScoredID struct {
	UUID  string
	Score float64
}

// VectorSearcher is the semantic-search half of the catalogue store.
// Implementations: the in-process MemoryVectorIndex or the
// Qdrant-backed QdrantVectorSearcher (§2B of SPEC_FULL.md). A store
// built with a nil searcher has no semantic leg.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]ScoredID, error)
}

// Store is the read-only interface C3 consumes, §4.2.
type Store interface {
	ByUUID(uuid string) (domain.CatalogueEntry, bool)
	LexicalSearch(queryTerms []string, k int) []ScoredID
	VectorSearch(ctx context.Context, queryEmbedding []float32, k int) ([]ScoredID, error)
	AllSearchable() []domain.CatalogueEntry
}

// InMemoryStore holds the full catalogue snapshot in memory plus a
// BM25 index built at load time over searchable (non-market) entries
// only, and delegates semantic search to a VectorSearcher.
type InMemoryStore struct {
	mu         sync.RWMutex
	byUUID     map[string]domain.CatalogueEntry
	searchable []domain.CatalogueEntry
	bm25       *bm25Index
	vectors    VectorSearcher
}

// NewInMemoryStore builds a store from already-loaded entries and an
// (optional) vector searcher. Pass a nil vectors to use only the
// lexical leg (mainly useful in tests).
func NewInMemoryStore(entries []domain.CatalogueEntry, vectors VectorSearcher) *InMemoryStore {
	s := &InMemoryStore{
		byUUID:  make(map[string]domain.CatalogueEntry, len(entries)),
		vectors: vectors,
	}
	for _, e := range entries {
		s.byUUID[e.UUID] = e
		if !e.IsMarket {
			s.searchable = append(s.searchable, e)
		}
	}
	s.bm25 = buildBM25Index(s.searchable)
	return s
}

func (s *InMemoryStore) ByUUID(uuid string) (domain.CatalogueEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byUUID[uuid]
	return e, ok
}

func (s *InMemoryStore) LexicalSearch(queryTerms []string, k int) []ScoredID {
	return s.bm25.search(queryTerms, k)
}

func (s *InMemoryStore) VectorSearch(ctx context.Context, queryEmbedding []float32, k int) ([]ScoredID, error) {
	if s.vectors == nil {
		return nil, nil
	}
	return s.vectors.Search(ctx, queryEmbedding, k)
}

func (s *InMemoryStore) AllSearchable() []domain.CatalogueEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CatalogueEntry, len(s.searchable))
	copy(out, s.searchable)
	return out
}

// LoadCSV reads the ecoinvent export CSV (semicolon-delimited,
// European decimal comma, grounded on dataset_store.py's
// initialize_from_csv) into a slice of CatalogueEntry.
//
// Expected columns (header names, order-independent):
// UUID, Activity Name, Reference Product Name, Geography, Unit,
// Reference Product Amount, Biogenic [kg CO2-Eq], Total (excl.
// Biogenic) [kg CO2-Eq].
func LoadCSV(path string) ([]domain.CatalogueEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalogue csv: %w", err)
	}
	defer f.Close()
	return parseCSV(bufio.NewReader(f))
}

func parseCSV(r io.Reader) ([]domain.CatalogueEntry, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalogue csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	col := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var entries []domain.CatalogueEntry
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalogue csv row: %w", err)
		}

		uuid := strings.TrimSpace(col(row, "UUID"))
		if uuid == "" {
			continue
		}
		activityName := col(row, "Activity Name")
		productName := col(row, "Reference Product Name")
		geography := col(row, "Geography")
		unit := col(row, "Unit")

		amount, _ := strconv.Atoi(strings.TrimSpace(col(row, "Reference Product Amount")))
		biogenic := parseEuropeanFloat(col(row, "Biogenic [kg CO2-Eq]"))
		total := parseEuropeanFloat(col(row, "Total (excl. Biogenic) [kg CO2-Eq]"))

		lowerActivity := strings.ToLower(strings.TrimSpace(activityName))
		lowerProduct := strings.ToLower(strings.TrimSpace(productName))

		entries = append(entries, domain.CatalogueEntry{
			UUID:           uuid,
			ActivityName:   activityName,
			ProductName:    productName,
			Geography:      geography,
			Unit:           unit,
			Amount:         amount,
			BiogenicFactor: biogenic,
			CommonFactor:   total,
			IsMarket:       domain.IsMarketActivity(activityName),
			SearchableText: lowerActivity + " " + lowerProduct,
		})
	}
	return entries, nil
}

func parseEuropeanFloat(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
