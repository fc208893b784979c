package retrieve

import (
	"sort"

	"github.com/timmy/ecomatch/internal/catalogue"
)

const defaultRRFK = 60

// fuse combines lexical and semantic rankings with reciprocal rank
// fusion, §4.3: score(uuid) = 1/(rrfK+r1) + 1/(rrfK+r2), ranks
// 1-indexed, a missing leg contributes nothing for that uuid.
// Ties are broken by lower best-rank, then by uuid, for determinism.
func fuse(lexical, semantic []catalogue.ScoredID, rrfK int) []fusedHit {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	type acc struct {
		uuid     string
		score    float64
		bestRank int
	}
	byUUID := make(map[string]*acc)

	order := func(list []catalogue.ScoredID) {
		for i, h := range list {
			rank := i + 1
			a, ok := byUUID[h.UUID]
			if !ok {
				a = &acc{uuid: h.UUID, bestRank: rank}
				byUUID[h.UUID] = a
			}
			a.score += 1.0 / float64(rrfK+rank)
			if rank < a.bestRank {
				a.bestRank = rank
			}
		}
	}
	order(lexical)
	order(semantic)

	out := make([]fusedHit, 0, len(byUUID))
	for _, a := range byUUID {
		out = append(out, fusedHit{UUID: a.uuid, Score: a.score, BestRank: a.bestRank})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].BestRank != out[j].BestRank {
			return out[i].BestRank < out[j].BestRank
		}
		return out[i].UUID < out[j].UUID
	})
	return out
}

type fusedHit struct {
	UUID     string
	Score    float64
	BestRank int
}
