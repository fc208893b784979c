package retrieve

import (
	"sort"

	"github.com/timmy/ecomatch/internal/domain"
)

// regionPriority ranks a candidate's geography against the row's
// normalised region, §4.3: exact match first, then GLO, then RoW,
// then everything else.
func regionPriority(geography, regionNorm string) int {
	switch {
	case geography == regionNorm:
		return 0
	case geography == "GLO":
		return 1
	case geography == "RoW":
		return 2
	default:
		return 3
	}
}

// regionRerank stable-sorts hits by (region priority asc, fused score
// desc).
func regionRerank(hits []fusedHit, entries map[string]domain.CatalogueEntry, regionNorm string) []fusedHit {
	priority := make([]int, len(hits))
	for i, h := range hits {
		priority[i] = regionPriority(entries[h.UUID].Geography, regionNorm)
	}

	idx := make([]int, len(hits))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if priority[ia] != priority[ib] {
			return priority[ia] < priority[ib]
		}
		return hits[ia].Score > hits[ib].Score
	})

	out := make([]fusedHit, len(hits))
	for i, j := range idx {
		out[i] = hits[j]
	}
	return out
}

// unitPartition stable-partitions hits into those whose catalogue
// unit matches unitNorm, followed by the rest, §4.3.
func unitPartition(hits []fusedHit, entries map[string]domain.CatalogueEntry, unitNorm string) []fusedHit {
	matching := make([]fusedHit, 0, len(hits))
	other := make([]fusedHit, 0, len(hits))
	for _, h := range hits {
		if entries[h.UUID].Unit == unitNorm {
			matching = append(matching, h)
		} else {
			other = append(other, h)
		}
	}
	return append(matching, other...)
}
