package retrieve

import (
	"strings"

	"github.com/timmy/ecomatch/internal/domain"
	"github.com/timmy/ecomatch/internal/normalize"
)

// scopeHints are appended to the retrieval query only, never surfaced
// to a user or the LLM, §4.3.
var scopeHints = map[domain.Scope]string{
	domain.Scope1: "combustion burned fuel",
	domain.Scope2: "electricity heat steam supply",
	domain.Scope3: "production manufacturing at plant",
}

// buildQuery assembles the retrieval query text for an input row:
// normalised description, term-translation gloss, kategorie, and a
// scope hint, §4.3 and §2C.
func buildQuery(row domain.InputRow) string {
	var parts []string

	base := strings.TrimSpace(row.BezeichnungNorm)
	if row.ProduktinfoNorm != "" {
		base = strings.TrimSpace(base + " " + row.ProduktinfoNorm)
	}
	if base != "" {
		parts = append(parts, base)
		if gloss := normalize.TranslateTerms(base); gloss != base {
			parts = append(parts, gloss)
		}
	}

	if row.Kategorie != "" {
		parts = append(parts, strings.ToLower(strings.TrimSpace(row.Kategorie)))
	}

	if hint, ok := scopeHints[row.Scope]; ok {
		parts = append(parts, hint)
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}

// componentQuery builds the retrieval query for a decomposition
// component, which carries only a label and no scope/kategorie
// context.
func componentQuery(searchText string) string {
	norm := normalize.NormaliseText(searchText)
	if norm == "" {
		return ""
	}
	gloss := normalize.TranslateTerms(norm)
	if gloss != norm {
		return norm + " " + gloss
	}
	return norm
}
