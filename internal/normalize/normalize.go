// Package normalize implements C1, the pure canonicalisation step
// that turns a raw InputRow's free-text fields into the normalised
// shadow fields the rest of the pipeline keys off: transliterated
// descriptors, a region code, and a canonical unit.
package normalize

import (
	"strings"

	"github.com/timmy/ecomatch/internal/domain"
)

// transliterations covers the German characters spec.md §4.1
// explicitly requires folding to ASCII. It is a fixed, small
// substitution table, not a general-purpose transliterator: no
// ecosystem library for this specific rule set was found anywhere in
// the retrieved example pack (see DESIGN.md).
var transliterations = map[rune]string{
	'ä': "a", 'Ä': "A",
	'ö': "o", 'Ö': "O",
	'ü': "u", 'Ü': "U",
	'ß': "ss",
	'é': "e", 'è': "e", 'É': "E", 'È': "E",
}

// Transliterate folds German (and a few common Latin) diacritics to
// their ASCII approximation.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := transliterations[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// collapseWhitespace normalises runs of whitespace to a single space
// and trims the ends.
func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// NormaliseText lowercases, trims, transliterates and
// whitespace-collapses free text, the shared rule behind
// bezeichnung_norm and produktinfo_norm.
func NormaliseText(s string) string {
	if s == "" {
		return ""
	}
	return collapseWhitespace(Transliterate(strings.ToLower(strings.TrimSpace(s))))
}

// regionAliases maps common free-text region spellings to ecoinvent
// geography codes, grounded on the original's region handling and
// GLOSSARY's GLO/RoW definitions.
var regionAliases = map[string]string{
	"europa":         "RER",
	"europe":         "RER",
	"eu":             "RER",
	"deutschland":    "DE",
	"germany":        "DE",
	"schweiz":        "CH",
	"switzerland":    "CH",
	"oesterreich":    "AT",
	"osterreich":     "AT",
	"austria":        "AT",
	"frankreich":     "FR",
	"france":         "FR",
	"weltweit":       "GLO",
	"global":         "GLO",
	"rest der welt":  "RoW",
	"rest of world":  "RoW",
	"usa":            "US",
	"vereinigte staaten": "US",
	"china":          "CN",
}

// NormaliseRegion resolves a free-text region to a catalogue geography
// code. Empty input defaults to GLO; unknown values pass through
// unchanged (spec.md §4.1).
func NormaliseRegion(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "GLO"
	}
	key := strings.ToLower(Transliterate(trimmed))
	if code, ok := regionAliases[key]; ok {
		return code
	}
	return trimmed
}

// unitMap maps free-text unit spellings (German and common
// abbreviations) to canonical catalogue units. Grounded on
// candidate_retriever.py's UNIT_MAP; deliberately larger than
// spec.md's minimum ≥18 entries to cover the synonyms a free-text
// spreadsheet column will actually contain.
var unitMap = map[string]string{
	"stück":           "unit",
	"stueck":          "unit",
	"stk":             "unit",
	"stk.":            "unit",
	"unit":            "unit",
	"units":           "unit",
	"piece":           "unit",
	"pieces":          "unit",
	"liter":           "l",
	"litre":           "l",
	"l":               "l",
	"kilogramm":       "kg",
	"kilogram":        "kg",
	"kg":              "kg",
	"gramm":           "g", // differs from a kg dataset unit, so the match path rescales it via unit conversion
	"tonne":           "t",
	"kilowattstunde":  "kWh",
	"kilowatt-stunde": "kWh",
	"kwh":             "kWh",
	"quadratmeter":    "m2",
	"qm":              "m2",
	"m2":              "m2",
	"m²":              "m2",
	"kubikmeter":      "m3",
	"cbm":             "m3",
	"m3":              "m3",
	"m³":              "m3",
	"kilometer":       "km",
	"km":              "km",
	"hektar":          "ha",
	"ha":              "ha",
	"stunde":          "hour",
	"stunden":         "hour",
	"h":               "hour",
	"hour":            "hour",
	"hours":           "hour",
	"megajoule":       "MJ",
	"mj":              "MJ",
	"kilogrammkilometer": "kg*km",
	"kg*km":           "kg*km",
	"kgkm":            "kg*km",
	"tonnenkilometer": "t*km",
	"t*km":            "t*km",
	"tkm":             "t*km",
}

// NormaliseUnit resolves raw (e.g. InputRow.Referenzeinheit) to a
// canonical unit string. ok is false when the unit has no mapping, in
// which case the caller must terminate the row with UnknownUnit
// (spec.md §4.1, §7).
func NormaliseUnit(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "")
	unit, ok := unitMap[key]
	return unit, ok
}

// Normalise applies C1 to row, returning a copy with the normalised
// shadow fields populated. It is a pure function with no side
// effects, per spec.md §4.1.
func Normalise(row domain.InputRow) (domain.InputRow, error) {
	out := row

	out.BezeichnungNorm = NormaliseText(row.Bezeichnung)
	out.ProduktinfoNorm = NormaliseText(row.Produktinformationen)
	out.RegionNorm = NormaliseRegion(row.Region)

	unit, ok := NormaliseUnit(row.Referenzeinheit)
	if !ok {
		return out, domain.NewRowErrorf(domain.ErrUnknownUnit,
			"cannot map unit %q", row.Referenzeinheit)
	}
	out.UnitNorm = unit

	return out, nil
}
