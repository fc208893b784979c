package normalize

import "strings"

// termTranslations is a German→English domain-term dictionary used to
// bridge German input descriptors against the English-language
// ecoinvent catalogue text. Grounded on candidate_retriever.py's
// TERM_TRANSLATIONS; this is a representative subset covering the
// same category spread (fuels/energy, transport, metals, plastics,
// chemicals, construction, wood/paper, textiles, food, water/waste,
// electronics, vehicles, common processes) rather than an exhaustive
// port, per SPEC_FULL.md §2C.
//
// Multi-word keys (bigrams) are checked before single-word keys so
// that e.g. "erdgas verbrennung" translates as one unit rather than
// as two unrelated single-word glosses.
var termTranslations = map[string]string{
	// fuels / energy
	"diesel":            "diesel",
	"benzin":            "petrol",
	"erdgas":             "natural gas",
	"heizol":             "heating oil",
	"kohle":              "coal",
	"strom":              "electricity",
	"elektrizitat":       "electricity",
	"fernwarme":          "district heat",
	"erdgas verbrennung": "natural gas combustion",
	"diesel verbrennung": "diesel combustion",
	"heizung":            "heating",

	// transport
	"lkw":               "lorry truck",
	"lastwagen":         "lorry truck",
	"pkw":               "passenger car",
	"transport":         "transport",
	"schienentransport": "rail transport",
	"bahn":              "rail",
	"flugzeug":          "aircraft",
	"schiff":            "ship",
	"seefracht":         "sea freight",

	// metals
	"stahl":    "steel",
	"aluminium": "aluminium",
	"kupfer":   "copper",
	"eisen":    "iron",
	"zink":     "zinc",
	"edelstahl": "stainless steel",

	// plastics / chemicals
	"kunststoff":   "plastic",
	"polyethylen":  "polyethylene",
	"polypropylen": "polypropylene",
	"pvc":          "pvc polyvinylchloride",
	"chemikalie":   "chemical",
	"saure":        "acid",
	"dunger":       "fertiliser",

	// construction
	"beton":    "concrete",
	"zement":   "cement",
	"ziegel":   "brick",
	"glas":     "glass",
	"gips":     "gypsum",
	"sand":     "sand",
	"kies":     "gravel",

	// wood / paper
	"holz":    "wood",
	"papier":  "paper",
	"pappe":   "cardboard",
	"karton":  "cardboard box",

	// textiles
	"baumwolle": "cotton",
	"wolle":     "wool",
	"textil":    "textile",

	// food
	"rindfleisch": "beef",
	"schweinefleisch": "pork",
	"geflugel":   "poultry",
	"kase":       "cheese",
	"milch":      "milk",
	"brot":       "bread",
	"gemuse":     "vegetable",
	"obst":       "fruit",
	"zucker":     "sugar",
	"weizen":     "wheat",

	// water / waste
	"wasser":      "water",
	"abwasser":    "wastewater",
	"abfall":      "waste",
	"entsorgung":  "disposal treatment",
	"recycling":   "recycling",
	"deponie":     "landfill",

	// electronics
	"computer":  "computer",
	"leiterplatte": "printed wiring board",
	"batterie":  "battery",

	// common processes / office
	"verpackung": "packaging",
	"herstellung": "production manufacture",
	"verarbeitung": "processing",
	"buro":       "office",
	"papierkorb": "office waste bin",
}

// translationBigrams lists the multi-word keys of termTranslations so
// TranslateTerms can try them before falling back to single words.
var translationBigrams = func() []string {
	var keys []string
	for k := range termTranslations {
		if strings.Contains(k, " ") {
			keys = append(keys, k)
		}
	}
	return keys
}()

// TranslateTerms augments normalised (already-lowercased,
// transliterated) German text with English glosses for every
// recognised domain term, appended after the original text so lexical
// retrieval against the English catalogue has something to match.
// The original text is never replaced, only extended, mirroring
// candidate_retriever.py's translate_terms two-pass (bigram, then
// unigram) algorithm.
func TranslateTerms(normalisedText string) string {
	if normalisedText == "" {
		return ""
	}

	remaining := normalisedText
	var glosses []string

	for _, bigram := range translationBigrams {
		if strings.Contains(remaining, bigram) {
			glosses = append(glosses, termTranslations[bigram])
			remaining = strings.ReplaceAll(remaining, bigram, "")
		}
	}

	for _, word := range strings.Fields(remaining) {
		if gloss, ok := termTranslations[word]; ok {
			glosses = append(glosses, gloss)
		}
	}

	if len(glosses) == 0 {
		return normalisedText
	}
	return normalisedText + " " + strings.Join(glosses, " ")
}
