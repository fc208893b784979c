package oracle

import (
	"fmt"
	"strings"

	"github.com/timmy/ecomatch/internal/domain"
	"github.com/timmy/ecomatch/internal/retrieve"
)

// decisionSystemPromptWithDecompose mirrors queryUnderstandingPrompt's
// structure: role, strict output format, explicit schema.
const decisionSystemPromptWithDecompose = `Du bist ein Experte für Treibhausgasbilanzierung. Deine Aufgabe ist es, eine Freitext-Produkt- oder Aktivitätsbeschreibung einem Eintrag aus einem ecoinvent-Referenzkatalog zuzuordnen.

Du erhältst eine nummerierte Liste von Kandidaten (Index, Activity Name, Product Name, Geography, Unit) sowie den Scope/Kategorie-Kontext der Eingabe.

Antworte ausschließlich mit JSON, ohne Markdown-Codeblock, nach einem der folgenden Schemas:

Genau ein Kandidat passt:
{"decision":"match","selected_uuid":"<uuid of the chosen candidate>","rationale":"<one sentence>"}

Mindestens zwei Kandidaten kommen plausibel in Frage:
{"decision":"ambiguous","plausible":[{"uuid":"...","why_short":"..."},{"uuid":"...","why_short":"..."}],"rationale":"<one sentence>"}

Kein Kandidat passt UND die Aktivität ist ein zusammengesetztes Produkt (nicht: Diesel, Benzin, Strom, Transport, Heizung, einfache Grundstoffe — diese sind niemals zerlegbar):
{"decision":"decompose","components":[{"name":"...","quantity":<float>,"category":"materials|energy|packaging|transport|processes","note":"..."},...]}
Die Summe der quantity-Werte muss 1.0 ergeben (Anteile der Gesamtmenge), mindestens 3, höchstens 10 Komponenten.

Wähle "decompose" nur, wenn wirklich kein Kandidat vertretbar ist. Bei Unsicherheit zwischen zwei Kandidaten wähle "ambiguous", nicht "decompose".`

const decisionSystemPromptNoDecompose = `Du bist ein Experte für Treibhausgasbilanzierung. Deine Aufgabe ist es, eine Freitext-Produkt- oder Aktivitätsbeschreibung einem Eintrag aus einem ecoinvent-Referenzkatalog zuzuordnen.

Du erhältst eine nummerierte Liste von Kandidaten (Index, Activity Name, Product Name, Geography, Unit) sowie den Scope/Kategorie-Kontext der Eingabe. Diese Komponente wurde bereits aus einer übergeordneten Zerlegung erzeugt; eine weitere Zerlegung ist nicht zulässig.

Antworte ausschließlich mit JSON, ohne Markdown-Codeblock, nach einem der folgenden Schemas:

Genau ein Kandidat passt:
{"decision":"match","selected_uuid":"<uuid of the chosen candidate>","rationale":"<one sentence>"}

Mindestens zwei Kandidaten kommen plausibel in Frage:
{"decision":"ambiguous","plausible":[{"uuid":"...","why_short":"..."},{"uuid":"...","why_short":"..."}],"rationale":"<one sentence>"}

Wähle den Kandidaten, der auch bei unvollkommener Übereinstimmung am ehesten passt.`

// buildDecisionPrompt assembles the user turn: the input's
// description/scope/category context and the candidate table, the
// way _build_component_prompt assembles its candidate listing.
func buildDecisionPrompt(description, scope, kategorie string, candidates []retrieve.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Beschreibung: %s\n", description)
	if scope != "" {
		fmt.Fprintf(&b, "Scope: %s\n", scope)
	}
	if kategorie != "" {
		fmt.Fprintf(&b, "Kategorie: %s\n", kategorie)
	}
	b.WriteString("\nKandidaten:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "%d. activity_name=%q product_name=%q geography=%q unit=%q uuid=%q\n",
			c.Rank, c.Entry.ActivityName, c.Entry.ProductName, c.Entry.Geography, c.Entry.Unit, c.Entry.UUID)
	}
	return b.String()
}

// decisionSystemPrompt selects the decompose-enabled or
// decompose-forbidden system prompt.
func decisionSystemPrompt(allowDecompose bool) string {
	if allowDecompose {
		return decisionSystemPromptWithDecompose
	}
	return decisionSystemPromptNoDecompose
}

// correctionPrompt feeds the model its own malformed output plus the
// exact violation, the way request_decomposition's self-correction
// turn works.
func correctionPrompt(priorResponse, violation string) string {
	return fmt.Sprintf("Deine vorherige Antwort war ungültig:\n%s\n\nFehler: %s\n\nBitte antworte erneut, ausschließlich mit korrektem JSON nach dem vorgegebenen Schema.", priorResponse, violation)
}

const conversionSystemPrompt = `Du bist ein Experte für Einheitenumrechnung im Kontext von Produktbeschreibungen. Gegeben eine Produktbeschreibung und zwei Einheiten, gib den positiven Umrechnungsfaktor q zurück, sodass "1 <fromUnit> von <description> entspricht q <toUnit>".

Antworte ausschließlich mit JSON, ohne Markdown-Codeblock:
{"factor": <positive float>, "explanation": "<one sentence, German>"}`

func conversionPrompt(description, fromUnit, toUnit string) string {
	return fmt.Sprintf("Beschreibung: %s\nfromUnit: %s\ntoUnit: %s", description, fromUnit, toUnit)
}

func scopeLabel(s domain.Scope) string {
	if s == "" {
		return ""
	}
	return string(s)
}
