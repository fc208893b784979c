package oracle

import (
	"testing"

	"github.com/timmy/ecomatch/internal/domain"
	"github.com/timmy/ecomatch/internal/retrieve"
)

func TestExtractJSONStripsMarkdownFence(t *testing.T) {
	in := "```json\n{\"decision\":\"match\",\"selected_uuid\":\"a1\"}\n```"
	got, err := extractJSON(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"decision":"match","selected_uuid":"a1"}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	if _, err := extractJSON("no json here"); err == nil {
		t.Errorf("expected error for content with no JSON object")
	}
}

func candidateSet() []retrieve.Candidate {
	return []retrieve.Candidate{
		{Entry: domain.CatalogueEntry{UUID: "a1", ActivityName: "diesel, burned"}, Rank: 1},
		{Entry: domain.CatalogueEntry{UUID: "a2", ActivityName: "diesel, burned elsewhere"}, Rank: 2},
	}
}

func TestParseDecisionMatch(t *testing.T) {
	raw := `{"decision":"match","selected_uuid":"a1","rationale":"closest match"}`
	decision, violation := parseDecision(raw, candidateSet(), true)
	if violation != "" {
		t.Fatalf("unexpected violation: %s", violation)
	}
	if decision.Type != domain.DecisionMatch || decision.Match.SelectedUUID != "a1" {
		t.Errorf("unexpected decision: %+v", decision)
	}
}

func TestParseDecisionMatchUnknownUUID(t *testing.T) {
	raw := `{"decision":"match","selected_uuid":"does-not-exist"}`
	_, violation := parseDecision(raw, candidateSet(), true)
	if violation == "" {
		t.Errorf("expected a violation for an unknown uuid")
	}
}

func TestParseDecisionAmbiguousRequiresTwo(t *testing.T) {
	raw := `{"decision":"ambiguous","plausible":[{"uuid":"a1","why_short":"x"}]}`
	_, violation := parseDecision(raw, candidateSet(), true)
	if violation == "" {
		t.Errorf("expected a violation for fewer than 2 plausible candidates")
	}
}

func TestParseDecisionDecomposeRejectedWhenNotAllowed(t *testing.T) {
	raw := `{"decision":"decompose","components":[{"name":"a","quantity":0.5},{"name":"b","quantity":0.3},{"name":"c","quantity":0.2}]}`
	_, violation := parseDecision(raw, candidateSet(), false)
	if violation == "" {
		t.Errorf("expected a violation when decompose is not permitted")
	}
}

func TestParseDecisionDecomposeSumTolerance(t *testing.T) {
	raw := `{"decision":"decompose","components":[{"name":"a","quantity":0.5},{"name":"b","quantity":0.3},{"name":"c","quantity":0.1}]}`
	_, violation := parseDecision(raw, candidateSet(), true)
	if violation == "" {
		t.Errorf("expected a violation when component quantities don't sum to 1.0")
	}
}

func TestParseDecisionDecomposeWithinTolerance(t *testing.T) {
	raw := `{"decision":"decompose","components":[{"name":"a","quantity":0.5},{"name":"b","quantity":0.3},{"name":"c","quantity":0.21}]}`
	decision, violation := parseDecision(raw, candidateSet(), true)
	if violation != "" {
		t.Fatalf("expected tolerance 0.02 to accept sum=1.01, got violation: %s", violation)
	}
	if decision.Type != domain.DecisionDecompose || len(decision.Decompose.Components) != 3 {
		t.Errorf("unexpected decision: %+v", decision)
	}
}

func TestBackoffCapsAndScales(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := backoff(attempt)
		limit := int64(500_000_000) << attempt
		if limit > 8_000_000_000 {
			limit = 8_000_000_000
		}
		if d < 0 || int64(d) > limit {
			t.Errorf("backoff(%d) = %v, out of expected [0, %dns] range", attempt, d, limit)
		}
	}
}
