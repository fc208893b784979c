// Package oracle implements C4, the LLM decision oracle: given a
// normalised input and its retrieved candidates, decide whether to
// match, flag as ambiguous, or decompose, and convert units when a
// selected entry's unit doesn't match the input's, §4.4.
package oracle

import "github.com/timmy/ecomatch/internal/domain"

// Decision is the tagged union Decide returns, discriminated by
// Type, mirroring the wire JSON's "decision" field.
type Decision struct {
	Type       domain.DecisionType
	Match      *MatchDecision
	Ambiguous  *AmbiguousDecision
	Decompose  *DecomposeDecision
}

type MatchDecision struct {
	SelectedUUID string
	Rationale    string
}

type AmbiguousDecision struct {
	Plausible []domain.AmbiguousCandidate
	Rationale string
}

type DecomposeDecision struct {
	Components []domain.DecompComponent
}
