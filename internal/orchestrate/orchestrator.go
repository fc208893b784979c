// Package orchestrate implements C6, the per-row state machine that
// drives one InputRow from pending through normalisation, retrieval,
// LLM decision and calculation to a terminal calculated or error
// state, §4.6.
package orchestrate

import (
	"context"
	"fmt"

	"github.com/timmy/ecomatch/internal/calculate"
	"github.com/timmy/ecomatch/internal/catalogue"
	"github.com/timmy/ecomatch/internal/domain"
	"github.com/timmy/ecomatch/internal/logger"
	"github.com/timmy/ecomatch/internal/normalize"
	"github.com/timmy/ecomatch/internal/oracle"
	"github.com/timmy/ecomatch/internal/retrieve"
	"github.com/timmy/ecomatch/internal/store"
)

// Store is the persistence surface the orchestrator needs from C8.
// A subset of *store.Repository's methods, named here so tests can
// substitute a fake.
type Store interface {
	LoadRow(rowID int64) (domain.InputRow, error)
	UpdateRowStatus(rowID int64, status domain.RowStatus, errMsg string) error
	SaveCandidates(rowID int64, candidates []domain.AmbiguousCandidate) error
	ResolveRow(rowID int64, uuid string, mustMatchCandidate bool) error
	SaveResult(result domain.RowResult) error
}

var _ Store = (*store.Repository)(nil)

// Retriever is the C3 surface the orchestrator drives; satisfied by
// *retrieve.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, row domain.InputRow) ([]retrieve.Candidate, bool, error)
	RetrieveComponent(ctx context.Context, searchText string) ([]retrieve.Candidate, bool, error)
}

var _ Retriever = (*retrieve.Retriever)(nil)

// Decider is the C4 surface the orchestrator drives; satisfied by
// *oracle.Client.
type Decider interface {
	Decide(ctx context.Context, row domain.InputRow, candidates []retrieve.Candidate, allowDecompose bool) (oracle.Decision, error)
	ConvertUnit(ctx context.Context, description, fromUnit, toUnit string) (float64, string, error)
}

var _ Decider = (*oracle.Client)(nil)

// Orchestrator wires C1/C3/C4/C5 together over one row at a time.
type Orchestrator struct {
	store            Store
	catalogue        catalogue.Store
	retriever        Retriever
	oracle           Decider
	mode             domain.ProcessingMode
	catalogueVersion string
}

func New(s Store, cat catalogue.Store, retriever Retriever, oc Decider, mode domain.ProcessingMode, catalogueVersion string) *Orchestrator {
	return &Orchestrator{
		store:            s,
		catalogue:        cat,
		retriever:        retriever,
		oracle:           oc,
		mode:             mode,
		catalogueVersion: catalogueVersion,
	}
}

// Run drives rowID from its current state to a terminal state, §4.6.
// It is safe to call from any worker; a row is only ever owned by one
// worker at a time by construction of the scheduler's work queue.
func (o *Orchestrator) Run(ctx context.Context, rowID int64) error {
	row, err := o.store.LoadRow(rowID)
	if err != nil {
		return fmt.Errorf("orchestrate: load row %d: %w", rowID, err)
	}

	row, err = normalize.Normalise(row)
	if err != nil {
		return o.fail(rowID, err)
	}
	if err := o.store.UpdateRowStatus(rowID, domain.RowSearching, ""); err != nil {
		return err
	}

	candidates, _, err := o.retriever.Retrieve(ctx, row)
	if err != nil {
		return o.fail(rowID, err)
	}

	if err := o.store.UpdateRowStatus(rowID, domain.RowLLMDeciding, ""); err != nil {
		return err
	}

	decision, err := o.decideWithMarketRetry(ctx, row, candidates, true)
	if err != nil {
		return o.fail(rowID, err)
	}

	switch decision.Type {
	case domain.DecisionMatch:
		if err := o.store.UpdateRowStatus(rowID, domain.RowMatched, ""); err != nil {
			return err
		}
		return o.finishMatch(ctx, rowID, row, decision.Match.SelectedUUID)

	case domain.DecisionAmbiguous:
		return o.handleAmbiguous(ctx, rowID, row, decision.Ambiguous)

	case domain.DecisionDecompose:
		return o.handleDecompose(ctx, rowID, row, decision.Decompose)

	default:
		return o.fail(rowID, fmt.Errorf("orchestrate: unrecognised decision type %q", decision.Type))
	}
}

// decideWithMarketRetry calls Decide, and if the returned match
// resolves to a market entry, retries decide once before the caller
// degrades to ambiguous, §4.6 "Validation at match".
func (o *Orchestrator) decideWithMarketRetry(ctx context.Context, row domain.InputRow, candidates []retrieve.Candidate, allowDecompose bool) (oracle.Decision, error) {
	decision, err := o.oracle.Decide(ctx, row, candidates, allowDecompose)
	if err != nil {
		return decision, err
	}
	if decision.Type != domain.DecisionMatch {
		return decision, nil
	}
	if !o.isMarketMatch(decision.Match.SelectedUUID) {
		return decision, nil
	}

	logger.Debug("match %s resolved to a market entry, retrying decide once", decision.Match.SelectedUUID)
	decision, err = o.oracle.Decide(ctx, row, candidates, allowDecompose)
	if err != nil {
		return decision, err
	}
	if decision.Type == domain.DecisionMatch && o.isMarketMatch(decision.Match.SelectedUUID) {
		return degradeToAmbiguous(candidates), nil
	}
	return decision, nil
}

func (o *Orchestrator) isMarketMatch(uuid string) bool {
	entry, ok := o.catalogue.ByUUID(uuid)
	return ok && (entry.IsMarket || domain.IsMarketActivity(entry.ActivityName))
}

// degradeToAmbiguous synthesises an Ambiguous decision from the top
// candidates when a persistent market match must be abandoned, §4.6.
func degradeToAmbiguous(candidates []retrieve.Candidate) oracle.Decision {
	n := len(candidates)
	if n > 5 {
		n = 5
	}
	if n < 2 {
		n = len(candidates)
	}
	plausible := make([]domain.AmbiguousCandidate, 0, n)
	for i := 0; i < n; i++ {
		c := candidates[i]
		plausible = append(plausible, domain.AmbiguousCandidate{
			UUID:         c.Entry.UUID,
			ActivityName: c.Entry.ActivityName,
			ProductName:  c.Entry.ProductName,
			Geography:    c.Entry.Geography,
			Unit:         c.Entry.Unit,
			WhyShort:     "top candidate after repeated market-entry match",
			Rank:         i + 1,
		})
	}
	return oracle.Decision{Type: domain.DecisionAmbiguous, Ambiguous: &oracle.AmbiguousDecision{Plausible: plausible}}
}

func (o *Orchestrator) handleAmbiguous(ctx context.Context, rowID int64, row domain.InputRow, decision *oracle.AmbiguousDecision) error {
	if err := o.store.SaveCandidates(rowID, decision.Plausible); err != nil {
		return err
	}
	// A row always passes through RowAmbiguous, even under ModeAuto,
	// so ResolveRow's ambiguous-status contract holds for both the
	// auto-pick path below and the external Resolve path, §4.6/§6.
	if err := o.store.UpdateRowStatus(rowID, domain.RowAmbiguous, ""); err != nil {
		return err
	}

	if o.mode == domain.ModeAuto {
		top := decision.Plausible[0]
		if err := o.store.ResolveRow(rowID, top.UUID, true); err != nil {
			return err
		}
		return o.finishMatch(ctx, rowID, row, top.UUID)
	}

	return nil
}

// Resolve completes the post-ambiguity tail for a row an operator has
// picked a uuid for: unit conversion plus calculation, without
// re-invoking decide, §4.7 "Suspension barrier".
func (o *Orchestrator) Resolve(ctx context.Context, rowID int64, uuid string) error {
	if err := o.store.ResolveRow(rowID, uuid, true); err != nil {
		return err
	}
	row, err := o.store.LoadRow(rowID)
	if err != nil {
		return err
	}
	return o.finishMatch(ctx, rowID, row, uuid)
}

func (o *Orchestrator) finishMatch(ctx context.Context, rowID int64, row domain.InputRow, uuid string) error {
	entry, ok := o.catalogue.ByUUID(uuid)
	if !ok {
		return o.fail(rowID, fmt.Errorf("orchestrate: matched uuid %q not found in catalogue", uuid))
	}

	conversionFactor := 1.0
	var conversion *domain.UnitConversion
	if row.UnitNorm != "" && entry.Unit != "" && row.UnitNorm != entry.Unit {
		factor, explanation, err := o.oracle.ConvertUnit(ctx, row.BezeichnungNorm, row.UnitNorm, entry.Unit)
		if err != nil {
			return o.fail(rowID, err)
		}
		conversionFactor = factor
		conversion = &domain.UnitConversion{Factor: factor, Explanation: explanation}
	}

	calc := calculate.CalculateMatch(entry, 1, conversionFactor, conversion)

	result := domain.RowResult{
		InputRowID:     rowID,
		DecisionType:   domain.DecisionMatch,
		SelectedUUID:   uuid,
		UnitConversion: conversion,
		BiogenicT:      calculate.FormatNumber(calc.BiogenicT),
		CommonT:        calculate.FormatNumber(calc.TotalT),
		Beschreibung:   calculate.BuildBeschreibungMatch(row.Referenzeinheit, calc),
	}

	quelle, err := calculate.BuildQuelle(o.catalogueVersion, []string{uuid})
	if err != nil {
		return o.fail(rowID, err)
	}
	result.Quelle = quelle
	result.DetailedCalc = calculate.BuildDetailedCalculationMatch(row, calc)

	if err := calculate.Validate(o.catalogue, result); err != nil {
		return o.fail(rowID, fmt.Errorf("orchestrate: %w", err))
	}

	return o.store.SaveResult(result)
}

func (o *Orchestrator) fail(rowID int64, err error) error {
	msg := err.Error()
	if updErr := o.store.UpdateRowStatus(rowID, domain.RowError, msg); updErr != nil {
		return fmt.Errorf("orchestrate: row %d failed (%v) and status update failed: %w", rowID, err, updErr)
	}
	return nil
}
