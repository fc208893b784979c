package orchestrate

import (
	"context"
	"fmt"

	"github.com/timmy/ecomatch/internal/calculate"
	"github.com/timmy/ecomatch/internal/domain"
	"github.com/timmy/ecomatch/internal/logger"
	"github.com/timmy/ecomatch/internal/oracle"
)

// handleDecompose resolves every LLM-proposed component against the
// catalogue via its own C1/C3/C4 sub-pipeline (allow_decompose=false,
// so nested decomposition never occurs), then sums the results into
// one calculated RowResult, §4.6 "Decomposition sub-rows".
func (o *Orchestrator) handleDecompose(ctx context.Context, rowID int64, row domain.InputRow, decision *oracle.DecomposeDecision) error {
	if err := o.store.UpdateRowStatus(rowID, domain.RowDecomposing, ""); err != nil {
		return err
	}

	inputs := make([]calculate.ComponentInput, 0, len(decision.Components))
	for _, comp := range decision.Components {
		resolved, err := o.resolveComponent(ctx, row, comp)
		if err != nil {
			return o.fail(rowID, domain.NewRowErrorf(domain.ErrComponentFailed, "component %q: %v", comp.Name, err))
		}
		inputs = append(inputs, resolved)
	}

	assumptions := make([]string, 0, len(decision.Components))
	for _, comp := range decision.Components {
		assumptions = append(assumptions, fmt.Sprintf("%s: %g (%s)", comp.Name, comp.Quantity, comp.Category))
	}

	decomp := calculate.CalculateDecomposition(inputs, assumptions)

	result := domain.RowResult{
		InputRowID:   rowID,
		DecisionType: domain.DecisionDecompose,
		Components:   decomp.Components,
		Assumptions:  decomp.Assumptions,
		BiogenicT:    calculate.FormatNumber(decomp.BiogenicT),
		CommonT:      calculate.FormatNumber(decomp.TotalT),
		Beschreibung: calculate.BuildBeschreibungDecomp(row.Referenzeinheit, decomp),
	}

	uuids := make([]string, len(decomp.Components))
	for i, c := range decomp.Components {
		uuids[i] = c.MatchedUUID
	}
	quelle, err := calculate.BuildQuelle(o.catalogueVersion, uuids)
	if err != nil {
		return o.fail(rowID, err)
	}
	result.Quelle = quelle
	result.DetailedCalc = calculate.BuildDetailedCalculationDecomp(row, decomp)

	if err := calculate.Validate(o.catalogue, result); err != nil {
		return o.fail(rowID, fmt.Errorf("orchestrate: %w", err))
	}

	return o.store.SaveResult(result)
}

// resolveComponent runs one decomposition component's own retrieval
// and decision sub-pipeline. The component inherits the parent row's
// normalised unit; conversion applies only if its matched entry's
// unit differs, §4.6 "Per-component calculation".
func (o *Orchestrator) resolveComponent(ctx context.Context, row domain.InputRow, comp domain.DecompComponent) (calculate.ComponentInput, error) {
	candidates, _, err := o.retriever.RetrieveComponent(ctx, comp.Name)
	if err != nil {
		return calculate.ComponentInput{}, err
	}

	decision, err := o.oracle.Decide(ctx, syntheticComponentRow(row, comp), candidates, false)
	if err != nil {
		return calculate.ComponentInput{}, err
	}

	var uuid string
	switch decision.Type {
	case domain.DecisionMatch:
		uuid = decision.Match.SelectedUUID
	case domain.DecisionAmbiguous:
		// Component ambiguities never block, regardless of job mode:
		// the LLM's first-ranked plausible candidate is taken, §4.6.
		if len(decision.Ambiguous.Plausible) == 0 {
			return calculate.ComponentInput{}, fmt.Errorf("ambiguous component decision carried no plausible candidates")
		}
		uuid = decision.Ambiguous.Plausible[0].UUID
	default:
		return calculate.ComponentInput{}, fmt.Errorf("unexpected nested decision type %q for component", decision.Type)
	}

	entry, ok := o.catalogue.ByUUID(uuid)
	if !ok {
		return calculate.ComponentInput{}, fmt.Errorf("matched uuid %q not found in catalogue", uuid)
	}
	if entry.IsMarket || domain.IsMarketActivity(entry.ActivityName) {
		return calculate.ComponentInput{}, fmt.Errorf("matched uuid %q resolves to a market entry", uuid)
	}

	assumedUnit := row.UnitNorm
	conversionFactor := 1.0
	if assumedUnit != "" && entry.Unit != "" && assumedUnit != entry.Unit {
		factor, explanation, err := o.oracle.ConvertUnit(ctx, comp.Name, assumedUnit, entry.Unit)
		if err != nil {
			return calculate.ComponentInput{}, err
		}
		conversionFactor = factor
		logger.Debug("component %q converted %s -> %s via %s", comp.Name, assumedUnit, entry.Unit, explanation)
	}

	return calculate.ComponentInput{
		Label:            comp.Name,
		AssumedQuantity:  comp.Quantity,
		AssumedUnit:      assumedUnit,
		Entry:            entry,
		ConversionFactor: conversionFactor,
	}, nil
}

// syntheticComponentRow builds the minimal InputRow a component's own
// decide call is framed against, inheriting region, scope and
// category from the parent, §4.6.
func syntheticComponentRow(parent domain.InputRow, comp domain.DecompComponent) domain.InputRow {
	return domain.InputRow{
		JobID:           parent.JobID,
		Scope:           parent.Scope,
		Kategorie:       parent.Kategorie,
		Region:          parent.Region,
		RegionNorm:      parent.RegionNorm,
		BezeichnungNorm: comp.Name,
		UnitNorm:        parent.UnitNorm,
	}
}
