package domain

import "time"

// ProcessingMode selects whether ambiguous rows suspend for an
// external resolution (review) or auto-pick the top candidate (auto).
type ProcessingMode string

const (
	ModeAuto   ProcessingMode = "auto"
	ModeReview ProcessingMode = "review"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobCreated           JobStatus = "created"
	JobRunning           JobStatus = "running"
	JobAwaitingResolve   JobStatus = "awaiting_resolution"
	JobCompleted         JobStatus = "completed"
	JobError             JobStatus = "error"
)

// Job is a single batch of input rows processed under one mode.
type Job struct {
	ID        string
	Mode      ProcessingMode
	Status    JobStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	Total     int
	Pending   int
	Processing int
	Calculated int
	Ambiguous  int
	Errors     int
}

// RowStatus is the per-row state machine position, §4.6.
type RowStatus string

const (
	RowPending     RowStatus = "pending"
	RowSearching   RowStatus = "searching"
	RowLLMDeciding RowStatus = "llm_deciding"
	RowAmbiguous   RowStatus = "ambiguous"
	RowDecomposing RowStatus = "decomposing"
	RowMatched     RowStatus = "matched"
	RowCalculated  RowStatus = "calculated"
	RowError       RowStatus = "error"
)

// Scope is a GHG Protocol emission scope.
type Scope string

const (
	Scope1 Scope = "Scope 1"
	Scope2 Scope = "Scope 2"
	Scope3 Scope = "Scope 3"
)

// InputRow is one line of the input batch, §3.
type InputRow struct {
	ID                   int64
	JobID                string
	RowIndex             int
	Scope                Scope
	Kategorie            string
	Unterkategorie       string
	Bezeichnung          string
	Produktinformationen string
	Referenzeinheit      string
	Region               string
	Referenzjahr         string

	BezeichnungNorm string
	ProduktinfoNorm string
	RegionNorm      string
	UnitNorm        string

	Status       RowStatus
	ErrorMessage string
}

// ComponentCategory classifies a decomposition component, §3/§4.6.
type ComponentCategory string

const (
	CategoryMaterials ComponentCategory = "materials"
	CategoryEnergy    ComponentCategory = "energy"
	CategoryPackaging ComponentCategory = "packaging"
	CategoryTransport ComponentCategory = "transport"
	CategoryProcesses ComponentCategory = "processes"
)

// AmbiguousCandidate is one plausible option surfaced by the LLM
// decision oracle when it cannot pick a single match.
type AmbiguousCandidate struct {
	UUID         string
	ActivityName string
	ProductName  string
	Geography    string
	Unit         string
	WhyShort     string
	Rank         int
}

// DecompComponent is one LLM-proposed decomposition component before
// it has been resolved against the catalogue.
type DecompComponent struct {
	Name     string
	Quantity float64
	Category ComponentCategory
	Note     string
}

// DecisionType discriminates the LLM decision oracle's output union.
type DecisionType string

const (
	DecisionMatch     DecisionType = "match"
	DecisionAmbiguous DecisionType = "ambiguous"
	DecisionDecompose DecisionType = "decompose"
)

// ResolvedComponent is a decomposition component after its own
// retrieval/decision/calculation sub-pipeline has completed.
type ResolvedComponent struct {
	ComponentLabel    string
	AssumedQuantity   float64
	AssumedUnit       string
	MatchedUUID       string
	MatchedActivity   string
	MatchedGeography  string
	ScaledBiogenicKg  float64
	ScaledTotalKg     float64
}

// UnitConversion records an LLM-derived unit conversion applied during
// calculation, carried into provenance text.
type UnitConversion struct {
	Factor      float64
	Explanation string
}

// RowResult is the terminal output of a calculated row, §3/§4.5. It
// doubles as the flat record ExportRows returns for every row of a
// job, §6 "Export interface": RowIndex/Bezeichnung/Status/ErrorMessage
// are always populated, the calculation fields only once Status is
// RowCalculated.
type RowResult struct {
	InputRowID     int64
	RowIndex       int
	Bezeichnung    string
	Status         RowStatus
	ErrorMessage   string
	DecisionType   DecisionType
	SelectedUUID   string
	Candidates     []AmbiguousCandidate
	Components     []ResolvedComponent
	Assumptions    []string
	UnitConversion *UnitConversion
	BiogenicT      string
	CommonT        string
	Beschreibung   string
	Quelle         string
	DetailedCalc   string
	CreatedAt      time.Time
}

// RowUUID pairs a row with an operator-selected catalogue uuid, the
// unit ResolveBatch resolves in bulk, §6.
type RowUUID struct {
	RowID int64
	UUID  string
}
