package store

import "time"

// JobRecord is the GORM model backing domain.Job.
type JobRecord struct {
	ID         string `gorm:"type:text;primaryKey"`
	Mode       string `gorm:"type:text;not null"`
	Status     string `gorm:"type:text;not null;index"`
	Total      int
	Pending    int
	Processing int
	Calculated int
	Ambiguous  int
	Errors     int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (JobRecord) TableName() string { return "jobs" }

// InputRowRecord is the GORM model backing domain.InputRow.
type InputRowRecord struct {
	ID                   int64  `gorm:"primaryKey;autoIncrement"`
	JobID                string `gorm:"type:text;not null;index:idx_rows_job"`
	RowIndex             int    `gorm:"not null"`
	Scope                string
	Kategorie            string
	Unterkategorie       string
	Bezeichnung          string `gorm:"not null"`
	Produktinformationen string
	Referenzeinheit      string `gorm:"not null"`
	Region               string
	Referenzjahr         string

	BezeichnungNorm string
	ProduktinfoNorm string
	RegionNorm      string `gorm:"default:GLO"`
	UnitNorm        string

	Status       string `gorm:"type:text;not null;index;default:pending"`
	ErrorMessage string
}

func (InputRowRecord) TableName() string { return "input_rows" }

// RowResultRecord is the GORM model backing domain.RowResult. The
// structured sub-fields (candidates, components, assumptions, unit
// conversion) are stored as JSON text, matching
// dataset_store.py's row_results schema.
type RowResultRecord struct {
	ID                 int64  `gorm:"primaryKey;autoIncrement"`
	InputRowID         int64  `gorm:"not null;uniqueIndex"`
	DecisionType       string `gorm:"type:text;not null"`
	SelectedUUID       string
	CandidatesJSON     string
	ComponentsJSON     string
	AssumptionsJSON    string
	UnitConversionJSON string
	BiogenicT          string
	CommonT            string
	Beschreibung       string
	Quelle             string
	DetailedCalc       string
	CreatedAt          time.Time
}

func (RowResultRecord) TableName() string { return "row_results" }

// RowCandidateRecord persists the CandidateSet saved for an ambiguous
// row, so resolve() can validate the supplied UUID against it.
type RowCandidateRecord struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	InputRowID   int64  `gorm:"not null;index:idx_candidates_row"`
	UUID         string `gorm:"not null"`
	ActivityName string
	ProductName  string
	Geography    string
	Unit         string
	Rank         int
	Rationale    string
}

func (RowCandidateRecord) TableName() string { return "row_candidates" }

// RowComponentRecord persists one resolved decomposition component.
type RowComponentRecord struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	InputRowID       int64  `gorm:"not null;index:idx_components_row"`
	ComponentLabel   string
	AssumedQuantity  float64
	AssumedUnit      string
	MatchedUUID      string
	MatchedActivity  string
	MatchedGeography string
	ScaledBiogenicKg float64
	ScaledTotalKg    float64
}

func (RowComponentRecord) TableName() string { return "row_components" }
