package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/ecomatch/internal/domain"
	"gorm.io/gorm"
)

// Repository implements the C8 persistence surface over a *gorm.DB,
// §4.8. Every method is safe for concurrent use; row-level mutations
// go through single-row updates rather than whole-job rewrites so
// concurrent workers touching different rows never conflict.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateJob inserts a new job in JobCreated status with the given
// mode and row count.
func (r *Repository) CreateJob(id string, mode domain.ProcessingMode, total int) (domain.Job, error) {
	rec := JobRecord{
		ID:      id,
		Mode:    string(mode),
		Status:  string(domain.JobCreated),
		Total:   total,
		Pending: total,
	}
	if err := r.db.Create(&rec).Error; err != nil {
		return domain.Job{}, fmt.Errorf("create job: %w", err)
	}
	return jobFromRecord(rec), nil
}

// AddInputRows inserts the batch's normalized input rows under jobID,
// assigning RowIndex in slice order.
func (r *Repository) AddInputRows(jobID string, rows []domain.InputRow) error {
	if len(rows) == 0 {
		return nil
	}
	recs := make([]InputRowRecord, len(rows))
	for i, row := range rows {
		recs[i] = inputRowToRecord(jobID, i, row)
	}
	if err := r.db.Create(&recs).Error; err != nil {
		return fmt.Errorf("add input rows: %w", err)
	}
	return nil
}

// LoadRow fetches one input row by ID.
func (r *Repository) LoadRow(rowID int64) (domain.InputRow, error) {
	var rec InputRowRecord
	if err := r.db.First(&rec, rowID).Error; err != nil {
		return domain.InputRow{}, fmt.Errorf("load row %d: %w", rowID, err)
	}
	return inputRowFromRecord(rec), nil
}

// UpdateRowStatus transitions a row to status, recording errMsg when
// status is RowError. Also mirrors the job's aggregate counters.
func (r *Repository) UpdateRowStatus(rowID int64, status domain.RowStatus, errMsg string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var rec InputRowRecord
		if err := tx.First(&rec, rowID).Error; err != nil {
			return fmt.Errorf("load row %d: %w", rowID, err)
		}
		prev := domain.RowStatus(rec.Status)

		rec.Status = string(status)
		rec.ErrorMessage = errMsg
		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("update row %d status: %w", rowID, err)
		}

		return adjustJobCounters(tx, rec.JobID, prev, status)
	})
}

// SaveCandidates persists the candidate set surfaced for an ambiguous
// row, so a later ResolveRow call can validate against it.
func (r *Repository) SaveCandidates(rowID int64, candidates []domain.AmbiguousCandidate) error {
	if err := r.db.Where("input_row_id = ?", rowID).Delete(&RowCandidateRecord{}).Error; err != nil {
		return fmt.Errorf("clear candidates for row %d: %w", rowID, err)
	}
	if len(candidates) == 0 {
		return nil
	}
	recs := make([]RowCandidateRecord, len(candidates))
	for i, c := range candidates {
		recs[i] = RowCandidateRecord{
			InputRowID:   rowID,
			UUID:         c.UUID,
			ActivityName: c.ActivityName,
			ProductName:  c.ProductName,
			Geography:    c.Geography,
			Unit:         c.Unit,
			Rank:         c.Rank,
			Rationale:    c.WhyShort,
		}
	}
	if err := r.db.Create(&recs).Error; err != nil {
		return fmt.Errorf("save candidates for row %d: %w", rowID, err)
	}
	return nil
}

// ListAmbiguous returns the candidate set previously saved for rowID.
func (r *Repository) ListAmbiguous(rowID int64) ([]domain.AmbiguousCandidate, error) {
	var recs []RowCandidateRecord
	if err := r.db.Where("input_row_id = ?", rowID).Order("rank asc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list candidates for row %d: %w", rowID, err)
	}
	out := make([]domain.AmbiguousCandidate, len(recs))
	for i, rec := range recs {
		out[i] = domain.AmbiguousCandidate{
			UUID:         rec.UUID,
			ActivityName: rec.ActivityName,
			ProductName:  rec.ProductName,
			Geography:    rec.Geography,
			Unit:         rec.Unit,
			WhyShort:     rec.Rationale,
			Rank:         rec.Rank,
		}
	}
	return out, nil
}

// ErrCandidateNotFound is returned by ResolveRow when the supplied
// UUID does not appear in the row's saved candidate set.
var ErrCandidateNotFound = errors.New("uuid not among saved candidates")

// ErrRowNotAmbiguous is returned by ResolveRow when the row is not
// currently in RowAmbiguous status.
var ErrRowNotAmbiguous = errors.New("row is not in ambiguous status")

// ResolveRow records the operator's (or auto-pick's) choice of uuid
// for an ambiguous row and advances it back to RowMatched so
// calculation can proceed. The row must currently be RowAmbiguous,
// §6's resolution contract. mustMatchCandidate enforces that uuid was
// among the candidates SaveCandidates recorded, per §4.6's ambiguous
// resolution contract; false skips that membership check.
func (r *Repository) ResolveRow(rowID int64, uuid string, mustMatchCandidate bool) error {
	var rec InputRowRecord
	if err := r.db.First(&rec, rowID).Error; err != nil {
		return fmt.Errorf("resolve row %d: load row: %w", rowID, err)
	}
	if domain.RowStatus(rec.Status) != domain.RowAmbiguous {
		return fmt.Errorf("resolve row %d: %w", rowID, ErrRowNotAmbiguous)
	}

	if mustMatchCandidate {
		candidates, err := r.ListAmbiguous(rowID)
		if err != nil {
			return err
		}
		found := false
		for _, c := range candidates {
			if c.UUID == uuid {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("resolve row %d: %w", rowID, ErrCandidateNotFound)
		}
	}
	return r.UpdateRowStatus(rowID, domain.RowMatched, "")
}

// SaveResult persists the terminal RowResult and advances the row to
// RowCalculated.
func (r *Repository) SaveResult(result domain.RowResult) error {
	candidatesJSON, err := json.Marshal(result.Candidates)
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}
	componentsJSON, err := json.Marshal(result.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}
	assumptionsJSON, err := json.Marshal(result.Assumptions)
	if err != nil {
		return fmt.Errorf("marshal assumptions: %w", err)
	}
	var unitConvJSON []byte
	if result.UnitConversion != nil {
		unitConvJSON, err = json.Marshal(result.UnitConversion)
		if err != nil {
			return fmt.Errorf("marshal unit conversion: %w", err)
		}
	}

	rec := RowResultRecord{
		InputRowID:         result.InputRowID,
		DecisionType:       string(result.DecisionType),
		SelectedUUID:       result.SelectedUUID,
		CandidatesJSON:     string(candidatesJSON),
		ComponentsJSON:     string(componentsJSON),
		AssumptionsJSON:    string(assumptionsJSON),
		UnitConversionJSON: string(unitConvJSON),
		BiogenicT:          result.BiogenicT,
		CommonT:            result.CommonT,
		Beschreibung:       result.Beschreibung,
		Quelle:             result.Quelle,
		DetailedCalc:       result.DetailedCalc,
		CreatedAt:          result.CreatedAt,
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("input_row_id = ?", result.InputRowID).
			Assign(rec).
			FirstOrCreate(&RowResultRecord{}, RowResultRecord{InputRowID: result.InputRowID}).Error; err != nil {
			return fmt.Errorf("save result for row %d: %w", result.InputRowID, err)
		}

		if len(result.Components) > 0 {
			if err := tx.Where("input_row_id = ?", result.InputRowID).Delete(&RowComponentRecord{}).Error; err != nil {
				return fmt.Errorf("clear components for row %d: %w", result.InputRowID, err)
			}
			recs := make([]RowComponentRecord, len(result.Components))
			for i, c := range result.Components {
				recs[i] = RowComponentRecord{
					InputRowID:       result.InputRowID,
					ComponentLabel:   c.ComponentLabel,
					AssumedQuantity:  c.AssumedQuantity,
					AssumedUnit:      c.AssumedUnit,
					MatchedUUID:      c.MatchedUUID,
					MatchedActivity:  c.MatchedActivity,
					MatchedGeography: c.MatchedGeography,
					ScaledBiogenicKg: c.ScaledBiogenicKg,
					ScaledTotalKg:    c.ScaledTotalKg,
				}
			}
			if err := tx.Create(&recs).Error; err != nil {
				return fmt.Errorf("save components for row %d: %w", result.InputRowID, err)
			}
		}

		var row InputRowRecord
		if err := tx.First(&row, result.InputRowID).Error; err != nil {
			return fmt.Errorf("load row %d: %w", result.InputRowID, err)
		}
		prev := domain.RowStatus(row.Status)
		row.Status = string(domain.RowCalculated)
		row.ErrorMessage = ""
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("mark row %d calculated: %w", result.InputRowID, err)
		}
		return adjustJobCounters(tx, row.JobID, prev, domain.RowCalculated)
	})
}

// LoadResult fetches the terminal result for a row, if one exists.
func (r *Repository) LoadResult(rowID int64) (domain.RowResult, error) {
	var rec RowResultRecord
	if err := r.db.Where("input_row_id = ?", rowID).First(&rec).Error; err != nil {
		return domain.RowResult{}, fmt.Errorf("load result for row %d: %w", rowID, err)
	}

	var result domain.RowResult
	result.InputRowID = rec.InputRowID
	result.DecisionType = domain.DecisionType(rec.DecisionType)
	result.SelectedUUID = rec.SelectedUUID
	result.BiogenicT = rec.BiogenicT
	result.CommonT = rec.CommonT
	result.Beschreibung = rec.Beschreibung
	result.Quelle = rec.Quelle
	result.DetailedCalc = rec.DetailedCalc
	result.CreatedAt = rec.CreatedAt

	if rec.CandidatesJSON != "" {
		if err := json.Unmarshal([]byte(rec.CandidatesJSON), &result.Candidates); err != nil {
			return domain.RowResult{}, fmt.Errorf("unmarshal candidates: %w", err)
		}
	}
	if rec.ComponentsJSON != "" {
		if err := json.Unmarshal([]byte(rec.ComponentsJSON), &result.Components); err != nil {
			return domain.RowResult{}, fmt.Errorf("unmarshal components: %w", err)
		}
	}
	if rec.AssumptionsJSON != "" {
		if err := json.Unmarshal([]byte(rec.AssumptionsJSON), &result.Assumptions); err != nil {
			return domain.RowResult{}, fmt.Errorf("unmarshal assumptions: %w", err)
		}
	}
	if rec.UnitConversionJSON != "" {
		var uc domain.UnitConversion
		if err := json.Unmarshal([]byte(rec.UnitConversionJSON), &uc); err != nil {
			return domain.RowResult{}, fmt.Errorf("unmarshal unit conversion: %w", err)
		}
		result.UnitConversion = &uc
	}
	return result, nil
}

// JobByID fetches one job's current aggregate state.
func (r *Repository) JobByID(id string) (domain.Job, error) {
	var rec JobRecord
	if err := r.db.First(&rec, "id = ?", id).Error; err != nil {
		return domain.Job{}, fmt.Errorf("load job %s: %w", id, err)
	}
	return jobFromRecord(rec), nil
}

// RowsByJob lists every input row belonging to a job, ordered by
// RowIndex.
func (r *Repository) RowsByJob(jobID string) ([]domain.InputRow, error) {
	var recs []InputRowRecord
	if err := r.db.Where("job_id = ?", jobID).Order("row_index asc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list rows for job %s: %w", jobID, err)
	}
	out := make([]domain.InputRow, len(recs))
	for i, rec := range recs {
		out[i] = inputRowFromRecord(rec)
	}
	return out, nil
}

// ExportRows returns every row of jobID as a flat RowResult, ordered
// by row_index, §6 "Export interface". Rows that never reached
// RowCalculated carry only their row/status metadata; the calculation
// fields stay zero.
func (r *Repository) ExportRows(jobID string) ([]domain.RowResult, error) {
	rows, err := r.RowsByJob(jobID)
	if err != nil {
		return nil, fmt.Errorf("export rows for job %s: %w", jobID, err)
	}

	out := make([]domain.RowResult, len(rows))
	for i, row := range rows {
		result := domain.RowResult{
			InputRowID:   row.ID,
			RowIndex:     row.RowIndex,
			Bezeichnung:  row.Bezeichnung,
			Status:       row.Status,
			ErrorMessage: row.ErrorMessage,
		}
		if row.Status == domain.RowCalculated {
			loaded, err := r.LoadResult(row.ID)
			if err != nil {
				return nil, fmt.Errorf("export row %d: %w", row.ID, err)
			}
			loaded.RowIndex = row.RowIndex
			loaded.Bezeichnung = row.Bezeichnung
			loaded.Status = row.Status
			result = loaded
		}
		out[i] = result
	}
	return out, nil
}

// adjustJobCounters mirrors a row's status transition into the
// parent job's aggregate counters, moving jobs into
// JobAwaitingResolve / JobCompleted as their rows settle.
func adjustJobCounters(tx *gorm.DB, jobID string, prev, next domain.RowStatus) error {
	var job JobRecord
	if err := tx.First(&job, "id = ?", jobID).Error; err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	decrement(&job, prev)
	increment(&job, next)

	switch {
	case job.Ambiguous > 0:
		job.Status = string(domain.JobAwaitingResolve)
	case job.Calculated+job.Errors == job.Total && job.Total > 0:
		job.Status = string(domain.JobCompleted)
	default:
		job.Status = string(domain.JobRunning)
	}
	job.UpdatedAt = time.Now()

	if err := tx.Save(&job).Error; err != nil {
		return fmt.Errorf("update job %s counters: %w", jobID, err)
	}
	return nil
}

func decrement(job *JobRecord, status domain.RowStatus) {
	switch status {
	case domain.RowPending, "":
		if job.Pending > 0 {
			job.Pending--
		}
	case domain.RowAmbiguous:
		if job.Ambiguous > 0 {
			job.Ambiguous--
		}
	case domain.RowCalculated:
		if job.Calculated > 0 {
			job.Calculated--
		}
	case domain.RowError:
		if job.Errors > 0 {
			job.Errors--
		}
	default:
		if job.Processing > 0 {
			job.Processing--
		}
	}
}

func increment(job *JobRecord, status domain.RowStatus) {
	switch status {
	case domain.RowPending:
		job.Pending++
	case domain.RowAmbiguous:
		job.Ambiguous++
	case domain.RowCalculated:
		job.Calculated++
	case domain.RowError:
		job.Errors++
	default:
		job.Processing++
	}
}

func jobFromRecord(rec JobRecord) domain.Job {
	return domain.Job{
		ID:         rec.ID,
		Mode:       domain.ProcessingMode(rec.Mode),
		Status:     domain.JobStatus(rec.Status),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
		Total:      rec.Total,
		Pending:    rec.Pending,
		Processing: rec.Processing,
		Calculated: rec.Calculated,
		Ambiguous:  rec.Ambiguous,
		Errors:     rec.Errors,
	}
}

func inputRowToRecord(jobID string, index int, row domain.InputRow) InputRowRecord {
	return InputRowRecord{
		JobID:                jobID,
		RowIndex:             index,
		Scope:                string(row.Scope),
		Kategorie:            row.Kategorie,
		Unterkategorie:       row.Unterkategorie,
		Bezeichnung:          row.Bezeichnung,
		Produktinformationen: row.Produktinformationen,
		Referenzeinheit:      row.Referenzeinheit,
		Region:               row.Region,
		Referenzjahr:         row.Referenzjahr,
		BezeichnungNorm:      row.BezeichnungNorm,
		ProduktinfoNorm:      row.ProduktinfoNorm,
		RegionNorm:           row.RegionNorm,
		UnitNorm:             row.UnitNorm,
		Status:               string(domain.RowPending),
	}
}

func inputRowFromRecord(rec InputRowRecord) domain.InputRow {
	return domain.InputRow{
		ID:                   rec.ID,
		JobID:                rec.JobID,
		RowIndex:             rec.RowIndex,
		Scope:                domain.Scope(rec.Scope),
		Kategorie:            rec.Kategorie,
		Unterkategorie:       rec.Unterkategorie,
		Bezeichnung:          rec.Bezeichnung,
		Produktinformationen: rec.Produktinformationen,
		Referenzeinheit:      rec.Referenzeinheit,
		Region:               rec.Region,
		Referenzjahr:         rec.Referenzjahr,
		BezeichnungNorm:      rec.BezeichnungNorm,
		ProduktinfoNorm:      rec.ProduktinfoNorm,
		RegionNorm:           rec.RegionNorm,
		UnitNorm:             rec.UnitNorm,
		Status:               domain.RowStatus(rec.Status),
		ErrorMessage:         rec.ErrorMessage,
	}
}
