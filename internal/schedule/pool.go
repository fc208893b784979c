// Package schedule implements C7, the batch scheduler: a fixed
// worker pool that drives the row orchestrator over a job's rows,
// a process-wide LLM rate limiter, and the suspension/resolution
// barrier review mode requires, §4.7.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/timmy/ecomatch/internal/domain"
	"github.com/timmy/ecomatch/internal/logger"
)

// Orchestrator is the C6 surface the pool drives one row at a time.
type Orchestrator interface {
	Run(ctx context.Context, rowID int64) error
	Resolve(ctx context.Context, rowID int64, uuid string) error
}

// Store is the subset of C8 the pool needs to discover a job's rows,
// roll cancelled rows to error, and read back terminal aggregate
// state.
type Store interface {
	RowsByJob(jobID string) ([]domain.InputRow, error)
	UpdateRowStatus(rowID int64, status domain.RowStatus, errMsg string) error
	JobByID(jobID string) (domain.Job, error)
}

// Pool runs a fixed number of workers over a job's rows, grounded on
// ingest.go's IngestFromSource worker-pool shape: a buffered work
// channel, a dedicated results collector, and ordered channel closing
// on completion.
type Pool struct {
	orchestrator Orchestrator
	store        Store
	workers      int
}

// New builds a Pool with workers concurrent row handlers (default 4
// when workers <= 0, matching batch.workers' configured default).
func New(orchestrator Orchestrator, store Store, workers int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	return &Pool{orchestrator: orchestrator, store: store, workers: workers}
}

// rowTask is one unit of work queued to a worker: the id of a pending
// row to Run. The post-ambiguity Resolve tail bypasses the queue.
type rowTask struct {
	rowID int64
}

// RunJob drains jobID's rows in input order into the worker pool and
// blocks until every worker has drained or ctx is cancelled. On
// cancellation, in-flight rows finish their current LLM call (per
// §4.7, the job-level context is not consulted mid-call) and then
// abort before starting their next row.
func (p *Pool) RunJob(ctx context.Context, jobID string) error {
	rows, err := p.store.RowsByJob(jobID)
	if err != nil {
		return err
	}

	tasks := make(chan rowTask, p.workers*2)
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.worker(ctx, workerID, tasks)
		}(i)
	}

feed:
	for i, row := range rows {
		if row.Status != domain.RowPending {
			continue
		}
		select {
		case tasks <- rowTask{rowID: row.ID}:
		case <-ctx.Done():
			p.cancelPending(rows[i:])
			break feed
		}
	}

	close(tasks)
	wg.Wait()

	return nil
}

// cancelPending rolls every still-pending row in rows to error with
// message "cancelled", §4.7's cancellation contract: rows queued but
// not yet dispatched must not be left pending forever.
func (p *Pool) cancelPending(rows []domain.InputRow) {
	for _, row := range rows {
		if row.Status != domain.RowPending {
			continue
		}
		if err := p.store.UpdateRowStatus(row.ID, domain.RowError, domain.NewRowErrorf(domain.ErrCancelled, "job cancelled").Error()); err != nil {
			logger.Error("failed to mark row %d cancelled: %v", row.ID, err)
		}
	}
}

func (p *Pool) worker(ctx context.Context, workerID int, tasks <-chan rowTask) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			logger.Debug("worker %d aborting before row %d: job cancelled", workerID, task.rowID)
			if err := p.store.UpdateRowStatus(task.rowID, domain.RowError, domain.NewRowErrorf(domain.ErrCancelled, "job cancelled").Error()); err != nil {
				logger.Error("failed to mark row %d cancelled: %v", task.rowID, err)
			}
			continue
		default:
		}

		if err := p.orchestrator.Run(context.WithoutCancel(ctx), task.rowID); err != nil {
			logger.Error("worker %d: row %d failed: %v", workerID, task.rowID, err)
		}
	}
}

// Resolve injects a resumption task that runs a suspended row's
// post-ambiguity tail directly, without going through the queue,
// since resolution is driven by an external caller rather than the
// batch scheduler's own iteration, §4.7.
func (p *Pool) Resolve(ctx context.Context, rowID int64, selectedUUID string) error {
	return p.orchestrator.Resolve(ctx, rowID, selectedUUID)
}

// ResolveBatch resolves each pairing independently, continuing past a
// single row's failure and returning every error joined together, §6
// "Resolution interface" ResolveBatch(jobID, []RowUUID).
func (p *Pool) ResolveBatch(ctx context.Context, picks []domain.RowUUID) error {
	var errs []error
	for _, pick := range picks {
		if err := p.Resolve(ctx, pick.RowID, pick.UUID); err != nil {
			errs = append(errs, fmt.Errorf("resolve row %d: %w", pick.RowID, err))
		}
	}
	return errors.Join(errs...)
}
