package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/timmy/ecomatch/internal/domain"
)

type fakeOrchestrator struct {
	mu      sync.Mutex
	ran     []int64
	resolve []int64
}

func (f *fakeOrchestrator) Run(ctx context.Context, rowID int64) error {
	f.mu.Lock()
	f.ran = append(f.ran, rowID)
	f.mu.Unlock()
	return nil
}

func (f *fakeOrchestrator) Resolve(ctx context.Context, rowID int64, uuid string) error {
	f.mu.Lock()
	f.resolve = append(f.resolve, rowID)
	f.mu.Unlock()
	return nil
}

type fakeRowStore struct {
	mu       sync.Mutex
	rows     []domain.InputRow
	statuses map[int64]domain.RowStatus
}

func (s *fakeRowStore) RowsByJob(jobID string) ([]domain.InputRow, error) { return s.rows, nil }
func (s *fakeRowStore) JobByID(jobID string) (domain.Job, error)         { return domain.Job{}, nil }

func (s *fakeRowStore) UpdateRowStatus(rowID int64, status domain.RowStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses == nil {
		s.statuses = make(map[int64]domain.RowStatus)
	}
	s.statuses[rowID] = status
	return nil
}

func (s *fakeRowStore) statusOf(rowID int64) domain.RowStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[rowID]
}

func TestPoolRunsEveryPendingRow(t *testing.T) {
	rows := []domain.InputRow{
		{ID: 1, Status: domain.RowPending},
		{ID: 2, Status: domain.RowPending},
		{ID: 3, Status: domain.RowCalculated},
	}
	orc := &fakeOrchestrator{}
	store := &fakeRowStore{rows: rows}

	pool := New(orc, store, 2)
	if err := pool.RunJob(context.Background(), "job-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(orc.ran) != 2 {
		t.Fatalf("expected 2 rows run (pending only), got %d: %v", len(orc.ran), orc.ran)
	}
}

func TestPoolStopsFeedingOnCancellation(t *testing.T) {
	rows := make([]domain.InputRow, 50)
	for i := range rows {
		rows[i] = domain.InputRow{ID: int64(i + 1), Status: domain.RowPending}
	}
	var count atomic.Int64
	orc := &countingOrchestrator{count: &count}
	store := &fakeRowStore{rows: rows}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := New(orc, store, 1)
	if err := pool.RunJob(ctx, "job-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if count.Load() != 0 {
		t.Fatalf("expected no rows run against an already-cancelled job, got %d", count.Load())
	}
	for _, row := range rows {
		if got := store.statusOf(row.ID); got != domain.RowError {
			t.Errorf("row %d: expected status RowError (cancelled) after cancellation, got %q", row.ID, got)
		}
	}
}

type countingOrchestrator struct {
	count *atomic.Int64
}

func (c *countingOrchestrator) Run(ctx context.Context, rowID int64) error {
	c.count.Add(1)
	return nil
}
func (c *countingOrchestrator) Resolve(ctx context.Context, rowID int64, uuid string) error {
	return nil
}

func TestPoolResolveDelegatesWithoutQueueing(t *testing.T) {
	orc := &fakeOrchestrator{}
	pool := New(orc, &fakeRowStore{}, 2)

	if err := pool.Resolve(context.Background(), 42, "uuid-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orc.resolve) != 1 || orc.resolve[0] != 42 {
		t.Errorf("expected resolve delegated for row 42, got %v", orc.resolve)
	}
}

func TestPoolResolveBatchResolvesEveryPickAndJoinsErrors(t *testing.T) {
	orc := &partialFailOrchestrator{failRow: 2}
	pool := New(orc, &fakeRowStore{}, 2)

	picks := []domain.RowUUID{
		{RowID: 1, UUID: "uuid-1"},
		{RowID: 2, UUID: "uuid-2"},
		{RowID: 3, UUID: "uuid-3"},
	}
	err := pool.ResolveBatch(context.Background(), picks)
	if err == nil {
		t.Fatal("expected a joined error from the failing row")
	}

	orc.mu.Lock()
	defer orc.mu.Unlock()
	if len(orc.resolved) != 3 {
		t.Fatalf("expected all 3 picks attempted despite row 2 failing, got %v", orc.resolved)
	}
}

type partialFailOrchestrator struct {
	mu       sync.Mutex
	failRow  int64
	resolved []int64
}

func (o *partialFailOrchestrator) Run(ctx context.Context, rowID int64) error { return nil }

func (o *partialFailOrchestrator) Resolve(ctx context.Context, rowID int64, uuid string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resolved = append(o.resolved, rowID)
	if rowID == o.failRow {
		return errResolveFailed
	}
	return nil
}

var errResolveFailed = errors.New("resolve failed")
