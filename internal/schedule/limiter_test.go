package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/timmy/ecomatch/internal/domain"
	"github.com/timmy/ecomatch/internal/oracle"
	"github.com/timmy/ecomatch/internal/retrieve"
)

type countingDecider struct {
	decideCalls int
}

func (d *countingDecider) Decide(ctx context.Context, row domain.InputRow, candidates []retrieve.Candidate, allowDecompose bool) (oracle.Decision, error) {
	d.decideCalls++
	return oracle.Decision{Type: domain.DecisionMatch, Match: &oracle.MatchDecision{SelectedUUID: "x"}}, nil
}

func (d *countingDecider) ConvertUnit(ctx context.Context, description, fromUnit, toUnit string) (float64, string, error) {
	return 1, "", nil
}

func TestRateLimitedDeciderEnforcesMinInterval(t *testing.T) {
	limiter := NewLimiter(30 * time.Millisecond)
	inner := &countingDecider{}
	decider := NewRateLimitedDecider(inner, limiter)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := decider.Decide(ctx, domain.InputRow{}, nil, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	elapsed := time.Since(start)

	if inner.decideCalls != 3 {
		t.Fatalf("expected 3 decide calls, got %d", inner.decideCalls)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("expected pacing to delay successive calls, elapsed only %v", elapsed)
	}
}

func TestRateLimitedDeciderRespectsCancellation(t *testing.T) {
	limiter := NewLimiter(time.Hour)
	limiter.Allow()
	inner := &countingDecider{}
	decider := NewRateLimitedDecider(inner, limiter)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := decider.Decide(ctx, domain.InputRow{}, nil, true); err == nil {
		t.Errorf("expected context deadline to abort the wait")
	}
}
