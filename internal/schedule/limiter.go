package schedule

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/timmy/ecomatch/internal/domain"
	"github.com/timmy/ecomatch/internal/oracle"
	"github.com/timmy/ecomatch/internal/orchestrate"
	"github.com/timmy/ecomatch/internal/retrieve"
)

// NewLimiter builds a token bucket enforcing one call per minInterval
// with burst 1, matching rate.NewLimiter(rate.Every(15*time.Second),
// 1)'s configured default, §4.7/§5 "Rate pacing". A single instance
// must be shared across every worker's Decider.
func NewLimiter(minInterval time.Duration) *rate.Limiter {
	if minInterval <= 0 {
		minInterval = 15 * time.Second
	}
	return rate.NewLimiter(rate.Every(minInterval), 1)
}

// RateLimitedDecider wraps an orchestrate.Decider so every outbound
// LLM call first acquires a token from the shared process-wide
// bucket, regardless of which worker issues it.
type RateLimitedDecider struct {
	next    orchestrate.Decider
	limiter *rate.Limiter
}

func NewRateLimitedDecider(next orchestrate.Decider, limiter *rate.Limiter) *RateLimitedDecider {
	return &RateLimitedDecider{next: next, limiter: limiter}
}

func (d *RateLimitedDecider) Decide(ctx context.Context, row domain.InputRow, candidates []retrieve.Candidate, allowDecompose bool) (oracle.Decision, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return oracle.Decision{}, ctx.Err()
	}
	return d.next.Decide(ctx, row, candidates, allowDecompose)
}

func (d *RateLimitedDecider) ConvertUnit(ctx context.Context, description, fromUnit, toUnit string) (float64, string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return 0, "", ctx.Err()
	}
	return d.next.ConvertUnit(ctx, description, fromUnit, toUnit)
}

var _ orchestrate.Decider = (*RateLimitedDecider)(nil)
