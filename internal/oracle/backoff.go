package oracle

import (
	"math"
	"math/rand"
	"time"
)

// backoff computes an exponential-with-full-jitter delay for attempt
// n (0-indexed), base 500ms, factor 2, capped at 8s, §4.4.1. No
// backoff library exists anywhere in the retrieved example pack (see
// DESIGN.md), so this is a small hand-rolled helper rather than a
// reach for the standard library by default.
func backoff(attempt int) time.Duration {
	const (
		base   = 500 * time.Millisecond
		factor = 2.0
		cap_   = 8 * time.Second
	)
	d := float64(base) * math.Pow(factor, float64(attempt))
	if d > float64(cap_) {
		d = float64(cap_)
	}
	return time.Duration(rand.Float64() * d)
}
