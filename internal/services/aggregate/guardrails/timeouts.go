// Package guardrails holds cross cutting safety helpers for aggregation runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is the budget bundle for one bucket of work.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Bucket is the overall budget for one bucket across all agents
	Bucket time.Duration

	// Load caps each read of events or call counters
	Load time.Duration

	// Write caps each upsert attempt
	Write time.Duration
}

// WithBucket returns a context limited by the bucket budget without extending any parent deadline
func WithBucket(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Bucket)
}

// ForLoad returns a sub context for one read bounded by Load and any remaining parent budget
func ForLoad(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Load)
}

// ForWrite returns a sub context for one upsert attempt
func ForWrite(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Write)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout takes the tighter of d and the parent remainder; d <= 0 only adds cancel
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
