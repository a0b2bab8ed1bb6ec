package domain

import "context"

// RunnerPort is the engine entry point other modules call
type RunnerPort interface {
	Aggregate(ctx context.Context, start, end int64) (Summary, error)
}

// EventStore reads presence events. Agents nil means every agent.
// Results are ordered by (agent, ts, arrival) and never nil on success
type EventStore interface {
	LoadEvents(ctx context.Context, agents []string, from, to int64) ([]Event, error)
}

// CallStore reads call-counter windows overlapping [from, to)
type CallStore interface {
	LoadCallMetrics(ctx context.Context, agents []string, from, to int64) ([]CallMetricsRecord, error)
}

// RowWriter replaces one row in full; repeated calls with the same row are no-ops in effect
type RowWriter interface {
	UpsertRow(ctx context.Context, row AggregateRow) error
}

// RowReader lists stored rows for reporting
type RowReader interface {
	ListRows(ctx context.Context, f RowFilter) ([]AggregateRow, error)
}

// Ledger records per-bucket run status
type Ledger interface {
	StartBucket(ctx context.Context, runID string, b Bucket) error
	FinishBucket(ctx context.Context, runID string, b Bucket, fin BucketFinish) error
}

// StorageRepo is everything the engine needs from Postgres
type StorageRepo interface {
	EventStore
	CallStore
	RowWriter
	RowReader
	Ledger
}

// Mirror copies written rows to an analytics store; failures never fail a bucket
type Mirror interface {
	MirrorRows(ctx context.Context, rows []AggregateRow) error
}

// Notifier publishes bucket notices
type Notifier interface {
	Publish(ctx context.Context, subject, eventType string, data any) (uint64, error)
}
