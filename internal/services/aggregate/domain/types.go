// Package domain holds the aggregation engine's row, summary and error types
package domain

import (
	"fmt"

	"agentpulse/internal/core/callmetrics"
	"agentpulse/internal/core/classify"
	"agentpulse/internal/core/presence"
	"agentpulse/internal/core/window"
	perr "agentpulse/internal/platform/errors"
)

type (
	// Event is one presence transition as read from the event store
	Event = presence.Event

	// CallMetricsRecord is one call-counter window for an agent
	CallMetricsRecord = callmetrics.Record

	// Bucket is one local reporting hour
	Bucket = window.Bucket

	// Durations are the seconds columns of a row
	Durations = classify.Durations

	// CallTotals are the call columns of a row
	CallTotals = callmetrics.Totals

	// InvalidRangeError rejects a whole run before any bucket is touched
	InvalidRangeError = window.InvalidRangeError

	// ClassificationGapError marks a table that failed to cover an input
	ClassificationGapError = classify.GapError
)

// AggregateRow is the fully computed state of one (agent, bucket) pair.
// It carries no wall-clock values so recomputation writes identical bytes
type AggregateRow struct {
	AgentID      string     `json:"agent_id"`
	AgentName    string     `json:"agent_name"`
	BucketStart  int64      `json:"bucket_start"`
	BucketEnd    int64      `json:"bucket_end"`
	TZ           string     `json:"tz"`
	Durations    Durations  `json:"durations"`
	IdleEntries  int        `json:"idle_entries"`
	NotAvail     int        `json:"not_avail_entries"`
	Calls        CallTotals `json:"calls"`
	EventDetails []Event    `json:"event_details"`
	TableVersion int        `json:"table_version"`
}

// Key is the row identity
func (r AggregateRow) Key() string { return fmt.Sprintf("%s@%d", r.AgentID, r.BucketStart) }

// RowFilter selects rows by agent and bucket start range [From, To)
type RowFilter struct {
	AgentIDs []string
	From     int64
	To       int64
	Limit    int
}

// Failure kinds recorded in a Summary
const (
	FailEventLoad = "event_load"
	FailCallLoad  = "call_load"
	FailGap       = "classification_gap"
	FailWrite     = "write"
)

// Failure is one isolated bucket or agent failure
type Failure struct {
	BucketStart int64  `json:"bucket_start"`
	AgentID     string `json:"agent_id,omitempty"`
	Kind        string `json:"kind"`
	Error       string `json:"error"`
}

// Summary reports what one run did
type Summary struct {
	RunID            string    `json:"run_id"`
	Start            int64     `json:"start"`
	End              int64     `json:"end"`
	TZ               string    `json:"tz"`
	TableVersion     int       `json:"table_version"`
	BucketsPlanned   int       `json:"buckets_planned"`
	BucketsProcessed int       `json:"buckets_processed"`
	BucketsFailed    int       `json:"buckets_failed"`
	AgentsUpserted   int       `json:"agents_upserted"`
	AgentsFailed     int       `json:"agents_failed"`
	EventsSkipped    int       `json:"events_skipped"`
	Failures         []Failure `json:"failures,omitempty"`
}

// BucketFinish is the ledger record closing one bucket
type BucketFinish struct {
	Status    string
	Agents    int
	Upserted  int
	Failed    int
	Events    int
	Skipped   int
	LoadMS    int
	WriteMS   int
	ElapsedMS int
	ErrText   string
}

// BucketNotice is published once a bucket has been written
type BucketNotice struct {
	RunID        string `json:"run_id"`
	BucketStart  int64  `json:"bucket_start"`
	BucketEnd    int64  `json:"bucket_end"`
	TZ           string `json:"tz"`
	Agents       int    `json:"agents"`
	Upserted     int    `json:"upserted"`
	Failed       int    `json:"failed"`
	TableVersion int    `json:"table_version"`
}

// EventLoadError skips one bucket when its context could not be read
type EventLoadError struct {
	Bucket Bucket
	// Source names what failed to load; empty means the presence events
	Source string
	Err    error
}

func (e *EventLoadError) source() string {
	if e.Source == "" {
		return "events"
	}
	return e.Source
}

func (e *EventLoadError) Error() string {
	return fmt.Sprintf("load %s for bucket %d: %v", e.source(), e.Bucket.Start, e.Err)
}

// Unwrap exposes the coded form; the cause stays reachable beneath it
func (e *EventLoadError) Unwrap() error {
	return perr.Wrapf(e.Err, perr.ErrorCodeUnavailable, "load %s for bucket %d", e.source(), e.Bucket.Start)
}

// WriteError reports an upsert that still failed after its retries
type WriteError struct {
	AgentID     string
	BucketStart int64
	Attempts    int
	Err         error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("upsert %s@%d failed after %d attempts: %v", e.AgentID, e.BucketStart, e.Attempts, e.Err)
}

// Unwrap exposes the coded form
func (e *WriteError) Unwrap() error {
	return perr.Wrapf(e.Err, perr.ErrorCodeDB, "upsert %s@%d", e.AgentID, e.BucketStart)
}
