// Package repo provides postgres access for events, call counters, hourly rows and the bucket ledger
package repo

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"agentpulse/internal/modkit/repokit"
	perr "agentpulse/internal/platform/errors"
	"agentpulse/internal/platform/store"
	"agentpulse/internal/services/aggregate/domain"
)

//go:embed schema.sql
var schemaSQL string

// msThreshold separates second and millisecond epochs
const msThreshold int64 = 100_000_000_000

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

// EnsureSchema applies the embedded DDL; every statement is idempotent
func EnsureSchema(ctx context.Context, q repokit.Queryer) error {
	for _, stmt := range strings.Split(schemaSQL, ";\n") {
		if strings.TrimSpace(stripComments(stmt)) == "" {
			continue
		}
		if _, err := q.Exec(ctx, stmt); err != nil {
			return perr.FromPostgres(err, "apply schema")
		}
	}
	return nil
}

// StatementTimeout caps every statement of a write transaction server side,
// so a blocked upsert is cancelled by Postgres before the client deadline
func StatementTimeout(d time.Duration) repokit.BeginHook {
	ms := d.Milliseconds()
	return func(ctx context.Context, q repokit.Queryer) error {
		if ms <= 0 {
			return nil
		}
		if _, err := q.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", ms)); err != nil {
			return perr.FromPostgres(err, "set statement_timeout")
		}
		return nil
	}
}

func stripComments(s string) string {
	var b strings.Builder
	for _, ln := range strings.Split(s, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(ln), "--") {
			b.WriteString(ln)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// NormalizeTS converts millisecond epochs to seconds
func NormalizeTS(ts int64) int64 {
	if ts > msThreshold {
		return ts / 1000
	}
	return ts
}

// CleanName URL-decodes an agent name as delivered by the platform webhook
func CleanName(s string) string {
	if s == "" {
		return s
	}
	if d, err := url.QueryUnescape(s); err == nil {
		return strings.TrimSpace(d)
	}
	return strings.TrimSpace(strings.ReplaceAll(s, "+", " "))
}

// nil agents bind as SQL NULL, which disables the filter
func agentArg(agents []string) any {
	if len(agents) == 0 {
		return nil
	}
	return agents
}

// LoadEvents reads events for [from, to) accepting second or millisecond storage
func (r *queries) LoadEvents(ctx context.Context, agents []string, from, to int64) ([]domain.Event, error) {
	const q = `
		SELECT id, agent_id, agent_name, event_type, label, enabled, ts
		FROM agent_events
		WHERE ($1::text[] IS NULL OR agent_id = ANY($1::text[]))
		  AND agent_id <> ''
		  AND ((ts >= $2 AND ts < $3) OR (ts >= $2 * 1000 AND ts < $3 * 1000))
		ORDER BY agent_id, CASE WHEN ts > 100000000000 THEN ts / 1000 ELSE ts END, id
	`
	out, err := store.Many(ctx, r.q, scanEvent, q, agentArg(agents), from, to)
	if err != nil {
		return nil, perr.FromPostgresf(err, "load events [%d,%d)", from, to)
	}
	if out == nil {
		out = []domain.Event{}
	}
	return out, nil
}

func scanEvent(row store.Row) (domain.Event, error) {
	var e domain.Event
	if err := row.Scan(&e.ID, &e.AgentID, &e.AgentName, &e.Type, &e.Label, &e.Enabled, &e.TS); err != nil {
		return e, err
	}
	e.TS = NormalizeTS(e.TS)
	e.AgentName = CleanName(e.AgentName)
	return e, nil
}

// LoadCallMetrics reads call windows overlapping [from, to); zero-length windows count at their start
func (r *queries) LoadCallMetrics(ctx context.Context, agents []string, from, to int64) ([]domain.CallMetricsRecord, error) {
	const q = `
		SELECT agent_id, window_start, window_end, total_calls, answered_calls
		FROM agent_call_metrics
		WHERE ($1::text[] IS NULL OR agent_id = ANY($1::text[]))
		  AND window_start < $3
		  AND GREATEST(window_end, window_start + 1) > $2
		ORDER BY agent_id, window_start, id
	`
	out, err := store.Many(ctx, r.q, func(row store.Row) (domain.CallMetricsRecord, error) {
		var c domain.CallMetricsRecord
		err := row.Scan(&c.AgentID, &c.WindowStart, &c.WindowEnd, &c.TotalCalls, &c.AnsweredCalls)
		return c, err
	}, q, agentArg(agents), from, to)
	if err != nil {
		return nil, perr.FromPostgresf(err, "load call metrics [%d,%d)", from, to)
	}
	if out == nil {
		out = []domain.CallMetricsRecord{}
	}
	return out, nil
}

// rowColumns is the column order shared by upsert, select and the mirror
var rowColumns = []string{
	"agent_id", "bucket_start", "bucket_end", "tz", "agent_name",
	"available_secs", "login_secs", "logoff_secs", "dnd_secs", "productive_secs", "non_productive_secs",
	"talk_secs", "wrap_up_secs", "idle_secs", "hold_secs",
	"meeting_secs", "training_secs", "chat_secs", "tickets_secs", "outbound_secs",
	"lunch_secs", "tea_secs", "bio_secs", "short_secs", "other_secs",
	"idle_entries", "not_avail_entries",
	"total_calls", "answered_calls", "failed_calls",
	"event_details", "table_version",
}

var upsertSQL = buildUpsert()

func buildUpsert() string {
	ph := make([]string, len(rowColumns))
	var set []string
	for i, c := range rowColumns {
		ph[i] = fmt.Sprintf("$%d", i+1)
		if c == "event_details" {
			ph[i] += "::jsonb"
		}
		if c != "agent_id" && c != "bucket_start" {
			set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}
	return fmt.Sprintf(
		"INSERT INTO agent_activity_hourly (%s) VALUES (%s) ON CONFLICT (agent_id, bucket_start) DO UPDATE SET %s",
		strings.Join(rowColumns, ", "), strings.Join(ph, ", "), strings.Join(set, ", "),
	)
}

// rowValues flattens a row in rowColumns order; details is the encoded event list
func rowValues(row domain.AggregateRow, details any) []any {
	d := row.Durations
	return []any{
		row.AgentID, row.BucketStart, row.BucketEnd, row.TZ, row.AgentName,
		d.Available, d.Login, d.Logoff, d.DND, d.Productive, d.NonProductive,
		d.Talk, d.WrapUp, d.Idle, d.Hold,
		d.Meeting, d.Training, d.Chat, d.Tickets, d.Outbound,
		d.Lunch, d.Tea, d.Bio, d.Short, d.Other,
		row.IdleEntries, row.NotAvail,
		row.Calls.Total, row.Calls.Answered, row.Calls.Failed,
		details, row.TableVersion,
	}
}

// EncodeDetails renders the audit attachment; an empty list encodes as []
func EncodeDetails(evs []domain.Event) (string, error) {
	if len(evs) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(evs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UpsertRow replaces the row for (agent_id, bucket_start) in full
func (r *queries) UpsertRow(ctx context.Context, row domain.AggregateRow) error {
	details, err := EncodeDetails(row.EventDetails)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "encode event details %s", row.Key())
	}
	if err := store.ExecOne(ctx, r.q, upsertSQL, rowValues(row, details)...); err != nil {
		return perr.FromPostgresf(err, "upsert %s", row.Key())
	}
	return nil
}

// ListRows returns rows ordered by bucket then agent; Limit 0 is unbounded
func (r *queries) ListRows(ctx context.Context, f domain.RowFilter) ([]domain.AggregateRow, error) {
	q := fmt.Sprintf(`
		SELECT %s
		FROM agent_activity_hourly
		WHERE ($1::text[] IS NULL OR agent_id = ANY($1::text[]))
		  AND bucket_start >= $2 AND bucket_start < $3
		ORDER BY bucket_start, agent_id
		LIMIT NULLIF($4, 0)
	`, strings.Join(rowColumns, ", "))
	out, err := store.Many(ctx, r.q, scanRow, q, agentArg(f.AgentIDs), f.From, f.To, f.Limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "list rows")
	}
	return out, nil
}

func scanRow(row store.Row) (domain.AggregateRow, error) {
	var a domain.AggregateRow
	var details []byte
	d := &a.Durations
	err := row.Scan(
		&a.AgentID, &a.BucketStart, &a.BucketEnd, &a.TZ, &a.AgentName,
		&d.Available, &d.Login, &d.Logoff, &d.DND, &d.Productive, &d.NonProductive,
		&d.Talk, &d.WrapUp, &d.Idle, &d.Hold,
		&d.Meeting, &d.Training, &d.Chat, &d.Tickets, &d.Outbound,
		&d.Lunch, &d.Tea, &d.Bio, &d.Short, &d.Other,
		&a.IdleEntries, &a.NotAvail,
		&a.Calls.Total, &a.Calls.Answered, &a.Calls.Failed,
		&details, &a.TableVersion,
	)
	if err != nil {
		return a, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.EventDetails); err != nil {
			return a, perr.Wrapf(err, perr.ErrorCodeJSON, "decode event details %s", a.Key())
		}
	}
	return a, nil
}

// StartBucket marks a bucket running under runID (idempotent)
func (r *queries) StartBucket(ctx context.Context, runID string, b domain.Bucket) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO aggregate_buckets (bucket_start, bucket_end, tz, run_id, status, started_at)
		VALUES ($1, $2, $3, $4, 'running', now())
		ON CONFLICT (bucket_start) DO UPDATE
		SET bucket_end = EXCLUDED.bucket_end, tz = EXCLUDED.tz, run_id = EXCLUDED.run_id,
			status = 'running', started_at = now(), finished_at = null, error = null
	`, b.Start, b.End, b.TZ, runID)
	return perr.WrapIf(err, perr.ErrorCodeDB, "start bucket")
}

// FinishBucket closes the ledger line for b. It is keyed on the bucket alone so an
// overlapping run that restarted the line cannot leave it running; the last finisher owns it
func (r *queries) FinishBucket(ctx context.Context, runID string, b domain.Bucket, fin domain.BucketFinish) error {
	_, err := r.q.Exec(ctx, `
		UPDATE aggregate_buckets SET
			run_id = $2,
			finished_at = now(),
			status = $3,
			agents = $4,
			upserted = $5,
			failed = $6,
			events = $7,
			skipped = $8,
			load_ms = $9,
			write_ms = $10,
			elapsed_ms = $11,
			error = NULLIF($12, '')
		WHERE bucket_start = $1
	`,
		b.Start, runID, fin.Status, fin.Agents, fin.Upserted, fin.Failed, fin.Events, fin.Skipped,
		fin.LoadMS, fin.WriteMS, fin.ElapsedMS, fin.ErrText,
	)
	return perr.WrapIf(err, perr.ErrorCodeDB, "finish bucket")
}
