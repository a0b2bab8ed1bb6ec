package repo

import (
	"context"

	perr "agentpulse/internal/platform/errors"
	"agentpulse/internal/platform/store"
	"agentpulse/internal/services/aggregate/domain"
)

// MirrorTable is the ClickHouse copy of agent_activity_hourly, expected as
//
//	CREATE TABLE agent_activity_hourly (... same columns, event_details String ...)
//	ENGINE = ReplacingMergeTree ORDER BY (bucket_start, agent_id)
const MirrorTable = "agent_activity_hourly"

// CHMirror copies written rows into ClickHouse in one batch per bucket
type CHMirror struct {
	ch    store.Clickhouse
	table string
}

// NewCHMirror returns nil when ch is nil so callers can treat the mirror as optional
func NewCHMirror(ch store.Clickhouse) *CHMirror {
	if ch == nil {
		return nil
	}
	return &CHMirror{ch: ch, table: MirrorTable}
}

// MirrorRows implements domain.Mirror
func (m *CHMirror) MirrorRows(ctx context.Context, rows []domain.AggregateRow) error {
	if m == nil || len(rows) == 0 {
		return nil
	}
	data := make([][]any, 0, len(rows))
	for _, row := range rows {
		details, err := EncodeDetails(row.EventDetails)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "encode event details %s", row.Key())
		}
		vals := rowValues(row, details)
		// ClickHouse integer columns are typed; widen counters to match Int64
		vals[25], vals[26] = int64(row.IdleEntries), int64(row.NotAvail)
		vals[31] = int64(row.TableVersion)
		data = append(data, vals)
	}
	if err := m.ch.Insert(ctx, m.table, data); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "mirror %d rows", len(rows))
	}
	return nil
}
