// Package service contains the activity reporting workflows
package service

import (
	"context"
	"time"

	"agentpulse/internal/core/callmetrics"
	"agentpulse/internal/core/window"
	perr "agentpulse/internal/platform/errors"
	aggdomain "agentpulse/internal/services/aggregate/domain"
	"agentpulse/internal/services/api/activity/domain"
)

// MaxRangeDays bounds a single rows query
const MaxRangeDays = 93

// Service defines the activity service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the activity service over the aggregate module ports
type Svc struct {
	rows    aggdomain.RowReader
	runner  aggdomain.RunnerPort
	windows *window.Builder
}

// New constructs an activity service
func New(rows aggdomain.RowReader, runner aggdomain.RunnerPort, windows *window.Builder) *Svc {
	if rows == nil {
		panic("activity.Service requires a non nil RowReader")
	}
	if runner == nil {
		panic("activity.Service requires a non nil RunnerPort")
	}
	if windows == nil {
		panic("activity.Service requires a window builder")
	}
	return &Svc{rows: rows, runner: runner, windows: windows}
}

// Rows lists stored agent-hours for whole local days and adds the derived AHT
func (s *Svc) Rows(ctx context.Context, in domain.RowsInput) ([]domain.Row, error) {
	from, to, err := s.dayRange(in.Range)
	if err != nil {
		return nil, err
	}
	rows, err := s.rows.ListRows(ctx, aggdomain.RowFilter{
		AgentIDs: in.AgentIDs,
		From:     from,
		To:       to,
		Limit:    in.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.toRow(r))
	}
	return out, nil
}

// Aggregate parses local or epoch bounds and runs the engine inline
func (s *Svc) Aggregate(ctx context.Context, in domain.AggregateInput) (domain.Summary, error) {
	start, err := s.windows.ParseLocal(in.Start)
	if err != nil {
		return domain.Summary{}, perr.WithField(perr.InvalidArgf("%v", err), "start")
	}
	end, err := s.windows.ParseLocal(in.End)
	if err != nil {
		return domain.Summary{}, perr.WithField(perr.InvalidArgf("%v", err), "end")
	}
	return s.runner.Aggregate(ctx, start, end)
}

// dayRange maps inclusive local dates to [from, to) epoch seconds
func (s *Svc) dayRange(r domain.DateRange) (int64, int64, error) {
	loc := s.windows.Location()
	a, err := time.ParseInLocation(time.DateOnly, r.Start, loc)
	if err != nil {
		return 0, 0, perr.WithField(perr.InvalidArgf("bad start date %q", r.Start), "range.start")
	}
	b, err := time.ParseInLocation(time.DateOnly, r.End, loc)
	if err != nil {
		return 0, 0, perr.WithField(perr.InvalidArgf("bad end date %q", r.End), "range.end")
	}
	if b.Before(a) {
		return 0, 0, perr.WithField(perr.InvalidArgf("end %s before start %s", r.End, r.Start), "range")
	}
	b = b.AddDate(0, 0, 1)
	if b.Sub(a) > MaxRangeDays*24*time.Hour+time.Hour {
		return 0, 0, perr.WithField(perr.InvalidArgf("range exceeds %d days", MaxRangeDays), "range")
	}
	return a.Unix(), b.Unix(), nil
}

func (s *Svc) toRow(r aggdomain.AggregateRow) domain.Row {
	d := r.Durations
	return domain.Row{
		AgentID:      r.AgentID,
		AgentName:    r.AgentName,
		Hour:         s.windows.Label(window.Bucket{Start: r.BucketStart, End: r.BucketEnd}),
		BucketStart:  r.BucketStart,
		BucketEnd:    r.BucketEnd,
		TZ:           r.TZ,
		IdleEntries:  r.IdleEntries,
		NotAvail:     r.NotAvail,
		TotalCalls:   r.Calls.Total,
		Answered:     r.Calls.Answered,
		Failed:       r.Calls.Failed,
		AHTSecs:      callmetrics.AHT(d.Talk, d.Hold, d.WrapUp, r.Calls.Answered),
		TableVersion: r.TableVersion,
		Durations:    d,
	}
}
