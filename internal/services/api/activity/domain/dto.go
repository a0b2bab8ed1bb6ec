// Package domain holds DTOs for the activity http and service contracts
package domain

import (
	"context"

	aggdomain "agentpulse/internal/services/aggregate/domain"
)

// Dates are local calendar days in the engine timezone

// DateRange selects whole local days, both ends inclusive
type DateRange struct {
	Start string `json:"start" validate:"required,datetime=2006-01-02" example:"2025-03-10"`
	End   string `json:"end" validate:"required,datetime=2006-01-02" example:"2025-03-10"`
}

// RowsInput lists stored hourly rows
type RowsInput struct {
	Range    DateRange `json:"range"`
	AgentIDs []string  `json:"agent_ids,omitempty" validate:"omitempty,max=500,dive,min=1,max=128" example:"a-100"`
	Limit    int       `json:"limit,omitempty" validate:"omitempty,min=1,max=5000" example:"500"`
}

// Row is one agent-hour as served to reporting clients
type Row struct {
	AgentID      string  `json:"agent_id" example:"a-100"`
	AgentName    string  `json:"agent_name" example:"Jane Doe"`
	Hour         string  `json:"hour" example:"2025-03-10T10:00"`
	BucketStart  int64   `json:"bucket_start" example:"1741586400"`
	BucketEnd    int64   `json:"bucket_end" example:"1741590000"`
	TZ           string  `json:"tz" example:"Asia/Dubai"`
	IdleEntries  int     `json:"idle_entries" example:"1"`
	NotAvail     int     `json:"not_avail_entries" example:"0"`
	TotalCalls   int64   `json:"total_calls" example:"12"`
	Answered     int64   `json:"answered_calls" example:"10"`
	Failed       int64   `json:"failed_calls" example:"2"`
	AHTSecs      float64 `json:"aht_secs" example:"184.5"`
	TableVersion int     `json:"table_version" example:"3"`

	Durations aggdomain.Durations `json:"durations"`
}

// AggregateInput triggers a run. Values are epoch seconds or local "YYYY-MM-DDTHH"
type AggregateInput struct {
	Start string `json:"start" validate:"required,max=32" example:"2025-03-10T09"`
	End   string `json:"end" validate:"required,max=32" example:"2025-03-10T12"`
}

// Summary is the run report returned by POST /activity/aggregate
type Summary = aggdomain.Summary

// ServicePort is the activity service contract
type ServicePort interface {
	Rows(ctx context.Context, in RowsInput) ([]Row, error)
	Aggregate(ctx context.Context, in AggregateInput) (Summary, error)
}
