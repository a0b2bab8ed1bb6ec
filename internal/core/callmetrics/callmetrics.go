// Package callmetrics folds per-agent call counters into bucket totals
package callmetrics

import "agentpulse/internal/core/window"

// Record is one call-counter window reported for an agent
type Record struct {
	AgentID       string `json:"agent_id"`
	WindowStart   int64  `json:"window_start"`
	WindowEnd     int64  `json:"window_end"`
	TotalCalls    int64  `json:"total_calls"`
	AnsweredCalls int64  `json:"answered_calls"`
}

// Totals are the call columns of one aggregate row
type Totals struct {
	Total    int64 `json:"total"`
	Answered int64 `json:"answered"`
	Failed   int64 `json:"failed"`
}

// Overlaps reports whether r intersects b; a record with no extent counts at its start
func (r Record) Overlaps(b window.Bucket) bool {
	if r.WindowEnd <= r.WindowStart {
		return b.Contains(r.WindowStart)
	}
	return r.WindowStart < b.End && r.WindowEnd > b.Start
}

// Merge sums the records overlapping b. Negative counters are treated as zero
func Merge(records []Record, b window.Bucket) Totals {
	var t Totals
	for _, r := range records {
		if !r.Overlaps(b) {
			continue
		}
		t.Total += max(0, r.TotalCalls)
		t.Answered += max(0, r.AnsweredCalls)
	}
	t.Failed = max(0, t.Total-t.Answered)
	return t
}

// AHT is average handle time in seconds over answered calls; zero when none were answered
func AHT(talk, hold, wrap, answered int64) float64 {
	if answered <= 0 {
		return 0
	}
	return float64(talk+hold+wrap) / float64(answered)
}
