// Package presence reconstructs an agent's effective state over one bucket from
// sparse enable/disable events and integrates it into per-category seconds.
//
// The bucket is cut at its start, at every event timestamp strictly inside it, and at
// its end. Each sub-interval [a, b) takes the state in effect after all events with
// ts <= a. An enabled event opens its (type, label) and replaces any open state of the
// same type; a disabled or "none" event closes every open state of its type. The
// effective state is the most recently opened state still open, or logoff when nothing
// is open within the lookback horizon.
package presence

import (
	"slices"
	"strings"
	"time"

	"agentpulse/internal/core/classify"
	"agentpulse/internal/core/window"
	perr "agentpulse/internal/platform/errors"
)

// DefaultLookback bounds how far before a bucket prior context is considered
const DefaultLookback = 6 * time.Hour

// Event is one recorded presence transition
type Event struct {
	ID        int64  `json:"id"`
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name,omitempty"`
	Type      string `json:"type"`
	Label     string `json:"label"`
	Enabled   bool   `json:"enabled"`
	TS        int64  `json:"ts"`
}

// Closes reports whether the event ends its type rather than starting it
func (e Event) Closes() bool {
	return !e.Enabled || strings.EqualFold(strings.TrimSpace(e.Label), "none")
}

// Segment is a maximal run of one tag inside the bucket
type Segment struct {
	From int64        `json:"from"`
	To   int64        `json:"to"`
	Tag  classify.Tag `json:"tag"`
}

// Result is one agent's resolved bucket
type Result struct {
	AgentID   string
	AgentName string
	Durations classify.Durations
	Segments  []Segment

	// IdleEntries and NotAvailEntries count enabled starts inside the bucket
	IdleEntries     int
	NotAvailEntries int

	// InWindow holds events with Start <= ts < End in resolution order
	InWindow []Event

	// Skipped counts events dropped for unusable timestamps
	Skipped int
}

// Resolver is stateless beyond its configuration and safe for concurrent use
type Resolver struct {
	classifier *classify.Classifier
	lookback   int64
}

// New returns a Resolver; lookback <= 0 selects DefaultLookback
func New(c *classify.Classifier, lookback time.Duration) *Resolver {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Resolver{classifier: c, lookback: int64(lookback / time.Second)}
}

// Lookback returns the horizon in seconds
func (r *Resolver) Lookback() int64 { return r.lookback }

// ContextStart is the earliest timestamp Resolve considers for b
func (r *Resolver) ContextStart(b window.Bucket) int64 { return b.Start - r.lookback }

var logoff = classify.Tag{Category: classify.Logoff}

// Resolve integrates one agent's events over b. Input order is arrival order and
// breaks timestamp ties; events outside [b.Start-lookback, b.End) are ignored
func (r *Resolver) Resolve(events []Event, b window.Bucket) (Result, error) {
	var res Result
	horizon := b.Start - r.lookback

	evs := make([]Event, 0, len(events))
	for _, e := range events {
		if res.AgentID == "" {
			res.AgentID = e.AgentID
		}
		if e.TS <= 0 {
			res.Skipped++
			continue
		}
		if e.TS < horizon || e.TS >= b.End {
			continue
		}
		evs = append(evs, e)
	}
	slices.SortStableFunc(evs, func(a, b Event) int {
		switch {
		case a.TS < b.TS:
			return -1
		case a.TS > b.TS:
			return 1
		}
		return 0
	})

	cuts := []int64{b.Start}
	for _, e := range evs {
		if e.AgentName != "" {
			res.AgentName = e.AgentName
		}
		if e.TS > b.Start && e.TS != cuts[len(cuts)-1] {
			cuts = append(cuts, e.TS)
		}
	}
	cuts = append(cuts, b.End)

	var open []Event
	next := 0
	for i := 0; i < len(cuts)-1; i++ {
		a, z := cuts[i], cuts[i+1]
		for ; next < len(evs) && evs[next].TS <= a; next++ {
			e := evs[next]
			open = apply(open, e)
			if e.TS >= b.Start {
				res.InWindow = append(res.InWindow, e)
				if err := r.count(&res, e); err != nil {
					return Result{}, err
				}
			}
		}

		tag := logoff
		if len(open) > 0 {
			cur := open[len(open)-1]
			t, err := r.classifier.Classify(cur.Type, cur.Label)
			if err != nil {
				return Result{}, err
			}
			tag = t
		}
		if !res.Durations.Add(tag, z-a) {
			return Result{}, &classify.GapError{EventType: tag.String()}
		}
		if n := len(res.Segments); n > 0 && res.Segments[n-1].Tag == tag {
			res.Segments[n-1].To = z
		} else {
			res.Segments = append(res.Segments, Segment{From: a, To: z, Tag: tag})
		}
	}

	if total := res.Durations.Total(); total != b.End-b.Start {
		return Result{}, perr.Invariantf("presence: %d seconds attributed to a %d second bucket", total, b.End-b.Start)
	}
	return res, nil
}

func (r *Resolver) count(res *Result, e Event) error {
	if e.Closes() {
		return nil
	}
	if e.Type == r.classifier.LabelType() {
		res.NotAvailEntries++
		return nil
	}
	t, err := r.classifier.Classify(e.Type, e.Label)
	if err != nil {
		return err
	}
	if t.Category == classify.Available && t.Sub == "idle" {
		res.IdleEntries++
	}
	return nil
}

// apply folds one event into the open list
func apply(open []Event, e Event) []Event {
	open = slices.DeleteFunc(open, func(o Event) bool { return o.Type == e.Type })
	if e.Closes() {
		return open
	}
	return append(open, e)
}

// Group splits a mixed stream by agent, keeping arrival order within each agent.
// Agent ids are returned in first-seen order; events without an agent id are dropped
func Group(events []Event) ([]string, map[string][]Event) {
	var ids []string
	by := make(map[string][]Event)
	for _, e := range events {
		if e.AgentID == "" {
			continue
		}
		if _, ok := by[e.AgentID]; !ok {
			ids = append(ids, e.AgentID)
		}
		by[e.AgentID] = append(by[e.AgentID], e)
	}
	return ids, by
}
