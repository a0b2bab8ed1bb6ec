package presence

import (
	"testing"
	"time"

	"agentpulse/internal/core/classify"
	"agentpulse/internal/core/window"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bs int64 = 1_741_068_000 // an hour boundary in UTC

var bucket = window.Bucket{Start: bs, End: bs + 3600, TZ: "UTC"}

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	c, err := classify.Load()
	require.NoError(t, err)
	return New(c, 0)
}

func ev(typ, label string, enabled bool, ts int64) Event {
	return Event{AgentID: "a1", Type: typ, Label: label, Enabled: enabled, TS: ts}
}

func TestResolve_NoEventsIsLogoff(t *testing.T) {
	t.Parallel()

	res, err := newResolver(t).Resolve(nil, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), res.Durations.Logoff)
	assert.Equal(t, int64(3600), res.Durations.Total())
	assert.Empty(t, res.InWindow)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, Segment{From: bs, To: bs + 3600, Tag: classify.Tag{Category: classify.Logoff}}, res.Segments[0])
}

func TestResolve_WorkedExample(t *testing.T) {
	t.Parallel()

	events := []Event{
		ev("agent_idle", "available", true, bs+300),
		ev("agent_idle", "none", false, bs+1800),
	}
	res, err := newResolver(t).Resolve(events, bucket)
	require.NoError(t, err)

	assert.Equal(t, int64(1500), res.Durations.Available)
	assert.Equal(t, int64(1500), res.Durations.Idle)
	assert.Equal(t, int64(2100), res.Durations.Logoff)
	assert.Equal(t, int64(3600), res.Durations.Total())

	require.Len(t, res.Segments, 3)
	assert.Equal(t, int64(300), res.Segments[0].To-res.Segments[0].From)
	assert.Equal(t, classify.Available, res.Segments[1].Tag.Category)
	assert.Equal(t, int64(1800), res.Segments[2].To-res.Segments[2].From)

	assert.Equal(t, 1, res.IdleEntries)
	assert.Equal(t, 0, res.NotAvailEntries)
	assert.Len(t, res.InWindow, 2)
}

func TestResolve_LookbackCarriesState(t *testing.T) {
	t.Parallel()

	events := []Event{ev("agent_not_avail_state", "Lunch", true, bs-2*3600)}
	res, err := newResolver(t).Resolve(events, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), res.Durations.NonProductive)
	assert.Equal(t, int64(3600), res.Durations.Lunch)
	assert.Empty(t, res.InWindow, "lookback-only events are not in-window")
	assert.Zero(t, res.NotAvailEntries)
}

func TestResolve_BeyondLookbackIgnored(t *testing.T) {
	t.Parallel()

	events := []Event{ev("agent_not_avail_state", "Lunch", true, bs-7*3600)}
	res, err := newResolver(t).Resolve(events, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), res.Durations.Logoff)

	short := New(classify.MustLoad(), time.Hour)
	res, err = short.Resolve([]Event{ev("agent_idle", "x", true, bs-2*3600)}, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), res.Durations.Logoff)
	assert.Equal(t, bs-3600, short.ContextStart(bucket))
}

func TestResolve_DisabledFallsBackToOpenPrior(t *testing.T) {
	t.Parallel()

	events := []Event{
		ev("agent_idle", "ready", true, bs-600),
		ev("agent_on_call", "inbound", true, bs+600),
		ev("agent_on_call", "none", false, bs+1200),
	}
	res, err := newResolver(t).Resolve(events, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(600), res.Durations.Talk)
	assert.Equal(t, int64(3000), res.Durations.Idle)
	assert.Equal(t, int64(3600), res.Durations.Available)
	assert.Equal(t, 0, res.IdleEntries, "idle started before the bucket")
}

func TestResolve_ClosedPriorIsNotReopened(t *testing.T) {
	t.Parallel()

	events := []Event{
		ev("agent_not_avail_state", "Meeting", true, bs-1200),
		ev("agent_not_avail_state", "none", false, bs-600),
		ev("agent_idle", "x", true, bs+1000),
		ev("agent_idle", "x", false, bs+2000),
	}
	res, err := newResolver(t).Resolve(events, bucket)
	require.NoError(t, err)
	assert.Zero(t, res.Durations.Meeting)
	assert.Equal(t, int64(1000), res.Durations.Idle)
	assert.Equal(t, int64(2600), res.Durations.Logoff)
}

func TestResolve_SameTypeReplaces(t *testing.T) {
	t.Parallel()

	events := []Event{
		ev("agent_not_avail_state", "Lunch", true, bs),
		ev("agent_not_avail_state", "Training", true, bs+900),
		ev("agent_not_avail_state", "none", true, bs+1800),
	}
	res, err := newResolver(t).Resolve(events, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(900), res.Durations.Lunch)
	assert.Equal(t, int64(900), res.Durations.Training)
	assert.Equal(t, int64(1800), res.Durations.Logoff)
	assert.Equal(t, 2, res.NotAvailEntries)
}

func TestResolve_TiesBreakByArrival(t *testing.T) {
	t.Parallel()

	r := newResolver(t)
	events := []Event{
		ev("agent_not_avail_state", "Lunch", true, bs+600),
		ev("agent_not_avail_state", "Coffee", true, bs+600),
	}
	res, err := r.Resolve(events, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), res.Durations.Tea)
	assert.Zero(t, res.Durations.Lunch)

	events[0], events[1] = events[1], events[0]
	res, err = r.Resolve(events, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), res.Durations.Lunch)
}

func TestResolve_OutOfOrderInput(t *testing.T) {
	t.Parallel()

	r := newResolver(t)
	ordered := []Event{
		ev("agent_idle", "x", true, bs+100),
		ev("agent_on_call", "x", true, bs+200),
		ev("agent_on_call", "x", false, bs+900),
		ev("agent_wrap_up", "x", true, bs+900),
		ev("agent_wrap_up", "x", false, bs+1000),
	}
	shuffled := []Event{ordered[4], ordered[1], ordered[0], ordered[2], ordered[3]}

	a, err := r.Resolve(ordered, bucket)
	require.NoError(t, err)
	b, err := r.Resolve(shuffled, bucket)
	require.NoError(t, err)
	assert.Equal(t, a.Durations, b.Durations)
	assert.Equal(t, int64(700), a.Durations.Talk)
	assert.Equal(t, int64(100), a.Durations.WrapUp)
}

func TestResolve_MalformedTimestampsSkipped(t *testing.T) {
	t.Parallel()

	events := []Event{
		ev("agent_idle", "x", true, 0),
		ev("agent_idle", "x", true, -5),
		ev("agent_idle", "x", true, bs+1800),
	}
	res, err := newResolver(t).Resolve(events, bucket)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, int64(1800), res.Durations.Idle)
	assert.Equal(t, int64(1800), res.Durations.Logoff)
}

func TestResolve_EventsAtBucketEdges(t *testing.T) {
	t.Parallel()

	events := []Event{
		ev("agent_dnd", "", true, bs),
		ev("agent_idle", "x", true, bs+3600),
	}
	res, err := newResolver(t).Resolve(events, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), res.Durations.DND)
	require.Len(t, res.InWindow, 1, "an event at bucket end belongs to the next bucket")
}

func TestResolve_UnknownLabelFallsBack(t *testing.T) {
	t.Parallel()

	events := []Event{ev("agent_not_avail_state", "Personal errand", true, bs+1200)}
	res, err := newResolver(t).Resolve(events, bucket)
	require.NoError(t, err)
	assert.Equal(t, int64(2400), res.Durations.Other)
	assert.Equal(t, int64(3600), res.Durations.Total())
}

func TestResolve_AgentName(t *testing.T) {
	t.Parallel()

	e1 := ev("agent_idle", "x", true, bs+10)
	e1.AgentName = "Old Name"
	e2 := ev("agent_idle", "x", false, bs+20)
	e3 := ev("agent_idle", "x", true, bs+30)
	e3.AgentName = "New Name"

	res, err := newResolver(t).Resolve([]Event{e1, e2, e3}, bucket)
	require.NoError(t, err)
	assert.Equal(t, "a1", res.AgentID)
	assert.Equal(t, "New Name", res.AgentName)
}

func TestResolve_ConservationAcrossPatterns(t *testing.T) {
	t.Parallel()

	r := newResolver(t)
	types := []string{"agent_idle", "agent_on_call", "agent_hold", "agent_wrap_up", "agent_dnd", "agent_not_avail_state"}
	labels := []string{"Lunch", "none", "Meeting", "logoff", "login", "Break"}

	for seed := range 50 {
		var events []Event
		for i := range 12 {
			k := (seed*7 + i*13) % len(types)
			ts := bs - 3600 + int64((seed*977+i*611)%(3*3600))
			events = append(events, ev(types[k], labels[(seed+i)%len(labels)], (seed+i)%3 != 0, ts))
		}
		res, err := r.Resolve(events, bucket)
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, int64(3600), res.Durations.Total(), "seed %d", seed)

		again, err := r.Resolve(events, bucket)
		require.NoError(t, err)
		assert.Equal(t, res, again, "seed %d", seed)
	}
}

func TestResolve_ZeroClassifierReportsGap(t *testing.T) {
	t.Parallel()

	r := New(nil, 0)
	_, err := r.Resolve([]Event{ev("agent_idle", "x", true, bs+60)}, bucket)
	var gap *classify.GapError
	require.ErrorAs(t, err, &gap)
}

func TestGroup(t *testing.T) {
	t.Parallel()

	events := []Event{
		{AgentID: "b", TS: 3},
		{AgentID: "a", TS: 1},
		{AgentID: "", TS: 2},
		{AgentID: "b", TS: 2},
	}
	ids, by := Group(events)
	assert.Equal(t, []string{"b", "a"}, ids)
	assert.NotContains(t, by, "")
	assert.Equal(t, []int64{3, 2}, []int64{by["b"][0].TS, by["b"][1].TS})
	assert.Len(t, by["a"], 1)
}
