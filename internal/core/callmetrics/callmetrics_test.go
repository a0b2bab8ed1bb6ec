package callmetrics

import (
	"testing"

	"agentpulse/internal/core/window"

	"github.com/stretchr/testify/assert"
)

var b = window.Bucket{Start: 7200, End: 10800, TZ: "UTC"}

func TestMerge(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   []Record
		want Totals
	}{
		{"empty", nil, Totals{}},
		{"single", []Record{{WindowStart: 7200, WindowEnd: 10800, TotalCalls: 10, AnsweredCalls: 7}}, Totals{10, 7, 3}},
		{"summed", []Record{
			{WindowStart: 7200, WindowEnd: 9000, TotalCalls: 4, AnsweredCalls: 4},
			{WindowStart: 9000, WindowEnd: 10800, TotalCalls: 6, AnsweredCalls: 3},
		}, Totals{10, 7, 3}},
		{"answered exceeds total", []Record{{WindowStart: 7200, WindowEnd: 10800, TotalCalls: 2, AnsweredCalls: 5}}, Totals{2, 5, 0}},
		{"outside ignored", []Record{
			{WindowStart: 3600, WindowEnd: 7200, TotalCalls: 9},
			{WindowStart: 10800, WindowEnd: 14400, TotalCalls: 9},
			{WindowStart: 7000, WindowEnd: 7300, TotalCalls: 1},
		}, Totals{1, 0, 1}},
		{"point records", []Record{
			{WindowStart: 7200, TotalCalls: 1, AnsweredCalls: 1},
			{WindowStart: 10800, TotalCalls: 5},
		}, Totals{1, 1, 0}},
		{"negative clamped", []Record{{WindowStart: 7200, WindowEnd: 10800, TotalCalls: -3, AnsweredCalls: -1}}, Totals{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Merge(tc.in, b))
		})
	}
}

func TestAHT(t *testing.T) {
	t.Parallel()

	assert.Zero(t, AHT(100, 10, 10, 0))
	assert.InDelta(t, 60.0, AHT(100, 20, 60, 3), 1e-9)
}
