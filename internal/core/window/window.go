// Package window turns an epoch range into the local whole-hour buckets it fully contains
package window

import (
	"fmt"
	"strconv"
	"time"

	perr "agentpulse/internal/platform/errors"
)

// HourSecs is the length of a local hour outside offset changes
const HourSecs int64 = 3600

// Bucket is one local reporting hour [Start, End)
type Bucket struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	TZ    string `json:"tz"`
}

// Contains reports whether ts falls inside [Start, End)
func (b Bucket) Contains(ts int64) bool { return ts >= b.Start && ts < b.End }

// InvalidRangeError is returned for empty, inverted or oversized ranges
type InvalidRangeError struct {
	Start  int64
	End    int64
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range [%d, %d): %s", e.Start, e.End, e.Reason)
}

// Unwrap exposes the coded form so callers and the HTTP layer can map it
func (e *InvalidRangeError) Unwrap() error {
	return perr.WithField(perr.InvalidArgf("%s", e.Reason), "range")
}

// Builder computes buckets in one timezone; safe for concurrent use
type Builder struct {
	loc        *time.Location
	maxBuckets int
}

// Option configures a Builder
type Option func(*Builder)

// WithMaxBuckets rejects ranges that would yield more than n buckets; n <= 0 disables the cap
func WithMaxBuckets(n int) Option { return func(b *Builder) { b.maxBuckets = n } }

// New returns a Builder for loc (UTC when nil)
func New(loc *time.Location, opts ...Option) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	b := &Builder{loc: loc}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Location returns the builder's timezone
func (b *Builder) Location() *time.Location { return b.loc }

// Floor returns the epoch second at which the local hour containing ts began.
// Across a half-hour offset change the hour that spans the change is the one returned.
func (b *Builder) Floor(ts int64) int64 {
	f := ts
	for range 4 {
		d := b.offHour(f)
		if d == 0 {
			break
		}
		f -= d
	}
	return f
}

// next returns the first local on-the-hour instant after cur
func (b *Builder) next(cur int64) int64 {
	n := cur + HourSecs
	_, off := time.Unix(n, 0).In(b.loc).Zone()
	c := n - ((n+int64(off))%HourSecs+HourSecs)%HourSecs
	for c <= cur {
		c += HourSecs
	}
	for range 4 {
		if b.offHour(c) == 0 {
			return c
		}
		c += HourSecs
	}
	return n
}

// offHour is the number of seconds ts sits past its local hour mark
func (b *Builder) offHour(ts int64) int64 {
	t := time.Unix(ts, 0).In(b.loc)
	return int64(t.Minute()*60 + t.Second())
}

// Build returns the ordered full local hours inside [start, end).
// Partial leading and trailing hours are dropped; an empty result is valid.
// Buckets tile: each ends where the next local hour starts, so the hour that spans
// a half-hour offset change lasts 1800 or 5400 seconds.
func (b *Builder) Build(start, end int64) ([]Bucket, error) {
	if end <= start {
		return nil, &InvalidRangeError{Start: start, End: end, Reason: "end must be after start"}
	}
	if b.maxBuckets > 0 && (end-start)/HourSecs > int64(b.maxBuckets) {
		return nil, &InvalidRangeError{Start: start, End: end,
			Reason: fmt.Sprintf("range spans more than %d hours", b.maxBuckets)}
	}

	cur := b.Floor(start)
	if cur < start {
		cur = b.next(cur)
	}

	tz := b.loc.String()
	out := make([]Bucket, 0, (end-start)/HourSecs+1)
	for {
		nx := b.next(cur)
		if nx > end {
			break
		}
		out = append(out, Bucket{Start: cur, End: nx, TZ: tz})
		cur = nx
	}
	if b.maxBuckets > 0 && len(out) > b.maxBuckets {
		return nil, &InvalidRangeError{Start: start, End: end,
			Reason: fmt.Sprintf("range spans more than %d hours", b.maxBuckets)}
	}
	return out, nil
}

// Label renders the bucket start as local "2006-01-02T15:04"
func (b *Builder) Label(bk Bucket) string {
	return time.Unix(bk.Start, 0).In(b.loc).Format("2006-01-02T15:04")
}

// ParseLocal accepts epoch seconds or a local wall time in one of
// "2006-01-02T15", "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"
func (b *Builder) ParseLocal(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, b.loc); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q (want epoch seconds or YYYY-MM-DDTHH[:MM])", s)
}
