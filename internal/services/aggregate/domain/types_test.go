package domain

import (
	"context"
	"errors"
	"testing"

	perr "agentpulse/internal/platform/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLoadError_CodedAndCausal(t *testing.T) {
	t.Parallel()

	err := error(&EventLoadError{Bucket: Bucket{Start: 3600, End: 7200}, Err: context.DeadlineExceeded})
	assert.Equal(t, perr.ErrorCodeUnavailable, perr.CodeOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "3600")

	var ele *EventLoadError
	require.ErrorAs(t, err, &ele)
	assert.Equal(t, int64(7200), ele.Bucket.End)
}

func TestEventLoadError_NamesSource(t *testing.T) {
	t.Parallel()

	err := error(&EventLoadError{Bucket: Bucket{Start: 3600}, Source: "call metrics", Err: errors.New("down")})
	assert.Equal(t, "load call metrics for bucket 3600: down", err.Error())
	assert.Equal(t, perr.ErrorCodeUnavailable, perr.CodeOf(err))
	assert.Contains(t, (&EventLoadError{Err: errors.New("x")}).Error(), "load events for bucket 0")
}

func TestWriteError_CodedAndCausal(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset by peer")
	err := error(&WriteError{AgentID: "a1", BucketStart: 3600, Attempts: 3, Err: cause})
	assert.Equal(t, perr.ErrorCodeDB, perr.CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestAggregateRow_Key(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "a1@3600", AggregateRow{AgentID: "a1", BucketStart: 3600}.Key())
}
