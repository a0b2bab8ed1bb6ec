package repo

import (
	"context"
	"errors"
	"testing"

	perr "agentpulse/internal/platform/errors"
	"agentpulse/internal/platform/store"
	"agentpulse/internal/services/aggregate/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCH struct {
	table string
	data  any
	err   error
}

func (f *fakeCH) Insert(_ context.Context, table string, data any) error {
	f.table, f.data = table, data
	return f.err
}
func (f *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (f *fakeCH) Close() error                                              { return nil }

func TestCHMirror_Insert(t *testing.T) {
	t.Parallel()

	ch := &fakeCH{}
	m := NewCHMirror(ch)
	require.NoError(t, m.MirrorRows(context.Background(), []domain.AggregateRow{sampleRow()}))
	assert.Equal(t, MirrorTable, ch.table)

	rows, ok := ch.data.([][]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(rowColumns))
	assert.Equal(t, int64(1), rows[0][25])
	assert.Equal(t, int64(3), rows[0][31])
}

func TestCHMirror_NilAndEmpty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewCHMirror(nil))
	var m *CHMirror
	require.NoError(t, m.MirrorRows(context.Background(), []domain.AggregateRow{sampleRow()}))
	require.NoError(t, NewCHMirror(&fakeCH{}).MirrorRows(context.Background(), nil))
}

func TestCHMirror_ErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	err := NewCHMirror(&fakeCH{err: errors.New("ch down")}).MirrorRows(context.Background(), []domain.AggregateRow{sampleRow()})
	assert.Equal(t, perr.ErrorCodeUnavailable, perr.CodeOf(err))
}
