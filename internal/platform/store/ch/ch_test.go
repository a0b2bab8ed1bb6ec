package ch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type fakeConn struct {
	pingErr error
	closed  bool
}

func (f *fakeConn) Ping(context.Context) error { return f.pingErr }
func (f *fakeConn) Query(context.Context, string, ...any) (driver.Rows, error) {
	return nil, errors.New("no rows in fake")
}
func (f *fakeConn) Close() error { f.closed = true; return nil }

type fakeBatch struct {
	query   string
	rows    [][]any
	failAt  int
	sendErr error
	sent    bool
	aborted bool
}

func (b *fakeBatch) Append(v ...any) error {
	if b.failAt > 0 && len(b.rows)+1 == b.failAt {
		return errors.New("bad row")
	}
	b.rows = append(b.rows, v)
	return nil
}
func (b *fakeBatch) Send() error  { b.sent = true; return b.sendErr }
func (b *fakeBatch) Abort() error { b.aborted = true; return nil }

func newFake(b *fakeBatch) *CH {
	return &CH{
		conn: &fakeConn{},
		prepare: func(_ context.Context, q string) (batch, error) {
			b.query = q
			return b, nil
		},
	}
}

func TestInsert_SendsAllRows(t *testing.T) {
	t.Parallel()

	b := &fakeBatch{}
	c := newFake(b)
	rows := [][]any{{"a1", int64(1)}, {"a2", int64(2)}}
	if err := c.Insert(context.Background(), "agentpulse.agent_hourly", rows); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if b.query != "INSERT INTO agentpulse.agent_hourly" {
		t.Fatalf("query = %q", b.query)
	}
	if len(b.rows) != 2 || !b.sent {
		t.Fatalf("rows=%d sent=%v", len(b.rows), b.sent)
	}
}

func TestInsert_AppendFailureAborts(t *testing.T) {
	t.Parallel()

	b := &fakeBatch{failAt: 2}
	c := newFake(b)
	err := c.Insert(context.Background(), "t", [][]any{{1}, {2}})
	if err == nil || !strings.Contains(err.Error(), "row 1") {
		t.Fatalf("err = %v", err)
	}
	if !b.aborted || b.sent {
		t.Fatalf("aborted=%v sent=%v", b.aborted, b.sent)
	}
}

func TestInsert_EmptyAndInvalidTable(t *testing.T) {
	t.Parallel()

	b := &fakeBatch{}
	c := newFake(b)
	if err := c.Insert(context.Background(), "t", nil); err != nil || b.query != "" {
		t.Fatalf("empty insert should be a no-op, err=%v query=%q", err, b.query)
	}
	for _, bad := range []string{"", "t; DROP TABLE x", ".t", "db."} {
		if err := c.Insert(context.Background(), bad, [][]any{{1}}); err == nil {
			t.Fatalf("expected invalid table error for %q", bad)
		}
	}
}

func TestPingAndClose(t *testing.T) {
	t.Parallel()

	fc := &fakeConn{pingErr: errors.New("down")}
	c := &CH{conn: fc}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error")
	}
	if err := c.Close(); err != nil || !fc.closed {
		t.Fatalf("Close err=%v closed=%v", err, fc.closed)
	}

	var nilCH *CH
	if err := nilCH.Ping(context.Background()); err == nil {
		t.Fatalf("nil client ping should error")
	}
	if err := nilCH.Close(); err != nil {
		t.Fatalf("nil client close should be nil")
	}
}

func TestOpen_BadDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{URL: "://nope"}); err == nil {
		t.Fatalf("expected dsn error")
	}
}

func TestBuildClientInfo(t *testing.T) {
	t.Parallel()

	ci := BuildClientInfo("aggregate", "")
	if len(ci.Products) != 5 {
		t.Fatalf("products = %d", len(ci.Products))
	}
	if ci.Products[0].Name != "agentpulse" || ci.Products[0].Version != "-" {
		t.Fatalf("first product = %+v", ci.Products[0])
	}
	if ci.Products[1].Version != "aggregate" {
		t.Fatalf("role = %+v", ci.Products[1])
	}
}
