package guardrails

import (
	"context"
	"errors"
	"hash/fnv"

	"agentpulse/internal/modkit/repokit"
	"agentpulse/internal/platform/store"
)

// ErrLeaseHeld signals another process is already running an aggregation
var ErrLeaseHeld = errors.New("aggregate: run lease already held")

// LockKey derives the advisory lock id shared by every instance
func LockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

// Lease runs do while holding a cluster-wide run lock
type Lease func(ctx context.Context, do func(context.Context) error) error

// MakeAdvisoryLease returns a Lease backed by pg_try_advisory_xact_lock.
// The lock transaction stays open while do runs and releases on commit or rollback.
// Work inside do uses its own connections.
// If the lock is taken it returns ErrLeaseHeld without running do
func MakeAdvisoryLease(db repokit.TxRunner, name string) Lease {
	key := LockKey(name)
	return func(ctx context.Context, do func(context.Context) error) error {
		return db.Tx(ctx, func(q repokit.Queryer) error {
			ok, err := store.Scalar[bool](ctx, q, `SELECT pg_try_advisory_xact_lock($1)`, key)
			if err != nil {
				return err
			}
			if !ok {
				return ErrLeaseHeld
			}
			return do(ctx)
		})
	}
}
