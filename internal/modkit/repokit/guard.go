package repokit

import (
	"context"
	"fmt"
	"time"

	"agentpulse/internal/platform/store"
)

// startupPing bounds MustPing when ctx carries no deadline
const startupPing = 5 * time.Second

// Guarder is anything that can vouch for its backends, store.Store in practice
type Guarder interface {
	Guard(context.Context) error
}

// MustPing panics when an optional dependency such as the bus does not answer
func MustPing(ctx context.Context, name string, p store.Pinger) {
	if p == nil {
		panic(fmt.Sprintf("%s: nil dependency", name))
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, startupPing)
		defer cancel()
	}
	if err := p.Ping(ctx); err != nil {
		panic(fmt.Sprintf("%s: ping: %v", name, err))
	}
}

// MustGuard panics unless every enabled store backend answers; commands call it once at startup
func MustGuard(ctx context.Context, st Guarder) {
	if err := st.Guard(ctx); err != nil {
		panic(fmt.Errorf("store guard: %w", err))
	}
}
