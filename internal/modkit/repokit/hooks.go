package repokit

import "context"

// BeginHook runs first inside every transaction with the tx bound Queryer,
// typically to SET LOCAL session knobs
type BeginHook func(ctx context.Context, q Queryer) error

// WithBeginHooks returns a TxRunner whose Tx runs hooks before fn.
// Plain Exec, Query and QueryRow bypass the hooks.
func WithBeginHooks(inner TxRunner, hooks ...BeginHook) TxRunner {
	if len(hooks) == 0 {
		return inner
	}
	return hookedTx{TxRunner: inner, hooks: hooks}
}

type hookedTx struct {
	TxRunner
	hooks []BeginHook
}

func (h hookedTx) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.TxRunner.Tx(ctx, func(q Queryer) error {
		for _, hk := range h.hooks {
			if err := hk(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}
