// Package modkit provides module wiring and core deps
package modkit

import (
	"agentpulse/internal/modkit/repokit"
	"agentpulse/internal/platform/bus"
	"agentpulse/internal/platform/config"
	"agentpulse/internal/platform/logger"
	"agentpulse/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse

	// Bus is nil when notifications are disabled
	Bus *bus.Publisher
}

// ZeroOK returns true when deps are safe to use with zero values in tests
// consumers should still nil check for optional stores
func (d Deps) ZeroOK() bool { return true }
