// Package module provides the aggregation engine module
package module

import (
	"agentpulse/internal/core/classify"
	"agentpulse/internal/core/presence"
	"agentpulse/internal/core/window"
	"agentpulse/internal/modkit"
	"agentpulse/internal/modkit/repokit"
	phttp "agentpulse/internal/platform/net/http"
	"agentpulse/internal/services/aggregate/domain"
	"agentpulse/internal/services/aggregate/guardrails"
	"agentpulse/internal/services/aggregate/repo"
	"agentpulse/internal/services/aggregate/service"
)

// Ports defines the aggregate module ports
type Ports struct {
	Runner  domain.RunnerPort
	Rows    domain.RowReader
	Windows *window.Builder
}

// Module implements the aggregate module
type Module struct {
	deps    modkit.Deps
	opts    Options
	svc     *service.Service
	windows *window.Builder
	ports   Ports
}

// New constructs the aggregate module.
// It wires the classifier, resolver, repo, lease and optional sinks using config from deps.Cfg.
// It does not mount any routes
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)

	classifier, err := loadClassifier(opts.TablePath)
	if err != nil {
		return nil, err
	}

	windows := window.New(opts.Location, window.WithMaxBuckets(opts.MaxBuckets))
	resolver := presence.New(classifier, opts.Lookback)
	binder := repo.NewPG()

	var lease guardrails.Lease
	if opts.GlobalGuard {
		lease = guardrails.MakeAdvisoryLease(deps.PG, opts.LockName)
	}

	// reads stay on the pool; write and ledger transactions get a server side timeout
	writes := repokit.WithBeginHooks(deps.PG, repo.StatementTimeout(opts.WriteTimeout))

	svc := service.New(
		writes, binder,
		windows, resolver, classifier,
		service.Config{
			Workers:       opts.Workers,
			WriteRetries:  opts.WriteRetries,
			RetryBase:     opts.RetryBase,
			LoadTimeout:   opts.LoadTimeout,
			WriteTimeout:  opts.WriteTimeout,
			BucketTimeout: opts.BucketTimeout,
			GlobalGuard:   opts.GlobalGuard,
			Agents:        opts.Agents,
			NotifySubject: opts.NotifySubject,
		},
		lease,
	)
	if opts.Mirror && deps.CH != nil {
		svc.WithMirror(repo.NewCHMirror(deps.CH))
	}
	if deps.Bus != nil {
		svc.WithNotifier(deps.Bus)
	}

	m := &Module{deps: deps, opts: opts, svc: svc, windows: windows}
	m.ports = Ports{Runner: svc, Rows: binder.Bind(deps.PG), Windows: windows}

	deps.Log.Info().
		Str("tz", opts.Location.String()).
		Int("table_version", classifier.Version()).
		Dur("lookback", opts.Lookback).
		Int("workers", opts.Workers).
		Bool("guard", opts.GlobalGuard).
		Bool("mirror", svc.Mirror != nil).
		Bool("notify", svc.Notify != nil).
		Msg("aggregate module ready")
	return m, nil
}

func loadClassifier(path string) (*classify.Classifier, error) {
	if path == "" {
		return classify.Load()
	}
	return classify.FromFile(path)
}

// Name returns the module name
func (m *Module) Name() string { return "aggregate" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Service exposes the engine for commands that need Watch
func (m *Module) Service() *service.Service { return m.svc }

// Windows exposes the bucket builder for range parsing
func (m *Module) Windows() *window.Builder { return m.windows }

// MountRoutes is a no-op as aggregate has no routes
func (m *Module) MountRoutes(_ phttp.Router) {}
