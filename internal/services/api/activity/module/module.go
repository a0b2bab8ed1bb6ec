// Package module wires activity reporting into the API using modkit
package module

import (
	"net/http"

	"agentpulse/internal/core/window"
	modkit "agentpulse/internal/modkit"
	"agentpulse/internal/modkit/httpkit"
	str "agentpulse/internal/platform/strings"
	aggdomain "agentpulse/internal/services/aggregate/domain"
	activityhttp "agentpulse/internal/services/api/activity/http"
	activitysvc "agentpulse/internal/services/api/activity/service"
)

// Ports are the engine ports this module consumes; inject with modkit.WithPorts
type Ports struct {
	Runner  aggdomain.RunnerPort
	Rows    aggdomain.RowReader
	Windows *window.Builder
}

// Module implements the activity module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc activitysvc.Service
}

// New constructs the activity module. It panics without engine ports
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("activity"), modkit.WithPrefix("/activity")}, opts...)...)

	p, ok := b.Ports.(Ports)
	if !ok {
		panic("activity module requires activity.Ports via modkit.WithPorts")
	}
	svc := activitysvc.New(p.Rows, p.Runner, p.Windows)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		activityhttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports exposes the service for cross-module lookups
func (m *Module) Ports() any { return m.svc }
