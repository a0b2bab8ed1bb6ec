// Package api provides the HTTP API for the application
package api

import (
	"agentpulse/internal/platform/bus"
	"agentpulse/internal/platform/config"
	"agentpulse/internal/platform/logger"
	phttp "agentpulse/internal/platform/net/http"
	"agentpulse/internal/platform/store"

	"agentpulse/internal/modkit"
	"agentpulse/internal/modkit/httpkit"
	"agentpulse/internal/modkit/module"
	"agentpulse/internal/modkit/swaggerkit"

	aggmod "agentpulse/internal/services/aggregate/module"
	activitymod "agentpulse/internal/services/api/activity/module"
	metahttp "agentpulse/internal/services/api/meta/http"
	metamod "agentpulse/internal/services/api/meta/module"
)

// Options are the API options
type Options struct {
	// Config is the root view; the engine reads CORE_AGGREGATE_* from it
	Config         config.Conf
	Store          *store.Store
	Bus            *bus.Publisher
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) error {
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
		Bus: opt.Bus,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	// the engine owns no routes; its ports feed activity and meta
	engine, err := aggmod.New(deps)
	if err != nil {
		return err
	}
	ep := module.MustPortsOf[aggmod.Ports](engine)
	svc := engine.Service()

	mods := []module.Module{
		engine,
		metamod.New(deps, modkit.WithPorts(metamod.Ports{
			Engine: func() metahttp.EngineInfo {
				return metahttp.EngineInfo{
					TZ:           ep.Windows.Location().String(),
					LookbackSecs: svc.Resolver.Lookback(),
					TableVersion: svc.Classifier.Version(),
					Running:      svc.Running(),
				}
			},
		})),
		activitymod.New(deps, modkit.WithPorts(activitymod.Ports{
			Runner:  ep.Runner,
			Rows:    ep.Rows,
			Windows: ep.Windows,
		})),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			m.MountRoutes(api)
		}
	})

	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	return nil
}
