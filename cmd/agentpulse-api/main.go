// @title         AgentPulse API
// @version       0.1.0
// @description   Hourly agent presence and call activity
// @BasePath      /api/v1

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"agentpulse/internal/platform/bus"
	"agentpulse/internal/platform/config"
	"agentpulse/internal/platform/logger"
	phttp "agentpulse/internal/platform/net/http"
	"agentpulse/internal/platform/store"

	"agentpulse/internal/services/api"
)

func main() {
	config.LoadDotenv()

	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	natsCfg := root.Prefix("SERVICE_NATS_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled: chCfg.MayBool("ENABLED", false),
			URL:     chCfg.MayString("DBURL", ""),
			Role:    "agentpulse",
			Tag:     "api",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	pub, err := bus.Connect(ctx, bus.Config{
		Enabled:  natsCfg.MayBool("ENABLED", false),
		URL:      natsCfg.MayString("URL", "nats://127.0.0.1:4222"),
		Stream:   natsCfg.MayString("STREAM", "AGENTPULSE"),
		Subjects: natsCfg.MayCSV("SUBJECTS", []string{"agentpulse.>"}),
		Source:   "agentpulse-api",
		Name:     "agentpulse-api",
		MaxAge:   natsCfg.MayDuration("MAX_AGE", 0),
	}, *l)
	switch {
	case errors.Is(err, bus.ErrDisabled):
		pub = nil
	case err != nil:
		l.Panic().Err(err).Msg("bus.Connect failed")
	default:
		defer pub.Close()
	}

	// reads CORE_API_PORT
	srv := phttp.NewServer(apiCfg)

	if err := api.Mount(srv.Router(), api.Options{
		Config:         root,
		Store:          st,
		Bus:            pub,
		Logger:         l,
		EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
	}); err != nil {
		l.Panic().Err(err).Msg("api mount failed")
	}

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
