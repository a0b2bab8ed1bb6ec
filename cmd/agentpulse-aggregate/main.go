package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"agentpulse/internal/modkit"
	"agentpulse/internal/modkit/repokit"
	"agentpulse/internal/platform/bus"
	"agentpulse/internal/platform/config"
	"agentpulse/internal/platform/logger"
	"agentpulse/internal/platform/store"

	aggmod "agentpulse/internal/services/aggregate/module"
	aggrepo "agentpulse/internal/services/aggregate/repo"
)

func main() {
	config.LoadDotenv()

	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	natsCfg := root.Prefix("SERVICE_NATS_")

	l := logger.Get()

	var (
		fStart   = flag.String("start", "", "range start: epoch seconds or local YYYY-MM-DDTHH")
		fEnd     = flag.String("end", "", "range end (exclusive): epoch seconds or local YYYY-MM-DDTHH")
		fWatch   = flag.Bool("watch", false, "keep re-aggregating a trailing window until interrupted")
		fEvery   = flag.Duration("every", 5*time.Minute, "watch tick interval")
		fTrail   = flag.Duration("trail", 2*time.Hour, "watch trailing window length")
		fMigrate = flag.Bool("migrate", false, "apply the schema before running")
	)
	flag.Parse()

	oneShot := *fStart != "" || *fEnd != ""
	if oneShot && *fWatch {
		l.Panic().Msg("-watch and -start/-end are mutually exclusive")
	}
	if oneShot && (*fStart == "" || *fEnd == "") {
		l.Panic().Msg("must provide both -start and -end")
	}
	if !oneShot && !*fWatch && !*fMigrate {
		l.Panic().Msg("nothing to do: pass -start/-end, -watch or -migrate")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mirror := root.Prefix("CORE_AGGREGATE_").MayBool("MIRROR", false)
	st, err := store.Open(ctx, store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 16)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled: mirror,
			URL:     chCfg.MayString("DBURL", ""),
			Role:    "agentpulse",
			Tag:     "aggregate",
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
	repokit.MustGuard(ctx, st)

	if *fMigrate {
		if err := aggrepo.EnsureSchema(ctx, st.PG); err != nil {
			l.Fatal().Err(err).Msg("schema migration failed")
		}
		l.Info().Msg("schema applied")
		if !oneShot && !*fWatch {
			return
		}
	}

	pub, err := bus.Connect(ctx, bus.Config{
		Enabled:  natsCfg.MayBool("ENABLED", false),
		URL:      natsCfg.MayString("URL", "nats://127.0.0.1:4222"),
		Stream:   natsCfg.MayString("STREAM", "AGENTPULSE"),
		Subjects: natsCfg.MayCSV("SUBJECTS", []string{"agentpulse.>"}),
		Source:   "agentpulse-aggregate",
		Name:     "agentpulse-aggregate",
		MaxAge:   natsCfg.MayDuration("MAX_AGE", 0),
	}, *l)
	switch {
	case errors.Is(err, bus.ErrDisabled):
		pub = nil
	case err != nil:
		l.Panic().Err(err).Msg("bus.Connect failed")
	default:
		defer pub.Close()
		repokit.MustPing(ctx, "nats", pub)
	}

	m, err := aggmod.New(modkit.Deps{
		Log: *l,
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Bus: pub,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("aggregate module init failed")
	}

	if *fWatch {
		if err := m.Service().Watch(ctx, *fEvery, *fTrail); err != nil && !errors.Is(err, context.Canceled) {
			l.Fatal().Err(err).Msg("watch stopped")
		}
		return
	}

	w := m.Windows()
	start, err := w.ParseLocal(*fStart)
	if err != nil {
		l.Panic().Err(err).Msg("bad -start")
	}
	end, err := w.ParseLocal(*fEnd)
	if err != nil {
		l.Panic().Err(err).Msg("bad -end")
	}

	sum, err := m.Service().Aggregate(ctx, start, end)
	if err != nil {
		l.Fatal().Err(err).Msg("aggregate failed")
	}
	if sum.BucketsFailed > 0 || sum.AgentsFailed > 0 {
		l.Warn().
			Int("buckets_failed", sum.BucketsFailed).
			Int("agents_failed", sum.AgentsFailed).
			Msg("aggregate finished with isolated failures")
	}
}
