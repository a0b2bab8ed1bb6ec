// Package service runs the aggregation engine: plan buckets, load context, resolve
// presence per agent, merge call counters and upsert one row per agent-hour
package service

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"sync/atomic"
	"time"

	"agentpulse/internal/core/callmetrics"
	"agentpulse/internal/core/classify"
	"agentpulse/internal/core/presence"
	"agentpulse/internal/core/window"
	"agentpulse/internal/modkit/repokit"
	perr "agentpulse/internal/platform/errors"
	"agentpulse/internal/platform/logger"
	"agentpulse/internal/platform/store"
	"agentpulse/internal/services/aggregate/domain"
	"agentpulse/internal/services/aggregate/guardrails"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// EventType is the bus event type for a finished bucket
const EventType = "agentpulse.bucket.aggregated"

// Config holds the engine knobs
type Config struct {
	// Workers bounds per-agent fan-out within a bucket; <=0 -> 1
	Workers int

	// Write retry; <=0 attempts -> 1, <=0 base -> 250ms
	WriteRetries int
	RetryBase    time.Duration

	// Timeouts applied via guardrails
	LoadTimeout   time.Duration
	WriteTimeout  time.Duration
	BucketTimeout time.Duration

	// GlobalGuard takes the cluster-wide advisory lease around a run
	GlobalGuard bool

	// Agents is a fixed agent scope; empty means every agent seen in the event store
	Agents []string

	// NotifySubject is where bucket notices go when a notifier is wired
	NotifySubject string
}

// Service implements domain.RunnerPort
type Service struct {
	DB         repokit.TxRunner
	Binder     repokit.Binder[domain.StorageRepo]
	Windows    *window.Builder
	Resolver   *presence.Resolver
	Classifier *classify.Classifier
	Cfg        Config

	// Lease wraps a whole run when Cfg.GlobalGuard is set
	Lease guardrails.Lease

	// Optional sinks; failures are logged and never fail a bucket
	Mirror domain.Mirror
	Notify domain.Notifier

	running atomic.Bool
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

var _ domain.RunnerPort = (*Service)(nil)

// New constructs the aggregation service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	windows *window.Builder,
	resolver *presence.Resolver,
	classifier *classify.Classifier,
	cfg Config,
	lease guardrails.Lease,
) *Service {
	if db == nil {
		panic("aggregate.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("aggregate.Service requires a non nil Repo binder")
	}
	if windows == nil || resolver == nil || classifier == nil {
		panic("aggregate.Service requires window, presence and classify components")
	}
	return &Service{
		DB: db, Binder: binder,
		Windows: windows, Resolver: resolver, Classifier: classifier,
		Cfg:   cfg,
		Lease: lease,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// WithMirror wires the analytics mirror
func (s *Service) WithMirror(m domain.Mirror) *Service {
	s.Mirror = m
	return s
}

// WithNotifier wires bucket notices
func (s *Service) WithNotifier(n domain.Notifier) *Service {
	s.Notify = n
	return s
}

// Running reports whether a run is in flight in this process
func (s *Service) Running() bool { return s.running.Load() }

func (s *Service) timeouts() guardrails.Timeouts {
	return guardrails.Timeouts{
		Bucket: s.Cfg.BucketTimeout,
		Load:   s.Cfg.LoadTimeout,
		Write:  s.Cfg.WriteTimeout,
	}
}

// Aggregate implements domain.RunnerPort. Only an invalid range, an unreachable event
// store, a concurrent run or cancellation fail the call; everything else is isolated
// per bucket or agent and reported in the Summary
func (s *Service) Aggregate(ctx context.Context, start, end int64) (domain.Summary, error) {
	buckets, err := s.Windows.Build(start, end)
	if err != nil {
		return domain.Summary{}, err
	}
	if !s.running.CompareAndSwap(false, true) {
		return domain.Summary{}, perr.Conflictf("aggregate: a run is already in flight")
	}
	defer s.running.Store(false)

	sum := domain.Summary{
		RunID:          uuid.NewString(),
		Start:          start,
		End:            end,
		TZ:             s.Windows.Location().String(),
		TableVersion:   s.Classifier.Version(),
		BucketsPlanned: len(buckets),
	}
	ctx = logger.WithRun(ctx, sum.RunID)
	log := logger.C(ctx)

	if len(buckets) == 0 {
		log.Info().Int64("start", start).Int64("end", end).Msg("aggregate: range holds no full hour")
		return sum, nil
	}
	if err := s.preflight(ctx); err != nil {
		return sum, err
	}

	t0 := time.Now()
	run := func(ctx context.Context) error {
		for _, b := range buckets {
			if err := ctx.Err(); err != nil {
				return perr.Wrap(err, perr.ErrorCodeTimeout, "aggregate: run interrupted")
			}
			s.runBucket(ctx, b, &sum)
		}
		return nil
	}

	if s.Cfg.GlobalGuard && s.Lease != nil {
		err = s.Lease(ctx, run)
		if errors.Is(err, guardrails.ErrLeaseHeld) {
			return sum, perr.Conflictf("aggregate: another instance holds the run lease")
		}
	} else {
		err = run(ctx)
	}

	log.Info().
		Int("buckets", sum.BucketsProcessed).
		Int("buckets_failed", sum.BucketsFailed).
		Int("upserted", sum.AgentsUpserted).
		Int("agents_failed", sum.AgentsFailed).
		Int("skipped_events", sum.EventsSkipped).
		Dur("elapsed", time.Since(t0)).
		Msg("aggregate: run finished")
	return sum, err
}

// preflight fails the run when the event store cannot be reached at all
func (s *Service) preflight(ctx context.Context) error {
	pctx, cancel := guardrails.ForLoad(ctx, s.timeouts())
	defer cancel()

	var err error
	if p, ok := s.DB.(store.Pinger); ok {
		err = p.Ping(pctx)
	} else {
		_, err = s.DB.Exec(pctx, "SELECT 1")
	}
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "aggregate: event store unreachable")
	}
	return nil
}

// agentOutcome is the result of one agent's work in a bucket
type agentOutcome struct {
	row     domain.AggregateRow
	events  int
	skipped int
	fail    *domain.Failure
}

func (s *Service) runBucket(ctx context.Context, b domain.Bucket, sum *domain.Summary) {
	tos := s.timeouts()
	bctx, cancel := guardrails.WithBucket(ctx, tos)
	defer cancel()

	log := logger.C(ctx).With().Int64("bucket", b.Start).Str("label", s.Windows.Label(b)).Logger()
	started := time.Now()
	repo := repokit.MustBind(s.Binder, s.DB)
	fin := domain.BucketFinish{Status: "ok"}

	if err := s.ledger(bctx, func(c context.Context, r domain.StorageRepo) error {
		return r.StartBucket(c, sum.RunID, b)
	}); err != nil {
		log.Warn().Err(err).Msg("aggregate: ledger start failed")
	}
	defer func() {
		fin.ElapsedMS = int(time.Since(started).Milliseconds())
		if err := s.ledger(ctx, func(c context.Context, r domain.StorageRepo) error {
			return r.FinishBucket(c, sum.RunID, b, fin)
		}); err != nil {
			log.Warn().Err(err).Msg("aggregate: ledger finish failed")
		}
	}()

	failBucket := func(kind, source string, err error) {
		lerr := &domain.EventLoadError{Bucket: b, Source: source, Err: err}
		log.Error().Err(lerr).Str("kind", kind).Msg("aggregate: bucket skipped")
		sum.BucketsFailed++
		sum.Failures = append(sum.Failures, domain.Failure{BucketStart: b.Start, Kind: kind, Error: lerr.Error()})
		fin.Status, fin.ErrText = "error", lerr.Error()
	}

	lctx, lcancel := guardrails.ForLoad(bctx, tos)
	events, err := repo.LoadEvents(lctx, s.Cfg.Agents, s.Resolver.ContextStart(b), b.End)
	lcancel()
	if err != nil {
		failBucket(domain.FailEventLoad, "events", err)
		return
	}
	lctx, lcancel = guardrails.ForLoad(bctx, tos)
	calls, err := repo.LoadCallMetrics(lctx, s.Cfg.Agents, b.Start, b.End)
	lcancel()
	if err != nil {
		failBucket(domain.FailCallLoad, "call metrics", err)
		return
	}
	fin.LoadMS = int(time.Since(started).Milliseconds())

	ids, byAgent := presence.Group(events)
	agents := s.scope(ids)
	callsBy := make(map[string][]callmetrics.Record, len(agents))
	for _, c := range calls {
		callsBy[c.AgentID] = append(callsBy[c.AgentID], c)
	}

	wt := time.Now()
	out := make([]agentOutcome, len(agents))
	var g errgroup.Group
	g.SetLimit(max(s.Cfg.Workers, 1))
	for i, id := range agents {
		g.Go(func() error {
			out[i] = s.runAgent(bctx, b, id, byAgent[id], callsBy[id])
			return nil
		})
	}
	_ = g.Wait()
	fin.WriteMS = int(time.Since(wt).Milliseconds())

	written := make([]domain.AggregateRow, 0, len(out))
	for _, o := range out {
		fin.Events += o.events
		fin.Skipped += o.skipped
		if o.fail != nil {
			fin.Failed++
			sum.Failures = append(sum.Failures, *o.fail)
			continue
		}
		written = append(written, o.row)
	}
	fin.Agents = len(agents)
	fin.Upserted = len(written)
	if fin.Failed > 0 {
		fin.Status = "partial"
	}

	sum.BucketsProcessed++
	sum.AgentsUpserted += fin.Upserted
	sum.AgentsFailed += fin.Failed
	sum.EventsSkipped += fin.Skipped

	s.publish(bctx, b, sum, fin, written)
	log.Debug().Int("agents", fin.Agents).Int("upserted", fin.Upserted).Int("failed", fin.Failed).Msg("aggregate: bucket done")
}

// scope merges the configured agent list with agents seen in the events, sorted
func (s *Service) scope(seen []string) []string {
	out := append(slices.Clone(s.Cfg.Agents), seen...)
	slices.Sort(out)
	return slices.Compact(out)
}

func (s *Service) runAgent(ctx context.Context, b domain.Bucket, agentID string, evs []domain.Event, calls []callmetrics.Record) agentOutcome {
	res, err := s.Resolver.Resolve(evs, b)
	if err != nil {
		logger.C(ctx).Error().Err(err).Str("agent", agentID).Int64("bucket", b.Start).Msg("aggregate: classification defect")
		return agentOutcome{fail: &domain.Failure{BucketStart: b.Start, AgentID: agentID, Kind: domain.FailGap, Error: err.Error()}}
	}

	row := domain.AggregateRow{
		AgentID:      agentID,
		AgentName:    res.AgentName,
		BucketStart:  b.Start,
		BucketEnd:    b.End,
		TZ:           b.TZ,
		Durations:    res.Durations,
		IdleEntries:  res.IdleEntries,
		NotAvail:     res.NotAvailEntries,
		Calls:        callmetrics.Merge(calls, b),
		EventDetails: res.InWindow,
		TableVersion: s.Classifier.Version(),
	}
	o := agentOutcome{row: row, events: len(res.InWindow), skipped: res.Skipped}
	if err := s.writeWithRetry(ctx, row); err != nil {
		logger.C(ctx).Error().Err(err).Str("agent", agentID).Int64("bucket", b.Start).Msg("aggregate: upsert failed")
		o.fail = &domain.Failure{BucketStart: b.Start, AgentID: agentID, Kind: domain.FailWrite, Error: err.Error()}
	}
	return o
}

func (s *Service) writeWithRetry(ctx context.Context, row domain.AggregateRow) error {
	attempts := max(s.Cfg.WriteRetries, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 250 * time.Millisecond
	}

	var last error
	n := 0
	for i := range attempts {
		n = i + 1
		wctx, cancel := guardrails.ForWrite(ctx, s.timeouts())
		err := s.DB.Tx(wctx, func(q repokit.Queryer) error {
			return repokit.MustBind(s.Binder, q).UpsertRow(wctx, row)
		})
		cancel()
		if err == nil {
			return nil
		}
		last = err

		// Stop early on non-retryable errors
		if !retryable(err) {
			break
		}
		if i == attempts-1 {
			break
		}

		// Exponential backoff with jitter, cap at 30s
		d := min(base<<i, 30*time.Second)
		j := d
		if half := d / 2; half > 0 {
			j = half + time.Duration(rand.Int63n(int64(half)))
		}
		if se := s.sleep(ctx, j); se != nil {
			break
		}
	}
	return &domain.WriteError{AgentID: row.AgentID, BucketStart: row.BucketStart, Attempts: n, Err: last}
}

func retryable(err error) bool {
	if perr.Retryable(err) || perr.IsQueryCanceled(err) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func (s *Service) ledger(ctx context.Context, fn func(context.Context, domain.StorageRepo) error) error {
	wctx, cancel := guardrails.ForWrite(ctx, s.timeouts())
	defer cancel()
	return s.DB.Tx(wctx, func(q repokit.Queryer) error { return fn(wctx, repokit.MustBind(s.Binder, q)) })
}

// publish hands written rows to the mirror and the bus; both are best effort
func (s *Service) publish(ctx context.Context, b domain.Bucket, sum *domain.Summary, fin domain.BucketFinish, rows []domain.AggregateRow) {
	log := logger.C(ctx)
	if s.Mirror != nil && len(rows) > 0 {
		wctx, cancel := guardrails.ForWrite(ctx, s.timeouts())
		if err := s.Mirror.MirrorRows(wctx, rows); err != nil {
			log.Warn().Err(err).Int64("bucket", b.Start).Msg("aggregate: mirror failed")
		}
		cancel()
	}
	if s.Notify != nil && s.Cfg.NotifySubject != "" {
		notice := domain.BucketNotice{
			RunID:        sum.RunID,
			BucketStart:  b.Start,
			BucketEnd:    b.End,
			TZ:           b.TZ,
			Agents:       fin.Agents,
			Upserted:     fin.Upserted,
			Failed:       fin.Failed,
			TableVersion: sum.TableVersion,
		}
		if _, err := s.Notify.Publish(ctx, s.Cfg.NotifySubject, EventType, notice); err != nil {
			log.Warn().Err(err).Int64("bucket", b.Start).Msg("aggregate: notify failed")
		}
	}
}

// Watch re-aggregates the trailing window ending at the last local hour boundary,
// once immediately and then every interval, until ctx is done
func (s *Service) Watch(ctx context.Context, every, trail time.Duration) error {
	if every <= 0 {
		return perr.InvalidArgf("watch: interval must be positive")
	}
	if trail < time.Hour {
		return perr.InvalidArgf("watch: trailing window must cover at least one hour")
	}

	tick := func() {
		end := s.Windows.Floor(s.now().Unix())
		start := end - int64(trail/time.Second)
		sum, err := s.Aggregate(ctx, start, end)
		log := logger.C(ctx)
		switch {
		case perr.IsCode(err, perr.ErrorCodeConflict):
			log.Info().Msg("aggregate: previous run still in flight; tick skipped")
		case err != nil:
			log.Error().Err(err).Str("run_id", sum.RunID).Msg("aggregate: scheduled run failed")
		}
	}

	tick()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			tick()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
