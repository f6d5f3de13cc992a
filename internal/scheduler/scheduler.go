package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nexusfeed/nexusfeed/internal/config"
	"github.com/nexusfeed/nexusfeed/internal/connector"
	"github.com/nexusfeed/nexusfeed/internal/metrics"
	"github.com/nexusfeed/nexusfeed/internal/model"
	"github.com/nexusfeed/nexusfeed/internal/normalize"
	"github.com/nexusfeed/nexusfeed/internal/sink"
)

// TickerHandler receives each normalized ticker after a successful tick.
type TickerHandler interface {
	HandleTicker(rec model.Ticker) error
}

// TickerHandlerFunc is a function adapter for TickerHandler.
type TickerHandlerFunc func(model.Ticker) error

func (f TickerHandlerFunc) HandleTicker(rec model.Ticker) error {
	return f(rec)
}

// Config holds scheduler configuration.
type Config struct {
	FetchTimeout time.Duration // Per-tick fetch timeout (default: 10s)

	// PersistFailureEscalation is the consecutive persistence failure count
	// at which log severity escalates from warn to error.
	PersistFailureEscalation int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FetchTimeout:             10 * time.Second,
		PersistFailureEscalation: 3,
	}
}

// BuildTargets expands the configured sources into poll targets, one per
// (source, symbol) pair, all at the global refresh interval.
func BuildTargets(cfg *config.Config) []model.PollTarget {
	var targets []model.PollTarget
	for _, id := range cfg.Sources.EnabledSources() {
		for _, sym := range cfg.Sources.Symbols[id] {
			targets = append(targets, model.PollTarget{
				Source:   id,
				Symbol:   sym,
				Interval: cfg.Sources.RefreshInterval,
			})
		}
	}
	return targets
}

// Scheduler drives one independent polling loop per target. Within a target
// ticks are strictly sequential; across targets no ordering exists.
type Scheduler struct {
	cfg      Config
	registry *connector.Registry
	sink     sink.Sink
	handler  TickerHandler
	logger   *slog.Logger

	targets []*target

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler for the given poll targets. handler may be nil.
func New(cfg Config, registry *connector.Registry, snk sink.Sink, targets []model.PollTarget, handler TickerHandler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cfg:      cfg,
		registry: registry,
		sink:     snk,
		handler:  handler,
		logger:   logger,
	}
	for _, t := range targets {
		s.targets = append(s.targets, newTarget(t))
	}
	return s
}

// Start resets every configured source's destination, then launches one
// polling loop per target. Resets complete before any target can begin
// fetching, so no data from a previous run can mix into this one. The first
// tick of every target fires immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	reset := make(map[string]bool)
	for _, t := range s.targets {
		if reset[t.spec.Source] {
			continue
		}
		if err := s.sink.Reset(t.spec.Source); err != nil {
			return err
		}
		reset[t.spec.Source] = true
	}

	for _, t := range s.targets {
		s.wg.Add(1)
		go s.runTarget(t)
	}

	s.logger.Info("scheduler started", "targets", len(s.targets))
	return nil
}

// Stop cancels all timers and in-flight fetches and waits for every target
// loop to exit.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current status of every target.
func (s *Scheduler) Snapshot() []TargetStatus {
	out := make([]TargetStatus, 0, len(s.targets))
	for _, t := range s.targets {
		out = append(out, t.status())
	}
	return out
}

// runTarget is the per-target loop. time.Ticker measures interval from
// tick-start to tick-start; when a fetch overruns the interval, the one
// buffered tick fires immediately after completion instead of stacking a
// concurrent fetch.
func (s *Scheduler) runTarget(t *target) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.spec.Interval)
	defer ticker.Stop()

	// First tick is immediate.
	s.tick(t)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick(t)
		}
	}
}

// tick runs one scheduled execution attempt of a poll target.
func (s *Scheduler) tick(t *target) {
	conn, ok := s.registry.Get(t.spec.Source)
	if !ok {
		// Registry construction rejects unknown sources; this is unreachable
		// unless targets and registry were built from different configs.
		s.logger.Error("no connector for target", "source", t.spec.Source)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.FetchTimeout)
	defer cancel()

	t.enter(StateFetching)
	start := time.Now()
	raw, err := conn.FetchTicker(ctx, t.spec.Symbol)
	metrics.FetchLatency.WithLabelValues(t.spec.Source).Observe(time.Since(start).Seconds())
	if err != nil {
		s.failTick(t, "fetch failed", err)
		return
	}

	t.enter(StateNormalizing)
	rec, err := normalize.ToTicker(raw, t.spec.Source, t.spec.Symbol)
	if err != nil {
		s.failTick(t, "normalize failed", err)
		return
	}
	metrics.RecordsNormalized.WithLabelValues("ticker").Inc()

	t.enter(StatePersisting)
	if err := s.sink.AppendTicker(rec); err != nil {
		metrics.SinkAppends.WithLabelValues("error").Inc()
		failures := t.persistFailure()
		if failures >= int64(s.cfg.PersistFailureEscalation) {
			s.logger.Error("persist failed repeatedly",
				"source", t.spec.Source,
				"symbol", t.spec.Symbol,
				"consecutive", failures,
				"err", err,
			)
		} else {
			s.logger.Warn("persist failed",
				"source", t.spec.Source,
				"symbol", t.spec.Symbol,
				"err", err,
			)
		}
		metrics.Ticks.WithLabelValues(t.spec.Source, "error").Inc()
		t.fail(err)
		return
	}
	metrics.SinkAppends.WithLabelValues("ok").Inc()
	t.persistOK()

	if s.handler != nil {
		if err := s.handler.HandleTicker(rec); err != nil {
			s.logger.Warn("ticker handler failed",
				"source", t.spec.Source,
				"symbol", t.spec.Symbol,
				"err", err,
			)
		}
	}

	metrics.Ticks.WithLabelValues(t.spec.Source, "ok").Inc()
	t.complete()
}

// failTick records a recoverable tick failure. The target returns to Idle
// and waits for its next interval; it is never retried within the same tick
// and never affects any other target's schedule.
func (s *Scheduler) failTick(t *target, msg string, err error) {
	s.logger.Warn(msg,
		"source", t.spec.Source,
		"symbol", t.spec.Symbol,
		"err", err,
	)
	metrics.Ticks.WithLabelValues(t.spec.Source, "error").Inc()
	t.fail(err)
}
