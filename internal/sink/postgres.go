package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexusfeed/nexusfeed/internal/model"
)

// PostgresConfig holds batching settings for the database sink.
type PostgresConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultPostgresConfig returns sensible defaults.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		BatchSize:     500,
		FlushInterval: time.Second,
	}
}

// PostgresMetrics tracks sink activity.
type PostgresMetrics struct {
	Inserts int64
	Flushes int64
	Errors  int64
}

// PostgresSink archives ticker records into the tickers table, append-only,
// batched like the file sinks are serialized: one flush in flight at a time.
//
// Expected schema:
//
//	CREATE TABLE tickers (
//	    captured_at TIMESTAMPTZ NOT NULL,
//	    source      TEXT        NOT NULL,
//	    symbol      TEXT        NOT NULL,
//	    price       TEXT,
//	    bid         DOUBLE PRECISION,
//	    ask         DOUBLE PRECISION,
//	    volume      DOUBLE PRECISION
//	);
type PostgresSink struct {
	cfg    PostgresConfig
	db     *pgxpool.Pool
	logger *slog.Logger

	// Batching
	batch       []model.Ticker
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics PostgresMetrics
}

// NewPostgresSink creates a database sink.
func NewPostgresSink(cfg PostgresConfig, db *pgxpool.Pool, logger *slog.Logger) *PostgresSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSink{
		cfg:    cfg,
		db:     db,
		logger: logger,
		batch:  make([]model.Ticker, 0, cfg.BatchSize),
	}
}

// Start begins the periodic flush loop.
func (s *PostgresSink) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.flushTicker = time.NewTicker(s.cfg.FlushInterval)

	s.wg.Add(1)
	go s.flushLoop()

	s.logger.Info("postgres sink started",
		"batch_size", s.cfg.BatchSize,
		"flush_interval", s.cfg.FlushInterval,
	)
	return nil
}

// Stop flushes any buffered rows and shuts down.
func (s *PostgresSink) Stop(ctx context.Context) error {
	s.logger.Info("stopping postgres sink")

	if s.cancel != nil {
		s.cancel()
	}
	if s.flushTicker != nil {
		s.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("postgres sink stop timed out")
	}

	// Final flush runs on the caller's context; the internal one is gone.
	s.flushWith(ctx)
	return nil
}

// Stats returns current metrics.
func (s *PostgresSink) Stats() PostgresMetrics {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return s.metrics
}

// Reset clears archived rows for a source.
func (s *PostgresSink) Reset(source string) error {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM tickers WHERE source = $1`, source); err != nil {
		return fmt.Errorf("reset tickers for %s: %w", source, err)
	}
	return nil
}

// AppendTicker buffers one record; the batch flushes on size or interval.
func (s *PostgresSink) AppendTicker(rec model.Ticker) error {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	shouldFlush := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if shouldFlush {
		s.flushWith(s.ctx)
	}
	return nil
}

// flushLoop periodically flushes the batch.
func (s *PostgresSink) flushLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.flushTicker.C:
			s.flushWith(s.ctx)
		}
	}
}

// flushWith writes the current batch to the database.
func (s *PostgresSink) flushWith(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := s.batch
	s.batch = make([]model.Ticker, 0, s.cfg.BatchSize)
	s.batchMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	if err := s.batchInsert(ctx, batch); err != nil {
		s.logger.Error("batch insert failed", "error", err, "count", len(batch))
		s.batchMu.Lock()
		s.metrics.Errors++
		s.batchMu.Unlock()
		return
	}

	s.batchMu.Lock()
	s.metrics.Inserts += int64(len(batch))
	s.metrics.Flushes++
	s.batchMu.Unlock()

	s.logger.Debug("flushed tickers",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch.
func (s *PostgresSink) batchInsert(ctx context.Context, recs []model.Ticker) error {
	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(`
			INSERT INTO tickers (captured_at, source, symbol, price, bid, ask, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, r.CapturedAt, r.Source, r.Symbol, formatPrice(r.Last), r.Bid, r.Ask, r.Volume)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range recs {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

var _ Sink = (*PostgresSink)(nil)
