package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nexusfeed/nexusfeed/internal/cache"
	"github.com/nexusfeed/nexusfeed/internal/config"
	"github.com/nexusfeed/nexusfeed/internal/connector"
	"github.com/nexusfeed/nexusfeed/internal/database"
	"github.com/nexusfeed/nexusfeed/internal/directory"
	"github.com/nexusfeed/nexusfeed/internal/model"
	"github.com/nexusfeed/nexusfeed/internal/publisher"
	"github.com/nexusfeed/nexusfeed/internal/query"
	"github.com/nexusfeed/nexusfeed/internal/scheduler"
	"github.com/nexusfeed/nexusfeed/internal/server"
	"github.com/nexusfeed/nexusfeed/internal/sink"
	"github.com/nexusfeed/nexusfeed/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/nexusfeed.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting nexusfeed",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"sources", cfg.Sources.EnabledSources(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connector registry: one connector per configured source
	registry, err := connector.NewRegistry(cfg, logger)
	if err != nil {
		logger.Error("failed to build connector registry", "error", err)
		os.Exit(1)
	}

	// Persistence sinks
	sinks := make([]sink.Sink, 0, len(cfg.Persistence.Formats)+1)
	for _, format := range cfg.Persistence.Formats {
		switch format {
		case "csv":
			s, err := sink.NewCSVSink(cfg.Persistence.Dir)
			if err != nil {
				logger.Error("failed to create csv sink", "error", err)
				os.Exit(1)
			}
			sinks = append(sinks, s)
		case "json":
			s, err := sink.NewJSONSink(cfg.Persistence.Dir)
			if err != nil {
				logger.Error("failed to create json sink", "error", err)
				os.Exit(1)
			}
			sinks = append(sinks, s)
		}
	}

	var pgSink *sink.PostgresSink
	if cfg.Database.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pgSink = sink.NewPostgresSink(sink.DefaultPostgresConfig(), pool, logger)
		if err := pgSink.Start(ctx); err != nil {
			logger.Error("failed to start database sink", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, pgSink)
		logger.Info("database connected")
	}
	multiSink := sink.NewMulti(sinks...)

	// Optional latest-ticker snapshot cache
	var snapCache *cache.Cache
	if cfg.Redis.Enabled() {
		snapCache, err = cache.New(ctx, cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer snapCache.Close()
		logger.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	// Websocket publisher
	pub := publisher.New(256, logger)
	if err := pub.Start(ctx); err != nil {
		logger.Error("failed to start publisher", "error", err)
		os.Exit(1)
	}

	// Every successful tick fans out to the cache and the live stream.
	handler := scheduler.TickerHandlerFunc(func(rec model.Ticker) error {
		if snapCache != nil {
			cctx, ccancel := context.WithTimeout(ctx, 2*time.Second)
			if err := snapCache.SetTicker(cctx, rec); err != nil {
				logger.Warn("cache write failed",
					"source", rec.Source,
					"symbol", rec.Symbol,
					"err", err,
				)
			}
			ccancel()
		}
		pub.Publish(rec)
		return nil
	})

	targets := scheduler.BuildTargets(cfg)
	sched := scheduler.New(scheduler.DefaultConfig(), registry, multiSink, targets, handler, logger)

	dirClient := directory.NewClient(cfg.Directory.BaseURL,
		directory.WithTimeout(cfg.Directory.Timeout),
		directory.WithRetries(cfg.Directory.MaxRetries, time.Second),
		directory.WithLogger(logger),
	)

	svc := query.New(cfg.Query, registry, dirClient, multiSink, logger)
	srv := server.New(cfg.Server, svc, sched, snapCache, pub, logger)

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	logger.Info("nexusfeed running",
		"instance_id", cfg.Instance.ID,
		"targets", len(targets),
		"health_url", fmt.Sprintf("http://localhost:%d/healthz", cfg.Server.Port),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		sched.Stop(shutdownCtx)
		pub.Stop(shutdownCtx)
		if pgSink != nil {
			pgSink.Stop(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("nexusfeed stopped")
}
