package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexusfeed/nexusfeed/internal/cache"
	"github.com/nexusfeed/nexusfeed/internal/config"
	"github.com/nexusfeed/nexusfeed/internal/publisher"
	"github.com/nexusfeed/nexusfeed/internal/query"
	"github.com/nexusfeed/nexusfeed/internal/scheduler"
)

// Server is the HTTP surface over the query service. It owns the listener
// lifecycle; all domain work happens in the query package.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds the server with all routes registered. Cache and pub may be
// nil; their routes then answer 503 / 404 respectively.
func New(cfg config.ServerConfig, svc *query.Service, sched *scheduler.Scheduler, snapCache *cache.Cache, pub *publisher.Publisher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{
		svc:    svc,
		sched:  sched,
		cache:  snapCache,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/fetch", h.triggerFetch)
	mux.HandleFunc("GET /api/market-data", h.marketData)
	mux.HandleFunc("GET /api/sources", h.configuredSources)
	mux.HandleFunc("GET /api/sources/available", h.availableSources)
	mux.HandleFunc("GET /api/symbols/{source}", h.symbols)
	mux.HandleFunc("GET /api/price/latest", h.latestPrice)
	mux.HandleFunc("GET /healthz", h.health)
	mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	if pub != nil {
		mux.HandleFunc("GET /ws", pub.ServeWS)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
