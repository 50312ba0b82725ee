// Command observer starts the search observability service.
//
// It records search and funnel events (POST /api/v1/events/...), keeps a
// bounded in-memory window for realtime stats, publishes every event to
// Kafka for durable ingestion, and serves the admin analytics report and
// the search-backend health endpoint.
//
// Usage:
//
//	go run ./cmd/observer [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics/report"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics/reportcache"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics/store"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/search"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/config"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/health"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/kafka"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/logger"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/metrics"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/middleware"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/postgres"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/redis"
)

// main wires the observability service together: metric window, Kafka
// producer, Postgres-backed report reader behind a Redis cache, the
// Elasticsearch health probe, and the HTTP API. Graceful shutdown is
// triggered by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting observer service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		stopMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer stopMetrics(context.Background())
	}

	// Realtime metric window with gauge wiring.
	collector := analytics.NewCollector(cfg.Analytics.WindowCapacity)
	collector.OnMutate(func(size int, evicted bool) {
		m.WindowSize.Set(float64(size))
		if evicted {
			m.EventsEvictedTotal.Inc()
		}
	})

	// Durable pipeline.
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.EventsTopic)
	defer producer.Close()

	// Historical reader: Postgres behind a Redis read-through cache.
	pg, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()
	analyticsStore := store.New(pg)

	var reader analytics.PersistentReader = analyticsStore
	var invalidator analytics.CacheInvalidator
	rdb, err := redis.NewClient(cfg.Redis)
	if err != nil {
		// The cache is an optimization; historical reads fall back to
		// Postgres directly.
		slog.Warn("redis unavailable, running without report cache", "error", err)
	} else {
		defer rdb.Close()
		cached := reportcache.New(analyticsStore, rdb, cfg.Redis)
		reader = cached
		invalidator = cached
	}

	assembler := report.New(reader, collector, report.Config{
		RecentWindow:    cfg.Analytics.RecentWindow,
		SlowThresholdMs: cfg.Analytics.SlowThresholdMs,
		Timeout:         cfg.Analytics.ReportTimeout,
	}, m)
	reportHandler := report.NewHandler(assembler, report.HandlerConfig{
		DefaultDays:  cfg.Analytics.DefaultDays,
		DefaultLimit: cfg.Analytics.DefaultLimit,
	})
	analyticsHandler := analytics.NewHandler(collector, assembler, producer, invalidator, m)

	// Search backend probe and health endpoint.
	probe, err := search.NewClient(cfg.Elasticsearch, m)
	if err != nil {
		slog.Error("failed to create search probe", "error", err)
		os.Exit(1)
	}
	searchHandler := search.NewHandler(probe, cfg.Elasticsearch.IndexName, cfg.Elasticsearch.ProbeTimeout)

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(pg.Ping))
	if rdb != nil {
		checker.Register("redis", health.PingCheck(rdb.Ping))
	}
	checker.Register("elasticsearch", func(ctx context.Context) health.ComponentHealth {
		if connected, _ := probe.CheckConnectivity(ctx); !connected {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "search backend unreachable"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/events/search", analyticsHandler.RecordSearch)
	mux.HandleFunc("POST /api/v1/events/funnel", analyticsHandler.RecordFunnel)
	mux.HandleFunc("GET /api/v1/analytics/realtime", analyticsHandler.Realtime)
	mux.HandleFunc("GET /api/v1/analytics/report", reportHandler.Report)
	mux.HandleFunc("POST /api/v1/analytics/reset", analyticsHandler.Reset)
	mux.HandleFunc("GET /health/search", searchHandler.Health)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("observer service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("observer service stopped")
}
