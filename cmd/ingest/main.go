// Command ingest starts the event ingestion worker.
//
// It consumes search and funnel events from the Kafka events topic and
// persists them in PostgreSQL for the historical analytics queries.
//
// Usage:
//
//	go run ./cmd/ingest [-config configs/development.yaml]
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

	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics/store"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/ingest"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/config"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/health"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/kafka"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/logger"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/metrics"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingest worker", "topic", cfg.Kafka.EventsTopic)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		stopMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer stopMetrics(context.Background())
	}

	pg, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	worker := ingest.NewConsumer(store.New(pg), m)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.EventsTopic, worker.Handle)

	// Minimal health surface so the worker can run under Kubernetes.
	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(pg.Ping))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		healthServer.Shutdown(shutdownCtx)
	}()

	if err := consumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
		os.Exit(1)
	}

	slog.Info("ingest worker stopped")
}
