// Package ingest drains the event topic into the durable analytics
// store. It runs as its own binary so a slow database never backs up
// the recording endpoints.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics/store"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/kafka"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/metrics"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/resilience"
)

// Writer persists decoded events. Satisfied by *store.Store.
type Writer interface {
	InsertSearchEvent(ctx context.Context, e analytics.SearchEvent) error
	InsertFunnelEvent(ctx context.Context, e analytics.FunnelEvent) error
}

var _ Writer = (*store.Store)(nil)

// Consumer decodes event messages by kind and writes them to the store
// with bounded retries. Messages that cannot be decoded are logged and
// skipped; write failures after retries surface so the message is not
// committed and will be redelivered.
type Consumer struct {
	writer  Writer
	retry   resilience.RetryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewConsumer creates an ingest Consumer. m may be nil in tests.
func NewConsumer(writer Writer, m *metrics.Metrics) *Consumer {
	return &Consumer{
		writer:  writer,
		retry:   resilience.RetryConfig{MaxAttempts: 3},
		metrics: m,
		logger:  slog.Default().With("component", "ingest"),
	}
}

// Handle is the kafka.MessageHandler for the events topic. The message
// key selects the payload kind.
func (c *Consumer) Handle(ctx context.Context, key, value []byte) error {
	switch string(key) {
	case analytics.KindSearch:
		event, err := kafka.DecodeJSON[analytics.SearchEvent](value)
		if err != nil {
			c.skip("search", err)
			return nil
		}
		return c.persist(ctx, "insert-search-event", func() error {
			return c.writer.InsertSearchEvent(ctx, event)
		})
	case analytics.KindFunnel:
		event, err := kafka.DecodeJSON[analytics.FunnelEvent](value)
		if err != nil {
			c.skip("funnel", err)
			return nil
		}
		if !event.Stage.Valid() {
			c.skip("funnel", fmt.Errorf("unknown stage %q", event.Stage))
			return nil
		}
		return c.persist(ctx, "insert-funnel-event", func() error {
			return c.writer.InsertFunnelEvent(ctx, event)
		})
	default:
		c.skip(string(key), fmt.Errorf("unknown event kind"))
		return nil
	}
}

func (c *Consumer) persist(ctx context.Context, name string, fn func() error) error {
	err := resilience.Retry(ctx, name, c.retry, fn)
	if c.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.IngestWritesTotal.WithLabelValues(status).Inc()
	}
	return err
}

// Decode failures are terminal for the message; retrying cannot fix a
// malformed payload.
func (c *Consumer) skip(kind string, err error) {
	c.logger.Warn("skipping undecodable message", "kind", kind, "error", err)
	if c.metrics != nil {
		c.metrics.IngestWritesTotal.WithLabelValues("skipped").Inc()
	}
}
