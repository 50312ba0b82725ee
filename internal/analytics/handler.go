package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/errors"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/kafka"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/metrics"
)

// EventPublisher forwards recorded events to the durable pipeline.
// Satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// RealtimeSource computes the realtime stats bundle over the recent
// window. Satisfied by *report.Assembler.
type RealtimeSource interface {
	Realtime(now time.Time) RealtimeStats
}

// CacheInvalidator drops cached historical report sections after an
// administrative reset. May be nil when no cache is wired.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler implements the analytics HTTP endpoints: event recording,
// realtime stats, and the administrative reset. The admin report has
// its own handler in the report package.
type Handler struct {
	collector   *Collector
	realtime    RealtimeSource
	publisher   EventPublisher
	invalidator CacheInvalidator
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewHandler creates the analytics Handler. publisher, invalidator, and
// m may be nil (events then stay window-only, reset skips the cache).
func NewHandler(collector *Collector, realtime RealtimeSource, publisher EventPublisher, invalidator CacheInvalidator, m *metrics.Metrics) *Handler {
	return &Handler{
		collector:   collector,
		realtime:    realtime,
		publisher:   publisher,
		invalidator: invalidator,
		metrics:     m,
		logger:      slog.Default().With("component", "analytics-handler"),
	}
}

// RecordSearch records one completed search operation. The caller is
// never blocked on downstream I/O: the window write is in-memory and
// the durable publish happens in the background.
func (h *Handler) RecordSearch(w http.ResponseWriter, r *http.Request) {
	var event SearchEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	h.collector.Record(event)
	if h.metrics != nil {
		outcome := "ok"
		if !event.Succeeded {
			outcome = "failed"
		}
		h.metrics.EventsRecordedTotal.WithLabelValues(outcome).Inc()
	}
	h.publishAsync(KindSearch, event)

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// RecordFunnel records one conversion-funnel step on the durable
// pipeline. Funnel steps do not enter the realtime window.
func (h *Handler) RecordFunnel(w http.ResponseWriter, r *http.Request) {
	var event FunnelEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !event.Stage.Valid() {
		h.writeError(w, http.StatusBadRequest, "unknown funnel stage")
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	h.publishAsync(KindFunnel, event)
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// Realtime serves the realtime stats bundle over the configured recent
// window.
func (h *Handler) Realtime(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.realtime.Realtime(time.Now()))
}

// Reset clears the realtime window and drops cached report sections.
// Administrative and testing use only.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.collector.Reset()
	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(r.Context()); err != nil {
			// The window is already cleared; report the stale cache.
			h.logger.Error("cache invalidation failed during reset", "error", err)
			h.writeError(w, apperrors.HTTPStatusCode(err), "window reset but cache invalidation failed")
			return
		}
	}
	h.logger.Info("metric window reset")
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) publishAsync(kind string, value any) {
	if h.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.publisher.Publish(ctx, kafka.Event{Key: kind, Value: value}); err != nil {
			h.logger.Error("failed to publish event", "kind", kind, "error", err)
			if h.metrics != nil {
				h.metrics.EventsPublishErrors.Inc()
			}
		}
	}()
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
