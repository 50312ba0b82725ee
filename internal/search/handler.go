package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Handler serves the search-backend health endpoint.
type Handler struct {
	probe        HealthProbe
	indexName    string
	probeTimeout time.Duration
	logger       *slog.Logger
}

// NewHandler creates a health Handler for the given probe and index.
func NewHandler(probe HealthProbe, indexName string, probeTimeout time.Duration) *Handler {
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Handler{
		probe:        probe,
		indexName:    indexName,
		probeTimeout: probeTimeout,
		logger:       slog.Default().With("component", "search-health-handler"),
	}
}

// Health assembles a fresh backend health report. 200 when healthy, 503
// when unhealthy, 500 on an unexpected internal error; the response is
// never cacheable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("health report panicked", "panic", rec)
			writeJSON(w, h.logger, http.StatusInternalServerError, map[string]string{
				"status": StatusError,
				"error":  "internal error",
			})
		}
	}()

	ctx, cancel := context.WithTimeout(r.Context(), h.probeTimeout)
	defer cancel()

	report := BuildHealthReport(ctx, h.probe, h.indexName)

	status := http.StatusOK
	if report.Status != StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, status, report)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}
