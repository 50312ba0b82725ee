package report

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// HandlerConfig carries the report endpoint's default scopes.
type HandlerConfig struct {
	DefaultDays  int
	DefaultLimit int
}

// Handler serves the admin analytics report endpoint.
type Handler struct {
	assembler *Assembler
	cfg       HandlerConfig
	logger    *slog.Logger
}

// NewHandler creates a report Handler around the given assembler.
func NewHandler(assembler *Assembler, cfg HandlerConfig) *Handler {
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = 30
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	return &Handler{
		assembler: assembler,
		cfg:       cfg,
		logger:    slog.Default().With("component", "report-handler"),
	}
}

// Report serves the assembled admin report. Individual section failures
// surface as markers inside the report body; only a failure to build
// any response at all becomes a 500 with a generic message.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	days, ok := h.positiveQueryParam(w, r, "days", h.cfg.DefaultDays)
	if !ok {
		return
	}
	limit, ok := h.positiveQueryParam(w, r, "limit", h.cfg.DefaultLimit)
	if !ok {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("report assembly panicked", "panic", rec)
			h.writeError(w, http.StatusInternalServerError, "failed to build report")
		}
	}()

	h.writeJSON(w, http.StatusOK, h.assembler.Assemble(r.Context(), days, limit))
}

func (h *Handler) positiveQueryParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		h.writeError(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return n, true
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
