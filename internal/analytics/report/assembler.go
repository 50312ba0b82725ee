// Package report assembles the administrative analytics report from the
// realtime metric window and the durable analytics store.
package report

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/metrics"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/resilience"
)

// Section names used as failure-marker keys in Report.Errors.
const (
	SectionFunnel        = "funnel"
	SectionTopQueries    = "topQueries"
	SectionFailedQueries = "failedQueries"
	SectionRealtime      = "realtime"
)

// Period describes the historical scope of a report.
type Period struct {
	Days int `json:"days"`
}

// Report is the merged admin analytics report. A section that could not
// be populated is nil/absent and carries an explicit marker in Errors;
// the remaining sections still populate.
type Report struct {
	Period            Period                     `json:"period"`
	Funnel            *analytics.Funnel          `json:"funnel,omitempty"`
	TopQueries        []analytics.QueryAggregate `json:"topQueries,omitempty"`
	FailedQueries     []analytics.FailedQuery    `json:"failedQueries,omitempty"`
	ZeroResultQueries []analytics.SearchEvent    `json:"zeroResultQueries,omitempty"`
	Realtime          *analytics.RealtimeStats   `json:"realtime,omitempty"`
	Errors            map[string]string          `json:"errors,omitempty"`
	GeneratedAt       time.Time                  `json:"generatedAt"`
}

// Config controls report assembly scopes and the fan-out timeout.
type Config struct {
	RecentWindow    time.Duration
	SlowThresholdMs int64
	Timeout         time.Duration
}

// Assembler fans out to the persistent reader and the realtime window,
// joins all sections, and merges them into one Report. Sibling failures
// never cancel each other; each failed section degrades independently.
type Assembler struct {
	reader    analytics.PersistentReader
	collector *analytics.Collector
	breaker   *resilience.CircuitBreaker
	cfg       Config
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates an Assembler. metrics may be nil in tests.
func New(reader analytics.PersistentReader, collector *analytics.Collector, cfg Config, m *metrics.Metrics) *Assembler {
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 60 * time.Minute
	}
	if cfg.SlowThresholdMs <= 0 {
		cfg.SlowThresholdMs = analytics.DefaultSlowThresholdMs
	}
	return &Assembler{
		reader:    reader,
		collector: collector,
		breaker:   resilience.NewCircuitBreaker("analytics-store", resilience.CircuitBreakerConfig{}),
		cfg:       cfg,
		metrics:   m,
		logger:    slog.Default().With("component", "report-assembler"),
	}
}

// Assemble builds the report for the given historical scope. The whole
// fan-out is bounded by the configured timeout: sections that do not
// complete in time are replaced by failure markers while completed ones
// are returned as-is. Assemble itself never fails.
func (a *Assembler) Assemble(ctx context.Context, days, limit int) Report {
	start := time.Now()
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	rpt := Report{
		Period:      Period{Days: days},
		GeneratedAt: start.UTC(),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	fail := func(section string, err error) {
		a.logger.Warn("report section failed", "section", section, "error", err)
		if a.metrics != nil {
			a.metrics.ReportSectionErrors.WithLabelValues(section).Inc()
			a.metrics.UpstreamFailures.WithLabelValues("analytics-store").Inc()
		}
		mu.Lock()
		if rpt.Errors == nil {
			rpt.Errors = make(map[string]string)
		}
		rpt.Errors[section] = "section unavailable: " + err.Error()
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		var funnel analytics.Funnel
		err := a.breaker.Execute(func() error {
			var err error
			funnel, err = a.reader.SearchFunnel(ctx, days)
			return err
		})
		if err != nil {
			fail(SectionFunnel, err)
			return
		}
		mu.Lock()
		rpt.Funnel = &funnel
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		var top []analytics.QueryAggregate
		err := a.breaker.Execute(func() error {
			var err error
			top, err = a.reader.TopQueries(ctx, limit, days)
			return err
		})
		if err != nil {
			fail(SectionTopQueries, err)
			return
		}
		mu.Lock()
		rpt.TopQueries = top
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		var failed []analytics.FailedQuery
		err := a.breaker.Execute(func() error {
			var err error
			failed, err = a.reader.FailedQueries(ctx, limit)
			return err
		})
		if err != nil {
			fail(SectionFailedQueries, err)
			return
		}
		mu.Lock()
		rpt.FailedQueries = failed
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		// Pure computation over a snapshot; bounded only so a stuck
		// collector lock cannot wedge the report.
		err := resilience.WithTimeout(ctx, a.cfg.Timeout, "realtime-summary", func(context.Context) error {
			scope := analytics.WithinWindow(a.collector.Snapshot(), a.cfg.RecentWindow, time.Now())
			stats := analytics.Summarize(scope, a.cfg.SlowThresholdMs)
			zero := analytics.ZeroResultQueries(scope)
			mu.Lock()
			rpt.Realtime = &stats
			rpt.ZeroResultQueries = zero
			mu.Unlock()
			return nil
		})
		if err != nil {
			fail(SectionRealtime, err)
		}
	}()
	wg.Wait()

	if a.metrics != nil {
		a.metrics.ReportAssemblyTime.Observe(time.Since(start).Seconds())
	}
	return rpt
}

// Realtime computes just the realtime bundle over the configured window.
func (a *Assembler) Realtime(now time.Time) analytics.RealtimeStats {
	scope := analytics.WithinWindow(a.collector.Snapshot(), a.cfg.RecentWindow, now)
	return analytics.Summarize(scope, a.cfg.SlowThresholdMs)
}
