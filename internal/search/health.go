package search

import (
	"context"
	"sync"
	"time"
)

// Health statuses exposed by the search-backend health endpoint.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusError     = "error"
)

// BackendHealth is the elasticsearch section of the health report.
type BackendHealth struct {
	Connected     bool          `json:"connected"`
	ClusterHealth ClusterStatus `json:"clusterHealth"`
	Version       string        `json:"version,omitempty"`
}

// IndexHealth is the index section of the health report.
type IndexHealth struct {
	Name          string `json:"name"`
	Exists        bool   `json:"exists"`
	DocumentCount int64  `json:"documentCount"`
	SizeInBytes   int64  `json:"sizeInBytes"`
}

// HealthReport is the full search-backend health report, assembled fresh
// per request and never cached.
type HealthReport struct {
	Status        string        `json:"status"`
	ResponseTime  int64         `json:"responseTime"`
	Elasticsearch BackendHealth `json:"elasticsearch"`
	Index         IndexHealth   `json:"index"`
	Timestamp     time.Time     `json:"timestamp"`
}

// BuildHealthReport probes the backend in two stages: connectivity and
// index existence run concurrently; cluster health and index stats are
// attempted only when both prior checks succeed. A stats failure
// degrades those fields to zero without failing the report.
//
// The report is healthy iff the backend is connected, the index exists,
// and the cluster is not red. A disconnected backend always yields an
// unhealthy report with an unknown cluster status.
func BuildHealthReport(ctx context.Context, probe HealthProbe, indexName string) HealthReport {
	start := time.Now()
	report := HealthReport{
		Status: StatusUnhealthy,
		Elasticsearch: BackendHealth{
			ClusterHealth: ClusterUnknown,
		},
		Index: IndexHealth{
			Name: indexName,
		},
	}

	var wg sync.WaitGroup
	var existsErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		report.Elasticsearch.Connected, report.Elasticsearch.Version = probe.CheckConnectivity(ctx)
	}()
	go func() {
		defer wg.Done()
		report.Index.Exists, existsErr = probe.CheckIndexExists(ctx, indexName)
	}()
	wg.Wait()
	if existsErr != nil {
		report.Index.Exists = false
	}

	if report.Elasticsearch.Connected && report.Index.Exists {
		var stats IndexStats
		var statsErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			report.Elasticsearch.ClusterHealth = probe.ClusterHealth(ctx)
		}()
		go func() {
			defer wg.Done()
			stats, statsErr = probe.IndexStats(ctx, indexName)
		}()
		wg.Wait()
		if statsErr == nil {
			report.Index.DocumentCount = stats.DocumentCount
			report.Index.SizeInBytes = stats.SizeBytes
		}
	}

	if report.Elasticsearch.Connected &&
		report.Index.Exists &&
		report.Elasticsearch.ClusterHealth != ClusterRed {
		report.Status = StatusHealthy
	}

	report.ResponseTime = time.Since(start).Milliseconds()
	report.Timestamp = time.Now().UTC()
	return report
}
