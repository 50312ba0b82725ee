package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/config"
	apperrors "github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/errors"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/metrics"
)

// Client is the Elasticsearch-backed HealthProbe.
type Client struct {
	es      *elasticsearch.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

var _ HealthProbe = (*Client)(nil)

// NewClient creates an Elasticsearch probe client. It does not contact
// the cluster; connectivity is established lazily by the probes so a
// down backend never blocks service start-up.
func NewClient(cfg config.ElasticsearchConfig, m *metrics.Metrics) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	return &Client{
		es:      es,
		metrics: m,
		logger:  slog.Default().With("component", "search-probe"),
	}, nil
}

// CheckConnectivity implements HealthProbe via the Info API.
func (c *Client) CheckConnectivity(ctx context.Context) (bool, string) {
	defer c.observe("connectivity", time.Now())

	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		c.logger.Warn("backend unreachable", "error", err)
		c.countFailure()
		return false, ""
	}
	defer res.Body.Close()
	if res.IsError() {
		c.logger.Warn("info request rejected", "status", res.Status())
		c.countFailure()
		return false, ""
	}

	var info struct {
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		// Reachable but unparseable; report connected without a version.
		c.logger.Warn("failed to decode info response", "error", err)
		return true, ""
	}
	return true, info.Version.Number
}

// CheckIndexExists implements HealthProbe via a HEAD on the index.
func (c *Client) CheckIndexExists(ctx context.Context, name string) (bool, error) {
	defer c.observe("index_exists", time.Now())

	res, err := c.es.Indices.Exists([]string{name},
		c.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		c.countFailure()
		return false, fmt.Errorf("checking index %s: %w: %v", name, apperrors.ErrBackendUnreachable, err)
	}
	res.Body.Close()
	return res.StatusCode == 200, nil
}

// ClusterHealth implements HealthProbe via the cluster health API.
func (c *Client) ClusterHealth(ctx context.Context) ClusterStatus {
	defer c.observe("cluster_health", time.Now())

	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		c.logger.Warn("cluster health request failed", "error", err)
		c.countFailure()
		return ClusterUnknown
	}
	defer res.Body.Close()
	if res.IsError() {
		c.countFailure()
		return ClusterUnknown
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return ClusterUnknown
	}
	switch ClusterStatus(health.Status) {
	case ClusterGreen, ClusterYellow, ClusterRed:
		return ClusterStatus(health.Status)
	default:
		return ClusterUnknown
	}
}

// IndexStats implements HealthProbe via the index stats API.
func (c *Client) IndexStats(ctx context.Context, name string) (IndexStats, error) {
	defer c.observe("index_stats", time.Now())

	res, err := c.es.Indices.Stats(
		c.es.Indices.Stats.WithContext(ctx),
		c.es.Indices.Stats.WithIndex(name),
	)
	if err != nil {
		c.countFailure()
		return IndexStats{}, fmt.Errorf("fetching stats for %s: %w: %v", name, apperrors.ErrBackendUnreachable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		c.countFailure()
		return IndexStats{}, fmt.Errorf("stats request for %s rejected: %s", name, res.Status())
	}

	var stats struct {
		All struct {
			Primaries struct {
				Docs struct {
					Count int64 `json:"count"`
				} `json:"docs"`
				Store struct {
					SizeInBytes int64 `json:"size_in_bytes"`
				} `json:"store"`
			} `json:"primaries"`
		} `json:"_all"`
	}
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		return IndexStats{}, fmt.Errorf("decoding stats for %s: %w", name, err)
	}
	return IndexStats{
		DocumentCount: stats.All.Primaries.Docs.Count,
		SizeBytes:     stats.All.Primaries.Store.SizeInBytes,
	}, nil
}

func (c *Client) observe(probe string, start time.Time) {
	if c.metrics != nil {
		c.metrics.ProbeDuration.WithLabelValues(probe).Observe(time.Since(start).Seconds())
	}
}

func (c *Client) countFailure() {
	if c.metrics != nil {
		c.metrics.UpstreamFailures.WithLabelValues("elasticsearch").Inc()
	}
}
