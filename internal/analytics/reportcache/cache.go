// Package reportcache wraps the persistent analytics reader with a
// short-TTL Redis cache so repeated dashboard refreshes do not hammer
// PostgreSQL. Concurrent misses for the same key are collapsed with
// singleflight.
package reportcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/config"
	apperrors "github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/errors"
	pkgredis "github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/redis"
)

const keyPrefix = "analytics:"

// CachedReader decorates a PersistentReader with Redis caching. A cache
// or decode failure falls through to the underlying reader; only the
// reader's own errors propagate.
type CachedReader struct {
	next   analytics.PersistentReader
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps next with a Redis-backed cache.
func New(next analytics.PersistentReader, client *pkgredis.Client, cfg config.RedisConfig) *CachedReader {
	return &CachedReader{
		next:   next,
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "report-cache"),
	}
}

// TopQueries implements analytics.PersistentReader.
func (c *CachedReader) TopQueries(ctx context.Context, limit, days int) ([]analytics.QueryAggregate, error) {
	key := fmt.Sprintf("%stop:%d:%d", keyPrefix, limit, days)
	return getOrCompute(ctx, c, key, func() ([]analytics.QueryAggregate, error) {
		return c.next.TopQueries(ctx, limit, days)
	})
}

// FailedQueries implements analytics.PersistentReader.
func (c *CachedReader) FailedQueries(ctx context.Context, limit int) ([]analytics.FailedQuery, error) {
	key := fmt.Sprintf("%sfailed:%d", keyPrefix, limit)
	return getOrCompute(ctx, c, key, func() ([]analytics.FailedQuery, error) {
		return c.next.FailedQueries(ctx, limit)
	})
}

// SearchFunnel implements analytics.PersistentReader.
func (c *CachedReader) SearchFunnel(ctx context.Context, days int) (analytics.Funnel, error) {
	key := fmt.Sprintf("%sfunnel:%d", keyPrefix, days)
	return getOrCompute(ctx, c, key, func() (analytics.Funnel, error) {
		return c.next.SearchFunnel(ctx, days)
	})
}

// Invalidate drops all cached analytics sections.
func (c *CachedReader) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating report cache: %w: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	c.logger.Info("report cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns lifetime hit and miss counts.
func (c *CachedReader) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// getOrCompute is the shared read-through path: Redis lookup, then a
// singleflight-guarded compute-and-store on miss.
func getOrCompute[T any](ctx context.Context, c *CachedReader, key string, compute func() (T, error)) (T, error) {
	if cached, ok := c.lookup(ctx, key); ok {
		var result T
		if err := json.Unmarshal(cached, &result); err == nil {
			c.hits.Add(1)
			return result, nil
		}
		c.logger.Warn("dropping undecodable cache entry", "key", key)
	}
	c.misses.Add(1)

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.put(ctx, key, result)
		return result, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return val.(T), nil
}

func (c *CachedReader) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return []byte(data), true
}

func (c *CachedReader) put(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}
