package reportcache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/config"
	pkgredis "github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/redis"
)

type countingReader struct {
	topCalls    int
	funnelCalls int
	err         error
}

func (r *countingReader) TopQueries(ctx context.Context, limit, days int) ([]analytics.QueryAggregate, error) {
	r.topCalls++
	if r.err != nil {
		return nil, r.err
	}
	return []analytics.QueryAggregate{{Query: "soap", Count: 9}}, nil
}

func (r *countingReader) FailedQueries(ctx context.Context, limit int) ([]analytics.FailedQuery, error) {
	return nil, nil
}

func (r *countingReader) SearchFunnel(ctx context.Context, days int) (analytics.Funnel, error) {
	r.funnelCalls++
	if r.err != nil {
		return analytics.Funnel{}, r.err
	}
	return analytics.Funnel{Searches: 10, Clicks: 4}, nil
}

// skipIfNoRedis skips the test when Redis is unavailable.
func skipIfNoRedis(t *testing.T) *pkgredis.Client {
	t.Helper()
	client, err := pkgredis.NewClient(testRedisConfig())
	if err != nil {
		t.Skipf("skipping cache test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func testRedisConfig() config.RedisConfig {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return config.RedisConfig{
		Addr:     addr,
		DB:       15, // keep test keys away from development data
		PoolSize: 5,
		CacheTTL: time.Minute,
	}
}

func TestCachedReaderReadThrough(t *testing.T) {
	client := skipIfNoRedis(t)
	reader := &countingReader{}
	cached := New(reader, client, testRedisConfig())
	ctx := context.Background()

	if err := cached.Invalidate(ctx); err != nil {
		t.Fatalf("priming invalidate: %v", err)
	}

	first, err := cached.TopQueries(ctx, 10, 7)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := cached.TopQueries(ctx, 10, 7)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}

	if reader.topCalls != 1 {
		t.Errorf("reader hit %d times, want 1 (second read served from cache)", reader.topCalls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].Query != "soap" {
		t.Errorf("reads disagree: %+v vs %+v", first, second)
	}

	hits, misses := cached.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits / %d misses, want 1/1", hits, misses)
	}
}

func TestCachedReaderKeysAreScopeSpecific(t *testing.T) {
	client := skipIfNoRedis(t)
	reader := &countingReader{}
	cached := New(reader, client, testRedisConfig())
	ctx := context.Background()

	if err := cached.Invalidate(ctx); err != nil {
		t.Fatalf("priming invalidate: %v", err)
	}

	cached.TopQueries(ctx, 10, 7)
	cached.TopQueries(ctx, 10, 30)
	if reader.topCalls != 2 {
		t.Errorf("reader hit %d times, want 2 (different scopes must not share keys)", reader.topCalls)
	}
}

func TestCachedReaderInvalidate(t *testing.T) {
	client := skipIfNoRedis(t)
	reader := &countingReader{}
	cached := New(reader, client, testRedisConfig())
	ctx := context.Background()

	cached.SearchFunnel(ctx, 7)
	if err := cached.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	cached.SearchFunnel(ctx, 7)

	if reader.funnelCalls != 2 {
		t.Errorf("reader hit %d times, want 2 after invalidation", reader.funnelCalls)
	}
}

func TestCachedReaderPropagatesReaderErrors(t *testing.T) {
	client := skipIfNoRedis(t)
	reader := &countingReader{err: errors.New("store down")}
	cached := New(reader, client, testRedisConfig())
	ctx := context.Background()

	if err := cached.Invalidate(ctx); err != nil {
		t.Fatalf("priming invalidate: %v", err)
	}
	if _, err := cached.TopQueries(ctx, 10, 7); err == nil {
		t.Error("reader error was swallowed")
	}
}
