package store

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/config"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/postgres"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping store test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "searchobs_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "searchobs"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := skipIfNoPostgres(t)

	ctx := context.Background()
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS search_events (
			id               BIGSERIAL PRIMARY KEY,
			query            TEXT NOT NULL,
			normalized_query TEXT NOT NULL,
			duration_ms      BIGINT NOT NULL,
			result_count     INTEGER NOT NULL,
			filters          TEXT[] NOT NULL DEFAULT '{}',
			succeeded        BOOLEAN NOT NULL,
			error_detail     TEXT,
			occurred_at      TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS funnel_events (
			id          BIGSERIAL PRIMARY KEY,
			stage       TEXT NOT NULL,
			query       TEXT,
			occurred_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("creating test tables: %v", err)
		}
	}
	t.Cleanup(func() {
		db.DB.Exec("TRUNCATE search_events, funnel_events")
	})
	if _, err := db.DB.ExecContext(ctx, "TRUNCATE search_events, funnel_events"); err != nil {
		t.Fatalf("truncating test tables: %v", err)
	}
	return New(db)
}

func TestInsertAndTopQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []analytics.SearchEvent{
		{Query: "Soap ", DurationMs: 100, ResultCount: 3, Succeeded: true, OccurredAt: now},
		{Query: "soap", DurationMs: 110, ResultCount: 2, Succeeded: true, OccurredAt: now},
		{Query: "lotion", DurationMs: 90, ResultCount: 1, Succeeded: true, OccurredAt: now},
	}
	for _, e := range seed {
		if err := s.InsertSearchEvent(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	top, err := s.TopQueries(ctx, 10, 7)
	if err != nil {
		t.Fatalf("TopQueries: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("got %d groups, want 2 (normalization collapses variants)", len(top))
	}
	if top[0].Query != "soap" || top[0].Count != 2 {
		t.Errorf("top[0] = %+v, want soap:2", top[0])
	}
}

func TestTopQueriesRespectsDays(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := analytics.SearchEvent{Query: "stale", Succeeded: true, OccurredAt: time.Now().AddDate(0, 0, -10)}
	fresh := analytics.SearchEvent{Query: "fresh", Succeeded: true, OccurredAt: time.Now()}
	for _, e := range []analytics.SearchEvent{old, fresh} {
		if err := s.InsertSearchEvent(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	top, err := s.TopQueries(ctx, 10, 7)
	if err != nil {
		t.Fatalf("TopQueries: %v", err)
	}
	if len(top) != 1 || top[0].Query != "fresh" {
		t.Errorf("top = %+v, want only the fresh query", top)
	}
}

func TestFailedQueriesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []analytics.SearchEvent{
		{Query: "older failure", Succeeded: false, ErrorDetail: "timeout", OccurredAt: now.Add(-time.Hour)},
		{Query: "newer failure", Succeeded: false, ErrorDetail: "refused", OccurredAt: now},
		{Query: "fine", Succeeded: true, OccurredAt: now},
	}
	for _, e := range seed {
		if err := s.InsertSearchEvent(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	failed, err := s.FailedQueries(ctx, 10)
	if err != nil {
		t.Fatalf("FailedQueries: %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("got %d failures, want 2", len(failed))
	}
	if failed[0].Query != "newer failure" || failed[0].ErrorDetail != "refused" {
		t.Errorf("failed[0] = %+v, want the newest failure first", failed[0])
	}
}

func TestSearchFunnelCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		if err := s.InsertSearchEvent(ctx, analytics.SearchEvent{Query: "soap", Succeeded: true, OccurredAt: now}); err != nil {
			t.Fatalf("insert search: %v", err)
		}
	}
	funnelSeed := []analytics.FunnelEvent{
		{Stage: analytics.StageClick, OccurredAt: now},
		{Stage: analytics.StageClick, OccurredAt: now},
		{Stage: analytics.StageAddToCart, OccurredAt: now},
		{Stage: analytics.StagePurchase, OccurredAt: now},
	}
	for _, e := range funnelSeed {
		if err := s.InsertFunnelEvent(ctx, e); err != nil {
			t.Fatalf("insert funnel: %v", err)
		}
	}

	funnel, err := s.SearchFunnel(ctx, 7)
	if err != nil {
		t.Fatalf("SearchFunnel: %v", err)
	}
	want := analytics.Funnel{Searches: 3, Clicks: 2, AddToCart: 1, Purchases: 1}
	if funnel != want {
		t.Errorf("funnel = %+v, want %+v", funnel, want)
	}
}

func TestInsertFunnelEventRejectsUnknownStage(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertFunnelEvent(context.Background(), analytics.FunnelEvent{Stage: "refund"}); err == nil {
		t.Error("expected an error for an unknown stage")
	}
}
