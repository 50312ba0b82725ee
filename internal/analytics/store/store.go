// Package store persists search and funnel events in PostgreSQL and
// serves the historical analytics queries the admin report needs.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/internal/analytics"
	apperrors "github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/errors"
	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/postgres"
)

// Store is the durable analytics log backed by PostgreSQL.
//
// It requires the following tables:
//
//	CREATE TABLE search_events (
//	    id               BIGSERIAL PRIMARY KEY,
//	    query            TEXT NOT NULL,
//	    normalized_query TEXT NOT NULL,
//	    duration_ms      BIGINT NOT NULL,
//	    result_count     INTEGER NOT NULL,
//	    filters          TEXT[] NOT NULL DEFAULT '{}',
//	    succeeded        BOOLEAN NOT NULL,
//	    error_detail     TEXT,
//	    occurred_at      TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_search_events_occurred ON search_events (occurred_at);
//	CREATE INDEX idx_search_events_failed ON search_events (occurred_at) WHERE NOT succeeded;
//
//	CREATE TABLE funnel_events (
//	    id          BIGSERIAL PRIMARY KEY,
//	    stage       TEXT NOT NULL,
//	    query       TEXT,
//	    occurred_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_funnel_events_stage ON funnel_events (stage, occurred_at);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// New creates a Store on top of an open PostgreSQL client.
func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

// InsertSearchEvent appends one search event to the durable log.
func (s *Store) InsertSearchEvent(ctx context.Context, e analytics.SearchEvent) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO search_events
		   (query, normalized_query, duration_ms, result_count, filters, succeeded, error_detail, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`,
		e.Query, analytics.NormalizeQuery(e.Query), e.DurationMs, e.ResultCount,
		pq.Array(e.Filters), e.Succeeded, e.ErrorDetail, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("inserting search event: %w", err)
	}
	return nil
}

// InsertFunnelEvent appends one funnel-stage event to the durable log.
func (s *Store) InsertFunnelEvent(ctx context.Context, e analytics.FunnelEvent) error {
	if !e.Stage.Valid() {
		return fmt.Errorf("inserting funnel event: unknown stage %q", e.Stage)
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO funnel_events (stage, query, occurred_at) VALUES ($1, NULLIF($2, ''), $3)`,
		string(e.Stage), e.Query, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("inserting funnel event: %w", err)
	}
	return nil
}

// TopQueries returns the most frequent normalized queries of the last
// days, descending by count with ties broken by earliest occurrence.
func (s *Store) TopQueries(ctx context.Context, limit, days int) ([]analytics.QueryAggregate, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT normalized_query, COUNT(*) AS cnt
		   FROM search_events
		  WHERE occurred_at >= NOW() - ($2 * INTERVAL '1 day')
		    AND normalized_query <> ''
		  GROUP BY normalized_query
		  ORDER BY cnt DESC, MIN(id) ASC
		  LIMIT $1`,
		limit, days,
	)
	if err != nil {
		return nil, fmt.Errorf("querying top queries: %w: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	result := make([]analytics.QueryAggregate, 0, limit)
	for rows.Next() {
		var qa analytics.QueryAggregate
		if err := rows.Scan(&qa.Query, &qa.Count); err != nil {
			return nil, fmt.Errorf("scanning top query row: %w", err)
		}
		result = append(result, qa)
	}
	return result, rows.Err()
}

// FailedQueries returns the most recent failed searches, newest first.
func (s *Store) FailedQueries(ctx context.Context, limit int) ([]analytics.FailedQuery, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT query, COALESCE(error_detail, ''), occurred_at
		   FROM search_events
		  WHERE NOT succeeded
		  ORDER BY occurred_at DESC
		  LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying failed queries: %w: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	result := make([]analytics.FailedQuery, 0, limit)
	for rows.Next() {
		var fq analytics.FailedQuery
		if err := rows.Scan(&fq.Query, &fq.ErrorDetail, &fq.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning failed query row: %w", err)
		}
		result = append(result, fq)
	}
	return result, rows.Err()
}

// SearchFunnel returns conversion counts over the last days. Searches are
// counted from the search-event log; the remaining stages come from
// funnel events.
func (s *Store) SearchFunnel(ctx context.Context, days int) (analytics.Funnel, error) {
	var funnel analytics.Funnel

	err := s.db.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_events
		  WHERE occurred_at >= NOW() - ($1 * INTERVAL '1 day')`,
		days,
	).Scan(&funnel.Searches)
	if err != nil {
		return analytics.Funnel{}, fmt.Errorf("counting searches: %w: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT stage, COUNT(*)
		   FROM funnel_events
		  WHERE occurred_at >= NOW() - ($1 * INTERVAL '1 day')
		  GROUP BY stage`,
		days,
	)
	if err != nil {
		return analytics.Funnel{}, fmt.Errorf("counting funnel stages: %w: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var stage string
		var count int64
		if err := rows.Scan(&stage, &count); err != nil {
			return analytics.Funnel{}, fmt.Errorf("scanning funnel row: %w", err)
		}
		switch analytics.FunnelStage(stage) {
		case analytics.StageClick:
			funnel.Clicks = count
		case analytics.StageAddToCart:
			funnel.AddToCart = count
		case analytics.StagePurchase:
			funnel.Purchases = count
		case analytics.StageSearch:
			// Search stage rows are legal but redundant; the search-event
			// log is authoritative for the searches count.
		default:
			s.logger.Warn("skipping unknown funnel stage", "stage", stage)
		}
	}
	return funnel, rows.Err()
}
