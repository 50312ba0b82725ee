package analytics

import "context"

// PersistentReader provides historical (beyond-window) analytics from the
// durable event store. Each call may fail independently; callers must
// degrade the affected report section rather than abort.
type PersistentReader interface {
	// TopQueries returns the most frequent normalized queries over the
	// last days, descending by count, truncated to limit.
	TopQueries(ctx context.Context, limit, days int) ([]QueryAggregate, error)

	// FailedQueries returns the most recent failed searches with their
	// error details, newest first, truncated to limit.
	FailedQueries(ctx context.Context, limit int) ([]FailedQuery, error)

	// SearchFunnel returns conversion counts over the last days.
	SearchFunnel(ctx context.Context, days int) (Funnel, error)
}
