package analytics

import (
	"strings"
	"time"
)

// SearchEvent is one completed search operation against the catalog
// backend, with timing, outcome, and filter metadata. Events are
// immutable once recorded.
type SearchEvent struct {
	Query       string    `json:"query"`
	DurationMs  int64     `json:"durationMs"`
	ResultCount int       `json:"resultCount"`
	Filters     []string  `json:"filtersApplied,omitempty"`
	Succeeded   bool      `json:"succeeded"`
	ErrorDetail string    `json:"errorDetail,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// QueryAggregate is a query grouped with its occurrence count. Derived,
// never stored.
type QueryAggregate struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// FailedQuery is a historical failed search with its error detail.
type FailedQuery struct {
	Query       string    `json:"query"`
	ErrorDetail string    `json:"errorDetail"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Funnel holds conversion counts for the searches -> clicks -> add-to-cart
// -> purchases sequence. The monotonic ordering is expected but reported
// as stored, never enforced.
type Funnel struct {
	Searches  int64 `json:"searches"`
	Clicks    int64 `json:"clicks"`
	AddToCart int64 `json:"addToCart"`
	Purchases int64 `json:"purchases"`
}

// FunnelStage identifies a step of the conversion funnel.
type FunnelStage string

const (
	StageSearch    FunnelStage = "search"
	StageClick     FunnelStage = "click"
	StageAddToCart FunnelStage = "add_to_cart"
	StagePurchase  FunnelStage = "purchase"
)

// Valid reports whether s is one of the known funnel stages.
func (s FunnelStage) Valid() bool {
	switch s {
	case StageSearch, StageClick, StageAddToCart, StagePurchase:
		return true
	}
	return false
}

// FunnelEvent is one conversion-funnel step, recorded alongside search
// events on the durable pipeline.
type FunnelEvent struct {
	Stage      FunnelStage `json:"stage"`
	Query      string      `json:"query,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// Event kinds used as Kafka message keys so the ingest worker can tell
// search completions and funnel steps apart.
const (
	KindSearch = "search"
	KindFunnel = "funnel"
)

// NormalizeQuery returns the grouping key for a query: trimmed and
// lowercased. Interior whitespace is preserved.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
