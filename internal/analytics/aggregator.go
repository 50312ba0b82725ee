package analytics

import (
	"math"
	"sort"
	"time"
)

// DefaultSlowThresholdMs is the slow-query cutoff when none is configured.
const DefaultSlowThresholdMs int64 = 1000

// RealtimeStats is the canonical realtime report bundle computed from a
// window snapshot.
type RealtimeStats struct {
	TotalSearches      int              `json:"totalSearches"`
	AverageDuration    float64          `json:"averageDuration"`
	SuccessRate        int              `json:"successRate"`
	AverageResultCount float64          `json:"averageResultCount"`
	PopularQueries     []QueryAggregate `json:"popularQueries"`
	SlowQueries        []SearchEvent    `json:"slowQueries"`
	FiltersUsage       map[string]int64 `json:"filtersUsage"`
}

// All aggregation functions below are pure: they operate on an
// already-taken snapshot, hold no state, and yield zero values (never an
// error) on an empty scope.

// WithinWindow returns the events whose OccurredAt falls inside the last
// window duration, measured back from now. Order is preserved.
func WithinWindow(events []SearchEvent, window time.Duration, now time.Time) []SearchEvent {
	cutoff := now.Add(-window)
	out := make([]SearchEvent, 0, len(events))
	for _, e := range events {
		if !e.OccurredAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// AverageDuration returns the mean duration in milliseconds, or 0 for an
// empty scope.
func AverageDuration(events []SearchEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var sum int64
	for _, e := range events {
		sum += e.DurationMs
	}
	return float64(sum) / float64(len(events))
}

// SuccessRate returns the rounded percentage of succeeded events in
// [0,100], or 0 for an empty scope.
func SuccessRate(events []SearchEvent) int {
	if len(events) == 0 {
		return 0
	}
	var succeeded int
	for _, e := range events {
		if e.Succeeded {
			succeeded++
		}
	}
	return int(math.Round(100 * float64(succeeded) / float64(len(events))))
}

// AverageResultCount returns the mean result count over successful events
// only, or 0 when there are none.
func AverageResultCount(events []SearchEvent) float64 {
	var sum, n int
	for _, e := range events {
		if e.Succeeded {
			sum += e.ResultCount
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// SlowQueries returns the events strictly slower than thresholdMs, in
// original order. Equal-to-threshold is not slow.
func SlowQueries(events []SearchEvent, thresholdMs int64) []SearchEvent {
	if thresholdMs <= 0 {
		thresholdMs = DefaultSlowThresholdMs
	}
	out := make([]SearchEvent, 0)
	for _, e := range events {
		if e.DurationMs > thresholdMs {
			out = append(out, e)
		}
	}
	return out
}

// ZeroResultQueries returns the successful events that produced no
// results, in original order. Failed searches are not zero-result
// queries: their count is meaningless.
func ZeroResultQueries(events []SearchEvent) []SearchEvent {
	out := make([]SearchEvent, 0)
	for _, e := range events {
		if e.Succeeded && e.ResultCount == 0 {
			out = append(out, e)
		}
	}
	return out
}

// PopularQueries groups events by normalized non-empty query and ranks by
// descending count, ties broken by first occurrence in the input. The
// result is truncated to limit.
func PopularQueries(events []SearchEvent, limit int) []QueryAggregate {
	counts := make(map[string]int64)
	order := make([]string, 0)
	for _, e := range events {
		q := NormalizeQuery(e.Query)
		if q == "" {
			continue
		}
		if _, seen := counts[q]; !seen {
			order = append(order, q)
		}
		counts[q]++
	}

	result := make([]QueryAggregate, 0, len(order))
	for _, q := range order {
		result = append(result, QueryAggregate{Query: q, Count: counts[q]})
	}
	// Stable sort keeps first-occurrence order among equal counts.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// FilterUsage counts, per filter name, the number of events in which the
// filter appears. An event contributes at most once per filter even if
// the name is repeated.
func FilterUsage(events []SearchEvent) map[string]int64 {
	usage := make(map[string]int64)
	for _, e := range events {
		seen := make(map[string]struct{}, len(e.Filters))
		for _, f := range e.Filters {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			usage[f]++
		}
	}
	return usage
}

// Summarize computes the realtime report bundle over the given events:
// totals, averages, success rate, top 10 popular queries, top 5 slow
// queries, and filter usage.
func Summarize(events []SearchEvent, slowThresholdMs int64) RealtimeStats {
	slow := SlowQueries(events, slowThresholdMs)
	if len(slow) > 5 {
		slow = slow[:5]
	}
	return RealtimeStats{
		TotalSearches:      len(events),
		AverageDuration:    AverageDuration(events),
		SuccessRate:        SuccessRate(events),
		AverageResultCount: AverageResultCount(events),
		PopularQueries:     PopularQueries(events, 10),
		SlowQueries:        slow,
		FiltersUsage:       FilterUsage(events),
	}
}
