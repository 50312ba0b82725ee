package analytics

import (
	"testing"
	"time"
)

func TestAggregatesOnEmptyScope(t *testing.T) {
	var none []SearchEvent

	if got := AverageDuration(none); got != 0 {
		t.Errorf("AverageDuration = %v, want 0", got)
	}
	if got := SuccessRate(none); got != 0 {
		t.Errorf("SuccessRate = %d, want 0", got)
	}
	if got := AverageResultCount(none); got != 0 {
		t.Errorf("AverageResultCount = %v, want 0", got)
	}
	if got := SlowQueries(none, 1000); len(got) != 0 {
		t.Errorf("SlowQueries = %v, want empty", got)
	}
	if got := PopularQueries(none, 10); len(got) != 0 {
		t.Errorf("PopularQueries = %v, want empty", got)
	}
	if got := FilterUsage(none); len(got) != 0 {
		t.Errorf("FilterUsage = %v, want empty", got)
	}
}

func TestSummarizeMixedOutcomes(t *testing.T) {
	events := []SearchEvent{
		{Query: "soap", DurationMs: 120, ResultCount: 18, Succeeded: true},
		{Query: "soap", DurationMs: 1500, ResultCount: 0, Succeeded: true},
		{Query: "lotion", DurationMs: 200, Succeeded: false, ErrorDetail: "timeout"},
	}

	stats := Summarize(events, 1000)

	if stats.TotalSearches != 3 {
		t.Errorf("TotalSearches = %d, want 3", stats.TotalSearches)
	}
	// 2 of 3 succeeded, rounded.
	if stats.SuccessRate != 67 {
		t.Errorf("SuccessRate = %d, want 67", stats.SuccessRate)
	}
	if len(stats.SlowQueries) != 1 || stats.SlowQueries[0].DurationMs != 1500 {
		t.Errorf("SlowQueries = %+v, want the 1500ms event only", stats.SlowQueries)
	}
	// Successful events only: (18+0)/2.
	if stats.AverageResultCount != 9 {
		t.Errorf("AverageResultCount = %v, want 9", stats.AverageResultCount)
	}
	if len(stats.PopularQueries) != 2 {
		t.Fatalf("PopularQueries = %+v, want 2 entries", stats.PopularQueries)
	}
	if stats.PopularQueries[0].Query != "soap" || stats.PopularQueries[0].Count != 2 {
		t.Errorf("top query = %+v, want soap:2", stats.PopularQueries[0])
	}
	if stats.PopularQueries[1].Query != "lotion" || stats.PopularQueries[1].Count != 1 {
		t.Errorf("second query = %+v, want lotion:1", stats.PopularQueries[1])
	}
	zero := ZeroResultQueries(events)
	if len(zero) != 1 || zero[0].DurationMs != 1500 {
		t.Errorf("ZeroResultQueries = %+v, want the successful zero-result event", zero)
	}
}

func TestSlowQueriesStrictThreshold(t *testing.T) {
	events := []SearchEvent{
		{Query: "a", DurationMs: 500},
		{Query: "b", DurationMs: 1500},
		{Query: "c", DurationMs: 1000},
		{Query: "d", DurationMs: 2000},
	}

	slow := SlowQueries(events, 1000)
	if len(slow) != 2 {
		t.Fatalf("got %d slow queries, want 2", len(slow))
	}
	// Strictly greater: the exactly-1000ms event is not slow. Original
	// order is preserved.
	if slow[0].DurationMs != 1500 || slow[1].DurationMs != 2000 {
		t.Errorf("slow = %+v, want [1500 2000]", slow)
	}
}

func TestSlowQueriesDefaultThreshold(t *testing.T) {
	events := []SearchEvent{
		{Query: "a", DurationMs: 999},
		{Query: "b", DurationMs: 1001},
	}
	slow := SlowQueries(events, 0)
	if len(slow) != 1 || slow[0].Query != "b" {
		t.Errorf("slow = %+v, want only the 1001ms event", slow)
	}
}

func TestPopularQueriesNormalization(t *testing.T) {
	events := []SearchEvent{
		{Query: "a"},
		{Query: "A "},
		{Query: "b"},
		{Query: "a"},
	}

	popular := PopularQueries(events, 10)
	if len(popular) != 2 {
		t.Fatalf("got %d groups, want 2", len(popular))
	}
	if popular[0].Query != "a" || popular[0].Count != 3 {
		t.Errorf("popular[0] = %+v, want a:3", popular[0])
	}
	if popular[1].Query != "b" || popular[1].Count != 1 {
		t.Errorf("popular[1] = %+v, want b:1", popular[1])
	}
}

func TestPopularQueriesTieBreakAndLimit(t *testing.T) {
	events := []SearchEvent{
		{Query: "second"},
		{Query: "first"},
		{Query: "first"},
		{Query: "third"},
		{Query: "second"},
		{Query: "third"},
	}

	popular := PopularQueries(events, 2)
	if len(popular) != 2 {
		t.Fatalf("got %d groups, want 2 after truncation", len(popular))
	}
	// All counts equal; first occurrence in the input wins the tie.
	if popular[0].Query != "second" || popular[1].Query != "first" {
		t.Errorf("tie order = [%s %s], want [second first]",
			popular[0].Query, popular[1].Query)
	}
}

func TestPopularQueriesSkipsEmpty(t *testing.T) {
	events := []SearchEvent{
		{Query: "  "},
		{Query: ""},
		{Query: "real"},
	}
	popular := PopularQueries(events, 10)
	if len(popular) != 1 || popular[0].Query != "real" {
		t.Errorf("popular = %+v, want only 'real'", popular)
	}
}

func TestSuccessRateRounding(t *testing.T) {
	tests := []struct {
		succeeded, failed int
		want              int
	}{
		{0, 0, 0},
		{1, 0, 100},
		{0, 1, 0},
		{1, 2, 33},
		{2, 1, 67},
		{1, 7, 13}, // 12.5 rounds half away from zero
	}
	for _, tt := range tests {
		events := make([]SearchEvent, 0, tt.succeeded+tt.failed)
		for i := 0; i < tt.succeeded; i++ {
			events = append(events, SearchEvent{Succeeded: true})
		}
		for i := 0; i < tt.failed; i++ {
			events = append(events, SearchEvent{Succeeded: false})
		}
		if got := SuccessRate(events); got != tt.want {
			t.Errorf("SuccessRate(%d ok, %d failed) = %d, want %d",
				tt.succeeded, tt.failed, got, tt.want)
		}
	}
}

func TestFilterUsageCountsOncePerEvent(t *testing.T) {
	events := []SearchEvent{
		{Query: "a", Filters: []string{"brand", "brand", "in_stock"}},
		{Query: "b", Filters: []string{"brand"}},
		{Query: "c"},
	}

	usage := FilterUsage(events)
	if usage["brand"] != 2 {
		t.Errorf("brand = %d, want 2 (duplicates within an event collapse)", usage["brand"])
	}
	if usage["in_stock"] != 1 {
		t.Errorf("in_stock = %d, want 1", usage["in_stock"])
	}
}

func TestWithinWindow(t *testing.T) {
	now := time.Now()
	events := []SearchEvent{
		{Query: "old", OccurredAt: now.Add(-2 * time.Hour)},
		{Query: "edge", OccurredAt: now.Add(-time.Hour)},
		{Query: "recent", OccurredAt: now.Add(-time.Minute)},
	}

	scoped := WithinWindow(events, time.Hour, now)
	if len(scoped) != 2 {
		t.Fatalf("got %d events, want 2", len(scoped))
	}
	if scoped[0].Query != "edge" || scoped[1].Query != "recent" {
		t.Errorf("scoped = %+v, want [edge recent] in order", scoped)
	}
}

func TestSummarizeTruncation(t *testing.T) {
	events := make([]SearchEvent, 0, 30)
	for i := 0; i < 12; i++ {
		events = append(events, SearchEvent{
			Query:      string(rune('a' + i)),
			DurationMs: 5000,
			Succeeded:  true,
		})
	}

	stats := Summarize(events, 1000)
	if len(stats.PopularQueries) != 10 {
		t.Errorf("popular truncated to %d, want 10", len(stats.PopularQueries))
	}
	if len(stats.SlowQueries) != 5 {
		t.Errorf("slow truncated to %d, want 5", len(stats.SlowQueries))
	}
}
