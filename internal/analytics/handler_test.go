package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sarav-Krishnan-M/Catalog-Search-Observability/pkg/kafka"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (p *capturingPublisher) Publish(ctx context.Context, event kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) waitFor(t *testing.T, n int) []kafka.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		if len(p.events) >= n {
			out := make([]kafka.Event, len(p.events))
			copy(out, p.events)
			p.mu.Unlock()
			return out
		}
		p.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("publisher did not receive %d events in time", n)
	return nil
}

type stubRealtime struct {
	stats RealtimeStats
}

func (s stubRealtime) Realtime(now time.Time) RealtimeStats { return s.stats }

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return nil
}

func TestRecordSearchEndpoint(t *testing.T) {
	collector := NewCollector(10)
	publisher := &capturingPublisher{}
	h := NewHandler(collector, stubRealtime{}, publisher, nil, nil)

	body := `{"query":"soap","durationMs":120,"resultCount":4,"succeeded":true}`
	rec := httptest.NewRecorder()
	h.RecordSearch(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events/search", strings.NewReader(body)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if collector.Len() != 1 {
		t.Fatalf("window size = %d, want 1", collector.Len())
	}
	snap := collector.Snapshot()
	if snap[0].Query != "soap" || snap[0].OccurredAt.IsZero() {
		t.Errorf("recorded event = %+v, want soap with server timestamp", snap[0])
	}

	events := publisher.waitFor(t, 1)
	if events[0].Key != KindSearch {
		t.Errorf("published key = %q, want %q", events[0].Key, KindSearch)
	}
}

func TestRecordSearchRejectsBadJSON(t *testing.T) {
	collector := NewCollector(10)
	h := NewHandler(collector, stubRealtime{}, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.RecordSearch(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events/search", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if collector.Len() != 0 {
		t.Error("malformed body must not enter the window")
	}
}

func TestRecordFunnelEndpoint(t *testing.T) {
	publisher := &capturingPublisher{}
	h := NewHandler(NewCollector(10), stubRealtime{}, publisher, nil, nil)

	rec := httptest.NewRecorder()
	h.RecordFunnel(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events/funnel",
		strings.NewReader(`{"stage":"add_to_cart","query":"soap"}`)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	events := publisher.waitFor(t, 1)
	if events[0].Key != KindFunnel {
		t.Errorf("published key = %q, want %q", events[0].Key, KindFunnel)
	}
}

func TestRecordFunnelRejectsUnknownStage(t *testing.T) {
	h := NewHandler(NewCollector(10), stubRealtime{}, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.RecordFunnel(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events/funnel",
		strings.NewReader(`{"stage":"refund"}`)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRealtimeEndpoint(t *testing.T) {
	h := NewHandler(NewCollector(10), stubRealtime{stats: RealtimeStats{TotalSearches: 42, SuccessRate: 90}}, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Realtime(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/realtime", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"totalSearches":42`) {
		t.Errorf("body = %s, want totalSearches 42", rec.Body.String())
	}
}

func TestResetEndpoint(t *testing.T) {
	collector := NewCollector(10)
	collector.Record(SearchEvent{Query: "soap", Succeeded: true})
	invalidator := &countingInvalidator{}
	h := NewHandler(collector, stubRealtime{}, nil, invalidator, nil)

	rec := httptest.NewRecorder()
	h.Reset(rec, httptest.NewRequest(http.MethodPost, "/api/v1/analytics/reset", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if collector.Len() != 0 {
		t.Error("window not cleared by reset")
	}
	if invalidator.calls != 1 {
		t.Errorf("invalidator called %d times, want 1", invalidator.calls)
	}
}
