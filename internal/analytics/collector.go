package analytics

import (
	"sync"
)

// DefaultWindowCapacity bounds the metric window when no capacity is given.
const DefaultWindowCapacity = 1000

// Collector retains a bounded FIFO window of recent search events for
// realtime dashboards. It is safe for many concurrent writers (search
// operations completing) and concurrent readers (report assembly).
//
// Record is total: it never blocks on I/O and never fails. When the
// window is full the oldest event is evicted, so the retained events are
// always the most recent capacity-many in insertion order.
type Collector struct {
	mu     sync.Mutex
	buf    []SearchEvent
	head   int // index of the oldest retained event
	size   int
	evced  uint64 // lifetime eviction count, for metrics
	onMut  func(size int, evicted bool)
}

// NewCollector creates a Collector retaining at most capacity events.
// Non-positive capacities fall back to DefaultWindowCapacity.
func NewCollector(capacity int) *Collector {
	if capacity <= 0 {
		capacity = DefaultWindowCapacity
	}
	return &Collector{
		buf: make([]SearchEvent, capacity),
	}
}

// OnMutate registers a callback invoked (under the collector lock) after
// every Record and Reset with the new window size and whether an event
// was evicted. Used to keep gauges current; the callback must be cheap.
func (c *Collector) OnMutate(fn func(size int, evicted bool)) {
	c.mu.Lock()
	c.onMut = fn
	c.mu.Unlock()
}

// Record appends an event to the window, evicting the oldest entry if the
// window is at capacity. Malformed numeric fields are clamped rather than
// rejected, and the error-detail invariant is normalized: detail is kept
// only for failed events.
func (c *Collector) Record(event SearchEvent) {
	if event.DurationMs < 0 {
		event.DurationMs = 0
	}
	if event.ResultCount < 0 {
		event.ResultCount = 0
	}
	if event.Succeeded {
		event.ErrorDetail = ""
	} else if event.ErrorDetail == "" {
		event.ErrorDetail = "unknown error"
	}

	c.mu.Lock()
	evicted := false
	if c.size == len(c.buf) {
		// Overwrite the oldest slot and advance the head.
		c.buf[c.head] = event
		c.head = (c.head + 1) % len(c.buf)
		c.evced++
		evicted = true
	} else {
		c.buf[(c.head+c.size)%len(c.buf)] = event
		c.size++
	}
	if c.onMut != nil {
		c.onMut(c.size, evicted)
	}
	c.mu.Unlock()
}

// Snapshot returns a copy of the retained events in insertion order
// (oldest first). The copy is taken under the lock, so concurrent Record
// calls never yield a partially mutated view.
func (c *Collector) Snapshot() []SearchEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SearchEvent, c.size)
	for i := 0; i < c.size; i++ {
		out[i] = c.buf[(c.head+i)%len(c.buf)]
	}
	return out
}

// Reset clears all retained events. Administrative and testing use only.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.head = 0
	c.size = 0
	if c.onMut != nil {
		c.onMut(0, false)
	}
	c.mu.Unlock()
}

// Len returns the current number of retained events.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Capacity returns the fixed maximum window size.
func (c *Collector) Capacity() int {
	return len(c.buf)
}

// Evicted returns the lifetime number of evicted events.
func (c *Collector) Evicted() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evced
}
