package engine

import "time"

// DropKind says which end of the queue lost an item.
type DropKind string

const (
	// DropKindOldest marks an eviction of a buffered item.
	DropKindOldest DropKind = "oldest"
	// DropKindNewest marks a discarded incoming item.
	DropKindNewest DropKind = "newest"
)

// DropEvent describes a single item lost to queue overflow.
type DropEvent struct {
	NodeID             string
	ExecutionID        string
	Policy             QueuePolicy
	Kind               DropKind
	Capacity           int
	Depth              int
	EnqueuedTotal      int64
	DroppedOldestTotal int64
	DroppedNewestTotal int64
}

// QueueMetricsEvent is a periodic snapshot of the execution counters,
// emitted at the configured metrics emission interval.
type QueueMetricsEvent struct {
	NodeID      string
	ExecutionID string
	Metrics     MetricsSnapshot
	Timestamp   time.Time
}

// RetryEvent describes one retry of a failed item. Attempt is 1-based:
// the first retry of an item carries Attempt == 1.
type RetryEvent struct {
	NodeID      string
	ExecutionID string
	Attempt     int
	Err         error
}

// Observer receives execution events. Callbacks are invoked sequentially
// from a dedicated goroutine per execution, so implementations need no
// internal locking against the engine. A slow observer causes events to
// be dropped, never item processing to stall.
type Observer interface {
	OnDrop(event DropEvent)
	OnQueueMetrics(event QueueMetricsEvent)
	OnRetry(event RetryEvent)
}

// NopObserver ignores all events.
type NopObserver struct{}

// OnDrop implements Observer.
func (NopObserver) OnDrop(DropEvent) {}

// OnQueueMetrics implements Observer.
func (NopObserver) OnQueueMetrics(QueueMetricsEvent) {}

// OnRetry implements Observer.
func (NopObserver) OnRetry(RetryEvent) {}

var _ Observer = NopObserver{}
