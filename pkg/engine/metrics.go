package engine

import "sync/atomic"

// Metrics tracks the counters of one node-execution. All counters are
// lock-free, shared by the producer, the workers and any reader, and
// monotonically non-decreasing for the lifetime of the execution.
type Metrics struct {
	enqueued             atomic.Int64
	processed            atomic.Int64
	droppedOldest        atomic.Int64
	droppedNewest        atomic.Int64
	retryEvents          atomic.Int64
	itemsWithRetry       atomic.Int64
	maxItemRetryAttempts atomic.Int64
}

// NewMetrics returns a zeroed counter set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordEnqueued counts one item admitted to the queue and returns the
// new total.
func (m *Metrics) RecordEnqueued() int64 {
	return m.enqueued.Add(1)
}

// RecordProcessed counts one result forwarded to the output stage.
func (m *Metrics) RecordProcessed() int64 {
	return m.processed.Add(1)
}

// RecordDroppedOldest counts one buffered item evicted under DropOldest.
func (m *Metrics) RecordDroppedOldest() int64 {
	return m.droppedOldest.Add(1)
}

// RecordDroppedNewest counts one incoming item discarded under DropNewest.
func (m *Metrics) RecordDroppedNewest() int64 {
	return m.droppedNewest.Add(1)
}

// RecordRetryEvent counts one retry attempt across all items.
func (m *Metrics) RecordRetryEvent() int64 {
	return m.retryEvents.Add(1)
}

// RecordItemWithRetry counts one distinct item entering retry.
func (m *Metrics) RecordItemWithRetry() int64 {
	return m.itemsWithRetry.Add(1)
}

// ObserveItemAttempts raises the high-water mark of retry attempts seen
// for any single item. Concurrent observers race benignly through CAS.
func (m *Metrics) ObserveItemAttempts(attempts int) {
	v := int64(attempts)
	for {
		cur := m.maxItemRetryAttempts.Load()
		if cur >= v {
			return
		}
		if m.maxItemRetryAttempts.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Snapshot returns a point-in-time copy of every counter. Individual
// counters are read atomically; the snapshot as a whole is not a single
// atomic cut across them.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Enqueued:             m.enqueued.Load(),
		Processed:            m.processed.Load(),
		DroppedOldest:        m.droppedOldest.Load(),
		DroppedNewest:        m.droppedNewest.Load(),
		RetryEvents:          m.retryEvents.Load(),
		ItemsWithRetry:       m.itemsWithRetry.Load(),
		MaxItemRetryAttempts: m.maxItemRetryAttempts.Load(),
	}
}

// MetricsSnapshot is a plain copy of the execution counters.
type MetricsSnapshot struct {
	Enqueued             int64 `json:"enqueued"`
	Processed            int64 `json:"processed"`
	DroppedOldest        int64 `json:"droppedOldest"`
	DroppedNewest        int64 `json:"droppedNewest"`
	RetryEvents          int64 `json:"retryEvents"`
	ItemsWithRetry       int64 `json:"itemsWithRetry"`
	MaxItemRetryAttempts int64 `json:"maxItemRetryAttempts"`
}
