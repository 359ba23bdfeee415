package engine

import (
	"context"

	"go.uber.org/zap"
)

// dropOldestMaxEvictions bounds how many evict-and-reinsert rounds a
// single DropOldest admission may perform before giving up on the
// incoming item.
const dropOldestMaxEvictions = 3

// job carries one input value through the admission queue. Under ordered
// execution slot is the single-use channel its outcome must fill; under
// unordered execution slot is nil.
type job[I, O any] struct {
	value I
	slot  chan outcome[O]
}

// admissionQueue buffers jobs between the producer and the worker pool,
// applying exactly one overflow policy chosen at construction. A single
// producer inserts and closes; workers drain.
type admissionQueue[I, O any] struct {
	ch          chan job[I, O]
	policy      QueuePolicy
	capacity    int
	metrics     *Metrics
	pump        *eventPump
	logger      *zap.Logger
	nodeID      string
	executionID string
}

func newAdmissionQueue[I, O any](opts Options, executionID string, metrics *Metrics, pump *eventPump, logger *zap.Logger) *admissionQueue[I, O] {
	return &admissionQueue[I, O]{
		ch:          make(chan job[I, O], opts.MaxQueueLength),
		policy:      opts.QueuePolicy,
		capacity:    opts.MaxQueueLength,
		metrics:     metrics,
		pump:        pump,
		logger:      logger,
		nodeID:      opts.NodeID,
		executionID: executionID,
	}
}

// insert admits one job under the configured policy. Under Block it
// suspends until a slot frees or ctx ends. Drop policies never suspend
// and never return an error; losing an item to overflow is not a fault.
func (q *admissionQueue[I, O]) insert(ctx context.Context, j job[I, O]) error {
	switch q.policy {
	case DropNewest:
		q.insertDropNewest(j)
		return nil
	case DropOldest:
		q.insertDropOldest(j)
		return nil
	default:
		select {
		case q.ch <- j:
			q.metrics.RecordEnqueued()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// trySend attempts a non-blocking enqueue without touching counters.
func (q *admissionQueue[I, O]) trySend(j job[I, O]) bool {
	select {
	case q.ch <- j:
		return true
	default:
		return false
	}
}

func (q *admissionQueue[I, O]) insertDropNewest(j job[I, O]) {
	if q.trySend(j) {
		q.metrics.RecordEnqueued()
		return
	}
	q.metrics.RecordDroppedNewest()
	q.emitDrop(DropKindNewest)
}

// insertDropOldest evicts buffered jobs to admit the incoming one. A
// concurrent reader can race each eviction, so the evict-and-reinsert
// round is bounded; if the queue is still full afterwards the incoming
// item is dropped with a warning rather than stalling admission.
func (q *admissionQueue[I, O]) insertDropOldest(j job[I, O]) {
	if q.trySend(j) {
		q.metrics.RecordEnqueued()
		return
	}
	for round := 0; round < dropOldestMaxEvictions; round++ {
		evicted := false
		select {
		case <-q.ch:
			q.metrics.RecordDroppedOldest()
			q.emitDrop(DropKindOldest)
			evicted = true
		default:
			// a worker freed space first
		}
		if q.trySend(j) {
			// A displacing admission keeps the enqueued count unchanged:
			// it replaced a counted item rather than adding one.
			if !evicted {
				q.metrics.RecordEnqueued()
			}
			return
		}
	}
	q.logger.Warn("admission failed after bounded evictions, dropping incoming item",
		zap.String("node_id", q.nodeID),
		zap.String("execution_id", q.executionID),
		zap.Int("capacity", q.capacity),
		zap.Int("evictions", dropOldestMaxEvictions),
	)
}

func (q *admissionQueue[I, O]) emitDrop(kind DropKind) {
	snap := q.metrics.Snapshot()
	q.pump.emit(DropEvent{
		NodeID:             q.nodeID,
		ExecutionID:        q.executionID,
		Policy:             q.policy,
		Kind:               kind,
		Capacity:           q.capacity,
		Depth:              len(q.ch),
		EnqueuedTotal:      snap.Enqueued,
		DroppedOldestTotal: snap.DroppedOldest,
		DroppedNewestTotal: snap.DroppedNewest,
	})
}

// closeWrites marks upstream exhaustion. Workers drain whatever remains.
func (q *admissionQueue[I, O]) closeWrites() {
	close(q.ch)
}

// jobs exposes the read side for the worker pool.
func (q *admissionQueue[I, O]) jobs() <-chan job[I, O] {
	return q.ch
}
