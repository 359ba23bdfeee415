package engine

import (
	"context"
	"sync"
)

// Stream is the lazy, single-pass output of one Execute call. Results
// arrive on Items; once that channel closes, Err reports the fault that
// ended the execution, if any. A Stream cannot be restarted or consumed
// twice. Cancel the Execute context to abandon a stream early.
type Stream[O any] struct {
	items <-chan O
	state *execState
}

// Items returns the receive side of the result sequence.
func (s *Stream[O]) Items() <-chan O {
	return s.items
}

// Err reports the fault that completed the stream. Its value is
// meaningful once Items has closed; a nil error means the execution
// drained the input completely.
func (s *Stream[O]) Err() error {
	return s.state.failure()
}

// ExecutionID identifies this run in logs, events and dead letters.
func (s *Stream[O]) ExecutionID() string {
	return s.state.executionID
}

// Metrics returns a snapshot of the execution counters.
func (s *Stream[O]) Metrics() MetricsSnapshot {
	return s.state.metrics.Snapshot()
}

// Collect drains the stream into a slice, returning the collected results
// together with the stream fault, if any. ctx aborts the drain early and
// returns whatever was collected so far.
func (s *Stream[O]) Collect(ctx context.Context) ([]O, error) {
	var out []O
	for {
		select {
		case v, ok := <-s.items:
			if !ok {
				return out, s.Err()
			}
			out = append(out, v)
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}

// execState carries the first-fault slot shared between the stream handle
// and the execution goroutines. The first recorded fault cancels the
// execution; later faults are dropped.
type execState struct {
	mu          sync.Mutex
	err         error
	cancel      context.CancelFunc
	metrics     *Metrics
	executionID string
}

func (s *execState) fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	first := s.err == nil
	if first {
		s.err = err
	}
	s.mu.Unlock()
	if first {
		s.cancel()
	}
}

func (s *execState) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// FromSlice adapts a slice to the input side of Execute. The returned
// channel is pre-filled and closed.
func FromSlice[T any](items []T) <-chan T {
	ch := make(chan T, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return ch
}
