package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Transform is the per-item operation the engine drives. It is invoked
// concurrently from multiple workers and must tolerate that.
type Transform[I, O any] func(ctx context.Context, item I) (O, error)

// outcome is the record a worker deposits into an ordered-output slot.
// emit is false for items released without a result, such as skipped or
// dead-lettered ones; their slot must still be filled to free the
// ordering window.
type outcome[O any] struct {
	value O
	emit  bool
}

// Execute drives transform over input with the configured parallelism,
// admission policy and retry behavior. It resolves opts once, fails fast
// on invalid configuration and otherwise returns a lazy, single-pass
// Stream whose items become available as workers complete them. Cancel
// ctx to stop the execution early; the stream always completes, with
// Err reporting the fault or cancellation that ended it.
func Execute[I, O any](ctx context.Context, input <-chan I, transform Transform[I, O], opts Options) (*Stream[O], error) {
	if input == nil {
		return nil, errors.New("engine: input channel is required")
	}
	if transform == nil {
		return nil, errors.New("engine: transform is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithCancel(ctx)
	executionID := uuid.NewString()
	logger := opts.Logger.With(
		zap.String("node_id", opts.NodeID),
		zap.String("execution_id", executionID),
	)
	metrics := NewMetrics()
	pump := newEventPump(opts.Observer, logger)
	state := &execState{cancel: cancel, metrics: metrics, executionID: executionID}

	queue := newAdmissionQueue[I, O](opts, executionID, metrics, pump, logger)
	orch := &retryOrchestrator[I, O]{
		transform:   transform,
		handler:     opts.ErrorHandler,
		deadLetter:  opts.DeadLetter,
		delay:       opts.RetryDelay,
		maxRetries:  opts.MaxItemRetries,
		metrics:     metrics,
		pump:        pump,
		clock:       opts.Clock,
		logger:      logger,
		nodeID:      opts.NodeID,
		executionID: executionID,
	}

	// Ordered executions emit through per-item slots queued in arrival
	// order; the slot queue capacity is what bounds how far completed
	// results may run ahead of consumption. Unordered executions write
	// straight to the output channel and bound the backlog there.
	ordered := opts.ordered()
	var out chan O
	var order chan chan outcome[O]
	if ordered {
		out = make(chan O)
		order = make(chan chan outcome[O], opts.OutputBufferCapacity)
	} else {
		out = make(chan O, opts.OutputBufferCapacity)
	}

	logger.Info("execution starting",
		zap.Int("max_parallelism", opts.MaxParallelism),
		zap.String("queue_policy", string(opts.QueuePolicy)),
		zap.Int("max_queue_length", opts.MaxQueueLength),
		zap.Bool("ordered", ordered),
		zap.Int("max_item_retries", opts.MaxItemRetries),
	)

	// Producer: admit items until the input closes or the execution ends.
	go func() {
		defer queue.closeWrites()
		if ordered {
			defer close(order)
		}
		for {
			select {
			case v, ok := <-input:
				if !ok {
					return
				}
				j := job[I, O]{value: v}
				if ordered {
					j.slot = make(chan outcome[O], 1)
					select {
					case order <- j.slot:
					case <-execCtx.Done():
						state.fail(ctx.Err())
						return
					}
				}
				if err := queue.insert(execCtx, j); err != nil {
					state.fail(ctx.Err())
					return
				}
			case <-execCtx.Done():
				state.fail(ctx.Err())
				return
			}
		}
	}()

	// Workers: drain the queue, drive each item to a terminal outcome.
	var wg sync.WaitGroup
	for i := 0; i < opts.MaxParallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue.jobs() {
				select {
				case <-execCtx.Done():
					state.fail(ctx.Err())
					return
				default:
				}
				value, emit, err := orch.execute(execCtx, j.value)
				if err != nil {
					if j.slot != nil {
						j.slot <- outcome[O]{}
					}
					state.fail(err)
					return
				}
				if j.slot != nil {
					j.slot <- outcome[O]{value: value, emit: emit}
					if emit {
						metrics.RecordProcessed()
					}
					continue
				}
				if emit {
					select {
					case out <- value:
						metrics.RecordProcessed()
					case <-execCtx.Done():
						state.fail(ctx.Err())
						return
					}
				}
			}
		}()
	}

	// Emitter: reassemble ordered output by draining slots in arrival
	// order. Runs only for ordered executions and owns closing out.
	emitterDone := make(chan struct{})
	if ordered {
		go func() {
			defer close(emitterDone)
			defer close(out)
			for {
				select {
				case slot, ok := <-order:
					if !ok {
						return
					}
					select {
					case res := <-slot:
						if !res.emit {
							continue
						}
						select {
						case out <- res.value:
						case <-execCtx.Done():
							state.fail(ctx.Err())
							return
						}
					case <-execCtx.Done():
						state.fail(ctx.Err())
						return
					}
				case <-execCtx.Done():
					state.fail(ctx.Err())
					return
				}
			}
		}()
	} else {
		close(emitterDone)
	}

	// Periodic queue metrics for the observer.
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		if pump == nil {
			return
		}
		ticker := opts.Clock.NewTicker(opts.MetricsEmissionInterval)
		defer ticker.Stop()
		for {
			select {
			case ts := <-ticker.C:
				pump.emit(QueueMetricsEvent{
					NodeID:      opts.NodeID,
					ExecutionID: executionID,
					Metrics:     metrics.Snapshot(),
					Timestamp:   ts,
				})
			case <-execCtx.Done():
				return
			}
		}
	}()

	// Completion: once all workers finish, the output is sealed, the
	// support goroutines stop and buffered observer events drain.
	go func() {
		wg.Wait()
		if err := ctx.Err(); err != nil {
			state.fail(err)
		}
		if ordered {
			<-emitterDone
		} else {
			close(out)
		}
		cancel()
		<-tickerDone
		pump.close()
		snap := metrics.Snapshot()
		logger.Info("execution complete",
			zap.Int64("enqueued", snap.Enqueued),
			zap.Int64("processed", snap.Processed),
			zap.Int64("dropped_oldest", snap.DroppedOldest),
			zap.Int64("dropped_newest", snap.DroppedNewest),
			zap.Int64("retry_events", snap.RetryEvents),
		)
	}()

	return &Stream[O]{items: out, state: state}, nil
}
