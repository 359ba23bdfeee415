package engine

import (
	"context"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/backoff"
	sdkerrors "github.com/wehubfusion/Daedalus/pkg/errors"
)

// Decision tells the engine what to do with a failed attempt.
type Decision int

const (
	// DecisionFail propagates the error and faults the whole execution.
	// This is the zero value and the behavior when no handler is set.
	DecisionFail Decision = iota
	// DecisionSkip abandons the item without emitting a result.
	DecisionSkip
	// DecisionDeadLetter routes the item to the dead-letter sink and
	// continues without emitting a result.
	DecisionDeadLetter
	// DecisionRetry re-runs the transform after the configured delay.
	DecisionRetry
)

// String renders the decision for logs and events.
func (d Decision) String() string {
	switch d {
	case DecisionSkip:
		return "skip"
	case DecisionDeadLetter:
		return "dead_letter"
	case DecisionRetry:
		return "retry"
	default:
		return "fail"
	}
}

// ErrorHandler decides the outcome of one failed attempt. It receives the
// failing item, the attempt error and the number of retries already
// performed for this item (zero on the first failure). Handlers run on
// worker goroutines and must be safe for concurrent use.
type ErrorHandler func(ctx context.Context, nodeID string, item any, err error, retries int) Decision

// DeadLetter is the record routed to a sink when an item fails terminally
// without aborting the execution.
type DeadLetter struct {
	NodeID      string
	ExecutionID string
	Item        any
	Err         error
	Time        time.Time
}

// DeadLetterSink collects dead-lettered items. Write errors are logged
// and never fault the execution.
type DeadLetterSink interface {
	Write(ctx context.Context, letter DeadLetter) error
}

// retryOrchestrator drives a single item to a terminal outcome: a result,
// a silent release (skip or dead-letter) or a fatal error.
type retryOrchestrator[I, O any] struct {
	transform   Transform[I, O]
	handler     ErrorHandler
	deadLetter  DeadLetterSink
	delay       *backoff.Strategy
	maxRetries  int
	metrics     *Metrics
	pump        *eventPump
	clock       quartz.Clock
	logger      *zap.Logger
	nodeID      string
	executionID string
}

// execute runs the attempt loop for one item. emit reports whether out
// carries a result; a non-nil error is fatal for the whole execution.
func (r *retryOrchestrator[I, O]) execute(ctx context.Context, value I) (out O, emit bool, err error) {
	var zero O
	retries := 0
	for {
		// Cancellation short-circuits at the top of every attempt; the
		// handler is never consulted for it.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, false, ctxErr
		}

		result, attemptErr := r.transform(ctx, value)
		if attemptErr == nil {
			return result, true, nil
		}

		decision := DecisionFail
		if r.handler != nil {
			decision = r.handler(ctx, r.nodeID, value, attemptErr, retries)
		}

		switch decision {
		case DecisionSkip:
			r.logger.Debug("item skipped",
				zap.String("node_id", r.nodeID),
				zap.Int("retries", retries),
				zap.Error(attemptErr),
			)
			return zero, false, nil

		case DecisionDeadLetter:
			r.sinkDeadLetter(ctx, value, attemptErr)
			return zero, false, nil

		case DecisionRetry:
			if retries+1 > r.maxRetries {
				return zero, false, sdkerrors.RetryExhausted(retries+1, attemptErr)
			}
			delay := r.nextDelay(retries)
			retries++
			if retries == 1 {
				r.metrics.RecordItemWithRetry()
			}
			r.metrics.RecordRetryEvent()
			r.metrics.ObserveItemAttempts(retries)
			r.pump.emit(RetryEvent{
				NodeID:      r.nodeID,
				ExecutionID: r.executionID,
				Attempt:     retries,
				Err:         attemptErr,
			})
			if waitErr := r.waitRetry(ctx, delay); waitErr != nil {
				return zero, false, waitErr
			}

		default:
			return zero, false, attemptErr
		}
	}
}

// nextDelay consults the delay strategy with the zero-based retry index,
// so the first retry waits the strategy's base delay. No strategy means
// immediate retries.
func (r *retryOrchestrator[I, O]) nextDelay(retries int) time.Duration {
	if r.delay == nil {
		return 0
	}
	return r.delay.GetDelay(retries)
}

func (r *retryOrchestrator[I, O]) waitRetry(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := r.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *retryOrchestrator[I, O]) sinkDeadLetter(ctx context.Context, value I, cause error) {
	if r.deadLetter == nil {
		r.logger.Warn("dead-letter decision with no sink configured, dropping item",
			zap.String("node_id", r.nodeID),
			zap.String("execution_id", r.executionID),
			zap.Error(cause),
		)
		return
	}
	letter := DeadLetter{
		NodeID:      r.nodeID,
		ExecutionID: r.executionID,
		Item:        value,
		Err:         cause,
		Time:        r.clock.Now(),
	}
	if err := r.deadLetter.Write(ctx, letter); err != nil {
		r.logger.Warn("dead-letter sink rejected item",
			zap.String("node_id", r.nodeID),
			zap.String("execution_id", r.executionID),
			zap.Error(err),
		)
	}
}
