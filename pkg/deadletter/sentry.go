package deadletter

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// SentryReporter decorates a Sink, capturing each dead-letter error to Sentry
// with node and execution tags before delegating to the wrapped sink. The
// caller is responsible for sentry.Init; without a bound client the capture
// is a no-op and letters still reach the wrapped sink.
type SentryReporter struct {
	inner  Sink
	hub    *sentry.Hub
	logger *zap.Logger
}

var _ Sink = (*SentryReporter)(nil)

// NewSentryReporter wraps inner. A nil inner is allowed; the reporter then
// only captures.
func NewSentryReporter(inner Sink, logger *zap.Logger) *SentryReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SentryReporter{
		inner:  inner,
		hub:    sentry.CurrentHub().Clone(),
		logger: logger,
	}
}

// Write captures the letter's error and forwards the letter to the wrapped
// sink.
func (r *SentryReporter) Write(ctx context.Context, letter engine.DeadLetter) error {
	if letter.Err != nil {
		r.hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("node_id", letter.NodeID)
			scope.SetTag("execution_id", letter.ExecutionID)
			scope.SetExtra("item", fmt.Sprintf("%+v", letter.Item))
			scope.SetExtra("occurred_at", letter.Time)
			r.hub.CaptureException(letter.Err)
		})
	}

	if r.inner == nil {
		return nil
	}
	return r.inner.Write(ctx, letter)
}

// Flush waits for buffered Sentry events to ship. Call during shutdown.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}
