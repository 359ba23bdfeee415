package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

const tracerName = "daedalus/observe"

// TracingObserver records engine events onto a span covering one full
// execution: drops and retries become span events, queue metrics become span
// attributes.
type TracingObserver struct {
	span trace.Span
}

var _ engine.Observer = (*TracingObserver)(nil)

// StartTracingObserver starts a span for a node execution and returns the
// derived context together with the observer. Call End once the output
// stream is drained.
func StartTracingObserver(ctx context.Context, nodeID string) (context.Context, *TracingObserver) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.Execute",
		trace.WithAttributes(
			attribute.String("node.id", nodeID),
		))
	return ctx, &TracingObserver{span: span}
}

// End closes the execution span, recording err when the run failed.
func (o *TracingObserver) End(err error) {
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
	} else {
		o.span.SetStatus(codes.Ok, "")
	}
	o.span.End()
}

func (o *TracingObserver) OnDrop(ev engine.DropEvent) {
	o.span.AddEvent("queue.drop",
		trace.WithAttributes(
			attribute.String("queue.policy", string(ev.Policy)),
			attribute.String("drop.kind", string(ev.Kind)),
			attribute.Int("queue.capacity", ev.Capacity),
			attribute.Int("queue.depth", ev.Depth),
		))
}

func (o *TracingObserver) OnQueueMetrics(ev engine.QueueMetricsEvent) {
	o.span.SetAttributes(
		attribute.Int64("queue.enqueued_total", ev.Metrics.Enqueued),
		attribute.Int64("queue.processed_total", ev.Metrics.Processed),
		attribute.Int64("queue.dropped_oldest_total", ev.Metrics.DroppedOldest),
		attribute.Int64("queue.dropped_newest_total", ev.Metrics.DroppedNewest),
		attribute.Int64("queue.retry_events_total", ev.Metrics.RetryEvents),
	)
}

func (o *TracingObserver) OnRetry(ev engine.RetryEvent) {
	attrs := []attribute.KeyValue{
		attribute.Int("retry.attempt", ev.Attempt),
	}
	if ev.Err != nil {
		attrs = append(attrs, attribute.String("retry.error", ev.Err.Error()))
	}
	o.span.AddEvent("item.retry", trace.WithAttributes(attrs...))
}
