package observe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	return recorder
}

func TestTracingObserverRecordsEventsOnExecutionSpan(t *testing.T) {
	recorder := withSpanRecorder(t)

	_, obs := StartTracingObserver(context.Background(), "enrich")
	obs.OnDrop(sampleDrop())
	obs.OnRetry(sampleRetry())
	obs.OnQueueMetrics(sampleMetrics())
	obs.End(nil)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, "engine.Execute", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	var eventNames []string
	for _, ev := range span.Events() {
		eventNames = append(eventNames, ev.Name)
	}
	assert.Contains(t, eventNames, "queue.drop")
	assert.Contains(t, eventNames, "item.retry")

	var sawEnqueued bool
	for _, attr := range span.Attributes() {
		if string(attr.Key) == "queue.enqueued_total" {
			sawEnqueued = true
			assert.Equal(t, int64(40), attr.Value.AsInt64())
		}
	}
	assert.True(t, sawEnqueued, "queue metrics should land as span attributes")
}

func TestTracingObserverEndRecordsFailure(t *testing.T) {
	recorder := withSpanRecorder(t)

	_, obs := StartTracingObserver(context.Background(), "enrich")
	obs.End(errors.New("execution faulted"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "execution faulted", span.Status().Description)

	var sawException bool
	for _, ev := range span.Events() {
		if ev.Name == "exception" {
			sawException = true
		}
	}
	assert.True(t, sawException, "RecordError should add an exception event")
}
