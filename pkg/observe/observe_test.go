package observe

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

func sampleDrop() engine.DropEvent {
	return engine.DropEvent{
		NodeID:             "enrich",
		ExecutionID:        "exec-7",
		Policy:             engine.DropOldest,
		Kind:               engine.DropKindOldest,
		Capacity:           8,
		Depth:              8,
		EnqueuedTotal:      40,
		DroppedOldestTotal: 3,
	}
}

func sampleMetrics() engine.QueueMetricsEvent {
	return engine.QueueMetricsEvent{
		NodeID:      "enrich",
		ExecutionID: "exec-7",
		Metrics: engine.MetricsSnapshot{
			Enqueued:  40,
			Processed: 37,
		},
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func sampleRetry() engine.RetryEvent {
	return engine.RetryEvent{
		NodeID:      "enrich",
		ExecutionID: "exec-7",
		Attempt:     2,
		Err:         errors.New("upstream timeout"),
	}
}

type countingObserver struct {
	drops   int
	metrics int
	retries int
}

func (c *countingObserver) OnDrop(engine.DropEvent)                 { c.drops++ }
func (c *countingObserver) OnQueueMetrics(engine.QueueMetricsEvent) { c.metrics++ }
func (c *countingObserver) OnRetry(engine.RetryEvent)               { c.retries++ }

func TestMultiObserverFansOut(t *testing.T) {
	first := &countingObserver{}
	second := &countingObserver{}

	multi := NewMultiObserver(first, nil, second)
	require.Len(t, multi, 2, "nil observers are skipped")

	multi.OnDrop(sampleDrop())
	multi.OnQueueMetrics(sampleMetrics())
	multi.OnQueueMetrics(sampleMetrics())
	multi.OnRetry(sampleRetry())

	for _, o := range []*countingObserver{first, second} {
		assert.Equal(t, 1, o.drops)
		assert.Equal(t, 2, o.metrics)
		assert.Equal(t, 1, o.retries)
	}
}

func TestLoggingObserverLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	o := NewLoggingObserver(zap.New(core))

	o.OnDrop(sampleDrop())
	o.OnQueueMetrics(sampleMetrics())
	o.OnRetry(sampleRetry())

	drops := logs.FilterMessage("Queue dropped an item").All()
	require.Len(t, drops, 1)
	assert.Equal(t, zapcore.WarnLevel, drops[0].Level)
	assert.Equal(t, "drop_oldest", drops[0].ContextMap()["policy"])
	assert.Equal(t, int64(8), drops[0].ContextMap()["capacity"])

	metrics := logs.FilterMessage("Queue metrics").All()
	require.Len(t, metrics, 1)
	assert.Equal(t, zapcore.DebugLevel, metrics[0].Level)
	assert.Equal(t, int64(40), metrics[0].ContextMap()["enqueued"])

	retries := logs.FilterMessage("Item retry scheduled").All()
	require.Len(t, retries, 1)
	assert.Equal(t, zapcore.DebugLevel, retries[0].Level)
	assert.Equal(t, int64(2), retries[0].ContextMap()["attempt"])
}
