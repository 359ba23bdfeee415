package observe

import (
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// LoggingObserver writes engine events to a zap logger: drops at Warn,
// retries and periodic queue metrics at Debug.
type LoggingObserver struct {
	logger *zap.Logger
}

var _ engine.Observer = (*LoggingObserver)(nil)

// NewLoggingObserver creates an observer over logger.
func NewLoggingObserver(logger *zap.Logger) *LoggingObserver {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) OnDrop(ev engine.DropEvent) {
	o.logger.Warn("Queue dropped an item",
		zap.String("node_id", ev.NodeID),
		zap.String("execution_id", ev.ExecutionID),
		zap.String("policy", string(ev.Policy)),
		zap.String("kind", string(ev.Kind)),
		zap.Int("capacity", ev.Capacity),
		zap.Int("depth", ev.Depth),
		zap.Int64("dropped_oldest_total", ev.DroppedOldestTotal),
		zap.Int64("dropped_newest_total", ev.DroppedNewestTotal))
}

func (o *LoggingObserver) OnQueueMetrics(ev engine.QueueMetricsEvent) {
	o.logger.Debug("Queue metrics",
		zap.String("node_id", ev.NodeID),
		zap.String("execution_id", ev.ExecutionID),
		zap.Int64("enqueued", ev.Metrics.Enqueued),
		zap.Int64("processed", ev.Metrics.Processed),
		zap.Int64("dropped_oldest", ev.Metrics.DroppedOldest),
		zap.Int64("dropped_newest", ev.Metrics.DroppedNewest),
		zap.Int64("retry_events", ev.Metrics.RetryEvents),
		zap.Time("timestamp", ev.Timestamp))
}

func (o *LoggingObserver) OnRetry(ev engine.RetryEvent) {
	o.logger.Debug("Item retry scheduled",
		zap.String("node_id", ev.NodeID),
		zap.String("execution_id", ev.ExecutionID),
		zap.Int("attempt", ev.Attempt),
		zap.Error(ev.Err))
}
