package observe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/internal/natsconn"
	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// DefaultEventSubjectPrefix prefixes the subjects NATSObserver publishes to.
const DefaultEventSubjectPrefix = "daedalus.events"

// publisher narrows *nats.Conn to the one method the observer needs.
type publisher interface {
	Publish(subj string, data []byte) error
}

// NATSObserver publishes engine events as JSON over core NATS: drops to
// <prefix>.drops.<node>, queue metrics to <prefix>.metrics.<node> and
// retries to <prefix>.retries.<node>. Publishes are fire-and-forget;
// failures are logged and shed, matching the lossy observer contract.
type NATSObserver struct {
	pub    publisher
	prefix string
	logger *zap.Logger
}

var _ engine.Observer = (*NATSObserver)(nil)

// NewNATSObserver creates an observer over an established connection. An
// empty prefix falls back to DefaultEventSubjectPrefix.
func NewNATSObserver(conn *nats.Conn, prefix string, logger *zap.Logger) (*NATSObserver, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if prefix == "" {
		prefix = DefaultEventSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NATSObserver{pub: conn, prefix: prefix, logger: logger}, nil
}

type dropEventPayload struct {
	NodeID             string `json:"nodeId"`
	ExecutionID        string `json:"executionId"`
	Policy             string `json:"policy"`
	Kind               string `json:"kind"`
	Capacity           int    `json:"capacity"`
	Depth              int    `json:"depth"`
	EnqueuedTotal      int64  `json:"enqueuedTotal"`
	DroppedOldestTotal int64  `json:"droppedOldestTotal"`
	DroppedNewestTotal int64  `json:"droppedNewestTotal"`
}

type metricsEventPayload struct {
	NodeID      string                 `json:"nodeId"`
	ExecutionID string                 `json:"executionId"`
	Metrics     engine.MetricsSnapshot `json:"metrics"`
	Timestamp   time.Time              `json:"timestamp"`
}

type retryEventPayload struct {
	NodeID      string `json:"nodeId"`
	ExecutionID string `json:"executionId"`
	Attempt     int    `json:"attempt"`
	Error       string `json:"error,omitempty"`
}

func (o *NATSObserver) OnDrop(ev engine.DropEvent) {
	o.publish(o.subject("drops", ev.NodeID), dropEventPayload{
		NodeID:             ev.NodeID,
		ExecutionID:        ev.ExecutionID,
		Policy:             string(ev.Policy),
		Kind:               string(ev.Kind),
		Capacity:           ev.Capacity,
		Depth:              ev.Depth,
		EnqueuedTotal:      ev.EnqueuedTotal,
		DroppedOldestTotal: ev.DroppedOldestTotal,
		DroppedNewestTotal: ev.DroppedNewestTotal,
	})
}

func (o *NATSObserver) OnQueueMetrics(ev engine.QueueMetricsEvent) {
	o.publish(o.subject("metrics", ev.NodeID), metricsEventPayload{
		NodeID:      ev.NodeID,
		ExecutionID: ev.ExecutionID,
		Metrics:     ev.Metrics,
		Timestamp:   ev.Timestamp,
	})
}

func (o *NATSObserver) OnRetry(ev engine.RetryEvent) {
	payload := retryEventPayload{
		NodeID:      ev.NodeID,
		ExecutionID: ev.ExecutionID,
		Attempt:     ev.Attempt,
	}
	if ev.Err != nil {
		payload.Error = ev.Err.Error()
	}
	o.publish(o.subject("retries", ev.NodeID), payload)
}

func (o *NATSObserver) subject(class, nodeID string) string {
	return fmt.Sprintf("%s.%s.%s", o.prefix, class, natsconn.Token(nodeID))
}

func (o *NATSObserver) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.Debug("Failed to marshal engine event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := o.pub.Publish(subject, data); err != nil {
		o.logger.Debug("Failed to publish engine event", zap.String("subject", subject), zap.Error(err))
	}
}
