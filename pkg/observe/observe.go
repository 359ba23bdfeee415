// Package observe ships ready-made implementations of the engine Observer
// contract: structured logging, OpenTelemetry span enrichment and NATS event
// publishing, plus a fan-out combinator. The engine delivers events to
// observers on a dedicated goroutine and sheds them under pressure, so none
// of these can stall item processing.
package observe

import (
	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// MultiObserver fans each event out to every member observer in order.
type MultiObserver []engine.Observer

var _ engine.Observer = MultiObserver{}

// NewMultiObserver combines observers, skipping nils.
func NewMultiObserver(observers ...engine.Observer) MultiObserver {
	combined := make(MultiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			combined = append(combined, o)
		}
	}
	return combined
}

func (m MultiObserver) OnDrop(ev engine.DropEvent) {
	for _, o := range m {
		o.OnDrop(ev)
	}
}

func (m MultiObserver) OnQueueMetrics(ev engine.QueueMetricsEvent) {
	for _, o := range m {
		o.OnQueueMetrics(ev)
	}
}

func (m MultiObserver) OnRetry(ev engine.RetryEvent) {
	for _, o := range m {
		o.OnRetry(ev)
	}
}
