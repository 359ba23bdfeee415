package engine

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// eventBufferSize bounds how many undelivered observer events may be
// pending before new ones are discarded.
const eventBufferSize = 256

// eventPump decouples observer dispatch from the processing hot path.
// Emitters enqueue without ever blocking; a single goroutine forwards
// events to the observer in order. A nil pump is valid and inert, which
// is how executions without an observer run.
type eventPump struct {
	observer Observer
	events   chan any
	dropped  atomic.Int64
	done     chan struct{}
	logger   *zap.Logger
}

// newEventPump starts the dispatch goroutine, or returns nil when there
// is no observer to feed.
func newEventPump(observer Observer, logger *zap.Logger) *eventPump {
	if observer == nil {
		return nil
	}
	p := &eventPump{
		observer: observer,
		events:   make(chan any, eventBufferSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go p.run()
	return p
}

func (p *eventPump) run() {
	defer close(p.done)
	for ev := range p.events {
		switch e := ev.(type) {
		case DropEvent:
			p.observer.OnDrop(e)
		case QueueMetricsEvent:
			p.observer.OnQueueMetrics(e)
		case RetryEvent:
			p.observer.OnRetry(e)
		}
	}
}

// emit enqueues an event without blocking. When the buffer is full the
// event is counted and discarded.
func (p *eventPump) emit(ev any) {
	if p == nil {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped.Add(1)
	}
}

// close stops the pump after the buffered events drain. All emitters must
// have stopped before it is called.
func (p *eventPump) close() {
	if p == nil {
		return
	}
	close(p.events)
	<-p.done
	if n := p.dropped.Load(); n > 0 {
		p.logger.Debug("observer events discarded under backpressure",
			zap.Int64("discarded", n),
		)
	}
}
