package engine

import (
	"fmt"
	"runtime"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/backoff"
)

// QueuePolicy selects how the admission queue behaves once it is full.
type QueuePolicy string

const (
	// Block suspends the producer until a slot frees. Nothing is dropped.
	Block QueuePolicy = "block"
	// DropOldest evicts buffered items to make room for incoming ones.
	DropOldest QueuePolicy = "drop_oldest"
	// DropNewest discards incoming items while the queue is full.
	DropNewest QueuePolicy = "drop_newest"
)

const (
	// DefaultQueueLength is the admission queue capacity used under Block
	// when none is configured.
	DefaultQueueLength = 1024

	// DefaultMetricsEmissionInterval is the period between queue metrics
	// events when an observer is configured.
	DefaultMetricsEmissionInterval = time.Second
)

// Options configures a single node-execution. Construct with
// DefaultOptions and adjust through the WithX builders or direct field
// access. Execute resolves the options exactly once, before any goroutine
// starts; invalid values fail fast rather than surfacing mid-run.
type Options struct {
	// NodeID identifies the pipeline node in logs, events and dead
	// letters.
	NodeID string

	// MaxParallelism is the number of concurrent workers draining the
	// admission queue. Zero uses the runtime's available parallelism.
	MaxParallelism int

	// MaxQueueLength bounds the admission queue. Zero selects
	// DefaultQueueLength under Block; drop policies require an explicit
	// positive bound because the bound is what defines their behavior.
	MaxQueueLength int

	// QueuePolicy selects the overflow behavior. Defaults to Block.
	QueuePolicy QueuePolicy

	// OutputBufferCapacity bounds how many completed results may
	// accumulate ahead of downstream consumption. Zero derives the
	// capacity from MaxParallelism.
	OutputBufferCapacity int

	// PreserveOrdering reassembles results into input arrival order.
	// Only effective under Block; drop policies always produce
	// unordered output.
	PreserveOrdering bool

	// MetricsEmissionInterval is the period of QueueMetricsEvents
	// delivered to the observer. Defaults to one second.
	MetricsEmissionInterval time.Duration

	// MaxItemRetries caps how many times a single item may be retried.
	// Zero disables retries: a Retry decision exhausts immediately.
	MaxItemRetries int

	// RetryDelay is the strategy awaited between attempts of the same
	// item. Nil retries immediately with no delay.
	RetryDelay *backoff.Strategy

	// ErrorHandler decides the outcome of each failed attempt. Nil
	// fails the execution on the first error.
	ErrorHandler ErrorHandler

	// DeadLetter receives items the handler routes away from the
	// output. Sink errors are logged, never fatal.
	DeadLetter DeadLetterSink

	// Observer receives drop, retry and queue-metrics events. A slow
	// observer loses events, it never stalls item processing.
	Observer Observer

	// Logger receives structured execution logs. Nil disables logging.
	Logger *zap.Logger

	// Clock abstracts time for retry delays and metrics emission.
	// Nil uses the real clock.
	Clock quartz.Clock
}

// DefaultOptions returns the baseline configuration: blocking admission
// with ordered output and one-second metrics emission.
func DefaultOptions() Options {
	return Options{
		QueuePolicy:             Block,
		PreserveOrdering:        true,
		MetricsEmissionInterval: DefaultMetricsEmissionInterval,
	}
}

// WithNodeID sets the node identifier used in logs and events.
func (o Options) WithNodeID(id string) Options {
	o.NodeID = id
	return o
}

// WithMaxParallelism sets the worker count.
func (o Options) WithMaxParallelism(n int) Options {
	o.MaxParallelism = n
	return o
}

// WithQueuePolicy sets the admission overflow policy.
func (o Options) WithQueuePolicy(p QueuePolicy) Options {
	o.QueuePolicy = p
	return o
}

// WithMaxQueueLength bounds the admission queue.
func (o Options) WithMaxQueueLength(n int) Options {
	o.MaxQueueLength = n
	return o
}

// WithOutputBufferCapacity bounds the completed-result backlog.
func (o Options) WithOutputBufferCapacity(n int) Options {
	o.OutputBufferCapacity = n
	return o
}

// WithPreserveOrdering toggles input-order reassembly of results.
func (o Options) WithPreserveOrdering(preserve bool) Options {
	o.PreserveOrdering = preserve
	return o
}

// WithMetricsEmissionInterval sets the queue metrics event period.
func (o Options) WithMetricsEmissionInterval(d time.Duration) Options {
	o.MetricsEmissionInterval = d
	return o
}

// WithRetries sets the per-item retry cap and the delay strategy awaited
// between attempts. A nil strategy retries immediately.
func (o Options) WithRetries(max int, delay *backoff.Strategy) Options {
	o.MaxItemRetries = max
	o.RetryDelay = delay
	return o
}

// WithErrorHandler sets the per-failure decision callback.
func (o Options) WithErrorHandler(h ErrorHandler) Options {
	o.ErrorHandler = h
	return o
}

// WithDeadLetter sets the sink receiving dead-lettered items.
func (o Options) WithDeadLetter(sink DeadLetterSink) Options {
	o.DeadLetter = sink
	return o
}

// WithObserver sets the event observer.
func (o Options) WithObserver(obs Observer) Options {
	o.Observer = obs
	return o
}

// WithLogger sets the structured logger.
func (o Options) WithLogger(logger *zap.Logger) Options {
	o.Logger = logger
	return o
}

// WithClock injects the time source.
func (o Options) WithClock(clock quartz.Clock) Options {
	o.Clock = clock
	return o
}

// Validate checks the configuration and applies defaults for unset
// fields. It is called by Execute; calling it directly is only useful to
// surface configuration errors earlier.
func (o *Options) Validate() error {
	if o.QueuePolicy == "" {
		o.QueuePolicy = Block
	}
	switch o.QueuePolicy {
	case Block, DropOldest, DropNewest:
	default:
		return fmt.Errorf("engine: unknown queue policy %q", o.QueuePolicy)
	}

	if o.MaxParallelism < 0 {
		return fmt.Errorf("engine: max parallelism must be non-negative, got %d", o.MaxParallelism)
	}
	if o.MaxParallelism == 0 {
		o.MaxParallelism = runtime.GOMAXPROCS(0)
	}

	if o.MaxQueueLength < 0 {
		return fmt.Errorf("engine: max queue length must be positive when set, got %d", o.MaxQueueLength)
	}
	if o.MaxQueueLength == 0 {
		if o.QueuePolicy != Block {
			return fmt.Errorf("engine: queue policy %s requires an explicit max queue length", o.QueuePolicy)
		}
		o.MaxQueueLength = DefaultQueueLength
	}

	if o.OutputBufferCapacity < 0 {
		return fmt.Errorf("engine: output buffer capacity must be positive when set, got %d", o.OutputBufferCapacity)
	}
	if o.OutputBufferCapacity == 0 {
		o.OutputBufferCapacity = 2 * o.MaxParallelism
	}

	if o.MetricsEmissionInterval < 0 {
		return fmt.Errorf("engine: metrics emission interval must be positive, got %v", o.MetricsEmissionInterval)
	}
	if o.MetricsEmissionInterval == 0 {
		o.MetricsEmissionInterval = DefaultMetricsEmissionInterval
	}

	if o.MaxItemRetries < 0 {
		return fmt.Errorf("engine: max item retries must be non-negative, got %d", o.MaxItemRetries)
	}

	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	return nil
}

// ordered reports whether this configuration reassembles output into
// arrival order. Drop policies cannot preserve ordering because admission
// itself discards or displaces items.
func (o *Options) ordered() bool {
	return o.PreserveOrdering && o.QueuePolicy == Block
}
