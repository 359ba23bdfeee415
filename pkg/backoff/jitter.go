package backoff

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"
)

// Jitter randomizes a base delay. Implementations must be safe for
// concurrent use: one instance is shared by every item of a node
// execution, including items retrying at the same moment.
type Jitter interface {
	Apply(base time.Duration) time.Duration
}

// NoJitter passes the base delay through unchanged.
type NoJitter struct{}

// Apply returns base as-is.
func (NoJitter) Apply(base time.Duration) time.Duration {
	return base
}

// FullJitter draws uniformly from [0, base].
type FullJitter struct{}

// Apply returns a uniform random delay in [0, base].
func (FullJitter) Apply(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(base) + 1))
}

// EqualJitter keeps half the base delay and randomizes the rest, yielding
// a delay in [base/2, base].
type EqualJitter struct{}

// Apply returns half the base plus a uniform random delay in [0, base/2].
func (EqualJitter) Apply(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	half := base / 2
	return half + time.Duration(rand.Int63n(int64(base-half)+1))
}

// DecorrelatedJitter draws uniformly from [0, min(max, prev*multiplier)],
// where prev is the delay drawn by the previous call. The bound wanders
// with the drawn values instead of tracking the attempt number, which
// decorrelates retries across items. Concurrently retrying items share
// one instance, so prev is maintained with a compare-and-swap loop.
type DecorrelatedJitter struct {
	max        time.Duration
	multiplier float64
	prev       atomic.Int64 // nanoseconds, negative until the first draw
}

// NewDecorrelatedJitter creates a decorrelated jitter. The cap must be
// positive and the multiplier at least 1.0.
func NewDecorrelatedJitter(max time.Duration, multiplier float64) (*DecorrelatedJitter, error) {
	if max <= 0 {
		return nil, fmt.Errorf("decorrelated jitter: max must be positive, got %v", max)
	}
	if multiplier < 1.0 {
		return nil, fmt.Errorf("decorrelated jitter: multiplier must be >= 1.0, got %v", multiplier)
	}
	j := &DecorrelatedJitter{max: max, multiplier: multiplier}
	j.prev.Store(-1)
	return j, nil
}

// Apply draws the next delay. The first call seeds the previous delay
// with base. A zero or negative base yields zero without consuming
// randomness.
func (j *DecorrelatedJitter) Apply(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	for {
		prev := j.prev.Load()
		last := prev
		if last < 0 {
			last = int64(base)
		}
		upper := time.Duration(float64(last) * j.multiplier)
		if upper > j.max || upper < 0 {
			upper = j.max
		}
		next := rand.Int63n(int64(upper) + 1)
		if j.prev.CompareAndSwap(prev, next) {
			return time.Duration(next)
		}
	}
}
