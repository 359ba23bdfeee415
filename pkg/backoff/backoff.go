// Package backoff implements the retry delay subsystem of the execution
// engine: backoff curves that map a retry attempt number to a base delay,
// jitter functions that randomize those delays to avoid synchronized retry
// storms, and the composite strategy the retry orchestrator consults
// between attempts.
//
// All parameters are validated at construction time. Curves and jitters
// never fail once built.
package backoff

import (
	"fmt"
	"math"
	"time"
)

// Backoff maps a zero-based retry attempt number to a base delay.
// Implementations are pure and safe for concurrent use. Negative attempt
// numbers always yield zero.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// Fixed returns the same delay for every attempt.
type Fixed struct {
	delay time.Duration
}

// NewFixed creates a fixed backoff. The delay must be positive.
func NewFixed(delay time.Duration) (*Fixed, error) {
	if delay <= 0 {
		return nil, fmt.Errorf("fixed backoff: delay must be positive, got %v", delay)
	}
	return &Fixed{delay: delay}, nil
}

// Delay returns the configured delay for any non-negative attempt.
func (b *Fixed) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	return b.delay
}

// Linear grows the delay by a fixed increment per attempt, capped at max:
// base + increment*attempt.
type Linear struct {
	base      time.Duration
	increment time.Duration
	max       time.Duration
}

// NewLinear creates a linear backoff. The base must be positive, the
// increment non-negative, and max at least the base.
func NewLinear(base, increment, max time.Duration) (*Linear, error) {
	if base <= 0 {
		return nil, fmt.Errorf("linear backoff: base must be positive, got %v", base)
	}
	if increment < 0 {
		return nil, fmt.Errorf("linear backoff: increment must be non-negative, got %v", increment)
	}
	if max < base {
		return nil, fmt.Errorf("linear backoff: max %v is below base %v", max, base)
	}
	return &Linear{base: base, increment: increment, max: max}, nil
}

// Delay returns base + increment*attempt, capped at max.
func (b *Linear) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	delay := b.base + time.Duration(attempt)*b.increment
	if delay > b.max || delay < b.base {
		// second clause catches wraparound for very large attempts
		delay = b.max
	}
	return delay
}

// Exponential multiplies the delay per attempt, capped at max:
// base * multiplier^attempt.
type Exponential struct {
	base       time.Duration
	multiplier float64
	max        time.Duration
}

// NewExponential creates an exponential backoff. The base must be
// positive, the multiplier at least 1.0, and max at least the base.
func NewExponential(base time.Duration, multiplier float64, max time.Duration) (*Exponential, error) {
	if base <= 0 {
		return nil, fmt.Errorf("exponential backoff: base must be positive, got %v", base)
	}
	if multiplier < 1.0 {
		return nil, fmt.Errorf("exponential backoff: multiplier must be >= 1.0, got %v", multiplier)
	}
	if max < base {
		return nil, fmt.Errorf("exponential backoff: max %v is below base %v", max, base)
	}
	return &Exponential{base: base, multiplier: multiplier, max: max}, nil
}

// Delay returns base * multiplier^attempt, capped at max.
func (b *Exponential) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	delay := float64(b.base) * math.Pow(b.multiplier, float64(attempt))
	if delay >= float64(b.max) {
		return b.max
	}
	return time.Duration(delay)
}
