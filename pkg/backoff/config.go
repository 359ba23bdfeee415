package backoff

import (
	"fmt"
	"time"
)

// Kind selects a backoff curve.
type Kind string

const (
	KindFixed       Kind = "fixed"
	KindLinear      Kind = "linear"
	KindExponential Kind = "exponential"
)

// JitterKind selects a jitter function.
type JitterKind string

const (
	JitterNone         JitterKind = "none"
	JitterFull         JitterKind = "full"
	JitterEqual        JitterKind = "equal"
	JitterDecorrelated JitterKind = "decorrelated"
)

// Config parameterizes a backoff curve. Fields are interpreted per Kind:
// fixed uses Delay; linear uses Base, Increment and Max; exponential uses
// Base, Multiplier and Max.
type Config struct {
	Kind       Kind
	Delay      time.Duration
	Base       time.Duration
	Increment  time.Duration
	Multiplier float64
	Max        time.Duration
}

// Build constructs the configured curve, validating its parameters.
func (c Config) Build() (Backoff, error) {
	switch c.Kind {
	case KindFixed:
		return NewFixed(c.Delay)
	case KindLinear:
		return NewLinear(c.Base, c.Increment, c.Max)
	case KindExponential:
		return NewExponential(c.Base, c.Multiplier, c.Max)
	default:
		return nil, fmt.Errorf("backoff: unknown kind %q", c.Kind)
	}
}

// JitterConfig parameterizes a jitter function. Max and Multiplier apply
// to the decorrelated kind only. An empty kind means none.
type JitterConfig struct {
	Kind       JitterKind
	Max        time.Duration
	Multiplier float64
}

// Build constructs the configured jitter, validating its parameters.
func (c JitterConfig) Build() (Jitter, error) {
	switch c.Kind {
	case JitterNone, "":
		return NoJitter{}, nil
	case JitterFull:
		return FullJitter{}, nil
	case JitterEqual:
		return EqualJitter{}, nil
	case JitterDecorrelated:
		return NewDecorrelatedJitter(c.Max, c.Multiplier)
	default:
		return nil, fmt.Errorf("jitter: unknown kind %q", c.Kind)
	}
}

// FromConfig builds the composite delay strategy for a node's configured
// retry policy.
func FromConfig(c Config, jc JitterConfig) (*Strategy, error) {
	b, err := c.Build()
	if err != nil {
		return nil, err
	}
	j, err := jc.Build()
	if err != nil {
		return nil, err
	}
	return NewStrategy(b, j)
}
