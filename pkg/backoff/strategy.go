package backoff

import (
	"errors"
	"time"
)

// Strategy composes a backoff curve with a jitter function. One instance
// is built per configured node policy and reused for every item and
// attempt of that node's execution.
type Strategy struct {
	backoff Backoff
	jitter  Jitter
}

// NewStrategy combines a backoff curve with a jitter function. A nil
// jitter means no jitter.
func NewStrategy(b Backoff, j Jitter) (*Strategy, error) {
	if b == nil {
		return nil, errors.New("strategy: backoff is required")
	}
	if j == nil {
		j = NoJitter{}
	}
	return &Strategy{backoff: b, jitter: j}, nil
}

// GetDelay returns the jittered delay to wait before the given attempt.
func (s *Strategy) GetDelay(attempt int) time.Duration {
	return s.jitter.Apply(s.backoff.Delay(attempt))
}
