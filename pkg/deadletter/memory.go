package deadletter

import (
	"context"
	"sync"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// DefaultMemoryCapacity bounds a MemorySink when no capacity is given.
const DefaultMemoryCapacity = 256

// MemorySink keeps the most recent dead letters in a bounded buffer, evicting
// the oldest once full. Suited to tests and small pipelines where inspection
// matters more than durability.
type MemorySink struct {
	mu       sync.Mutex
	capacity int
	letters  []engine.DeadLetter
}

var _ Sink = (*MemorySink)(nil)

// NewMemorySink creates a sink retaining at most capacity letters. A
// non-positive capacity falls back to DefaultMemoryCapacity.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemorySink{capacity: capacity}
}

// Write records the letter, evicting the oldest entry when full.
func (s *MemorySink) Write(_ context.Context, letter engine.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.letters) == s.capacity {
		copy(s.letters, s.letters[1:])
		s.letters[len(s.letters)-1] = letter
		return nil
	}

	s.letters = append(s.letters, letter)
	return nil
}

// Letters returns a copy of the retained letters, oldest first.
func (s *MemorySink) Letters() []engine.DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]engine.DeadLetter, len(s.letters))
	copy(out, s.letters)
	return out
}

// Len reports how many letters are currently retained.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.letters)
}
