package backoff

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoJitter_Apply(t *testing.T) {
	j := NoJitter{}
	assert.Equal(t, 123*time.Millisecond, j.Apply(123*time.Millisecond))
	assert.Equal(t, time.Duration(0), j.Apply(0))
	assert.Equal(t, -time.Second, j.Apply(-time.Second))
}

func TestFullJitter_Range(t *testing.T) {
	j := FullJitter{}
	base := 200 * time.Millisecond

	for i := 0; i < 1000; i++ {
		d := j.Apply(base)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, base)
	}

	assert.Equal(t, time.Duration(0), j.Apply(0))
	assert.Equal(t, time.Duration(0), j.Apply(-time.Second))
}

func TestEqualJitter_Range(t *testing.T) {
	j := EqualJitter{}
	base := 200 * time.Millisecond

	for i := 0; i < 1000; i++ {
		d := j.Apply(base)
		assert.GreaterOrEqual(t, d, base/2)
		assert.LessOrEqual(t, d, base)
	}

	assert.Equal(t, time.Duration(0), j.Apply(0))
}

func TestNewDecorrelatedJitter_Validation(t *testing.T) {
	tests := []struct {
		name        string
		max         time.Duration
		mult        float64
		wantErr     bool
		errContains string
	}{
		{name: "valid", max: 5 * time.Second, mult: 3.0},
		{name: "multiplier one", max: time.Second, mult: 1.0},
		{name: "zero max", max: 0, mult: 3.0, wantErr: true, errContains: "max must be positive"},
		{name: "multiplier below one", max: time.Second, mult: 0.9, wantErr: true, errContains: "multiplier must be >= 1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := NewDecorrelatedJitter(tt.max, tt.mult)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, j)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDecorrelatedJitter_FirstDrawBound(t *testing.T) {
	base := 100 * time.Millisecond
	max := 10 * time.Second

	// First draw is bounded by base*multiplier because prev seeds at base.
	for i := 0; i < 200; i++ {
		j, err := NewDecorrelatedJitter(max, 3.0)
		require.NoError(t, err)
		d := j.Apply(base)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestDecorrelatedJitter_CappedAtMax(t *testing.T) {
	max := 150 * time.Millisecond
	j, err := NewDecorrelatedJitter(max, 100.0)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		d := j.Apply(time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
}

func TestDecorrelatedJitter_ZeroBase(t *testing.T) {
	j, err := NewDecorrelatedJitter(time.Second, 3.0)
	require.NoError(t, err)

	assert.Equal(t, time.Duration(0), j.Apply(0))
	assert.Equal(t, time.Duration(0), j.Apply(-time.Millisecond))
	// The zero base must not seed the previous-delay state.
	assert.Equal(t, int64(-1), j.prev.Load())
}

func TestDecorrelatedJitter_ConcurrentDraws(t *testing.T) {
	max := 2 * time.Second
	j, err := NewDecorrelatedJitter(max, 3.0)
	require.NoError(t, err)

	const goroutines = 16
	const drawsPer = 200

	var wg sync.WaitGroup
	out := make(chan time.Duration, goroutines*drawsPer)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < drawsPer; i++ {
				out <- j.Apply(50 * time.Millisecond)
			}
		}()
	}
	wg.Wait()
	close(out)

	for d := range out {
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
}
