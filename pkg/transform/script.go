package transform

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

const defaultScriptMaxReuse = 1000

// ScriptConfig configures a Script transform.
type ScriptConfig struct {
	// Source is JavaScript that must define a function transform(item)
	// returning the transformed item.
	Source string

	// PoolSize caps the number of virtual machines and therefore the number
	// of items the script processes concurrently. Defaults to
	// runtime.GOMAXPROCS(0).
	PoolSize int

	// MaxReuse recreates a VM after this many acquisitions, bounding the
	// damage a state-leaking script can do. Defaults to 1000.
	MaxReuse int
}

// Script runs a user-supplied JavaScript function once per item on a pooled
// set of goja VMs. The source is compiled once; each VM evaluates it at
// creation and keeps the resulting transform function. A VM serves one item
// at a time and context cancellation interrupts a running script.
type Script struct {
	program  *goja.Program
	pool     chan *scriptVM
	size     int
	maxReuse int

	created  atomic.Int64
	executed atomic.Int64
	recycled atomic.Int64

	mu     sync.Mutex
	closed bool
}

type scriptVM struct {
	rt    *goja.Runtime
	fn    goja.Callable
	reuse int
}

// NewScript compiles the source, spins up the VM pool and verifies every VM
// exposes a transform function.
func NewScript(cfg ScriptConfig) (*Script, error) {
	if cfg.Source == "" {
		return nil, fmt.Errorf("transform: script source is required")
	}
	size := cfg.PoolSize
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	maxReuse := cfg.MaxReuse
	if maxReuse <= 0 {
		maxReuse = defaultScriptMaxReuse
	}

	program, err := goja.Compile("transform.js", cfg.Source, true)
	if err != nil {
		return nil, fmt.Errorf("transform: script does not compile: %w", err)
	}

	s := &Script{
		program:  program,
		pool:     make(chan *scriptVM, size),
		size:     size,
		maxReuse: maxReuse,
	}

	for i := 0; i < size; i++ {
		vm, err := s.newVM()
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.pool <- vm
	}

	return s, nil
}

// Transform returns an engine-compatible transform executing the script per
// item.
func (s *Script) Transform() engine.Transform[any, any] {
	return s.Run
}

// Run executes the script's transform function against one item.
func (s *Script) Run(ctx context.Context, item any) (any, error) {
	vm, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}

	// Interrupt the VM if the context ends while the script runs.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			vm.rt.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	value, runErr := vm.fn(goja.Undefined(), vm.rt.ToValue(item))
	close(done)
	vm.rt.ClearInterrupt()

	if runErr != nil {
		var interrupted *goja.InterruptedError
		if errors.As(runErr, &interrupted) {
			// State of an interrupted VM is unknown; replace it.
			s.recycled.Add(1)
			s.replace()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("transform: script interrupted: %w", runErr)
		}
		s.release(vm)
		return nil, fmt.Errorf("transform: script failed: %w", runErr)
	}

	s.executed.Add(1)
	s.release(vm)
	return value.Export(), nil
}

// Close discards the pooled VMs. In-flight runs finish; their VMs are
// dropped on release.
func (s *Script) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for {
		select {
		case <-s.pool:
		default:
			return nil
		}
	}
}

// ScriptStats reports script pool activity.
type ScriptStats struct {
	PoolSize  int   `json:"pool_size"`
	Available int   `json:"available"`
	Created   int64 `json:"created"`
	Executed  int64 `json:"executed"`
	Recycled  int64 `json:"recycled"`
}

// Stats snapshots pool activity counters.
func (s *Script) Stats() ScriptStats {
	return ScriptStats{
		PoolSize:  s.size,
		Available: len(s.pool),
		Created:   s.created.Load(),
		Executed:  s.executed.Load(),
		Recycled:  s.recycled.Load(),
	}
}

func (s *Script) String() string {
	st := s.Stats()
	return fmt.Sprintf("Script Stats: Pool=%d, Available=%d, Created=%d, Executed=%d, Recycled=%d",
		st.PoolSize, st.Available, st.Created, st.Executed, st.Recycled)
}

func (s *Script) newVM() (*scriptVM, error) {
	rt := goja.New()
	rt.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	if _, err := rt.RunProgram(s.program); err != nil {
		return nil, fmt.Errorf("transform: script failed to initialize: %w", err)
	}

	fn, ok := goja.AssertFunction(rt.Get("transform"))
	if !ok {
		return nil, fmt.Errorf("transform: script must define a function transform(item)")
	}

	s.created.Add(1)
	return &scriptVM{rt: rt, fn: fn}, nil
}

func (s *Script) acquire(ctx context.Context) (*scriptVM, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("transform: script is closed")
	}

	select {
	case vm := <-s.pool:
		if !vm.healthy() {
			s.recycled.Add(1)
			return s.newVM()
		}
		vm.reuse++
		if vm.reuse >= s.maxReuse {
			s.recycled.Add(1)
			return s.newVM()
		}
		return vm, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Script) release(vm *scriptVM) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	select {
	case s.pool <- vm:
	default:
		// A replacement raced in; drop the surplus VM.
	}
}

// replace refills the slot left by a destroyed VM, best effort.
func (s *Script) replace() {
	vm, err := s.newVM()
	if err != nil {
		return
	}
	s.release(vm)
}

// healthy probes the VM with a trivial expression.
func (vm *scriptVM) healthy() bool {
	if vm == nil || vm.rt == nil {
		return false
	}
	_, err := vm.rt.RunString("1+1")
	return err == nil
}
