// Package config resolves execution options from the process environment
// and from YAML pipeline documents. Retry policy follows a strict
// per-node > global > default precedence, resolved once per
// node-execution rather than per item.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wehubfusion/Daedalus/pkg/backoff"
	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// Duration wraps time.Duration so YAML documents can use values like
// "250ms" or "1m30s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("config: duration must be a string like \"250ms\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// BackoffSpec parameterizes a backoff curve in a pipeline document.
type BackoffSpec struct {
	Kind       string   `yaml:"kind"`
	Delay      Duration `yaml:"delay,omitempty"`
	Base       Duration `yaml:"base,omitempty"`
	Increment  Duration `yaml:"increment,omitempty"`
	Multiplier float64  `yaml:"multiplier,omitempty"`
	Max        Duration `yaml:"max,omitempty"`
}

func (s *BackoffSpec) toConfig() backoff.Config {
	return backoff.Config{
		Kind:       backoff.Kind(s.Kind),
		Delay:      s.Delay.Duration,
		Base:       s.Base.Duration,
		Increment:  s.Increment.Duration,
		Multiplier: s.Multiplier,
		Max:        s.Max.Duration,
	}
}

// JitterSpec parameterizes a jitter function in a pipeline document.
type JitterSpec struct {
	Kind       string   `yaml:"kind"`
	Max        Duration `yaml:"max,omitempty"`
	Multiplier float64  `yaml:"multiplier,omitempty"`
}

func (s *JitterSpec) toConfig() backoff.JitterConfig {
	return backoff.JitterConfig{
		Kind:       backoff.JitterKind(s.Kind),
		Max:        s.Max.Duration,
		Multiplier: s.Multiplier,
	}
}

// RetrySpec is one retry policy block. Blocks are taken whole: a node
// block replaces the global block entirely, fields are never merged
// across levels.
type RetrySpec struct {
	MaxItemRetries int          `yaml:"max_item_retries"`
	Backoff        *BackoffSpec `yaml:"backoff,omitempty"`
	Jitter         *JitterSpec  `yaml:"jitter,omitempty"`
}

// Build constructs the retry cap and delay strategy. A nil spec means no
// retries; a spec without a backoff block retries immediately.
func (s *RetrySpec) Build() (int, *backoff.Strategy, error) {
	if s == nil {
		return 0, nil, nil
	}
	if s.MaxItemRetries < 0 {
		return 0, nil, fmt.Errorf("max_item_retries must be non-negative, got %d", s.MaxItemRetries)
	}
	if s.Backoff == nil {
		if s.Jitter != nil {
			return 0, nil, fmt.Errorf("jitter requires a backoff block")
		}
		return s.MaxItemRetries, nil, nil
	}
	jc := backoff.JitterConfig{}
	if s.Jitter != nil {
		jc = s.Jitter.toConfig()
	}
	strategy, err := backoff.FromConfig(s.Backoff.toConfig(), jc)
	if err != nil {
		return 0, nil, err
	}
	return s.MaxItemRetries, strategy, nil
}

// NodeSpec is the per-node execution configuration. Zero-valued fields
// fall back to engine defaults; PreserveOrdering is a pointer so an
// explicit false survives parsing.
type NodeSpec struct {
	MaxParallelism          int        `yaml:"max_parallelism,omitempty"`
	QueuePolicy             string     `yaml:"queue_policy,omitempty"`
	MaxQueueLength          int        `yaml:"max_queue_length,omitempty"`
	OutputBufferCapacity    int        `yaml:"output_buffer_capacity,omitempty"`
	PreserveOrdering        *bool      `yaml:"preserve_ordering,omitempty"`
	MetricsEmissionInterval Duration   `yaml:"metrics_emission_interval,omitempty"`
	Retry                   *RetrySpec `yaml:"retry,omitempty"`
}

// GlobalSpec holds pipeline-wide fallbacks.
type GlobalSpec struct {
	Retry *RetrySpec `yaml:"retry,omitempty"`
}

// Pipeline is a parsed pipeline document mapping node IDs to their
// execution configuration.
type Pipeline struct {
	Global GlobalSpec          `yaml:"global"`
	Nodes  map[string]NodeSpec `yaml:"nodes"`
}

// Load reads and parses a pipeline document from disk.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses and validates a pipeline document.
func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parse pipeline: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks every node and retry block so configuration errors
// surface at load time, not mid-execution.
func (p *Pipeline) Validate() error {
	if _, _, err := p.Global.Retry.Build(); err != nil {
		return fmt.Errorf("config: global retry: %w", err)
	}
	for id, spec := range p.Nodes {
		if spec.QueuePolicy != "" {
			switch engine.QueuePolicy(spec.QueuePolicy) {
			case engine.Block, engine.DropOldest, engine.DropNewest:
			default:
				return fmt.Errorf("config: node %q: unknown queue policy %q", id, spec.QueuePolicy)
			}
		}
		if spec.MaxParallelism < 0 {
			return fmt.Errorf("config: node %q: max_parallelism must be non-negative, got %d", id, spec.MaxParallelism)
		}
		if spec.MaxQueueLength < 0 {
			return fmt.Errorf("config: node %q: max_queue_length must be non-negative, got %d", id, spec.MaxQueueLength)
		}
		if spec.OutputBufferCapacity < 0 {
			return fmt.Errorf("config: node %q: output_buffer_capacity must be non-negative, got %d", id, spec.OutputBufferCapacity)
		}
		if spec.Retry != nil {
			if _, _, err := spec.Retry.Build(); err != nil {
				return fmt.Errorf("config: node %q retry: %w", id, err)
			}
		}
	}
	return nil
}

// ResolveRetry returns the retry block effective for a node: the node's
// own when present, otherwise the global one, otherwise nil.
func (p *Pipeline) ResolveRetry(nodeID string) *RetrySpec {
	if spec, ok := p.Nodes[nodeID]; ok && spec.Retry != nil {
		return spec.Retry
	}
	return p.Global.Retry
}

// NodeOptions materializes validated engine options for one node,
// applying the retry precedence and engine defaults.
func (p *Pipeline) NodeOptions(nodeID string) (engine.Options, error) {
	spec, ok := p.Nodes[nodeID]
	if !ok {
		return engine.Options{}, fmt.Errorf("config: node %q not defined in pipeline", nodeID)
	}

	opts := engine.DefaultOptions().WithNodeID(nodeID)
	if spec.MaxParallelism > 0 {
		opts.MaxParallelism = spec.MaxParallelism
	}
	if spec.QueuePolicy != "" {
		opts.QueuePolicy = engine.QueuePolicy(spec.QueuePolicy)
	}
	if spec.MaxQueueLength > 0 {
		opts.MaxQueueLength = spec.MaxQueueLength
	}
	if spec.OutputBufferCapacity > 0 {
		opts.OutputBufferCapacity = spec.OutputBufferCapacity
	}
	if spec.PreserveOrdering != nil {
		opts.PreserveOrdering = *spec.PreserveOrdering
	}
	if spec.MetricsEmissionInterval.Duration > 0 {
		opts.MetricsEmissionInterval = spec.MetricsEmissionInterval.Duration
	}

	maxRetries, strategy, err := p.ResolveRetry(nodeID).Build()
	if err != nil {
		return engine.Options{}, fmt.Errorf("config: node %q retry: %w", nodeID, err)
	}
	opts.MaxItemRetries = maxRetries
	opts.RetryDelay = strategy

	if err := opts.Validate(); err != nil {
		return engine.Options{}, fmt.Errorf("config: node %q: %w", nodeID, err)
	}
	return opts, nil
}
