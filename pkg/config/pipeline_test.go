package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

const samplePipeline = `
global:
  retry:
    max_item_retries: 2
    backoff:
      kind: fixed
      delay: 100ms
nodes:
  ingest:
    max_parallelism: 4
    queue_policy: drop_newest
    max_queue_length: 32
    preserve_ordering: false
  enrich:
    max_parallelism: 8
    output_buffer_capacity: 16
    metrics_emission_interval: 250ms
    retry:
      max_item_retries: 5
      backoff:
        kind: exponential
        base: 50ms
        multiplier: 2.0
        max: 2s
      jitter:
        kind: full
  publish:
    queue_policy: block
`

func TestParsePipelineDocument(t *testing.T) {
	p, err := Parse([]byte(samplePipeline))
	require.NoError(t, err)
	require.Len(t, p.Nodes, 3)

	ingest := p.Nodes["ingest"]
	assert.Equal(t, 4, ingest.MaxParallelism)
	assert.Equal(t, "drop_newest", ingest.QueuePolicy)
	assert.Equal(t, 32, ingest.MaxQueueLength)
	require.NotNil(t, ingest.PreserveOrdering)
	assert.False(t, *ingest.PreserveOrdering)

	enrich := p.Nodes["enrich"]
	assert.Equal(t, 250*time.Millisecond, enrich.MetricsEmissionInterval.Duration)
	require.NotNil(t, enrich.Retry)
	assert.Equal(t, 5, enrich.Retry.MaxItemRetries)
	require.NotNil(t, enrich.Retry.Backoff)
	assert.Equal(t, 50*time.Millisecond, enrich.Retry.Backoff.Base.Duration)
	assert.Equal(t, 2.0, enrich.Retry.Backoff.Multiplier)

	require.NotNil(t, p.Global.Retry)
	assert.Equal(t, 2, p.Global.Retry.MaxItemRetries)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		errContains string
	}{
		{
			name:        "malformed yaml",
			doc:         "nodes:\n  - not-a-map",
			errContains: "parse pipeline",
		},
		{
			name:        "bad duration",
			doc:         "nodes:\n  n:\n    metrics_emission_interval: fast",
			errContains: "invalid duration",
		},
		{
			name:        "unknown queue policy",
			doc:         "nodes:\n  n:\n    queue_policy: sideways",
			errContains: "unknown queue policy",
		},
		{
			name:        "negative parallelism",
			doc:         "nodes:\n  n:\n    max_parallelism: -2",
			errContains: "max_parallelism",
		},
		{
			name:        "negative retries",
			doc:         "nodes:\n  n:\n    retry:\n      max_item_retries: -1",
			errContains: "max_item_retries",
		},
		{
			name:        "unknown backoff kind",
			doc:         "nodes:\n  n:\n    retry:\n      max_item_retries: 1\n      backoff:\n        kind: quadratic\n        base: 1s\n        max: 2s",
			errContains: "unknown kind",
		},
		{
			name:        "jitter without backoff",
			doc:         "nodes:\n  n:\n    retry:\n      max_item_retries: 1\n      jitter:\n        kind: full",
			errContains: "jitter requires a backoff block",
		},
		{
			name:        "invalid global retry",
			doc:         "global:\n  retry:\n    max_item_retries: 1\n    backoff:\n      kind: fixed\n      delay: -1s",
			errContains: "global retry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestResolveRetryPrecedence(t *testing.T) {
	p, err := Parse([]byte(samplePipeline))
	require.NoError(t, err)

	// Node block wins over global.
	enrich := p.ResolveRetry("enrich")
	require.NotNil(t, enrich)
	assert.Equal(t, 5, enrich.MaxItemRetries)

	// Nodes without a block fall back to global.
	ingest := p.ResolveRetry("ingest")
	require.NotNil(t, ingest)
	assert.Equal(t, 2, ingest.MaxItemRetries)

	// No global block means no retries.
	bare, err := Parse([]byte("nodes:\n  n: {}"))
	require.NoError(t, err)
	assert.Nil(t, bare.ResolveRetry("n"))
}

func TestNodeOptionsMaterialization(t *testing.T) {
	p, err := Parse([]byte(samplePipeline))
	require.NoError(t, err)

	opts, err := p.NodeOptions("enrich")
	require.NoError(t, err)
	assert.Equal(t, "enrich", opts.NodeID)
	assert.Equal(t, 8, opts.MaxParallelism)
	assert.Equal(t, engine.Block, opts.QueuePolicy)
	assert.True(t, opts.PreserveOrdering)
	assert.Equal(t, 16, opts.OutputBufferCapacity)
	assert.Equal(t, 250*time.Millisecond, opts.MetricsEmissionInterval)
	assert.Equal(t, 5, opts.MaxItemRetries)
	require.NotNil(t, opts.RetryDelay)

	opts, err = p.NodeOptions("ingest")
	require.NoError(t, err)
	assert.Equal(t, engine.DropNewest, opts.QueuePolicy)
	assert.Equal(t, 32, opts.MaxQueueLength)
	assert.False(t, opts.PreserveOrdering)
	// Global retry block applies.
	assert.Equal(t, 2, opts.MaxItemRetries)
	require.NotNil(t, opts.RetryDelay)
	assert.Equal(t, 100*time.Millisecond, opts.RetryDelay.GetDelay(0))

	_, err = p.NodeOptions("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not defined")
}

func TestNodeOptionsRejectsDropPolicyWithoutBound(t *testing.T) {
	p, err := Parse([]byte("nodes:\n  n:\n    queue_policy: drop_oldest"))
	require.NoError(t, err)

	_, err = p.NodeOptions("n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max queue length")
}

func TestLoadReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePipeline), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 3)

	_, err = Load(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)
}
