package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// Source indicates where a resolved configuration value came from.
type Source string

const (
	SourceEnvVar     Source = "environment_variable"
	SourceAutoDetect Source = "auto_detect"
	SourceDefault    Source = "default"
)

// EnvConfig holds execution defaults resolved from the process
// environment.
type EnvConfig struct {
	MaxParallelism int
	QueueLength    int
	Source         Source
	IsKubernetes   bool
	EffectiveCPUs  int
}

// LoadEnv resolves engine defaults with priority: env vars >
// auto-detection > defaults. DAEDALUS_MAX_PARALLELISM pins the worker
// count outright; DAEDALUS_PARALLELISM_MULTIPLIER scales the effective
// CPU count instead. Inside Kubernetes the auto-detected value stays
// conservative since GOMAXPROCS already reflects container CPU limits.
func LoadEnv() *EnvConfig {
	cfg := &EnvConfig{}

	cfg.IsKubernetes = isKubernetes()
	cfg.EffectiveCPUs = runtime.GOMAXPROCS(0)

	if par := getEnvInt("DAEDALUS_MAX_PARALLELISM", 0); par > 0 {
		cfg.MaxParallelism = par
		cfg.Source = SourceEnvVar
	} else if mult := getEnvInt("DAEDALUS_PARALLELISM_MULTIPLIER", 0); mult > 0 {
		cfg.MaxParallelism = cfg.EffectiveCPUs * mult
		cfg.Source = SourceEnvVar
	} else {
		cfg.MaxParallelism = defaultParallelism(cfg.IsKubernetes, cfg.EffectiveCPUs)
		cfg.Source = SourceAutoDetect
	}

	// Ensure minimum value
	if cfg.MaxParallelism < 1 {
		cfg.MaxParallelism = 1
	}

	if qlen := getEnvInt("DAEDALUS_QUEUE_LENGTH", 0); qlen > 0 {
		cfg.QueueLength = qlen
	}

	return cfg
}

// Apply fills unset execution options from the environment defaults and
// returns the result. Explicitly set options always win.
func (c *EnvConfig) Apply(opts engine.Options) engine.Options {
	if opts.MaxParallelism == 0 {
		opts.MaxParallelism = c.MaxParallelism
	}
	if opts.MaxQueueLength == 0 && c.QueueLength > 0 {
		opts.MaxQueueLength = c.QueueLength
	}
	return opts
}

// String returns a formatted representation for startup logs.
func (c *EnvConfig) String() string {
	return fmt.Sprintf(
		"EnvConfig{MaxParallelism: %d, QueueLength: %d, IsK8s: %t, CPUs: %d, Source: %s}",
		c.MaxParallelism,
		c.QueueLength,
		c.IsKubernetes,
		c.EffectiveCPUs,
		c.Source,
	)
}

// isKubernetes detects if the application is running in Kubernetes
func isKubernetes() bool {
	// Kubernetes sets this environment variable in all containers
	return os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}

// defaultParallelism returns sensible defaults based on environment
func defaultParallelism(isK8s bool, cpus int) int {
	if isK8s {
		// Conservative for Kubernetes to prevent resource exhaustion
		return cpus * 2
	}
	// More aggressive for bare metal
	return cpus * 4
}

// getEnvInt retrieves an integer from environment variable with default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
