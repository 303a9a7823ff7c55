// Package scheduler plans action batches and runs them on a bounded worker
// pool.
package scheduler

import "github.com/fentz26/orbit/internal/config"

// Config defines the scheduler configuration.
type Config struct {
	// MaxConcurrency is the maximum number of actions running at once.
	MaxConcurrency int `yaml:"max_concurrency"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{MaxConcurrency: 4}
}

// FromRunnerConfig derives the scheduler configuration from the workspace
// runner settings.
func FromRunnerConfig(rc config.RunnerConfig) *Config {
	cfg := DefaultConfig()
	if rc.MaxConcurrency > 0 {
		cfg.MaxConcurrency = rc.MaxConcurrency
	}
	return cfg
}

// limit returns the worker limit, never less than one.
func (c *Config) limit() int {
	if c == nil || c.MaxConcurrency < 1 {
		return 1
	}
	return c.MaxConcurrency
}
