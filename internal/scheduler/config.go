// Package scheduler drives a workflow on a fixed tick interval.
package scheduler

import (
	"fmt"
	"time"
)

// Config defines the tick driver configuration.
type Config struct {
	// Interval is the wall-clock time between ticks.
	Interval time.Duration `yaml:"interval"`
	// MaxTicks stops the driver after that many ticks. Zero runs until stopped.
	MaxTicks uint64 `yaml:"max_ticks"`
	// StartPaused leaves the driver paused until Resume is called.
	StartPaused bool `yaml:"start_paused"`
}

// DefaultConfig returns the default driver configuration: one tick per second.
func DefaultConfig() *Config {
	return &Config{
		Interval: time.Second,
	}
}

// Validate checks the driver configuration.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", c.Interval)
	}
	return nil
}
