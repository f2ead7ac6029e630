package config

import (
	"fmt"

	"go.uber.org/multierr"
)

// ConfigError reports a value outside its supported range.
type ConfigError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s=%d out of range [%d, %d]", e.Field, e.Value, e.Min, e.Max)
}

// CheckRange returns a *ConfigError when value is outside [lo, hi].
func CheckRange(field string, value, lo, hi int) error {
	if value < lo || value > hi {
		return &ConfigError{Field: field, Value: value, Min: lo, Max: hi}
	}
	return nil
}

// CheckDepth validates a fractal depth.
func CheckDepth(depth int) error {
	return CheckRange("fractal.depth", depth, MinDepth, MaxDepth)
}

// CheckResolution validates a hash grid side length.
func CheckResolution(resolution int) error {
	return CheckRange("hash.resolution", resolution, MinResolution, MaxResolution)
}

// Validate checks every sized field and returns all failures combined.
func (c *Config) Validate() error {
	var err error
	err = multierr.Append(err, CheckDepth(c.Fractal.Depth))
	err = multierr.Append(err, CheckResolution(c.Hash.Resolution))
	err = multierr.Append(err, CheckRange("parallel.workers", c.Parallel.Workers, 0, 1024))
	err = multierr.Append(err, CheckRange("parallel.batch_size", c.Parallel.BatchSize, 1, 1<<20))
	err = multierr.Append(err, CheckRange("run.frames", c.Run.Frames, 0, 1<<31-1))
	return err
}
