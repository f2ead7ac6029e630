// Package config handles fractal and hash grid configuration loading and management.
package config

import "time"

// Supported ranges for values that size allocations.
const (
	MinDepth      = 1
	MaxDepth      = 8
	MinResolution = 1
	MaxResolution = 512
)

// Config holds all settings.
type Config struct {
	Fractal  FractalConfig  `yaml:"fractal"`
	Hash     HashConfig     `yaml:"hash"`
	Parallel ParallelConfig `yaml:"parallel"`
	Run      RunConfig      `yaml:"run"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// FractalConfig holds tree shape and animation settings.
type FractalConfig struct {
	Depth    int     `yaml:"depth"`
	SpinRate float32 `yaml:"spin_rate"` // Multiples of pi radians per second
}

// HashConfig holds hash grid settings.
type HashConfig struct {
	Seed       int32 `yaml:"seed"`
	Resolution int   `yaml:"resolution"` // Grid side length
}

// ParallelConfig holds worker pool settings.
type ParallelConfig struct {
	Workers   int `yaml:"workers"`    // 0 uses GOMAXPROCS, 1 runs serially
	BatchSize int `yaml:"batch_size"` // Parts per work item in the fractal update
}

// RunConfig holds frame loop settings for the simulator.
type RunConfig struct {
	Frames    int           `yaml:"frames"`     // 0 runs until interrupted
	FrameTime time.Duration `yaml:"frame_time"` // 0 uses wall clock deltas
	LogEvery  int           `yaml:"log_every"`  // Frames between stats lines
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Fractal: FractalConfig{
			Depth:    4,
			SpinRate: 0.125,
		},
		Hash: HashConfig{
			Seed:       0,
			Resolution: 16,
		},
		Parallel: ParallelConfig{
			Workers:   0,
			BatchSize: 5,
		},
		Run: RunConfig{
			Frames:    600,
			FrameTime: time.Second / 60,
			LogEvery:  60,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
