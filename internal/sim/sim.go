// Package sim runs the headless frame loop: it steps the fractal, renders it
// into instance buffers and keeps the hash grid in sync with the config.
package sim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/fractalviz/internal/config"
	"github.com/Faultbox/fractalviz/internal/fractal"
	"github.com/Faultbox/fractalviz/internal/hashgrid"
	"github.com/Faultbox/fractalviz/internal/parallel"
)

// Sim owns the tree, the grid and the sink they are drawn into.
type Sim struct {
	cfg     *config.Config
	log     *zap.Logger
	runner  parallel.Runner
	tree    *fractal.Tree
	grid    *hashgrid.Grid
	buffers fractal.InstanceBuffers
	frames  *FrameCounter
	now     func() time.Time
}

// New builds the tree and the grid from cfg.
func New(cfg *config.Config, log *zap.Logger) (*Sim, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sim{
		cfg:    cfg,
		log:    log,
		runner: parallel.New(cfg.Parallel.Workers),
		frames: NewFrameCounter(time.Second),
		now:    time.Now,
	}

	tree, err := fractal.Build(s.fractalConfig(), "fractal-mesh", "fractal-material",
		fractal.WithRunner(s.runner),
		fractal.WithBatchSize(cfg.Parallel.BatchSize),
		fractal.WithLogger(log.Named("fractal")))
	if err != nil {
		return nil, fmt.Errorf("building fractal: %w", err)
	}
	s.tree = tree

	if err := s.regenerateGrid(); err != nil {
		return nil, err
	}

	log.Info("simulation ready",
		zap.Int("depth", cfg.Fractal.Depth),
		zap.Int("parts", tree.PartCount()),
		zap.Int("resolution", cfg.Hash.Resolution),
		zap.Int32("seed", cfg.Hash.Seed))
	return s, nil
}

func (s *Sim) fractalConfig() fractal.Config {
	return fractal.Config{Depth: s.cfg.Fractal.Depth, SpinRate: s.cfg.Fractal.SpinRate}
}

func (s *Sim) regenerateGrid() error {
	grid, err := hashgrid.Generate(
		hashgrid.Config{Seed: s.cfg.Hash.Seed, Resolution: s.cfg.Hash.Resolution},
		hashgrid.WithRunner(s.runner),
		hashgrid.WithLogger(s.log.Named("hashgrid")))
	if err != nil {
		return fmt.Errorf("generating hash grid: %w", err)
	}
	s.grid = grid
	return nil
}

// Apply switches to a new configuration. The tree and grid are rebuilt from
// scratch when their settings change. On error nothing is changed.
// cfg must not alias the current config. Parallel settings are fixed at New.
func (s *Sim) Apply(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	prev := s.cfg
	s.cfg = cfg
	if cfg.Fractal != prev.Fractal {
		if err := s.tree.Reconfigure(s.fractalConfig()); err != nil {
			s.cfg = prev
			return err
		}
	}
	if cfg.Hash != prev.Hash {
		if err := s.regenerateGrid(); err != nil {
			s.cfg = prev
			return err
		}
	}
	return nil
}

// Tree returns the fractal.
func (s *Sim) Tree() *fractal.Tree {
	return s.tree
}

// Grid returns the current hash grid.
func (s *Sim) Grid() *hashgrid.Grid {
	return s.grid
}

// Buffers returns the instance buffers of the last rendered frame.
func (s *Sim) Buffers() *fractal.InstanceBuffers {
	return &s.buffers
}

// Frame advances one frame by dt.
func (s *Sim) Frame(dt time.Duration) {
	s.tree.Step(float32(dt.Seconds()))
	s.tree.Render(&s.buffers)
}

// Run steps frames until ctx is done or cfg.Run.Frames have been simulated.
// A zero FrameTime uses wall clock deltas.
func (s *Sim) Run(ctx context.Context) error {
	s.log.Info("starting frame loop",
		zap.Int("frames", s.cfg.Run.Frames),
		zap.Duration("frame_time", s.cfg.Run.FrameTime))

	last := s.now()
	for n := 0; s.cfg.Run.Frames == 0 || n < s.cfg.Run.Frames; n++ {
		if err := ctx.Err(); err != nil {
			s.log.Info("frame loop stopped", zap.Int("frames", n))
			return nil
		}

		now := s.now()
		dt := s.cfg.Run.FrameTime
		if dt == 0 {
			dt = now.Sub(last)
		}
		last = now

		start := s.now()
		s.Frame(dt)
		elapsed := s.now().Sub(start)

		if sample, ok := s.frames.Add(dt); ok {
			s.log.Debug("frame rate",
				zap.Float64("fps", sample.FPS()),
				zap.Float64("best", sample.BestFPS()),
				zap.Float64("worst", sample.WorstFPS()))
		}
		if every := s.cfg.Run.LogEvery; every > 0 && (n+1)%every == 0 {
			s.log.Info("frame",
				zap.Uint64("frame", s.tree.Frame()),
				zap.Duration("step", elapsed),
				zap.Int("instance_bytes", s.buffers.Bytes()))
		}
	}

	s.log.Info("frame loop finished", zap.Uint64("frames", s.tree.Frame()))
	return nil
}

// Close tears down the tree.
func (s *Sim) Close() {
	s.tree.Teardown()
}
