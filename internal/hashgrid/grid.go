// Package hashgrid fills a square grid with SmallXXHash values, one per
// cell, keyed by the cell's centred integer coordinates.
package hashgrid

import (
	"go.uber.org/zap"

	"github.com/Faultbox/fractalviz/internal/config"
	"github.com/Faultbox/fractalviz/internal/parallel"
	"github.com/Faultbox/fractalviz/pkg/smallxxhash"
)

// Config selects the seed and grid side length.
type Config struct {
	Seed       int32
	Resolution int
}

// Validate reports a *config.ConfigError when Resolution is unsupported.
func (c Config) Validate() error {
	return config.CheckResolution(c.Resolution)
}

// Coord maps a flat cell index to coordinates centred on the grid middle.
// Division truncates, so for resolution 4 index 0 is (-2, -2) and index 15
// is (1, 1).
func Coord(idx, resolution int) (u, v int) {
	row := idx / resolution
	return idx - resolution*row - resolution/2, row - resolution/2
}

// Index is the inverse of Coord.
func Index(u, v, resolution int) int {
	return (v+resolution/2)*resolution + u + resolution/2
}

// CellHash returns the hash of cell (u, v) for seed.
func CellHash(seed int32, u, v int) uint32 {
	return smallxxhash.Seed(seed).Eat(int32(u)).Eat(int32(v)).Value()
}

// Grid holds one hash per cell in row-major order.
type Grid struct {
	seed       int32
	resolution int
	hashes     []uint32
}

type options struct {
	runner parallel.Runner
	log    *zap.Logger
}

// Option configures Generate.
type Option func(*options)

// WithRunner sets the runner cells are spread across. Default is parallel.Serial.
func WithRunner(r parallel.Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// Generate builds a new grid. Each row is one work item; cells depend only
// on (seed, u, v), so the result is the same for any runner.
func Generate(cfg Config, opts ...Option) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{runner: parallel.Serial{}, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	r := cfg.Resolution
	g := &Grid{
		seed:       cfg.Seed,
		resolution: r,
		hashes:     make([]uint32, r*r),
	}

	o.runner.For(len(g.hashes), r, func(start, end int) {
		for i := start; i < end; i++ {
			u, v := Coord(i, r)
			g.hashes[i] = CellHash(cfg.Seed, u, v)
		}
	})

	o.log.Debug("hash grid generated",
		zap.Int32("seed", cfg.Seed),
		zap.Int("resolution", r),
		zap.Int("cells", len(g.hashes)))
	return g, nil
}

// Seed returns the seed the grid was generated with.
func (g *Grid) Seed() int32 {
	return g.seed
}

// Resolution returns the side length.
func (g *Grid) Resolution() int {
	return g.resolution
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	return len(g.hashes)
}

// Hash returns the hash of cell idx.
func (g *Grid) Hash(idx int) uint32 {
	return g.hashes[idx]
}

// At returns the hash at centred coordinates (u, v). ok is false outside the grid.
func (g *Grid) At(u, v int) (hash uint32, ok bool) {
	half := g.resolution / 2
	if u < -half || u >= g.resolution-half || v < -half || v >= g.resolution-half {
		return 0, false
	}
	return g.hashes[Index(u, v, g.resolution)], true
}

// Hashes returns a copy of every cell hash.
func (g *Grid) Hashes() []uint32 {
	return append([]uint32(nil), g.hashes...)
}

// CopyHashes copies the hashes into dst, reusing its capacity.
func (g *Grid) CopyHashes(dst []uint32) []uint32 {
	return append(dst[:0], g.hashes...)
}

// Value returns the low byte of cell idx's hash scaled to [0, 1].
func (g *Grid) Value(idx int) float32 {
	return float32(g.hashes[idx]&255) / 255
}

// Values writes Value for every cell into dst, reusing its capacity.
func (g *Grid) Values(dst []float32) []float32 {
	dst = dst[:0]
	for i := range g.hashes {
		dst = append(dst, g.Value(i))
	}
	return dst
}
