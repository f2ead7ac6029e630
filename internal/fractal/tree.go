// Package fractal animates a fixed-depth, five-way branching tree of rigid
// transforms and packs every part's pose into an instance matrix.
//
// Parts are stored level by level in flat slices. Part i of level L hangs
// off part i/5 of level L-1, and i%5 selects its direction and rotation.
// A step resolves levels strictly top down; parts inside a level are
// independent and are spread across a parallel.Runner.
package fractal

import (
	"sync"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/fractalviz/internal/config"
	"github.com/Faultbox/fractalviz/internal/parallel"
	"github.com/Faultbox/fractalviz/pkg/math"
)

const twoPi = 2 * math32.Pi

// Config describes the tree shape and animation.
type Config struct {
	Depth    int
	SpinRate float32 // Multiples of pi radians per second
}

// DefaultConfig returns a depth 4 tree spinning at 0.125 pi rad/s.
func DefaultConfig() Config {
	return Config{Depth: 4, SpinRate: 0.125}
}

// Validate reports a *config.ConfigError when Depth is unsupported.
func (c Config) Validate() error {
	return config.CheckDepth(c.Depth)
}

type level struct {
	parts []Part
	scale float32
}

// Tree is the fractal part hierarchy.
//
// Step, Reconfigure and Teardown are serialized with each other. Render,
// Snapshot and CopyLevel may run concurrently with them and always observe
// a complete frame.
type Tree struct {
	mu       sync.Mutex
	cfg      Config
	mesh     Handle
	material Handle
	runner   parallel.Runner
	batch    int
	log      *zap.Logger
	levels   []level
	back     [][]math.Mat4
	frame    uint64

	frontMu sync.RWMutex
	front   [][]math.Mat4
}

// Option configures a Tree.
type Option func(*Tree)

// WithRunner sets the runner used within a level. Default is parallel.Serial.
func WithRunner(r parallel.Runner) Option {
	return func(t *Tree) { t.runner = r }
}

// WithBatchSize sets how many parts make up one work item. Default is 5.
func WithBatchSize(n int) Option {
	return func(t *Tree) {
		if n > 0 {
			t.batch = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) { t.log = l }
}

// Build allocates a tree at rest. The returned tree has already computed its
// frame 0 poses, so Render is valid before the first Step.
func Build(cfg Config, mesh, material Handle, opts ...Option) (*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Tree{
		cfg:      cfg,
		mesh:     mesh,
		material: material,
		runner:   parallel.Serial{},
		batch:    Branching,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.allocate()
	t.log.Debug("fractal built",
		zap.Int("depth", cfg.Depth),
		zap.Int("parts", TotalParts(cfg.Depth)),
		zap.Float32("spin_rate", cfg.SpinRate))
	return t, nil
}

// allocate discards all state and creates the levels for t.cfg.
func (t *Tree) allocate() {
	depth := t.cfg.Depth
	levels := make([]level, depth)
	back := make([][]math.Mat4, depth)
	front := make([][]math.Mat4, depth)

	for l := range levels {
		n := LevelSize(l)
		parts := make([]Part, n)
		for i := range parts {
			// The root uses slot 0: identity rotation.
			parts[i] = newPart(ChildSlot(i))
		}
		levels[l] = level{parts: parts, scale: LevelScale(l)}
		back[l] = make([]math.Mat4, n)
		front[l] = make([]math.Mat4, n)
	}

	t.levels = levels
	t.back = back
	t.frame = 0

	t.update(0)

	t.frontMu.Lock()
	t.front, t.back = back, front
	t.frontMu.Unlock()
}

// Step advances every part's spin by SpinRate*pi*dt and recomputes all poses.
// A dt that is zero, negative or NaN recomputes poses without spinning.
func (t *Tree) Step(dt float32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.levels == nil {
		return
	}

	var delta float32
	if dt > 0 {
		delta = t.cfg.SpinRate * math32.Pi * dt
	}

	t.update(delta)
	t.swap()
	t.frame++
}

// update writes poses and back buffer matrices for one frame.
func (t *Tree) update(delta float32) {
	root := &t.levels[0].parts[0]
	root.SpinAngle = advance(root.SpinAngle, delta)
	root.WorldRotation = root.Rotation.Mul(math.QuatRotateY(root.SpinAngle))
	root.WorldPosition = math.Vec3{}
	t.back[0][0] = math.TRS(root.WorldPosition, root.WorldRotation, 1)

	// For returns only once the whole level is written, which is what the
	// next level reads.
	for l := 1; l < len(t.levels); l++ {
		parents := t.levels[l-1].parts
		parts := t.levels[l].parts
		scale := t.levels[l].scale
		matrices := t.back[l]

		t.runner.For(len(parts), t.batch, func(start, end int) {
			for i := start; i < end; i++ {
				updatePart(&parts[i], &parents[ParentIndex(i)], delta, scale, &matrices[i])
			}
		})
	}
}

func updatePart(part, parent *Part, delta, scale float32, out *math.Mat4) {
	part.SpinAngle = advance(part.SpinAngle, delta)
	part.WorldRotation = parent.WorldRotation.Mul(part.Rotation).Mul(math.QuatRotateY(part.SpinAngle))
	part.WorldPosition = parent.WorldPosition.Add(
		parent.WorldRotation.Rotate(part.Direction.Scale(childOffset * scale)))
	*out = math.TRS(part.WorldPosition, part.WorldRotation, scale)
}

// advance adds delta to angle and wraps the result into [0, 2pi).
func advance(angle, delta float32) float32 {
	angle += delta
	if angle >= twoPi || angle < 0 {
		angle = math32.Mod(angle, twoPi)
		if angle < 0 {
			angle += twoPi
		}
	}
	return angle
}

func (t *Tree) swap() {
	t.frontMu.Lock()
	t.front, t.back = t.back, t.front
	t.frontMu.Unlock()
}

// Reconfigure replaces the tree with a freshly built one for cfg. On a
// validation error the current tree is left unchanged.
func (t *Tree) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.cfg
	t.cfg = cfg
	t.allocate()
	t.log.Info("fractal reconfigured",
		zap.Int("old_depth", old.Depth),
		zap.Int("depth", cfg.Depth),
		zap.Int("parts", TotalParts(cfg.Depth)))
	return nil
}

// Teardown releases all levels. Step and Render do nothing afterwards until
// Reconfigure is called.
func (t *Tree) Teardown() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.levels = nil
	t.back = nil
	t.frame = 0
	t.frontMu.Lock()
	t.front = nil
	t.frontMu.Unlock()
	t.log.Debug("fractal torn down")
}

// Render hands every level of the latest complete frame to sink, root first.
func (t *Tree) Render(sink Sink) {
	t.frontMu.RLock()
	defer t.frontMu.RUnlock()

	for l, matrices := range t.front {
		sink.DrawLevel(l, matrices, t.mesh, t.material)
	}
}

// Snapshot returns a copy of the latest complete frame, one slice per level.
func (t *Tree) Snapshot() [][]math.Mat4 {
	t.frontMu.RLock()
	defer t.frontMu.RUnlock()

	out := make([][]math.Mat4, len(t.front))
	for l, matrices := range t.front {
		out[l] = append([]math.Mat4(nil), matrices...)
	}
	return out
}

// CopyLevel copies level l of the latest frame into dst, reusing its
// capacity, and returns the result. An unknown level yields dst[:0].
func (t *Tree) CopyLevel(l int, dst []math.Mat4) []math.Mat4 {
	t.frontMu.RLock()
	defer t.frontMu.RUnlock()

	if l < 0 || l >= len(t.front) {
		return dst[:0]
	}
	return append(dst[:0], t.front[l]...)
}

// Parts returns a copy of the parts in level l, or nil for an unknown level.
func (t *Tree) Parts(l int) []Part {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l < 0 || l >= len(t.levels) {
		return nil
	}
	return append([]Part(nil), t.levels[l].parts...)
}

// Depth returns the number of live levels; 0 after Teardown.
func (t *Tree) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.levels)
}

// PartCount returns the number of live parts.
func (t *Tree) PartCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, l := range t.levels {
		n += len(l.parts)
	}
	return n
}

// Frame returns the number of steps since the last build.
func (t *Tree) Frame() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame
}

// Config returns the active configuration.
func (t *Tree) Config() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}
