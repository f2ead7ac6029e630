package fractal

import (
	"errors"
	"sync"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Faultbox/fractalviz/internal/config"
	"github.com/Faultbox/fractalviz/internal/parallel"
	"github.com/Faultbox/fractalviz/pkg/math"
)

const tol = 1e-5

func build(t *testing.T, depth int, opts ...Option) *Tree {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	tree, err := Build(Config{Depth: depth, SpinRate: 0.125}, "mesh", "material", opts...)
	require.NoError(t, err)
	return tree
}

func assertVec3(t *testing.T, want, got math.Vec3, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, tol, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, tol, msgAndArgs...)
}

func assertQuat(t *testing.T, want, got math.Quat, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, tol, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, tol, msgAndArgs...)
	assert.InDelta(t, want.W, got.W, tol, msgAndArgs...)
}

func TestPartCounts(t *testing.T) {
	for depth := config.MinDepth; depth <= config.MaxDepth; depth++ {
		tree := build(t, depth)

		assert.Equal(t, depth, tree.Depth())
		for l := 0; l < depth; l++ {
			assert.Len(t, tree.Parts(l), LevelSize(l), "depth %d level %d", depth, l)
		}
		assert.Equal(t, TotalParts(depth), tree.PartCount())

		pow := 1
		for i := 0; i < depth; i++ {
			pow *= 5
		}
		assert.Equal(t, (pow-1)/4, tree.PartCount())

		snap := tree.Snapshot()
		require.Len(t, snap, depth)
		for l, m := range snap {
			assert.Len(t, m, LevelSize(l))
		}
	}
}

func TestBuildRejectsDepth(t *testing.T) {
	for _, depth := range []int{-1, 0, 9, 10, 30} {
		tree, err := Build(Config{Depth: depth}, nil, nil)
		assert.Nil(t, tree)

		var cfgErr *config.ConfigError
		require.True(t, errors.As(err, &cfgErr), "depth %d: %v", depth, err)
		assert.Equal(t, "fractal.depth", cfgErr.Field)
		assert.Equal(t, depth, cfgErr.Value)
	}
}

func TestAddressing(t *testing.T) {
	assert.Equal(t, 0, ParentIndex(4))
	assert.Equal(t, 1, ParentIndex(5))
	assert.Equal(t, 24, ParentIndex(124))
	assert.Equal(t, 4, ChildSlot(124))
	assert.Equal(t, float32(0.125), LevelScale(3))
	assert.Equal(t, 0, TotalParts(0))
	assert.Equal(t, 31, TotalParts(3))
}

func TestPalette(t *testing.T) {
	tree := build(t, 3)

	root := tree.Parts(0)[0]
	assert.Equal(t, math.QuatIdentity(), root.Rotation)

	for l := 1; l < 3; l++ {
		for i, p := range tree.Parts(l) {
			assert.Equal(t, directions[i%5], p.Direction, "level %d part %d", l, i)
			assert.Equal(t, rotations[i%5], p.Rotation, "level %d part %d", l, i)
			assert.Zero(t, p.SpinAngle)
		}
	}
}

func TestStepPosesFollowParents(t *testing.T) {
	tree := build(t, 4)
	for i := 0; i < 7; i++ {
		tree.Step(0.37)
	}

	for l := 1; l < 4; l++ {
		parents := tree.Parts(l - 1)
		scale := LevelScale(l)
		for i, p := range tree.Parts(l) {
			parent := parents[i/5]
			wantRot := parent.WorldRotation.Mul(p.Rotation).Mul(math.QuatRotateY(p.SpinAngle))
			wantPos := parent.WorldPosition.Add(parent.WorldRotation.Rotate(p.Direction.Scale(1.5 * scale)))
			assertQuat(t, wantRot, p.WorldRotation, "level %d part %d", l, i)
			assertVec3(t, wantPos, p.WorldPosition, "level %d part %d", l, i)
		}
	}

	snap := tree.Snapshot()
	for l := range snap {
		parts := tree.Parts(l)
		for i, m := range snap[l] {
			want := math.TRS(parts[i].WorldPosition, parts[i].WorldRotation, LevelScale(l))
			for k := range want {
				assert.InDelta(t, want[k], m[k], tol, "level %d part %d element %d", l, i, k)
			}
		}
	}
}

func TestFirstLevelOffsets(t *testing.T) {
	tree := build(t, 2)
	tree.Step(0)

	// At rest the root is unrotated, so children sit 0.75 along their direction.
	want := []math.Vec3{{X: 0, Y: 0.75, Z: 0}, {X: -0.75, Y: 0, Z: 0}, {X: 0.75, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 0.75}, {X: 0, Y: 0, Z: -0.75}}
	for i, p := range tree.Parts(1) {
		assertVec3(t, want[i], p.WorldPosition, "child %d", i)
	}
}

func TestRootStaysAtOrigin(t *testing.T) {
	tree := build(t, 3)
	for i := 0; i < 50; i++ {
		tree.Step(float32(i) * 0.05)

		root := tree.Parts(0)[0]
		assert.Equal(t, math.Vec3{}, root.WorldPosition)
		assert.Equal(t, math.Vec3{}, tree.Snapshot()[0][0].Translation())
	}
}

func TestStepZeroDelta(t *testing.T) {
	tree := build(t, 2)
	tree.Step(0)

	assert.Equal(t, uint64(1), tree.Frame())
	root := tree.Parts(0)[0]
	assert.Zero(t, root.SpinAngle)
	assertQuat(t, math.QuatIdentity(), root.WorldRotation)

	for i, p := range tree.Parts(1) {
		assert.Zero(t, p.SpinAngle)
		assertQuat(t, root.WorldRotation.Mul(p.Rotation), p.WorldRotation, "child %d", i)
		assert.True(t, p.WorldPosition.IsFinite())
		assert.True(t, p.WorldRotation.IsFinite())
	}
	for _, level := range tree.Snapshot() {
		for _, m := range level {
			assert.True(t, m.IsFinite())
		}
	}
}

func TestStepNonPositiveDelta(t *testing.T) {
	tree := build(t, 3)
	tree.Step(0.5)
	before := tree.Parts(2)

	var zero float32
	for _, dt := range []float32{0, -1, -1e9, zero / zero} {
		tree.Step(dt)
	}

	after := tree.Parts(2)
	for i := range after {
		assert.Equal(t, before[i].SpinAngle, after[i].SpinAngle)
	}
}

func TestSpinAdvance(t *testing.T) {
	tree, err := Build(Config{Depth: 3, SpinRate: 0.125}, nil, nil)
	require.NoError(t, err)
	tree.Step(1)

	want := float32(0.125 * math32.Pi)
	for l := 0; l < 3; l++ {
		for _, p := range tree.Parts(l) {
			assert.InDelta(t, want, p.SpinAngle, tol)
		}
	}

	root := tree.Parts(0)[0]
	assertQuat(t, math.QuatRotateY(want), root.WorldRotation)
}

func TestSpinWraps(t *testing.T) {
	tree, err := Build(Config{Depth: 2, SpinRate: 1}, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		tree.Step(0.73)
		for _, p := range tree.Parts(1) {
			assert.GreaterOrEqual(t, p.SpinAngle, float32(0))
			assert.Less(t, p.SpinAngle, float32(2*math32.Pi))
		}
	}
	assert.InDelta(t, float32(1.5), advance(2*math32.Pi, 1.5), tol)
	assert.InDelta(t, 2*math32.Pi-1, advance(0, -1), tol)
}

func TestFrozenSpin(t *testing.T) {
	tree, err := Build(Config{Depth: 3, SpinRate: 0}, nil, nil)
	require.NoError(t, err)
	initial := tree.Snapshot()

	for i := 0; i < 10; i++ {
		tree.Step(0.1)
	}
	assert.Equal(t, initial, tree.Snapshot())
}

func TestDeterministicAcrossRunners(t *testing.T) {
	dts := []float32{0.016, 0.02, 0, 0.5, 0.001, 0.033, 1.7}

	run := func(opts ...Option) [][]math.Mat4 {
		tree := build(t, 6, opts...)
		for _, dt := range dts {
			tree.Step(dt)
		}
		return tree.Snapshot()
	}

	want := run(WithRunner(parallel.Serial{}))
	for _, opts := range [][]Option{
		{WithRunner(parallel.NewPool(2))},
		{WithRunner(parallel.NewPool(8)), WithBatchSize(3)},
		{WithRunner(parallel.NewPool(0)), WithBatchSize(1)},
		{WithRunner(parallel.NewPool(4)), WithBatchSize(1000)},
	} {
		assert.Equal(t, want, run(opts...))
	}
}

func TestReconfigure(t *testing.T) {
	tree := build(t, 4)
	for i := 0; i < 5; i++ {
		tree.Step(0.25)
	}

	require.NoError(t, tree.Reconfigure(Config{Depth: 6, SpinRate: 0.125}))

	assert.Equal(t, 6, tree.Depth())
	assert.Equal(t, 1+5+25+125+625+3125, tree.PartCount())
	assert.Equal(t, uint64(0), tree.Frame())

	fresh := build(t, 6)
	assert.Equal(t, fresh.Snapshot(), tree.Snapshot())
	for l := 0; l < 6; l++ {
		assert.Equal(t, fresh.Parts(l), tree.Parts(l))
	}

	// Both advance identically from here on.
	tree.Step(0.4)
	fresh.Step(0.4)
	assert.Equal(t, fresh.Snapshot(), tree.Snapshot())

	// Shrinking drops the deeper levels.
	require.NoError(t, tree.Reconfigure(Config{Depth: 2, SpinRate: 0.125}))
	assert.Len(t, tree.Snapshot(), 2)
	assert.Nil(t, tree.Parts(2))
}

func TestReconfigureInvalidKeepsTree(t *testing.T) {
	tree := build(t, 3)
	tree.Step(0.3)
	before := tree.Snapshot()

	err := tree.Reconfigure(Config{Depth: 11})
	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr))

	assert.Equal(t, 3, tree.Depth())
	assert.Equal(t, before, tree.Snapshot())
	assert.Equal(t, uint64(1), tree.Frame())
}

func TestTeardown(t *testing.T) {
	tree := build(t, 3)
	tree.Teardown()

	assert.Zero(t, tree.Depth())
	assert.Zero(t, tree.PartCount())
	assert.Empty(t, tree.Snapshot())

	tree.Step(1)
	calls := 0
	tree.Render(SinkFunc(func(int, []math.Mat4, Handle, Handle) { calls++ }))
	assert.Zero(t, calls)
	assert.Zero(t, tree.Frame())

	require.NoError(t, tree.Reconfigure(Config{Depth: 2}))
	assert.Equal(t, 6, tree.PartCount())
}

func TestRender(t *testing.T) {
	tree := build(t, 3)
	tree.Step(0.1)

	var levels []int
	tree.Render(SinkFunc(func(l int, m []math.Mat4, mesh, material Handle) {
		levels = append(levels, l)
		assert.Len(t, m, LevelSize(l))
		assert.Equal(t, "mesh", mesh)
		assert.Equal(t, "material", material)
	}))
	assert.Equal(t, []int{0, 1, 2}, levels)
}

func TestInstanceBuffers(t *testing.T) {
	tree := build(t, 3)
	tree.Step(0.2)

	var buf InstanceBuffers
	tree.Render(&buf)
	require.Len(t, buf.Levels, 3)
	assert.Equal(t, 31*12*4, buf.Bytes())

	snap := tree.Snapshot()
	assert.Equal(t, snap[2][17].Affine3x4(), buf.Levels[2][17])

	// Second frame reuses the buffers.
	first := &buf.Levels[2][0]
	tree.Step(0.2)
	tree.Render(&buf)
	assert.Same(t, first, &buf.Levels[2][0])
}

func TestCopyLevel(t *testing.T) {
	tree := build(t, 3)
	tree.Step(0.1)

	dst := make([]math.Mat4, 0, 64)
	got := tree.CopyLevel(2, dst)
	assert.Len(t, got, 25)
	assert.Same(t, &dst[:1][0], &got[0])
	assert.Equal(t, tree.Snapshot()[2], got)

	assert.Empty(t, tree.CopyLevel(5, dst))
	assert.Empty(t, tree.CopyLevel(-1, nil))
}

func TestSnapshotIsCopy(t *testing.T) {
	tree := build(t, 2)
	snap := tree.Snapshot()
	saved := snap[1][0]

	snap[1][0] = math.Mat4{}
	assert.Equal(t, saved, tree.Snapshot()[1][0])

	tree.Step(1)
	tree.Step(1)
	// The snapshot is not aliased to either buffer.
	assert.Equal(t, math.Mat4{}, snap[1][0])
}

// Readers running alongside Step must never see matrices from two frames.
func TestConcurrentReadersSeeWholeFrames(t *testing.T) {
	tree, err := Build(Config{Depth: 4, SpinRate: 1}, nil, nil,
		WithRunner(parallel.NewPool(4)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	done := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]math.Mat4, 0, 5)
			for {
				select {
				case <-done:
					return
				default:
				}
				var root math.Mat4
				tree.Render(SinkFunc(func(l int, m []math.Mat4, _, _ Handle) {
					switch l {
					case 0:
						root = m[0]
					case 1:
						buf = append(buf[:0], m...)
					}
				}))
				// Child 0 spins on top of the root's spin: cos(2s) = 2cos(s)^2 - 1.
				c := root[0]
				assert.InDelta(t, 0.5*(2*c*c-1), buf[0][0], 1e-4)
			}
		}()
	}

	for i := 0; i < 300; i++ {
		tree.Step(0.01)
	}
	close(done)
	wg.Wait()
}
