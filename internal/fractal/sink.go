package fractal

import "github.com/Faultbox/fractalviz/pkg/math"

// Handle is an opaque mesh or material reference passed through to the sink.
type Handle any

// Sink consumes the instance matrices of one level.
// matrices is only valid for the duration of the call.
type Sink interface {
	DrawLevel(level int, matrices []math.Mat4, mesh, material Handle)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(level int, matrices []math.Mat4, mesh, material Handle)

// DrawLevel implements Sink.
func (f SinkFunc) DrawLevel(level int, matrices []math.Mat4, mesh, material Handle) {
	f(level, matrices, mesh, material)
}

// InstanceBuffers packs each level into 3x4 affine matrices, the layout an
// instanced draw uploads. Buffers are reused between frames.
type InstanceBuffers struct {
	Levels [][][12]float32
}

// DrawLevel implements Sink.
func (b *InstanceBuffers) DrawLevel(level int, matrices []math.Mat4, _, _ Handle) {
	for len(b.Levels) <= level {
		b.Levels = append(b.Levels, nil)
	}
	buf := b.Levels[level][:0]
	for _, m := range matrices {
		buf = append(buf, m.Affine3x4())
	}
	b.Levels[level] = buf
}

// Bytes returns the packed size of every level.
func (b *InstanceBuffers) Bytes() int {
	n := 0
	for _, l := range b.Levels {
		n += len(l) * 12 * 4
	}
	return n
}
