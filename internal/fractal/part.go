package fractal

import (
	"github.com/Faultbox/fractalviz/pkg/math"
)

// Branching is the number of children per part.
const Branching = 5

// childOffset is the distance from a parent to a child, in units of the
// child's scale.
const childOffset = 1.5

// Palettes indexed by a part's slot within its sibling group.
var (
	directions = [Branching]math.Vec3{
		math.Vec3Up,
		math.Vec3Left,
		math.Vec3Right,
		math.Vec3Forward,
		math.Vec3Back,
	}

	rotations = [Branching]math.Quat{
		math.QuatIdentity(),
		math.QuatFromEulerDegrees(0, 0, 90),
		math.QuatFromEulerDegrees(0, 0, -90),
		math.QuatFromEulerDegrees(90, 0, 0),
		math.QuatFromEulerDegrees(-90, 0, 0),
	}
)

// Part is one node of the tree.
type Part struct {
	Direction math.Vec3 // Offset direction from the parent
	Rotation  math.Quat // Orientation offset from the parent
	SpinAngle float32   // Self rotation around local up, in [0, 2pi)

	// Derived on every step.
	WorldPosition math.Vec3
	WorldRotation math.Quat
}

func newPart(slot int) Part {
	return Part{
		Direction:     directions[slot],
		Rotation:      rotations[slot],
		WorldRotation: math.QuatIdentity(),
	}
}

// ParentIndex returns the index in level L-1 of part i in level L.
func ParentIndex(i int) int {
	return i / Branching
}

// ChildSlot returns the palette slot of part i.
func ChildSlot(i int) int {
	return i % Branching
}

// LevelSize returns the number of parts in level l.
func LevelSize(l int) int {
	n := 1
	for ; l > 0; l-- {
		n *= Branching
	}
	return n
}

// TotalParts returns the number of parts in a tree of the given depth.
func TotalParts(depth int) int {
	return (LevelSize(depth) - 1) / (Branching - 1)
}

// LevelScale returns the uniform scale of level l, 0.5^l.
func LevelScale(l int) float32 {
	s := float32(1)
	for ; l > 0; l-- {
		s *= 0.5
	}
	return s
}
