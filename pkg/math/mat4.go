package math

// Mat4 is a 4x4 matrix in column-major order (OpenGL compatible).
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

// Scale returns a scale matrix.
func Scale(x, y, z float32) Mat4 {
	return Mat4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

// TRS returns Translate(t) * Rotate(r) * Scale(s) for a uniform scale s.
// r is assumed to be unit length.
func TRS(t Vec3, r Quat, s float32) Mat4 {
	xx := r.X * r.X
	xy := r.X * r.Y
	xz := r.X * r.Z
	xw := r.X * r.W
	yy := r.Y * r.Y
	yz := r.Y * r.Z
	yw := r.Y * r.W
	zz := r.Z * r.Z
	zw := r.Z * r.W

	return Mat4{
		s * (1 - 2*(yy+zz)), s * 2 * (xy + zw), s * 2 * (xz - yw), 0,
		s * 2 * (xy - zw), s * (1 - 2*(xx+zz)), s * 2 * (yz + xw), 0,
		s * 2 * (xz + yw), s * 2 * (yz - xw), s * (1 - 2*(xx+yy)), 0,
		t.X, t.Y, t.Z, 1,
	}
}

// Mul multiplies this matrix by another (m * other).
func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			result[col*4+row] =
				m[0*4+row]*other[col*4+0] +
					m[1*4+row]*other[col*4+1] +
					m[2*4+row]*other[col*4+2] +
					m[3*4+row]*other[col*4+3]
		}
	}
	return result
}

// TransformPoint transforms a point by this matrix (assumes w=1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	x := m[0]*p.X + m[4]*p.Y + m[8]*p.Z + m[12]
	y := m[1]*p.X + m[5]*p.Y + m[9]*p.Z + m[13]
	z := m[2]*p.X + m[6]*p.Y + m[10]*p.Z + m[14]
	w := m[3]*p.X + m[7]*p.Y + m[11]*p.Z + m[15]
	if w != 0 && w != 1 {
		return Vec3{x / w, y / w, z / w}
	}
	return Vec3{x, y, z}
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// Affine3x4 packs the top three rows column by column, dropping the
// constant bottom row of an affine transform. This is the layout instanced
// shaders read from a structured buffer.
func (m Mat4) Affine3x4() [12]float32 {
	return [12]float32{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
		m[12], m[13], m[14],
	}
}

// IsFinite reports whether every element is neither NaN nor infinite.
func (m Mat4) IsFinite() bool {
	for _, f := range m {
		if !isFinite(f) {
			return false
		}
	}
	return true
}
