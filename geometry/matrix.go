package geometry

import (
	"math"
)

// Matrix4 is a row-major 4x4 matrix. Points are column vectors, so
// transforms compose right to left: a.Mul(b) applies b first.
type Matrix4 [16]float32

func Identity() Matrix4 {
	return Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func Translation(t Vector3f) Matrix4 {
	return Matrix4{
		1, 0, 0, t.x,
		0, 1, 0, t.y,
		0, 0, 1, t.z,
		0, 0, 0, 1,
	}
}

func Scale(s Vector3f) Matrix4 {
	return Matrix4{
		s.x, 0, 0, 0,
		0, s.y, 0, 0,
		0, 0, s.z, 0,
		0, 0, 0, 1,
	}
}

// RotationX returns a rotation of radians around the x axis.
func RotationX(radians float64) Matrix4 {
	c := (float32)(math.Cos(radians))
	s := (float32)(math.Sin(radians))
	return Matrix4{
		1, 0, 0, 0,
		0, c, -s, 0,
		0, s, c, 0,
		0, 0, 0, 1,
	}
}

// RotationY returns a rotation of radians around the y axis.
func RotationY(radians float64) Matrix4 {
	c := (float32)(math.Cos(radians))
	s := (float32)(math.Sin(radians))
	return Matrix4{
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// RotationZ returns a rotation of radians around the z axis.
func RotationZ(radians float64) Matrix4 {
	c := (float32)(math.Cos(radians))
	s := (float32)(math.Sin(radians))
	return Matrix4{
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func (m Matrix4) At(row, col int) float32 {
	return m[row*4+col]
}

func (a Matrix4) Mul(b Matrix4) Matrix4 {
	var res Matrix4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[row*4+k] * b[k*4+col]
			}
			res[row*4+col] = sum
		}
	}
	return res
}

// MulPoint transforms p as a position (w = 1). The projective row is ignored,
// which is correct for the rigid and scale transforms used here.
func (m Matrix4) MulPoint(p Vector3f) Vector3f {
	return Vector3f{
		m[0]*p.x + m[1]*p.y + m[2]*p.z + m[3],
		m[4]*p.x + m[5]*p.y + m[6]*p.z + m[7],
		m[8]*p.x + m[9]*p.y + m[10]*p.z + m[11],
	}
}

// MulDirection transforms d as a direction (w = 0).
func (m Matrix4) MulDirection(d Vector3f) Vector3f {
	return Vector3f{
		m[0]*d.x + m[1]*d.y + m[2]*d.z,
		m[4]*d.x + m[5]*d.y + m[6]*d.z,
		m[8]*d.x + m[9]*d.y + m[10]*d.z,
	}
}

func (m Matrix4) Transpose() Matrix4 {
	var res Matrix4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			res[col*4+row] = m[row*4+col]
		}
	}
	return res
}

func (m Matrix4) TranslationPart() Vector3f {
	return Vector3f{m[3], m[7], m[11]}
}

// InverseRigid inverts a transform made only of a rotation and a
// translation. Poses coming from the AR session are rigid.
func (m Matrix4) InverseRigid() Matrix4 {
	// R^T
	res := Matrix4{
		m[0], m[4], m[8], 0,
		m[1], m[5], m[9], 0,
		m[2], m[6], m[10], 0,
		0, 0, 0, 1,
	}

	t := res.MulDirection(m.TranslationPart())
	res[3] = -t.x
	res[7] = -t.y
	res[11] = -t.z
	return res
}

func (a Matrix4) EqualWithEpsilon(b Matrix4, epsilon float64) bool {
	for i := range a {
		if !EqualWithEpsilon(a[i], b[i], epsilon) {
			return false
		}
	}
	return true
}
