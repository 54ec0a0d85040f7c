package geometry

import (
	"math"
)

func EqualWithEpsilon(a float32, b float32, epsilon float64) bool {
	return math.Abs((float64)(a-b)) <= epsilon
}

func Clamp(v float32, min float32, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Vector2f is a 2D vector, mostly used for screen and depth map UVs.
type Vector2f struct {
	x float32
	y float32
}

func NewVector2f(x, y float32) Vector2f {
	return Vector2f{x, y}
}

func (v Vector2f) X() float32 { return v.x }
func (v Vector2f) Y() float32 { return v.y }

func (v1 Vector2f) EqualWithEpsilon(v2 Vector2f, epsilon float64) bool {
	return math.Abs((float64)(v1.x-v2.x)) <= epsilon &&
		math.Abs((float64)(v1.y-v2.y)) <= epsilon
}

// InUnitSquare reports whether both components are within [0, 1].
func (v Vector2f) InUnitSquare() bool {
	return v.x >= 0 && v.x <= 1 && v.y >= 0 && v.y <= 1
}

type Vector3f struct {
	x float32
	y float32
	z float32
}

func NewVector3f(x, y, z float32) Vector3f {
	return Vector3f{x, y, z}
}

// NegativeInfinity returns the point used to signal that no surface could be
// reprojected.
func NegativeInfinity() Vector3f {
	inf := (float32)(math.Inf(-1))
	return Vector3f{inf, inf, inf}
}

func (v Vector3f) X() float32 { return v.x }
func (v Vector3f) Y() float32 { return v.y }
func (v Vector3f) Z() float32 { return v.z }

func (v Vector3f) IsNegativeInfinity() bool {
	return math.IsInf((float64)(v.x), -1) &&
		math.IsInf((float64)(v.y), -1) &&
		math.IsInf((float64)(v.z), -1)
}

// IsFinite reports whether no component is NaN or infinite.
func (v Vector3f) IsFinite() bool {
	for _, c := range [3]float32{v.x, v.y, v.z} {
		if math.IsNaN((float64)(c)) || math.IsInf((float64)(c), 0) {
			return false
		}
	}
	return true
}

func (v1 Vector3f) EqualWithEpsilon(v2 Vector3f, epsilon float64) bool {
	return math.Abs((float64)(v1.x-v2.x)) <= epsilon &&
		math.Abs((float64)(v1.y-v2.y)) <= epsilon &&
		math.Abs((float64)(v1.z-v2.z)) <= epsilon
}

func (v1 Vector3f) Equal(v2 Vector3f) bool {
	return v1.x == v2.x && v1.y == v2.y && v1.z == v2.z
}

func (v1 Vector3f) GreaterOrEqualThan(v2 Vector3f) bool {
	return v1.x >= v2.x && v1.y >= v2.y && v1.z >= v2.z
}

func (v1 Vector3f) LesserOrEqualThan(v2 Vector3f) bool {
	return v1.x <= v2.x && v1.y <= v2.y && v1.z <= v2.z
}

func (v1 *Vector3f) Add(v2 Vector3f) {
	v1.x += v2.x
	v1.y += v2.y
	v1.z += v2.z
}

func Add(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{a.x + b.x, a.y + b.y, a.z + b.z}
}

func Sub(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{a.x - b.x, a.y - b.y, a.z - b.z}
}

func Mul(a Vector3f, s float32) Vector3f {
	return Vector3f{a.x * s, a.y * s, a.z * s}
}

// Min returns the component-wise minimum.
func Min(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{
		(float32)(math.Min((float64)(a.x), (float64)(b.x))),
		(float32)(math.Min((float64)(a.y), (float64)(b.y))),
		(float32)(math.Min((float64)(a.z), (float64)(b.z))),
	}
}

// Max returns the component-wise maximum.
func Max(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{
		(float32)(math.Max((float64)(a.x), (float64)(b.x))),
		(float32)(math.Max((float64)(a.y), (float64)(b.y))),
		(float32)(math.Max((float64)(a.z), (float64)(b.z))),
	}
}

func (a Vector3f) Length() float64 {
	return math.Sqrt((float64)(a.x*a.x + a.y*a.y + a.z*a.z))
}

func Normalized(a Vector3f) Vector3f {
	length := (float32)(a.Length())
	result := a
	if length != 0 {
		result.x /= length
		result.y /= length
		result.z /= length
	}
	return result
}

func (a Vector3f) Dot(b Vector3f) float32 {
	return a.x*b.x + a.y*b.y + a.z*b.z
}

func Cross(a Vector3f, b Vector3f) Vector3f {
	return Vector3f{a.y*b.z - a.z*b.y, a.z*b.x - a.x*b.z, a.x*b.y - a.y*b.x}
}

// Array returns the vector as [x, y, z]. Used by wire and config encodings.
func (v Vector3f) Array() [3]float32 {
	return [3]float32{v.x, v.y, v.z}
}

func NewVector3fFromArray(a [3]float32) Vector3f {
	return Vector3f{a[0], a[1], a[2]}
}
