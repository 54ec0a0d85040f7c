package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualWithEpsilon(t *testing.T) {
	require.True(t, EqualWithEpsilon(0.1, 0.2, 0.11))
	require.False(t, EqualWithEpsilon(0.1, 0.3, 0.11))
}

func TestClamp(t *testing.T) {
	require.Equal(t, float32(0), Clamp(-1, 0, 1))
	require.Equal(t, float32(1), Clamp(2, 0, 1))
	require.Equal(t, float32(0.5), Clamp(0.5, 0, 1))
}

func TestDot(t *testing.T) {
	xAxis := Vector3f{1, 0, 0}
	yAxis := Vector3f{0, 1, 0}

	require.Equal(t, (float32)(0), xAxis.Dot(yAxis))
}

func TestCross(t *testing.T) {
	xAxis := Vector3f{1, 0, 0}
	yAxis := Vector3f{0, 1, 0}
	zAxis := Vector3f{0, 0, 1}

	require.True(t, zAxis.Equal(Cross(xAxis, yAxis)))
}

func TestVectorClass(t *testing.T) {
	zeroVector := Vector3f{0, 0, 0}
	oneVector := Vector3f{1, 1, 1}

	require.True(t, zeroVector.Equal(Vector3f{0, 0, 0}))
	require.True(t, oneVector.EqualWithEpsilon(Vector3f{0.9, 1.1, 1}, 0.11))
	require.True(t, oneVector.GreaterOrEqualThan(oneVector))
	require.True(t, zeroVector.LesserOrEqualThan(oneVector))

	require.True(t, oneVector.Equal(Add(zeroVector, oneVector)))
	require.True(t, oneVector.Equal(Sub(oneVector, zeroVector)))
	require.True(t, zeroVector.Equal(Mul(oneVector, 0)))

	require.True(t, Vector3f{-1, 0, 2}.Equal(Min(Vector3f{-1, 3, 2}, Vector3f{0, 0, 5})))
	require.True(t, Vector3f{0, 3, 5}.Equal(Max(Vector3f{-1, 3, 2}, Vector3f{0, 0, 5})))

	l1Vector := Vector3f{1, 0, 0}
	require.True(t, 1 == l1Vector.Length())

	normalizedOneVector := Normalized(oneVector)
	require.True(t, EqualWithEpsilon((float32)(normalizedOneVector.Length()), 1, 0.001))
}

func TestNegativeInfinity(t *testing.T) {
	p := NegativeInfinity()
	require.True(t, p.IsNegativeInfinity())
	require.False(t, p.IsFinite())
	require.False(t, NewVector3f(1, 2, 3).IsNegativeInfinity())
	require.True(t, NewVector3f(1, 2, 3).IsFinite())
}

func TestVector2f(t *testing.T) {
	require.True(t, NewVector2f(0, 1).InUnitSquare())
	require.False(t, NewVector2f(-0.01, 0.5).InUnitSquare())
	require.False(t, NewVector2f(0.5, 1.01).InUnitSquare())
}

func TestMatrix(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		p := NewVector3f(1, 2, 3)
		require.True(t, p.Equal(Identity().MulPoint(p)))
	})

	t.Run("translation", func(t *testing.T) {
		m := Translation(NewVector3f(1, 0, -1))
		require.True(t, NewVector3f(2, 2, 2).Equal(m.MulPoint(NewVector3f(1, 2, 3))))
		require.True(t, NewVector3f(1, 2, 3).Equal(m.MulDirection(NewVector3f(1, 2, 3))))
	})

	t.Run("rotation x points forward down", func(t *testing.T) {
		m := RotationX(math.Pi / 2)
		forward := m.MulDirection(NewVector3f(0, 0, 1))
		require.True(t, forward.EqualWithEpsilon(NewVector3f(0, -1, 0), 1e-6))
	})

	t.Run("rotation y and z", func(t *testing.T) {
		require.True(t, RotationY(math.Pi/2).MulDirection(NewVector3f(0, 0, 1)).EqualWithEpsilon(NewVector3f(1, 0, 0), 1e-6))
		require.True(t, RotationZ(math.Pi/2).MulDirection(NewVector3f(1, 0, 0)).EqualWithEpsilon(NewVector3f(0, 1, 0), 1e-6))
	})

	t.Run("composition applies right first", func(t *testing.T) {
		m := Translation(NewVector3f(0, 0, 5)).Mul(Scale(NewVector3f(2, 2, 2)))
		require.True(t, NewVector3f(2, 2, 7).Equal(m.MulPoint(NewVector3f(1, 1, 1))))
	})

	t.Run("rigid inverse", func(t *testing.T) {
		m := Translation(NewVector3f(1, 2, 3)).Mul(RotationY(0.7)).Mul(RotationX(-0.3))
		require.True(t, Identity().EqualWithEpsilon(m.Mul(m.InverseRigid()), 1e-5))

		p := NewVector3f(0.4, -1, 2)
		require.True(t, p.EqualWithEpsilon(m.InverseRigid().MulPoint(m.MulPoint(p)), 1e-5))
	})

	t.Run("transpose", func(t *testing.T) {
		m := Translation(NewVector3f(1, 2, 3))
		require.Equal(t, float32(1), m.Transpose().At(3, 0))
		require.Equal(t, m, m.Transpose().Transpose())
	})
}

func TestIntersectPlane(t *testing.T) {
	ray := Ray{
		From: Vector3f{0, 10, 0},
		To:   Vector3f{0, -10, 0},
	}

	hit, tHit := IntersectPlane(ray, Vector3f{0, 0, 0}, Vector3f{0, 1, 0})
	require.True(t, hit)
	require.Equal(t, float32(0.5), tHit)
	require.True(t, Vector3f{0, 0, 0}.Equal(ray.At(tHit)))

	t.Run("parallel ray misses", func(t *testing.T) {
		hit, _ := IntersectPlane(Ray{From: Vector3f{0, 1, 0}, To: Vector3f{1, 1, 0}}, Vector3f{}, Vector3f{0, 1, 0})
		require.False(t, hit)
	})

	t.Run("short ray misses", func(t *testing.T) {
		hit, _ := IntersectPlane(Ray{From: Vector3f{0, 2, 0}, To: Vector3f{0, 1, 0}}, Vector3f{}, Vector3f{0, 1, 0})
		require.False(t, hit)
	})
}
