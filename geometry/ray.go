package geometry

// Ray is a segment going from From to To. Intersection parameters are in
// [0, 1] along that segment.
type Ray struct {
	From Vector3f
	To   Vector3f
}

func (r Ray) Direction() Vector3f {
	return Sub(r.To, r.From)
}

func (r Ray) At(t float32) Vector3f {
	return Add(r.From, Mul(r.Direction(), t))
}

// IntersectPlane returns the parameter at which the ray crosses the plane
// going through point with the given normal.
func IntersectPlane(r Ray, point Vector3f, normal Vector3f) (bool, float32) {
	rayDir := r.Direction()

	denominator := normal.Dot(rayDir)
	if denominator == 0 {
		return false, -1
	}

	t := (normal.Dot(point) - normal.Dot(r.From)) / denominator
	if t < 0 || t > 1 {
		return false, -1
	}
	return true, t
}
