package collision

import (
	"github.com/aukilabs/depthlab/geometry"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeInvalidGeometry = "invalid-geometry"
)

// SampleSet is the ordered list of local space points standing for an object
// during a collision query.
type SampleSet []geometry.Vector3f

// BoxSamples returns the 13 point box pattern: the center, the 8 corners and
// the centers of the 4 lateral faces. extents are half-extents.
func BoxSamples(center geometry.Vector3f, extents geometry.Vector3f) SampleSet {
	ex, ey, ez := extents.X(), extents.Y(), extents.Z()

	offsets := [13][3]float32{
		{0, 0, 0},

		{-ex, -ey, -ez},
		{ex, -ey, -ez},
		{-ex, -ey, ez},
		{ex, -ey, ez},
		{-ex, ey, -ez},
		{ex, ey, -ez},
		{-ex, ey, ez},
		{ex, ey, ez},

		{-ex, 0, 0},
		{ex, 0, 0},
		{0, 0, -ez},
		{0, 0, ez},
	}

	set := make(SampleSet, len(offsets))
	for i, o := range offsets {
		set[i] = geometry.Add(center, geometry.NewVector3fFromArray(o))
	}
	return set
}

// BoundingBoxCorners returns the 8 corners of the box going from min to max.
func BoundingBoxCorners(min, max geometry.Vector3f) SampleSet {
	center := geometry.Mul(geometry.Add(min, max), 0.5)
	extents := geometry.Mul(geometry.Sub(max, min), 0.5)
	return BoxSamples(center, extents)[1:9]
}

// MeshVertices returns a copy of the given vertices.
func MeshVertices(vertices []geometry.Vector3f) SampleSet {
	set := make(SampleSet, len(vertices))
	copy(set, vertices)
	return set
}

// Bounds returns the axis aligned bounds of the set.
func (s SampleSet) Bounds() (min, max geometry.Vector3f, ok bool) {
	if len(s) == 0 {
		return geometry.Vector3f{}, geometry.Vector3f{}, false
	}

	min, max = s[0], s[0]
	for _, p := range s[1:] {
		min = geometry.Min(min, p)
		max = geometry.Max(max, p)
	}
	return min, max, true
}

// ColliderMode selects which points stand for an object.
type ColliderMode string

const (
	// The 8 corners of the object bounds.
	ModeBoundingBox ColliderMode = "bounding_box"

	// Every mesh vertex.
	ModeMesh ColliderMode = "mesh"

	// The 13 point box pattern fitted to the object bounds.
	ModeProxy ColliderMode = "proxy"
)

// Geometry describes an object in its local space. Vertices are optional
// when Center and Extents are set.
type Geometry struct {
	Center   geometry.Vector3f
	Extents  geometry.Vector3f
	Vertices []geometry.Vector3f
}

func (g Geometry) bounds() (min, max geometry.Vector3f) {
	if min, max, ok := SampleSet(g.Vertices).Bounds(); ok {
		return min, max
	}
	return geometry.Sub(g.Center, g.Extents), geometry.Add(g.Center, g.Extents)
}

// SampleSetFor returns the sample set of the object for the given mode.
func SampleSetFor(mode ColliderMode, g Geometry) (SampleSet, error) {
	switch mode {
	case ModeBoundingBox:
		return BoundingBoxCorners(g.bounds()), nil

	case ModeMesh:
		if len(g.Vertices) == 0 {
			return nil, errors.New("mesh mode requires vertices").
				WithType(ErrTypeInvalidGeometry)
		}
		return MeshVertices(g.Vertices), nil

	case ModeProxy, "":
		min, max := g.bounds()
		return BoxSamples(
			geometry.Mul(geometry.Add(min, max), 0.5),
			geometry.Mul(geometry.Sub(max, min), 0.5),
		), nil

	default:
		return nil, errors.New("unknown collider mode").
			WithType(ErrTypeInvalidGeometry).
			WithTag("mode", mode)
	}
}
