package collision

import (
	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/geometry"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeInvalidThresholds = "invalid-thresholds"
)

// Result is the outcome of testing a single point against the depth map.
type Result int

const (
	NoCollision Result = iota
	Collided
	InvalidDepth
)

func (r Result) String() string {
	switch r {
	case NoCollision:
		return "no_collision"
	case Collided:
		return "collided"
	case InvalidDepth:
		return "invalid_depth"
	default:
		return "unknown"
	}
}

// Thresholds configures collision tests.
type Thresholds struct {
	// How far behind the real surface a point has to be to be considered
	// colliding.
	VertexDistanceMeters float32 `yaml:"vertex_distance_meters" json:"vertex_distance_meters"`

	// The fraction of colliding samples above which an object collides.
	MeshRatioThreshold float32 `yaml:"mesh_ratio_threshold" json:"mesh_ratio_threshold"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		VertexDistanceMeters: 0.1,
		MeshRatioThreshold:   0.1,
	}
}

func (t Thresholds) Validate() error {
	if t.VertexDistanceMeters < 0 {
		return errors.New("vertex distance threshold must not be negative").
			WithType(ErrTypeInvalidThresholds).
			WithTag("vertex_distance_meters", t.VertexDistanceMeters)
	}
	if t.MeshRatioThreshold < 0 || t.MeshRatioThreshold > 1 {
		return errors.New("mesh ratio threshold must be in [0, 1]").
			WithType(ErrTypeInvalidThresholds).
			WithTag("mesh_ratio_threshold", t.MeshRatioThreshold)
	}
	return nil
}

// Tester tests world points against a frozen depth frame.
type Tester struct {
	Frame  *depth.Frame
	Camera Camera
}

// TestVertex reports whether the point lies more than threshold behind the
// real surface seen at its screen location. Only occlusion can be detected
// from a single depth map: points in front of the surface never collide.
func (t Tester) TestVertex(worldPoint geometry.Vector3f, threshold float32) Result {
	if t.Frame == nil || t.Camera.IsZero() {
		return InvalidDepth
	}

	uv, viewDepth, ok := t.Camera.WorldToScreenUV(worldPoint)
	if !ok {
		return InvalidDepth
	}

	environmentDepth := t.Frame.ScreenDepthMeters(uv)
	if environmentDepth <= 0 {
		return InvalidDepth
	}

	if viewDepth > environmentDepth+threshold {
		return Collided
	}
	return NoCollision
}
