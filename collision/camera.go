package collision

import (
	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/geometry"
)

// Camera is the pose and screen intrinsics of the AR camera for one frame.
type Camera struct {
	pose       geometry.Matrix4
	view       geometry.Matrix4
	intrinsics depth.Intrinsics
}

// NewCamera creates a camera from its camera to world pose and the
// intrinsics of the screen image.
func NewCamera(pose geometry.Matrix4, intrinsics depth.Intrinsics) Camera {
	return Camera{
		pose:       pose,
		view:       pose.InverseRigid(),
		intrinsics: intrinsics,
	}
}

func (c Camera) Pose() geometry.Matrix4 {
	return c.pose
}

func (c Camera) Intrinsics() depth.Intrinsics {
	return c.intrinsics
}

func (c Camera) Position() geometry.Vector3f {
	return c.pose.TranslationPart()
}

// IsZero reports whether the camera was never set.
func (c Camera) IsZero() bool {
	return c.intrinsics.Width == 0 || c.intrinsics.Height == 0
}

func (c Camera) WorldToCamera(p geometry.Vector3f) geometry.Vector3f {
	return c.view.MulPoint(p)
}

// WorldToScreenUV projects a world point on the screen. viewDepth is the
// distance from the camera along its view axis. ok is false for points
// behind the camera.
func (c Camera) WorldToScreenUV(p geometry.Vector3f) (uv geometry.Vector2f, viewDepth float32, ok bool) {
	x, y, d, ok := depth.Project(c.intrinsics, c.WorldToCamera(p))
	if !ok {
		return geometry.Vector2f{}, 0, false
	}

	uv = geometry.NewVector2f(
		x/(float32)(c.intrinsics.Width),
		y/(float32)(c.intrinsics.Height),
	)
	return uv, d, true
}

// ScreenUVToWorld reprojects a screen UV seen at the given depth into world
// space. It returns the negative infinity sentinel when depthMeters <= 0.
func (c Camera) ScreenUVToWorld(uv geometry.Vector2f, depthMeters float32) geometry.Vector3f {
	p := depth.Reproject(
		c.intrinsics,
		uv.X()*(float32)(c.intrinsics.Width),
		uv.Y()*(float32)(c.intrinsics.Height),
		depthMeters,
	)
	return depth.ToWorld(p, c.pose)
}
