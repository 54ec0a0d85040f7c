package depth

import (
	"github.com/aukilabs/depthlab/geometry"
)

// Reproject converts a pixel and its depth into a camera space point. The
// camera looks down +z with +y up, so image rows grow towards -y.
//
// It returns the negative infinity sentinel when depthMeters <= 0.
func Reproject(in Intrinsics, x, y float32, depthMeters float32) geometry.Vector3f {
	if depthMeters <= 0 {
		return geometry.NegativeInfinity()
	}

	return geometry.NewVector3f(
		(x-in.PrincipalPoint.X())*depthMeters/in.FocalLength.X(),
		-(y-in.PrincipalPoint.Y())*depthMeters/in.FocalLength.Y(),
		depthMeters,
	)
}

// Project is the inverse of Reproject. ok is false for points that are not in
// front of the camera.
func Project(in Intrinsics, p geometry.Vector3f) (x, y, depthMeters float32, ok bool) {
	if !p.IsFinite() || p.Z() <= 0 {
		return 0, 0, 0, false
	}

	x = in.PrincipalPoint.X() + p.X()*in.FocalLength.X()/p.Z()
	y = in.PrincipalPoint.Y() - p.Y()*in.FocalLength.Y()/p.Z()
	return x, y, p.Z(), true
}

// ToWorld applies the camera pose to a camera space point. The sentinel is
// returned unchanged.
func ToWorld(p geometry.Vector3f, cameraToWorld geometry.Matrix4) geometry.Vector3f {
	if p.IsNegativeInfinity() {
		return p
	}
	return cameraToWorld.MulPoint(p)
}
