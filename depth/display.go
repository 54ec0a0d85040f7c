package depth

import (
	"strings"

	"github.com/aukilabs/depthlab/geometry"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Orientation is the orientation of the device screen relative to the depth
// sensor.
type Orientation string

const (
	LandscapeLeft      Orientation = "landscape_left"
	LandscapeRight     Orientation = "landscape_right"
	Portrait           Orientation = "portrait"
	PortraitUpsideDown Orientation = "portrait_upside_down"
)

// ParseOrientation parses an orientation name. An empty name is the sensor
// orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch o := Orientation(strings.ToLower(strings.TrimSpace(s))); o {
	case "", LandscapeLeft:
		return LandscapeLeft, nil

	case LandscapeRight, Portrait, PortraitUpsideDown:
		return o, nil

	default:
		return "", errors.New("unknown orientation").
			WithType(ErrTypeInvalidFrame).
			WithTag("orientation", s)
	}
}

// DisplayTransform maps screen UVs to depth map UVs:
//
//	u' = m[0]*u + m[1]*v + m[2]
//	v' = m[3]*u + m[4]*v + m[5]
//
// It is supplied by the AR session, which knows how the screen is rotated and
// cropped relative to the sensor.
type DisplayTransform struct {
	m [6]float32
}

func NewDisplayTransform(m [6]float32) DisplayTransform {
	return DisplayTransform{m: m}
}

// DisplayIdentity is the transform of a screen aligned with the sensor.
func DisplayIdentity() DisplayTransform {
	return DisplayTransform{m: [6]float32{1, 0, 0, 0, 1, 0}}
}

func DisplayForOrientation(o Orientation) DisplayTransform {
	switch o {
	case LandscapeRight:
		return NewDisplayTransform([6]float32{-1, 0, 1, 0, -1, 1})

	case Portrait:
		return NewDisplayTransform([6]float32{0, 1, 0, -1, 0, 1})

	case PortraitUpsideDown:
		return NewDisplayTransform([6]float32{0, -1, 1, 1, 0, 0})

	default:
		return DisplayIdentity()
	}
}

func (d DisplayTransform) Matrix() [6]float32 {
	return d.m
}

// IsZero reports whether the transform was never set.
func (d DisplayTransform) IsZero() bool {
	return d.m == [6]float32{}
}

func (d DisplayTransform) Apply(uv geometry.Vector2f) geometry.Vector2f {
	if d.IsZero() {
		return uv
	}

	u, v := uv.X(), uv.Y()
	return geometry.NewVector2f(
		d.m[0]*u+d.m[1]*v+d.m[2],
		d.m[3]*u+d.m[4]*v+d.m[5],
	)
}
