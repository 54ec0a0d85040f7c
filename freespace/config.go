package freespace

import (
	"github.com/aukilabs/depthlab/collision"
	"github.com/aukilabs/depthlab/geometry"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeInvalidConfig = "invalid-explorer-config"

	// The largest accepted world grid resolution. A 1024^3 bit set already
	// takes 128MB.
	maxWorldResolution = 1024
)

// Config configures free space explorations.
type Config struct {
	// The size of the screen grid the flood fill walks on.
	ScreenBinsX int
	ScreenBinsY int

	// The largest height difference with the anchor a point can have to be
	// considered on the same surface.
	ElevationThreshold float32

	// The number of cells dequeued before an exploration gives up.
	IterationCap int

	// The edge of the cubic volume, centered on the world origin, covered by
	// the world grid.
	VolumeMeters float32

	// The number of world grid cells per axis.
	WorldResolution int

	// The half-extents of the box tested for collision around each candidate
	// point. The box is centered on the point, raised by ProxyLift.
	ProxyExtents geometry.Vector3f
	ProxyLift    float32

	Thresholds collision.Thresholds
}

func DefaultConfig() Config {
	return Config{
		ScreenBinsX:        40,
		ScreenBinsY:        20,
		ElevationThreshold: 0.5,
		IterationCap:       10000,
		VolumeMeters:       12.8,
		WorldResolution:    256,
		ProxyExtents:       geometry.NewVector3f(0.05, 0.05, 0.05),
		ProxyLift:          0,
		Thresholds:         collision.DefaultThresholds(),
	}
}

func (c Config) Validate() error {
	switch {
	case c.ScreenBinsX <= 0 || c.ScreenBinsY <= 0:
		return errors.New("screen bins must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("screen_bins_x", c.ScreenBinsX).
			WithTag("screen_bins_y", c.ScreenBinsY)

	case c.ElevationThreshold < 0:
		return errors.New("elevation threshold must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("elevation_threshold", c.ElevationThreshold)

	case c.IterationCap <= 0:
		return errors.New("iteration cap must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("iteration_cap", c.IterationCap)

	case c.VolumeMeters <= 0:
		return errors.New("volume must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("volume_meters", c.VolumeMeters)

	case c.WorldResolution <= 0 || c.WorldResolution > maxWorldResolution:
		return errors.Newf("world resolution must be in [1, %d]", maxWorldResolution).
			WithType(ErrTypeInvalidConfig).
			WithTag("world_resolution", c.WorldResolution)

	case c.ProxyExtents.X() < 0 || c.ProxyExtents.Y() < 0 || c.ProxyExtents.Z() < 0:
		return errors.New("proxy extents must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("proxy_extents", c.ProxyExtents.Array())
	}

	if err := c.Thresholds.Validate(); err != nil {
		return errors.New("invalid collision thresholds").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}
	return nil
}

// proxySamples returns the box tested around a candidate point, relative to
// that point.
func (c Config) proxySamples() collision.SampleSet {
	center := geometry.NewVector3f(0, c.ProxyLift, 0)
	return collision.BoxSamples(center, c.ProxyExtents)
}
