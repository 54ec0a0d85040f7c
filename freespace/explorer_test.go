package freespace

import (
	"context"
	"math"
	"testing"

	"github.com/aukilabs/depthlab/collision"
	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/geometry"
	"github.com/stretchr/testify/require"
)

const (
	testWidth  = 64
	testHeight = 32
)

func testIntrinsics() depth.Intrinsics {
	return depth.NewIntrinsics(32, 32, 32, 16, testWidth, testHeight)
}

// testCamera is at the origin, looking straight down.
func testCamera() collision.Camera {
	return collision.NewCamera(geometry.RotationX(math.Pi/2), testIntrinsics())
}

func testConfig() Config {
	c := DefaultConfig()
	c.ProxyExtents = geometry.NewVector3f(0.02, 0.02, 0.02)
	return c
}

// floorFrame is a flat floor 2m below the camera, edited by fn.
func floorFrame(fn func(x, y int) int16) *depth.Frame {
	return depth.PlaneFrame(testIntrinsics(), 2).WithSamples(func(width, height int, samples []int16) {
		if fn == nil {
			return
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if d := fn(x, y); d >= 0 {
					samples[y*width+x] = d
				}
			}
		}
	})
}

var floorAnchor = geometry.NewVector3f(0, -2, 0)

type marker struct {
	point         geometry.Vector3f
	depthToCamera float32
}

func explore(t *testing.T, conf Config, frame *depth.Frame, anchor geometry.Vector3f) (Result, []marker) {
	require.NoError(t, conf.Validate())

	var markers []marker
	res := Explorer{Config: conf}.Explore(
		context.Background(),
		frame,
		testCamera(),
		anchor,
		func(p geometry.Vector3f, d float32) {
			markers = append(markers, marker{point: p, depthToCamera: d})
		},
	)
	return res, markers
}

func TestExploreFlatFloor(t *testing.T) {
	conf := testConfig()
	res, markers := explore(t, conf, floorFrame(nil), floorAnchor)

	cells := conf.ScreenBinsX * conf.ScreenBinsY
	require.Equal(t, StatusCompleted, res.Status)
	require.Equal(t, cells, res.Visited)
	require.Equal(t, cells, res.Marked)
	require.Equal(t, cells, res.Iterations)
	require.Zero(t, res.Rejected)
	require.Zero(t, res.Collided)
	require.Zero(t, res.Unknown)
	require.Zero(t, res.Aliased)
	require.Len(t, markers, cells)

	require.True(t, markers[0].point.Equal(floorAnchor))

	world := NewWorldGrid(conf.VolumeMeters, conf.WorldResolution)
	for _, m := range markers {
		require.InDelta(t, -2, m.point.Y(), 1e-4)
		require.InDelta(t, 2, m.depthToCamera, 1e-4)
		require.True(t, world.Mark(m.point), "point marked twice")
	}
}

func TestExploreObstruction(t *testing.T) {
	conf := testConfig()

	// A 0.5m tall block on the floor, right of the anchor.
	frame := floorFrame(func(x, y int) int16 {
		if x >= 44 && x < 47 && y >= 14 && y < 18 {
			return 500
		}
		return -1
	})

	res, markers := explore(t, conf, frame, floorAnchor)
	require.Equal(t, StatusCompleted, res.Status)
	require.Equal(t, conf.ScreenBinsX*conf.ScreenBinsY, res.Visited)
	require.NotZero(t, res.Rejected)
	require.Less(t, res.Marked, res.Visited)

	beyond := false
	for _, m := range markers {
		require.InDelta(t, -2, m.point.Y(), 1e-4)

		// Cells right behind the block are reached around it.
		if m.point.X() > 1.2 && math.Abs((float64)(m.point.Z())) < 0.1 {
			beyond = true
		}
	}
	require.True(t, beyond)
}

func TestExploreWall(t *testing.T) {
	conf := testConfig()

	// A 0.5m tall wall crossing the whole screen below the anchor.
	frame := floorFrame(func(x, y int) int16 {
		if y >= 20 && y < 23 {
			return 500
		}
		return -1
	})

	res, markers := explore(t, conf, frame, floorAnchor)
	require.Equal(t, StatusCompleted, res.Status)
	require.GreaterOrEqual(t, res.Rejected, conf.ScreenBinsX)
	require.Less(t, res.Visited, conf.ScreenBinsX*conf.ScreenBinsY)

	for _, m := range markers {
		require.Greater(t, m.point.Z(), float32(-0.4), "marked a point behind the wall")
	}
}

func TestExploreElevation(t *testing.T) {
	conf := testConfig()
	conf.ElevationThreshold = 0.2

	// A floor sloping away from the camera, 4cm per pixel row.
	frame := floorFrame(func(x, y int) int16 {
		return (int16)(1500 + 40*y)
	})

	uv := geometry.NewVector2f(0.5, 0.5)
	anchor := testCamera().ScreenUVToWorld(uv, frame.ScreenDepthMeters(uv))

	res, markers := explore(t, conf, frame, anchor)
	require.Equal(t, StatusCompleted, res.Status)
	require.NotZero(t, res.Rejected)
	require.NotEmpty(t, markers)

	for _, m := range markers {
		dy := math.Abs((float64)(m.point.Y() - anchor.Y()))
		require.LessOrEqual(t, dy, 0.2+1e-5)
	}
}

func TestExploreUnknownDepth(t *testing.T) {
	conf := testConfig()

	// No depth on the left quarter of the screen.
	frame := floorFrame(func(x, y int) int16 {
		if x < 16 {
			return 0
		}
		return -1
	})

	res, markers := explore(t, conf, frame, floorAnchor)
	require.Equal(t, StatusCompleted, res.Status)
	require.NotZero(t, res.Unknown)
	require.Equal(t, len(markers), res.Marked)

	for _, m := range markers {
		require.True(t, m.point.IsFinite())
	}
}

func TestExploreProxyBox(t *testing.T) {
	cells := testConfig().ScreenBinsX * testConfig().ScreenBinsY

	t.Run("box centered on the floor collides", func(t *testing.T) {
		conf := testConfig()
		conf.ProxyExtents = geometry.NewVector3f(0.3, 0.3, 0.3)

		// The lower corners sit 0.3m under the floor, past the 0.1m vertex
		// threshold.
		res, markers := explore(t, conf, floorFrame(nil), floorAnchor)
		require.Equal(t, StatusCompleted, res.Status)
		require.NotZero(t, res.Collided)
		require.Equal(t, 1, res.Marked)
		require.Len(t, markers, 1)
	})

	t.Run("lifted box rests on the floor", func(t *testing.T) {
		conf := testConfig()
		conf.ProxyExtents = geometry.NewVector3f(0.3, 0.3, 0.3)
		conf.ProxyLift = 0.3

		res, _ := explore(t, conf, floorFrame(nil), floorAnchor)
		require.Equal(t, StatusCompleted, res.Status)
		require.Zero(t, res.Collided)
		require.Equal(t, cells, res.Marked)
	})

	t.Run("samples are centered on the point", func(t *testing.T) {
		conf := testConfig()
		min, max, ok := conf.proxySamples().Bounds()
		require.True(t, ok)
		require.True(t, min.EqualWithEpsilon(geometry.NewVector3f(-0.02, -0.02, -0.02), 1e-6))
		require.True(t, max.EqualWithEpsilon(geometry.NewVector3f(0.02, 0.02, 0.02), 1e-6))
	})
}

func TestExploreIterationCap(t *testing.T) {
	conf := testConfig()
	conf.IterationCap = 10

	res, _ := explore(t, conf, floorFrame(nil), floorAnchor)
	require.Equal(t, StatusTruncated, res.Status)
	require.Equal(t, 10, res.Iterations)
	require.Less(t, res.Marked, conf.ScreenBinsX*conf.ScreenBinsY)
}

func TestExploreNotStarted(t *testing.T) {
	conf := testConfig()

	t.Run("no frame", func(t *testing.T) {
		res, markers := explore(t, conf, nil, floorAnchor)
		require.Equal(t, StatusSensorNotReady, res.Status)
		require.Empty(t, markers)
	})

	t.Run("no camera", func(t *testing.T) {
		res := Explorer{Config: conf}.Explore(context.Background(), floorFrame(nil), collision.Camera{}, floorAnchor, nil)
		require.Equal(t, StatusSensorNotReady, res.Status)
	})

	t.Run("anchor behind the camera", func(t *testing.T) {
		res, markers := explore(t, conf, floorFrame(nil), geometry.NewVector3f(0, 2, 0))
		require.Equal(t, StatusAnchorInvalid, res.Status)
		require.Empty(t, markers)
	})

	t.Run("anchor outside the screen", func(t *testing.T) {
		res, _ := explore(t, conf, floorFrame(nil), geometry.NewVector3f(10, -2, 0))
		require.Equal(t, StatusAnchorInvalid, res.Status)
	})
}

func TestExploreCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Explorer{Config: testConfig()}.Explore(ctx, floorFrame(nil), testCamera(), floorAnchor, nil)
	require.Equal(t, StatusCancelled, res.Status)
	require.Equal(t, 1, res.Marked)
	require.Zero(t, res.Iterations)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "no screen bins", modify: func(c *Config) { c.ScreenBinsX = 0 }},
		{name: "negative elevation", modify: func(c *Config) { c.ElevationThreshold = -1 }},
		{name: "no iterations", modify: func(c *Config) { c.IterationCap = 0 }},
		{name: "no volume", modify: func(c *Config) { c.VolumeMeters = 0 }},
		{name: "huge world grid", modify: func(c *Config) { c.WorldResolution = 4096 }},
		{name: "negative proxy", modify: func(c *Config) { c.ProxyExtents = geometry.NewVector3f(-1, 0, 0) }},
		{name: "invalid thresholds", modify: func(c *Config) { c.Thresholds.MeshRatioThreshold = 3 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := DefaultConfig()
			test.modify(&c)
			require.Error(t, c.Validate())
		})
	}
}
