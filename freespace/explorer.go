package freespace

import (
	"context"
	"math"
	"time"

	"github.com/aukilabs/depthlab/collision"
	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/geometry"
)

// Status tells how an exploration ended.
type Status string

const (
	// The whole reachable free space was explored.
	StatusCompleted Status = "completed"

	// The iteration cap was reached before the frontier was empty.
	StatusTruncated Status = "truncated"

	// No depth frame or camera was available.
	StatusSensorNotReady Status = "sensor_not_ready"

	// The anchor is not in front of the camera or not on screen.
	StatusAnchorInvalid Status = "anchor_invalid"

	StatusCancelled Status = "cancelled"
)

// Sink receives the points marked as free space with their distance to the
// camera along its view axis.
type Sink func(point geometry.Vector3f, depthToCamera float32)

// Result summarizes an exploration.
type Result struct {
	Status Status `json:"status"`

	// The number of cells dequeued from the frontier.
	Iterations int `json:"iterations"`

	// The number of screen cells visited, the anchor included.
	Visited int `json:"visited"`

	// The number of world cells marked as free, the anchor included.
	Marked int `json:"marked"`

	// Visited cells dropped because of their elevation.
	Rejected int `json:"rejected"`

	// Visited cells dropped because their proxy box collided.
	Collided int `json:"collided"`

	// Visited cells without depth.
	Unknown int `json:"unknown"`

	// Free cells whose world cell was already marked by another point.
	Aliased int `json:"aliased"`

	Duration time.Duration `json:"duration"`
}

// Explorer floods free space on the surface under an anchor point.
type Explorer struct {
	Config Config
}

// Explore runs a breadth first flood fill over the screen grid, starting at
// the anchor. Every visited neighbor is reprojected on the frame, kept when it
// stays at the anchor elevation and its proxy box does not collide, then
// marked in the world grid and sent to sink.
//
// The frame must not change during the exploration: callers pass a snapshot.
func (e Explorer) Explore(ctx context.Context, frame *depth.Frame, camera collision.Camera, anchor geometry.Vector3f, sink Sink) Result {
	start := time.Now()
	res := e.explore(ctx, frame, camera, anchor, sink)
	res.Duration = time.Since(start)

	instrumentExploration(res)
	return res
}

func (e Explorer) explore(ctx context.Context, frame *depth.Frame, camera collision.Camera, anchor geometry.Vector3f, sink Sink) Result {
	if frame == nil || camera.IsZero() {
		return Result{Status: StatusSensorNotReady}
	}
	if sink == nil {
		sink = func(geometry.Vector3f, float32) {}
	}

	conf := e.Config
	anchorUV, anchorDepth, ok := camera.WorldToScreenUV(anchor)
	if !ok || !anchorUV.InUnitSquare() {
		return Result{Status: StatusAnchorInvalid}
	}

	screen := NewScreenGrid(conf.ScreenBinsX, conf.ScreenBinsY, anchorUV)
	anchorCell := screen.CellOf(anchorUV)
	if !screen.Visit(anchorCell) {
		return Result{Status: StatusAnchorInvalid}
	}

	world := NewWorldGrid(conf.VolumeMeters, conf.WorldResolution)
	world.Mark(anchor)
	sink(anchor, anchorDepth)

	res := Result{
		Status:  StatusCompleted,
		Visited: 1,
		Marked:  1,
	}

	samples := conf.proxySamples()
	frontier := []Cell{anchorCell}

	for head := 0; head < len(frontier); head++ {
		if ctx.Err() != nil {
			res.Status = StatusCancelled
			return res
		}
		if res.Iterations >= conf.IterationCap {
			res.Status = StatusTruncated
			return res
		}
		res.Iterations++

		cell := frontier[head]
		for _, o := range neighborOffsets {
			n := cell.Add(o)
			if !screen.Visit(n) {
				continue
			}
			res.Visited++

			uv := screen.UV(n)
			depthMeters := frame.ScreenDepthMeters(uv)
			p := camera.ScreenUVToWorld(uv, depthMeters)
			if p.IsNegativeInfinity() {
				res.Unknown++
				continue
			}

			if math.Abs((float64)(p.Y()-anchor.Y())) > (float64)(conf.ElevationThreshold) {
				res.Rejected++
				continue
			}

			if v := collision.TestFrame(frame, camera, p, samples, conf.Thresholds); v.Collided {
				res.Collided++
				continue
			}

			frontier = append(frontier, n)
			if !world.Mark(p) {
				res.Aliased++
				continue
			}
			res.Marked++
			sink(p, depthMeters)
		}
	}

	return res
}
