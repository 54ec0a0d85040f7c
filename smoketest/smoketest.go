// Package smoketest checks that the depth pipeline works end to end on a
// synthetic scene: a flat floor 2m under a camera looking straight down.
package smoketest

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/aukilabs/depthlab/collision"
	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/freespace"
	"github.com/aukilabs/depthlab/geometry"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

type Options struct {
	Config     freespace.Config
	Thresholds collision.Thresholds

	// The maximum duration of the exploration.
	Timeout time.Duration
}

type Request struct {
	// The encoding used to round trip the synthetic frame.
	Encoding string `json:"encoding,omitempty"`
}

type Results struct {
	Status       string        `json:"status"`
	Error        string        `json:"error,omitempty"`
	Collided     bool          `json:"collided"`
	Free         bool          `json:"free"`
	Exploration  string        `json:"exploration"`
	Marked       int           `json:"marked"`
	DurationMsec float64       `json:"duration_msec"`
	Duration     time.Duration `json:"-"`
}

func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if b, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		} else if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}

		res, err := Run(ctx, opts, req)
		if err != nil {
			logs.WithTag("encoding", req.Encoding).
				Warn(errors.New("smoke test failed").Wrap(err))
		} else {
			logs.WithTag("marked", res.Marked).
				WithTag("duration", res.Duration).
				Info("smoke test succeeded")
		}

		b, err := json.Marshal(res)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if res.Status != StatusSuccess {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		w.Write(b)
	}
}

// Run tests an object under and above the synthetic floor, then explores the
// floor from the point right under the camera.
func Run(ctx context.Context, opts Options, req Request) (Results, error) {
	start := time.Now()

	res, err := run(ctx, opts, req)
	res.Duration = time.Since(start)
	res.DurationMsec = float64(res.Duration) / float64(time.Millisecond)
	res.Status = StatusSuccess
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
	}
	return res, err
}

func run(ctx context.Context, opts Options, req Request) (Results, error) {
	var res Results

	if req.Encoding == "" {
		req.Encoding = depth.EncodingZstd
	}

	in := depth.NewIntrinsics(32, 32, 32, 16, 64, 32)
	payload, err := depth.EncodePayload(depth.PlaneFrame(in, 2), req.Encoding)
	if err != nil {
		return res, errors.New("encoding synthetic frame failed").Wrap(err)
	}
	frame, err := depth.DecodePayload(payload)
	if err != nil {
		return res, errors.New("decoding synthetic frame failed").Wrap(err)
	}

	var provider depth.Provider
	provider.Set(frame)

	camera := collision.NewCamera(geometry.RotationX(math.Pi/2), in)
	aggregator := collision.Aggregator{
		Depth:      &provider,
		Cameras:    collision.StaticCamera(camera),
		Thresholds: opts.Thresholds,
	}
	box := collision.BoxSamples(geometry.NewVector3f(0, 0, 0), geometry.NewVector3f(0.1, 0.1, 0.1))

	res.Collided = aggregator.TestCollision(geometry.NewVector3f(0, -3, 0), box).Collided
	res.Free = !aggregator.TestCollision(geometry.NewVector3f(0, -1, 0), box).Collided
	if !res.Collided || !res.Free {
		return res, errors.New("unexpected collision verdict").
			WithTag("collided", res.Collided).
			WithTag("free", res.Free)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	explored := freespace.Explorer{Config: opts.Config}.Explore(
		ctx,
		provider.Snapshot(),
		camera,
		geometry.NewVector3f(0, -2, 0),
		nil,
	)
	res.Exploration = string(explored.Status)
	res.Marked = explored.Marked
	if explored.Status != freespace.StatusCompleted && explored.Status != freespace.StatusTruncated {
		return res, errors.New("exploration did not complete").
			WithTag("status", explored.Status)
	}
	if explored.Marked <= 1 {
		return res, errors.New("exploration marked no free space")
	}
	return res, nil
}
