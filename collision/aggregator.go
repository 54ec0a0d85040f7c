package collision

import (
	"sync"

	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/geometry"
)

// Sample sets smaller than this are always tested on the calling goroutine.
const minParallelSamples = 256

// Verdict is the outcome of testing a whole sample set.
type Verdict struct {
	CollidedCount int     `json:"collided_count"`
	InvalidCount  int     `json:"invalid_count"`
	TotalTested   int     `json:"total_tested"`
	Ratio         float32 `json:"ratio"`
	Collided      bool    `json:"collided"`

	// Set when no depth frame or camera was available. The verdict is then
	// the conservative no-collision one.
	SensorNotReady bool `json:"sensor_not_ready,omitempty"`
}

// CameraSource returns the camera matching the current depth frame.
type CameraSource interface {
	Camera() (Camera, bool)
}

// CameraFunc adapts a function to a CameraSource.
type CameraFunc func() (Camera, bool)

func (f CameraFunc) Camera() (Camera, bool) {
	return f()
}

// StaticCamera is a CameraSource that always returns the same camera.
func StaticCamera(c Camera) CameraSource {
	return CameraFunc(func() (Camera, bool) {
		return c, !c.IsZero()
	})
}

// Aggregator runs collision queries against the latest depth frame.
type Aggregator struct {
	Depth      *depth.Provider
	Cameras    CameraSource
	Thresholds Thresholds

	// The number of goroutines used to test large sample sets. Values below
	// 2 test sequentially.
	Parallelism int
}

// TestCollision tests the samples placed at origin.
func (a *Aggregator) TestCollision(origin geometry.Vector3f, samples SampleSet) Verdict {
	return a.TestTransformed(geometry.Translation(origin), samples)
}

// TestTransformed tests the samples moved by objectToWorld.
func (a *Aggregator) TestTransformed(objectToWorld geometry.Matrix4, samples SampleSet) Verdict {
	var frame *depth.Frame
	if a.Depth != nil {
		frame = a.Depth.Snapshot()
	}

	var camera Camera
	if a.Cameras != nil {
		camera, _ = a.Cameras.Camera()
	}

	v := testSamples(Tester{Frame: frame, Camera: camera}, objectToWorld, samples, a.Thresholds, a.Parallelism)
	instrumentVerdict(v)
	return v
}

// TestFrame tests the samples placed at origin against the given frame.
func TestFrame(frame *depth.Frame, camera Camera, origin geometry.Vector3f, samples SampleSet, thresholds Thresholds) Verdict {
	return testSamples(Tester{Frame: frame, Camera: camera}, geometry.Translation(origin), samples, thresholds, 1)
}

func testSamples(t Tester, objectToWorld geometry.Matrix4, samples SampleSet, thresholds Thresholds, parallelism int) Verdict {
	if t.Frame == nil || t.Camera.IsZero() {
		return Verdict{
			TotalTested:    0,
			SensorNotReady: true,
		}
	}

	var collided, invalid int
	if parallelism < 2 || len(samples) < minParallelSamples {
		collided, invalid = countResults(t, objectToWorld, samples, thresholds.VertexDistanceMeters)
	} else {
		collided, invalid = countResultsParallel(t, objectToWorld, samples, thresholds.VertexDistanceMeters, parallelism)
	}

	v := Verdict{
		CollidedCount: collided,
		InvalidCount:  invalid,
		TotalTested:   len(samples) - invalid,
	}
	if v.TotalTested <= 0 {
		return v
	}

	v.Ratio = (float32)(v.CollidedCount) / (float32)(v.TotalTested)
	v.Collided = v.Ratio > thresholds.MeshRatioThreshold
	return v
}

func countResults(t Tester, objectToWorld geometry.Matrix4, samples SampleSet, threshold float32) (collided, invalid int) {
	for _, s := range samples {
		switch t.TestVertex(objectToWorld.MulPoint(s), threshold) {
		case Collided:
			collided++
		case InvalidDepth:
			invalid++
		}
	}
	return collided, invalid
}

func countResultsParallel(t Tester, objectToWorld geometry.Matrix4, samples SampleSet, threshold float32, parallelism int) (collided, invalid int) {
	chunkSize := (len(samples) + parallelism - 1) / parallelism

	var mutex sync.Mutex
	var wg sync.WaitGroup

	for start := 0; start < len(samples); start += chunkSize {
		end := min(start+chunkSize, len(samples))

		wg.Add(1)
		go func(chunk SampleSet) {
			defer wg.Done()

			c, i := countResults(t, objectToWorld, chunk, threshold)

			mutex.Lock()
			defer mutex.Unlock()
			collided += c
			invalid += i
		}(samples[start:end])
	}

	wg.Wait()
	return collided, invalid
}
