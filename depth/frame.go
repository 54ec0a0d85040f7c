package depth

import (
	"math"

	"github.com/aukilabs/depthlab/geometry"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	// Depth samples are stored in millimeters.
	MillimetersToMeters = (float32)(0.001)

	ErrTypeInvalidFrame = "invalid-frame"

	// The largest accepted frame width or height, in pixels.
	MaxFrameDimension = 4096
)

// Intrinsics describes a pinhole camera in pixels.
type Intrinsics struct {
	FocalLength    geometry.Vector2f
	PrincipalPoint geometry.Vector2f
	Width          int
	Height         int
}

func NewIntrinsics(fx, fy, px, py float32, width, height int) Intrinsics {
	return Intrinsics{
		FocalLength:    geometry.NewVector2f(fx, fy),
		PrincipalPoint: geometry.NewVector2f(px, py),
		Width:          width,
		Height:         height,
	}
}

// Scaled returns the intrinsics of the same camera at another resolution.
func (in Intrinsics) Scaled(width, height int) Intrinsics {
	if in.Width == 0 || in.Height == 0 {
		return in
	}

	sx := (float32)(width) / (float32)(in.Width)
	sy := (float32)(height) / (float32)(in.Height)
	return NewIntrinsics(
		in.FocalLength.X()*sx,
		in.FocalLength.Y()*sy,
		in.PrincipalPoint.X()*sx,
		in.PrincipalPoint.Y()*sy,
		width,
		height,
	)
}

func (in Intrinsics) Validate() error {
	if in.Width <= 0 || in.Height <= 0 {
		return errors.New("intrinsics resolution must be positive").
			WithType(ErrTypeInvalidFrame).
			WithTag("width", in.Width).
			WithTag("height", in.Height)
	}
	if in.FocalLength.X() <= 0 || in.FocalLength.Y() <= 0 {
		return errors.New("focal length must be positive").
			WithType(ErrTypeInvalidFrame).
			WithTag("fx", in.FocalLength.X()).
			WithTag("fy", in.FocalLength.Y())
	}
	return nil
}

// Frame is an immutable snapshot of a depth map. A frame is never modified
// after creation so it can be shared between the goroutine receiving frames
// and the ones running collision tests.
type Frame struct {
	width      int
	height     int
	samples    []int16
	intrinsics Intrinsics
	display    DisplayTransform
}

// NewFrame creates a frame from millimeter samples laid out row-major. The
// samples are copied.
func NewFrame(width, height int, samples []int16, intrinsics Intrinsics, display DisplayTransform) (*Frame, error) {
	if err := validateDimensions(width, height); err != nil {
		return nil, err
	}
	if len(samples) != width*height {
		return nil, errors.New("sample count does not match frame dimensions").
			WithType(ErrTypeInvalidFrame).
			WithTag("width", width).
			WithTag("height", height).
			WithTag("samples", len(samples))
	}
	if err := intrinsics.Validate(); err != nil {
		return nil, err
	}

	s := make([]int16, len(samples))
	copy(s, samples)

	return &Frame{
		width:      width,
		height:     height,
		samples:    s,
		intrinsics: intrinsics,
		display:    display,
	}, nil
}

func validateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.New("frame dimensions must be positive").
			WithType(ErrTypeInvalidFrame).
			WithTag("width", width).
			WithTag("height", height)
	}
	if width > MaxFrameDimension || height > MaxFrameDimension {
		return errors.New("frame dimensions are too large").
			WithType(ErrTypeInvalidFrame).
			WithTag("width", width).
			WithTag("height", height).
			WithTag("max", MaxFrameDimension)
	}
	return nil
}

func (f *Frame) Width() int { return f.width }

func (f *Frame) Height() int { return f.height }

func (f *Frame) Intrinsics() Intrinsics { return f.intrinsics }

func (f *Frame) Display() DisplayTransform { return f.display }

// Sample returns the raw millimeter sample at the given pixel.
func (f *Frame) Sample(x, y int) (int16, bool) {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return 0, false
	}
	return f.samples[y*f.width+x], true
}

// DepthMeters returns the depth at the given pixel, or 0 when the pixel is
// outside the frame or holds no measurement.
func (f *Frame) DepthMeters(x, y int) float32 {
	sample, ok := f.Sample(x, y)
	if !ok || sample <= 0 {
		return 0
	}
	return (float32)(sample) * MillimetersToMeters
}

// PixelFromUV maps a normalized depth map UV to the nearest pixel.
func (f *Frame) PixelFromUV(uv geometry.Vector2f) (int, int) {
	x := (int)(math.Floor((float64)(uv.X()) * (float64)(f.width-1)))
	y := (int)(math.Floor((float64)(uv.Y()) * (float64)(f.height-1)))
	return x, y
}

// DepthMetersUV returns the depth at a normalized depth map UV. UVs outside
// [0, 1] read as 0.
func (f *Frame) DepthMetersUV(uv geometry.Vector2f) float32 {
	if !uv.InUnitSquare() {
		return 0
	}
	return f.DepthMeters(f.PixelFromUV(uv))
}

// ScreenDepthMeters returns the depth seen at a screen UV, going through the
// display transform of the frame.
func (f *Frame) ScreenDepthMeters(screenUV geometry.Vector2f) float32 {
	return f.DepthMetersUV(f.display.Apply(screenUV))
}

// ReprojectPixel returns the camera space point seen at the given depth map
// pixel, or the negative infinity sentinel when there is no depth.
func (f *Frame) ReprojectPixel(x, y int) geometry.Vector3f {
	return Reproject(f.intrinsics, (float32)(x), (float32)(y), f.DepthMeters(x, y))
}

// ValidRatio returns the fraction of samples holding a measurement.
func (f *Frame) ValidRatio() float32 {
	valid := 0
	for _, s := range f.samples {
		if s > 0 {
			valid++
		}
	}
	return (float32)(valid) / (float32)(len(f.samples))
}

// PlaneFrame returns a frame where every sample holds the same depth. It is
// used to probe a deployment without an AR client.
func PlaneFrame(in Intrinsics, depthMeters float32) *Frame {
	samples := make([]int16, in.Width*in.Height)
	mm := int16(math.Round((float64)(depthMeters) * 1000))
	for i := range samples {
		samples[i] = mm
	}

	return &Frame{
		width:      in.Width,
		height:     in.Height,
		samples:    samples,
		intrinsics: in,
		display:    DisplayIdentity(),
	}
}

// WithSamples returns a copy of the frame where fn may edit the samples.
func (f *Frame) WithSamples(fn func(width, height int, samples []int16)) *Frame {
	s := make([]int16, len(f.samples))
	copy(s, f.samples)
	fn(f.width, f.height, s)

	return &Frame{
		width:      f.width,
		height:     f.height,
		samples:    s,
		intrinsics: f.intrinsics,
		display:    f.display,
	}
}

// WithDisplay returns a copy of the frame using another display transform.
func (f *Frame) WithDisplay(d DisplayTransform) *Frame {
	c := *f
	c.display = d
	return &c
}
