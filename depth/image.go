package depth

import (
	"image"
	"image/color"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/nfnt/resize"
)

// FromImage builds a frame from a 16-bit grayscale depth image holding
// millimeters. The image is downsampled with nearest neighbour filtering to
// width x height, and the intrinsics (given for the source image) are scaled
// accordingly. Zero width or height keeps the source resolution.
func FromImage(img image.Image, intrinsics Intrinsics, display DisplayTransform, width, height int) (*Frame, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.New("empty depth image").WithType(ErrTypeInvalidFrame)
	}

	if width <= 0 || height <= 0 {
		width = bounds.Dx()
		height = bounds.Dy()
	}

	if width != bounds.Dx() || height != bounds.Dy() {
		// Interpolating depth would invent surfaces between foreground and
		// background.
		img = resize.Resize(uint(width), uint(height), img, resize.NearestNeighbor)
		bounds = img.Bounds()
	}

	samples := make([]int16, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			samples[y*width+x] = millimetersAt(img, bounds.Min.X+x, bounds.Min.Y+y)
		}
	}

	return NewFrame(width, height, samples, intrinsics.Scaled(width, height), display)
}

func millimetersAt(img image.Image, x, y int) int16 {
	var v uint16
	if g, ok := img.(*image.Gray16); ok {
		v = g.Gray16At(x, y).Y
	} else {
		v = color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
	}

	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(v)
}

// ToImage renders the frame as a 16-bit grayscale image of millimeters.
// Invalid samples are black.
func (f *Frame) ToImage() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.width, f.height))
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			s := f.samples[y*f.width+x]
			if s < 0 {
				s = 0
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(s)})
		}
	}
	return img
}
