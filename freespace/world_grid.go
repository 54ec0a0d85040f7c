package freespace

import (
	"math"
	"math/bits"

	"github.com/aukilabs/depthlab/geometry"
)

// WorldGrid is a fixed occupancy bit set over a cubic volume centered on the
// world origin. Points outside the volume are clamped to its border cells and
// distinct points closer than the grid pitch share a cell.
type WorldGrid struct {
	resolution int
	volume     float32
	pitch      float32
	bits       []uint64
}

func NewWorldGrid(volumeMeters float32, resolution int) *WorldGrid {
	cells := resolution * resolution * resolution

	return &WorldGrid{
		resolution: resolution,
		volume:     volumeMeters,
		pitch:      volumeMeters / (float32)(resolution),
		bits:       make([]uint64, (cells+63)/64),
	}
}

func (g *WorldGrid) Pitch() float32 {
	return g.pitch
}

func (g *WorldGrid) axis(v float32) int {
	i := (int)(math.Floor((float64)((v + g.volume/2) / g.pitch)))
	return min(max(i, 0), g.resolution-1)
}

// Index returns the cell index of a world point.
func (g *WorldGrid) Index(p geometry.Vector3f) int {
	x := g.axis(p.X())
	y := g.axis(p.Y())
	z := g.axis(p.Z())
	return (z*g.resolution+y)*g.resolution + x
}

// Marked reports whether the cell holding p is marked.
func (g *WorldGrid) Marked(p geometry.Vector3f) bool {
	i := g.Index(p)
	return g.bits[i/64]&(uint64(1)<<(i%64)) != 0
}

// Mark marks the cell holding p. It returns false when the cell was already
// marked, possibly by another point.
func (g *WorldGrid) Mark(p geometry.Vector3f) bool {
	i := g.Index(p)
	word, bit := i/64, uint64(1)<<(i%64)

	if g.bits[word]&bit != 0 {
		return false
	}
	g.bits[word] |= bit
	return true
}

// Count returns the number of marked cells.
func (g *WorldGrid) Count() int {
	count := 0
	for _, w := range g.bits {
		count += bits.OnesCount64(w)
	}
	return count
}
