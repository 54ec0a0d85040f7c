package freespace

import (
	"math"

	"github.com/aukilabs/depthlab/geometry"
)

// Cell is a screen grid cell.
type Cell struct {
	X int
	Y int
}

func (c Cell) Add(o Cell) Cell {
	return Cell{X: c.X + o.X, Y: c.Y + o.Y}
}

// The four axis aligned neighbors of a cell.
var neighborOffsets = [4]Cell{
	{X: 1},
	{X: -1},
	{Y: 1},
	{Y: -1},
}

// ScreenGrid is the visited set of an exploration over a binsX by binsY
// screen lattice. The lattice is shifted so that the anchor sits exactly on a
// cell.
type ScreenGrid struct {
	binsX   int
	binsY   int
	phaseX  float32
	phaseY  float32
	visited []bool
	count   int
}

func NewScreenGrid(binsX, binsY int, anchor geometry.Vector2f) *ScreenGrid {
	return &ScreenGrid{
		binsX:   binsX,
		binsY:   binsY,
		phaseX:  latticePhase(anchor.X(), binsX),
		phaseY:  latticePhase(anchor.Y(), binsY),
		visited: make([]bool, binsX*binsY),
	}
}

// latticePhase returns the offset in [0, 1] that puts uv on a lattice point.
// An anchor on the far screen edge gets a phase of 1 so that it lands on the
// last bin instead of one past it.
func latticePhase(uv float32, bins int) float32 {
	f := (float64)(uv) * (float64)(bins)
	i := math.Floor(f)
	if i > (float64)(bins-1) {
		i = (float64)(bins - 1)
	}
	return (float32)(f - i)
}

// CellOf returns the cell holding the given screen UV.
func (g *ScreenGrid) CellOf(uv geometry.Vector2f) Cell {
	return Cell{
		X: (int)(math.Floor((float64)(uv.X()*(float32)(g.binsX) - g.phaseX + 0.5))),
		Y: (int)(math.Floor((float64)(uv.Y()*(float32)(g.binsY) - g.phaseY + 0.5))),
	}
}

// UV returns the screen UV of the given cell.
func (g *ScreenGrid) UV(c Cell) geometry.Vector2f {
	return geometry.NewVector2f(
		((float32)(c.X)+g.phaseX)/(float32)(g.binsX),
		((float32)(c.Y)+g.phaseY)/(float32)(g.binsY),
	)
}

func (g *ScreenGrid) index(c Cell) (int, bool) {
	if c.X < 0 || c.X >= g.binsX || c.Y < 0 || c.Y >= g.binsY {
		return 0, false
	}
	return c.Y*g.binsX + c.X, true
}

// Visited reports whether the cell was visited. Cells outside the grid are
// reported as visited so that the fill stops at the screen edges.
func (g *ScreenGrid) Visited(c Cell) bool {
	i, ok := g.index(c)
	return !ok || g.visited[i]
}

// Visit marks the cell as visited. It returns false when the cell was already
// visited or is outside the grid.
func (g *ScreenGrid) Visit(c Cell) bool {
	i, ok := g.index(c)
	if !ok || g.visited[i] {
		return false
	}

	g.visited[i] = true
	g.count++
	return true
}

// Count returns the number of visited cells.
func (g *ScreenGrid) Count() int {
	return g.count
}

func (g *ScreenGrid) Size() int {
	return len(g.visited)
}
