package space

import "math"

// Coord is a discrete lattice cell.
type Coord struct {
	Col int
	Row int
}

// Neighbor is one cell of a Moore neighbourhood. DX and DY are the unwrapped
// offsets from the centre; Coord is the wrapped cell.
type Neighbor struct {
	Coord
	DX int
	DY int
}

// Center reports whether n is the neighbourhood centre.
func (n Neighbor) Center() bool { return n.DX == 0 && n.DY == 0 }

// Lattice is an integer grid that wraps on both axes for neighbourhood
// queries. Callers that treat X as bounded filter candidates with WrapsX.
type Lattice struct {
	Width  int
	Height int
}

// CenterIndex is the position of the centre cell in a distance-1 Moore
// neighbourhood.
const CenterIndex = 4

// Moore returns the (2*dist+1)^2 cells around (col,row), centre included,
// ordered with DX in the outer loop and DY in the inner loop. At distance 1
// the neighbour at offset (dx,dy) therefore has index (dx+1)*3 + (dy+1).
func (l Lattice) Moore(col, row, dist int) []Neighbor {
	if dist < 0 {
		return nil
	}
	side := 2*dist + 1
	out := make([]Neighbor, 0, side*side)
	for dx := -dist; dx <= dist; dx++ {
		for dy := -dist; dy <= dist; dy++ {
			out = append(out, Neighbor{
				Coord: Coord{Col: wrapInt(col+dx, l.Width), Row: wrapInt(row+dy, l.Height)},
				DX:    dx,
				DY:    dy,
			})
		}
	}
	return out
}

// WrapsX reports whether moving from column src to candidate column cand
// within a neighbourhood of the given distance implies crossing the
// left/right boundary. Such candidates must be rejected because the tract is
// not continuous along its length.
func (l Lattice) WrapsX(src, cand, dist int) bool {
	offset := cand - src
	if offset < 0 {
		offset = -offset
	}
	return offset > dist || offset+dist >= l.Width
}

// Round maps a continuous point to its lattice cell. X is rounded half-up and
// clamped to the lattice; Y is rounded and wrapped.
func (l Lattice) Round(p Point) Coord {
	col := int(math.Floor(p.X + 0.5))
	if col >= l.Width {
		col = l.Width - 1
	}
	if col < 0 {
		col = 0
	}
	row := wrapInt(int(math.Floor(p.Y+0.5)), l.Height)
	return Coord{Col: col, Row: row}
}

// Contains reports whether c lies inside the lattice.
func (l Lattice) Contains(c Coord) bool {
	return c.Col >= 0 && c.Col < l.Width && c.Row >= 0 && c.Row < l.Height
}

// Cells returns Width*Height.
func (l Lattice) Cells() int {
	return l.Width * l.Height
}

func wrapInt(v, n int) int {
	if n <= 0 {
		return v
	}
	return ((v % n) + n) % n
}
