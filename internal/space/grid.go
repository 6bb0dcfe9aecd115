package space

import (
	"fmt"
	"math/rand/v2"

	"github.com/kalden/ppsim/internal/simerr"
)

// Grid is a Lattice that holds at most one occupant per cell. The zero value
// of T means the cell is empty, so T is normally an interface or pointer type.
type Grid[T comparable] struct {
	Lattice
	cells []T
}

// NewGrid creates an empty grid.
func NewGrid[T comparable](width, height int) (*Grid[T], error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}
	return &Grid[T]{
		Lattice: Lattice{Width: width, Height: height},
		cells:   make([]T, width*height),
	}, nil
}

// Get returns the occupant of c, or the zero value if c is empty or outside
// the grid.
func (g *Grid[T]) Get(c Coord) T {
	var zero T
	if !g.Contains(c) {
		return zero
	}
	return g.cells[g.index(c)]
}

// Set places v at c, replacing any occupant.
func (g *Grid[T]) Set(c Coord, v T) error {
	if !g.Contains(c) {
		return fmt.Errorf("coordinate %v outside %dx%d grid", c, g.Width, g.Height)
	}
	g.cells[g.index(c)] = v
	return nil
}

// Clear empties c.
func (g *Grid[T]) Clear(c Coord) {
	var zero T
	if g.Contains(c) {
		g.cells[g.index(c)] = zero
	}
}

// Free reports whether c is inside the grid and empty.
func (g *Grid[T]) Free(c Coord) bool {
	var zero T
	return g.Contains(c) && g.cells[g.index(c)] == zero
}

// Occupied returns the number of non-empty cells.
func (g *Grid[T]) Occupied() int {
	var zero T
	n := 0
	for _, v := range g.cells {
		if v != zero {
			n++
		}
	}
	return n
}

// RandomFree draws up to attempts random cells looking for an empty one, then
// falls back to a scan from a random start. It returns simerr.ErrNoSpace when
// the grid is full.
func (g *Grid[T]) RandomFree(rng *rand.Rand, attempts int) (Coord, error) {
	for i := 0; i < attempts; i++ {
		c := Coord{Col: rng.IntN(g.Width), Row: rng.IntN(g.Height)}
		if g.Free(c) {
			return c, nil
		}
	}

	n := len(g.cells)
	start := rng.IntN(n)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		c := Coord{Col: idx % g.Width, Row: idx / g.Width}
		if g.Free(c) {
			return c, nil
		}
	}
	return Coord{}, simerr.NoSpace("grid", "all %d cells occupied", n)
}

func (g *Grid[T]) index(c Coord) int {
	return c.Row*g.Width + c.Col
}
