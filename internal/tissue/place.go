package tissue

import (
	"github.com/kalden/ppsim/internal/simerr"
	"github.com/kalden/ppsim/internal/space"
)

// PlaceMigrating adds a cell of the configured migrating class at p. It
// bypasses the input controllers and their collision check, so scenarios can
// start from a fixed layout.
func (c *Context) PlaceMigrating(class string, p space.Point) (*MigratingCell, error) {
	for _, pop := range c.Migrating {
		if pop.Kind.Class == class {
			return c.placeMigrating(pop, p)
		}
	}
	return nil, simerr.Configf("class", "no migrating population %q", class)
}

// PlaceGridCell adds a cell of the configured stromal or decoy class at loc
// in the given state, positioned as if seeded there.
func (c *Context) PlaceGridCell(class string, loc space.Coord, state State) (GridCell, error) {
	for _, pop := range c.Stromal {
		if pop.Kind.Class != class {
			continue
		}
		if !c.Grid.Free(loc) {
			return nil, simerr.NoSpace(class, "grid cell (%d,%d) is occupied", loc.Col, loc.Row)
		}
		exprs, err := pop.newExpressors()
		if err != nil {
			return nil, err
		}
		cell, err := c.spawnGridCell(pop, loc, c.seedPosition(loc), exprs)
		if err != nil {
			return nil, err
		}
		cell.base().setState(state)
		return cell, nil
	}
	return nil, simerr.Configf("class", "no stromal population %q", class)
}
