package tissue

import (
	"context"
	"errors"

	"github.com/kalden/ppsim/internal/expressor"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/simerr"
	"github.com/kalden/ppsim/internal/space"
)

// GridCell is a cell anchored to the stromal grid: a StromalCell or a
// DecoyCell.
type GridCell interface {
	schedule.Steppable
	expressor.Emitter

	Class() string
	State() State
	GridLocation() space.Coord
	ActiveSteps() int64
	Stopped() bool
	Removed() bool

	// CloneStateInto copies what division passes on: the state, the
	// expressor list (shared, not copied) and activeSteps+1.
	CloneStateInto(target GridCell)

	base() *gridCell
}

// gridCell holds the state and behaviour shared by all grid-anchored cells.
type gridCell struct {
	sim  *Context
	pop  *StromalPopulation
	self GridCell

	pos         space.Point
	loc         space.Coord
	state       State
	stopped     bool
	activeSteps int64
	contacts    int
	expressors  []expressor.Expressor
	handle      *schedule.Handle
}

func (g *gridCell) base() *gridCell { return g }
func (g *gridCell) Position() space.Point { return g.pos }
func (g *gridCell) GridLocation() space.Coord { return g.loc }
func (g *gridCell) Class() string { return g.pop.Kind.Class }
func (g *gridCell) State() State { return g.state }
func (g *gridCell) ActiveSteps() int64 { return g.activeSteps }
func (g *gridCell) Stopped() bool { return g.stopped }
func (g *gridCell) Removed() bool { return g.state == StateRemoved }
func (g *gridCell) Expressors() []expressor.Expressor { return g.expressors }
func (g *gridCell) EmitsChemokine() bool { return !g.stopped && g.state.Expressing() }

// CloneStateInto implements GridCell.
func (g *gridCell) CloneStateInto(target GridCell) {
	t := target.base()
	t.expressors = g.expressors
	t.activeSteps = g.activeSteps + 1
	t.setState(g.state)
}

// Step runs one tick of the stromal state machine.
func (g *gridCell) Step(ctx context.Context, tick schedule.Tick) error {
	if g.stopped {
		return nil
	}
	if tick.Step >= g.sim.EndStep {
		g.stopped = true
		g.handle.Stop()
		return nil
	}
	if g.state == StateInactive {
		return nil
	}

	if g.state.Immature() && g.activeSteps > g.pop.ImmatureSteps {
		g.remove(tick, "immature_timeout")
		return nil
	}

	if g.state.CanDivide() && g.activeSteps > 0 && g.activeSteps%g.pop.DivisionSteps == 0 {
		if err := g.divide(tick); err != nil {
			if !errors.Is(err, simerr.ErrNoSpace) {
				return err
			}
			g.sim.Logger.Debug("division deferred",
				"class", g.Class(),
				"col", g.loc.Col,
				"row", g.loc.Row,
				"error", err)
		}
	}

	g.activeSteps++
	return nil
}

// setState moves the cell to s and keeps the counters and the organizer
// cache in step.
func (g *gridCell) setState(s State) {
	if g.state == s {
		return
	}
	g.sim.Counters.Move(g.Class(), g.state, s)
	g.state = s
	g.sim.invalidateOrganizers()
}

// remove detaches the cell from the field and the grid and stops it.
func (g *gridCell) remove(tick schedule.Tick, reason string) {
	g.sim.Field.Remove(g.self)
	if g.sim.Grid.Get(g.loc) == g.self {
		g.sim.Grid.Clear(g.loc)
	}
	g.setState(StateRemoved)
	g.stopped = true
	g.handle.Stop()

	g.sim.Decisions.Record("removal", tick.Step, g.Class(),
		"col", g.loc.Col,
		"row", g.loc.Row,
		"reason", reason,
		"active_steps", g.activeSteps)
}

// divide searches outward from the cell for a neighbour to activate. At
// each radius an inactive cell is converted in place if one exists,
// otherwise the first empty cell receives a new cell of the same kind.
// Candidates that would wrap along the tract length are skipped.
func (g *gridCell) divide(tick schedule.Tick) error {
	grid := g.sim.Grid
	maxRadius := g.sim.Config.Simulation.MaxDivisionRadius

	for r := 1; r <= maxRadius; r++ {
		var free []space.Coord
		for _, nb := range grid.Moore(g.loc.Col, g.loc.Row, r) {
			if nb.Center() || grid.WrapsX(g.loc.Col, nb.Col, r) {
				continue
			}
			occupant := grid.Get(nb.Coord)
			if occupant == nil {
				free = append(free, nb.Coord)
				continue
			}
			if occupant.State() == StateInactive && !occupant.Stopped() {
				g.CloneStateInto(occupant)
				g.logDivision(tick, nb.Coord, "convert", r)
				return nil
			}
		}

		if len(free) > 0 {
			target := free[0]
			child, err := g.sim.spawnGridCell(g.pop, target, g.sim.divisionPosition(target), nil)
			if err != nil {
				return err
			}
			g.CloneStateInto(child)
			g.logDivision(tick, target, "create", r)
			return nil
		}
	}
	return simerr.NoSpace(g.Class(), "no inactive or empty cell within radius %d of (%d,%d)",
		maxRadius, g.loc.Col, g.loc.Row)
}

func (g *gridCell) logDivision(tick schedule.Tick, target space.Coord, mode string, radius int) {
	g.sim.Counters.divisions[g.Class()]++
	g.sim.Decisions.Record("division", tick.Step, g.Class(),
		"from", []int{g.loc.Col, g.loc.Row},
		"to", []int{target.Col, target.Row},
		"mode", mode,
		"radius", radius,
		"state", int(g.state))
}

// spawnGridCell creates a cell of pop at loc, registers it with the grid,
// the field and the schedule, and returns it in the inactive state.
func (c *Context) spawnGridCell(pop *StromalPopulation, loc space.Coord, pos space.Point, exprs []expressor.Expressor) (GridCell, error) {
	g := gridCell{
		sim:        c,
		pop:        pop,
		pos:        pos,
		loc:        loc,
		state:      StateInactive,
		expressors: exprs,
	}

	var cell GridCell
	switch pop.Kind.Variant {
	case VariantDecoy:
		d := &DecoyCell{gridCell: g}
		d.self = d
		cell = d
	default:
		s := &StromalCell{gridCell: g}
		s.self = s
		cell = s
	}

	if err := c.Grid.Set(loc, cell); err != nil {
		return nil, err
	}
	c.Field.Place(cell, pos)
	c.Counters.Add(pop.Kind.Class, StateInactive, 1)
	c.gridCells = append(c.gridCells, cell)
	cell.base().handle = c.Schedule.ScheduleRepeating(cell, schedule.OrderAgents)
	c.invalidateOrganizers()
	return cell, nil
}

// divisionPosition maps a grid cell to field coordinates using the current
// tract size, so offspring spread as the tract grows.
func (c *Context) divisionPosition(loc space.Coord) space.Point {
	xAdj := c.Env.Width / float64(c.Grid.Width)
	yAdj := c.Env.Height / float64(c.Grid.Height)
	return space.Point{
		X: float64(loc.Col)*xAdj + c.CellDiameter/2,
		Y: float64(loc.Row)*yAdj + c.CellDiameter/2,
	}
}

// seedPosition maps a grid cell to field coordinates at setup.
func (c *Context) seedPosition(loc space.Coord) space.Point {
	return space.Point{
		X: float64(loc.Col)*c.CellDiameter + c.CellDiameter/2,
		Y: float64(loc.Row)*c.CellDiameter + c.CellDiameter/2,
	}
}
