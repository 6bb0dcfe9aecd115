package tissue

import (
	"fmt"
	"math"

	"github.com/kalden/ppsim/internal/schedule"
)

// Setup seeds the stromal populations and schedules the environment and the
// input controllers. It returns the input controllers in configuration
// order.
func (c *Context) Setup() ([]*InputController, error) {
	c.Env.handle = c.Schedule.ScheduleRepeating(c.Env, schedule.OrderEnvironment)

	for _, pop := range c.Stromal {
		if _, err := c.Seed(pop); err != nil {
			return nil, fmt.Errorf("seeding %s: %w", pop.Kind.Class, err)
		}
	}

	controllers := make([]*InputController, 0, len(c.Migrating))
	for _, pop := range c.Migrating {
		ic := &InputController{sim: c, pop: pop}
		ic.handle = c.Schedule.ScheduleRepeating(ic, schedule.OrderInput)
		controllers = append(controllers, ic)
	}
	return controllers, nil
}

// SeedCount returns how many cells a population places on a grid of
// totalCells, and how many of those start activated.
func (p *StromalPopulation) SeedCount(totalCells int) (count, active int) {
	count = int(math.Ceil(float64(totalCells) / 100 * p.Density))
	active = int(math.Ceil(float64(count) * p.ActivePercent / 100))
	if p.Kind.Variant == VariantDecoy {
		active = count
	}
	return count, active
}

// Seed places pop's cells at random free grid cells. Stromal cells are
// activated up to the population's active percentage; decoys always start
// active.
func (c *Context) Seed(pop *StromalPopulation) ([]GridCell, error) {
	count, active := pop.SeedCount(c.Grid.Cells())
	cells := make([]GridCell, 0, count)

	for i := 0; i < count; i++ {
		loc, err := c.Grid.RandomFree(c.RNG, c.Config.Simulation.MaxPlacementAttempts)
		if err != nil {
			return cells, err
		}
		exprs, err := pop.newExpressors()
		if err != nil {
			return cells, err
		}
		cell, err := c.spawnGridCell(pop, loc, c.seedPosition(loc), exprs)
		if err != nil {
			return cells, err
		}
		if i < active {
			cell.base().setState(pop.Kind.InitialState)
		}
		cells = append(cells, cell)
	}

	c.Logger.Debug("seeded stromal population",
		"class", pop.Kind.Class,
		"cells", count,
		"active", active)
	return cells, nil
}
