package tissue

import (
	"context"
	"math"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/space"
)

// Environment is the growing intestinal tract. It owns the field and widens
// it every tick once growth has started. Agent positions are never remapped,
// so growth dilutes the population rather than stretching it.
type Environment struct {
	Width  float64
	Height float64

	InitialWidth  float64
	InitialHeight float64
	TargetWidth   float64
	TargetHeight  float64

	// GrowthX and GrowthY are the per-step increments, fixed at creation.
	GrowthX float64
	GrowthY float64

	GrowthStartStep int64

	endStep int64
	field   *space.Field
	handle  *schedule.Handle
}

// NewEnvironment creates the tract at its initial size. A dimension whose
// target does not exceed its initial value, or a zero growth period, gets no
// growth.
func NewEnvironment(env config.EnvironmentConfig, sim config.SimulationConfig, field *space.Field) *Environment {
	e := &Environment{
		Width:           env.InitialLength,
		Height:          env.InitialCircumference,
		InitialWidth:    env.InitialLength,
		InitialHeight:   env.InitialCircumference,
		TargetWidth:     math.Max(env.TargetLength, env.InitialLength),
		TargetHeight:    math.Max(env.TargetCircumference, env.InitialCircumference),
		GrowthStartStep: sim.StepsFor(env.GrowthStartHours),
		endStep:         sim.TotalSteps(),
		field:           field,
	}
	if steps := sim.StepsFor(env.GrowthHours); steps > 0 {
		e.GrowthX = (e.TargetWidth - e.InitialWidth) / float64(steps)
		e.GrowthY = (e.TargetHeight - e.InitialHeight) / float64(steps)
	}
	return e
}

// Step grows the tract by one increment.
func (e *Environment) Step(ctx context.Context, tick schedule.Tick) error {
	if tick.Step >= e.endStep {
		e.handle.Stop()
		return nil
	}
	if tick.Step < e.GrowthStartStep {
		return nil
	}
	e.Grow()
	return nil
}

// Grow applies one growth increment, capped at the target size.
func (e *Environment) Grow() {
	e.Width = math.Min(e.Width+e.GrowthX, e.TargetWidth)
	e.Height = math.Min(e.Height+e.GrowthY, e.TargetHeight)
	if e.field != nil {
		e.field.Resize(e.Width, e.Height)
	}
}

// Lattice returns the unit lattice over the current tract, used for
// chemokine sampling.
func (e *Environment) Lattice() space.Lattice {
	return space.Lattice{Width: int(e.Width), Height: int(e.Height)}
}
