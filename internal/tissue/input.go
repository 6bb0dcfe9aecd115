package tissue

import (
	"context"
	"math"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/simerr"
)

// InputController admits the cells of one migrating population.
//
// The constant curve admits PerStep cells every step. The exp and sqrt
// curves admit the step-on-step increase of c^n and (c*n)^0.5 where n is the
// global step. Whole cells are admitted at once and fractions carry over.
type InputController struct {
	sim *Context
	pop *MigratingPopulation

	owed     float64
	admitted int64
	handle   *schedule.Handle
}

// Admitted returns the number of cells admitted so far.
func (ic *InputController) Admitted() int64 { return ic.admitted }

// Step admits this step's cells.
func (ic *InputController) Step(ctx context.Context, tick schedule.Tick) error {
	if tick.Step >= ic.sim.EndStep || tick.Seconds() >= ic.pop.InputEndSeconds {
		ic.handle.Stop()
		return nil
	}
	if tick.Seconds() <= ic.pop.InputStartSeconds {
		return nil
	}

	amount := ic.pop.Amount(tick.Step)
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return simerr.Invariantf(ic.pop.Kind.Class+".rate", "input rate %v at step %d is not a finite non-negative number", amount, tick.Step)
	}
	ic.owed += amount

	for ic.owed >= 1 {
		if _, err := ic.sim.admit(ic.pop, tick); err != nil {
			return err
		}
		ic.owed--
		ic.admitted++
	}
	return nil
}

// Amount returns the number of cells owed at global step n.
func (p *MigratingPopulation) Amount(n int64) float64 {
	step := float64(n)
	switch p.Curve {
	case config.CurveExp:
		return math.Pow(p.RateConstant, step) - math.Pow(p.RateConstant, step-1)
	case config.CurveSqrt:
		return math.Sqrt(p.RateConstant*step) - math.Sqrt(p.RateConstant*(step-1))
	default:
		return p.PerStep
	}
}
