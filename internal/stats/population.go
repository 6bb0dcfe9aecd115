package stats

import (
	"context"
	"fmt"

	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/tissue"
)

// PopulationSampler records the number of cells per class and state every
// simulated hour and at the end of the run.
type PopulationSampler struct {
	sim    *tissue.Context
	sink   Sink
	every  int64
	handle *schedule.Handle
}

// NewPopulationSampler returns an hourly sampler.
func NewPopulationSampler(sim *tissue.Context, sink Sink) *PopulationSampler {
	every := sim.Config.Simulation.StepsFor(1)
	if every < 1 {
		every = 1
	}
	return &PopulationSampler{sim: sim, sink: sink, every: every}
}

func (p *PopulationSampler) Step(ctx context.Context, tick schedule.Tick) error {
	end := tick.Step >= p.sim.EndStep
	if end {
		p.handle.Stop()
	}
	if !end && tick.Step%p.every != 0 {
		return nil
	}

	samples := p.Sample(tick.Hours())
	if err := p.sink.WritePopulation(ctx, samples); err != nil {
		return fmt.Errorf("writing population at hour %v: %w", tick.Hours(), err)
	}
	return nil
}

// Sample converts the current counters into population samples.
func (p *PopulationSampler) Sample(hour float64) []models.PopulationSample {
	snap := p.sim.Counters.Snapshot()
	out := make([]models.PopulationSample, 0, len(snap))
	for _, pc := range snap {
		out = append(out, models.PopulationSample{
			Hour:  hour,
			Class: pc.Class,
			State: int(pc.State),
			Count: pc.Count,
		})
	}
	return out
}

func stateName(code int) string {
	return tissue.State(code).String()
}
