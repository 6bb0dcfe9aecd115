package stats

import (
	"context"
	"fmt"
	"sort"

	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/tissue"
)

// PatchClass is the migrating class whose aggregation patch statistics
// measure.
const PatchClass = "LTi"

// PatchStatistics records LTi positions at the configured hours and once
// more at the end of the run.
type PatchStatistics struct {
	sim     *tissue.Context
	sink    Sink
	pending []int
	handle  *schedule.Handle
}

// NewPatchStatistics returns a collector for hours. Hours at or past the end
// of the run are covered by the end-of-run sample.
func NewPatchStatistics(sim *tissue.Context, sink Sink, hours []int) *PatchStatistics {
	pending := make([]int, 0, len(hours))
	for _, h := range hours {
		if sim.Config.Simulation.StepsFor(float64(h)) < sim.EndStep {
			pending = append(pending, h)
		}
	}
	sort.Ints(pending)
	return &PatchStatistics{sim: sim, sink: sink, pending: pending}
}

func (p *PatchStatistics) Step(ctx context.Context, tick schedule.Tick) error {
	if tick.Step >= p.sim.EndStep {
		p.handle.Stop()
		return p.emit(ctx, p.sim.Config.Simulation.Hours)
	}

	var err error
	for len(p.pending) > 0 && p.sim.Config.Simulation.StepsFor(float64(p.pending[0])) <= tick.Step {
		h := p.pending[0]
		p.pending = p.pending[1:]
		if e := p.emit(ctx, float64(h)); e != nil {
			err = e
		}
		// Skip repeated hours.
		for len(p.pending) > 0 && p.pending[0] == h {
			p.pending = p.pending[1:]
		}
	}
	return err
}

func (p *PatchStatistics) emit(ctx context.Context, hour float64) error {
	positions := p.Sample(hour)

	inPatch := 0
	for _, pos := range positions {
		if pos.InPatch {
			inPatch++
		}
	}
	p.sim.Logger.Info("patch statistics",
		"hour", hour,
		"lti", len(positions),
		"in_patch", inPatch)

	if err := p.sink.WritePatches(ctx, hour, positions); err != nil {
		return fmt.Errorf("writing patch statistics for hour %v: %w", hour, err)
	}
	return nil
}

// Sample returns the position of every live LTi cell. A cell is in a patch
// when another LTi lies within two cell diameters and an expressing
// organizer within four, measured across the Y seam.
func (p *PatchStatistics) Sample(hour float64) []models.PatchPosition {
	d := p.sim.CellDiameter
	var out []models.PatchPosition
	for _, m := range p.sim.MigratingCells() {
		if m.Class() != PatchClass {
			continue
		}
		pos := m.Position()
		out = append(out, models.PatchPosition{
			Hour:    hour,
			X:       pos.X,
			Y:       pos.Y,
			State:   int(m.State()),
			InPatch: p.hasNeighbour(m, constants.PatchNeighbourFactor*d) && p.hasOrganizer(m, constants.PatchOrganizerFactor*d),
		})
	}
	return out
}

func (p *PatchStatistics) hasNeighbour(m *tissue.MigratingCell, r float64) bool {
	for _, obj := range p.sim.Field.NeighborsWithinRadius(m.Position(), r, true) {
		if other, ok := obj.(*tissue.MigratingCell); ok && other != m && other.Class() == PatchClass {
			return true
		}
	}
	return false
}

func (p *PatchStatistics) hasOrganizer(m *tissue.MigratingCell, r float64) bool {
	for _, obj := range p.sim.Field.NeighborsWithinRadius(m.Position(), r, true) {
		if g, ok := obj.(tissue.GridCell); ok && g.State().Expressing() {
			return true
		}
	}
	return false
}
