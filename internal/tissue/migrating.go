package tissue

import (
	"context"
	"math"

	"github.com/kalden/ppsim/internal/expressor"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/simerr"
	"github.com/kalden/ppsim/internal/space"
)

// Track accumulates a migrating cell's path during a tracking window.
type Track struct {
	Steps  int64
	Length float64
	Start  space.Point
	End    space.Point
}

// MigratingCell is an LTin or LTi cell moving over the tract.
type MigratingCell struct {
	sim *Context
	pop *MigratingPopulation

	pos         space.Point
	state       State
	speed       float64
	stopped     bool
	removed     bool
	activeSteps int64
	expressors  []expressor.Expressor
	handle      *schedule.Handle

	tracking bool
	track    Track
}

func (m *MigratingCell) Position() space.Point { return m.pos }
func (m *MigratingCell) Class() string { return m.pop.Kind.Class }
func (m *MigratingCell) State() State { return m.state }
func (m *MigratingCell) Speed() float64 { return m.speed }
func (m *MigratingCell) ActiveSteps() int64 { return m.activeSteps }
func (m *MigratingCell) Stopped() bool { return m.stopped }
func (m *MigratingCell) Removed() bool { return m.removed }
func (m *MigratingCell) Expressors() []expressor.Expressor { return m.expressors }

// BeginTrack starts a new track at the cell's current position.
func (m *MigratingCell) BeginTrack() {
	m.tracking = true
	m.track = Track{Start: m.pos, End: m.pos}
}

// EndTrack stops tracking and returns the accumulated track.
func (m *MigratingCell) EndTrack() Track {
	m.tracking = false
	return m.track
}

// Tracking reports whether a track is being accumulated.
func (m *MigratingCell) Tracking() bool { return m.tracking }

// Step runs one tick: contact signalling, adhesion, then chemotactic
// movement if the cell did not adhere.
func (m *MigratingCell) Step(ctx context.Context, tick schedule.Tick) error {
	if m.stopped {
		return nil
	}
	if tick.Step >= m.sim.EndStep {
		m.stopped = true
		m.handle.Stop()
		return nil
	}
	if m.pop.LifetimeSteps > 0 && m.activeSteps >= m.pop.LifetimeSteps {
		m.remove(tick, "lifetime")
		return nil
	}

	contacts := m.contacts()
	engaged := false
	if m.pop.Kind.SignalsContact && len(contacts) > 0 {
		engaged = true
		for _, c := range contacts {
			if s, ok := c.(*StromalCell); ok {
				s.SignalInducerContact()
			}
		}
	}

	adhered := m.tryAdhere(contacts)
	if adhered {
		engaged = true
	}
	if engaged {
		m.setState(m.pop.Kind.EngagedState)
	} else {
		m.setState(m.pop.Kind.InitialState)
	}

	moved := false
	if !adhered {
		angle := m.chooseAngle(tick)
		next := space.Point{
			X: m.pos.X + m.speed*math.Cos(angle),
			Y: space.WrapY(m.pos.Y+m.speed*math.Sin(angle), m.sim.Env.Height),
		}
		if next.X < 0 || next.X >= m.sim.Env.Width {
			m.remove(tick, "left_domain")
			return nil
		}
		m.pos = next
		m.sim.Field.Place(m, next)
		moved = true
	}

	m.activeSteps++
	if m.tracking {
		m.track.Steps++
		if moved {
			m.track.Length += m.speed
		}
		m.track.End = m.pos
	}
	return nil
}

// contacts returns the live, activated grid cells touching this cell.
func (m *MigratingCell) contacts() []GridCell {
	var out []GridCell
	for _, obj := range m.sim.Field.NeighborsWithinRadius(m.pos, m.sim.ContactRadius, true) {
		g, ok := obj.(GridCell)
		if !ok || g.Stopped() || g.State() == StateInactive {
			continue
		}
		out = append(out, g)
	}
	return out
}

// tryAdhere rolls for adhesion against each expressing contact in turn and
// signals the first one that binds.
func (m *MigratingCell) tryAdhere(contacts []GridCell) bool {
	gate, ok := expressor.First[expressor.AdhesionGate](m.expressors)
	if !ok {
		return false
	}
	for _, c := range contacts {
		if !c.State().Expressing() {
			continue
		}
		src, ok := expressor.First[expressor.AdhesionSource](c.Expressors())
		if !ok {
			continue
		}
		p := gate.AdhesionProbability(src.AdhesionStrength())
		if m.sim.RNG.Float64() < p {
			if s, ok := c.(*StromalCell); ok {
				s.SignalAdhesion()
			}
			return true
		}
	}
	return false
}

// chooseAngle asks the cell's first direction-choosing receptor for a
// heading. Cells without one move in a uniformly random direction.
func (m *MigratingCell) chooseAngle(tick schedule.Tick) float64 {
	chooser, ok := expressor.First[expressor.DirectionChooser](m.expressors)
	if !ok {
		return m.sim.RNG.Float64() * 2 * math.Pi
	}
	d := chooser.ChooseDirection(m.sim.Env.Lattice(), m.pos, m.sim.Emitters(), m.sim.RNG)
	if m.sim.Decisions.Tracing() {
		m.sim.Decisions.Record("chemotaxis", tick.Step, m.Class(),
			"x", m.pos.X,
			"y", m.pos.Y,
			"index", d.Index,
			"adjuster", d.Adjuster,
			"total", d.TotalSignal,
			"max", d.MaxSignal,
			"angle", d.Angle)
	}
	return d.Angle
}

func (m *MigratingCell) setState(s State) {
	if m.state == s {
		return
	}
	m.sim.Counters.Move(m.Class(), m.state, s)
	m.state = s
}

func (m *MigratingCell) remove(tick schedule.Tick, reason string) {
	m.sim.Field.Remove(m)
	m.setState(StateRemoved)
	m.removed = true
	m.stopped = true
	m.tracking = false
	m.handle.Stop()

	m.sim.Decisions.Record("removal", tick.Step, m.Class(), "reason", reason)
}

// admit places a new cell of pop at a random position not within one cell
// diameter of another migrating cell.
func (c *Context) admit(pop *MigratingPopulation, tick schedule.Tick) (*MigratingCell, error) {
	attempts := c.Config.Simulation.MaxPlacementAttempts
	for i := 0; i < attempts; i++ {
		p := space.Point{
			X: c.RNG.Float64() * c.Env.Width,
			Y: c.RNG.Float64() * c.Env.Height,
		}
		if c.collides(p) {
			continue
		}

		m, err := c.placeMigrating(pop, p)
		if err != nil {
			return nil, err
		}
		c.Counters.admitted[pop.Kind.Class]++
		c.Decisions.Record("admission", tick.Step, pop.Kind.Class,
			"x", p.X,
			"y", p.Y,
			"speed", m.speed)
		return m, nil
	}
	return nil, simerr.NoSpace(pop.Kind.Class, "no collision-free position after %d attempts", attempts)
}

// placeMigrating creates a cell of pop at p with a freshly drawn speed and
// schedules it.
func (c *Context) placeMigrating(pop *MigratingPopulation, p space.Point) (*MigratingCell, error) {
	exprs, err := pop.newExpressors()
	if err != nil {
		return nil, err
	}
	m := &MigratingCell{
		sim:        c,
		pop:        pop,
		pos:        p,
		state:      pop.Kind.InitialState,
		speed:      pop.SpeedLow + c.RNG.Float64()*(pop.SpeedHigh-pop.SpeedLow),
		expressors: exprs,
	}
	c.Field.Place(m, p)
	c.Counters.Add(pop.Kind.Class, m.state, 1)
	c.migrating = append(c.migrating, m)
	m.handle = c.Schedule.ScheduleRepeating(m, schedule.OrderAgents)
	return m, nil
}

func (c *Context) collides(p space.Point) bool {
	for _, obj := range c.Field.NeighborsWithinRadius(p, c.CellDiameter, true) {
		if _, ok := obj.(*MigratingCell); ok {
			return true
		}
	}
	return false
}
