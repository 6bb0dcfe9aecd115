// Package tissue implements the simulated tract and its cells: stromal
// organizers and decoys anchored to the overlay grid, migrating inducer
// cells, the growing environment and the input controllers that admit new
// cells.
//
// Everything a run shares lives in a Context built once by NewContext. There
// are no package-level registries or generators.
package tissue

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/expressor"
	"github.com/kalden/ppsim/internal/logging"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/simerr"
	"github.com/kalden/ppsim/internal/space"
)

// Options supplies the collaborators of a Context. Zero values fall back to
// defaults.
type Options struct {
	Logger    *slog.Logger
	Decisions *logging.DecisionLogger
	Registry  *expressor.Registry
	Kinds     *Kinds
}

// Context is the state shared by every component of one run.
type Context struct {
	Config    *config.Config
	RNG       *rand.Rand
	Env       *Environment
	Field     *space.Field
	Grid      *space.Grid[GridCell]
	Schedule  *schedule.Schedule
	Counters  *Counters
	Logger    *slog.Logger
	Decisions *logging.DecisionLogger

	// EndStep is the tick at which every component stops.
	EndStep int64

	CellDiameter  float64
	ContactRadius float64

	Stromal   []*StromalPopulation
	Migrating []*MigratingPopulation

	gridCells []GridCell
	migrating []*MigratingCell

	organizers      []GridCell
	emitters        []expressor.Emitter
	organizersValid bool
}

// StromalPopulation is a resolved stromal or decoy population.
type StromalPopulation struct {
	Kind               CellKind
	Density            float64
	ActivePercent      float64
	ImmatureSteps      int64
	DivisionSteps      int64
	ActivationContacts int

	registry   *expressor.Registry
	expressors []config.ExpressorConfig
}

// MigratingPopulation is a resolved migrating population.
type MigratingPopulation struct {
	Kind CellKind

	// PerStep is the constant admission rate in cells per step.
	PerStep      float64
	Curve        string
	RateConstant float64

	InputStartSeconds float64
	InputEndSeconds   float64

	// SpeedLow and SpeedHigh bound the per-step speed.
	SpeedLow  float64
	SpeedHigh float64

	// LifetimeSteps removes cells after this many steps. Zero is unbounded.
	LifetimeSteps int64

	registry   *expressor.Registry
	expressors []config.ExpressorConfig
}

// NewContext resolves cfg into a ready-to-seed run. Unknown classes and
// expressor keys, and invalid expressor parameters, fail here rather than
// mid-run.
func NewContext(cfg *config.Config, opts Options) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = expressor.DefaultRegistry()
	}
	if opts.Kinds == nil {
		opts.Kinds = DefaultKinds()
	}

	envCfg := cfg.Environment
	field, err := space.NewField(envCfg.InitialLength, envCfg.InitialCircumference, envCfg.CellDiameter)
	if err != nil {
		return nil, simerr.Wrap(simerr.CodeConfiguration, "creating field", err)
	}
	cols, rows := envCfg.GridSize()
	grid, err := space.NewGrid[GridCell](cols, rows)
	if err != nil {
		return nil, simerr.Wrap(simerr.CodeConfiguration, "creating grid", err)
	}

	seed := cfg.Experiment.Seed
	c := &Context{
		Config:        cfg,
		RNG:           rand.New(rand.NewPCG(seed, seed)),
		Env:           NewEnvironment(envCfg, cfg.Simulation, field),
		Field:         field,
		Grid:          grid,
		Schedule:      schedule.New(cfg.Simulation.SecondsPerStep, opts.Logger),
		Counters:      NewCounters(),
		Logger:        opts.Logger,
		Decisions:     opts.Decisions,
		EndStep:       cfg.Simulation.TotalSteps(),
		CellDiameter:  envCfg.CellDiameter,
		ContactRadius: envCfg.ContactRadius(),
	}

	for i, sc := range cfg.Stromal {
		pop, err := newStromalPopulation(sc, cfg.Simulation, opts)
		if err != nil {
			return nil, fmt.Errorf("stromal[%d]: %w", i, err)
		}
		c.Stromal = append(c.Stromal, pop)
	}

	totalCells := float64(cols * rows)
	for i, mc := range cfg.Migrating {
		pop, err := newMigratingPopulation(mc, cfg.Simulation, totalCells, opts)
		if err != nil {
			return nil, fmt.Errorf("migrating[%d]: %w", i, err)
		}
		c.Migrating = append(c.Migrating, pop)
	}
	return c, nil
}

func newStromalPopulation(sc config.StromalConfig, sim config.SimulationConfig, opts Options) (*StromalPopulation, error) {
	kind, err := opts.Kinds.Lookup(sc.Class)
	if err != nil {
		return nil, err
	}
	if kind.Variant == VariantMigrating {
		return nil, simerr.Configf("class", "%q is a migrating class", sc.Class)
	}
	pop := &StromalPopulation{
		Kind:               kind,
		Density:            sc.Density,
		ActivePercent:      sc.ActivePercent,
		ImmatureSteps:      sim.StepsFor(sc.ImmatureActiveHours),
		DivisionSteps:      sim.StepsFor(sc.DivisionHours),
		ActivationContacts: sc.ActivationContacts,
		registry:           opts.Registry,
		expressors:         sc.Expressors,
	}
	if pop.ActivationContacts == 0 {
		pop.ActivationContacts = constants.DefaultActivationContacts
	}
	if _, err := pop.newExpressors(); err != nil {
		return nil, err
	}
	return pop, nil
}

func newMigratingPopulation(mc config.MigratingConfig, sim config.SimulationConfig, totalCells float64, opts Options) (*MigratingPopulation, error) {
	kind, err := opts.Kinds.Lookup(mc.Class)
	if err != nil {
		return nil, err
	}
	if kind.Variant != VariantMigrating {
		return nil, simerr.Configf("class", "%q is not a migrating class", mc.Class)
	}

	required := totalCells / 100 * mc.Percent
	stepsPerDay := constants.InputRateWindowHours * constants.SecondsPerHour / sim.SecondsPerStep
	perMinute := sim.SecondsPerStep / constants.SecondsPerMinute

	pop := &MigratingPopulation{
		Kind:              kind,
		PerStep:           required / stepsPerDay,
		Curve:             mc.RateCurve,
		RateConstant:      mc.RateConstant,
		InputStartSeconds: mc.InputDelayHours * constants.SecondsPerHour,
		InputEndSeconds:   mc.InputHours * constants.SecondsPerHour,
		SpeedLow:          mc.SpeedMin * perMinute,
		SpeedHigh:         mc.SpeedMax * perMinute,
		LifetimeSteps:     sim.StepsFor(mc.MaxLifetimeHours),
		registry:          opts.Registry,
		expressors:        mc.Expressors,
	}
	if _, err := pop.newExpressors(); err != nil {
		return nil, err
	}
	return pop, nil
}

func (p *StromalPopulation) newExpressors() ([]expressor.Expressor, error) {
	return buildExpressors(p.registry, p.expressors)
}

func (p *MigratingPopulation) newExpressors() ([]expressor.Expressor, error) {
	return buildExpressors(p.registry, p.expressors)
}

func buildExpressors(reg *expressor.Registry, list []config.ExpressorConfig) ([]expressor.Expressor, error) {
	out := make([]expressor.Expressor, 0, len(list))
	for _, ec := range list {
		e, err := reg.New(ec.Kind, expressor.Params(ec.Params))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// GridCells returns every grid-anchored cell that has not been removed, in
// creation order.
func (c *Context) GridCells() []GridCell {
	c.refreshOrganizers()
	return c.gridCells
}

// Organizers returns the live stromal cells in an expressing state.
func (c *Context) Organizers() []GridCell {
	c.refreshOrganizers()
	return c.organizers
}

// Emitters returns Organizers as chemokine emitters.
func (c *Context) Emitters() []expressor.Emitter {
	c.refreshOrganizers()
	return c.emitters
}

// MigratingCells returns every migrating cell that has not been removed, in
// admission order.
func (c *Context) MigratingCells() []*MigratingCell {
	live := c.migrating[:0]
	for _, m := range c.migrating {
		if !m.removed {
			live = append(live, m)
		}
	}
	clear(c.migrating[len(live):])
	c.migrating = live
	return live
}

func (c *Context) invalidateOrganizers() {
	c.organizersValid = false
}

func (c *Context) refreshOrganizers() {
	if c.organizersValid {
		return
	}
	live := c.gridCells[:0]
	c.organizers = nil
	c.emitters = nil
	for _, g := range c.gridCells {
		if g.Removed() {
			continue
		}
		live = append(live, g)
		if g.State().Expressing() {
			c.organizers = append(c.organizers, g)
			c.emitters = append(c.emitters, g)
		}
	}
	clear(c.gridCells[len(live):])
	c.gridCells = live
	c.organizersValid = true
}

// NearestOrganizer returns the toroidal distance from p to the closest
// expressing organizer, or false when there is none.
func (c *Context) NearestOrganizer(p space.Point) (float64, bool) {
	best, found := 0.0, false
	for _, o := range c.Organizers() {
		d := space.ToroidalDistance(p, o.Position(), c.Env.Height)
		if !found || d < best {
			best, found = d, true
		}
	}
	return best, found
}
