package config

import (
	"fmt"
	"math"

	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/logging"
	"github.com/kalden/ppsim/internal/sanitize"
	"github.com/kalden/ppsim/internal/simerr"
)

// Validate checks the configuration and returns the first violation as a
// simerr configuration or invariant error naming the offending field.
func (c *Config) Validate() error {
	if !sanitize.IsLabel(c.Experiment.Description) {
		return simerr.Configf("experiment.description", "%q must be non-empty and use only letters, digits, '.', '-' or '_'", c.Experiment.Description)
	}
	if !sanitize.IsLabel(c.Experiment.Replicate) {
		return simerr.Configf("experiment.replicate", "%q must be non-empty and use only letters, digits, '.', '-' or '_'", c.Experiment.Replicate)
	}
	if err := c.Simulation.validate(); err != nil {
		return err
	}
	if err := c.Environment.validate(); err != nil {
		return err
	}

	totalDensity := 0.0
	for i, s := range c.Stromal {
		if err := s.validate(fmt.Sprintf("stromal[%d]", i), c.Simulation); err != nil {
			return err
		}
		totalDensity += s.Density
	}
	if totalDensity > 100 {
		return simerr.Invariantf("stromal", "densities sum to %v%%, more than the whole grid", totalDensity)
	}

	for i, m := range c.Migrating {
		if err := m.validate(fmt.Sprintf("migrating[%d]", i)); err != nil {
			return err
		}
	}

	if _, err := c.TrackingRanges(); err != nil {
		return err
	}
	if _, _, err := c.PatchHours(); err != nil {
		return err
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return simerr.Configf("logging.level", "invalid level %q (valid: info, debug, trace)", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return simerr.Configf("logging.format", "invalid format %q (valid: text, json)", c.Logging.Format)
	}
	return nil
}

func (s SimulationConfig) validate() error {
	switch {
	case !positive(s.SecondsPerStep):
		return simerr.Configf("simulation.seconds_per_step", "must be positive, got %v", s.SecondsPerStep)
	case math.Mod(constants.SecondsPerHour, s.SecondsPerStep) != 0:
		return simerr.Configf("simulation.seconds_per_step", "must divide an hour evenly, got %v", s.SecondsPerStep)
	case !positive(s.Hours):
		return simerr.Configf("simulation.hours", "must be positive, got %v", s.Hours)
	case s.MaxDivisionRadius < 1:
		return simerr.Configf("simulation.max_division_radius", "must be at least 1, got %d", s.MaxDivisionRadius)
	case s.MaxPlacementAttempts < 1:
		return simerr.Configf("simulation.max_placement_attempts", "must be at least 1, got %d", s.MaxPlacementAttempts)
	case !positive(s.DisplacementThreshold):
		return simerr.Configf("simulation.displacement_threshold", "must be positive, got %v", s.DisplacementThreshold)
	}
	return nil
}

func (e EnvironmentConfig) validate() error {
	switch {
	case !positive(e.CellDiameter):
		return simerr.Configf("environment.cell_diameter", "must be positive, got %v", e.CellDiameter)
	case !positive(e.InitialLength):
		return simerr.Configf("environment.initial_length", "must be positive, got %v", e.InitialLength)
	case !positive(e.InitialCircumference):
		return simerr.Configf("environment.initial_circumference", "must be positive, got %v", e.InitialCircumference)
	case e.TargetLength < e.InitialLength:
		return simerr.Invariantf("environment.target_length", "%v is below the initial length %v", e.TargetLength, e.InitialLength)
	case e.TargetCircumference < e.InitialCircumference:
		return simerr.Invariantf("environment.target_circumference", "%v is below the initial circumference %v", e.TargetCircumference, e.InitialCircumference)
	case e.GrowthHours < 0:
		return simerr.Invariantf("environment.growth_hours", "must be non-negative, got %v", e.GrowthHours)
	case e.GrowthStartHours < 0:
		return simerr.Invariantf("environment.growth_start_hours", "must be non-negative, got %v", e.GrowthStartHours)
	case e.ContactDistance < 0:
		return simerr.Invariantf("environment.contact_distance", "distance must be non-negative, got %v", e.ContactDistance)
	}
	if cols, rows := e.GridSize(); cols < 1 || rows < 1 {
		return simerr.Configf("environment", "tract %vx%v is smaller than one cell of diameter %v",
			e.InitialLength, e.InitialCircumference, e.CellDiameter)
	}
	return nil
}

func (s StromalConfig) validate(field string, sim SimulationConfig) error {
	switch {
	case s.Class == "":
		return simerr.Configf(field+".class", "required")
	case !percentage(s.Density):
		return simerr.Invariantf(field+".density", "must be a percentage, got %v", s.Density)
	case !percentage(s.ActivePercent):
		return simerr.Invariantf(field+".active_percent", "must be a percentage, got %v", s.ActivePercent)
	case s.ImmatureActiveHours < 0:
		return simerr.Invariantf(field+".immature_active_hours", "must be non-negative, got %v", s.ImmatureActiveHours)
	case !positive(s.DivisionHours):
		return simerr.Configf(field+".division_hours", "must be positive, got %v", s.DivisionHours)
	case sim.StepsFor(s.DivisionHours) < 1:
		return simerr.Configf(field+".division_hours", "%v hours is shorter than one step", s.DivisionHours)
	case s.ActivationContacts < 0:
		return simerr.Configf(field+".activation_contacts", "must be non-negative, got %d", s.ActivationContacts)
	}
	return validateExpressors(field, s.Expressors)
}

func (m MigratingConfig) validate(field string) error {
	switch {
	case m.Class == "":
		return simerr.Configf(field+".class", "required")
	case !percentage(m.Percent):
		return simerr.Invariantf(field+".percent", "must be a percentage, got %v", m.Percent)
	case m.InputDelayHours < 0:
		return simerr.Invariantf(field+".input_delay_hours", "must be non-negative, got %v", m.InputDelayHours)
	case m.InputHours < m.InputDelayHours:
		return simerr.Configf(field+".input_hours", "%v ends before the input delay %v", m.InputHours, m.InputDelayHours)
	case !positive(m.SpeedMin):
		return simerr.Configf(field+".speed_min", "must be positive, got %v", m.SpeedMin)
	case m.SpeedMax < m.SpeedMin:
		return simerr.Configf(field+".speed_max", "%v is below speed_min %v", m.SpeedMax, m.SpeedMin)
	case m.MaxLifetimeHours < 0:
		return simerr.Invariantf(field+".max_lifetime_hours", "must be non-negative, got %v", m.MaxLifetimeHours)
	}

	switch m.RateCurve {
	case "", CurveConstant:
	case CurveExp:
		// Admissions per step are c^n - c^(n-1), negative for c < 1.
		if !(m.RateConstant >= 1) || math.IsInf(m.RateConstant, 1) {
			return simerr.Invariantf(field+".rate_constant", "exp curve needs a constant of at least 1, got %v", m.RateConstant)
		}
	case CurveSqrt:
		if !positive(m.RateConstant) {
			return simerr.Invariantf(field+".rate_constant", "%s curve needs a positive constant, got %v", m.RateCurve, m.RateConstant)
		}
	default:
		return simerr.Configf(field+".rate_curve", "unknown curve %q (valid: constant, exp, sqrt)", m.RateCurve)
	}
	return validateExpressors(field, m.Expressors)
}

func validateExpressors(field string, list []ExpressorConfig) error {
	for i, e := range list {
		if e.Kind == "" {
			return simerr.Configf(fmt.Sprintf("%s.expressors[%d].kind", field, i), "required")
		}
		for name, v := range e.Params {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return simerr.Invariantf(fmt.Sprintf("%s.expressors[%d].params.%s", field, i, name), "must be finite, got %v", v)
			}
		}
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func percentage(v float64) bool {
	return v >= 0 && v <= 100
}
