// Package config provides configuration loading for ppsim.
// It supports loading experiments from YAML files with environment variable
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/simerr"
	"gopkg.in/yaml.v3"
)

// Config contains every setting of one simulation experiment.
type Config struct {
	// Experiment identifies the run and where its results go.
	Experiment ExperimentConfig `json:"experiment" yaml:"experiment"`

	// Simulation contains clock, output and search settings.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Environment contains tract dimensions and growth.
	Environment EnvironmentConfig `json:"environment" yaml:"environment"`

	// Stromal lists the grid-anchored cell populations seeded at setup.
	Stromal []StromalConfig `json:"stromal" yaml:"stromal"`

	// Migrating lists the cell populations admitted during the run.
	Migrating []MigratingConfig `json:"migrating" yaml:"migrating"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Telemetry contains OpenTelemetry tracing settings.
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// ExperimentConfig identifies a run.
type ExperimentConfig struct {
	Description string `json:"description" yaml:"description"`

	// ResultsDir is the root directory for CSV/XML output and the database.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// Replicate names this run within the experiment, e.g. "1".
	Replicate string `json:"replicate" yaml:"replicate"`

	// Seed feeds the run's random generator. Equal seeds give equal runs.
	Seed uint64 `json:"seed" yaml:"seed"`

	// Database is the SQLite results database path. Relative paths are
	// resolved against ResultsDir; empty disables the store.
	Database string `json:"database" yaml:"database"`
}

// SimulationConfig configures the clock and the output schedule.
type SimulationConfig struct {
	// SecondsPerStep is the simulated duration of one tick. Must divide 3600.
	SecondsPerStep float64 `json:"seconds_per_step" yaml:"seconds_per_step"`

	// Hours is the total simulated time.
	Hours float64 `json:"hours" yaml:"hours"`

	// Snapshots and TwelveHourSnaps are accepted for compatibility with
	// existing experiment files. Image output is not produced.
	Snapshots       bool `json:"snapshots" yaml:"snapshots"`
	TwelveHourSnaps bool `json:"twelve_hour_snaps" yaml:"twelve_hour_snaps"`

	// TrackingEnabled turns on cell tracking over TrackingHours.
	TrackingEnabled bool `json:"tracking_enabled" yaml:"tracking_enabled"`

	// TrackingHours lists tracking windows as "start-end,start-end".
	TrackingHours string `json:"tracking_hours" yaml:"tracking_hours"`

	// PatchStatsEnabled turns on patch statistics.
	PatchStatsEnabled bool `json:"patch_stats_enabled" yaml:"patch_stats_enabled"`

	// PatchStatsHours lists output hours as "24,48" or "NULL".
	PatchStatsHours string `json:"patch_stats_hours" yaml:"patch_stats_hours"`

	// MaxDivisionRadius caps the expanding division search.
	MaxDivisionRadius int `json:"max_division_radius" yaml:"max_division_radius"`

	// MaxPlacementAttempts caps random placement draws.
	MaxPlacementAttempts int `json:"max_placement_attempts" yaml:"max_placement_attempts"`

	// DisplacementThreshold is the raw displacement above which tracked
	// displacement is corrected for circumference wraparound.
	DisplacementThreshold float64 `json:"displacement_threshold" yaml:"displacement_threshold"`
}

// EnvironmentConfig configures the tract.
type EnvironmentConfig struct {
	InitialLength        float64 `json:"initial_length" yaml:"initial_length"`
	InitialCircumference float64 `json:"initial_circumference" yaml:"initial_circumference"`
	TargetLength         float64 `json:"target_length" yaml:"target_length"`
	TargetCircumference  float64 `json:"target_circumference" yaml:"target_circumference"`

	// GrowthHours is the time taken to grow from initial to target size.
	GrowthHours float64 `json:"growth_hours" yaml:"growth_hours"`

	// GrowthStartHours delays the start of growth.
	GrowthStartHours float64 `json:"growth_start_hours" yaml:"growth_start_hours"`

	CellDiameter float64 `json:"cell_diameter" yaml:"cell_diameter"`

	// ContactDistance is the centre distance at which cells touch.
	// Zero means CellDiameter.
	ContactDistance float64 `json:"contact_distance" yaml:"contact_distance"`
}

// StromalConfig configures one grid-anchored population.
type StromalConfig struct {
	// Class is the cell class key, e.g. "LTo" or "RLNonStromal".
	Class string `json:"class" yaml:"class"`

	// Density is the percentage of grid cells seeded with this class.
	Density float64 `json:"density" yaml:"density"`

	// ActivePercent is the percentage of seeded cells that start active.
	ActivePercent float64 `json:"active_percent" yaml:"active_percent"`

	// ImmatureActiveHours is how long a cell may stay immature before removal.
	ImmatureActiveHours float64 `json:"immature_active_hours" yaml:"immature_active_hours"`

	// DivisionHours is the active time between divisions.
	DivisionHours float64 `json:"division_hours" yaml:"division_hours"`

	// ActivationContacts is the number of LTin contacts that bring an
	// immature cell to the expressing state.
	ActivationContacts int `json:"activation_contacts" yaml:"activation_contacts"`

	Expressors []ExpressorConfig `json:"expressors" yaml:"expressors"`
}

// MigratingConfig configures one admitted population.
type MigratingConfig struct {
	// Class is "LTin" or "LTi".
	Class string `json:"class" yaml:"class"`

	// Percent of the initial grid area admitted per day.
	Percent float64 `json:"percent" yaml:"percent"`

	InputDelayHours float64 `json:"input_delay_hours" yaml:"input_delay_hours"`
	InputHours      float64 `json:"input_hours" yaml:"input_hours"`

	// RateCurve is "constant", "exp" or "sqrt".
	RateCurve    string  `json:"rate_curve" yaml:"rate_curve"`
	RateConstant float64 `json:"rate_constant" yaml:"rate_constant"`

	// SpeedMin and SpeedMax bound per-cell speed in field units per minute.
	SpeedMin float64 `json:"speed_min" yaml:"speed_min"`
	SpeedMax float64 `json:"speed_max" yaml:"speed_max"`

	// MaxLifetimeHours removes cells older than this. Zero means unbounded.
	MaxLifetimeHours float64 `json:"max_lifetime_hours" yaml:"max_lifetime_hours"`

	Expressors []ExpressorConfig `json:"expressors" yaml:"expressors"`
}

// ExpressorConfig names an expressor registry key and its parameters.
type ExpressorConfig struct {
	Kind   string             `json:"kind" yaml:"kind"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to decisions.jsonl in the results
	// directory. "trace" additionally records every chemotaxis decision.
	Level string `json:"level" yaml:"level"`

	// Format selects stderr output: "text" (default) or "json".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// TelemetryConfig configures tracing. Tracing is off unless Endpoint is set.
type TelemetryConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// Rate curves.
const (
	CurveConstant = "constant"
	CurveExp      = "exp"
	CurveSqrt     = "sqrt"
)

// Default returns a baseline experiment.
func Default() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			Description: "baseline",
			ResultsDir:  "results",
			Replicate:   "1",
			Seed:        1,
			Database:    constants.DatabaseFile,
		},
		Simulation: SimulationConfig{
			SecondsPerStep:        60,
			Hours:                 72,
			TrackingEnabled:       true,
			TrackingHours:         "12-13,36-37",
			PatchStatsEnabled:     true,
			PatchStatsHours:       "24,48",
			MaxDivisionRadius:     constants.DefaultMaxDivisionRadius,
			MaxPlacementAttempts:  constants.DefaultMaxPlacementAttempts,
			DisplacementThreshold: constants.DefaultDisplacementThreshold,
		},
		Environment: EnvironmentConfig{
			InitialLength:        1200,
			InitialCircumference: 254,
			TargetLength:         1800,
			TargetCircumference:  300,
			GrowthHours:          72,
			CellDiameter:         constants.DefaultCellDiameter,
		},
		Stromal: []StromalConfig{
			{
				Class:               "LTo",
				Density:             45,
				ActivePercent:       50,
				ImmatureActiveHours: 24,
				DivisionHours:       constants.DefaultDivisionHours,
				ActivationContacts:  constants.DefaultActivationContacts,
				Expressors: []ExpressorConfig{
					{Kind: "VCAM_ICAM_MAdCAM", Params: map[string]float64{"slope": 0.1, "expression_level": 0.5}},
					{Kind: "CXCL13_CCL19_CCL21", Params: map[string]float64{"linear_adjust": 0.4, "max_expression": 0.1}},
				},
			},
		},
		Migrating: []MigratingConfig{
			{
				Class:        "LTin",
				Percent:      2.2,
				InputHours:   72,
				RateCurve:    CurveConstant,
				SpeedMin:     constants.DefaultSpeedMinPerMinute,
				SpeedMax:     constants.DefaultSpeedMaxPerMinute,
				RateConstant: 1,
			},
			{
				Class:        "LTi",
				Percent:      2.2,
				InputHours:   72,
				RateCurve:    CurveConstant,
				SpeedMin:     constants.DefaultSpeedMinPerMinute,
				SpeedMax:     constants.DefaultSpeedMaxPerMinute,
				RateConstant: 1,
				Expressors: []ExpressorConfig{
					{Kind: "A4b1_a4b7", Params: map[string]float64{"max_probability": 0.6}},
					{Kind: "CXCR5_CCR7", Params: map[string]float64{"threshold": 0.3}},
				},
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration.
// Order: defaults -> path (if non-empty) -> environment variables
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
// Unknown keys are rejected.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, simerr.Wrap(simerr.CodeConfiguration, "reading config file", err)
	}

	return Parse(data)
}

// Parse decodes YAML on top of the defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document leaves the defaults in place.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, simerr.Wrap(simerr.CodeConfiguration, "parsing config", err)
	}
	return cfg, nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() (*Config, error) {
	data, err := c.Marshal()
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// envOverrides lists the environment variables that override file settings.
type envOverrides struct {
	Seed         *uint64  `env:"PPSIM_SEED"`
	Hours        *float64 `env:"PPSIM_HOURS"`
	ResultsDir   string   `env:"PPSIM_RESULTS_DIR"`
	Replicate    string   `env:"PPSIM_REPLICATE"`
	Database     string   `env:"PPSIM_DB"`
	LogLevel     string   `env:"PPSIM_LOG_LEVEL"`
	LogFormat    string   `env:"PPSIM_LOG_FORMAT"`
	OTelEndpoint string   `env:"PPSIM_OTEL_ENDPOINT"`
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return simerr.Wrap(simerr.CodeConfiguration, "parse env", err)
	}
	if o.Seed != nil {
		c.Experiment.Seed = *o.Seed
	}
	if o.Hours != nil {
		c.Simulation.Hours = *o.Hours
	}
	if o.ResultsDir != "" {
		c.Experiment.ResultsDir = o.ResultsDir
	}
	if o.Replicate != "" {
		c.Experiment.Replicate = o.Replicate
	}
	if o.Database != "" {
		c.Experiment.Database = o.Database
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
	if o.OTelEndpoint != "" {
		c.Telemetry.Endpoint = o.OTelEndpoint
		c.Telemetry.Enabled = true
	}
	return nil
}

// StepsFor converts simulated hours to whole ticks.
func (s SimulationConfig) StepsFor(hours float64) int64 {
	return int64(math.Round(hours * constants.SecondsPerHour / s.SecondsPerStep))
}

// TotalSteps returns the number of ticks in the run.
func (s SimulationConfig) TotalSteps() int64 {
	return s.StepsFor(s.Hours)
}

// ContactRadius returns the effective contact distance.
func (e EnvironmentConfig) ContactRadius() float64 {
	if e.ContactDistance > 0 {
		return e.ContactDistance
	}
	return e.CellDiameter
}

// GridSize returns the stromal grid dimensions, (int)(length/d) by
// (int)(circumference/d).
func (e EnvironmentConfig) GridSize() (cols, rows int) {
	return int(e.InitialLength / e.CellDiameter), int(e.InitialCircumference / e.CellDiameter)
}

// DatabasePath resolves the results database path, or "" when disabled.
func (c *Config) DatabasePath() string {
	db := c.Experiment.Database
	if db == "" || filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(c.Experiment.ResultsDir, db)
}

// RunDir is where this replicate's CSV/XML output is written.
func (c *Config) RunDir() string {
	return filepath.Join(c.Experiment.ResultsDir, c.Experiment.Description, "Results", c.Experiment.Replicate)
}
