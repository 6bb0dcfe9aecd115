package stats

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/space"
	"github.com/kalden/ppsim/internal/tissue"
)

// testConfig is a 3 hour run on a 300x120 tract (a 50x20 grid) with an
// unseeded LTo population and LTin/LTi populations that admit nothing.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Experiment.Seed = 11
	cfg.Simulation.SecondsPerStep = 60
	cfg.Simulation.Hours = 3
	cfg.Simulation.TrackingEnabled = true
	cfg.Simulation.TrackingHours = "1-2"
	cfg.Simulation.PatchStatsEnabled = true
	cfg.Simulation.PatchStatsHours = "1"
	cfg.Environment = config.EnvironmentConfig{
		InitialLength:        300,
		InitialCircumference: 120,
		TargetLength:         300,
		TargetCircumference:  120,
		CellDiameter:         6,
	}
	cfg.Stromal = []config.StromalConfig{{
		Class:               "LTo",
		Density:             0,
		ImmatureActiveHours: 24,
		DivisionHours:       12,
		Expressors: []config.ExpressorConfig{
			{Kind: "VCAM_ICAM_MAdCAM", Params: map[string]float64{"slope": 1, "expression_level": 1}},
			{Kind: "CXCL13_CCL19_CCL21", Params: map[string]float64{"linear_adjust": 0.5, "max_expression": 0.3}},
		},
	}}
	cfg.Migrating = []config.MigratingConfig{
		{Class: "LTin", InputHours: 3, SpeedMin: 0.95, SpeedMax: 2.2},
		{
			Class: "LTi", InputHours: 3, SpeedMin: 0.95, SpeedMax: 2.2,
			Expressors: []config.ExpressorConfig{
				{Kind: "A4b1_a4b7", Params: map[string]float64{"max_probability": 1}},
				{Kind: "CXCR5_CCR7", Params: map[string]float64{"threshold": 0.3}},
			},
		},
	}
	return cfg
}

func newTestContext(t *testing.T, cfg *config.Config) *tissue.Context {
	t.Helper()
	sim, err := tissue.NewContext(cfg, tissue.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return sim
}

func placeCell(t *testing.T, sim *tissue.Context, class string, x, y float64) *tissue.MigratingCell {
	t.Helper()
	m, err := sim.PlaceMigrating(class, space.Point{X: x, Y: y})
	if err != nil {
		t.Fatalf("PlaceMigrating(%s): %v", class, err)
	}
	return m
}

func placeOrganizer(t *testing.T, sim *tissue.Context, col, row int) tissue.GridCell {
	t.Helper()
	g, err := sim.PlaceGridCell("LTo", space.Coord{Col: col, Row: row}, tissue.StateActiveExpressing)
	if err != nil {
		t.Fatalf("PlaceGridCell: %v", err)
	}
	return g
}

func tickAt(sim *tissue.Context, step int64) schedule.Tick {
	return schedule.Tick{Step: step, SecondsPerStep: sim.Config.Simulation.SecondsPerStep}
}

// recordingSink keeps everything it is given.
type recordingSink struct {
	mu         sync.Mutex
	windows    []config.HourRange
	tracks     []models.TrackRecord
	patchHours []float64
	patches    [][]models.PatchPosition
	population [][]models.PopulationSample
	closed     bool
	err        error
}

func (s *recordingSink) WriteTracks(ctx context.Context, window config.HourRange, records []models.TrackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, window)
	s.tracks = append(s.tracks, records...)
	return s.err
}

func (s *recordingSink) WritePatches(ctx context.Context, hour float64, positions []models.PatchPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchHours = append(s.patchHours, hour)
	s.patches = append(s.patches, positions)
	return s.err
}

func (s *recordingSink) WritePopulation(ctx context.Context, samples []models.PopulationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.population = append(s.population, samples)
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return s.err
}

func spaceCoord(col, row int) space.Coord {
	return space.Coord{Col: col, Row: row}
}
