package sim

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/simerr"
	"github.com/kalden/ppsim/internal/store"
)

// scenarioConfig is a 3 hour run on a 50x20 grid: 50 LTo organizers, half
// of them active, and LTin/LTi admitted at 10% of the grid per day.
func scenarioConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Experiment.Description = "scenario"
	cfg.Experiment.ResultsDir = t.TempDir()
	cfg.Experiment.Seed = 42
	cfg.Simulation.SecondsPerStep = 60
	cfg.Simulation.Hours = 3
	cfg.Simulation.TrackingHours = "1-2"
	cfg.Simulation.PatchStatsHours = "1"
	cfg.Environment = config.EnvironmentConfig{
		InitialLength:        300,
		InitialCircumference: 120,
		TargetLength:         330,
		TargetCircumference:  126,
		GrowthHours:          3,
		CellDiameter:         6,
	}
	cfg.Stromal[0].Density = 5
	for i := range cfg.Migrating {
		cfg.Migrating[i].Percent = 10
		cfg.Migrating[i].InputHours = 3
	}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runScenario builds and runs cfg, closing the runner when the test ends.
func runScenario(t *testing.T, cfg *config.Config, opts Options) *Result {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	r, err := New(context.Background(), cfg, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return res
}

func TestRunCompletes(t *testing.T) {
	cfg := scenarioConfig(t)
	results := store.NewInMemoryResultStore()

	res := runScenario(t, cfg, Options{Store: results, RunID: "run-1"})

	if res.Status != models.RunStatusCompleted {
		t.Errorf("Status = %v, want %v", res.Status, models.RunStatusCompleted)
	}
	if want := cfg.Simulation.TotalSteps() + 1; res.Steps != want {
		t.Errorf("Steps = %d, want %d", res.Steps, want)
	}
	if res.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", res.RunID)
	}
	if res.ResultsDir != cfg.RunDir() {
		t.Errorf("ResultsDir = %q, want %q", res.ResultsDir, cfg.RunDir())
	}

	for _, name := range []string{
		constants.PopulationFile,
		"trackedCells_Close_1.csv",
		"trackedCells_Away_1.xml",
		"patchStats_1.csv",
		"patchStatsAll_1.xml",
		"patchStats_3.csv",
		"patchStatsAll_3.csv",
	} {
		if _, err := os.Stat(filepath.Join(cfg.RunDir(), name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	run, err := results.GetRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != models.RunStatusCompleted {
		t.Errorf("stored Status = %v, want %v", run.Status, models.RunStatusCompleted)
	}
	if run.FinishedAt == nil {
		t.Error("stored FinishedAt = nil, want set")
	}
	if run.Steps != res.Steps {
		t.Errorf("stored Steps = %d, want %d", run.Steps, res.Steps)
	}
	if run.Config == "" {
		t.Error("stored Config is empty")
	}

	summary, err := store.Summarize(context.Background(), results, "run-1")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(summary.FinalPopulation) == 0 {
		t.Error("FinalPopulation is empty")
	}
	for _, sm := range summary.FinalPopulation {
		if sm.Hour != cfg.Simulation.Hours {
			t.Errorf("final sample hour = %v, want %v", sm.Hour, cfg.Simulation.Hours)
		}
	}
}

func TestRunSeedsOrganizers(t *testing.T) {
	cfg := scenarioConfig(t)
	res := runScenario(t, cfg, Options{NoStore: true})

	// 5% of 1000 grid cells, and divisions only add to that.
	lto := 0
	for _, pc := range res.Population {
		if pc.Class == "LTo" && pc.State >= 0 {
			lto += pc.Count
		}
	}
	if lto < 50 {
		t.Errorf("live LTo = %d, want at least 50", lto)
	}
}

func TestRunDeterministic(t *testing.T) {
	read := func(cfg *config.Config, name string) []byte {
		t.Helper()
		data, err := os.ReadFile(filepath.Join(cfg.RunDir(), name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		return data
	}

	a, b := scenarioConfig(t), scenarioConfig(t)
	runScenario(t, a, Options{NoStore: true})
	runScenario(t, b, Options{NoStore: true})

	for _, name := range []string{constants.PopulationFile, "trackedCells_Away_1.csv", "patchStatsAll_3.csv"} {
		if !bytes.Equal(read(a, name), read(b, name)) {
			t.Errorf("%s differs between runs with the same seed", name)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := scenarioConfig(t)
	results := store.NewInMemoryResultStore()

	r, err := New(context.Background(), cfg, Options{Logger: quietLogger(), Store: results, RunID: "cancelled"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if res.Status != models.RunStatusCancelled {
		t.Errorf("Status = %v, want %v", res.Status, models.RunStatusCancelled)
	}

	run, err := results.GetRun(context.Background(), "cancelled")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != models.RunStatusCancelled {
		t.Errorf("stored Status = %v, want %v", run.Status, models.RunStatusCancelled)
	}
	if run.Error == "" {
		t.Error("stored Error is empty")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{"step does not divide an hour", func(c *config.Config) { c.Simulation.SecondsPerStep = 7 }, simerr.ErrConfiguration},
		{"unknown expressor", func(c *config.Config) {
			c.Stromal[0].Expressors = append(c.Stromal[0].Expressors, config.ExpressorConfig{Kind: "nope"})
		}, simerr.ErrConfiguration},
		{"overlapping tracking windows", func(c *config.Config) { c.Simulation.TrackingHours = "1-3,2-3" }, simerr.ErrConfiguration},
		{"shrinking exp input curve", func(c *config.Config) {
			c.Migrating[0].RateCurve = config.CurveExp
			c.Migrating[0].RateConstant = 0.5
		}, simerr.ErrInvariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scenarioConfig(t)
			tt.mutate(cfg)

			r, err := New(context.Background(), cfg, Options{Logger: quietLogger(), NoStore: true})
			if err == nil {
				r.Close()
				t.Fatalf("New() error = nil, want %v", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunOwnsSQLiteStore(t *testing.T) {
	cfg := scenarioConfig(t)
	cfg.Experiment.Database = constants.DatabaseFile

	res := runScenario(t, cfg, Options{})

	s, err := store.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	run, err := s.GetRun(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != models.RunStatusCompleted {
		t.Errorf("Status = %v, want %v", run.Status, models.RunStatusCompleted)
	}
	samples, err := s.PopulationSamples(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("PopulationSamples: %v", err)
	}
	if len(samples) == 0 {
		t.Error("no population samples stored")
	}
}

func TestRunWritesDecisionsAtDebug(t *testing.T) {
	cfg := scenarioConfig(t)
	cfg.Logging.Level = "debug"
	runScenario(t, cfg, Options{NoStore: true})

	data, err := os.ReadFile(filepath.Join(cfg.RunDir(), constants.DecisionsFile))
	if err != nil {
		t.Fatalf("reading decisions: %v", err)
	}
	if !strings.Contains(string(data), `"event":"admission"`) {
		t.Error("no admission events recorded")
	}
	if strings.Contains(string(data), `"event":"chemotaxis"`) {
		t.Error("chemotaxis events recorded below trace level")
	}
}
