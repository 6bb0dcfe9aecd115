package tissue

import (
	"io"
	"log/slog"
	"testing"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/space"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// smallConfig is a 300x120 tract of 6-unit cells (a 50x20 grid of 1000
// cells) with one LTo population and no migrating populations.
func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.Experiment.Seed = 7
	cfg.Simulation.SecondsPerStep = 60
	cfg.Simulation.Hours = 24
	cfg.Environment = config.EnvironmentConfig{
		InitialLength:        300,
		InitialCircumference: 120,
		TargetLength:         300,
		TargetCircumference:  120,
		CellDiameter:         6,
	}
	cfg.Stromal = []config.StromalConfig{{
		Class:               "LTo",
		Density:             5,
		ActivePercent:       100,
		ImmatureActiveHours: 24,
		DivisionHours:       12,
		Expressors: []config.ExpressorConfig{
			{Kind: "VCAM_ICAM_MAdCAM", Params: map[string]float64{"slope": 0.1, "expression_level": 1}},
			{Kind: "CXCL13_CCL19_CCL21", Params: map[string]float64{"linear_adjust": 0.5, "max_expression": 0.3}},
		},
	}}
	cfg.Migrating = nil
	return cfg
}

func newTestContext(t *testing.T, cfg *config.Config) *Context {
	t.Helper()
	c, err := NewContext(cfg, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return c
}

// spawnAt places a cell of the first stromal population at (col,row) in the
// given state.
func spawnAt(t *testing.T, c *Context, col, row int, state State) GridCell {
	t.Helper()
	pop := c.Stromal[0]
	exprs, err := pop.newExpressors()
	if err != nil {
		t.Fatalf("newExpressors: %v", err)
	}
	loc := space.Coord{Col: col, Row: row}
	cell, err := c.spawnGridCell(pop, loc, c.seedPosition(loc), exprs)
	if err != nil {
		t.Fatalf("spawnGridCell: %v", err)
	}
	cell.base().setState(state)
	return cell
}

func tickAt(c *Context, step int64) schedule.Tick {
	return schedule.Tick{Step: step, SecondsPerStep: c.Config.Simulation.SecondsPerStep}
}
