package tissue

import (
	"context"
	"math"
	"testing"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/space"
)

func withMigrating(cfg *config.Config, class string, exprs ...config.ExpressorConfig) *config.Config {
	cfg.Migrating = append(cfg.Migrating, config.MigratingConfig{
		Class:      class,
		Percent:    2.2,
		InputHours: 24,
		SpeedMin:   0.95,
		SpeedMax:   2.2,
		Expressors: exprs,
	})
	return cfg
}

func placeAt(t *testing.T, c *Context, popIdx int, p space.Point) *MigratingCell {
	t.Helper()
	m, err := c.placeMigrating(c.Migrating[popIdx], p)
	if err != nil {
		t.Fatalf("placeMigrating: %v", err)
	}
	return m
}

var (
	integrin = config.ExpressorConfig{Kind: "A4b1_a4b7", Params: map[string]float64{"max_probability": 1}}
	receptor = config.ExpressorConfig{Kind: "CXCR5_CCR7", Params: map[string]float64{"threshold": 0.3}}
)

func TestMigratingMovesBySpeed(t *testing.T) {
	c := newTestContext(t, withMigrating(smallConfig(), "LTi"))
	m := placeAt(t, c, 0, space.Point{X: 150, Y: 60})

	if m.Speed() < c.Migrating[0].SpeedLow || m.Speed() > c.Migrating[0].SpeedHigh {
		t.Fatalf("speed %v outside [%v, %v]", m.Speed(), c.Migrating[0].SpeedLow, c.Migrating[0].SpeedHigh)
	}

	for i := int64(1); i <= 10; i++ {
		before := m.Position()
		if err := m.Step(context.Background(), tickAt(c, i)); err != nil {
			t.Fatalf("Step: %v", err)
		}
		d := space.ToroidalDistance(before, m.Position(), c.Env.Height)
		if math.Abs(d-m.Speed()) > 1e-9 {
			t.Errorf("step %d moved %v, want %v", i, d, m.Speed())
		}
		if got, ok := c.Field.Location(m); !ok || got != m.Position() {
			t.Errorf("field location = %v, %v, want %v", got, ok, m.Position())
		}
	}
	if m.ActiveSteps() != 10 {
		t.Errorf("ActiveSteps = %d, want 10", m.ActiveSteps())
	}
	if m.State() != StateLTiMigrating {
		t.Errorf("state = %v, want %v", m.State(), StateLTiMigrating)
	}
}

func TestMigratingLeavesDomain(t *testing.T) {
	c := newTestContext(t, withMigrating(smallConfig(), "LTi"))
	m := placeAt(t, c, 0, space.Point{X: 0.5, Y: 60})

	for i := 0; i < 100000 && !m.Removed(); i++ {
		if err := m.Step(context.Background(), tickAt(c, 1)); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if !m.Removed() {
		t.Fatal("cell never left the tract")
	}
	if c.Field.Contains(m) {
		t.Error("departed cell still in field")
	}
	if got := c.Counters.Count("LTi", StateRemoved); got != 1 {
		t.Errorf("removed count = %d, want 1", got)
	}
	if len(c.MigratingCells()) != 0 {
		t.Errorf("MigratingCells() = %d, want 0", len(c.MigratingCells()))
	}
}

func TestMigratingLifetime(t *testing.T) {
	cfg := withMigrating(smallConfig(), "LTi")
	cfg.Migrating[0].MaxLifetimeHours = 1
	c := newTestContext(t, cfg)
	m := placeAt(t, c, 0, space.Point{X: 150, Y: 60})
	m.activeSteps = 59

	if err := m.Step(context.Background(), tickAt(c, 1)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if m.Removed() {
		t.Fatal("removed before the lifetime elapsed")
	}
	if err := m.Step(context.Background(), tickAt(c, 2)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !m.Removed() || !m.Stopped() {
		t.Error("cell not removed once its lifetime elapsed")
	}
}

func TestMigratingStopsAtEnd(t *testing.T) {
	c := newTestContext(t, withMigrating(smallConfig(), "LTi"))
	m := placeAt(t, c, 0, space.Point{X: 150, Y: 60})

	if err := m.Step(context.Background(), tickAt(c, c.EndStep)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !m.Stopped() || m.Removed() {
		t.Errorf("stopped = %v, removed = %v, want stopped and kept", m.Stopped(), m.Removed())
	}
	if !c.Field.Contains(m) {
		t.Error("stopped cell left the field")
	}
	if m.Position() != (space.Point{X: 150, Y: 60}) {
		t.Errorf("position = %v, want unchanged", m.Position())
	}
}

func TestInducerContactActivatesOrganizer(t *testing.T) {
	c := newTestContext(t, withMigrating(smallConfig(), "LTin"))
	lto := spawnAt(t, c, 10, 10, StateRETLigand)
	m := placeAt(t, c, 0, lto.Position())

	if err := m.Step(context.Background(), tickAt(c, 1)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if lto.State() != StateActiveExpressing {
		t.Errorf("organizer state = %v, want %v", lto.State(), StateActiveExpressing)
	}
	if m.State() != StateLTinContact {
		t.Errorf("LTin state = %v, want %v", m.State(), StateLTinContact)
	}

	// Moved out of reach, the next step returns it to migrating.
	m.pos = space.Point{X: 250, Y: 100}
	c.Field.Place(m, m.pos)
	if err := m.Step(context.Background(), tickAt(c, 2)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if m.State() != StateLTinMigrating {
		t.Errorf("LTin state = %v, want %v", m.State(), StateLTinMigrating)
	}
}

func TestInactiveCellsAreNotContacts(t *testing.T) {
	c := newTestContext(t, withMigrating(smallConfig(), "LTin"))
	lto := spawnAt(t, c, 10, 10, StateInactive)
	m := placeAt(t, c, 0, lto.Position())

	if err := m.Step(context.Background(), tickAt(c, 1)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if lto.State() != StateInactive {
		t.Errorf("inactive organizer moved to %v", lto.State())
	}
	if m.State() != StateLTinMigrating {
		t.Errorf("LTin state = %v, want %v", m.State(), StateLTinMigrating)
	}
}

func TestAdhesionHoldsPosition(t *testing.T) {
	cfg := smallConfig()
	cfg.Stromal[0].Expressors[0].Params = map[string]float64{"slope": 1, "expression_level": 1}
	c := newTestContext(t, withMigrating(cfg, "LTi", integrin))
	lto := spawnAt(t, c, 10, 10, StateActiveExpressing)
	start := space.Point{X: lto.Position().X + 2, Y: lto.Position().Y}
	m := placeAt(t, c, 0, start)
	m.BeginTrack()

	for i := int64(1); i <= 5; i++ {
		if err := m.Step(context.Background(), tickAt(c, i)); err != nil {
			t.Fatalf("Step: %v", err)
		}
		if m.Position() != start {
			t.Fatalf("step %d: adhered cell moved to %v", i, m.Position())
		}
		if m.State() != StateLTiAdhered {
			t.Fatalf("step %d: state = %v, want %v", i, m.State(), StateLTiAdhered)
		}
	}
	if lto.State() != StateProliferating {
		t.Errorf("organizer state = %v, want %v", lto.State(), StateProliferating)
	}

	track := m.EndTrack()
	if track.Steps != 5 || track.Length != 0 {
		t.Errorf("track = %+v, want 5 steps and no length", track)
	}
	if track.Start != start || track.End != start {
		t.Errorf("track endpoints = %v -> %v, want %v", track.Start, track.End, start)
	}
}

func TestNoAdhesionWithoutIntegrin(t *testing.T) {
	cfg := smallConfig()
	cfg.Stromal[0].Expressors[0].Params = map[string]float64{"slope": 1, "expression_level": 1}
	c := newTestContext(t, withMigrating(cfg, "LTi"))
	lto := spawnAt(t, c, 10, 10, StateActiveExpressing)
	m := placeAt(t, c, 0, lto.Position())

	if err := m.Step(context.Background(), tickAt(c, 1)); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if m.State() != StateLTiMigrating {
		t.Errorf("state = %v, want %v", m.State(), StateLTiMigrating)
	}
	if lto.State() != StateActiveExpressing {
		t.Errorf("organizer state = %v, want %v", lto.State(), StateActiveExpressing)
	}
}

func TestTrackAccumulatesLength(t *testing.T) {
	c := newTestContext(t, withMigrating(smallConfig(), "LTi"))
	m := placeAt(t, c, 0, space.Point{X: 150, Y: 60})

	m.BeginTrack()
	if !m.Tracking() {
		t.Fatal("Tracking() = false after BeginTrack")
	}
	for i := int64(1); i <= 4; i++ {
		if err := m.Step(context.Background(), tickAt(c, i)); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	track := m.EndTrack()
	if m.Tracking() {
		t.Error("Tracking() = true after EndTrack")
	}
	if track.Steps != 4 {
		t.Errorf("Steps = %d, want 4", track.Steps)
	}
	if math.Abs(track.Length-4*m.Speed()) > 1e-9 {
		t.Errorf("Length = %v, want %v", track.Length, 4*m.Speed())
	}
	if track.Start != (space.Point{X: 150, Y: 60}) || track.End != m.Position() {
		t.Errorf("track endpoints = %v -> %v", track.Start, track.End)
	}
}

func TestChemotaxisBiasesTowardOrganizer(t *testing.T) {
	c := newTestContext(t, withMigrating(smallConfig(), "LTi", receptor))
	lto := spawnAt(t, c, 8, 8, StateActiveExpressing)
	start := space.Point{X: lto.Position().X + 3, Y: lto.Position().Y}
	m := placeAt(t, c, 0, start)

	const trials = 500
	toward := 0
	for i := 0; i < trials; i++ {
		m.pos = start
		c.Field.Place(m, start)
		if err := m.Step(context.Background(), tickAt(c, 1)); err != nil {
			t.Fatalf("Step: %v", err)
		}
		if m.Position().X < start.X {
			toward++
		}
	}
	if frac := float64(toward) / trials; frac <= 0.8 {
		t.Errorf("moved toward the organizer in %.2f of steps, want more than 0.80", frac)
	}
}

func TestAdmitAvoidsCollisions(t *testing.T) {
	c := newTestContext(t, withMigrating(smallConfig(), "LTi"))
	for i := 0; i < 50; i++ {
		if _, err := c.admit(c.Migrating[0], tickAt(c, 1)); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	cells := c.MigratingCells()
	if len(cells) != 50 {
		t.Fatalf("MigratingCells() = %d, want 50", len(cells))
	}
	for i, a := range cells {
		for _, b := range cells[i+1:] {
			if d := space.ToroidalDistance(a.Position(), b.Position(), c.Env.Height); d < c.CellDiameter {
				t.Fatalf("cells admitted %v apart, closer than one diameter", d)
			}
		}
	}
	if got := c.Counters.Admitted("LTi"); got != 50 {
		t.Errorf("Admitted = %d, want 50", got)
	}
}
