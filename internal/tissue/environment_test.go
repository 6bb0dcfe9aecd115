package tissue

import (
	"context"
	"math"
	"testing"
)

func TestEnvironmentGrowth(t *testing.T) {
	cfg := smallConfig()
	cfg.Environment.TargetLength = 600
	cfg.Environment.TargetCircumference = 240
	cfg.Environment.GrowthHours = 1
	cfg.Environment.GrowthStartHours = 1
	c := newTestContext(t, cfg)
	env := c.Env

	if env.GrowthStartStep != 60 {
		t.Errorf("GrowthStartStep = %d, want 60", env.GrowthStartStep)
	}
	if math.Abs(env.GrowthX-5) > 1e-12 || math.Abs(env.GrowthY-2) > 1e-12 {
		t.Errorf("growth = (%v, %v), want (5, 2)", env.GrowthX, env.GrowthY)
	}

	for step := int64(0); step < 60; step++ {
		if err := env.Step(context.Background(), tickAt(c, step)); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if env.Width != 300 || env.Height != 120 {
		t.Fatalf("tract grew before the start step: %vx%v", env.Width, env.Height)
	}

	prevW, prevH := env.Width, env.Height
	for step := int64(60); step < 200; step++ {
		if err := env.Step(context.Background(), tickAt(c, step)); err != nil {
			t.Fatalf("Step: %v", err)
		}
		if env.Width < prevW || env.Height < prevH {
			t.Fatalf("step %d: tract shrank to %vx%v", step, env.Width, env.Height)
		}
		if env.Width > env.TargetWidth || env.Height > env.TargetHeight {
			t.Fatalf("step %d: tract %vx%v exceeds target", step, env.Width, env.Height)
		}
		prevW, prevH = env.Width, env.Height
	}
	if env.Width != 600 || env.Height != 240 {
		t.Errorf("final size = %vx%v, want 600x240", env.Width, env.Height)
	}
	if c.Field.Width() != env.Width || c.Field.Height() != env.Height {
		t.Errorf("field %vx%v not resized with the tract", c.Field.Width(), c.Field.Height())
	}
	if lat := env.Lattice(); lat.Width != 600 || lat.Height != 240 {
		t.Errorf("Lattice() = %dx%d, want 600x240", lat.Width, lat.Height)
	}
	if cols, rows := c.Grid.Width, c.Grid.Height; cols != 50 || rows != 20 {
		t.Errorf("grid resized to %dx%d, want it fixed at 50x20", cols, rows)
	}
}

func TestEnvironmentNoGrowth(t *testing.T) {
	tests := []struct {
		name        string
		growthHours float64
		target      float64
	}{
		{"zero growth period", 0, 600},
		{"target equals initial", 1, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			cfg.Environment.TargetLength = tt.target
			cfg.Environment.GrowthHours = tt.growthHours
			c := newTestContext(t, cfg)
			for step := int64(0); step < 100; step++ {
				if err := c.Env.Step(context.Background(), tickAt(c, step)); err != nil {
					t.Fatalf("Step: %v", err)
				}
			}
			if c.Env.Width != 300 {
				t.Errorf("Width = %v, want 300", c.Env.Width)
			}
		})
	}
}

func TestDivisionPositionFollowsGrowth(t *testing.T) {
	cfg := smallConfig()
	cfg.Environment.TargetLength = 600
	cfg.Environment.GrowthHours = 1
	c := newTestContext(t, cfg)
	for i := 0; i < 60; i++ {
		c.Env.Grow()
	}

	parent := spawnAt(t, c, 10, 10, StateActiveExpressing)
	if err := parent.base().divide(tickAt(c, 61)); err != nil {
		t.Fatalf("divide: %v", err)
	}
	var child GridCell
	for _, g := range c.GridCells() {
		if g != parent {
			child = g
		}
	}
	if child == nil {
		t.Fatal("no offspring created")
	}
	loc := child.GridLocation()
	want := float64(loc.Col)*12 + 3
	if child.Position().X != want {
		t.Errorf("offspring X = %v, want %v (column spacing scaled by growth)", child.Position().X, want)
	}
}
