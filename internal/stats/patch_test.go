package stats

import (
	"context"
	"testing"

	"github.com/kalden/ppsim/internal/tissue"
)

func TestPatchStatisticsSample(t *testing.T) {
	sim := newTestContext(t, testConfig())

	// Organizers at (153,63) and, on the seam row, (153,3).
	placeOrganizer(t, sim, 25, 10)
	placeOrganizer(t, sim, 25, 0)
	// An inactive LTo does not count as an organizer.
	if _, err := sim.PlaceGridCell("LTo", spaceCoord(5, 5), tissue.StateInactive); err != nil {
		t.Fatalf("PlaceGridCell: %v", err)
	}
	// A dividing organizer still expresses, at (243,93).
	if _, err := sim.PlaceGridCell("LTo", spaceCoord(40, 15), tissue.StateProliferating); err != nil {
		t.Fatalf("PlaceGridCell: %v", err)
	}

	type cell struct {
		class   string
		x, y    float64
		inPatch bool
	}
	cells := []cell{
		{"LTi", 155, 63, true},   // pair beside the first organizer
		{"LTi", 160, 63, true},   //
		{"LTi", 155, 1, true},    // pair across the Y seam beside the second
		{"LTi", 155, 119, true},  //
		{"LTi", 250, 63, false},  // alone
		{"LTi", 60, 30, false},   // pair with no organizer near
		{"LTi", 62, 30, false},   //
		{"LTi", 33, 33, false},   // pair beside the inactive LTo
		{"LTi", 35, 33, false},   //
		{"LTi", 245, 93, true},   // pair beside the proliferating LTo
		{"LTi", 247, 93, true},   //
		{"LTin", 250, 65, false}, // not reported
	}
	for _, c := range cells {
		placeCell(t, sim, c.class, c.x, c.y)
	}

	p := NewPatchStatistics(sim, &recordingSink{}, nil)
	got := p.Sample(24)

	var want []cell
	for _, c := range cells {
		if c.class == PatchClass {
			want = append(want, c)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("Sample() returned %d positions, want %d", len(got), len(want))
	}
	for i, pos := range got {
		if pos.X != want[i].x || pos.Y != want[i].y {
			t.Errorf("position %d = (%v,%v), want (%v,%v)", i, pos.X, pos.Y, want[i].x, want[i].y)
		}
		if pos.InPatch != want[i].inPatch {
			t.Errorf("cell at (%v,%v) InPatch = %v, want %v", pos.X, pos.Y, pos.InPatch, want[i].inPatch)
		}
		if pos.Hour != 24 {
			t.Errorf("Hour = %v, want 24", pos.Hour)
		}
		if pos.State != int(tissue.StateLTiMigrating) {
			t.Errorf("State = %d, want %d", pos.State, tissue.StateLTiMigrating)
		}
	}
}

func TestPatchStatisticsSchedule(t *testing.T) {
	tests := []struct {
		name  string
		hours []int
		want  []float64
	}{
		{"configured and end", []int{1}, []float64{1, 3}},
		{"unsorted with duplicates", []int{2, 1, 2}, []float64{1, 2, 3}},
		{"hours past the run", []int{3, 7}, []float64{3}},
		{"end only", nil, []float64{3}},
		{"hour zero", []int{0}, []float64{0, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestContext(t, testConfig())
			sink := &recordingSink{}
			p := NewPatchStatistics(sim, sink, tt.hours)

			ctx := context.Background()
			for step := int64(0); step <= sim.EndStep; step++ {
				if err := p.Step(ctx, tickAt(sim, step)); err != nil {
					t.Fatalf("Step(%d): %v", step, err)
				}
			}

			if len(sink.patchHours) != len(tt.want) {
				t.Fatalf("sampled hours %v, want %v", sink.patchHours, tt.want)
			}
			for i := range tt.want {
				if sink.patchHours[i] != tt.want[i] {
					t.Errorf("sample %d hour = %v, want %v", i, sink.patchHours[i], tt.want[i])
				}
			}
		})
	}
}
