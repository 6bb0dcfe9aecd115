package stats

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/simerr"
	"github.com/kalden/ppsim/internal/space"
	"github.com/kalden/ppsim/internal/tissue"
)

// CellTracker follows every migrating cell alive at the start of a tracking
// window and reports those still alive at its end.
type CellTracker struct {
	sim     *tissue.Context
	sink    Sink
	windows []config.HourRange
	next    int

	open    bool
	tracked []trackedCell
	handle  *schedule.Handle
}

type trackedCell struct {
	cell  *tissue.MigratingCell
	table string
}

// NewCellTracker returns a tracker for windows. Windows are taken in start
// order and must not overlap.
func NewCellTracker(sim *tissue.Context, sink Sink, windows []config.HourRange) (*CellTracker, error) {
	sorted := append([]config.HourRange(nil), windows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			return nil, simerr.Configf("tracking_hours", "windows %d-%d and %d-%d overlap",
				sorted[i-1].Start, sorted[i-1].End, sorted[i].Start, sorted[i].End)
		}
	}
	return &CellTracker{sim: sim, sink: sink, windows: sorted}, nil
}

// Step closes the current window when its end hour is reached, then opens
// the next one when its start hour is reached.
func (t *CellTracker) Step(ctx context.Context, tick schedule.Tick) error {
	sim := t.sim.Config.Simulation

	var err error
	if t.open {
		w := t.windows[t.next]
		if tick.Step == sim.StepsFor(float64(w.End)) {
			err = t.closeWindow(ctx, w)
			t.next++
		}
	}
	if !t.open && t.next < len(t.windows) && tick.Step < t.sim.EndStep {
		w := t.windows[t.next]
		if tick.Step == sim.StepsFor(float64(w.Start)) {
			t.openWindow(w)
		}
	}

	if tick.Step >= t.sim.EndStep || (!t.open && t.next >= len(t.windows)) {
		if t.open {
			t.sim.Logger.Debug("tracking window cut short by end of run",
				"window", windowLabel(t.windows[t.next]),
				"cells", len(t.tracked))
			for _, tc := range t.tracked {
				tc.cell.EndTrack()
			}
			t.tracked = nil
			t.open = false
		}
		t.handle.Stop()
	}
	return err
}

func (t *CellTracker) openWindow(w config.HourRange) {
	t.tracked = t.tracked[:0]
	for _, m := range t.sim.MigratingCells() {
		table := models.TableAway
		if d, ok := t.sim.NearestOrganizer(m.Position()); ok && d*constants.MicronsPerUnit <= constants.CloseOrganizerMicrons {
			table = models.TableClose
		}
		m.BeginTrack()
		t.tracked = append(t.tracked, trackedCell{cell: m, table: table})
	}
	t.open = true

	t.sim.Logger.Info("tracking window opened",
		"window", windowLabel(w),
		"cells", len(t.tracked))
}

func (t *CellTracker) closeWindow(ctx context.Context, w config.HourRange) error {
	minutes := float64(w.End-w.Start) * 60
	threshold := t.sim.Config.Simulation.DisplacementThreshold

	records := make([]models.TrackRecord, 0, len(t.tracked))
	for _, tc := range t.tracked {
		m := tc.cell
		track := m.EndTrack()
		if m.Removed() {
			continue
		}
		records = append(records, trackRecord(w, tc.table, m, track, t.sim.Env.Height, threshold, minutes, t.nearest(m.Position())))
	}
	t.tracked = nil
	t.open = false

	t.sim.Logger.Info("tracking window closed",
		"window", windowLabel(w),
		"records", len(records))
	if err := t.sink.WriteTracks(ctx, w, records); err != nil {
		return fmt.Errorf("writing tracks for %s: %w", windowLabel(w), err)
	}
	return nil
}

// nearest returns the distance to the closest organizer in microns, or -1.
func (t *CellTracker) nearest(p space.Point) float64 {
	d, ok := t.sim.NearestOrganizer(p)
	if !ok {
		return -1
	}
	return d * constants.MicronsPerUnit
}

// trackRecord converts a finished track to microns and minutes.
func trackRecord(w config.HourRange, table string, m *tissue.MigratingCell, track tissue.Track, height, threshold, minutes, nearest float64) models.TrackRecord {
	const um = constants.MicronsPerUnit

	disp := Displacement(track.Start, track.End, height, threshold)
	meander := 0.0
	if track.Length > 0 {
		meander = disp / track.Length
	}
	return models.TrackRecord{
		Window:           windowLabel(w),
		Table:            table,
		CellType:         m.Class(),
		State:            int(m.State()),
		Steps:            track.Steps,
		Speed:            m.Speed() * um,
		StartX:           track.Start.X * um,
		StartY:           track.Start.Y * um,
		EndX:             track.End.X * um,
		EndY:             track.End.Y * um,
		Length:           track.Length * um,
		Velocity:         track.Length * um / minutes,
		Displacement:     disp * um,
		DisplacementRate: disp * um / minutes,
		MeanderingIndex:  meander,
		NearestOrganizer: nearest,
	}
}

// Displacement returns the straight-line distance from start to end in field
// units. A distance above threshold means the cell crossed the Y seam, so
// the Y difference is shifted by one circumference before measuring.
func Displacement(start, end space.Point, height, threshold float64) float64 {
	d := space.Distance(start, end)
	if d <= threshold {
		return d
	}
	dy := end.Y - start.Y
	if end.Y < start.Y {
		dy += height
	} else {
		dy -= height
	}
	return math.Hypot(end.X-start.X, dy)
}

func windowLabel(w config.HourRange) string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}
