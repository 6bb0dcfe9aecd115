// Package stats collects the results of a run: cell tracks over the
// configured tracking windows, patch statistics at the configured hours and at
// the end of the run, and hourly population counts.
//
// Collectors run in the schedule's collector band, after every agent has
// stepped, and hand their records to a Sink.
package stats

import (
	"context"
	"errors"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/schedule"
	"github.com/kalden/ppsim/internal/tissue"
)

// Sink receives collected results.
type Sink interface {
	// WriteTracks receives every full-window track of one tracking window,
	// both the Close and the Away table.
	WriteTracks(ctx context.Context, window config.HourRange, records []models.TrackRecord) error

	// WritePatches receives every LTi position of one patch sample.
	WritePatches(ctx context.Context, hour float64, positions []models.PatchPosition) error

	// WritePopulation receives one population sample.
	WritePopulation(ctx context.Context, samples []models.PopulationSample) error

	Close() error
}

// MultiSink fans results out to several sinks. Every sink is written even
// when an earlier one fails.
type MultiSink []Sink

func (m MultiSink) WriteTracks(ctx context.Context, window config.HourRange, records []models.TrackRecord) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.WriteTracks(ctx, window, records))
	}
	return errors.Join(errs...)
}

func (m MultiSink) WritePatches(ctx context.Context, hour float64, positions []models.PatchPosition) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.WritePatches(ctx, hour, positions))
	}
	return errors.Join(errs...)
}

func (m MultiSink) WritePopulation(ctx context.Context, samples []models.PopulationSample) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.WritePopulation(ctx, samples))
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Collectors are the statistics components scheduled for one run. A nil
// field means that output is off.
type Collectors struct {
	Tracker    *CellTracker
	Patches    *PatchStatistics
	Population *PopulationSampler
}

// Attach builds the collectors the configuration asks for and schedules them
// in the collector band.
func Attach(sim *tissue.Context, sink Sink) (*Collectors, error) {
	var c Collectors

	windows, err := sim.Config.TrackingRanges()
	if err != nil {
		return nil, err
	}
	if len(windows) > 0 {
		c.Tracker, err = NewCellTracker(sim, sink, windows)
		if err != nil {
			return nil, err
		}
		c.Tracker.handle = sim.Schedule.ScheduleRepeating(c.Tracker, schedule.OrderCollectors)
	}

	hours, enabled, err := sim.Config.PatchHours()
	if err != nil {
		return nil, err
	}
	if enabled {
		c.Patches = NewPatchStatistics(sim, sink, hours)
		c.Patches.handle = sim.Schedule.ScheduleRepeating(c.Patches, schedule.OrderCollectors)
	}

	c.Population = NewPopulationSampler(sim, sink)
	c.Population.handle = sim.Schedule.ScheduleRepeating(c.Population, schedule.OrderCollectors)

	return &c, nil
}
