// Package store persists simulation runs and their results.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/kalden/ppsim/internal/models"
)

// ErrRunNotFound is returned when a run ID is not in the store.
var ErrRunNotFound = errors.New("run not found")

// RunFilter narrows ListRuns. Zero fields match everything.
type RunFilter struct {
	Description string
	Status      models.RunStatus
	Limit       int // Most recent first; 0 means no limit
}

// ResultStore defines the interface for storing runs and their results.
type ResultStore interface {
	// Run operations
	CreateRun(ctx context.Context, run models.RunInfo) error
	UpdateRun(ctx context.Context, run models.RunInfo) error
	GetRun(ctx context.Context, id string) (*models.RunInfo, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]models.RunInfo, error)
	DeleteRun(ctx context.Context, id string) error

	// Result operations. Every record must name an existing run.
	AddTrackRecords(ctx context.Context, records []models.TrackRecord) error
	AddPatchPositions(ctx context.Context, positions []models.PatchPosition) error
	AddPopulationSamples(ctx context.Context, samples []models.PopulationSample) error

	TrackRecords(ctx context.Context, runID string) ([]models.TrackRecord, error)
	PatchPositions(ctx context.Context, runID string) ([]models.PatchPosition, error)
	PopulationSamples(ctx context.Context, runID string) ([]models.PopulationSample, error)

	Close() error
}

// Summarize aggregates the stored results of one run.
func Summarize(ctx context.Context, s ResultStore, runID string) (*models.RunSummary, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	summary := &models.RunSummary{Run: *run, TrackRecords: map[string]int{}}

	samples, err := s.PopulationSamples(ctx, runID)
	if err != nil {
		return nil, err
	}
	if n := len(samples); n > 0 {
		last := samples[n-1].Hour
		for _, sm := range samples {
			if sm.Hour == last {
				summary.FinalPopulation = append(summary.FinalPopulation, sm)
			}
		}
	}

	positions, err := s.PatchPositions(ctx, runID)
	if err != nil {
		return nil, err
	}
	byHour := map[float64]*models.PatchCount{}
	for _, p := range positions {
		pc, ok := byHour[p.Hour]
		if !ok {
			pc = &models.PatchCount{Hour: p.Hour}
			byHour[p.Hour] = pc
		}
		pc.Total++
		if p.InPatch {
			pc.InPatch++
		}
	}
	for _, pc := range byHour {
		summary.Patches = append(summary.Patches, *pc)
	}
	sort.Slice(summary.Patches, func(i, j int) bool {
		return summary.Patches[i].Hour < summary.Patches[j].Hour
	})

	records, err := s.TrackRecords(ctx, runID)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		summary.TrackRecords[r.Table]++
	}
	return summary, nil
}

// sortSamples orders population samples by hour, class and state.
func sortSamples(samples []models.PopulationSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		a, b := samples[i], samples[j]
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.State < b.State
	})
}
