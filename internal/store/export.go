package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kalden/ppsim/internal/models"
)

// RunExport is a run together with all of its stored results.
type RunExport struct {
	Run        models.RunInfo            `json:"run"`
	Tracks     []models.TrackRecord      `json:"tracks"`
	Patches    []models.PatchPosition    `json:"patches"`
	Population []models.PopulationSample `json:"population"`
}

// ExportRun reads a run and its results from the store.
func ExportRun(ctx context.Context, s ResultStore, runID string) (*RunExport, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	tracks, err := s.TrackRecords(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to export tracks: %w", err)
	}
	patches, err := s.PatchPositions(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to export patch positions: %w", err)
	}
	samples, err := s.PopulationSamples(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to export population: %w", err)
	}

	return &RunExport{Run: *run, Tracks: tracks, Patches: patches, Population: samples}, nil
}

// ImportRun writes an exported run into the store. An existing run with the
// same ID is replaced.
func ImportRun(ctx context.Context, s ResultStore, exp *RunExport) error {
	if exp.Run.ID == "" {
		return fmt.Errorf("export has no run ID")
	}

	if _, err := s.GetRun(ctx, exp.Run.ID); err == nil {
		if err := s.DeleteRun(ctx, exp.Run.ID); err != nil {
			return fmt.Errorf("failed to replace run %s: %w", exp.Run.ID, err)
		}
	} else if !errors.Is(err, ErrRunNotFound) {
		return err
	}

	if err := s.CreateRun(ctx, exp.Run); err != nil {
		return fmt.Errorf("failed to import run: %w", err)
	}
	if err := s.AddTrackRecords(ctx, exp.Tracks); err != nil {
		return fmt.Errorf("failed to import tracks: %w", err)
	}
	if err := s.AddPatchPositions(ctx, exp.Patches); err != nil {
		return fmt.Errorf("failed to import patch positions: %w", err)
	}
	if err := s.AddPopulationSamples(ctx, exp.Population); err != nil {
		return fmt.Errorf("failed to import population: %w", err)
	}
	return nil
}
