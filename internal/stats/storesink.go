package stats

import (
	"context"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/store"
)

// StoreSink writes results to a ResultStore under one run ID. The store is
// owned by the caller and is not closed by Close.
type StoreSink struct {
	store store.ResultStore
	runID string
}

// NewStoreSink returns a sink that stamps every record with runID.
func NewStoreSink(s store.ResultStore, runID string) *StoreSink {
	return &StoreSink{store: s, runID: runID}
}

func (s *StoreSink) WriteTracks(ctx context.Context, window config.HourRange, records []models.TrackRecord) error {
	stamped := make([]models.TrackRecord, len(records))
	for i, r := range records {
		r.RunID = s.runID
		stamped[i] = r
	}
	return s.store.AddTrackRecords(ctx, stamped)
}

func (s *StoreSink) WritePatches(ctx context.Context, hour float64, positions []models.PatchPosition) error {
	stamped := make([]models.PatchPosition, len(positions))
	for i, p := range positions {
		p.RunID = s.runID
		stamped[i] = p
	}
	return s.store.AddPatchPositions(ctx, stamped)
}

func (s *StoreSink) WritePopulation(ctx context.Context, samples []models.PopulationSample) error {
	stamped := make([]models.PopulationSample, len(samples))
	for i, sm := range samples {
		sm.RunID = s.runID
		stamped[i] = sm
	}
	return s.store.AddPopulationSamples(ctx, stamped)
}

func (s *StoreSink) Close() error {
	return nil
}
