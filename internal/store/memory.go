package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kalden/ppsim/internal/models"
)

// InMemoryResultStore implements ResultStore for testing and for runs that
// skip the database.
type InMemoryResultStore struct {
	mu      sync.RWMutex
	runs    map[string]models.RunInfo
	tracks  map[string][]models.TrackRecord
	patches map[string][]models.PatchPosition
	samples map[string][]models.PopulationSample
}

// NewInMemoryResultStore creates a new in-memory store.
func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{
		runs:    make(map[string]models.RunInfo),
		tracks:  make(map[string][]models.TrackRecord),
		patches: make(map[string][]models.PatchPosition),
		samples: make(map[string][]models.PopulationSample),
	}
}

// CreateRun adds a run to the store.
func (s *InMemoryResultStore) CreateRun(ctx context.Context, run models.RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run already exists: %s", run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// UpdateRun replaces an existing run.
func (s *InMemoryResultStore) UpdateRun(ctx context.Context, run models.RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// GetRun retrieves a run by ID.
func (s *InMemoryResultStore) GetRun(ctx context.Context, id string) (*models.RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return &run, nil
}

// ListRuns returns the runs matching filter, most recently started first.
func (s *InMemoryResultStore) ListRuns(ctx context.Context, filter RunFilter) ([]models.RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RunInfo
	for _, run := range s.runs {
		if filter.Description != "" && run.Description != filter.Description {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// DeleteRun removes a run and all of its results.
func (s *InMemoryResultStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, id)
	delete(s.tracks, id)
	delete(s.patches, id)
	delete(s.samples, id)
	return nil
}

// AddTrackRecords appends track records.
func (s *InMemoryResultStore) AddTrackRecords(ctx context.Context, records []models.TrackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if _, ok := s.runs[r.RunID]; !ok {
			return fmt.Errorf("%w: %s", ErrRunNotFound, r.RunID)
		}
	}
	for _, r := range records {
		s.tracks[r.RunID] = append(s.tracks[r.RunID], r)
	}
	return nil
}

// AddPatchPositions appends patch positions.
func (s *InMemoryResultStore) AddPatchPositions(ctx context.Context, positions []models.PatchPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range positions {
		if _, ok := s.runs[p.RunID]; !ok {
			return fmt.Errorf("%w: %s", ErrRunNotFound, p.RunID)
		}
	}
	for _, p := range positions {
		s.patches[p.RunID] = append(s.patches[p.RunID], p)
	}
	return nil
}

// AddPopulationSamples appends population samples.
func (s *InMemoryResultStore) AddPopulationSamples(ctx context.Context, samples []models.PopulationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sm := range samples {
		if _, ok := s.runs[sm.RunID]; !ok {
			return fmt.Errorf("%w: %s", ErrRunNotFound, sm.RunID)
		}
	}
	for _, sm := range samples {
		s.samples[sm.RunID] = append(s.samples[sm.RunID], sm)
	}
	return nil
}

// TrackRecords returns a run's track records in insertion order.
func (s *InMemoryResultStore) TrackRecords(ctx context.Context, runID string) ([]models.TrackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TrackRecord(nil), s.tracks[runID]...), nil
}

// PatchPositions returns a run's patch positions in insertion order.
func (s *InMemoryResultStore) PatchPositions(ctx context.Context, runID string) ([]models.PatchPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PatchPosition(nil), s.patches[runID]...), nil
}

// PopulationSamples returns a run's samples ordered by hour, class and state.
func (s *InMemoryResultStore) PopulationSamples(ctx context.Context, runID string) ([]models.PopulationSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.PopulationSample(nil), s.samples[runID]...)
	sortSamples(out)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryResultStore) Close() error {
	return nil
}
