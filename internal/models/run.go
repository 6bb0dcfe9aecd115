package models

import (
	"time"
)

// RunStatus is the lifecycle state of a simulation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"   // Stepping
	RunStatusCompleted RunStatus = "completed" // Reached the configured end time
	RunStatusFailed    RunStatus = "failed"    // Aborted by a setup or invariant error
	RunStatusCancelled RunStatus = "cancelled" // Interrupted by a signal or a cancelled context
)

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether a run in this status will not change again.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// RunInfo describes one simulation run.
type RunInfo struct {
	ID          string    `json:"id" yaml:"id"`
	Description string    `json:"description" yaml:"description"`
	Replicate   string    `json:"replicate" yaml:"replicate"`
	Seed        uint64    `json:"seed" yaml:"seed"`
	Status      RunStatus `json:"status" yaml:"status"`

	// Hours is the configured simulated time; SecondsPerStep the tick length.
	Hours          float64 `json:"hours" yaml:"hours"`
	SecondsPerStep float64 `json:"seconds_per_step" yaml:"seconds_per_step"`

	// Steps is the number of ticks executed so far.
	Steps int64 `json:"steps" yaml:"steps"`

	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`

	// Error holds the failure message of a failed run.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// ResultsDir is where the run's CSV and XML files were written.
	ResultsDir string `json:"results_dir,omitempty" yaml:"results_dir,omitempty"`

	// Config is the YAML of the configuration the run used.
	Config string `json:"config,omitempty" yaml:"config,omitempty"`
}

// Duration returns the wall-clock time the run took, or zero while it is
// still running.
func (r *RunInfo) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunSummary aggregates the stored results of a run.
type RunSummary struct {
	Run RunInfo `json:"run"`

	// FinalPopulation is the last hourly sample, one entry per class and state.
	FinalPopulation []PopulationSample `json:"final_population"`

	// Patches holds one count per patch statistics hour.
	Patches []PatchCount `json:"patches"`

	// TrackRecords is the number of stored tracks per table ("Close", "Away").
	TrackRecords map[string]int `json:"track_records"`
}
