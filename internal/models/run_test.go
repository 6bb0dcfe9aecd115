package models

import (
	"testing"
	"time"
)

func TestRunStatus(t *testing.T) {
	tests := []struct {
		status   RunStatus
		valid    bool
		terminal bool
	}{
		{RunStatusRunning, true, false},
		{RunStatusCompleted, true, true},
		{RunStatusFailed, true, true},
		{RunStatusCancelled, true, true},
		{RunStatus("paused"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestRunInfoDuration(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &RunInfo{StartedAt: start}
	if got := run.Duration(); got != 0 {
		t.Errorf("Duration() of running run = %v, want 0", got)
	}

	end := start.Add(90 * time.Second)
	run.FinishedAt = &end
	if got := run.Duration(); got != 90*time.Second {
		t.Errorf("Duration() = %v, want 1m30s", got)
	}
}
