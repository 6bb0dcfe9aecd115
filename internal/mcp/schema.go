package mcp

import (
	"time"
)

// PpsimRunInput defines the input for ppsim_run tool.
type PpsimRunInput struct {
	Seed            uint64  `json:"seed,omitempty" jsonschema:"Random seed; runs with equal seeds and settings are identical (default: configured seed)"`
	Hours           float64 `json:"hours,omitempty" jsonschema:"Simulated hours to run (default: configured hours)"`
	Description     string  `json:"description,omitempty" jsonschema:"Experiment description used for the results directory"`
	Replicate       string  `json:"replicate,omitempty" jsonschema:"Replicate name within the experiment"`
	TrackingHours   string  `json:"tracking_hours,omitempty" jsonschema:"Tracking windows as 'start-end,start-end' (e.g. '12-13,36-37')"`
	PatchStatsHours string  `json:"patch_stats_hours,omitempty" jsonschema:"Patch statistics hours as '24,48' or 'NULL'"`
}

// PpsimRunOutput defines the output for ppsim_run tool.
type PpsimRunOutput struct {
	RunID      string           `json:"run_id" jsonschema:"ID of the run in the results store"`
	Status     string           `json:"status" jsonschema:"Final run status: completed, failed, or cancelled"`
	Steps      int64            `json:"steps" jsonschema:"Number of ticks executed"`
	Hours      float64          `json:"hours" jsonschema:"Simulated hours reached"`
	ResultsDir string           `json:"results_dir" jsonschema:"Directory holding the CSV and XML output"`
	DurationMs int64            `json:"duration_ms" jsonschema:"Wall-clock duration of the run"`
	Population []PopulationItem `json:"population" jsonschema:"Final cell counts by class and state"`
	Message    string           `json:"message" jsonschema:"Human-readable result message"`
}

// PopulationItem is one class/state count.
type PopulationItem struct {
	Class     string `json:"class"`
	State     string `json:"state"`
	StateCode int    `json:"state_code"`
	Count     int    `json:"count"`
}

// PpsimRunsInput defines the input for ppsim_runs tool.
type PpsimRunsInput struct {
	Description string `json:"description,omitempty" jsonschema:"Only runs of this experiment description"`
	Status      string `json:"status,omitempty" jsonschema:"Only runs in this status: running, completed, failed, or cancelled"`
	Limit       int    `json:"limit,omitempty" jsonschema:"Maximum number of runs, most recent first (default: 20)"`
}

// PpsimRunsOutput defines the output for ppsim_runs tool.
type PpsimRunsOutput struct {
	Runs  []RunListItem `json:"runs" jsonschema:"Stored runs, most recent first"`
	Count int           `json:"count" jsonschema:"Number of runs returned"`
}

// RunListItem provides a list view of a run.
type RunListItem struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Replicate   string     `json:"replicate"`
	Seed        uint64     `json:"seed"`
	Status      string     `json:"status"`
	Hours       float64    `json:"hours"`
	Steps       int64      `json:"steps"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// PpsimRunSummaryInput defines the input for ppsim_run_summary tool.
type PpsimRunSummaryInput struct {
	RunID string `json:"run_id" jsonschema:"ID of the run to summarize"`
}

// PpsimRunSummaryOutput defines the output for ppsim_run_summary tool.
type PpsimRunSummaryOutput struct {
	Run             RunListItem      `json:"run"`
	FinalPopulation []PopulationItem `json:"final_population" jsonschema:"Last hourly population sample"`
	Patches         []PatchItem      `json:"patches" jsonschema:"LTi counts per patch statistics hour"`
	TrackRecords    map[string]int   `json:"track_records" jsonschema:"Tracked cells per table (Close, Away)"`
}

// PatchItem is the LTi count of one patch statistics sample.
type PatchItem struct {
	Hour    float64 `json:"hour"`
	Total   int     `json:"total"`
	InPatch int     `json:"in_patch"`
}

// PpsimExportInput defines the input for ppsim_export tool.
type PpsimExportInput struct {
	RunID      string `json:"run_id" jsonschema:"ID of the run to export"`
	OutputPath string `json:"output_path,omitempty" jsonschema:"Archive path under ~/.ppsim/archives or <results>/archives (default: ~/.ppsim/archives/<run-id>.ppsim.gz)"`
}

// PpsimExportOutput defines the output for ppsim_export tool.
type PpsimExportOutput struct {
	Path      string `json:"path" jsonschema:"Path of the written archive"`
	Checksum  string `json:"checksum" jsonschema:"SHA-256 checksum of the compressed payload"`
	Tracks    int    `json:"tracks"`
	Patches   int    `json:"patches"`
	Samples   int    `json:"samples"`
	SizeBytes int64  `json:"size_bytes"`
	Message   string `json:"message" jsonschema:"Human-readable result message"`
}
