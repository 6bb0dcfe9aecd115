package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/kalden/ppsim/internal/archive"
	"github.com/kalden/ppsim/internal/constants"
	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/pathutil"
	"github.com/kalden/ppsim/internal/ratelimit"
	"github.com/kalden/ppsim/internal/sanitize"
	"github.com/kalden/ppsim/internal/sim"
	"github.com/kalden/ppsim/internal/store"
	"github.com/kalden/ppsim/internal/tissue"
)

// defaultRunsLimit caps ppsim_runs when no limit is given.
const defaultRunsLimit = 20

// recentRunsURI is the resource listing recent runs.
const recentRunsURI = "ppsim://runs/recent"

// errRunInProgress is returned when ppsim_run is called during another run.
var errRunInProgress = errors.New("a simulation run is already in progress")

// registerTools registers all ppsim MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "ppsim_run",
		Description: "Run a Peyer's patch simulation and store its results. Blocks until the run ends.",
	}, s.handlePpsimRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "ppsim_runs",
		Description: "List stored simulation runs, most recent first",
	}, s.handlePpsimRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "ppsim_run_summary",
		Description: "Summarize a stored run: final population, patch counts and tracked cells",
	}, s.handlePpsimRunSummary)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "ppsim_export",
		Description: "Export a stored run and its results to a checksummed archive",
	}, s.handlePpsimExport)
}

// registerResources registers MCP resources for auto-loading into context.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         recentRunsURI,
		Name:        "ppsim-recent-runs",
		Description: "The most recent simulation runs and their status.",
		MIMEType:    "text/markdown",
	}, s.handleRecentRunsResource)
}

// handleRecentRunsResource renders the latest runs as a markdown table.
func (s *Server) handleRecentRunsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	runs, err := s.store.ListRuns(ctx, store.RunFilter{Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Recent simulation runs\n\n")
	if len(runs) == 0 {
		sb.WriteString("No runs yet. Start one with `ppsim_run`.\n")
	} else {
		sb.WriteString("| ID | Description | Replicate | Seed | Status | Steps |\n")
		sb.WriteString("|----|-------------|-----------|------|--------|-------|\n")
		for _, r := range runs {
			fmt.Fprintf(&sb, "| %s | %s | %s | %d | %s | %d |\n",
				r.ID, sanitize.MarkdownCell(r.Description), sanitize.MarkdownCell(r.Replicate), r.Seed, r.Status, r.Steps)
		}
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      recentRunsURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// handlePpsimRun implements the ppsim_run tool.
func (s *Server) handlePpsimRun(ctx context.Context, req *sdk.CallToolRequest, args PpsimRunInput) (_ *sdk.CallToolResult, out PpsimRunOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("ppsim_run", start, retErr, out.RunID, sanitizeToolParams(map[string]any{
			"seed": args.Seed, "hours": args.Hours, "description": args.Description,
			"replicate": args.Replicate, "tracking_hours": args.TrackingHours,
			"patch_stats_hours": args.PatchStatsHours,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "ppsim_run"); err != nil {
		return nil, PpsimRunOutput{}, err
	}
	if !s.runMu.TryLock() {
		return nil, PpsimRunOutput{}, errRunInProgress
	}
	defer s.runMu.Unlock()

	cfg, err := s.base.Clone()
	if err != nil {
		return nil, PpsimRunOutput{}, fmt.Errorf("failed to copy configuration: %w", err)
	}
	if args.Seed != 0 {
		cfg.Experiment.Seed = args.Seed
	}
	if args.Hours > 0 {
		cfg.Simulation.Hours = args.Hours
	}
	if args.Description != "" {
		cfg.Experiment.Description = sanitize.Label(args.Description)
	}
	if args.Replicate != "" {
		cfg.Experiment.Replicate = sanitize.Label(args.Replicate)
	}
	if args.TrackingHours != "" {
		cfg.Simulation.TrackingEnabled = true
		cfg.Simulation.TrackingHours = args.TrackingHours
	}
	if args.PatchStatsHours != "" {
		cfg.Simulation.PatchStatsEnabled = true
		cfg.Simulation.PatchStatsHours = args.PatchStatsHours
	}

	runner, err := sim.New(ctx, cfg, sim.Options{Logger: s.logger, Store: s.store})
	if err != nil {
		return nil, PpsimRunOutput{}, fmt.Errorf("failed to prepare run: %w", err)
	}
	defer runner.Close()
	out.RunID = runner.ID

	res, err := runner.Run(ctx)
	if res == nil {
		return nil, out, err
	}

	out = PpsimRunOutput{
		RunID:      res.RunID,
		Status:     string(res.Status),
		Steps:      res.Steps,
		Hours:      res.Hours,
		ResultsDir: res.ResultsDir,
		DurationMs: res.Duration.Milliseconds(),
		Population: populationItems(res.Population),
	}
	if err != nil {
		out.Message = fmt.Sprintf("Run %s %s after %v simulated hours: %v", res.RunID, res.Status, res.Hours, err)
		return nil, out, err
	}
	out.Message = fmt.Sprintf("Run %s completed %v simulated hours in %d steps; results in %s",
		res.RunID, res.Hours, res.Steps, res.ResultsDir)
	return nil, out, nil
}

// handlePpsimRuns implements the ppsim_runs tool.
func (s *Server) handlePpsimRuns(ctx context.Context, req *sdk.CallToolRequest, args PpsimRunsInput) (_ *sdk.CallToolResult, _ PpsimRunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("ppsim_runs", start, retErr, "", sanitizeToolParams(map[string]any{
			"description": args.Description, "status": args.Status, "limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "ppsim_runs"); err != nil {
		return nil, PpsimRunsOutput{}, err
	}

	status := models.RunStatus(args.Status)
	if status != "" && !status.Valid() {
		return nil, PpsimRunsOutput{}, fmt.Errorf("invalid status %q (valid: running, completed, failed, cancelled)", args.Status)
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}

	runs, err := s.store.ListRuns(ctx, store.RunFilter{
		Description: args.Description,
		Status:      status,
		Limit:       limit,
	})
	if err != nil {
		return nil, PpsimRunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}

	items := make([]RunListItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, runListItem(r))
	}
	return nil, PpsimRunsOutput{Runs: items, Count: len(items)}, nil
}

// handlePpsimRunSummary implements the ppsim_run_summary tool.
func (s *Server) handlePpsimRunSummary(ctx context.Context, req *sdk.CallToolRequest, args PpsimRunSummaryInput) (_ *sdk.CallToolResult, _ PpsimRunSummaryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("ppsim_run_summary", start, retErr, args.RunID, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "ppsim_run_summary"); err != nil {
		return nil, PpsimRunSummaryOutput{}, err
	}
	if args.RunID == "" {
		return nil, PpsimRunSummaryOutput{}, fmt.Errorf("run_id is required")
	}

	summary, err := store.Summarize(ctx, s.store, args.RunID)
	if err != nil {
		return nil, PpsimRunSummaryOutput{}, fmt.Errorf("failed to summarize run %s: %w", args.RunID, err)
	}

	out := PpsimRunSummaryOutput{
		Run:          runListItem(summary.Run),
		TrackRecords: summary.TrackRecords,
		Patches:      make([]PatchItem, 0, len(summary.Patches)),
	}
	for _, sm := range summary.FinalPopulation {
		out.FinalPopulation = append(out.FinalPopulation, PopulationItem{
			Class:     sm.Class,
			State:     tissue.State(sm.State).String(),
			StateCode: sm.State,
			Count:     sm.Count,
		})
	}
	for _, p := range summary.Patches {
		out.Patches = append(out.Patches, PatchItem{Hour: p.Hour, Total: p.Total, InPatch: p.InPatch})
	}
	return nil, out, nil
}

// handlePpsimExport implements the ppsim_export tool.
func (s *Server) handlePpsimExport(ctx context.Context, req *sdk.CallToolRequest, args PpsimExportInput) (_ *sdk.CallToolResult, _ PpsimExportOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("ppsim_export", start, retErr, args.RunID, sanitizeToolParams(map[string]any{
			"output_path": args.OutputPath,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "ppsim_export"); err != nil {
		return nil, PpsimExportOutput{}, err
	}
	if args.RunID == "" {
		return nil, PpsimExportOutput{}, fmt.Errorf("run_id is required")
	}

	outputPath := args.OutputPath
	if outputPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, PpsimExportOutput{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		outputPath = archive.DefaultPath(filepath.Join(home, constants.GlobalDirName, constants.ArchivesDirName), args.RunID)
	} else if err := pathutil.ValidateArchivePath(outputPath, s.base.Experiment.ResultsDir); err != nil {
		return nil, PpsimExportOutput{}, fmt.Errorf("archive path rejected: %w", err)
	}

	header, err := archive.Export(ctx, s.store, args.RunID, outputPath)
	if err != nil {
		return nil, PpsimExportOutput{}, fmt.Errorf("export failed: %w", err)
	}

	var sizeBytes int64
	if info, err := os.Stat(outputPath); err == nil {
		sizeBytes = info.Size()
	}

	return nil, PpsimExportOutput{
		Path:      outputPath,
		Checksum:  header.Checksum,
		Tracks:    header.Tracks,
		Patches:   header.Patches,
		Samples:   header.Samples,
		SizeBytes: sizeBytes,
		Message: fmt.Sprintf("Exported run %s: %d tracks, %d patch positions, %d population samples → %s",
			args.RunID, header.Tracks, header.Patches, header.Samples, outputPath),
	}, nil
}

func runListItem(r models.RunInfo) RunListItem {
	return RunListItem{
		ID:          r.ID,
		Description: r.Description,
		Replicate:   r.Replicate,
		Seed:        r.Seed,
		Status:      string(r.Status),
		Hours:       r.Hours,
		Steps:       r.Steps,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Error:       r.Error,
	}
}

func populationItems(counts []tissue.PopulationCount) []PopulationItem {
	items := make([]PopulationItem, 0, len(counts))
	for _, pc := range counts {
		items = append(items, PopulationItem{
			Class:     pc.Class,
			State:     pc.State.String(),
			StateCode: int(pc.State),
			Count:     pc.Count,
		})
	}
	return items
}
