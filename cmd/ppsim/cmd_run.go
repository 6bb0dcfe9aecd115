package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kalden/ppsim/internal/logging"
	"github.com/kalden/ppsim/internal/sim"
	"github.com/kalden/ppsim/internal/telemetry"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation",
		Long: `Run one simulation replicate with the experiment configuration.

Results are written to <results>/<description>/Results/<replicate>/ and the
run is recorded in the results database. Ctrl+C stops the run after the
current tick; the run is recorded as cancelled.

Examples:
  ppsim run                                  # Built-in baseline experiment
  ppsim run --config experiment.yaml         # Experiment from file
  ppsim run --hours 24 --seed 7              # Short run with a fixed seed
  ppsim run --results /tmp/pp --no-store     # Files only, no database`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			noStore, _ := cmd.Flags().GetBool("no-store")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("hours") {
				cfg.Simulation.Hours, _ = cmd.Flags().GetFloat64("hours")
			}
			if cmd.Flags().Changed("seed") {
				cfg.Experiment.Seed, _ = cmd.Flags().GetUint64("seed")
			}
			if cmd.Flags().Changed("results") {
				cfg.Experiment.ResultsDir, _ = cmd.Flags().GetString("results")
			}
			if cmd.Flags().Changed("replicate") {
				cfg.Experiment.Replicate, _ = cmd.Flags().GetString("replicate")
			}

			ctx := cmd.Context()
			stopNotice := context.AfterFunc(ctx, func() {
				fmt.Fprintln(cmd.ErrOrStderr(), "interrupt: stopping after the current tick")
			})
			defer stopNotice()

			shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
			if err != nil {
				return fmt.Errorf("failed to set up tracing: %w", err)
			}
			defer func() {
				if err := shutdown(context.WithoutCancel(ctx)); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to flush traces: %v\n", err)
				}
			}()

			logger := logging.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			runner, err := sim.New(ctx, cfg, sim.Options{Logger: logger, NoStore: noStore})
			if err != nil {
				return err
			}
			defer runner.Close()

			res, runErr := runner.Run(ctx)
			if err := runner.Close(); err != nil && runErr == nil {
				runErr = err
			}
			if res == nil {
				return runErr
			}

			if jsonOut {
				out := map[string]interface{}{
					"run_id":      res.RunID,
					"status":      res.Status,
					"steps":       res.Steps,
					"hours":       res.Hours,
					"results_dir": res.ResultsDir,
					"duration_ms": res.Duration.Milliseconds(),
					"population":  populationFromCounts(res.Population),
				}
				if runErr != nil {
					out["error"] = runErr.Error()
				}
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
				return runErr
			}

			w := cmd.OutOrStdout()
			printer.Fprintf(w, "Run %s %s: %d steps (%.1f simulated hours) in %v\n",
				res.RunID, res.Status, res.Steps, res.Hours, res.Duration.Round(time.Millisecond))
			fmt.Fprintf(w, "  Results: %s\n", res.ResultsDir)
			printPopulation(w, populationFromCounts(res.Population))
			if errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("run interrupted")
			}
			return runErr
		},
	}

	cmd.Flags().Float64("hours", 0, "Simulated hours (overrides simulation.hours)")
	cmd.Flags().Uint64("seed", 0, "Random seed (overrides experiment.seed)")
	cmd.Flags().String("results", "", "Results directory (overrides experiment.results_dir)")
	cmd.Flags().String("replicate", "", "Replicate label (overrides experiment.replicate)")
	cmd.Flags().Bool("no-store", false, "Write result files only, without recording the run")

	return cmd
}
