package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/kalden/ppsim/internal/models"
	"github.com/kalden/ppsim/internal/store"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded simulation runs",
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
	)

	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, most recent first",
		Long: `List recorded runs, most recent first.

Examples:
  ppsim runs list
  ppsim runs list --description baseline --status completed
  ppsim runs list --limit 5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			description, _ := cmd.Flags().GetString("description")
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")

			filter := store.RunFilter{
				Description: description,
				Status:      models.RunStatus(status),
				Limit:       limit,
			}
			if status != "" && !filter.Status.Valid() {
				return fmt.Errorf("invalid status: %s (must be running, completed, failed, or cancelled)", status)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			results, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer results.Close()

			runs, err := results.ListRuns(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if jsonOut {
				if runs == nil {
					runs = []models.RunInfo{}
				}
				for i := range runs {
					runs[i].Config = ""
				}
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}

			w := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDESCRIPTION\tREPLICATE\tSEED\tSTATUS\tSTEPS\tSTARTED")
			for _, r := range runs {
				printer.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
					r.ID, r.Description, r.Replicate, r.Seed, r.Status, r.Steps,
					r.StartedAt.Local().Format("2006-01-02 15:04"))
			}
			tw.Flush()
			fmt.Fprintf(w, "Total: %d runs\n", len(runs))
			return nil
		},
	}

	cmd.Flags().String("description", "", "Only runs of this experiment description")
	cmd.Flags().String("status", "", "Only runs in this status")
	cmd.Flags().Int("limit", 20, "Maximum number of runs (0 for all)")

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Summarize one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			results, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer results.Close()

			summary, err := store.Summarize(cmd.Context(), results, args[0])
			if err != nil {
				return fmt.Errorf("failed to summarize run: %w", err)
			}

			if jsonOut {
				summary.Run.Config = ""
				return writeJSON(cmd.OutOrStdout(), summary)
			}

			run := summary.Run
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run %s\n", run.ID)
			fmt.Fprintf(w, "  Experiment: %s (replicate %s)\n", run.Description, run.Replicate)
			printer.Fprintf(w, "  Seed:       %d\n", run.Seed)
			fmt.Fprintf(w, "  Status:     %s\n", run.Status)
			if run.Error != "" {
				fmt.Fprintf(w, "  Error:      %s\n", run.Error)
			}
			printer.Fprintf(w, "  Steps:      %d of %v hours at %vs\n", run.Steps, run.Hours, run.SecondsPerStep)
			fmt.Fprintf(w, "  Started:    %s\n", run.StartedAt.Local().Format(time.RFC3339))
			if d := run.Duration(); d > 0 {
				fmt.Fprintf(w, "  Duration:   %v\n", d.Round(time.Millisecond))
			}
			if run.ResultsDir != "" {
				fmt.Fprintf(w, "  Results:    %s\n", run.ResultsDir)
			}

			if len(summary.TrackRecords) > 0 {
				printer.Fprintf(w, "  Tracks:     %d close, %d away\n",
					summary.TrackRecords[models.TableClose], summary.TrackRecords[models.TableAway])
			}
			for _, p := range summary.Patches {
				printer.Fprintf(w, "  Patches at hour %v: %d of %d LTi in a patch\n", p.Hour, p.InPatch, p.Total)
			}
			if len(summary.FinalPopulation) > 0 {
				fmt.Fprintf(w, "\nFinal population (hour %v):\n", summary.FinalPopulation[0].Hour)
				printPopulation(w, populationFromSamples(summary.FinalPopulation))
			}
			return nil
		},
	}
}
