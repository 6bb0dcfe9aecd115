package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the experiment configuration",
		Long: `Validate the experiment configuration without running it.

This command checks for:
  - A step length that divides one hour
  - Tract dimensions that fit at least one grid cell
  - Known expressor kinds and rate curves
  - Well-formed, non-overlapping tracking windows and patch hours

Examples:
  ppsim validate
  ppsim validate --config experiment.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err == nil {
				err = cfg.Validate()
			}

			if jsonOut {
				out := map[string]interface{}{"valid": err == nil}
				if err != nil {
					out["error"] = err.Error()
				} else {
					cols, rows := cfg.Environment.GridSize()
					out["description"] = cfg.Experiment.Description
					out["steps"] = cfg.Simulation.TotalSteps()
					out["grid"] = []int{cols, rows}
				}
				if werr := writeJSON(cmd.OutOrStdout(), out); werr != nil {
					return werr
				}
				return err
			}

			if err != nil {
				return err
			}
			cols, rows := cfg.Environment.GridSize()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "OK: configuration valid\n")
			printer.Fprintf(w, "  Experiment: %s (replicate %s, seed %d)\n",
				cfg.Experiment.Description, cfg.Experiment.Replicate, cfg.Experiment.Seed)
			printer.Fprintf(w, "  Steps:      %d (%v hours at %vs)\n",
				cfg.Simulation.TotalSteps(), cfg.Simulation.Hours, cfg.Simulation.SecondsPerStep)
			printer.Fprintf(w, "  Grid:       %d x %d\n", cols, rows)
			return nil
		},
	}
}
