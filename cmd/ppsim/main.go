package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/kalden/ppsim/internal/config"
	"github.com/kalden/ppsim/internal/store"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ppsim",
		Short: "Agent-based simulation of Peyer's Patch formation",
		Long: `ppsim simulates the early development of Peyer's Patches in the
embryonic gut: LTin and LTi cells migrate over a growing tract of
stromal LTo organizers, adhere, and aggregate into patches.

Each run writes CSV/XML tracking and patch statistics under the results
directory and records its summary in a SQLite results database.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Experiment configuration file (YAML)")
	rootCmd.PersistentFlags().String("db", "", "Results database path (overrides experiment.database)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newValidateCmd(),
		newConfigCmd(),
		newRunsCmd(),
		newExportCmd(),
		newImportCmd(),
		newVerifyCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

// loadConfig builds the effective experiment from --config, the environment
// and --db.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Experiment.Database = db
	}
	return cfg, nil
}

// openStore opens the results database named by cfg. Commands that read
// stored runs need a database, so a disabled store is an error here.
func openStore(cfg *config.Config) (store.ResultStore, error) {
	path := cfg.DatabasePath()
	if path == "" {
		return nil, fmt.Errorf("results database disabled: set experiment.database or pass --db")
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	return s, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
