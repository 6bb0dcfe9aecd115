package main

import (
	"fmt"

	"github.com/kalden/ppsim/internal/logging"
	"github.com/kalden/ppsim/internal/mcp"
	"github.com/kalden/ppsim/internal/store"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve simulation tools over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools: ppsim_run, ppsim_runs, ppsim_run_summary, ppsim_export.
Runs start from the --config experiment; tool arguments override the seed,
hours, description, replicate and output windows of a copy.
Tool calls are audited to ~/.ppsim/audit.jsonl.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			auditDir, err := store.EnsureGlobalDir()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: audit log disabled: %v\n", err)
				auditDir = ""
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:       "ppsim",
				Version:    version,
				Experiment: cfg,
				AuditDir:   auditDir,
				Logger:     logging.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format),
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			return server.Run(cmd.Context())
		},
	}
}
