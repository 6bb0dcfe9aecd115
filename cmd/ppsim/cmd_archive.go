package main

import (
	"fmt"
	"os"

	"github.com/kalden/ppsim/internal/archive"
	"github.com/kalden/ppsim/internal/pathutil"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a recorded run to an archive file",
		Long: `Export a run and all of its stored results to a compressed archive.

Default location: ~/.ppsim/archives/<run-id>.ppsim.gz
Custom paths must be under ~/.ppsim/archives, <results>/archives, or the
current directory.

Examples:
  ppsim export 3f1c...                          # Default location
  ppsim export 3f1c... -o run-3f1c.ppsim.gz     # Specific file`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if outputPath == "" {
				dirs, err := pathutil.ArchiveDirs(cfg.Experiment.ResultsDir)
				if err != nil {
					return fmt.Errorf("failed to determine archive directories: %w", err)
				}
				outputPath = archive.DefaultPath(dirs[0], runID)
			} else {
				var extra []string
				if wd, err := os.Getwd(); err == nil {
					extra = append(extra, wd)
				}
				if err := pathutil.ValidateArchivePath(outputPath, cfg.Experiment.ResultsDir, extra...); err != nil {
					return fmt.Errorf("archive path rejected: %w", err)
				}
			}

			results, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer results.Close()

			header, err := archive.Export(cmd.Context(), results, runID, outputPath)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			var sizeBytes int64
			if info, err := os.Stat(outputPath); err == nil {
				sizeBytes = info.Size()
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"path":       outputPath,
					"run_id":     header.RunID,
					"checksum":   header.Checksum,
					"tracks":     header.Tracks,
					"patches":    header.Patches,
					"samples":    header.Samples,
					"size_bytes": sizeBytes,
				})
			}

			w := cmd.OutOrStdout()
			printer.Fprintf(w, "Archive created: %d tracks, %d patch positions, %d population samples (%s)\n",
				header.Tracks, header.Patches, header.Samples, formatBytes(sizeBytes))
			fmt.Fprintf(w, "  Path: %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file path (default: ~/.ppsim/archives/<run-id>.ppsim.gz)")

	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a run archive into the results database",
		Long: `Import a run archive into the results database. A run with the same
ID is replaced.

Examples:
  ppsim import ~/.ppsim/archives/3f1c....ppsim.gz
  ppsim import run.ppsim.gz --db other.db`,
		Args: cobra.ExactArgs(1),
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

			exp, err := archive.Import(cmd.Context(), results, args[0])
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"run_id":  exp.Run.ID,
					"tracks":  len(exp.Tracks),
					"patches": len(exp.Patches),
					"samples": len(exp.Population),
				})
			}
			printer.Fprintf(cmd.OutOrStdout(), "Imported run %s: %d tracks, %d patch positions, %d population samples\n",
				exp.Run.ID, len(exp.Tracks), len(exp.Patches), len(exp.Population))
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify archive file integrity",
		Long: `Verify the integrity of a run archive by checking its SHA-256 checksum.

Examples:
  ppsim verify ~/.ppsim/archives/3f1c....ppsim.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]
			jsonOut, _ := cmd.Flags().GetBool("json")
			w := cmd.OutOrStdout()

			header, err := archive.Verify(filePath)
			if err != nil {
				if jsonOut {
					if werr := writeJSON(w, map[string]interface{}{
						"file":    filePath,
						"valid":   false,
						"error":   err.Error(),
						"message": "Checksum verification FAILED",
					}); werr != nil {
						return werr
					}
					return fmt.Errorf("verification failed: %w", err)
				}
				fmt.Fprintf(w, "FAILED: %v\n", err)
				fmt.Fprintf(w, "  File: %s\n", filePath)
				return fmt.Errorf("verification failed: %w", err)
			}

			if jsonOut {
				return writeJSON(w, map[string]interface{}{
					"file":    filePath,
					"version": header.Version,
					"run_id":  header.RunID,
					"valid":   true,
					"message": "Checksum OK",
				})
			}
			fmt.Fprintf(w, "OK: checksum verified\n")
			fmt.Fprintf(w, "  File: %s\n", filePath)
			fmt.Fprintf(w, "  Run:  %s (%s, replicate %s)\n", header.RunID, header.Description, header.Replicate)
			return nil
		},
	}
}
