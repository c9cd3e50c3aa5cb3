package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"repairdesk/internal/dataset"
	"repairdesk/internal/logger"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the whole dataset as one JSON document",
	Long: `Write every collection and the privacy PIN as a single JSON document,
the same format that is uploaded to Google Drive.`,
	Example: `  repairdesk export --out backup.json`,
	Args:    cobra.NoArgs,
	RunE:    runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore collections from a JSON document",
	Long: `Restore collections from an exported document read from --file or stdin.

Each section present in the document replaces the matching collection;
sections that are missing or null are left alone. A section that fails to
decode or save is reported and the remaining sections are still applied.`,
	Example: `  repairdesk import --file backup.json`,
	Args:    cobra.NoArgs,
	RunE:    runImport,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every record",
	Long: `Delete every collection and restart identifier sequences. Settings and
the Drive session are kept.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd, resetCmd)

	exportCmd.Flags().StringP("out", "o", "", "Output file (default: stdout)")
	importCmd.Flags().StringP("file", "f", "", "Document to import (default: stdin)")
	resetCmd.Flags().Bool("yes", false, "Confirm deleting all records")
}

func runExport(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		data, err := a.codec.Export(ctx)
		if err != nil {
			return fmt.Errorf("failed to export dataset: %w", err)
		}
		if out == "" {
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(out, data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}

		log := logger.WithComponent("export")
		log.Info().Str("file", out).Int("bytes", len(data)).Msg("Dataset exported")
		return nil
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		res, err := a.codec.Import(ctx, data)
		if err != nil {
			return fmt.Errorf("failed to import dataset: %w", err)
		}
		printImportResult(cmd, res)
		return res.Err()
	})
}

func printImportResult(cmd *cobra.Command, res *dataset.ImportResult) {
	w := cmd.OutOrStdout()
	if len(res.Applied) > 0 {
		fmt.Fprintf(w, "Restored: %s\n", strings.Join(res.Applied, ", "))
	} else {
		fmt.Fprintln(w, "Nothing restored")
	}
	failed := make([]string, 0, len(res.Failed))
	for k := range res.Failed {
		failed = append(failed, k)
	}
	sort.Strings(failed)
	for _, k := range failed {
		fmt.Fprintf(w, "Failed:   %s: %v\n", k, res.Failed[k])
	}
}

func runReset(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		return fmt.Errorf("refusing to delete all records without --yes")
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.store.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear records: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All records deleted")
		return nil
	})
}
