package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"repairdesk/internal/logger"
	"repairdesk/internal/sheets"
	"repairdesk/internal/spreadsheet"
	"repairdesk/internal/tabular"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Publish every collection to a Google Sheet",
	Long: `Write each collection to its own tab of a Google Sheet, replacing the
rows already there. Missing tabs are created with a formatted header row.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Target spreadsheet, shared with the service account`,
	Example: `  repairdesk sheets
  repairdesk sheets --sheet-url https://docs.google.com/spreadsheets/d/1AbC.../edit`,
	Args: cobra.NoArgs,
	RunE: runSheets,
}

var xlsxCmd = &cobra.Command{
	Use:     "xlsx",
	Short:   "Write every collection to an Excel workbook",
	Example: `  repairdesk xlsx --out records.xlsx`,
	Args:    cobra.NoArgs,
	RunE:    runXLSX,
}

func init() {
	rootCmd.AddCommand(sheetsCmd, xlsxCmd)

	sheetsCmd.Flags().String("sheet-url", "", "Google Sheets URL (default: GOOGLE_SHEET_URL)")
	xlsxCmd.Flags().StringP("out", "o", "", "Output .xlsx file")
	_ = xlsxCmd.MarkFlagRequired("out")
}

func runSheets(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("sheets-export")
	sheetURL, _ := cmd.Flags().GetString("sheet-url")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if sheetURL == "" {
			sheetURL = a.cfg.GoogleSheetURL
		}
		if sheetURL == "" {
			return fmt.Errorf("GOOGLE_SHEET_URL environment variable or --sheet-url is required")
		}
		creds, err := a.cfg.ServiceAccountKey()
		if err != nil {
			return err
		}

		svc, err := sheets.NewSheetsService(ctx, sheetURL, creds)
		if err != nil {
			return fmt.Errorf("failed to initialize Google Sheets service: %w", err)
		}

		doc, err := a.codec.Snapshot(ctx)
		if err != nil {
			return err
		}
		tables := tabular.Tables(doc)
		if err := svc.WriteTables(ctx, tables); err != nil {
			return fmt.Errorf("failed to write sheets: %w", err)
		}
		if err := verifyHeaders(ctx, svc, tables); err != nil {
			return fmt.Errorf("sheet validation failed: %w", err)
		}

		log.Info().Str("spreadsheet_id", svc.SpreadsheetID()).Int("sheets", len(tables)).Msg("Collections published")
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d sheets to %s\n", len(tables), svc.SpreadsheetID())
		return nil
	})
}

// verifyHeaders reads back the header row of every written sheet.
func verifyHeaders(ctx context.Context, svc *sheets.Service, tables []tabular.Table) error {
	const op = "verifyHeaders"

	for _, t := range tables {
		rng := fmt.Sprintf("'%s'!A1:%s1", t.Name, tabular.ColumnName(len(t.Headers)-1))
		rows, err := svc.ReadRange(ctx, rng)
		if err != nil {
			return fmt.Errorf("%s: sheet '%s' is not accessible: %w", op, t.Name, err)
		}
		if len(rows) == 0 || len(rows[0]) != len(t.Headers) {
			return fmt.Errorf("%s: sheet '%s' has an unexpected header row", op, t.Name)
		}
	}
	return nil
}

func runXLSX(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		doc, err := a.codec.Snapshot(ctx)
		if err != nil {
			return err
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		if err := spreadsheet.Write(f, tabular.Tables(doc)); err != nil {
			f.Close()
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
		return nil
	})
}
