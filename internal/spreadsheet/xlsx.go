// Package spreadsheet writes the dataset as an Excel workbook with one
// worksheet per collection.
package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"repairdesk/internal/logger"
	"repairdesk/internal/tabular"
)

const defaultSheet = "Sheet1"

// Write renders tables into a workbook and writes it to w.
func Write(w io.Writer, tables []tabular.Table) error {
	const op = "Write"

	log := logger.WithComponent("spreadsheet")

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6E6E6"}},
	})
	if err != nil {
		return fmt.Errorf("%s: failed to create header style: %w", op, err)
	}

	for i, t := range tables {
		if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("%s: failed to create sheet %s: %w", op, t.Name, err)
		}
		if err := writeTable(f, t, header); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if i == 0 {
			idx, _ := f.GetSheetIndex(t.Name)
			f.SetActiveSheet(idx)
		}
		log.Debug().Str("sheet", t.Name).Int("rows", len(t.Rows)).Msg("Sheet written")
	}

	if len(tables) > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("%s: failed to remove default sheet: %w", op, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("%s: failed to write workbook: %w", op, err)
	}
	return nil
}

func writeTable(f *excelize.File, t tabular.Table, headerStyle int) error {
	headers := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(t.Name, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write headers of %s: %w", t.Name, err)
	}
	if err := f.SetRowStyle(t.Name, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style headers of %s: %w", t.Name, err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, t.Name, err)
		}
	}

	if err := f.SetPanes(t.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header of %s: %w", t.Name, err)
	}
	return nil
}
