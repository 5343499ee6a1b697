package transfer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// Content types for exports.
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteCSV writes a header row of column labels followed by the grid.
func WriteCSV(w io.Writer, data *types.SheetData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ColumnLabels(data.ColCount)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(data.Cells); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with one worksheet named after the sheet.
// Row 1 holds column labels; grid row i lands on worksheet row i+2.
func WriteXLSX(w io.Writer, data *types.SheetData) error {
	f := excelize.NewFile()
	defer f.Close()

	name := SafeWorksheetName(data.SheetName)
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("name worksheet: %w", err)
	}

	header := make([]any, data.ColCount)
	for i, label := range ColumnLabels(data.ColCount) {
		header[i] = label
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for r, row := range data.Cells {
		values := make([]any, len(row))
		for c, v := range row {
			values[c] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
