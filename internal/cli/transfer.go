package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gridbook/internal/sheets"
	"github.com/mesh-intelligence/gridbook/internal/transfer"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		sheetID       int64
		includeHeader bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace a sheet's contents with a CSV or XLSX file",
		Long:  "The file is parsed and checked against the import limits, then written\nthrough the column rules in one transaction. The sheet is resized to fit.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := transfer.FormatOf(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			table, err := transfer.Parse(format, f, includeHeader, a.settings.Import)
			if err != nil {
				return err
			}

			return a.withService(cmd.Context(), func(svc *sheets.Service) error {
				var id *int64
				if cmd.Flags().Changed("sheet") {
					id = &sheetID
				}
				data, _, err := svc.FetchSheet(cmd.Context(), id)
				if err != nil {
					return err
				}
				preview := transfer.NewPreview(data.SheetID, args[0], includeHeader, table)
				res, err := svc.ReplaceSheetData(cmd.Context(), data.SheetID, preview.Matrix())
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), res, func(w io.Writer) error {
					return printWrite(w, res)
				})
			})
		},
	}
	cmd.Flags().Int64Var(&sheetID, "sheet", 0, "target sheet id (default: earliest sheet)")
	cmd.Flags().BoolVar(&includeHeader, "header", true, "treat the first row as a header and keep it as row 1")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var sheetID int64
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write a sheet to a .csv or .xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := transfer.FormatOf(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd.Context(), func(svc *sheets.Service) error {
				var id *int64
				if cmd.Flags().Changed("sheet") {
					id = &sheetID
				}
				data, _, err := svc.FetchSheet(cmd.Context(), id)
				if err != nil {
					return err
				}
				if err := writeExport(args[0], format, data); err != nil {
					return err
				}
				summary := map[string]any{
					"sheetId": data.SheetID,
					"file":    args[0],
					"rows":    data.RowCount,
					"cols":    data.ColCount,
				}
				return a.emit(cmd.OutOrStdout(), summary, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "exported sheet %d %q to %s\n", data.SheetID, data.SheetName, args[0])
					return err
				})
			})
		},
	}
	cmd.Flags().Int64Var(&sheetID, "sheet", 0, "sheet id (default: earliest sheet)")
	return cmd
}

func writeExport(path string, format transfer.Format, data *types.SheetData) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close export file: %w", cerr)
		}
	}()

	if format == transfer.FormatXLSX {
		return transfer.WriteXLSX(f, data)
	}
	return transfer.WriteCSV(f, data)
}
