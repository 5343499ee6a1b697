package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gridbook/internal/sheets"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

func newSheetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "List and manage sheets",
	}
	cmd.AddCommand(
		newSheetsListCmd(a),
		newSheetsCreateCmd(a),
		newSheetsRenameCmd(a),
		newSheetsResizeCmd(a),
	)
	return cmd
}

// parseSheetID reads a sheet id argument.
func parseSheetID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, types.NewFieldError("sheetId", "%q is not a sheet id", raw)
	}
	return id, nil
}

func newSheetsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sheets in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), func(svc *sheets.Service) error {
				list, err := svc.ListSheets(cmd.Context())
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), map[string]any{"sheets": list}, func(w io.Writer) error {
					return printSheets(w, list)
				})
			})
		},
	}
}

func newSheetsCreateCmd(a *app) *cobra.Command {
	var rows, cols int
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), func(svc *sheets.Service) error {
				res, err := svc.CreateSheet(cmd.Context(), types.CreateSheetRequest{
					Name:     args[0],
					RowCount: rows,
					ColCount: cols,
				})
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), res, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "created sheet %d %q: %d rows x %d cols\n",
						res.SheetID, res.Name, res.RowCount, res.ColCount)
					return err
				})
			})
		},
	}
	cmd.Flags().IntVar(&rows, "rows", types.DefaultRowCount, "row count")
	cmd.Flags().IntVar(&cols, "cols", types.DefaultColCount, "column count")
	return cmd
}

func newSheetsRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a sheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSheetID(args[0])
			if err != nil {
				return err
			}
			return a.withService(cmd.Context(), func(svc *sheets.Service) error {
				sheet, _, err := svc.RenameSheet(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), sheet, func(w io.Writer) error {
					return printSheet(w, sheet)
				})
			})
		},
	}
}

func newSheetsResizeCmd(a *app) *cobra.Command {
	var rows, cols int
	cmd := &cobra.Command{
		Use:   "resize <id>",
		Short: "Change the visible dimensions of a sheet",
		Long:  "Resize never deletes cells. Cells outside the new bounds are hidden and\nreappear when the sheet grows again.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSheetID(args[0])
			if err != nil {
				return err
			}
			var rowPtr, colPtr *int
			if cmd.Flags().Changed("rows") {
				rowPtr = &rows
			}
			if cmd.Flags().Changed("cols") {
				colPtr = &cols
			}
			if rowPtr == nil && colPtr == nil {
				return types.NewFieldError("", "pass --rows, --cols or both")
			}
			return a.withService(cmd.Context(), func(svc *sheets.Service) error {
				sheet, err := svc.ResizeSheet(cmd.Context(), id, rowPtr, colPtr)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), sheet, func(w io.Writer) error {
					return printSheet(w, sheet)
				})
			})
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 0, "new row count")
	cmd.Flags().IntVar(&cols, "cols", 0, "new column count")
	return cmd
}
