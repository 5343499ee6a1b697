package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gridbook/internal/sheets"
	"github.com/mesh-intelligence/gridbook/internal/transfer"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// parseFilterFlag reads a --filter value of the form column:operator[:value].
// The value keeps any further colons.
func parseFilterFlag(raw string) (types.FilterClause, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 {
		return types.FilterClause{}, types.NewFieldError("filter", "%q is not column:operator[:value]", raw)
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return types.FilterClause{}, types.NewFieldError("filter", "%q: column must be an integer", raw)
	}
	op, err := types.ParseOperator(parts[1])
	if err != nil {
		return types.FilterClause{}, err
	}
	clause := types.FilterClause{Column: col, Operator: op}
	if len(parts) == 3 {
		clause.Value = parts[2]
	}
	return clause, nil
}

func newQueryCmd(a *app) *cobra.Command {
	var (
		sheetID  int64
		page     int
		pageSize int
		sortCol  int
		sortDir  string
		filters  []string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter, sort and page through the rows of a sheet",
		Example: `  gridbook query --sheet 1 --sort-col 1 --sort-dir desc
  gridbook query --filter 1:gte:100 --filter 0:contains:ali`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := types.DefaultQueryParams()
			if cmd.Flags().Changed("sheet") {
				p.SheetID = &sheetID
			}
			p.Page = page
			p.PageSize = pageSize
			if cmd.Flags().Changed("sort-col") {
				p.SortColumn = &sortCol
			}
			dir, err := types.ParseSortDirection(sortDir)
			if err != nil {
				return err
			}
			p.SortDirection = dir
			for _, raw := range filters {
				clause, err := parseFilterFlag(raw)
				if err != nil {
					return err
				}
				p.Filters = append(p.Filters, clause)
			}
			if err := p.Validate(); err != nil {
				return err
			}

			return a.withService(cmd.Context(), func(svc *sheets.Service) error {
				res, err := svc.Query(cmd.Context(), p)
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), res, func(w io.Writer) error {
					return printRows(w, res)
				})
			})
		},
	}
	f := cmd.Flags()
	f.Int64Var(&sheetID, "sheet", 0, "sheet id (default: earliest sheet)")
	f.IntVar(&page, "page", types.DefaultPage, "page number, from 1")
	f.IntVar(&pageSize, "page-size", types.DefaultPageSize, "rows per page, 0 for all")
	f.IntVar(&sortCol, "sort-col", 0, "zero-based column to sort by")
	f.StringVar(&sortDir, "sort-dir", string(types.SortAsc), "asc or desc")
	f.StringArrayVar(&filters, "filter", nil, "column:operator[:value], repeatable")
	return cmd
}

func printRows(w io.Writer, res *types.QueryResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "ROW")
	for _, label := range transfer.ColumnLabels(res.ColCount) {
		fmt.Fprint(tw, "\t", label)
	}
	fmt.Fprintln(tw)
	for _, row := range res.Rows {
		fmt.Fprint(tw, row.RowIndex+1)
		for _, v := range row.Values {
			fmt.Fprint(tw, "\t", v)
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s: page %d, %d of %d matching rows\n",
		res.SheetName, res.Page, len(res.Rows), res.TotalRows)
	return err
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <sheet-id> <row> <col> [value]",
		Short: "Write one cell; omit the value to clear it",
		Long:  "Row and column are zero-based. The value is checked against the column's\nrule. Cells outside the sheet are ignored.",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSheetID(args[0])
			if err != nil {
				return err
			}
			row, err := strconv.Atoi(args[1])
			if err != nil {
				return types.NewFieldError("row", "%q is not an integer", args[1])
			}
			col, err := strconv.Atoi(args[2])
			if err != nil {
				return types.NewFieldError("col", "%q is not an integer", args[2])
			}
			var value any
			if len(args) == 4 {
				value = args[3]
			}

			return a.withService(cmd.Context(), func(svc *sheets.Service) error {
				res, err := svc.WriteSheetData(cmd.Context(), types.WriteRequest{
					SheetID: id,
					Updates: []types.CellUpdate{{Row: row, Col: col, Value: value}},
				})
				if err != nil {
					return err
				}
				return a.emit(cmd.OutOrStdout(), res, func(w io.Writer) error {
					return printWrite(w, res)
				})
			})
		},
	}
}
