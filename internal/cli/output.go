package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// emit writes v as indented JSON in --json mode and calls human otherwise.
func (a *app) emit(w io.Writer, v any, human func(w io.Writer) error) error {
	if a.flags.jsonMode {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
	return human(w)
}

func printSheets(w io.Writer, list []types.SheetSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	fmt.Fprintln(tw, "--\t----")
	for _, s := range list {
		fmt.Fprintf(tw, "%d\t%s\n", s.ID, s.Name)
	}
	return tw.Flush()
}

func printSheet(w io.Writer, s *types.Sheet) error {
	_, err := fmt.Fprintf(w, "sheet %d %q: %d rows x %d cols\n", s.ID, s.Name, s.RowCount, s.ColCount)
	return err
}

func printWrite(w io.Writer, res *types.WriteResult) error {
	_, err := fmt.Fprintf(w, "sheet %d: %d cells updated, now %d rows x %d cols\n",
		res.SheetID, res.UpdatedCells, res.RowCount, res.ColCount)
	return err
}
