// Package query filters, sorts and paginates the materialized rows of a
// sheet using per-column typing rules.
package query

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/gridbook/internal/rules"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// Page is the output of Run.
type Page struct {
	Rows      []types.RowPayload
	TotalRows int
	Page      int
	PageSize  int
}

// Engine evaluates queries against materialized rows. It is safe for
// concurrent use.
type Engine struct {
	rules *rules.Table
}

// NewEngine returns an Engine using the given rule table.
func NewEngine(r *rules.Table) *Engine {
	return &Engine{rules: r}
}

// Run filters, then sorts, then paginates rows. colCount bounds filter and
// sort columns. rows is not modified.
func (e *Engine) Run(rows []types.RowPayload, colCount int, p types.QueryParams) Page {
	fold := cases.Fold()
	filtered := e.Filter(rows, colCount, p.Filters, fold)
	e.Sort(filtered, colCount, p.SortColumn, p.SortDirection, fold)
	pageRows, size := Paginate(filtered, p.Page, p.PageSize)
	return Page{
		Rows:      pageRows,
		TotalRows: len(filtered),
		Page:      p.Page,
		PageSize:  size,
	}
}

// Filter returns the rows that satisfy every clause, in input order.
func (e *Engine) Filter(rows []types.RowPayload, colCount int, filters []types.FilterClause, fold cases.Caser) []types.RowPayload {
	out := make([]types.RowPayload, 0, len(rows))
	for _, row := range rows {
		if e.matchesAll(row, colCount, filters, fold) {
			out = append(out, row)
		}
	}
	return out
}

func (e *Engine) matchesAll(row types.RowPayload, colCount int, filters []types.FilterClause, fold cases.Caser) bool {
	for _, f := range filters {
		if f.Column < 0 || f.Column >= colCount || f.Column >= len(row.Values) {
			return false
		}
		if !e.matches(row.Values[f.Column], f, fold) {
			return false
		}
	}
	return true
}

func (e *Engine) matches(cell string, f types.FilterClause, fold cases.Caser) bool {
	if f.Operator == types.OpContains {
		needle := fold.String(rules.Text(f.Value))
		return strings.Contains(fold.String(cell), needle)
	}

	rule := e.rules.Rule(f.Column)
	left := rules.ParseCell(rule, cell)
	right := rules.ParseTarget(rule, f.Value)

	switch f.Operator {
	case types.OpEq:
		return left.Equal(right)
	case types.OpNe:
		return !left.Equal(right)
	}

	if !left.Valid() || !right.Valid() {
		return false
	}
	c := left.Compare(right)
	switch f.Operator {
	case types.OpLt:
		return c < 0
	case types.OpLte:
		return c <= 0
	case types.OpGt:
		return c > 0
	case types.OpGte:
		return c >= 0
	}
	return false
}

// Sort orders rows in place by column col. A nil or out-of-range column
// keeps the current order. Number and date columns put unparseable cells
// last in both directions; text columns compare case-folded.
// The sort is stable.
func (e *Engine) Sort(rows []types.RowPayload, colCount int, col *int, dir types.SortDirection, fold cases.Caser) {
	if col == nil || *col < 0 || *col >= colCount {
		return
	}
	c := *col
	desc := dir == types.SortDesc
	rule := e.rules.Rule(c)

	if rule.Type == types.ColumnNumber || rule.Type == types.ColumnDate {
		keys := make(map[int]rules.Value, len(rows))
		for _, r := range rows {
			keys[r.RowIndex] = rules.ParseCell(rule, value(r, c))
		}
		slices.SortStableFunc(rows, func(a, b types.RowPayload) int {
			ka, kb := keys[a.RowIndex], keys[b.RowIndex]
			switch {
			case !ka.Valid() && !kb.Valid():
				return 0
			case !ka.Valid():
				return 1
			case !kb.Valid():
				return -1
			}
			if desc {
				return kb.Compare(ka)
			}
			return ka.Compare(kb)
		})
		return
	}

	keys := make(map[int]string, len(rows))
	for _, r := range rows {
		keys[r.RowIndex] = fold.String(value(r, c))
	}
	slices.SortStableFunc(rows, func(a, b types.RowPayload) int {
		if desc {
			return strings.Compare(keys[b.RowIndex], keys[a.RowIndex])
		}
		return strings.Compare(keys[a.RowIndex], keys[b.RowIndex])
	})
}

func value(r types.RowPayload, col int) string {
	if col < len(r.Values) {
		return r.Values[col]
	}
	return ""
}

// Paginate slices rows for the given 1-based page. A pageSize of zero
// returns all rows and reports the row count as the page size. Pages past
// the end are empty.
func Paginate(rows []types.RowPayload, page, pageSize int) ([]types.RowPayload, int) {
	if pageSize == 0 {
		return rows, len(rows)
	}
	if page < 1 {
		page = 1
	}
	if len(rows) == 0 || page-1 > (len(rows)-1)/pageSize {
		return []types.RowPayload{}, pageSize
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, len(rows))
	return rows[start:end], pageSize
}
