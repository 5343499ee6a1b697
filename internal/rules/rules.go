// Package rules resolves per-column typing rules and normalizes raw cell
// values into their canonical stored text.
package rules

import (
	"fmt"
	"sort"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// Table maps column indexes to typing rules. Columns without an explicit
// entry use types.DefaultColumnRule. A Table is immutable after New.
type Table struct {
	rules map[int]types.ColumnRule
}

// New builds a Table from the given rules. The map is copied.
func New(rules map[int]types.ColumnRule) *Table {
	copied := make(map[int]types.ColumnRule, len(rules))
	for col, r := range rules {
		copied[col] = r
	}
	return &Table{rules: copied}
}

// Default returns the stock rule set: column 1 holds numbers.
func Default() *Table {
	return New(map[int]types.ColumnRule{
		1: {Type: types.ColumnNumber, AllowBlank: true},
	})
}

// Rule returns the rule for col. It never fails.
func (t *Table) Rule(col int) types.ColumnRule {
	if t != nil {
		if r, ok := t.rules[col]; ok {
			return r
		}
	}
	return types.DefaultColumnRule
}

// Columns returns the indexes that carry an explicit rule, ascending.
func (t *Table) Columns() []int {
	if t == nil {
		return nil
	}
	cols := make([]int, 0, len(t.rules))
	for col := range t.rules {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	return cols
}

// Normalize converts raw into the canonical text stored for column col.
// An empty result means the cell is blank and must not be stored.
// Rejected values return a *types.FieldError.
func (t *Table) Normalize(col int, raw any) (string, error) {
	rule := t.Rule(col)
	text := Text(raw)
	if isBlank(text) {
		if !rule.AllowBlank {
			return "", &types.FieldError{Field: "value", Message: fmt.Sprintf("column %d cannot be blank", col+1)}
		}
		return "", nil
	}

	switch rule.Type {
	case types.ColumnNumber:
		d, ok := parseDecimal(text)
		if !ok {
			return "", &types.FieldError{Field: "value", Message: fmt.Sprintf("column %d requires a numeric value", col+1)}
		}
		return formatDecimal(d), nil
	case types.ColumnDate:
		d, ok := parseDate(text)
		if !ok {
			return "", &types.FieldError{Field: "value", Message: fmt.Sprintf("column %d requires an ISO date value", col+1)}
		}
		return d.Format(dateLayout), nil
	default:
		return text, nil
	}
}
