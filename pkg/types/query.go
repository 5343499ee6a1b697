package types

import (
	"strings"
)

// Operator is a filter comparison.
type Operator string

// Filter operators.
const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpContains Operator = "contains"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
)

var operators = map[Operator]bool{
	OpEq: true, OpNe: true, OpContains: true,
	OpLt: true, OpLte: true, OpGt: true, OpGte: true,
}

// ParseOperator resolves an operator name case-insensitively.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	if !operators[op] {
		return "", NewFieldError("operator", "unsupported operator %q", s)
	}
	return op, nil
}

// SortDirection orders query results.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection resolves a direction case-insensitively. An empty
// string yields SortAsc.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(SortAsc):
		return SortAsc, nil
	case string(SortDesc):
		return SortDesc, nil
	}
	return "", NewFieldError("sortDir", "must be 'asc' or 'desc'")
}

// Query defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 100
)

// FilterClause restricts query rows by one column. Clauses combine with AND.
// Value is nil, a string, a json.Number, or another scalar.
type FilterClause struct {
	Column   int      `json:"column"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// QueryParams selects, filters, sorts and pages the rows of a sheet.
// A nil SheetID selects the earliest-created sheet. A PageSize of zero
// returns every matching row.
type QueryParams struct {
	SheetID       *int64
	Page          int
	PageSize      int
	SortColumn    *int
	SortDirection SortDirection
	Filters       []FilterClause
}

// DefaultQueryParams returns params for the first page of the default sheet.
func DefaultQueryParams() QueryParams {
	return QueryParams{
		Page:          DefaultPage,
		PageSize:      DefaultPageSize,
		SortDirection: SortAsc,
	}
}

// Validate checks paging and sorting bounds.
func (p QueryParams) Validate() error {
	if p.SheetID != nil && *p.SheetID < 1 {
		return NewFieldError("sheetId", "must be at least 1")
	}
	if p.Page < 1 {
		return NewFieldError("page", "must be at least 1")
	}
	if p.PageSize < 0 {
		return NewFieldError("pageSize", "must be at least 0")
	}
	if p.SortColumn != nil && *p.SortColumn < 0 {
		return NewFieldError("sortColumn", "must be at least 0")
	}
	if p.SortDirection != SortAsc && p.SortDirection != SortDesc {
		return NewFieldError("sortDir", "must be 'asc' or 'desc'")
	}
	for i, f := range p.Filters {
		if f.Column < 0 {
			return NewFieldError(indexed("filters", i, "column"), "must be at least 0")
		}
		if !operators[f.Operator] {
			return NewFieldError(indexed("filters", i, "operator"), "unsupported operator %q", f.Operator)
		}
	}
	return nil
}

// RowPayload is one result row. RowIndex is the zero-based position of the
// row in the unfiltered sheet.
type RowPayload struct {
	RowIndex int      `json:"rowIndex"`
	Values   []string `json:"values"`
}

// QueryResult is one page of query output plus the sheet directory.
type QueryResult struct {
	SheetID   int64          `json:"sheetId"`
	SheetName string         `json:"sheetName"`
	RowCount  int            `json:"rowCount"`
	ColCount  int            `json:"colCount"`
	Page      int            `json:"page"`
	PageSize  int            `json:"pageSize"`
	TotalRows int            `json:"totalRows"`
	Rows      []RowPayload   `json:"rows"`
	Sheets    []SheetSummary `json:"sheets"`
}
