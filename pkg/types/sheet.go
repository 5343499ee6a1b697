package types

import (
	"strings"
	"time"
)

// Defaults for the sheet created on first start.
const (
	DefaultSheetName = "Sheet 1"
	DefaultRowCount  = 12
	DefaultColCount  = 8
)

// Sheet is a named, bounded grid. Cells are stored sparsely and keyed by
// zero-based (row, column) coordinates.
type Sheet struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	RowCount  int       `json:"rowCount"`
	ColCount  int       `json:"colCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SheetSummary is the directory entry for a sheet.
type SheetSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Summary returns the directory entry for s.
func (s *Sheet) Summary() SheetSummary {
	return SheetSummary{ID: s.ID, Name: s.Name}
}

// InBounds reports whether (row, col) lies inside the sheet's dimensions.
func (s *Sheet) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < s.RowCount && col < s.ColCount
}

// Cell is one stored, non-empty value.
type Cell struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value"`
}

// SheetData is a sheet materialized as a dense grid of RowCount rows by
// ColCount columns. Absent cells are empty strings.
type SheetData struct {
	SheetID   int64      `json:"sheetId"`
	SheetName string     `json:"sheetName"`
	RowCount  int        `json:"rowCount"`
	ColCount  int        `json:"colCount"`
	Cells     [][]string `json:"cells"`
}

// CleanSheetName trims surrounding whitespace and rejects empty names.
func CleanSheetName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", NewFieldError("name", "sheet name is required")
	}
	return trimmed, nil
}

// ValidateDimensions checks that both counts are at least one.
func ValidateDimensions(rowCount, colCount int) error {
	if rowCount < 1 {
		return NewFieldError("rowCount", "must be at least 1")
	}
	if colCount < 1 {
		return NewFieldError("colCount", "must be at least 1")
	}
	return nil
}
