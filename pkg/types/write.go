package types

import "fmt"

// CellUpdate sets one cell. Value is nil, a string, a json.Number, or
// another scalar; blank values clear the cell.
type CellUpdate struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Value any `json:"value"`
}

// WriteRequest applies an optional resize followed by cell updates.
type WriteRequest struct {
	SheetID  int64        `json:"sheetId"`
	Updates  []CellUpdate `json:"updates"`
	RowCount *int         `json:"rowCount,omitempty"`
	ColCount *int         `json:"colCount,omitempty"`
}

// Validate checks ids, coordinates and optional dimensions.
func (r WriteRequest) Validate() error {
	if r.SheetID < 1 {
		return NewFieldError("sheetId", "must be at least 1")
	}
	if r.RowCount != nil && *r.RowCount < 1 {
		return NewFieldError("rowCount", "must be at least 1")
	}
	if r.ColCount != nil && *r.ColCount < 1 {
		return NewFieldError("colCount", "must be at least 1")
	}
	for i, u := range r.Updates {
		if u.Row < 0 {
			return NewFieldError(indexed("updates", i, "row"), "must be at least 0")
		}
		if u.Col < 0 {
			return NewFieldError(indexed("updates", i, "col"), "must be at least 0")
		}
	}
	return nil
}

// WriteResult reports the sheet state after a write. UpdatedCells counts
// the submitted updates, including ignored out-of-bounds ones.
type WriteResult struct {
	SheetID      int64 `json:"sheetId"`
	RowCount     int   `json:"rowCount"`
	ColCount     int   `json:"colCount"`
	TotalRows    int   `json:"totalRows"`
	UpdatedCells int   `json:"updatedCells"`
}

// CreateSheetRequest describes a new sheet and its initial cells.
type CreateSheetRequest struct {
	Name     string       `json:"name"`
	RowCount int          `json:"rowCount"`
	ColCount int          `json:"colCount"`
	Cells    []CellUpdate `json:"cells"`
}

// CreateSheetResult is returned after a sheet is created.
type CreateSheetResult struct {
	SheetID  int64          `json:"sheetId"`
	Name     string         `json:"name"`
	RowCount int            `json:"rowCount"`
	ColCount int            `json:"colCount"`
	Sheets   []SheetSummary `json:"sheets"`
}

func indexed(list string, i int, field string) string {
	return fmt.Sprintf("%s[%d].%s", list, i, field)
}
