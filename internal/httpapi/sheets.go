package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

type gridResponse struct {
	*types.SheetData
	Sheets []types.SheetSummary `json:"sheets"`
}

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	id, err := optionalID(r, "sheetId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, list, err := s.svc.FetchSheet(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gridResponse{SheetData: data, Sheets: list})
}

func (s *Server) handleListSheets(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListSheets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sheets": list})
}

type createSheetBody struct {
	Name     string           `json:"name"`
	RowCount *int             `json:"rowCount"`
	ColCount *int             `json:"colCount"`
	Cells    []map[string]any `json:"cells"`
}

func (s *Server) handleCreateSheet(w http.ResponseWriter, r *http.Request) {
	var body createSheetBody
	if err := readBody(w, r, createSheetSchema, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	req := types.CreateSheetRequest{
		Name:     body.Name,
		RowCount: types.DefaultRowCount,
		ColCount: types.DefaultColCount,
	}
	if body.RowCount != nil {
		req.RowCount = *body.RowCount
	}
	if body.ColCount != nil {
		req.ColCount = *body.ColCount
	}
	// entries without usable coordinates are skipped
	for _, c := range body.Cells {
		row, okRow := toInt(c["row"])
		col, okCol := toInt(c["col"])
		if !okRow || !okCol {
			continue
		}
		req.Cells = append(req.Cells, types.CellUpdate{Row: row, Col: col, Value: c["value"]})
	}

	res, err := s.svc.CreateSheet(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type renameResponse struct {
	Sheets  []types.SheetSummary `json:"sheets"`
	SheetID int64                `json:"sheetId"`
	Name    string               `json:"name"`
}

func (s *Server) handleRenameSheet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		s.writeError(w, r, types.NewFieldError("id", "must be a positive integer"))
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := readBody(w, r, renameSheetSchema, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	sheet, list, err := s.svc.RenameSheet(r.Context(), id, body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renameResponse{Sheets: list, SheetID: sheet.ID, Name: sheet.Name})
}

type writeBody struct {
	SheetID  int64 `json:"sheetId"`
	RowCount *int  `json:"rowCount"`
	ColCount *int  `json:"colCount"`
	Updates  []struct {
		Row   int `json:"row"`
		Col   int `json:"col"`
		Value any `json:"value"`
	} `json:"updates"`
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var body writeBody
	if err := readBody(w, r, writeSchema, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	req := types.WriteRequest{
		SheetID:  body.SheetID,
		RowCount: body.RowCount,
		ColCount: body.ColCount,
		Updates:  make([]types.CellUpdate, len(body.Updates)),
	}
	for i, u := range body.Updates {
		req.Updates[i] = types.CellUpdate{Row: u.Row, Col: u.Col, Value: u.Value}
	}
	res, err := s.svc.WriteSheetData(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	p, err := parseQueryParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.Query(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// parseQueryParams reads the query string of GET /data. filters is a JSON
// array; each clause names its column as column or columnIndex.
func parseQueryParams(r *http.Request) (types.QueryParams, error) {
	p := types.DefaultQueryParams()
	var err error

	if p.SheetID, err = optionalID(r, "sheetId"); err != nil {
		return p, err
	}
	page, err := optionalInt(r, "page")
	if err != nil {
		return p, err
	}
	if page != nil {
		p.Page = *page
	}
	size, err := optionalInt(r, "pageSize")
	if err != nil {
		return p, err
	}
	if size != nil {
		p.PageSize = *size
	}
	if p.SortColumn, err = optionalInt(r, "sortColumn"); err != nil {
		return p, err
	}
	if p.SortDirection, err = types.ParseSortDirection(r.URL.Query().Get("sortDir")); err != nil {
		return p, err
	}
	if raw := r.URL.Query().Get("filters"); raw != "" {
		if p.Filters, err = parseFilters([]byte(raw)); err != nil {
			return p, err
		}
	}
	return p, p.Validate()
}

func parseFilters(raw []byte) ([]types.FilterClause, error) {
	if !json.Valid(raw) {
		return nil, types.NewFieldError("filters", "invalid filters payload")
	}
	if err := validate(filtersSchema, raw); err != nil {
		return nil, err
	}
	var items []struct {
		Column      *int   `json:"column"`
		ColumnIndex *int   `json:"columnIndex"`
		Operator    string `json:"operator"`
		Value       any    `json:"value"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, types.NewFieldError("filters", "invalid filters payload: %v", err)
	}

	out := make([]types.FilterClause, len(items))
	for i, it := range items {
		col := it.Column
		if col == nil {
			col = it.ColumnIndex
		}
		op, err := types.ParseOperator(it.Operator)
		if err != nil {
			return nil, types.NewFieldError("filters", "clause %d: unsupported operator %q", i, it.Operator)
		}
		out[i] = types.FilterClause{Column: *col, Operator: op, Value: it.Value}
	}
	return out, nil
}
