package httpapi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gridbook/internal/memory"
	"github.com/mesh-intelligence/gridbook/internal/sheets"
	"github.com/mesh-intelligence/gridbook/internal/transfer"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

type fixture struct {
	svc     *sheets.Service
	handler http.Handler
}

func setupServer(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { store.Detach() })

	svc := sheets.NewService(store, sheets.Options{})
	previews := transfer.NewPreviewStore(filepath.Join(t.TempDir(), transfer.PreviewDirName))
	srv := NewServer(Config{}, svc, previews, nil)
	return &fixture{svc: svc, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (f *fixture) seedPeople(t *testing.T) int64 {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/sheets", map[string]any{
		"name":     "People",
		"rowCount": 3,
		"colCount": 3,
		"cells": []map[string]any{
			{"row": 0, "col": 0, "value": "Alice"},
			{"row": 0, "col": 1, "value": 100},
			{"row": 1, "col": 0, "value": "Bob"},
			{"row": 1, "col": 1, "value": "250"},
			{"row": 2, "col": 0, "value": "Charlie"},
			{"row": 2, "col": 1, "value": "175"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[types.CreateSheetResult](t, rec).SheetID
}

func TestCreateAndFetchGrid(t *testing.T) {
	f := setupServer(t)
	id := f.seedPeople(t)

	rec := f.do(t, http.MethodGet, "/api/grid?sheetId="+strconv.FormatInt(id, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		SheetID   int64                `json:"sheetId"`
		SheetName string               `json:"sheetName"`
		RowCount  int                  `json:"rowCount"`
		ColCount  int                  `json:"colCount"`
		Cells     [][]string           `json:"cells"`
		Sheets    []types.SheetSummary `json:"sheets"`
	}](t, rec)

	assert.Equal(t, id, got.SheetID)
	assert.Equal(t, "People", got.SheetName)
	assert.Equal(t, 3, got.RowCount)
	assert.Equal(t, []string{"Alice", "100", ""}, got.Cells[0])
	assert.Len(t, got.Sheets, 1)

	rec = f.do(t, http.MethodGet, "/api/grid", nil)
	require.Equal(t, http.StatusOK, rec.Code, "default sheet is the earliest one")
}

func TestCreateSheetDefaultsAndErrors(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, http.MethodPost, "/api/sheets", map[string]any{"name": "Blank"})
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[types.CreateSheetResult](t, rec)
	assert.Equal(t, types.DefaultRowCount, res.RowCount)
	assert.Equal(t, types.DefaultColCount, res.ColCount)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"duplicate name", map[string]any{"name": "Blank"}, http.StatusConflict, "conflict"},
		{"blank name", map[string]any{"name": "   "}, http.StatusBadRequest, "bad_request"},
		{"zero rows", map[string]any{"name": "X", "rowCount": 0}, http.StatusBadRequest, "bad_request"},
		{"not json", "{", http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/sheets", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode[errorBody](t, rec).Error)
		})
	}
}

func TestCreateSheetSkipsOutOfRangeCoordinates(t *testing.T) {
	f := setupServer(t)

	body := `{"name":"Huge","rowCount":2,"colCount":2,"cells":[` +
		`{"row":1e300,"col":0,"value":"lost"},` +
		`{"row":-1e300,"col":1,"value":"lost"},` +
		`{"row":0,"col":1.5,"value":"lost"},` +
		`{"row":1,"col":1,"value":"kept"}]}`
	rec := f.do(t, http.MethodPost, "/api/sheets", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[types.CreateSheetResult](t, rec).SheetID

	rec = f.do(t, http.MethodGet, "/api/grid?sheetId="+strconv.FormatInt(id, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Cells [][]string `json:"cells"`
	}](t, rec)
	assert.Equal(t, [][]string{{"", ""}, {"", "kept"}}, got.Cells)
}

func TestRenameSheetRoute(t *testing.T) {
	f := setupServer(t)
	id := f.seedPeople(t)
	path := "/api/sheets/" + strconv.FormatInt(id, 10)

	rec := f.do(t, http.MethodPatch, path, map[string]any{"name": "  Staff "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[renameResponse](t, rec)
	assert.Equal(t, "Staff", got.Name)
	assert.Equal(t, []types.SheetSummary{{ID: id, Name: "Staff"}}, got.Sheets)

	rec = f.do(t, http.MethodPatch, "/api/sheets/999", map[string]any{"name": "Other"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/sheets/abc", map[string]any{"name": "Other"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteRoute(t *testing.T) {
	f := setupServer(t)
	id := f.seedPeople(t)

	rec := f.do(t, http.MethodPatch, "/data", map[string]any{
		"sheetId":  id,
		"rowCount": 4,
		"updates": []map[string]any{
			{"row": 3, "col": 0, "value": "Dana"},
			{"row": 3, "col": 1, "value": 42},
			{"row": 9, "col": 0, "value": "ignored"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[types.WriteResult](t, rec)
	assert.Equal(t, 4, res.RowCount)
	assert.Equal(t, 3, res.UpdatedCells)

	rec = f.do(t, http.MethodPost, "/data", map[string]any{
		"sheetId": id,
		"updates": []map[string]any{{"row": 0, "col": 1, "value": "lots"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Message, "numeric")

	rec = f.do(t, http.MethodPost, "/api/grid", map[string]any{"updates": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "sheetId is required")

	rec = f.do(t, http.MethodPost, "/data", map[string]any{
		"sheetId": id,
		"updates": []map[string]any{{"row": -1, "col": 0, "value": "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRoute(t *testing.T) {
	f := setupServer(t)
	id := f.seedPeople(t)

	filters := `[{"column":1,"operator":"gt","value":150}]`
	q := url.Values{
		"sheetId":    {strconv.FormatInt(id, 10)},
		"sortColumn": {"1"},
		"sortDir":    {"desc"},
		"filters":    {filters},
	}
	rec := f.do(t, http.MethodGet, "/data?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[types.QueryResult](t, rec)
	assert.Equal(t, 2, res.TotalRows)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Bob", res.Rows[0].Values[0])
	assert.Equal(t, "Charlie", res.Rows[1].Values[0])
	assert.Equal(t, types.DefaultPageSize, res.PageSize)

	tests := []struct {
		name  string
		query string
	}{
		{"bad page", "page=0"},
		{"bad direction", "sortDir=sideways"},
		{"bad filters json", "filters=" + url.QueryEscape("[{")},
		{"bad operator", "filters=" + url.QueryEscape(`[{"column":0,"operator":"like"}]`)},
		{"missing column", "filters=" + url.QueryEscape(`[{"operator":"eq"}]`)},
		{"non-numeric page", "page=two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/data?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestQueryRouteHugePageIsEmpty(t *testing.T) {
	f := setupServer(t)
	id := f.seedPeople(t)

	q := url.Values{
		"sheetId":  {strconv.FormatInt(id, 10)},
		"page":     {strconv.Itoa(math.MaxInt)},
		"pageSize": {"2"},
	}
	rec := f.do(t, http.MethodGet, "/data?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[types.QueryResult](t, rec)
	assert.Empty(t, res.Rows)
	assert.Equal(t, 3, res.TotalRows)
	assert.Equal(t, 2, res.PageSize)
}

func TestParseFiltersColumnIndex(t *testing.T) {
	got, err := parseFilters([]byte(`[{"columnIndex":2,"operator":"CONTAINS","value":"ali"}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Column)
	assert.Equal(t, types.OpContains, got[0].Operator)
	assert.Equal(t, "ali", got[0].Value)
}

func TestListSheetsAndNotFound(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, http.MethodGet, "/api/grid", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Error)

	f.seedPeople(t)
	rec = f.do(t, http.MethodGet, "/api/sheets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string][]types.SheetSummary](t, rec)
	assert.Len(t, got["sheets"], 1)
}

func upload(t *testing.T, f *fixture, sheetID int64, filename, content string, includeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("sheetId", strconv.FormatInt(sheetID, 10)))
	if includeHeader != "" {
		require.NoError(t, mw.WriteField("includeHeader", includeHeader))
	}
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestImportPreviewAndConfirm(t *testing.T) {
	f := setupServer(t)
	id := f.seedPeople(t)

	rec := upload(t, f, id, "scores.csv", "Name,2024\nDana,12\nEve,7\n", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[importResponse](t, rec)
	assert.True(t, preview.IncludeHeader)
	assert.Equal(t, []string{"Name", "2024"}, preview.HeaderRow)
	assert.Equal(t, []string{"Name", "2024"}, preview.Columns)
	assert.Equal(t, 2, preview.TotalRows)
	assert.Equal(t, 2, preview.TotalColumns)
	assert.False(t, preview.Truncated)
	assert.Equal(t, "People", preview.SheetName)
	assert.Equal(t, "scores.csv", preview.SourceName)

	rec = f.do(t, http.MethodPost, "/import/confirm", map[string]any{"previewId": preview.PreviewID, "sheetId": id + 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "preview belongs to another sheet")

	rec = f.do(t, http.MethodPost, "/import/confirm", map[string]any{"previewId": preview.PreviewID, "sheetId": id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[types.WriteResult](t, rec)
	assert.Equal(t, 3, res.RowCount)
	assert.Equal(t, 2, res.ColCount)

	data, _, err := f.svc.FetchSheet(context.Background(), &id)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Name", "2024"}, {"Dana", "12"}, {"Eve", "7"}}, data.Cells)

	rec = f.do(t, http.MethodPost, "/import/confirm", map[string]any{"previewId": preview.PreviewID, "sheetId": id})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a preview is consumed by confirmation")
}

func TestImportWithoutHeader(t *testing.T) {
	f := setupServer(t)
	id := f.seedPeople(t)

	rec := upload(t, f, id, "rows.csv", "Dana,12\nEve,7\n", "false")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[importResponse](t, rec)
	assert.False(t, preview.IncludeHeader)
	assert.Equal(t, []string{}, preview.HeaderRow)
	assert.Equal(t, []string{"A", "B"}, preview.Columns)
	assert.Equal(t, [][]string{{"Dana", "12"}, {"Eve", "7"}}, preview.PreviewRows)
}

func TestImportErrors(t *testing.T) {
	f := setupServer(t)
	id := f.seedPeople(t)

	rec := upload(t, f, id, "notes.txt", "hello", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, f, id+10, "scores.csv", "a,b\n", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/import/confirm", map[string]any{"previewId": "nope", "sheetId": id})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseFlag(t *testing.T) {
	for _, raw := range []string{"false", "0", "No", " off "} {
		assert.False(t, parseFlag(raw), raw)
	}
	for _, raw := range []string{"true", "1", "yes", "on", ""} {
		assert.True(t, parseFlag(raw), raw)
	}
}

func TestExportCSV(t *testing.T) {
	f := setupServer(t)
	id := f.seedPeople(t)

	rec := f.do(t, http.MethodGet, "/export.csv?sheetId="+strconv.FormatInt(id, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, transfer.ContentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=People.csv", rec.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"A", "B", "C"}, records[0])
	assert.Equal(t, []string{"Alice", "100", ""}, records[1])
}

func TestExportXLSX(t *testing.T) {
	f := setupServer(t)
	id := f.seedPeople(t)

	rec := f.do(t, http.MethodGet, "/export.xlsx?sheetId="+strconv.FormatInt(id, 10), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, transfer.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=People.xlsx", rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	rec = f.do(t, http.MethodGet, "/export.xlsx?sheetId=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsAndHealth(t *testing.T) {
	f := setupServer(t)
	f.do(t, http.MethodGet, "/api/sheets", nil)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gridbook_http_requests_total{code="200",method="GET",route="GET /api/sheets"} 1`)

	rec = f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{types.ErrSheetNotFound, http.StatusNotFound},
		{types.ErrDuplicateSheetName, http.StatusConflict},
		{types.NewFieldError("x", "bad"), http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}
