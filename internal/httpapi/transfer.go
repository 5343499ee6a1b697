package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/gridbook/internal/transfer"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

type importResponse struct {
	SheetID       int64      `json:"sheetId"`
	SheetName     string     `json:"sheetName"`
	PreviewID     string     `json:"previewId"`
	IncludeHeader bool       `json:"includeHeader"`
	HeaderRow     []string   `json:"headerRow"`
	Columns       []string   `json:"columns"`
	PreviewRows   [][]string `json:"previewRows"`
	TotalRows     int        `json:"totalRows"`
	TotalColumns  int        `json:"totalColumns"`
	Truncated     bool       `json:"truncated"`
	SourceName    string     `json:"sourceName"`
}

// parseFlag reads a form boolean. Anything but false, 0, no or off is true.
func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "false", "0", "no", "off":
		return false
	}
	return true
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, r, types.NewFieldError("file", "a CSV or XLSX file is required"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		s.writeError(w, r, types.NewFieldError("file", "a CSV or XLSX file is required"))
		return
	}
	defer file.Close()

	sheetID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("sheetId")), 10, 64)
	if err != nil || sheetID < 1 {
		s.writeError(w, r, types.NewFieldError("sheetId", "a valid sheetId is required"))
		return
	}
	includeHeader := true
	if _, ok := r.MultipartForm.Value["includeHeader"]; ok {
		includeHeader = parseFlag(r.FormValue("includeHeader"))
	}

	data, _, err := s.svc.FetchSheet(r.Context(), &sheetID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format, err := transfer.FormatOf(header.Filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	table, err := transfer.Parse(format, file, includeHeader, s.cfg.Limits)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	preview := transfer.NewPreview(data.SheetID, header.Filename, includeHeader, table)
	id, err := s.previews.Save(preview)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("import preview staged", "sheet_id", data.SheetID, "preview_id", id,
		"rows", len(table.Rows), "cols", table.Columns)

	limit := s.cfg.Limits.PreviewRows
	if limit <= 0 {
		limit = transfer.DefaultPreviewRows
	}
	rows := table.Rows
	if len(rows) > limit {
		rows = rows[:limit]
	}
	headerRow := []string{}
	if includeHeader {
		headerRow = preview.Headers
	}
	writeJSON(w, http.StatusOK, importResponse{
		SheetID:       data.SheetID,
		SheetName:     data.SheetName,
		PreviewID:     id,
		IncludeHeader: includeHeader,
		HeaderRow:     headerRow,
		Columns:       preview.DisplayColumns(),
		PreviewRows:   rows,
		TotalRows:     len(table.Rows),
		TotalColumns:  table.Columns,
		Truncated:     len(table.Rows) > limit,
		SourceName:    preview.SourceName,
	})
}

func (s *Server) handleConfirmImport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PreviewID string `json:"previewId"`
		SheetID   int64  `json:"sheetId"`
	}
	if err := readBody(w, r, confirmImportSchema, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	preview, err := s.previews.Load(body.PreviewID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if preview.SheetID != body.SheetID {
		s.writeError(w, r, types.NewFieldError("sheetId", "preview does not match the selected sheet"))
		return
	}

	res, err := s.svc.ReplaceSheetData(r.Context(), body.SheetID, preview.Matrix())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.previews.Remove(body.PreviewID); err != nil {
		s.logger.Warn("remove import preview", "preview_id", body.PreviewID, "error", err)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) exportData(w http.ResponseWriter, r *http.Request) (*types.SheetData, bool) {
	id, err := optionalID(r, "sheetId")
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	data, _, err := s.svc.FetchSheet(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return data, true
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	data, ok := s.exportData(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", transfer.ContentTypeCSV)
	w.Header().Set("Content-Disposition", attachment(transfer.SafeDownloadName(data.SheetName, "csv")))
	if err := transfer.WriteCSV(w, data); err != nil {
		s.logger.Error("export csv", "sheet_id", data.SheetID, "error", err)
	}
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	data, ok := s.exportData(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", transfer.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", attachment(transfer.SafeDownloadName(data.SheetName, "xlsx")))
	if err := transfer.WriteXLSX(w, data); err != nil {
		s.logger.Error("export xlsx", "sheet_id", data.SheetID, "error", err)
	}
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%s", filename)
}
