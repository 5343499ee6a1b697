package transfer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// Import caps.
const (
	DefaultMaxRows     = 10000
	DefaultMaxColumns  = 200
	DefaultPreviewRows = 20
)

// Limits bound an import. Zero fields select the defaults.
type Limits struct {
	MaxRows     int
	MaxColumns  int
	PreviewRows int
}

func (l Limits) withDefaults() Limits {
	if l.MaxRows <= 0 {
		l.MaxRows = DefaultMaxRows
	}
	if l.MaxColumns <= 0 {
		l.MaxColumns = DefaultMaxColumns
	}
	if l.PreviewRows <= 0 {
		l.PreviewRows = DefaultPreviewRows
	}
	return l
}

// Table is a parsed upload. Every row in Rows has exactly Columns values.
// Headers is set only when the first row was read as a header.
type Table struct {
	Headers []string
	Rows    [][]string
	Columns int
}

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFormat = &types.FieldError{Field: "file", Message: "unsupported file type; upload a CSV or XLSX file"}

// Format identifies an upload by its file extension.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf returns the format for a file name, or ErrUnsupportedFormat.
func FormatOf(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// Parse reads an upload in the given format. With includeHeader the first
// row becomes Headers. Short rows are padded with "". Parse fails with a
// *types.FieldError when the file is unreadable, has no columns, or
// exceeds limits.
func Parse(format Format, r io.Reader, includeHeader bool, limits Limits) (*Table, error) {
	limits = limits.withDefaults()

	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, &types.FieldError{Field: "file", Message: fmt.Sprintf("failed to parse file: %v", err)}
	}

	t := &Table{}
	if includeHeader && len(records) > 0 {
		t.Headers = records[0]
		records = records[1:]
	}
	t.Columns = len(t.Headers)
	for _, rec := range records {
		t.Columns = max(t.Columns, len(rec))
	}

	if t.Columns == 0 {
		return nil, &types.FieldError{Field: "file", Message: "imported file does not contain any columns"}
	}
	if len(records) > limits.MaxRows {
		return nil, &types.FieldError{Field: "file", Message: fmt.Sprintf("import is limited to %d rows", limits.MaxRows)}
	}
	if t.Columns > limits.MaxColumns {
		return nil, &types.FieldError{Field: "file", Message: fmt.Sprintf("import is limited to %d columns", limits.MaxColumns)}
	}

	if t.Headers != nil {
		t.Headers = pad(t.Headers, t.Columns)
	}
	t.Rows = make([][]string, len(records))
	for i, rec := range records {
		t.Rows[i] = pad(rec, t.Columns)
	}
	return t, nil
}

func pad(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// readXLSX returns the rows of the first worksheet.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no worksheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", sheets[0], err)
	}
	// drop trailing empty rows
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rows, nil
}
