package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// PreviewDirName is the directory under the data dir that holds staged
// previews.
const PreviewDirName = "import_previews"

// Preview is a parsed upload waiting for confirmation against one sheet.
type Preview struct {
	ID            string     `json:"id"`
	SheetID       int64      `json:"sheet_id"`
	IncludeHeader bool       `json:"include_header"`
	Headers       []string   `json:"headers"`
	Rows          [][]string `json:"rows"`
	RowCount      int        `json:"row_count"`
	ColCount      int        `json:"col_count"`
	SourceName    string     `json:"source_name"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewPreview stages table for sheetID.
func NewPreview(sheetID int64, sourceName string, includeHeader bool, table *Table) *Preview {
	rowCount := len(table.Rows)
	if includeHeader {
		rowCount++
	}
	return &Preview{
		SheetID:       sheetID,
		IncludeHeader: includeHeader,
		Headers:       table.Headers,
		Rows:          table.Rows,
		RowCount:      rowCount,
		ColCount:      table.Columns,
		SourceName:    filepath.Base(sourceName),
	}
}

// Matrix returns the rows to write into the sheet: the header row first
// when present, then the data rows.
func (p *Preview) Matrix() [][]string {
	out := make([][]string, 0, len(p.Rows)+1)
	if p.IncludeHeader && len(p.Headers) > 0 {
		out = append(out, p.Headers)
	}
	return append(out, p.Rows...)
}

// DisplayColumns returns the header row, or letter labels without one.
func (p *Preview) DisplayColumns() []string {
	if p.IncludeHeader {
		return p.Headers
	}
	return ColumnLabels(p.ColCount)
}

// PreviewStore keeps previews as JSON files in one directory.
type PreviewStore struct {
	dir string
}

// NewPreviewStore returns a store rooted at dir. The directory is created
// on first Save.
func NewPreviewStore(dir string) *PreviewStore {
	return &PreviewStore{dir: dir}
}

// Dir returns the directory previews are written to.
func (s *PreviewStore) Dir() string {
	return s.dir
}

// errPreviewGone reports a missing, expired or malformed preview id.
var errPreviewGone = &types.FieldError{Field: "previewId", Message: "import preview is no longer available"}

func (s *PreviewStore) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", errPreviewGone
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Save assigns p a new id and writes it atomically.
func (s *PreviewStore) Save(p *Preview) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create preview dir: %w", err)
	}
	p.ID = uuid.NewString()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	path, _ := s.path(p.ID)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return p.ID, nil
}

// Load reads a preview. A missing or malformed id yields a
// *types.FieldError on previewId.
func (s *PreviewStore) Load(id string) (*Preview, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errPreviewGone
	}
	if err != nil {
		return nil, fmt.Errorf("read preview: %w", err)
	}
	var p Preview
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &types.FieldError{Field: "previewId", Message: fmt.Sprintf("unable to load preview data: %v", err)}
	}
	return &p, nil
}

// Remove deletes a preview. Missing previews are not an error.
func (s *PreviewStore) Remove(id string) error {
	path, err := s.path(id)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove preview: %w", err)
	}
	return nil
}

// Prune removes previews older than maxAge and returns how many it removed.
func (s *PreviewStore) Prune(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list previews: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > maxAge {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// writeFileAtomic writes data to a temp file in the target directory,
// syncs it, then renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preview-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing preview: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
