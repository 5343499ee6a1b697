package memory

import (
	"time"

	"github.com/mesh-intelligence/gridbook/internal/grid"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

type tx struct {
	state    *state
	readOnly bool
	now      func() time.Time
}

func (t *tx) writable() error {
	if t.readOnly {
		return types.ErrReadOnlyTx
	}
	return nil
}

func (t *tx) entry(id int64) (*sheetEntry, error) {
	e, ok := t.state.sheets[id]
	if !ok {
		return nil, types.ErrSheetNotFound
	}
	return e, nil
}

func (t *tx) nameTaken(name string, except int64) bool {
	for id, e := range t.state.sheets {
		if id != except && e.meta.Name == name {
			return true
		}
	}
	return false
}

func (t *tx) ListSheets() ([]types.SheetSummary, error) {
	entries := t.state.ordered()
	out := make([]types.SheetSummary, len(entries))
	for i, e := range entries {
		out[i] = e.meta.Summary()
	}
	return out, nil
}

func (t *tx) HasSheets() (bool, error) {
	return len(t.state.sheets) > 0, nil
}

func (t *tx) FirstSheet() (*types.Sheet, error) {
	entries := t.state.ordered()
	if len(entries) == 0 {
		return nil, types.ErrSheetNotFound
	}
	meta := entries[0].meta
	return &meta, nil
}

func (t *tx) GetSheet(id int64) (*types.Sheet, error) {
	e, err := t.entry(id)
	if err != nil {
		return nil, err
	}
	meta := e.meta
	return &meta, nil
}

func (t *tx) AddSheet(name string, rowCount, colCount int) (*types.Sheet, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	if t.nameTaken(name, 0) {
		return nil, types.ErrDuplicateSheetName
	}
	now := t.now()
	meta := types.Sheet{
		ID:        t.state.nextID,
		Name:      name,
		RowCount:  rowCount,
		ColCount:  colCount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.state.nextID++
	t.state.sheets[meta.ID] = &sheetEntry{meta: meta, grid: grid.New(rowCount, colCount)}
	return &meta, nil
}

func (t *tx) RenameSheet(id int64, name string) (*types.Sheet, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	e, err := t.entry(id)
	if err != nil {
		return nil, err
	}
	if t.nameTaken(name, id) {
		return nil, types.ErrDuplicateSheetName
	}
	e.meta.Name = name
	e.meta.UpdatedAt = t.now()
	meta := e.meta
	return &meta, nil
}

func (t *tx) ResizeSheet(id int64, rowCount, colCount int) (*types.Sheet, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	e, err := t.entry(id)
	if err != nil {
		return nil, err
	}
	if rowCount > 0 || colCount > 0 {
		e.grid.Resize(rowCount, colCount)
		e.meta.RowCount = e.grid.Rows()
		e.meta.ColCount = e.grid.Cols()
		e.meta.UpdatedAt = t.now()
	}
	meta := e.meta
	return &meta, nil
}

func (t *tx) Cells(sheetID int64) ([]types.Cell, error) {
	e, err := t.entry(sheetID)
	if err != nil {
		return nil, err
	}
	return e.grid.Cells(), nil
}

func (t *tx) UpsertCell(sheetID int64, row, col int, value string) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	e, err := t.entry(sheetID)
	if err != nil {
		return false, err
	}
	return e.grid.Set(row, col, value), nil
}
