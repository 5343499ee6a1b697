package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

type tx struct {
	ctx      context.Context
	tx       *sql.Tx
	d        *dialect
	readOnly bool
	now      func() time.Time
}

const sheetColumns = "id, name, row_count, col_count, created_at, updated_at"

func (t *tx) exec(query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, t.d.rebind(query), args...)
}

func (t *tx) query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, t.d.rebind(query), args...)
}

func (t *tx) queryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, t.d.rebind(query), args...)
}

func (t *tx) writable() error {
	if t.readOnly {
		return types.ErrReadOnlyTx
	}
	return nil
}

// mapWriteError turns unique violations into ErrDuplicateSheetName.
func (t *tx) mapWriteError(op string, err error) error {
	if t.d.isDuplicate(err) {
		return types.ErrDuplicateSheetName
	}
	return fmt.Errorf("%s: %w", op, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSheet(row scanner) (*types.Sheet, error) {
	var (
		s                types.Sheet
		created, updated string
	)
	if err := row.Scan(&s.ID, &s.Name, &s.RowCount, &s.ColCount, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if s.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &s, nil
}

func (t *tx) ListSheets() ([]types.SheetSummary, error) {
	rows, err := t.query("SELECT id, name FROM sheets ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close()

	out := []types.SheetSummary{}
	for rows.Next() {
		var s types.SheetSummary
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan sheet: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *tx) HasSheets() (bool, error) {
	var n int
	if err := t.queryRow("SELECT COUNT(*) FROM sheets").Scan(&n); err != nil {
		return false, fmt.Errorf("count sheets: %w", err)
	}
	return n > 0, nil
}

func (t *tx) FirstSheet() (*types.Sheet, error) {
	s, err := scanSheet(t.queryRow("SELECT " + sheetColumns + " FROM sheets ORDER BY created_at, id LIMIT 1"))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrSheetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("first sheet: %w", err)
	}
	return s, nil
}

func (t *tx) GetSheet(id int64) (*types.Sheet, error) {
	s, err := scanSheet(t.queryRow("SELECT "+sheetColumns+" FROM sheets WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrSheetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sheet: %w", err)
	}
	return s, nil
}

func (t *tx) AddSheet(name string, rowCount, colCount int) (*types.Sheet, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	now := t.now()
	stamp := now.Format(timeLayout)

	var id int64
	err := t.queryRow(
		"INSERT INTO sheets (name, row_count, col_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id",
		name, rowCount, colCount, stamp, stamp,
	).Scan(&id)
	if err != nil {
		return nil, t.mapWriteError("insert sheet", err)
	}
	return &types.Sheet{
		ID:        id,
		Name:      name,
		RowCount:  rowCount,
		ColCount:  colCount,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (t *tx) RenameSheet(id int64, name string) (*types.Sheet, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	res, err := t.exec("UPDATE sheets SET name = ?, updated_at = ? WHERE id = ?", name, t.now().Format(timeLayout), id)
	if err != nil {
		return nil, t.mapWriteError("rename sheet", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, types.ErrSheetNotFound
	}
	return t.GetSheet(id)
}

func (t *tx) ResizeSheet(id int64, rowCount, colCount int) (*types.Sheet, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	current, err := t.GetSheet(id)
	if err != nil {
		return nil, err
	}
	if rowCount <= 0 && colCount <= 0 {
		return current, nil
	}
	if rowCount <= 0 {
		rowCount = current.RowCount
	}
	if colCount <= 0 {
		colCount = current.ColCount
	}
	_, err = t.exec("UPDATE sheets SET row_count = ?, col_count = ?, updated_at = ? WHERE id = ?",
		rowCount, colCount, t.now().Format(timeLayout), id)
	if err != nil {
		return nil, fmt.Errorf("resize sheet: %w", err)
	}
	return t.GetSheet(id)
}

func (t *tx) Cells(sheetID int64) ([]types.Cell, error) {
	if _, err := t.GetSheet(sheetID); err != nil {
		return nil, err
	}
	rows, err := t.query(
		"SELECT row_index, col_index, value FROM sheet_cells WHERE sheet_id = ? ORDER BY row_index, col_index",
		sheetID,
	)
	if err != nil {
		return nil, fmt.Errorf("load cells: %w", err)
	}
	defer rows.Close()

	var out []types.Cell
	for rows.Next() {
		var c types.Cell
		if err := rows.Scan(&c.Row, &c.Col, &c.Value); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *tx) UpsertCell(sheetID int64, row, col int, value string) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	sheet, err := t.GetSheet(sheetID)
	if err != nil {
		return false, err
	}
	if !sheet.InBounds(row, col) {
		return false, nil
	}

	if value == "" {
		_, err = t.exec("DELETE FROM sheet_cells WHERE sheet_id = ? AND row_index = ? AND col_index = ?", sheetID, row, col)
		if err != nil {
			return false, fmt.Errorf("delete cell: %w", err)
		}
		return true, nil
	}

	_, err = t.exec(`INSERT INTO sheet_cells (sheet_id, row_index, col_index, value) VALUES (?, ?, ?, ?)
ON CONFLICT (sheet_id, row_index, col_index) DO UPDATE SET value = excluded.value`,
		sheetID, row, col, value)
	if err != nil {
		return false, fmt.Errorf("upsert cell: %w", err)
	}
	return true, nil
}
