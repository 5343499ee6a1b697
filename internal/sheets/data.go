package sheets

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/gridbook/internal/grid"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// resolve returns the sheet with the given id, or the earliest sheet
// when id is nil.
func resolve(tx types.Tx, id *int64) (*types.Sheet, error) {
	if id == nil {
		return tx.FirstSheet()
	}
	return tx.GetSheet(*id)
}

// load materializes a sheet's grid inside tx.
func load(tx types.Tx, id *int64) (*types.Sheet, *grid.Grid, error) {
	sheet, err := resolve(tx, id)
	if err != nil {
		return nil, nil, err
	}
	cells, err := tx.Cells(sheet.ID)
	if err != nil {
		return nil, nil, err
	}
	return sheet, grid.FromCells(sheet.RowCount, sheet.ColCount, cells), nil
}

// FetchSheet returns the dense grid of a sheet plus the sheet directory.
// A nil id selects the earliest-created sheet.
func (s *Service) FetchSheet(ctx context.Context, id *int64) (*types.SheetData, []types.SheetSummary, error) {
	var (
		data *types.SheetData
		list []types.SheetSummary
	)
	err := s.store.View(ctx, func(tx types.Tx) error {
		sheet, g, err := load(tx, id)
		if err != nil {
			return err
		}
		data = &types.SheetData{
			SheetID:   sheet.ID,
			SheetName: sheet.Name,
			RowCount:  sheet.RowCount,
			ColCount:  sheet.ColCount,
			Cells:     g.Dense(),
		}
		list, err = tx.ListSheets()
		return err
	})
	if err != nil {
		s.logOutcome("fetch sheet failed", err, "sheet_id", id)
		return nil, nil, fmt.Errorf("fetch sheet: %w", err)
	}
	return data, list, nil
}

// Query filters, sorts and paginates the rows of a sheet.
func (s *Service) Query(ctx context.Context, p types.QueryParams) (*types.QueryResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var result *types.QueryResult
	err := s.store.View(ctx, func(tx types.Tx) error {
		sheet, g, err := load(tx, p.SheetID)
		if err != nil {
			return err
		}
		list, err := tx.ListSheets()
		if err != nil {
			return err
		}
		page := s.engine.Run(g.RowPayloads(), sheet.ColCount, p)
		result = &types.QueryResult{
			SheetID:   sheet.ID,
			SheetName: sheet.Name,
			RowCount:  sheet.RowCount,
			ColCount:  sheet.ColCount,
			Page:      page.Page,
			PageSize:  page.PageSize,
			TotalRows: page.TotalRows,
			Rows:      page.Rows,
			Sheets:    list,
		}
		return nil
	})
	if err != nil {
		s.logOutcome("query failed", err, "sheet_id", p.SheetID)
		return nil, fmt.Errorf("query sheet: %w", err)
	}
	return result, nil
}

// WriteSheetData resizes the sheet if requested, then applies the updates
// in order. Every update is validated before anything is written, and the
// whole write commits atomically. Out-of-bounds updates are ignored but
// still counted in UpdatedCells.
func (s *Service) WriteSheetData(ctx context.Context, req types.WriteRequest) (*types.WriteResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	updates, err := s.normalizeUpdates("updates", req.Updates)
	if err != nil {
		return nil, err
	}

	var sheet *types.Sheet
	applied := 0
	err = s.store.Update(ctx, func(tx types.Tx) error {
		var err error
		sheet, err = tx.ResizeSheet(req.SheetID, deref(req.RowCount), deref(req.ColCount))
		if err != nil {
			return err
		}
		for _, u := range updates {
			ok, err := tx.UpsertCell(sheet.ID, u.row, u.col, u.value)
			if err != nil {
				return err
			}
			if ok {
				applied++
			}
		}
		return nil
	})
	if err != nil {
		s.logOutcome("write sheet data failed", err, "sheet_id", req.SheetID)
		return nil, fmt.Errorf("write sheet data: %w", err)
	}

	s.logger.Info("sheet data written", "sheet_id", sheet.ID, "updates", len(updates),
		"applied", applied, "rows", sheet.RowCount, "cols", sheet.ColCount)
	return &types.WriteResult{
		SheetID:      sheet.ID,
		RowCount:     sheet.RowCount,
		ColCount:     sheet.ColCount,
		TotalRows:    sheet.RowCount,
		UpdatedCells: len(req.Updates),
	}, nil
}

// ReplaceSheetData swaps the visible contents of a sheet for matrix. In one
// transaction it blanks every non-empty visible cell, resizes the sheet to
// fit matrix (at least 1x1), and writes the non-empty values through the
// normalizer.
func (s *Service) ReplaceSheetData(ctx context.Context, id int64, matrix [][]string) (*types.WriteResult, error) {
	rowCount := max(len(matrix), 1)
	colCount := 1
	for _, row := range matrix {
		colCount = max(colCount, len(row))
	}

	var incoming []types.CellUpdate
	for r, row := range matrix {
		for c, v := range row {
			if v != "" {
				incoming = append(incoming, types.CellUpdate{Row: r, Col: c, Value: v})
			}
		}
	}
	updates, err := s.normalizeUpdates("rows", incoming)
	if err != nil {
		return nil, err
	}

	var sheet *types.Sheet
	cleared := 0
	err = s.store.Update(ctx, func(tx types.Tx) error {
		_, g, err := load(tx, &id)
		if err != nil {
			return err
		}
		for _, c := range g.NonEmptyInBounds() {
			if _, err := tx.UpsertCell(id, c.Row, c.Col, ""); err != nil {
				return err
			}
			cleared++
		}
		if sheet, err = tx.ResizeSheet(id, rowCount, colCount); err != nil {
			return err
		}
		// cells hidden by an earlier shrink must not resurface
		for _, c := range g.Cells() {
			if g.InBounds(c.Row, c.Col) || !sheet.InBounds(c.Row, c.Col) {
				continue
			}
			if _, err := tx.UpsertCell(id, c.Row, c.Col, ""); err != nil {
				return err
			}
			cleared++
		}
		for _, u := range updates {
			if _, err := tx.UpsertCell(id, u.row, u.col, u.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logOutcome("replace sheet data failed", err, "sheet_id", id)
		return nil, fmt.Errorf("replace sheet data: %w", err)
	}

	s.logger.Info("sheet data replaced", "sheet_id", id, "cleared", cleared,
		"written", len(updates), "rows", sheet.RowCount, "cols", sheet.ColCount)
	return &types.WriteResult{
		SheetID:      sheet.ID,
		RowCount:     sheet.RowCount,
		ColCount:     sheet.ColCount,
		TotalRows:    sheet.RowCount,
		UpdatedCells: cleared + len(updates),
	}, nil
}
