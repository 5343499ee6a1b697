package sheets

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// ListSheets returns the sheet directory ordered by creation.
func (s *Service) ListSheets(ctx context.Context) ([]types.SheetSummary, error) {
	var out []types.SheetSummary
	err := s.store.View(ctx, func(tx types.Tx) error {
		var err error
		out, err = tx.ListSheets()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	return out, nil
}

// EnsureDefaultSheet creates the configured default sheet when no sheet
// exists. It reports whether a sheet was created.
func (s *Service) EnsureDefaultSheet(ctx context.Context) (bool, error) {
	created := false
	err := s.store.Update(ctx, func(tx types.Tx) error {
		has, err := tx.HasSheets()
		if err != nil || has {
			return err
		}
		sheet, err := tx.AddSheet(s.defaults.Name, s.defaults.RowCount, s.defaults.ColCount)
		if err != nil {
			return err
		}
		created = true
		s.logger.Info("default sheet created", "sheet_id", sheet.ID, "name", sheet.Name)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ensure default sheet: %w", err)
	}
	return created, nil
}

// CreateSheet validates the request, creates the sheet and applies its
// initial cells in one transaction. Blank and out-of-bounds cells are
// skipped.
func (s *Service) CreateSheet(ctx context.Context, req types.CreateSheetRequest) (*types.CreateSheetResult, error) {
	name, err := types.CleanSheetName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := types.ValidateDimensions(req.RowCount, req.ColCount); err != nil {
		return nil, err
	}
	cells, err := s.normalizeUpdates("cells", req.Cells)
	if err != nil {
		return nil, err
	}

	result := &types.CreateSheetResult{}
	err = s.store.Update(ctx, func(tx types.Tx) error {
		sheet, err := tx.AddSheet(name, req.RowCount, req.ColCount)
		if err != nil {
			return err
		}
		for _, c := range cells {
			if c.value == "" {
				continue
			}
			if _, err := tx.UpsertCell(sheet.ID, c.row, c.col, c.value); err != nil {
				return err
			}
		}
		list, err := tx.ListSheets()
		if err != nil {
			return err
		}
		result.SheetID = sheet.ID
		result.Name = sheet.Name
		result.RowCount = sheet.RowCount
		result.ColCount = sheet.ColCount
		result.Sheets = list
		return nil
	})
	if err != nil {
		s.logOutcome("create sheet failed", err, "name", name)
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	s.logger.Info("sheet created", "sheet_id", result.SheetID, "name", result.Name,
		"rows", result.RowCount, "cols", result.ColCount, "cells", len(cells))
	return result, nil
}

// RenameSheet gives a sheet a new, unique name. Renaming a sheet to its
// current name succeeds.
func (s *Service) RenameSheet(ctx context.Context, id int64, name string) (*types.Sheet, []types.SheetSummary, error) {
	clean, err := types.CleanSheetName(name)
	if err != nil {
		return nil, nil, err
	}

	var (
		sheet *types.Sheet
		list  []types.SheetSummary
	)
	err = s.store.Update(ctx, func(tx types.Tx) error {
		var err error
		if sheet, err = tx.RenameSheet(id, clean); err != nil {
			return err
		}
		list, err = tx.ListSheets()
		return err
	})
	if err != nil {
		s.logOutcome("rename sheet failed", err, "sheet_id", id, "name", clean)
		return nil, nil, fmt.Errorf("rename sheet: %w", err)
	}
	s.logger.Info("sheet renamed", "sheet_id", id, "name", clean)
	return sheet, list, nil
}

// ResizeSheet updates the dimensions of a sheet. A nil or non-positive
// count leaves that dimension unchanged; cells are never removed.
func (s *Service) ResizeSheet(ctx context.Context, id int64, rowCount, colCount *int) (*types.Sheet, error) {
	var sheet *types.Sheet
	err := s.store.Update(ctx, func(tx types.Tx) error {
		var err error
		sheet, err = tx.ResizeSheet(id, deref(rowCount), deref(colCount))
		return err
	})
	if err != nil {
		s.logOutcome("resize sheet failed", err, "sheet_id", id)
		return nil, fmt.Errorf("resize sheet: %w", err)
	}
	s.logger.Info("sheet resized", "sheet_id", id, "rows", sheet.RowCount, "cols", sheet.ColCount)
	return sheet, nil
}

// logOutcome logs expected request failures at debug and the rest at warn.
func (s *Service) logOutcome(msg string, err error, args ...any) {
	args = append(args, "error", err)
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrConflict), errors.Is(err, types.ErrInvalidArgument):
		s.logger.Debug(msg, args...)
	default:
		s.logger.Warn(msg, args...)
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
