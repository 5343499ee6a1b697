package types

import "context"

// Store defines the interface for backend-agnostic grid storage.
// Callers attach to a backend, run transactions, and detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, View and Update return ErrStoreDetached.
	Detach() error

	// View runs fn in a read-only transaction. Writes inside fn fail with
	// ErrReadOnlyTx.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn in a read-write transaction. If fn returns an error
	// nothing it did is kept; otherwise all of its writes commit together.
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the unit of work handed to View and Update. A Tx must not be used
// after the callback that received it returns.
type Tx interface {
	// ListSheets returns every sheet ordered by creation time, then id.
	ListSheets() ([]SheetSummary, error)

	// HasSheets reports whether at least one sheet exists.
	HasSheets() (bool, error)

	// FirstSheet returns the earliest-created sheet.
	// Returns ErrSheetNotFound when no sheet exists.
	FirstSheet() (*Sheet, error)

	// GetSheet returns the sheet with the given id.
	// Returns ErrSheetNotFound if absent.
	GetSheet(id int64) (*Sheet, error)

	// AddSheet creates a sheet. Returns ErrDuplicateSheetName if the name
	// is taken.
	AddSheet(name string, rowCount, colCount int) (*Sheet, error)

	// RenameSheet changes a sheet's name. Returns ErrSheetNotFound or
	// ErrDuplicateSheetName.
	RenameSheet(id int64, name string) (*Sheet, error)

	// ResizeSheet sets new dimensions. A non-positive rowCount or colCount
	// leaves that dimension unchanged. Stored cells are never removed.
	ResizeSheet(id int64, rowCount, colCount int) (*Sheet, error)

	// Cells returns every stored cell of the sheet, including cells that lie
	// outside the current dimensions, ordered by row then column.
	Cells(sheetID int64) ([]Cell, error)

	// UpsertCell writes value at (row, col). An empty value deletes the cell.
	// Writes outside the sheet's current dimensions are ignored and report
	// false. Returns ErrSheetNotFound if the sheet is absent.
	UpsertCell(sheetID int64, row, col int, value string) (bool, error)
}
