// Package storetest holds the behavior every types.Store implementation
// must show. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// Factory returns an attached store. It registers its own cleanup.
type Factory func(t *testing.T) types.Store

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s types.Store)
	}{
		{"AddAndGetSheet", testAddAndGetSheet},
		{"ListOrderAndFirst", testListOrderAndFirst},
		{"EmptyStore", testEmptyStore},
		{"DuplicateName", testDuplicateName},
		{"Rename", testRename},
		{"ResizeIsSoft", testResizeIsSoft},
		{"UpsertAndDelete", testUpsertAndDelete},
		{"UpsertOutOfBounds", testUpsertOutOfBounds},
		{"UpdateRollsBack", testUpdateRollsBack},
		{"ViewIsReadOnly", testViewIsReadOnly},
		{"MissingSheet", testMissingSheet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func addSheet(t *testing.T, s types.Store, name string, rows, cols int) *types.Sheet {
	t.Helper()
	var sheet *types.Sheet
	err := s.Update(context.Background(), func(tx types.Tx) error {
		var err error
		sheet, err = tx.AddSheet(name, rows, cols)
		return err
	})
	require.NoError(t, err)
	return sheet
}

func cells(t *testing.T, s types.Store, id int64) []types.Cell {
	t.Helper()
	var out []types.Cell
	require.NoError(t, s.View(context.Background(), func(tx types.Tx) error {
		var err error
		out, err = tx.Cells(id)
		return err
	}))
	return out
}

func testAddAndGetSheet(t *testing.T, s types.Store) {
	created := addSheet(t, s, "Budget", 4, 3)
	assert.Positive(t, created.ID)
	assert.Equal(t, "Budget", created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	require.NoError(t, s.View(context.Background(), func(tx types.Tx) error {
		got, err := tx.GetSheet(created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Name, got.Name)
		assert.Equal(t, 4, got.RowCount)
		assert.Equal(t, 3, got.ColCount)
		return nil
	}))
}

func testListOrderAndFirst(t *testing.T, s types.Store) {
	a := addSheet(t, s, "First", 1, 1)
	b := addSheet(t, s, "Second", 1, 1)
	c := addSheet(t, s, "Third", 1, 1)

	require.NoError(t, s.View(context.Background(), func(tx types.Tx) error {
		list, err := tx.ListSheets()
		require.NoError(t, err)
		assert.Equal(t, []types.SheetSummary{a.Summary(), b.Summary(), c.Summary()}, list)

		first, err := tx.FirstSheet()
		require.NoError(t, err)
		assert.Equal(t, a.ID, first.ID)

		has, err := tx.HasSheets()
		require.NoError(t, err)
		assert.True(t, has)
		return nil
	}))
}

func testEmptyStore(t *testing.T, s types.Store) {
	require.NoError(t, s.View(context.Background(), func(tx types.Tx) error {
		has, err := tx.HasSheets()
		require.NoError(t, err)
		assert.False(t, has)

		list, err := tx.ListSheets()
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = tx.FirstSheet()
		assert.ErrorIs(t, err, types.ErrNotFound)
		return nil
	}))
}

func testDuplicateName(t *testing.T, s types.Store) {
	addSheet(t, s, "Taken", 1, 1)
	err := s.Update(context.Background(), func(tx types.Tx) error {
		_, err := tx.AddSheet("Taken", 2, 2)
		return err
	})
	assert.ErrorIs(t, err, types.ErrConflict)
}

func testRename(t *testing.T, s types.Store) {
	a := addSheet(t, s, "Alpha", 1, 1)
	b := addSheet(t, s, "Beta", 1, 1)

	err := s.Update(context.Background(), func(tx types.Tx) error {
		_, err := tx.RenameSheet(b.ID, "Alpha")
		return err
	})
	assert.ErrorIs(t, err, types.ErrConflict)

	err = s.Update(context.Background(), func(tx types.Tx) error {
		renamed, err := tx.RenameSheet(a.ID, "Alpha")
		if err != nil {
			return err
		}
		assert.Equal(t, "Alpha", renamed.Name)
		renamed, err = tx.RenameSheet(b.ID, "Gamma")
		if err != nil {
			return err
		}
		assert.Equal(t, "Gamma", renamed.Name)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, s.View(context.Background(), func(tx types.Tx) error {
		got, err := tx.GetSheet(b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Gamma", got.Name)
		return nil
	}))
}

func testResizeIsSoft(t *testing.T, s types.Store) {
	sheet := addSheet(t, s, "Soft", 3, 3)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx types.Tx) error {
		_, err := tx.UpsertCell(sheet.ID, 2, 2, "corner")
		return err
	}))
	require.NoError(t, s.Update(ctx, func(tx types.Tx) error {
		resized, err := tx.ResizeSheet(sheet.ID, 1, 0)
		if err != nil {
			return err
		}
		assert.Equal(t, 1, resized.RowCount)
		assert.Equal(t, 3, resized.ColCount)
		return nil
	}))

	assert.Equal(t, []types.Cell{{Row: 2, Col: 2, Value: "corner"}}, cells(t, s, sheet.ID))

	require.NoError(t, s.Update(ctx, func(tx types.Tx) error {
		_, err := tx.ResizeSheet(sheet.ID, 3, 3)
		return err
	}))
	assert.Equal(t, []types.Cell{{Row: 2, Col: 2, Value: "corner"}}, cells(t, s, sheet.ID))
}

func testUpsertAndDelete(t *testing.T, s types.Store) {
	sheet := addSheet(t, s, "Cells", 2, 2)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx types.Tx) error {
		for _, c := range []types.Cell{{Row: 1, Col: 1, Value: "d"}, {Row: 0, Col: 0, Value: "a"}, {Row: 0, Col: 0, Value: "b"}} {
			ok, err := tx.UpsertCell(sheet.ID, c.Row, c.Col, c.Value)
			if err != nil {
				return err
			}
			assert.True(t, ok)
		}
		return nil
	}))
	assert.Equal(t, []types.Cell{{Row: 0, Col: 0, Value: "b"}, {Row: 1, Col: 1, Value: "d"}}, cells(t, s, sheet.ID))

	require.NoError(t, s.Update(ctx, func(tx types.Tx) error {
		if _, err := tx.UpsertCell(sheet.ID, 0, 0, ""); err != nil {
			return err
		}
		// deleting an absent cell succeeds
		_, err := tx.UpsertCell(sheet.ID, 0, 1, "")
		return err
	}))
	assert.Equal(t, []types.Cell{{Row: 1, Col: 1, Value: "d"}}, cells(t, s, sheet.ID))
}

func testUpsertOutOfBounds(t *testing.T, s types.Store) {
	sheet := addSheet(t, s, "Bounds", 2, 2)
	require.NoError(t, s.Update(context.Background(), func(tx types.Tx) error {
		ok, err := tx.UpsertCell(sheet.ID, 2, 0, "x")
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = tx.UpsertCell(sheet.ID, 0, 5, "x")
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
	assert.Empty(t, cells(t, s, sheet.ID))
}

func testUpdateRollsBack(t *testing.T, s types.Store) {
	sheet := addSheet(t, s, "Atomic", 2, 2)
	boom := errors.New("boom")

	err := s.Update(context.Background(), func(tx types.Tx) error {
		if _, err := tx.UpsertCell(sheet.ID, 0, 0, "kept?"); err != nil {
			return err
		}
		if _, err := tx.ResizeSheet(sheet.ID, 9, 9); err != nil {
			return err
		}
		if _, err := tx.AddSheet("Ghost", 1, 1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Empty(t, cells(t, s, sheet.ID))
	require.NoError(t, s.View(context.Background(), func(tx types.Tx) error {
		got, err := tx.GetSheet(sheet.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.RowCount)
		list, err := tx.ListSheets()
		require.NoError(t, err)
		assert.Len(t, list, 1)
		return nil
	}))
}

func testViewIsReadOnly(t *testing.T, s types.Store) {
	sheet := addSheet(t, s, "ReadOnly", 1, 1)
	err := s.View(context.Background(), func(tx types.Tx) error {
		_, err := tx.UpsertCell(sheet.ID, 0, 0, "x")
		return err
	})
	assert.ErrorIs(t, err, types.ErrReadOnlyTx)
}

func testMissingSheet(t *testing.T, s types.Store) {
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(tx types.Tx) error {
		_, err := tx.GetSheet(404)
		assert.ErrorIs(t, err, types.ErrNotFound)
		_, err = tx.Cells(404)
		assert.ErrorIs(t, err, types.ErrNotFound)
		return nil
	}))
	err := s.Update(ctx, func(tx types.Tx) error {
		_, err := tx.UpsertCell(404, 0, 0, "x")
		return err
	})
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = s.Update(ctx, func(tx types.Tx) error {
		_, err := tx.RenameSheet(404, "x")
		return err
	})
	assert.ErrorIs(t, err, types.ErrNotFound)
}
