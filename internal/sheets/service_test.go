package sheets

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gridbook/internal/memory"
	"github.com/mesh-intelligence/gridbook/internal/sqlstore"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

func intPtr(v int) *int { return &v }
func idPtr(v int64) *int64 { return &v }

func setupService(t *testing.T) *Service {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { store.Detach() })
	return NewService(store, Options{})
}

func setupSQLiteService(t *testing.T) *Service {
	t.Helper()
	store := sqlstore.NewBackend()
	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { store.Detach() })
	return NewService(store, Options{})
}

// backends runs fn against each store implementation.
func backends(t *testing.T, fn func(t *testing.T, svc *Service)) {
	t.Run("memory", func(t *testing.T) { fn(t, setupService(t)) })
	t.Run("sqlite", func(t *testing.T) { fn(t, setupSQLiteService(t)) })
}

func createPeople(t *testing.T, svc *Service) int64 {
	t.Helper()
	ctx := context.Background()
	created, err := svc.CreateSheet(ctx, types.CreateSheetRequest{Name: "People", RowCount: 3, ColCount: 3})
	require.NoError(t, err)

	_, err = svc.WriteSheetData(ctx, types.WriteRequest{
		SheetID: created.SheetID,
		Updates: []types.CellUpdate{
			{Row: 0, Col: 0, Value: "Alice"},
			{Row: 0, Col: 1, Value: "100"},
			{Row: 1, Col: 0, Value: "Bob"},
			{Row: 1, Col: 1, Value: "250"},
			{Row: 2, Col: 0, Value: "Charlie"},
			{Row: 2, Col: 1, Value: "175"},
		},
	})
	require.NoError(t, err)
	return created.SheetID
}

func TestQuerySortDescPaged(t *testing.T) {
	backends(t, func(t *testing.T, svc *Service) {
		id := createPeople(t, svc)

		p := types.DefaultQueryParams()
		p.SheetID = idPtr(id)
		p.SortColumn = intPtr(1)
		p.SortDirection = types.SortDesc
		p.PageSize = 2

		res, err := svc.Query(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, 3, res.TotalRows)
		assert.Equal(t, "People", res.SheetName)
		assert.Equal(t, []types.RowPayload{
			{RowIndex: 1, Values: []string{"Bob", "250", ""}},
			{RowIndex: 2, Values: []string{"Charlie", "175", ""}},
		}, res.Rows)
		assert.Equal(t, []types.SheetSummary{{ID: id, Name: "People"}}, res.Sheets)
	})
}

func TestQueryFilterGreaterThan(t *testing.T) {
	backends(t, func(t *testing.T, svc *Service) {
		id := createPeople(t, svc)

		p := types.DefaultQueryParams()
		p.SheetID = idPtr(id)
		p.Filters = []types.FilterClause{{Column: 1, Operator: types.OpGt, Value: json.Number("200")}}

		res, err := svc.Query(context.Background(), p)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, 1, res.Rows[0].RowIndex)
		assert.Equal(t, []string{"Bob", "250", ""}, res.Rows[0].Values)
	})
}

func TestQueryDefaultsToEarliestSheet(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	first := createPeople(t, svc)
	_, err := svc.CreateSheet(ctx, types.CreateSheetRequest{Name: "Later", RowCount: 1, ColCount: 1})
	require.NoError(t, err)

	res, err := svc.Query(ctx, types.DefaultQueryParams())
	require.NoError(t, err)
	assert.Equal(t, first, res.SheetID)
}

func TestQueryNoSheets(t *testing.T) {
	svc := setupService(t)
	_, err := svc.Query(context.Background(), types.DefaultQueryParams())
	assert.ErrorIs(t, err, types.ErrNotFound)

	p := types.DefaultQueryParams()
	p.SheetID = idPtr(77)
	_, err = svc.Query(context.Background(), p)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestQueryRejectsBadParams(t *testing.T) {
	svc := setupService(t)
	p := types.DefaultQueryParams()
	p.Page = 0
	_, err := svc.Query(context.Background(), p)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestWriteNormalizesAndReads(t *testing.T) {
	backends(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		id := createPeople(t, svc)

		res, err := svc.WriteSheetData(ctx, types.WriteRequest{
			SheetID: id,
			Updates: []types.CellUpdate{
				{Row: 0, Col: 1, Value: "100.50"},
				{Row: 1, Col: 1, Value: "0.00"},
				{Row: 2, Col: 0, Value: ""},
				{Row: 2, Col: 2, Value: "=A1*2"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 4, res.UpdatedCells)

		data, _, err := svc.FetchSheet(ctx, idPtr(id))
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"Alice", "100.5", ""},
			{"Bob", "0", ""},
			{"", "175", "=A1*2"},
		}, data.Cells)
	})
}

func TestWriteRejectsInvalidAtomically(t *testing.T) {
	backends(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		id := createPeople(t, svc)

		_, err := svc.WriteSheetData(ctx, types.WriteRequest{
			SheetID:  id,
			RowCount: intPtr(10),
			Updates: []types.CellUpdate{
				{Row: 0, Col: 0, Value: "Changed"},
				{Row: 1, Col: 1, Value: "abc"},
			},
		})
		var fe *types.FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "updates[1].value", fe.Field)

		data, _, err := svc.FetchSheet(ctx, idPtr(id))
		require.NoError(t, err)
		assert.Equal(t, 3, data.RowCount)
		assert.Equal(t, "Alice", data.Cells[0][0])
	})
}

func TestWriteResizesFirstAndCountsIgnored(t *testing.T) {
	backends(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		id := createPeople(t, svc)

		res, err := svc.WriteSheetData(ctx, types.WriteRequest{
			SheetID:  id,
			RowCount: intPtr(5),
			ColCount: intPtr(4),
			Updates: []types.CellUpdate{
				{Row: 4, Col: 3, Value: "edge"},
				{Row: 9, Col: 0, Value: "ignored"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, &types.WriteResult{SheetID: id, RowCount: 5, ColCount: 4, TotalRows: 5, UpdatedCells: 2}, res)

		data, _, err := svc.FetchSheet(ctx, idPtr(id))
		require.NoError(t, err)
		assert.Equal(t, "edge", data.Cells[4][3])
		assert.Len(t, data.Cells, 5)
	})
}

func TestWriteLaterUpdatesWin(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	id := createPeople(t, svc)

	_, err := svc.WriteSheetData(ctx, types.WriteRequest{
		SheetID: id,
		Updates: []types.CellUpdate{
			{Row: 0, Col: 0, Value: "first"},
			{Row: 0, Col: 0, Value: "second"},
		},
	})
	require.NoError(t, err)
	data, _, err := svc.FetchSheet(ctx, idPtr(id))
	require.NoError(t, err)
	assert.Equal(t, "second", data.Cells[0][0])
}

func TestWriteUnknownSheet(t *testing.T) {
	svc := setupService(t)
	_, err := svc.WriteSheetData(context.Background(), types.WriteRequest{SheetID: 42})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestResizeIsNonDestructive(t *testing.T) {
	backends(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		id := createPeople(t, svc)

		_, err := svc.ResizeSheet(ctx, id, intPtr(1), intPtr(1))
		require.NoError(t, err)
		data, _, err := svc.FetchSheet(ctx, idPtr(id))
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"Alice"}}, data.Cells)

		sheet, err := svc.ResizeSheet(ctx, id, intPtr(3), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, sheet.ColCount)
		_, err = svc.ResizeSheet(ctx, id, nil, intPtr(3))
		require.NoError(t, err)

		data, _, err = svc.FetchSheet(ctx, idPtr(id))
		require.NoError(t, err)
		assert.Equal(t, "250", data.Cells[1][1])
	})
}
