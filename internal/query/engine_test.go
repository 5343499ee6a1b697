package query

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/gridbook/internal/grid"
	"github.com/mesh-intelligence/gridbook/internal/rules"
	"github.com/mesh-intelligence/gridbook/pkg/types"
)

func intPtr(v int) *int { return &v }

func rowsOf(matrix ...[]string) []types.RowPayload {
	out := make([]types.RowPayload, len(matrix))
	for i, values := range matrix {
		out[i] = types.RowPayload{RowIndex: i, Values: values}
	}
	return out
}

func indexes(rows []types.RowPayload) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.RowIndex
	}
	return out
}

func peopleRows() []types.RowPayload {
	g := grid.New(3, 3)
	g.Set(0, 0, "Alice")
	g.Set(0, 1, "100")
	g.Set(1, 0, "Bob")
	g.Set(1, 1, "250")
	g.Set(2, 0, "Charlie")
	g.Set(2, 1, "175")
	return g.RowPayloads()
}

func params() types.QueryParams {
	return types.DefaultQueryParams()
}

func TestRunSortDescendingFirstPage(t *testing.T) {
	e := NewEngine(rules.Default())
	p := params()
	p.SortColumn = intPtr(1)
	p.SortDirection = types.SortDesc
	p.PageSize = 2

	page := e.Run(peopleRows(), 3, p)

	assert.Equal(t, 3, page.TotalRows)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, []types.RowPayload{
		{RowIndex: 1, Values: []string{"Bob", "250", ""}},
		{RowIndex: 2, Values: []string{"Charlie", "175", ""}},
	}, page.Rows)
}

func TestRunFilterGreaterThan(t *testing.T) {
	e := NewEngine(rules.Default())
	p := params()
	p.Filters = []types.FilterClause{{Column: 1, Operator: types.OpGt, Value: json.Number("200")}}

	page := e.Run(peopleRows(), 3, p)

	require.Len(t, page.Rows, 1)
	assert.Equal(t, 1, page.Rows[0].RowIndex)
	assert.Equal(t, 1, page.TotalRows)
}

func TestFilterNumericGreaterThan(t *testing.T) {
	e := NewEngine(rules.Default())
	rows := rowsOf([]string{"a", "100"}, []string{"b", "50"}, []string{"c", "200"})
	p := params()
	p.Filters = []types.FilterClause{{Column: 1, Operator: types.OpGt, Value: 150}}

	page := e.Run(rows, 2, p)
	assert.Equal(t, []int{2}, indexes(page.Rows))
}

func TestFilterOutOfRangeNumberMatchesNothing(t *testing.T) {
	e := NewEngine(rules.Default())
	rows := rowsOf([]string{"a", "100"}, []string{"b", "1e20000000"})

	tests := []struct {
		name string
		op   types.Operator
	}{
		{"gt", types.OpGt},
		{"lt", types.OpLt},
		{"eq", types.OpEq},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params()
			p.Filters = []types.FilterClause{{Column: 1, Operator: tt.op, Value: "1e20000000"}}
			page := e.Run(rows, 2, p)
			assert.Empty(t, page.Rows)
			assert.Equal(t, 0, page.TotalRows)
		})
	}
}

func TestSortOutOfRangeNumberSortsLast(t *testing.T) {
	e := NewEngine(rules.Default())
	rows := rowsOf([]string{"a", "1e-20000000"}, []string{"b", "5"}, []string{"c", "2"})
	p := params()
	p.SortColumn = intPtr(1)

	page := e.Run(rows, 2, p)
	assert.Equal(t, []int{2, 1, 0}, indexes(page.Rows))
}

func TestFilterOperators(t *testing.T) {
	e := NewEngine(rules.Default())
	rows := rowsOf(
		[]string{"Apple", "10"},
		[]string{"banana", ""},
		[]string{"apricot", "n/a"},
		[]string{"", "10.0"},
	)

	tests := []struct {
		name   string
		clause types.FilterClause
		want   []int
	}{
		{"contains is case-insensitive", types.FilterClause{Column: 0, Operator: types.OpContains, Value: "AP"}, []int{0, 2}},
		{"contains nil matches all", types.FilterClause{Column: 0, Operator: types.OpContains, Value: nil}, []int{0, 1, 2, 3}},
		{"contains on numeric column uses raw text", types.FilterClause{Column: 1, Operator: types.OpContains, Value: "/"}, []int{2}},
		{"eq numeric compares values", types.FilterClause{Column: 1, Operator: types.OpEq, Value: "10"}, []int{0, 3}},
		{"ne numeric keeps unparseable", types.FilterClause{Column: 1, Operator: types.OpNe, Value: "10"}, []int{1, 2}},
		{"eq unparseable target matches nothing", types.FilterClause{Column: 1, Operator: types.OpEq, Value: "zzz"}, []int{}},
		{"ne unparseable target keeps all", types.FilterClause{Column: 1, Operator: types.OpNe, Value: "zzz"}, []int{0, 1, 2, 3}},
		{"eq text is case-sensitive", types.FilterClause{Column: 0, Operator: types.OpEq, Value: "apple"}, []int{}},
		{"eq empty text never matches blank cell", types.FilterClause{Column: 0, Operator: types.OpEq, Value: ""}, []int{}},
		{"lte excludes unparseable", types.FilterClause{Column: 1, Operator: types.OpLte, Value: 10}, []int{0, 3}},
		{"lt", types.FilterClause{Column: 1, Operator: types.OpLt, Value: 10}, []int{}},
		{"gte", types.FilterClause{Column: 1, Operator: types.OpGte, Value: "9.99"}, []int{0, 3}},
		{"lt text lexicographic", types.FilterClause{Column: 0, Operator: types.OpLt, Value: "B"}, []int{0}},
		{"gt with nil target excludes all", types.FilterClause{Column: 1, Operator: types.OpGt, Value: nil}, []int{}},
		{"out of range column excludes all", types.FilterClause{Column: 5, Operator: types.OpContains, Value: ""}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params()
			p.Filters = []types.FilterClause{tt.clause}
			page := e.Run(rows, 2, p)
			assert.Equal(t, tt.want, indexes(page.Rows))
			assert.Equal(t, len(tt.want), page.TotalRows)
		})
	}
}

func TestFiltersCombineWithAnd(t *testing.T) {
	e := NewEngine(rules.Default())
	rows := rowsOf([]string{"x", "5"}, []string{"y", "15"}, []string{"x", "25"})
	p := params()
	p.Filters = []types.FilterClause{
		{Column: 0, Operator: types.OpEq, Value: "x"},
		{Column: 1, Operator: types.OpGt, Value: 10},
	}
	assert.Equal(t, []int{2}, indexes(e.Run(rows, 2, p).Rows))
}

func TestDateFilterAndSort(t *testing.T) {
	tbl := rules.New(map[int]types.ColumnRule{0: {Type: types.ColumnDate, AllowBlank: true}})
	e := NewEngine(tbl)
	rows := rowsOf([]string{"2024-05-01"}, []string{"bad"}, []string{"2023-01-15"}, []string{"2024-01-01"})

	p := params()
	p.Filters = []types.FilterClause{{Column: 0, Operator: types.OpGte, Value: "2024-01-01T08:00:00"}}
	assert.Equal(t, []int{0, 3}, indexes(e.Run(rows, 1, p).Rows))

	p = params()
	p.SortColumn = intPtr(0)
	assert.Equal(t, []int{2, 3, 0, 1}, indexes(e.Run(rows, 1, p).Rows))
}

func TestSortUnparseableLastBothDirections(t *testing.T) {
	e := NewEngine(rules.Default())
	rows := rowsOf(
		[]string{"", "x"},
		[]string{"", "3"},
		[]string{"", ""},
		[]string{"", "-1"},
		[]string{"", "20"},
	)

	p := params()
	p.SortColumn = intPtr(1)
	assert.Equal(t, []int{3, 1, 4, 0, 2}, indexes(e.Run(rows, 2, p).Rows))

	p.SortDirection = types.SortDesc
	assert.Equal(t, []int{4, 1, 3, 0, 2}, indexes(e.Run(rows, 2, p).Rows))
}

func TestSortIsStable(t *testing.T) {
	e := NewEngine(rules.Default())
	rows := rowsOf(
		[]string{"b", "1"},
		[]string{"A", "2"},
		[]string{"a", "1"},
		[]string{"B", "2"},
	)

	p := params()
	p.SortColumn = intPtr(1)
	assert.Equal(t, []int{0, 2, 1, 3}, indexes(e.Run(rows, 2, p).Rows))

	p.SortDirection = types.SortDesc
	assert.Equal(t, []int{1, 3, 0, 2}, indexes(e.Run(rows, 2, p).Rows))

	p = params()
	p.SortColumn = intPtr(0)
	assert.Equal(t, []int{1, 2, 0, 3}, indexes(e.Run(rows, 2, p).Rows))

	p.SortDirection = types.SortDesc
	assert.Equal(t, []int{0, 3, 1, 2}, indexes(e.Run(rows, 2, p).Rows))
}

func TestSortOutOfRangeKeepsOrder(t *testing.T) {
	e := NewEngine(rules.Default())
	rows := rowsOf([]string{"b"}, []string{"a"})
	p := params()
	p.SortColumn = intPtr(3)
	assert.Equal(t, []int{0, 1}, indexes(e.Run(rows, 1, p).Rows))

	p.SortColumn = nil
	assert.Equal(t, []int{0, 1}, indexes(e.Run(rows, 1, p).Rows))
}

func TestRunDoesNotReorderInput(t *testing.T) {
	e := NewEngine(rules.Default())
	rows := rowsOf([]string{"b"}, []string{"a"})
	p := params()
	p.SortColumn = intPtr(0)
	e.Run(rows, 1, p)
	assert.Equal(t, []int{0, 1}, indexes(rows))
}

func TestPaginate(t *testing.T) {
	rows := rowsOf([]string{"0"}, []string{"1"}, []string{"2"}, []string{"3"}, []string{"4"})

	tests := []struct {
		name     string
		page     int
		size     int
		want     []int
		wantSize int
	}{
		{"first page", 1, 2, []int{0, 1}, 2},
		{"last partial page", 3, 2, []int{4}, 2},
		{"past the end", 4, 2, []int{}, 2},
		{"page far past the end", math.MaxInt, 2, []int{}, 2},
		{"page far past the end with size one", math.MaxInt, 1, []int{}, 1},
		{"huge size returns all", 1, math.MaxInt, []int{0, 1, 2, 3, 4}, math.MaxInt},
		{"second page of huge size", 2, math.MaxInt, []int{}, math.MaxInt},
		{"size zero returns all", 1, 0, []int{0, 1, 2, 3, 4}, 5},
		{"size zero ignores page", 9, 0, []int{0, 1, 2, 3, 4}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, size := Paginate(rows, tt.page, tt.size)
			assert.Equal(t, tt.want, indexes(got))
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestRunPageSizeZeroReportsTotal(t *testing.T) {
	e := NewEngine(rules.Default())
	p := params()
	p.PageSize = 0
	page := e.Run(peopleRows(), 3, p)
	assert.Equal(t, 3, page.PageSize)
	assert.Equal(t, page.TotalRows, page.PageSize)
	assert.Len(t, page.Rows, 3)
}
