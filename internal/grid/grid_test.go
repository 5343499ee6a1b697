package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

func TestSetAndDense(t *testing.T) {
	g := New(2, 3)
	assert.True(t, g.Set(0, 0, "a"))
	assert.True(t, g.Set(1, 2, "b"))

	assert.Equal(t, [][]string{{"a", "", ""}, {"", "", "b"}}, g.Dense())
	assert.Equal(t, 2, g.Len())
}

func TestSetIgnoresOutOfBounds(t *testing.T) {
	g := New(2, 2)
	assert.False(t, g.Set(2, 0, "x"))
	assert.False(t, g.Set(0, -1, "x"))
	assert.Equal(t, 0, g.Len())
}

func TestBlankDeletes(t *testing.T) {
	g := New(1, 1)
	g.Set(0, 0, "x")
	g.Set(0, 0, "")
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, "", g.Get(0, 0))

	// deleting an absent cell is a no-op
	assert.True(t, g.Set(0, 0, ""))
}

func TestSetIsIdempotent(t *testing.T) {
	g := New(2, 2)
	g.Set(1, 1, "v")
	once := g.Dense()
	g.Set(1, 1, "v")
	assert.Equal(t, once, g.Dense())
}

func TestResizeIsNonDestructive(t *testing.T) {
	g := New(3, 3)
	g.Set(2, 2, "corner")

	g.Resize(2, 2)
	assert.Equal(t, [][]string{{"", ""}, {"", ""}}, g.Dense())
	assert.Equal(t, 1, g.Len())

	g.Resize(3, 3)
	assert.Equal(t, "corner", g.Dense()[2][2])
}

func TestResizeIgnoresNonPositive(t *testing.T) {
	g := New(4, 5)
	g.Resize(0, -1)
	assert.Equal(t, 4, g.Rows())
	assert.Equal(t, 5, g.Cols())

	g.Resize(6, 0)
	assert.Equal(t, 6, g.Rows())
	assert.Equal(t, 5, g.Cols())
}

func TestFromCellsKeepsGhostCells(t *testing.T) {
	g := FromCells(1, 1, []types.Cell{
		{Row: 0, Col: 0, Value: "in"},
		{Row: 5, Col: 5, Value: "ghost"},
	})
	assert.Equal(t, [][]string{{"in"}}, g.Dense())
	assert.Equal(t, []types.Cell{{Row: 0, Col: 0, Value: "in"}}, g.NonEmptyInBounds())
	assert.Len(t, g.Cells(), 2)
}

func TestCellsOrdered(t *testing.T) {
	g := New(3, 3)
	g.Set(2, 0, "c")
	g.Set(0, 1, "b")
	g.Set(0, 0, "a")

	assert.Equal(t, []types.Cell{
		{Row: 0, Col: 0, Value: "a"},
		{Row: 0, Col: 1, Value: "b"},
		{Row: 2, Col: 0, Value: "c"},
	}, g.Cells())
}

func TestRowPayloads(t *testing.T) {
	g := New(2, 1)
	g.Set(1, 0, "x")
	rows := g.RowPayloads()
	assert.Equal(t, []types.RowPayload{
		{RowIndex: 0, Values: []string{""}},
		{RowIndex: 1, Values: []string{"x"}},
	}, rows)
}

func TestCloneIsIndependent(t *testing.T) {
	g := New(1, 1)
	g.Set(0, 0, "a")
	c := g.Clone()
	c.Set(0, 0, "b")
	c.Resize(2, 2)

	assert.Equal(t, "a", g.Get(0, 0))
	assert.Equal(t, 1, g.Rows())
}
