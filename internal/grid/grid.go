// Package grid holds a sheet's cells as a sparse map with width and height,
// and materializes the dense rectangular view on demand.
package grid

import (
	"sort"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

type key struct {
	row, col int
}

// Grid is a sparse cell map bounded by rows and cols. Cells outside the
// bounds may be held (a shrink never drops them) but never appear in the
// dense view. Grid is not safe for concurrent use.
type Grid struct {
	rows, cols int
	cells      map[key]string
}

// New returns an empty grid with the given dimensions.
func New(rows, cols int) *Grid {
	return &Grid{rows: rows, cols: cols, cells: make(map[key]string)}
}

// FromCells builds a grid and loads every given cell, in or out of bounds.
func FromCells(rows, cols int, cells []types.Cell) *Grid {
	g := New(rows, cols)
	for _, c := range cells {
		g.Load(c.Row, c.Col, c.Value)
	}
	return g
}

// Rows returns the row count.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the column count.
func (g *Grid) Cols() int { return g.cols }

// Len returns the number of stored cells, including out-of-bounds ones.
func (g *Grid) Len() int { return len(g.cells) }

// InBounds reports whether (row, col) is inside the current dimensions.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < g.rows && col < g.cols
}

// Resize changes the dimensions. Non-positive values leave that dimension
// unchanged. Stored cells are kept.
func (g *Grid) Resize(rows, cols int) {
	if rows > 0 {
		g.rows = rows
	}
	if cols > 0 {
		g.cols = cols
	}
}

// Get returns the stored value, or "" if absent.
func (g *Grid) Get(row, col int) string {
	return g.cells[key{row, col}]
}

// Set writes value at (row, col); an empty value deletes the cell.
// Out-of-bounds writes are ignored and report false.
func (g *Grid) Set(row, col int, value string) bool {
	if !g.InBounds(row, col) {
		return false
	}
	g.Load(row, col, value)
	return true
}

// Load stores value without a bounds check. An empty value deletes.
func (g *Grid) Load(row, col int, value string) {
	k := key{row, col}
	if value == "" {
		delete(g.cells, k)
		return
	}
	g.cells[k] = value
}

// Cells returns every stored cell ordered by row, then column.
func (g *Grid) Cells() []types.Cell {
	out := make([]types.Cell, 0, len(g.cells))
	for k, v := range g.cells {
		out = append(out, types.Cell{Row: k.row, Col: k.col, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Dense materializes rows x cols strings, overlaying in-bounds cells.
func (g *Grid) Dense() [][]string {
	matrix := make([][]string, g.rows)
	for r := range matrix {
		matrix[r] = make([]string, g.cols)
	}
	for k, v := range g.cells {
		if g.InBounds(k.row, k.col) {
			matrix[k.row][k.col] = v
		}
	}
	return matrix
}

// RowPayloads returns the dense view with each row tagged by its index.
func (g *Grid) RowPayloads() []types.RowPayload {
	dense := g.Dense()
	out := make([]types.RowPayload, len(dense))
	for i, values := range dense {
		out[i] = types.RowPayload{RowIndex: i, Values: values}
	}
	return out
}

// NonEmptyInBounds returns the coordinates of stored cells inside the
// current dimensions, ordered by row then column.
func (g *Grid) NonEmptyInBounds() []types.Cell {
	var out []types.Cell
	for _, c := range g.Cells() {
		if g.InBounds(c.Row, c.Col) {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	c := &Grid{rows: g.rows, cols: g.cols, cells: make(map[key]string, len(g.cells))}
	for k, v := range g.cells {
		c.cells[k] = v
	}
	return c
}
