package domain

import (
	"fmt"
	"math"
)

// DefaultNoData is the sentinel written into cells without a valid observation.
const DefaultNoData = -99999.0

// Grid is a dense row-major raster. Values[i][j] is row i (north to south), column j (west to east).
type Grid struct {
	Values [][]float64 `json:"values"`
	NoData float64     `json:"nodata"`
	Bounds BoundingBox `json:"bounds"`
	Rows   CellRange   `json:"rows"` // Position of the grid within the archive geometry.
	Cols   CellRange   `json:"cols"`
}

// NewGrid allocates a rows x cols grid filled with the nodata sentinel.
func NewGrid(rows, cols int, noData float64) *Grid {
	values := make([][]float64, rows)
	backing := make([]float64, rows*cols)
	for i := range backing {
		backing[i] = noData
	}
	for i := 0; i < rows; i++ {
		values[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return &Grid{
		Values: values,
		NoData: noData,
		Rows:   CellRange{Start: 0, End: rows},
		Cols:   CellRange{Start: 0, End: cols},
	}
}

// Height is the number of rows.
func (g *Grid) Height() int {
	return len(g.Values)
}

// Width is the number of columns.
func (g *Grid) Width() int {
	if len(g.Values) == 0 {
		return 0
	}
	return len(g.Values[0])
}

// Validate checks that every row has the same width.
func (g *Grid) Validate() error {
	if len(g.Values) == 0 {
		return fmt.Errorf("grid has no rows")
	}
	width := len(g.Values[0])
	if width == 0 {
		return fmt.Errorf("grid has no columns")
	}
	for i, row := range g.Values {
		if len(row) != width {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), width)
		}
	}
	return nil
}

// IsNoData reports whether v is the sentinel or NaN.
func (g *Grid) IsNoData(v float64) bool {
	return v == g.NoData || math.IsNaN(v)
}

// At returns the value of a cell and whether it holds an observation.
func (g *Grid) At(row, col int) (float64, bool) {
	if row < 0 || row >= g.Height() || col < 0 || col >= g.Width() {
		return g.NoData, false
	}
	v := g.Values[row][col]
	return v, !g.IsNoData(v)
}

// Clone returns a deep copy that shares no backing storage with g.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.Height(), g.Width(), g.NoData)
	for i, row := range g.Values {
		copy(out.Values[i], row)
	}
	out.Bounds = g.Bounds
	out.Rows = g.Rows
	out.Cols = g.Cols
	return out
}

// Crop returns a new grid restricted to the given ranges, which are relative to g.
func (g *Grid) Crop(rows, cols CellRange) (*Grid, error) {
	if rows.Start < 0 || rows.End > g.Height() || rows.Len() <= 0 ||
		cols.Start < 0 || cols.End > g.Width() || cols.Len() <= 0 {
		return nil, fmt.Errorf("%w: rows [%d, %d) cols [%d, %d) against %dx%d grid",
			ErrRangeOutOfGrid, rows.Start, rows.End, cols.Start, cols.End, g.Height(), g.Width())
	}
	out := NewGrid(rows.Len(), cols.Len(), g.NoData)
	for i := rows.Start; i < rows.End; i++ {
		copy(out.Values[i-rows.Start], g.Values[i][cols.Start:cols.End])
	}
	out.Rows = CellRange{Start: g.Rows.Start + rows.Start, End: g.Rows.Start + rows.End}
	out.Cols = CellRange{Start: g.Cols.Start + cols.Start, End: g.Cols.Start + cols.End}
	return out, nil
}

// Difference computes end - start cell by cell. A cell is nodata in the result
// when it is nodata in either input. The result uses start's sentinel.
func Difference(start, end *Grid) (*Grid, error) {
	if start.Height() != end.Height() || start.Width() != end.Width() {
		return nil, fmt.Errorf("%w: cannot difference %dx%d and %dx%d grids",
			ErrRangeOutOfGrid, start.Height(), start.Width(), end.Height(), end.Width())
	}
	out := NewGrid(start.Height(), start.Width(), start.NoData)
	out.Bounds = start.Bounds
	out.Rows = start.Rows
	out.Cols = start.Cols
	for i := range start.Values {
		for j, a := range start.Values[i] {
			b := end.Values[i][j]
			if start.IsNoData(a) || end.IsNoData(b) {
				continue
			}
			out.Values[i][j] = b - a
		}
	}
	return out, nil
}
