package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// edgeEpsilon absorbs floating point noise when a box edge sits on a cell edge.
const edgeEpsilon = 1e-9

// LatLon is a geographic coordinate in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox is an area of interest given by its upper-left and lower-right corners.
type BoundingBox struct {
	UpperLeft  LatLon `json:"upper_left"`
	LowerRight LatLon `json:"lower_right"`
}

// ParseBoundingBox reads "ul_lat,ul_lon,lr_lat,lr_lon". Corner order is not
// checked; see Validate.
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bounding box must be ul_lat,ul_lon,lr_lat,lr_lon, got %q", s)
	}
	return ParseCorners(parts[0], parts[1], parts[2], parts[3])
}

// ParseCorners builds a box from its four coordinate strings.
func ParseCorners(ulLat, ulLon, lrLat, lrLon string) (BoundingBox, error) {
	var v [4]float64
	for i, raw := range []string{ulLat, ulLon, lrLat, lrLon} {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return BoundingBox{}, fmt.Errorf("invalid bounding box coordinate %q", raw)
		}
		v[i] = f
	}
	return BoundingBox{
		UpperLeft:  LatLon{Lat: v[0], Lon: v[1]},
		LowerRight: LatLon{Lat: v[2], Lon: v[3]},
	}, nil
}

// Validate checks corner ordering: north above south, west left of east.
func (b BoundingBox) Validate() error {
	if b.UpperLeft.Lat < b.LowerRight.Lat {
		return fmt.Errorf("%w: upper-left latitude %.4f is south of lower-right latitude %.4f",
			ErrDegenerateBoundingBox, b.UpperLeft.Lat, b.LowerRight.Lat)
	}
	if b.UpperLeft.Lon > b.LowerRight.Lon {
		return fmt.Errorf("%w: upper-left longitude %.4f is east of lower-right longitude %.4f",
			ErrDegenerateBoundingBox, b.UpperLeft.Lon, b.LowerRight.Lon)
	}
	return nil
}

// GridCell is a (row, column) index into the archive grid.
type GridCell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// CellRange is a half-open index interval [Start, End).
type CellRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len is the number of indices in the range.
func (r CellRange) Len() int {
	return r.End - r.Start
}

// GridGeometry is the fixed affine mapping between coordinates and cells of a
// north-up grid. OriginLat/OriginLon locate the upper-left corner of cell (0, 0).
type GridGeometry struct {
	OriginLat float64 `json:"origin_lat"`
	OriginLon float64 `json:"origin_lon"`
	CellSize  float64 `json:"cell_size"`
	Rows      int     `json:"rows"`
	Cols      int     `json:"cols"`
}

// DefaultGeometry is the 1 degree global grid of the GRACE Tellus land products.
func DefaultGeometry() GridGeometry {
	return GridGeometry{OriginLat: 90, OriginLon: -180, CellSize: 1, Rows: 180, Cols: 360}
}

// Validate checks the geometry describes a non-empty grid.
func (g GridGeometry) Validate() error {
	if g.CellSize <= 0 || math.IsNaN(g.CellSize) || math.IsInf(g.CellSize, 0) {
		return fmt.Errorf("cell size must be positive, got %v", g.CellSize)
	}
	if g.Rows <= 0 || g.Cols <= 0 {
		return fmt.Errorf("grid must have positive dimensions, got %dx%d", g.Rows, g.Cols)
	}
	return nil
}

// Extent returns the bounding box covered by the whole grid.
func (g GridGeometry) Extent() BoundingBox {
	return BoundingBox{
		UpperLeft:  LatLon{Lat: g.OriginLat, Lon: g.OriginLon},
		LowerRight: LatLon{Lat: g.minLat(), Lon: g.maxLon()},
	}
}

func (g GridGeometry) minLat() float64 {
	return g.OriginLat - float64(g.Rows)*g.CellSize
}

func (g GridGeometry) maxLon() float64 {
	return g.OriginLon + float64(g.Cols)*g.CellSize
}

// Contains reports whether the coordinate lies within the grid extent (edges included).
func (g GridGeometry) Contains(lat, lon float64) bool {
	return lat <= g.OriginLat && lat >= g.minLat() && lon >= g.OriginLon && lon <= g.maxLon()
}

// CellOf maps a coordinate to the cell containing it.
// Points on the southern or eastern grid edge resolve to the last row or column.
func (g GridGeometry) CellOf(lat, lon float64) (GridCell, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || !g.Contains(lat, lon) {
		return GridCell{}, fmt.Errorf("%w: (%.4f, %.4f) outside grid extent lat [%.4f, %.4f] lon [%.4f, %.4f]",
			ErrOutOfBounds, lat, lon, g.minLat(), g.OriginLat, g.OriginLon, g.maxLon())
	}
	row := int(math.Floor((g.OriginLat - lat) / g.CellSize))
	col := int(math.Floor((lon - g.OriginLon) / g.CellSize))
	return GridCell{
		Row: clamp(row, 0, g.Rows-1),
		Col: clamp(col, 0, g.Cols-1),
	}, nil
}

// CellRangeOf returns the rows and columns of every cell intersecting box,
// clipped to the grid extent.
func (g GridGeometry) CellRangeOf(box BoundingBox) (CellRange, CellRange, error) {
	if err := box.Validate(); err != nil {
		return CellRange{}, CellRange{}, err
	}
	rows := CellRange{
		Start: clamp(int(math.Floor((g.OriginLat-box.UpperLeft.Lat)/g.CellSize+edgeEpsilon)), 0, g.Rows),
		End:   clamp(int(math.Ceil((g.OriginLat-box.LowerRight.Lat)/g.CellSize-edgeEpsilon)), 0, g.Rows),
	}
	cols := CellRange{
		Start: clamp(int(math.Floor((box.UpperLeft.Lon-g.OriginLon)/g.CellSize+edgeEpsilon)), 0, g.Cols),
		End:   clamp(int(math.Ceil((box.LowerRight.Lon-g.OriginLon)/g.CellSize-edgeEpsilon)), 0, g.Cols),
	}
	if rows.Len() <= 0 || cols.Len() <= 0 {
		return CellRange{}, CellRange{}, fmt.Errorf("%w: box %+v covers no cells of the grid", ErrDegenerateBoundingBox, box)
	}
	return rows, cols, nil
}

// CellBounds returns the bounding box covered by the given cell ranges.
func (g GridGeometry) CellBounds(rows, cols CellRange) BoundingBox {
	return BoundingBox{
		UpperLeft: LatLon{
			Lat: g.OriginLat - float64(rows.Start)*g.CellSize,
			Lon: g.OriginLon + float64(cols.Start)*g.CellSize,
		},
		LowerRight: LatLon{
			Lat: g.OriginLat - float64(rows.End)*g.CellSize,
			Lon: g.OriginLon + float64(cols.End)*g.CellSize,
		},
	}
}

// CellCenter returns the coordinate at the centre of a cell.
func (g GridGeometry) CellCenter(c GridCell) LatLon {
	return LatLon{
		Lat: g.OriginLat - (float64(c.Row)+0.5)*g.CellSize,
		Lon: g.OriginLon + (float64(c.Col)+0.5)*g.CellSize,
	}
}

// clamp ensures value is within [minVal, maxVal] range.
func clamp(value, minVal, maxVal int) int {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
