package domain

import (
	"errors"
	"math"
	"testing"
)

func TestGridGeometry_CellOf(t *testing.T) {
	g := DefaultGeometry()
	tests := []struct {
		name     string
		lat, lon float64
		want     GridCell
	}{
		{"upper-left corner", 90, -180, GridCell{0, 0}},
		{"lower-right corner", -90, 180, GridCell{179, 359}},
		{"origin of equator", 0, 0, GridCell{90, 180}},
		{"inside cell", 59.5, -119.5, GridCell{30, 60}},
		{"cell edge belongs to cell below", 60, -120, GridCell{30, 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.CellOf(tt.lat, tt.lon)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CellOf(%.2f, %.2f) = %+v, want %+v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestGridGeometry_CellOf_OutOfBounds(t *testing.T) {
	g := DefaultGeometry()
	for _, c := range []LatLon{{91, 0}, {-90.5, 0}, {0, 181}, {0, -180.1}, {math.NaN(), 0}} {
		if _, err := g.CellOf(c.Lat, c.Lon); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("CellOf(%v, %v): expected ErrOutOfBounds, got %v", c.Lat, c.Lon, err)
		}
	}
}

func TestGridGeometry_CellRangeOf(t *testing.T) {
	g := DefaultGeometry()
	box := BoundingBox{UpperLeft: LatLon{60, -120}, LowerRight: LatLon{58, -118}}

	rows, cols, err := g.CellRangeOf(box)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != (CellRange{30, 32}) || cols != (CellRange{60, 62}) {
		t.Fatalf("CellRangeOf = rows %+v cols %+v, want rows {30 32} cols {60 62}", rows, cols)
	}

	// Deterministic.
	for i := 0; i < 3; i++ {
		r2, c2, err := g.CellRangeOf(box)
		if err != nil || r2 != rows || c2 != cols {
			t.Fatalf("repeat %d gave rows %+v cols %+v err %v", i, r2, c2, err)
		}
	}

	bounds := g.CellBounds(rows, cols)
	if bounds != box {
		t.Errorf("CellBounds = %+v, want %+v", bounds, box)
	}
}

func TestGridGeometry_CellRangeOf_PartialCells(t *testing.T) {
	g := DefaultGeometry()
	box := BoundingBox{UpperLeft: LatLon{60.2, -119.8}, LowerRight: LatLon{60.1, -119.7}}
	rows, cols, err := g.CellRangeOf(box)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != (CellRange{29, 30}) || cols != (CellRange{60, 61}) {
		t.Errorf("got rows %+v cols %+v", rows, cols)
	}
}

func TestGridGeometry_CellRangeOf_Clipped(t *testing.T) {
	g := GridGeometry{OriginLat: 10, OriginLon: 0, CellSize: 1, Rows: 10, Cols: 10}
	box := BoundingBox{UpperLeft: LatLon{20, -5}, LowerRight: LatLon{5, 3}}
	rows, cols, err := g.CellRangeOf(box)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != (CellRange{0, 5}) || cols != (CellRange{0, 3}) {
		t.Errorf("got rows %+v cols %+v", rows, cols)
	}
}

func TestGridGeometry_CellRangeOf_Degenerate(t *testing.T) {
	g := GridGeometry{OriginLat: 10, OriginLon: 0, CellSize: 1, Rows: 10, Cols: 10}
	tests := []struct {
		name string
		box  BoundingBox
	}{
		{"inverted latitude", BoundingBox{LatLon{5, 1}, LatLon{6, 2}}},
		{"inverted longitude", BoundingBox{LatLon{6, 3}, LatLon{5, 2}}},
		{"zero area", BoundingBox{LatLon{5, 2}, LatLon{5, 2}}},
		{"outside grid", BoundingBox{LatLon{40, 50}, LatLon{30, 60}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := g.CellRangeOf(tt.box); !errors.Is(err, ErrDegenerateBoundingBox) {
				t.Errorf("expected ErrDegenerateBoundingBox, got %v", err)
			}
		})
	}
}

func TestGridGeometry_CellCenter(t *testing.T) {
	g := DefaultGeometry()
	c := g.CellCenter(GridCell{Row: 30, Col: 60})
	if c.Lat != 59.5 || c.Lon != -119.5 {
		t.Errorf("CellCenter = %+v, want {59.5 -119.5}", c)
	}
}

func TestGridGeometry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		g       GridGeometry
		wantErr bool
	}{
		{"default", DefaultGeometry(), false},
		{"zero cell size", GridGeometry{CellSize: 0, Rows: 1, Cols: 1}, true},
		{"no rows", GridGeometry{CellSize: 1, Rows: 0, Cols: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.g.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseBoundingBox(t *testing.T) {
	box, err := ParseBoundingBox("60, -120, 58,-118")
	if err != nil {
		t.Fatalf("ParseBoundingBox: %v", err)
	}
	want := BoundingBox{UpperLeft: LatLon{Lat: 60, Lon: -120}, LowerRight: LatLon{Lat: 58, Lon: -118}}
	if box != want {
		t.Errorf("got %+v, want %+v", box, want)
	}

	for _, in := range []string{"", "1,2,3", "1,2,3,x", "1,2,3,NaN", "1,2,3,4,5"} {
		if _, err := ParseBoundingBox(in); err == nil {
			t.Errorf("ParseBoundingBox(%q) succeeded, want error", in)
		}
	}
}
