// Package rastertest writes small GRD-3 style NetCDF files for tests.
package rastertest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/grace-api/internal/domain"
)

// Layout controls how a fixture file stores its axes.
type Layout struct {
	AscendingLat bool     // Write latitude south to north, as the Tellus files do.
	Lon360       bool     // Write longitudes on a 0..360 axis.
	TimeDim      bool     // Prefix the data variable with a singleton time dimension.
	LonFirst     bool     // Store data as [lon, lat].
	FillValue    *float32 // Written as _FillValue when set.
	ScaleFactor  *float32 // Written as scale_factor when set.
	AddOffset    *float32 // Written as add_offset when set.
	Variable     string   // Defaults to lwe_thickness.
}

// FileName renders the conventional GRD-3 name of the month containing e.
func FileName(e domain.Epoch) string {
	start := e.Date()
	end := start.AddDate(0, 1, -1)
	return "GRD-3_" + e.String() + "-" + domain.Epoch{Year: end.Year(), Day: end.YearDay()}.String() +
		"_GRAC_UTCSR_BA01_0600_LND_v03.nc"
}

// WriteMonth writes values (north-up, geometry order) for the month starting at e
// into dir and returns the file path.
func WriteMonth(t testing.TB, dir string, g domain.GridGeometry, e domain.Epoch, values [][]float64) string {
	t.Helper()
	p := filepath.Join(dir, FileName(e))
	WriteGrid(t, p, g, values, Layout{AscendingLat: true})
	return p
}

// Constant returns a rows x cols grid filled with v.
func Constant(g domain.GridGeometry, v float64) [][]float64 {
	out := make([][]float64, g.Rows)
	for i := range out {
		out[i] = make([]float64, g.Cols)
		for j := range out[i] {
			out[i][j] = v
		}
	}
	return out
}

// WriteGrid writes values, given north-up with columns west to east, using layout.
func WriteGrid(t testing.TB, path string, g domain.GridGeometry, values [][]float64, layout Layout) {
	t.Helper()
	//nolint:gosec // G301: Standard test directory permissions.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	defer func() { _ = f.Close() }()

	lats := make([]float64, g.Rows)
	rowOrder := make([]int, g.Rows)
	for i := range lats {
		r := i
		if layout.AscendingLat {
			r = g.Rows - 1 - i
		}
		rowOrder[i] = r
		lats[i] = g.OriginLat - (float64(r)+0.5)*g.CellSize
	}
	lons := make([]float64, g.Cols)
	colOrder := make([]int, g.Cols)
	for j := range lons {
		colOrder[j] = j
		lons[j] = g.OriginLon + (float64(j)+0.5)*g.CellSize
	}
	if layout.Lon360 {
		// Rotate so the axis starts at the first non-negative longitude.
		shift := 0
		for shift < g.Cols && lons[shift] < 0 {
			shift++
		}
		rotatedLons := make([]float64, g.Cols)
		for j := range lons {
			src := (j + shift) % g.Cols
			colOrder[j] = src
			rotatedLons[j] = lons[src]
			if rotatedLons[j] < 0 {
				rotatedLons[j] += 360
			}
		}
		lons = rotatedLons
	}

	latDim, err := f.AddDim("lat", uint64(g.Rows))
	if err != nil {
		t.Fatalf("add lat dim: %v", err)
	}
	lonDim, err := f.AddDim("lon", uint64(g.Cols))
	if err != nil {
		t.Fatalf("add lon dim: %v", err)
	}
	dataDims := []netcdf.Dim{latDim, lonDim}
	if layout.LonFirst {
		dataDims = []netcdf.Dim{lonDim, latDim}
	}
	if layout.TimeDim {
		timeDim, err := f.AddDim("time", 1)
		if err != nil {
			t.Fatalf("add time dim: %v", err)
		}
		dataDims = append([]netcdf.Dim{timeDim}, dataDims...)
	}

	name := layout.Variable
	if name == "" {
		name = "lwe_thickness"
	}
	vlat, _ := f.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	vlon, _ := f.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	vdata, err := f.AddVar(name, netcdf.FLOAT, dataDims)
	if err != nil {
		t.Fatalf("add data var: %v", err)
	}
	for _, attr := range []struct {
		name  string
		value *float32
	}{
		{"_FillValue", layout.FillValue},
		{"scale_factor", layout.ScaleFactor},
		{"add_offset", layout.AddOffset},
	} {
		if attr.value == nil {
			continue
		}
		if err := vdata.Attr(attr.name).WriteFloat32s([]float32{*attr.value}); err != nil {
			t.Fatalf("write %s: %v", attr.name, err)
		}
	}

	if err := f.EndDef(); err != nil {
		t.Fatalf("enddef: %v", err)
	}
	if err := vlat.WriteFloat64s(lats); err != nil {
		t.Fatalf("write lat: %v", err)
	}
	if err := vlon.WriteFloat64s(lons); err != nil {
		t.Fatalf("write lon: %v", err)
	}

	flat := make([]float32, 0, g.Rows*g.Cols)
	if layout.LonFirst {
		for _, c := range colOrder {
			for _, r := range rowOrder {
				flat = append(flat, float32(values[r][c]))
			}
		}
	} else {
		for _, r := range rowOrder {
			for _, c := range colOrder {
				flat = append(flat, float32(values[r][c]))
			}
		}
	}
	if err := vdata.WriteFloat32s(flat); err != nil {
		t.Fatalf("write data: %v", err)
	}
}
