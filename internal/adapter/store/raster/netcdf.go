// Package raster decodes GRACE Tellus NetCDF grids into the archive geometry.
package raster

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"go.ngs.io/grace-api/internal/adapter/store"
	"go.ngs.io/grace-api/internal/domain"
)

// DefaultVariable is the liquid water equivalent thickness variable of the land grids.
const DefaultVariable = "lwe_thickness"

// Options configures a Store.
type Options struct {
	Geometry domain.GridGeometry
	Variable string        // Data variable; falls back to common names when absent.
	NoData   float64       // Sentinel written into fill and NaN cells.
	CacheTTL time.Duration // Zero disables caching.
}

// Store loads rasters from local NetCDF files. Files can be local disk files or
// FUSE-mounted object storage paths.
type Store struct {
	opts   Options
	cache  *cache.Cache
	stats  CacheStats
	logger zerolog.Logger

	// The NetCDF C library is not safe for concurrent use.
	ioMu sync.Mutex
}

// NewStore creates a NetCDF raster store.
func NewStore(opts Options, logger zerolog.Logger) *Store {
	if opts.Variable == "" {
		opts.Variable = DefaultVariable
	}
	s := &Store{
		opts:   opts,
		logger: logger.With().Str("component", "raster").Logger(),
	}
	if opts.CacheTTL > 0 {
		s.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return s
}

// Stats exposes cache hit and miss counters.
func (s *Store) Stats() *CacheStats {
	return &s.stats
}

// Purge drops every cached grid, e.g. after a workspace rescan.
func (s *Store) Purge() {
	if s.cache != nil {
		s.cache.Flush()
	}
	s.stats.Reset()
}

// Load decodes the entry's file. The returned grid is a private copy.
func (s *Store) Load(entry store.Entry) (*domain.Grid, error) {
	var key string
	if s.cache != nil {
		var err error
		if key, err = cacheKey(entry.Path); err != nil {
			return nil, &domain.RasterError{Path: entry.Path, Epoch: entry.Epoch, Err: err}
		}
		if v, ok := s.cache.Get(key); ok {
			s.stats.Hit()
			//nolint:forcetypeassert // Only *domain.Grid values are stored.
			return v.(*domain.Grid).Clone(), nil
		}
		s.stats.Miss()
	}

	s.logger.Debug().Str("path", entry.Path).Str("epoch", entry.Epoch.String()).Msg("decoding raster")
	grid, err := s.decode(entry.Path)
	if err != nil {
		return nil, &domain.RasterError{Path: entry.Path, Epoch: entry.Epoch, Err: err}
	}
	if s.cache != nil {
		s.cache.SetDefault(key, grid)
	}
	return grid.Clone(), nil
}

// cacheKey identifies one version of a file. A file rewritten in place gets a
// new key even before the workspace is rescanned.
func cacheKey(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s@%d:%d", path, info.ModTime().UnixNano(), info.Size()), nil
}

// decode reads the data variable and places every value in its geometry cell.
//
//nolint:gocyclo // NetCDF layout detection has many cases.
func (s *Store) decode(path string) (*domain.Grid, error) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	latData, latDim, err := readAxis(nc, []string{"lat", "latitude", "y"})
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}
	lonData, lonDim, err := readAxis(nc, []string{"lon", "longitude", "x"})
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}

	g := s.opts.Geometry
	if len(latData) != g.Rows || len(lonData) != g.Cols {
		return nil, fmt.Errorf("axes are %dx%d, grid geometry expects %dx%d", len(latData), len(lonData), g.Rows, g.Cols)
	}
	rowOf, err := axisToRows(g, latData)
	if err != nil {
		return nil, err
	}
	colOf, err := axisToCols(g, lonData)
	if err != nil {
		return nil, err
	}

	dataNames := []string{s.opts.Variable, DefaultVariable, "lwe", "data", "z"}
	var dataVar netcdf.Var
	var dataFound bool
	for _, name := range dataNames {
		if v, err := nc.Var(name); err == nil {
			dataVar = v
			dataFound = true
			break
		}
	}
	if !dataFound {
		return nil, fmt.Errorf("data variable not found (tried: %v)", dataNames)
	}

	dims, err := dataVar.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	lens := make([]uint64, len(dims))
	names := make([]string, len(dims))
	for i, d := range dims {
		if lens[i], err = d.Len(); err != nil {
			return nil, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
		if names[i], err = d.Name(); err != nil {
			return nil, fmt.Errorf("failed to get dim%d name: %w", i, err)
		}
	}
	// A leading singleton time dimension is dropped.
	if len(lens) == 3 && lens[0] == 1 {
		lens, names = lens[1:], names[1:]
	}
	if len(lens) != 2 {
		return nil, fmt.Errorf("expected 2D data (optionally with a single time step), got %dD", len(dims))
	}

	nLat, nLon := uint64(len(latData)), uint64(len(lonData))
	lonFirst, err := dimOrder(names, lens, latDim, lonDim, nLat, nLon)
	if err != nil {
		return nil, err
	}

	flat, err := readFloat64s(dataVar, int(nLat*nLon))
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	fill, hasFill := readScalarAttr(dataVar, "_FillValue")
	if !hasFill {
		fill, hasFill = readScalarAttr(dataVar, "missing_value")
	}
	// CF packing: unpacked = packed*scale_factor + add_offset.
	scale, hasScale := readScalarAttr(dataVar, "scale_factor")
	if !hasScale || scale == 0 {
		scale = 1
	}
	offset, _ := readScalarAttr(dataVar, "add_offset")

	grid := domain.NewGrid(g.Rows, g.Cols, s.opts.NoData)
	grid.Bounds = g.Extent()
	for i := 0; i < len(latData); i++ {
		for j := 0; j < len(lonData); j++ {
			idx := i*len(lonData) + j
			if lonFirst {
				idx = j*len(latData) + i
			}
			v := flat[idx]
			if math.IsNaN(v) || (hasFill && v == fill) {
				continue
			}
			v = v*scale + offset
			grid.Values[rowOf[i]][colOf[j]] = v
		}
	}
	return grid, nil
}

// dimOrder reports whether the data variable is stored [lon, lat]. The order
// is taken from the dimension names shared with the axis variables; lengths
// decide only when the names say nothing and the axes differ in length.
func dimOrder(names []string, lens []uint64, latDim, lonDim string, nLat, nLon uint64) (bool, error) {
	var lonFirst bool
	switch {
	case names[0] == latDim && names[1] == lonDim:
		lonFirst = false
	case names[0] == lonDim && names[1] == latDim:
		lonFirst = true
	case nLat == nLon:
		return false, fmt.Errorf("cannot tell latitude from longitude: data dims [%s, %s], axis dims %s and %s",
			names[0], names[1], latDim, lonDim)
	case lens[0] == nLat && lens[1] == nLon:
		lonFirst = false
	case lens[0] == nLon && lens[1] == nLat:
		lonFirst = true
	}
	want := [2]uint64{nLat, nLon}
	if lonFirst {
		want = [2]uint64{nLon, nLat}
	}
	if lens[0] != want[0] || lens[1] != want[1] {
		return false, fmt.Errorf("dimension mismatch: data is [%d, %d], expected [%d, %d]",
			lens[0], lens[1], want[0], want[1])
	}
	return lonFirst, nil
}

// axisToRows maps each latitude centre to its geometry row. Both ascending and
// descending axes are accepted.
func axisToRows(g domain.GridGeometry, lats []float64) ([]int, error) {
	rows := make([]int, len(lats))
	seen := make([]bool, g.Rows)
	for i, lat := range lats {
		r := int(math.Floor((g.OriginLat - lat) / g.CellSize))
		if r < 0 || r >= g.Rows || seen[r] {
			return nil, fmt.Errorf("latitude %.4f does not match grid geometry", lat)
		}
		seen[r] = true
		rows[i] = r
	}
	return rows, nil
}

// axisToCols maps each longitude centre to its geometry column, wrapping a
// 0..360 axis onto the geometry's longitude range.
func axisToCols(g domain.GridGeometry, lons []float64) ([]int, error) {
	cols := make([]int, len(lons))
	seen := make([]bool, g.Cols)
	for j, lon := range lons {
		c := int(math.Floor((wrapLon(g, lon) - g.OriginLon) / g.CellSize))
		if c < 0 || c >= g.Cols || seen[c] {
			return nil, fmt.Errorf("longitude %.4f does not match grid geometry", lon)
		}
		seen[c] = true
		cols[j] = c
	}
	return cols, nil
}

// wrapLon shifts lon by whole turns into [OriginLon, OriginLon+360).
func wrapLon(g domain.GridGeometry, lon float64) float64 {
	lon = math.Mod(lon-g.OriginLon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon + g.OriginLon
}

// readAxis reads the first 1D coordinate variable found among names and
// returns its values with the name of its dimension.
func readAxis(nc netcdf.Dataset, names []string) ([]float64, string, error) {
	for _, name := range names {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		dims, err := v.Dims()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get dimensions of %s: %w", name, err)
		}
		if len(dims) != 1 {
			return nil, "", fmt.Errorf("expected 1D variable %s, got %dD", name, len(dims))
		}
		n, err := dims[0].Len()
		if err != nil {
			return nil, "", err
		}
		dim, err := dims[0].Name()
		if err != nil {
			return nil, "", err
		}
		values, err := readFloat64s(v, int(n))
		return values, dim, err
	}
	return nil, "", fmt.Errorf("variable not found (tried: %v)", names)
}

// readFloat64s reads n values of a DOUBLE, FLOAT, INT or SHORT variable as float64.
func readFloat64s(v netcdf.Var, n int) ([]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}

	out := make([]float64, n)
	switch varType {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64s(out); err != nil {
			return nil, fmt.Errorf("failed to read float64: %w", err)
		}
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if err := v.ReadFloat32s(buf); err != nil {
			return nil, fmt.Errorf("failed to read float32: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	case netcdf.INT:
		buf := make([]int32, n)
		if err := v.ReadInt32s(buf); err != nil {
			return nil, fmt.Errorf("failed to read int32: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	case netcdf.SHORT:
		buf := make([]int16, n)
		if err := v.ReadInt16s(buf); err != nil {
			return nil, fmt.Errorf("failed to read int16: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	case netcdf.BYTE, netcdf.UBYTE, netcdf.CHAR, netcdf.USHORT, netcdf.UINT, netcdf.INT64, netcdf.UINT64, netcdf.STRING:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", varType)
	default:
		return nil, fmt.Errorf("unsupported data type: %v", varType)
	}
	return out, nil
}

// readScalarAttr reads a numeric attribute of any common type.
func readScalarAttr(v netcdf.Var, name string) (float64, bool) {
	attr := v.Attr(name)
	n, err := attr.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	f64 := make([]float64, n)
	if err := attr.ReadFloat64s(f64); err == nil {
		return f64[0], true
	}
	f32 := make([]float32, n)
	if err := attr.ReadFloat32s(f32); err == nil {
		return float64(f32[0]), true
	}
	i32 := make([]int32, n)
	if err := attr.ReadInt32s(i32); err == nil {
		return float64(i32[0]), true
	}
	i16 := make([]int16, n)
	if err := attr.ReadInt16s(i16); err == nil {
		return float64(i16[0]), true
	}
	return 0, false
}
