package usecase

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"go.ngs.io/grace-api/internal/adapter/store/catalog"
	"go.ngs.io/grace-api/internal/adapter/store/raster"
	"go.ngs.io/grace-api/internal/adapter/store/raster/rastertest"
	"go.ngs.io/grace-api/internal/domain"
)

// testGeometry is a global 10 degree grid (18 rows x 36 columns).
var testGeometry = domain.GridGeometry{OriginLat: 90, OriginLon: -180, CellSize: 10, Rows: 18, Cols: 36}

// testBox covers rows [3, 5) and columns [6, 8) of testGeometry.
var testBox = domain.BoundingBox{
	UpperLeft:  domain.LatLon{Lat: 60, Lon: -120},
	LowerRight: domain.LatLon{Lat: 40, Lon: -100},
}

func month(y int, m time.Month) domain.Epoch {
	d := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return domain.Epoch{Year: y, Day: d.YearDay()}
}

// gradient returns base + 100*row + col for every cell.
func gradient(base float64) [][]float64 {
	out := rastertest.Constant(testGeometry, 0)
	for r := range out {
		for c := range out[r] {
			out[r][c] = base + float64(100*r+c)
		}
	}
	return out
}

func newEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	cat := catalog.New(domain.DefaultDateCodec(), nil, zerolog.Nop())
	_, err := cat.Scan(dir)
	require.NoError(t, err)
	loader := raster.NewStore(raster.Options{
		Geometry: testGeometry,
		NoData:   domain.DefaultNoData,
		CacheTTL: time.Minute,
	}, zerolog.Nop())
	e, err := NewEngine(Options{Geometry: testGeometry, Codec: domain.DefaultDateCodec(), Workers: 2}, cat, loader, zerolog.Nop())
	require.NoError(t, err)
	return e
}

// janAndMarch writes 2015 January (base 1000, one nodata cell) and March (base 1500).
func janAndMarch(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	jan := gradient(1000)
	jan[3][6] = domain.DefaultNoData
	rastertest.WriteMonth(t, dir, testGeometry, month(2015, time.January), jan)
	rastertest.WriteMonth(t, dir, testGeometry, month(2015, time.March), gradient(1500))
	return dir
}

func TestNewEngine_RejectsInvalidGeometry(t *testing.T) {
	_, err := NewEngine(Options{}, nil, nil, zerolog.Nop())
	require.Error(t, err)
}

func TestEngine_Epochs(t *testing.T) {
	e := newEngine(t, t.TempDir())
	start := time.Date(2015, time.February, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2015, time.April, 1, 0, 0, 0, 0, time.UTC)

	list, err := e.Epochs(start, end, false)
	require.NoError(t, err)
	require.Equal(t, []domain.Epoch{month(2015, time.February), month(2015, time.March), month(2015, time.April)}, list.Epochs)

	list, err = e.Epochs(start, end, true)
	require.NoError(t, err)
	require.Len(t, list.Epochs, 12)
	require.Equal(t, "2015-01-01", list.Start)
	require.Equal(t, "2015-12-31", list.End)

	_, err = e.Epochs(end, start, false)
	require.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestForEach_PreservesOrder(t *testing.T) {
	got, err := forEach(3, 50, func(i int) (int, error) {
		time.Sleep(time.Duration(50-i) * time.Microsecond)
		return i * i, nil
	})
	require.NoError(t, err)
	for i, v := range got {
		require.Equal(t, i*i, v)
	}
}

func TestForEach_FirstErrorFailsBatch(t *testing.T) {
	_, err := forEach(2, 10, func(i int) (int, error) {
		if i == 7 {
			return 0, os.ErrNotExist
		}
		return i, nil
	})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func writeCorrupt(t *testing.T, dir string, e domain.Epoch) string {
	t.Helper()
	p := filepath.Join(dir, rastertest.FileName(e))
	require.NoError(t, os.WriteFile(p, []byte("truncated"), 0o600))
	return p
}
