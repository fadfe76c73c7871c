package app

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"go.ngs.io/grace-api/internal/adapter/store/raster/rastertest"
	"go.ngs.io/grace-api/internal/config"
	"go.ngs.io/grace-api/internal/domain"
)

func TestNew_ScansWorkspace(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.WorkspaceDir = dir
	cfg.Geometry = domain.GridGeometry{OriginLat: 90, OriginLon: -180, CellSize: 30, Rows: 6, Cols: 12}
	rastertest.WriteMonth(t, dir, cfg.Geometry, domain.Epoch{Year: 2016, Day: 1}, rastertest.Constant(cfg.Geometry, 3))

	a, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	snap, err := a.Scan()
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())

	box := domain.BoundingBox{
		UpperLeft:  domain.LatLon{Lat: 30, Lon: 0},
		LowerRight: domain.LatLon{Lat: 0, Lon: 30},
	}
	f, err := a.Engine.Extractor.ExtractSnapshot(box, domain.Epoch{Year: 2016, Day: 10})
	require.NoError(t, err)
	v, ok := f.Grid.At(0, 0)
	require.True(t, ok)
	require.Equal(t, 3.0, v)
	require.NotNil(t, a.Handler())
}

func TestNew_DailyCadence(t *testing.T) {
	cfg := config.Default()
	cfg.Cadence = domain.CadenceDaily
	a, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	list, err := a.Engine.Epochs(time.Date(2015, 1, 30, 0, 0, 0, 0, time.UTC), time.Date(2015, 2, 2, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	require.Len(t, list.Epochs, 4)
}

func TestNew_InvalidPattern(t *testing.T) {
	cfg := config.Default()
	cfg.FilePattern = `^GRD-3_(\d{7})`
	_, err := New(cfg, zerolog.Nop())
	var ierr *config.InvalidValueError
	require.True(t, errors.As(err, &ierr))
	require.Equal(t, "GRACE_FILE_PATTERN", ierr.Name)
}
