package usecase

import (
	"fmt"

	"github.com/rs/zerolog"

	"go.ngs.io/grace-api/internal/adapter/store"
	"go.ngs.io/grace-api/internal/domain"
)

// AOIExtractor crops catalogued rasters to an area of interest. Epochs without
// a file become FileMissing frames instead of errors.
type AOIExtractor struct {
	geometry domain.GridGeometry
	codec    domain.DateCodec
	index    store.Index
	loader   store.RasterLoader
	workers  int
	logger   zerolog.Logger
}

// ExtractSnapshot returns the AOI for the cadence period containing e.
func (x *AOIExtractor) ExtractSnapshot(box domain.BoundingBox, e domain.Epoch) (domain.Frame, error) {
	rows, cols, err := x.geometry.CellRangeOf(box)
	if err != nil {
		return domain.Frame{}, err
	}
	period, err := x.period(e)
	if err != nil {
		return domain.Frame{}, err
	}
	return x.frame(x.index.Current(), period, rows, cols)
}

// ExtractSeries returns one frame per cadence period in r, ascending. The
// slot count is fixed by the range, not by which files exist.
func (x *AOIExtractor) ExtractSeries(box domain.BoundingBox, r domain.EpochRange) ([]domain.Frame, error) {
	rows, cols, err := x.geometry.CellRangeOf(box)
	if err != nil {
		return nil, err
	}
	start, err := x.codec.ToDate(r.Start)
	if err != nil {
		return nil, err
	}
	end, err := x.codec.ToDate(r.End)
	if err != nil {
		return nil, err
	}
	epochs, err := x.codec.Periods(start, end)
	if err != nil {
		return nil, err
	}
	return x.frames(x.index.Current(), epochs, rows, cols)
}

// ExtractCatalog returns a frame for every catalogued epoch, ascending.
func (x *AOIExtractor) ExtractCatalog(box domain.BoundingBox) ([]domain.Frame, error) {
	rows, cols, err := x.geometry.CellRangeOf(box)
	if err != nil {
		return nil, err
	}
	idx := x.index.Current()
	entries := idx.Entries()
	epochs := make([]domain.Epoch, len(entries))
	for i, entry := range entries {
		epochs[i] = entry.Epoch
	}
	return x.frames(idx, epochs, rows, cols)
}

func (x *AOIExtractor) period(e domain.Epoch) (domain.Epoch, error) {
	t, err := x.codec.ToDate(e)
	if err != nil {
		return domain.Epoch{}, err
	}
	return x.codec.PeriodOf(t)
}

func (x *AOIExtractor) frames(idx store.EntryLookup, epochs []domain.Epoch, rows, cols domain.CellRange) ([]domain.Frame, error) {
	frames, err := forEach(x.workers, len(epochs), func(i int) (domain.Frame, error) {
		return x.frame(idx, epochs[i], rows, cols)
	})
	if err != nil {
		return nil, err
	}
	missing := 0
	for _, f := range frames {
		if f.Missing() {
			missing++
		}
	}
	x.logger.Debug().Int("epochs", len(frames)).Int("missing", missing).Msg("extracted series")
	return frames, nil
}

func (x *AOIExtractor) frame(idx store.EntryLookup, e domain.Epoch, rows, cols domain.CellRange) (domain.Frame, error) {
	f := domain.Frame{Epoch: e, Date: e.Date().Format(domain.DateLayout)}
	entry, ok := idx.Lookup(e)
	if !ok {
		f.Status = domain.StatusFileMissing
		return f, nil
	}
	grid, err := x.loader.Load(entry)
	if err != nil {
		return domain.Frame{}, err
	}
	cropped, err := grid.Crop(rows, cols)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("crop %s: %w", entry.Path, err)
	}
	cropped.Bounds = x.geometry.CellBounds(rows, cols)
	f.Status = domain.StatusAvailable
	f.Path = entry.Path
	f.Grid = cropped
	return f, nil
}
