package usecase

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"go.ngs.io/grace-api/internal/adapter/store"
	"go.ngs.io/grace-api/internal/domain"
)

// PointSeriesBuilder samples grid cells under a set of points across whole
// calendar years.
type PointSeriesBuilder struct {
	geometry domain.GridGeometry
	codec    domain.DateCodec
	index    store.Index
	loader   store.RasterLoader
	workers  int
	logger   zerolog.Logger
}

// Build returns one series per point over [start, end] widened to whole years.
// Every series has a sample for every period of the range; periods without a
// file, or cells holding nodata, carry a status and no value.
func (b *PointSeriesBuilder) Build(points []domain.SamplePoint, start, end time.Time) (*domain.TimeSeries, error) {
	if err := domain.ValidateSamplePoints(points); err != nil {
		return nil, err
	}
	start, end, err := b.codec.NormalizeRange(start, end)
	if err != nil {
		return nil, err
	}

	// Cells are resolved once and reused for every epoch.
	cells := make([]domain.GridCell, len(points))
	for i, p := range points {
		cell, err := b.geometry.CellOf(p.Lat, p.Lon)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", p.ID, err)
		}
		cells[i] = cell
	}

	epochs, err := b.codec.Periods(start, end)
	if err != nil {
		return nil, err
	}
	idx := b.index.Current()
	byEpoch, err := forEach(b.workers, len(epochs), func(i int) ([]domain.Sample, error) {
		return b.sample(idx, epochs[i], cells)
	})
	if err != nil {
		return nil, err
	}

	ts := &domain.TimeSeries{
		Start:  start.Format(domain.DateLayout),
		End:    end.Format(domain.DateLayout),
		Epochs: epochs,
		Series: make(map[int]domain.Series, len(points)),
	}
	for i, p := range points {
		s := domain.Series{
			Point:   p,
			Cell:    cells[i],
			Center:  b.geometry.CellCenter(cells[i]),
			Samples: make([]domain.Sample, len(epochs)),
		}
		for k := range epochs {
			s.Samples[k] = byEpoch[k][i]
		}
		ts.Series[p.ID] = s
	}
	b.logger.Debug().Int("points", len(points)).Int("epochs", len(epochs)).
		Str("start", ts.Start).Str("end", ts.End).Msg("built point series")
	return ts, nil
}

func (b *PointSeriesBuilder) sample(idx store.EntryLookup, e domain.Epoch, cells []domain.GridCell) ([]domain.Sample, error) {
	date := e.Date().Format(domain.DateLayout)
	out := make([]domain.Sample, len(cells))
	entry, ok := idx.Lookup(e)
	if !ok {
		for i := range out {
			out[i] = domain.Sample{Epoch: e, Date: date, Status: domain.StatusFileMissing}
		}
		return out, nil
	}
	grid, err := b.loader.Load(entry)
	if err != nil {
		return nil, err
	}
	for i, c := range cells {
		s := domain.Sample{Epoch: e, Date: date, Status: domain.StatusNoData}
		if v, ok := grid.At(c.Row, c.Col); ok {
			s.Status = domain.StatusAvailable
			s.Value = &v
		}
		out[i] = s
	}
	return out, nil
}
