package usecase

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"go.ngs.io/grace-api/internal/adapter/store"
	"go.ngs.io/grace-api/internal/domain"
)

// DefaultWorkers bounds concurrent raster loads within one request.
const DefaultWorkers = 4

// Options configures an Engine.
type Options struct {
	Geometry domain.GridGeometry
	Codec    domain.DateCodec // DefaultDateCodec when zero.
	Workers  int              // Concurrent raster loads per request; DefaultWorkers when <= 0.
}

// Engine bundles the extraction, point series and differencing use cases over
// one catalog and raster loader.
type Engine struct {
	Extractor *AOIExtractor
	Points    *PointSeriesBuilder
	Diffs     *DiffEngine

	codec domain.DateCodec
}

// NewEngine wires the use cases together.
func NewEngine(opts Options, index store.Index, loader store.RasterLoader, logger zerolog.Logger) (*Engine, error) {
	if err := opts.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid geometry: %w", err)
	}
	if opts.Codec == (domain.DateCodec{}) {
		opts.Codec = domain.DefaultDateCodec()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	x := &AOIExtractor{
		geometry: opts.Geometry,
		codec:    opts.Codec,
		index:    index,
		loader:   loader,
		workers:  opts.Workers,
		logger:   logger.With().Str("component", "extract").Logger(),
	}
	return &Engine{
		Extractor: x,
		Points: &PointSeriesBuilder{
			geometry: opts.Geometry,
			codec:    opts.Codec,
			index:    index,
			loader:   loader,
			workers:  opts.Workers,
			logger:   logger.With().Str("component", "points").Logger(),
		},
		Diffs: &DiffEngine{extractor: x},
		codec: opts.Codec,
	}, nil
}

// Codec returns the date codec the engine validates against.
func (e *Engine) Codec() domain.DateCodec {
	return e.codec
}

// EpochList is the epoch axis of a calendar date range.
type EpochList struct {
	Start  string         `json:"start"`
	End    string         `json:"end"`
	Epochs []domain.Epoch `json:"epochs"`
}

// Epochs translates a calendar date range into the archive's epoch keys. With
// normalize set the range is first widened to whole years.
func (e *Engine) Epochs(start, end time.Time, normalize bool) (*EpochList, error) {
	var err error
	if normalize {
		start, end, err = e.codec.NormalizeRange(start, end)
		if err != nil {
			return nil, err
		}
	}
	epochs, err := e.codec.Periods(start, end)
	if err != nil {
		return nil, err
	}
	return &EpochList{
		Start:  start.Format(domain.DateLayout),
		End:    end.Format(domain.DateLayout),
		Epochs: epochs,
	}, nil
}

// forEach runs fn for every index in [0, n) on at most workers goroutines and
// returns the results in index order. The first error fails the whole batch.
func forEach[T any](workers, n int, fn func(i int) (T, error)) ([]T, error) {
	out := make([]T, n)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			v, err := fn(i)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
