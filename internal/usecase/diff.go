package usecase

import (
	"go.ngs.io/grace-api/internal/domain"
)

// DiffGrid is the cell-wise change between two epochs over one AOI.
type DiffGrid struct {
	Start     domain.Epoch `json:"start"`
	End       domain.Epoch `json:"end"`
	StartDate string       `json:"start_date"`
	EndDate   string       `json:"end_date"`
	Grid      *domain.Grid `json:"grid"`
}

// DiffEngine differences two AOI snapshots. Unlike series extraction it fails
// when either epoch has no file.
type DiffEngine struct {
	extractor *AOIExtractor
}

// Diff returns end - start over box.
func (d *DiffEngine) Diff(box domain.BoundingBox, start, end domain.Epoch) (*DiffGrid, error) {
	x := d.extractor
	rows, cols, err := x.geometry.CellRangeOf(box)
	if err != nil {
		return nil, err
	}
	a, err := x.period(start)
	if err != nil {
		return nil, err
	}
	b, err := x.period(end)
	if err != nil {
		return nil, err
	}

	// Both snapshots come from the same catalog view. Missing epochs are
	// reported before any raster is decoded.
	idx := x.index.Current()
	if _, ok := idx.Lookup(a); !ok {
		return nil, &domain.MissingEpochError{Epoch: a, Role: "start"}
	}
	if _, ok := idx.Lookup(b); !ok {
		return nil, &domain.MissingEpochError{Epoch: b, Role: "end"}
	}
	frames, err := x.frames(idx, []domain.Epoch{a, b}, rows, cols)
	if err != nil {
		return nil, err
	}
	grid, err := domain.Difference(frames[0].Grid, frames[1].Grid)
	if err != nil {
		return nil, err
	}
	return &DiffGrid{
		Start:     a,
		End:       b,
		StartDate: frames[0].Date,
		EndDate:   frames[1].Date,
		Grid:      grid,
	}, nil
}
