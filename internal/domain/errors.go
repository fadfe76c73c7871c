package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDate indicates a date that cannot be parsed or lies outside the archive range.
	ErrInvalidDate = errors.New("invalid date")

	// ErrCatalogUnreadable indicates the workspace directory is missing or not listable.
	ErrCatalogUnreadable = errors.New("catalog unreadable")

	// ErrOutOfBounds indicates a coordinate outside the grid extent.
	ErrOutOfBounds = errors.New("coordinate out of bounds")

	// ErrDegenerateBoundingBox indicates inverted corners or zero area after clipping.
	ErrDegenerateBoundingBox = errors.New("degenerate bounding box")

	// ErrRasterUnreadable indicates a catalogued file that cannot be parsed.
	ErrRasterUnreadable = errors.New("raster unreadable")

	// ErrRangeOutOfGrid indicates a crop range exceeding the source grid.
	ErrRangeOutOfGrid = errors.New("cell range out of grid")

	// ErrDuplicateSampleID indicates two sample points sharing an identifier.
	ErrDuplicateSampleID = errors.New("duplicate sample id")

	// ErrMissingEpochData indicates a request that needs an epoch with no file.
	ErrMissingEpochData = errors.New("no data for this date")
)

// CatalogError reports a workspace directory that could not be scanned.
type CatalogError struct {
	Dir string
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog unreadable: scan %q: %v", e.Dir, e.Err)
}

// Unwrap allows errors.Is against both the sentinel and the cause.
func (e *CatalogError) Unwrap() []error {
	return []error{ErrCatalogUnreadable, e.Err}
}

// RasterError reports a raster file that exists per the catalog but cannot be decoded.
type RasterError struct {
	Path  string
	Epoch Epoch
	Err   error
}

func (e *RasterError) Error() string {
	return fmt.Sprintf("raster unreadable: %s (epoch %s): %v", e.Path, e.Epoch, e.Err)
}

// Unwrap allows errors.Is against both the sentinel and the cause.
func (e *RasterError) Unwrap() []error {
	return []error{ErrRasterUnreadable, e.Err}
}

// MissingEpochError names the epoch a differencing request could not find.
type MissingEpochError struct {
	Epoch Epoch
	Role  string // "start" or "end".
}

func (e *MissingEpochError) Error() string {
	return fmt.Sprintf("no data for this date: %s epoch %s (%s) has no raster file", e.Role, e.Epoch, e.Epoch.Date().Format(DateLayout))
}

// Unwrap returns ErrMissingEpochData.
func (e *MissingEpochError) Unwrap() error {
	return ErrMissingEpochData
}

// DuplicateSampleError names the identifier that appeared more than once.
type DuplicateSampleError struct {
	ID int
}

func (e *DuplicateSampleError) Error() string {
	return fmt.Sprintf("duplicate sample id %d", e.ID)
}

// Unwrap returns ErrDuplicateSampleID.
func (e *DuplicateSampleError) Unwrap() error {
	return ErrDuplicateSampleID
}
