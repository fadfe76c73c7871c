// Package store declares the ports the use cases read rasters and sample points through.
package store

import (
	"go.ngs.io/grace-api/internal/domain"
)

// Entry associates one archive file with the epoch it covers.
type Entry struct {
	Epoch     domain.Epoch `json:"epoch"`      // Cadence period the file belongs to.
	Date      string       `json:"date"`       // Decoded calendar date of Epoch (YYYY-MM-DD).
	FileStart domain.Epoch `json:"file_start"` // Start token embedded in the file name.
	FileEnd   domain.Epoch `json:"file_end"`   // End token, equal to FileStart when absent.
	Path      string       `json:"path"`
}

// EntryLookup answers which file, if any, corresponds to an epoch.
type EntryLookup interface {
	// Lookup returns the entry for an epoch and whether one exists.
	Lookup(e domain.Epoch) (Entry, bool)

	// LookupRange returns the present entries within [start, end], ascending.
	LookupRange(start, end domain.Epoch) []Entry

	// Entries returns every entry, ascending.
	Entries() []Entry
}

// Index publishes immutable catalog snapshots. A request reads one snapshot
// from start to finish so a concurrent rescan never changes its view.
type Index interface {
	Current() EntryLookup
}

// RasterLoader decodes a catalogued file into a grid owned by the caller.
type RasterLoader interface {
	Load(entry Entry) (*domain.Grid, error)
}

// SampleLoader reads sample points from an external record set.
type SampleLoader interface {
	LoadSamples(name string) ([]domain.SamplePoint, error)
}
