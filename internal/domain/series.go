package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Status tags a per-epoch result so absent data cannot be mistaken for a value.
type Status int

const (
	// StatusAvailable means the epoch had a raster and the value is an observation.
	StatusAvailable Status = iota
	// StatusFileMissing means no raster file exists for the epoch.
	StatusFileMissing
	// StatusNoData means the raster exists but the cell holds the nodata sentinel.
	StatusNoData
)

var statusNames = map[Status]string{
	StatusAvailable:   "available",
	StatusFileMissing: "file_missing",
	StatusNoData:      "nodata",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalJSON encodes the status by name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Frame is one epoch of an AOI extraction. Grid is nil when Status is StatusFileMissing.
type Frame struct {
	Epoch  Epoch  `json:"epoch"`
	Date   string `json:"date"`
	Status Status `json:"status"`
	Path   string `json:"path,omitempty"`
	Grid   *Grid  `json:"grid,omitempty"`
}

// Missing reports whether the frame is a FileMissing marker.
func (f Frame) Missing() bool {
	return f.Status == StatusFileMissing
}

// SamplePoint is a named location sampled by a point series request.
type SamplePoint struct {
	ID  int     `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ValidateSamplePoints fails on the first identifier that appears twice.
func ValidateSamplePoints(points []SamplePoint) error {
	seen := make(map[int]struct{}, len(points))
	for _, p := range points {
		if _, dup := seen[p.ID]; dup {
			return &DuplicateSampleError{ID: p.ID}
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// Sample is one (epoch, value-or-missing) pair. Value is only meaningful when
// Status is StatusAvailable.
type Sample struct {
	Epoch  Epoch    `json:"epoch"`
	Date   string   `json:"date"`
	Status Status   `json:"status"`
	Value  *float64 `json:"value"`
}

// Series is the ordered samples of one point.
type Series struct {
	Point   SamplePoint `json:"point"`
	Cell    GridCell    `json:"cell"`
	Center  LatLon      `json:"cell_center"`
	Samples []Sample    `json:"samples"`
}

// TimeSeries holds one series per sample point, keyed by point identifier.
// Every series has one sample per epoch of the resolved range.
type TimeSeries struct {
	Start  string         `json:"start"`
	End    string         `json:"end"`
	Epochs []Epoch        `json:"epochs"`
	Series map[int]Series `json:"series"`
}

// IDs returns the point identifiers in ascending order.
func (ts *TimeSeries) IDs() []int {
	ids := make([]int, 0, len(ts.Series))
	for id := range ts.Series {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
