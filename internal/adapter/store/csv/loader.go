// Package csv loads sample point catalogs from headerless id,lat,lon CSV files.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.ngs.io/grace-api/internal/domain"
)

// SampleStore reads sample catalogs relative to a workspace directory.
type SampleStore struct {
	dataDir string
}

// NewSampleStore creates a new CSV-based sample store.
func NewSampleStore(dataDir string) *SampleStore {
	return &SampleStore{
		dataDir: dataDir,
	}
}

// LoadSamples reads the named catalog. Relative names resolve against the
// workspace directory.
func (s *SampleStore) LoadSamples(name string) ([]domain.SamplePoint, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dataDir, name)
	}

	//nolint:gosec // G304: File path constructed from dataDir (config) and a caller-chosen catalog name.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample catalog %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	points, err := ParseSamples(file)
	if err != nil {
		return nil, fmt.Errorf("sample catalog %s: %w", path, err)
	}
	return points, nil
}

// ParseSamples reads id,lat,lon records with no header row.
func ParseSamples(r io.Reader) ([]domain.SamplePoint, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	points := make([]domain.SamplePoint, 0)
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		if len(record) != 3 {
			return nil, fmt.Errorf("invalid CSV record %d: expected 3 columns (id,lat,lon), got %d", line, len(record))
		}

		idStr := strings.TrimSpace(record[0])
		latStr := strings.TrimSpace(record[1])
		lonStr := strings.TrimSpace(record[2])

		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q in record %d: %w", idStr, line, err)
		}

		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude for sample %d: %w", id, err)
		}

		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude for sample %d: %w", id, err)
		}

		points = append(points, domain.SamplePoint{ID: id, Lat: lat, Lon: lon})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("no sample points found")
	}

	return points, nil
}

// ListCatalogs returns the CSV files in the workspace directory.
func (s *SampleStore) ListCatalogs() ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	catalogs := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			catalogs = append(catalogs, entry.Name())
		}
	}

	return catalogs, nil
}
