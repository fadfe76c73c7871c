// Package config loads engine and server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"go.ngs.io/grace-api/internal/domain"
)

// Config holds application configuration.
type Config struct {
	Port         string
	WorkspaceDir string

	FilePattern string // Empty selects the GRD-3 convention.
	Variable    string
	NoData      float64
	Cadence     domain.Cadence
	MinYear     int
	MaxYear     int
	Geometry    domain.GridGeometry

	CacheTTL    time.Duration // Zero disables the raster cache.
	LoadWorkers int

	CORSOrigins []string // Empty allows all origins.
	LogLevel    string
	LogFormat   string // "console" or "json".
}

// InvalidValueError reports an environment variable that could not be used.
type InvalidValueError struct {
	Name  string
	Value string
	Err   error
}

func (e *InvalidValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Name, e.Err)
	}
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Name)
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}

// Default returns the settings used when no variable is set.
func Default() *Config {
	codec := domain.DefaultDateCodec()
	return &Config{
		Port:         "8080",
		WorkspaceDir: "./data",
		Variable:     "lwe_thickness",
		NoData:       domain.DefaultNoData,
		Cadence:      codec.Cadence,
		MinYear:      codec.MinYear,
		MaxYear:      codec.MaxYear,
		Geometry:     domain.DefaultGeometry(),
		CacheTTL:     10 * time.Minute,
		LoadWorkers:  4,
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// Codec returns the date codec described by the configuration.
func (c *Config) Codec() domain.DateCodec {
	return domain.DateCodec{MinYear: c.MinYear, MaxYear: c.MaxYear, Cadence: c.Cadence}
}

// LoadEnvFiles loads .env style files into the process environment. Missing
// files are skipped; variables already set are not overridden.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := Default()
	r := reader{getenv: getenv}

	r.str("PORT", &cfg.Port)
	r.str("WORKSPACE_DIR", &cfg.WorkspaceDir)
	r.str("GRACE_FILE_PATTERN", &cfg.FilePattern)
	r.str("GRACE_VARIABLE", &cfg.Variable)
	r.float("GRACE_NODATA", &cfg.NoData)
	if v := getenv("GRACE_CADENCE"); v != "" {
		cadence, err := domain.ParseCadence(v)
		if err != nil {
			r.fail("GRACE_CADENCE", v, err)
		}
		cfg.Cadence = cadence
	}
	r.int("GRACE_MIN_YEAR", &cfg.MinYear)
	r.int("GRACE_MAX_YEAR", &cfg.MaxYear)
	r.float("GRID_ORIGIN_LAT", &cfg.Geometry.OriginLat)
	r.float("GRID_ORIGIN_LON", &cfg.Geometry.OriginLon)
	r.float("GRID_CELL_SIZE", &cfg.Geometry.CellSize)
	r.int("GRID_ROWS", &cfg.Geometry.Rows)
	r.int("GRID_COLS", &cfg.Geometry.Cols)
	r.duration("RASTER_CACHE_TTL", &cfg.CacheTTL)
	r.int("LOAD_WORKERS", &cfg.LoadWorkers)
	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	r.str("LOG_LEVEL", &cfg.LogLevel)
	r.str("LOG_FORMAT", &cfg.LogFormat)
	if r.err != nil {
		return nil, r.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.MinYear > c.MaxYear {
		return &InvalidValueError{Name: "GRACE_MAX_YEAR", Value: strconv.Itoa(c.MaxYear),
			Err: fmt.Errorf("before GRACE_MIN_YEAR %d", c.MinYear)}
	}
	if err := c.Geometry.Validate(); err != nil {
		return &InvalidValueError{Name: "GRID_*", Value: fmt.Sprintf("%+v", c.Geometry), Err: err}
	}
	if c.CacheTTL < 0 {
		return &InvalidValueError{Name: "RASTER_CACHE_TTL", Value: c.CacheTTL.String(), Err: errors.New("negative duration")}
	}
	if c.LoadWorkers < 1 {
		return &InvalidValueError{Name: "LOAD_WORKERS", Value: strconv.Itoa(c.LoadWorkers), Err: errors.New("must be at least 1")}
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return &InvalidValueError{Name: "LOG_FORMAT", Value: c.LogFormat, Err: errors.New(`expected "console" or "json"`)}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return &InvalidValueError{Name: "LOG_LEVEL", Value: c.LogLevel, Err: err}
	}
	return nil
}

// reader keeps the first parse failure so Load reports one error.
type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) fail(name, value string, err error) {
	if r.err == nil {
		r.err = &InvalidValueError{Name: name, Value: value, Err: err}
	}
}

func (r *reader) str(name string, dst *string) {
	if v := r.getenv(name); v != "" {
		*dst = v
	}
}

func (r *reader) int(name string, dst *int) {
	if v := r.getenv(name); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (r *reader) float(name string, dst *float64) {
	if v := r.getenv(name); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = f
	}
}

func (r *reader) duration(name string, dst *time.Duration) {
	if v := r.getenv(name); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = d
	}
}
