// Package app assembles the engine from configuration for the commands.
package app

import (
	"github.com/rs/zerolog"

	"go.ngs.io/grace-api/internal/adapter/store/catalog"
	"go.ngs.io/grace-api/internal/adapter/store/csv"
	"go.ngs.io/grace-api/internal/adapter/store/raster"
	"go.ngs.io/grace-api/internal/config"
	httpHandler "go.ngs.io/grace-api/internal/http"
	"go.ngs.io/grace-api/internal/usecase"
)

// App holds the wired components of one workspace.
type App struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Rasters *raster.Store
	Samples *csv.SampleStore
	Engine  *usecase.Engine
	Logger  zerolog.Logger
}

// New wires stores and use cases. The catalog starts empty; call Scan.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	convention := catalog.DefaultConvention()
	if cfg.FilePattern != "" {
		c, err := catalog.NewConvention(cfg.FilePattern)
		if err != nil {
			return nil, &config.InvalidValueError{Name: "GRACE_FILE_PATTERN", Value: cfg.FilePattern, Err: err}
		}
		convention = c
	}
	codec := cfg.Codec()

	cat := catalog.New(codec, convention, logger)
	rasters := raster.NewStore(raster.Options{
		Geometry: cfg.Geometry,
		Variable: cfg.Variable,
		NoData:   cfg.NoData,
		CacheTTL: cfg.CacheTTL,
	}, logger)
	engine, err := usecase.NewEngine(usecase.Options{
		Geometry: cfg.Geometry,
		Codec:    codec,
		Workers:  cfg.LoadWorkers,
	}, cat, rasters, logger)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:  cfg,
		Catalog: cat,
		Rasters: rasters,
		Samples: csv.NewSampleStore(cfg.WorkspaceDir),
		Engine:  engine,
		Logger:  logger,
	}, nil
}

// Scan indexes the configured workspace.
func (a *App) Scan() (*catalog.Snapshot, error) {
	return a.Catalog.Scan(a.Config.WorkspaceDir)
}

// Handler returns the HTTP handler serving this workspace.
func (a *App) Handler() *httpHandler.Handler {
	return httpHandler.NewHandler(httpHandler.Deps{
		Engine:    a.Engine,
		Catalog:   a.Catalog,
		Samples:   a.Samples,
		Rasters:   a.Rasters,
		Workspace: a.Config.WorkspaceDir,
		Logger:    a.Logger,
	})
}
