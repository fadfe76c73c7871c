// Package main provides the GRACE raster API HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"

	"go.ngs.io/grace-api/internal/app"
	"go.ngs.io/grace-api/internal/config"
	"go.ngs.io/grace-api/internal/exitcode"
	httpHandler "go.ngs.io/grace-api/internal/http"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command-line flags.
	showHelp := flag.BoolP("help", "h", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	envFile := flag.String("env-file", ".env", "Optional .env file to load before reading the environment")
	workspace := flag.StringP("workspace", "w", "", "Workspace directory (overrides WORKSPACE_DIR)")
	port := flag.StringP("port", "p", "", "Listen port (overrides PORT)")
	flag.Parse()

	if *showHelp {
		printUsage()
		return exitcode.Success
	}

	if *showVersion {
		fmt.Printf("grace-api version %s\n", version)
		return exitcode.Success
	}

	// Load configuration from environment.
	if err := config.LoadEnvFiles(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitcode.UsageError
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitcode.UsageError
	}
	if *workspace != "" {
		cfg.WorkspaceDir = *workspace
	}
	if *port != "" {
		cfg.Port = *port
	}

	logger := cfg.NewLogger(os.Stderr)
	if cfg.LogFormat == "json" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Info().Str("version", version).Str("workspace", cfg.WorkspaceDir).
		Str("cadence", cfg.Cadence.String()).Msg("starting GRACE raster API")

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return exitcode.UsageError
	}

	// A missing workspace is not fatal; POST /v1/catalog/scan retries.
	if snap, err := a.Scan(); err != nil {
		logger.Warn().Err(err).Msg("initial scan failed, serving an empty catalog")
	} else {
		logger.Info().Int("epochs", snap.Len()).Msg("workspace indexed")
	}

	router := httpHandler.SetupRouter(a.Handler(), cfg.CORSOrigins)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Create a cancellable context (for graceful shutdown)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("failed to start server")
			return exitcode.ApplicationError
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return exitcode.ApplicationError
	}
	logger.Info().Msg("server stopped")
	return exitcode.Success
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("GRACE Raster API Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  grace-api [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  WORKSPACE_DIR           Directory of GRD-3 NetCDF files and sample CSVs (default: ./data)")
	fmt.Println("  GRACE_FILE_PATTERN      File name regexp with a named group \"start\" (default: GRD-3 convention)")
	fmt.Println("  GRACE_VARIABLE          NetCDF data variable (default: lwe_thickness)")
	fmt.Println("  GRACE_NODATA            Nodata sentinel (default: -99999)")
	fmt.Println("  GRACE_CADENCE           monthly or daily (default: monthly)")
	fmt.Println("  GRACE_MIN_YEAR          First supported year (default: 2002)")
	fmt.Println("  GRACE_MAX_YEAR          Last supported year (default: 2100)")
	fmt.Println("  GRID_ORIGIN_LAT         Latitude of the upper-left corner (default: 90)")
	fmt.Println("  GRID_ORIGIN_LON         Longitude of the upper-left corner (default: -180)")
	fmt.Println("  GRID_CELL_SIZE          Cell size in degrees (default: 1)")
	fmt.Println("  GRID_ROWS, GRID_COLS    Grid dimensions (default: 180, 360)")
	fmt.Println("  RASTER_CACHE_TTL        Decoded raster cache TTL, 0 disables (default: 10m)")
	fmt.Println("  LOAD_WORKERS            Concurrent raster loads per request (default: 4)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  LOG_LEVEL               debug, info, warn, error (default: info)")
	fmt.Println("  LOG_FORMAT              console or json (default: console)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  grace-api")
	fmt.Println()
	fmt.Println("  # Serve a different workspace on a custom port")
	fmt.Println("  grace-api --workspace /srv/grace --port 3000")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /health               Health check")
	fmt.Println("  GET  /v1/epochs            Date range to epoch keys")
	fmt.Println("  GET  /v1/catalog           Catalogued files")
	fmt.Println("  POST /v1/catalog/scan      Rescan the workspace")
	fmt.Println("  GET  /v1/snapshot          AOI grid for one date")
	fmt.Println("  GET  /v1/aoi/series        AOI grids for a date range")
	fmt.Println("  GET  /v1/aoi/all           AOI grids for every catalogued epoch")
	fmt.Println("  GET  /v1/samples           Sample point CSVs in the workspace")
	fmt.Println("  POST /v1/points/series     Point time series over whole years")
	fmt.Println("  GET  /v1/diff              AOI change between two dates")
	fmt.Println()
}
