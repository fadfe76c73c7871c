// Package main provides gtx, a command line front end to the GRACE raster engine.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"go.ngs.io/grace-api/internal/adapter/store/csv"
	"go.ngs.io/grace-api/internal/app"
	"go.ngs.io/grace-api/internal/config"
	"go.ngs.io/grace-api/internal/domain"
	"go.ngs.io/grace-api/internal/exitcode"
)

// errUsage marks errors caused by the invocation rather than the data.
var errUsage = errors.New("usage")

type command struct {
	summary string
	// scan reports whether the command reads the catalog.
	scan bool
	// bind registers the command's flags and returns its action.
	bind func(fs *flag.FlagSet) func(a *app.App) (any, error)
}

var commands = map[string]command{
	"epochs":   {"Translate a date range into epoch keys", false, bindEpochs},
	"catalog":  {"List catalogued raster files", true, bindCatalog},
	"snapshot": {"Extract the AOI grid for one date", true, bindSnapshot},
	"series":   {"Extract AOI grids for a date range (or --all epochs)", true, bindSeries},
	"points":   {"Build point time series over whole years", true, bindPoints},
	"diff":     {"Difference the AOI between two dates (end - start)", true, bindDiff},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		if len(args) == 0 {
			return exitcode.UsageError
		}
		return exitcode.Success
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		printUsage(stderr)
		return exitcode.UsageError
	}

	fs := flag.NewFlagSet("gtx "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	workspace := fs.StringP("workspace", "w", "", "Workspace directory (overrides WORKSPACE_DIR)")
	envFile := fs.String("env-file", ".env", "Optional .env file to load before reading the environment")
	pretty := fs.Bool("pretty", false, "Indent JSON output")
	action := cmd.bind(fs)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitcode.Success
		}
		return exitcode.UsageError
	}

	if err := config.LoadEnvFiles(*envFile); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitcode.UsageError
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitcode.UsageError
	}
	if *workspace != "" {
		cfg.WorkspaceDir = *workspace
	}
	logger := cfg.NewLogger(stderr)

	a, err := app.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitcode.UsageError
	}
	if cmd.scan {
		if _, err := a.Scan(); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitcode.ApplicationError
		}
	}

	result, err := action(a)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCodeOf(err)
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(stderr, "error: encode output: %v\n", err)
		return exitcode.ApplicationError
	}
	return exitcode.Success
}

// exitCodeOf separates bad input from failures reading the archive.
func exitCodeOf(err error) int {
	switch {
	case errors.Is(err, errUsage),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrOutOfBounds),
		errors.Is(err, domain.ErrDegenerateBoundingBox),
		errors.Is(err, domain.ErrDuplicateSampleID):
		return exitcode.UsageError
	default:
		return exitcode.ApplicationError
	}
}

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func bindEpochs(fs *flag.FlagSet) func(a *app.App) (any, error) {
	start := fs.String("start", "", "Start date (YYYY-MM-DD)")
	end := fs.String("end", "", "End date (YYYY-MM-DD)")
	normalize := fs.Bool("normalize", false, "Widen the range to whole calendar years")
	return func(a *app.App) (any, error) {
		codec := a.Engine.Codec()
		s, err := requiredDate(codec, "start", *start)
		if err != nil {
			return nil, err
		}
		e, err := requiredDate(codec, "end", *end)
		if err != nil {
			return nil, err
		}
		return a.Engine.Epochs(s, e, *normalize)
	}
}

func bindCatalog(fs *flag.FlagSet) func(a *app.App) (any, error) {
	return func(a *app.App) (any, error) {
		snap := a.Catalog.Snapshot()
		return map[string]any{
			"dir":     snap.Dir(),
			"count":   snap.Len(),
			"entries": snap.Entries(),
		}, nil
	}
}

func bindSnapshot(fs *flag.FlagSet) func(a *app.App) (any, error) {
	date := fs.StringP("date", "d", "", "Date (YYYY-MM-DD) or epoch key (YYYYDDD)")
	bbox := fs.StringP("bbox", "b", "", "Area of interest: ul_lat,ul_lon,lr_lat,lr_lon")
	return func(a *app.App) (any, error) {
		box, err := requiredBox(*bbox)
		if err != nil {
			return nil, err
		}
		e, err := requiredEpoch(a.Engine.Codec(), "date", *date)
		if err != nil {
			return nil, err
		}
		return a.Engine.Extractor.ExtractSnapshot(box, e)
	}
}

func bindSeries(fs *flag.FlagSet) func(a *app.App) (any, error) {
	start := fs.String("start", "", "Start date or epoch key")
	end := fs.String("end", "", "End date or epoch key")
	bbox := fs.StringP("bbox", "b", "", "Area of interest: ul_lat,ul_lon,lr_lat,lr_lon")
	all := fs.Bool("all", false, "Extract every catalogued epoch instead of a range")
	return func(a *app.App) (any, error) {
		box, err := requiredBox(*bbox)
		if err != nil {
			return nil, err
		}
		if *all {
			return a.Engine.Extractor.ExtractCatalog(box)
		}
		codec := a.Engine.Codec()
		s, err := requiredEpoch(codec, "start", *start)
		if err != nil {
			return nil, err
		}
		e, err := requiredEpoch(codec, "end", *end)
		if err != nil {
			return nil, err
		}
		return a.Engine.Extractor.ExtractSeries(box, domain.EpochRange{Start: s, End: e})
	}
}

func bindPoints(fs *flag.FlagSet) func(a *app.App) (any, error) {
	start := fs.String("start", "", "Start date (YYYY-MM-DD)")
	end := fs.String("end", "", "End date (YYYY-MM-DD)")
	csvName := fs.String("csv", "", "Sample point CSV (id,lat,lon; relative to the workspace)")
	points := fs.StringArray("point", nil, "Sample point id,lat,lon (repeatable)")
	return func(a *app.App) (any, error) {
		var samples []domain.SamplePoint
		switch {
		case *csvName != "" && len(*points) > 0:
			return nil, usageErr("--csv and --point are mutually exclusive")
		case *csvName != "":
			loaded, err := a.Samples.LoadSamples(*csvName)
			if err != nil {
				return nil, err
			}
			samples = loaded
		case len(*points) > 0:
			parsed, err := csv.ParseSamples(strings.NewReader(strings.Join(*points, "\n")))
			if err != nil {
				return nil, usageErr("%v", err)
			}
			samples = parsed
		default:
			return nil, usageErr("either --csv or --point is required")
		}

		codec := a.Engine.Codec()
		s, err := requiredDate(codec, "start", *start)
		if err != nil {
			return nil, err
		}
		e, err := requiredDate(codec, "end", *end)
		if err != nil {
			return nil, err
		}
		return a.Engine.Points.Build(samples, s, e)
	}
}

func bindDiff(fs *flag.FlagSet) func(a *app.App) (any, error) {
	start := fs.String("start", "", "Start date or epoch key")
	end := fs.String("end", "", "End date or epoch key")
	bbox := fs.StringP("bbox", "b", "", "Area of interest: ul_lat,ul_lon,lr_lat,lr_lon")
	return func(a *app.App) (any, error) {
		box, err := requiredBox(*bbox)
		if err != nil {
			return nil, err
		}
		codec := a.Engine.Codec()
		s, err := requiredEpoch(codec, "start", *start)
		if err != nil {
			return nil, err
		}
		e, err := requiredEpoch(codec, "end", *end)
		if err != nil {
			return nil, err
		}
		return a.Engine.Diffs.Diff(box, s, e)
	}
}

func requiredBox(s string) (domain.BoundingBox, error) {
	if s == "" {
		return domain.BoundingBox{}, usageErr("--bbox is required")
	}
	box, err := domain.ParseBoundingBox(s)
	if err != nil {
		return domain.BoundingBox{}, usageErr("%v", err)
	}
	return box, nil
}

func requiredEpoch(codec domain.DateCodec, name, s string) (domain.Epoch, error) {
	if s == "" {
		return domain.Epoch{}, usageErr("--%s is required", name)
	}
	return codec.ParseKey(s)
}

func requiredDate(codec domain.DateCodec, name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, usageErr("--%s is required", name)
	}
	return codec.ParseDate(s)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  gtx <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "COMMANDS:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'gtx <command> --help' for the flags of a command.")
	fmt.Fprintln(w, "Configuration is read from the environment; see grace-api --help.")
}
