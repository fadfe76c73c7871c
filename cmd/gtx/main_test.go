package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"go.ngs.io/grace-api/internal/adapter/store/raster/rastertest"
	"go.ngs.io/grace-api/internal/domain"
	"go.ngs.io/grace-api/internal/exitcode"
)

var cliGeometry = domain.GridGeometry{OriginLat: 90, OriginLon: -180, CellSize: 30, Rows: 6, Cols: 12}

// workspace holds January and March 2015 and points the environment at it.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	rastertest.WriteMonth(t, dir, cliGeometry, domain.Epoch{Year: 2015, Day: 1}, rastertest.Constant(cliGeometry, 2))
	rastertest.WriteMonth(t, dir, cliGeometry, domain.Epoch{Year: 2015, Day: 60}, rastertest.Constant(cliGeometry, 5))
	t.Setenv("WORKSPACE_DIR", dir)
	t.Setenv("GRID_CELL_SIZE", "30")
	t.Setenv("GRID_ROWS", "6")
	t.Setenv("GRID_COLS", "12")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func runCLI(t *testing.T, args ...string) (int, map[string]any, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	var out map[string]any
	if code == exitcode.Success && stdout.Len() > 0 && stdout.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	}
	return code, out, stdout.String() + stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, _ := runCLI(t)
	require.Equal(t, exitcode.UsageError, code)

	code, _, output := runCLI(t, "plot")
	require.Equal(t, exitcode.UsageError, code)
	require.Contains(t, output, "unknown command")

	code, _, _ = runCLI(t, "help")
	require.Equal(t, exitcode.Success, code)
}

func TestRun_Epochs(t *testing.T) {
	workspace(t)
	code, out, _ := runCLI(t, "epochs", "--start", "2015-02-01", "--end", "2015-02-20", "--normalize")
	require.Equal(t, exitcode.Success, code)
	require.Len(t, out["epochs"], 12)

	code, _, _ = runCLI(t, "epochs", "--start", "2015-02-01")
	require.Equal(t, exitcode.UsageError, code)
}

func TestRun_Catalog(t *testing.T) {
	workspace(t)
	code, out, _ := runCLI(t, "catalog")
	require.Equal(t, exitcode.Success, code)
	require.EqualValues(t, 2, out["count"])
}

func TestRun_Snapshot(t *testing.T) {
	workspace(t)
	code, out, _ := runCLI(t, "snapshot", "--date", "2015060", "--bbox", "30,0,0,30")
	require.Equal(t, exitcode.Success, code)
	require.Equal(t, "available", out["status"])

	code, out, _ = runCLI(t, "snapshot", "-d", "2015-02-14", "-b", "30,0,0,30")
	require.Equal(t, exitcode.Success, code)
	require.Equal(t, "file_missing", out["status"])

	code, _, _ = runCLI(t, "snapshot", "--date", "2015-01-01", "--bbox", "0,30,30,0")
	require.Equal(t, exitcode.UsageError, code)
}

func TestRun_Diff(t *testing.T) {
	workspace(t)
	code, out, _ := runCLI(t, "diff", "--start", "2015-01-01", "--end", "2015-03-01", "--bbox", "30,0,0,30")
	require.Equal(t, exitcode.Success, code)
	values := out["grid"].(map[string]any)["values"].([]any)
	require.InDelta(t, 3.0, values[0].([]any)[0], 1e-9)

	code, _, output := runCLI(t, "diff", "--start", "2015-01-01", "--end", "2015-02-01", "--bbox", "30,0,0,30")
	require.Equal(t, exitcode.ApplicationError, code)
	require.Contains(t, output, "no data for this date")
}

func TestRun_Points(t *testing.T) {
	workspace(t)
	code, out, _ := runCLI(t, "points", "--start", "2015-01-01", "--end", "2015-12-31",
		"--point", "1,15,15", "--point", "2,-45,100")
	require.Equal(t, exitcode.Success, code)
	require.Len(t, out["series"], 2)

	code, _, _ = runCLI(t, "points", "--start", "2015-01-01", "--end", "2015-12-31",
		"--point", "1,15,15", "--point", "1,-45,100")
	require.Equal(t, exitcode.UsageError, code)

	code, _, _ = runCLI(t, "points", "--start", "2015-01-01", "--end", "2015-12-31")
	require.Equal(t, exitcode.UsageError, code)
}

func TestRun_UnreadableWorkspace(t *testing.T) {
	workspace(t)
	code, _, _ := runCLI(t, "catalog", "--workspace", "/does/not/exist")
	require.Equal(t, exitcode.ApplicationError, code)
}
