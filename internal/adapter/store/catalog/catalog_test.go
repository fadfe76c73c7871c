package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"go.ngs.io/grace-api/internal/domain"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(dir, name)
		//nolint:gosec // G301: Standard test directory permissions.
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte{}, 0o600))
	}
}

func epoch(t *testing.T, s string) domain.Epoch {
	t.Helper()
	e, err := domain.ParseEpoch(s)
	require.NoError(t, err)
	return e
}

func newCatalog() *Catalog {
	return New(domain.DefaultDateCodec(), DefaultConvention(), zerolog.Nop())
}

func TestConvention_Decode(t *testing.T) {
	c := DefaultConvention()
	tests := []struct {
		name      string
		file      string
		wantOK    bool
		wantStart string
		wantEnd   string
	}{
		{"csr land grid", "GRD-3_2015001-2015031_GRAC_UTCSR_BA01_0600_LND_v03.nc", true, "2015001", "2015031"},
		{"lower case extension", "GRD-3_2015032-2015059_GRAC_JPLEM_BA01_0600_LND_v03.NC", true, "2015032", "2015059"},
		{"start only", "GRD-3_2015060_GRAC_GFZOP_LND.nc", true, "2015060", "2015060"},
		{"rendered image", "GRD-3_2015001-2015031_GRAC_UTCSR_BA01_0600_LND_v03.png", false, "", ""},
		{"invalid day", "GRD-3_2015400-2015401_GRAC_UTCSR_LND.nc", false, "", ""},
		{"end before start", "GRD-3_2015031-2015001_GRAC_UTCSR_LND.nc", false, "", ""},
		{"unrelated", "samples.csv", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := c.Decode(tt.file)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.Equal(t, tt.wantStart, start.String())
				require.Equal(t, tt.wantEnd, end.String())
			}
		})
	}
}

func TestNewConvention_RequiresStartGroup(t *testing.T) {
	_, err := NewConvention(`^GRD-3_(\d{7})\.nc$`)
	require.Error(t, err)

	_, err = NewConvention(`([`)
	require.Error(t, err)
}

func TestCatalog_ScanWithGap(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"GRD-3_2015001-2015031_GRAC_UTCSR_BA01_0600_LND_v03.nc",
		"GRD-3_2015060-2015090_GRAC_UTCSR_BA01_0600_LND_v03.nc",
		"GRD-3_2015001-2015031_GRAC_UTCSR_BA01_0600_LND_v03.png",
		"notes.txt",
	)

	c := newCatalog()
	snap, err := c.Scan(dir)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())
	require.Equal(t, dir, snap.Dir())

	jan, mar := epoch(t, "2015001"), epoch(t, "2015060")
	got := c.Snapshot().LookupRange(jan, mar)
	require.Len(t, got, 2)
	require.Equal(t, jan, got[0].Epoch)
	require.Equal(t, mar, got[1].Epoch)
	require.Equal(t, "2015-03-01", got[1].Date)

	_, ok := c.Snapshot().Lookup(epoch(t, "2015032"))
	require.False(t, ok, "february has no file")

	entry, ok := c.Snapshot().Lookup(jan)
	require.True(t, ok)
	require.Equal(t, epoch(t, "2015031"), entry.FileEnd)
}

func TestCatalog_PeriodKeyFromMidMonthStart(t *testing.T) {
	dir := t.TempDir()
	// GRACE months occasionally start mid-month; they resolve to the month's period.
	touch(t, dir, "GRD-3_2015102-2015120_GRAC_UTCSR_BA01_0600_LND_v03.nc")

	c := newCatalog()
	_, err := c.Scan(dir)
	require.NoError(t, err)

	entry, ok := c.Snapshot().Lookup(epoch(t, "2015091"))
	require.True(t, ok)
	require.Equal(t, epoch(t, "2015102"), entry.FileStart)
}

func TestCatalog_DuplicatePeriodKeepsSmallestName(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"GRD-3_2015001-2015031_GRAC_UTCSR_BA01_0600_LND_v03.nc",
		"GRD-3_2015001-2015031_GRAC_JPLEM_BA01_0600_LND_v03.nc",
	)
	c := newCatalog()
	snap, err := c.Scan(dir)
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())

	entry, ok := snap.Lookup(epoch(t, "2015001"))
	require.True(t, ok)
	require.Equal(t, "GRD-3_2015001-2015031_GRAC_JPLEM_BA01_0600_LND_v03.nc", filepath.Base(entry.Path))
}

func TestCatalog_ScanRecursesIntoSubdirectories(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "2016/GRD-3_2016001-2016031_GRAC_UTCSR_BA01_0600_LND_v03.nc")
	c := newCatalog()
	snap, err := c.Scan(dir)
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())
}

func TestCatalog_FailedScanKeepsPreviousIndex(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "GRD-3_2015001-2015031_GRAC_UTCSR_BA01_0600_LND_v03.nc")

	c := newCatalog()
	first, err := c.Scan(dir)
	require.NoError(t, err)

	_, err = c.Scan(filepath.Join(dir, "does-not-exist"))
	require.ErrorIs(t, err, domain.ErrCatalogUnreadable)
	require.Same(t, first, c.Snapshot())

	_, ok := c.Snapshot().Lookup(epoch(t, "2015001"))
	require.True(t, ok)
}

func TestCatalog_ScanRejectsFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "plain.txt")
	_, err := newCatalog().Scan(filepath.Join(dir, "plain.txt"))
	require.ErrorIs(t, err, domain.ErrCatalogUnreadable)
}

func TestCatalog_RescanReplacesIndex(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "GRD-3_2015001-2015031_GRAC_UTCSR_BA01_0600_LND_v03.nc")
	c := newCatalog()
	first, err := c.Scan(dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "GRD-3_2015001-2015031_GRAC_UTCSR_BA01_0600_LND_v03.nc")))
	touch(t, dir, "GRD-3_2015032-2015059_GRAC_UTCSR_BA01_0600_LND_v03.nc")

	_, err = c.Scan(dir)
	require.NoError(t, err)

	_, ok := c.Snapshot().Lookup(epoch(t, "2015001"))
	require.False(t, ok, "stale entry survived the rescan")
	_, ok = c.Snapshot().Lookup(epoch(t, "2015032"))
	require.True(t, ok)

	// Readers holding the old snapshot keep a consistent view.
	_, ok = first.Lookup(epoch(t, "2015001"))
	require.True(t, ok)
}

func TestCatalog_IgnoresDatesOutsideCodecRange(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "GRD-3_1999001-1999031_GRAC_UTCSR_BA01_0600_LND_v03.nc")
	snap, err := newCatalog().Scan(dir)
	require.NoError(t, err)
	require.Equal(t, 0, snap.Len())
	require.Empty(t, snap.LookupRange(epoch(t, "1999001"), epoch(t, "2030001")))
}

func TestCatalog_ReadersSeeWholeSnapshotsDuringRescans(t *testing.T) {
	// Ten months in one workspace, two in the other.
	big, small := t.TempDir(), t.TempDir()
	for m := 1; m <= 10; m++ {
		monthStart := time.Date(2015, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
		start := domain.Epoch{Year: 2015, Day: monthStart.YearDay()}
		touch(t, big, fmt.Sprintf("GRD-3_%s_GRAC_UTCSR_BA01_0600_LND_v03.nc", start))
	}
	touch(t, small,
		"GRD-3_2015001-2015031_GRAC_UTCSR_BA01_0600_LND_v03.nc",
		"GRD-3_2015032-2015059_GRAC_UTCSR_BA01_0600_LND_v03.nc",
	)

	c := newCatalog()
	first, err := c.Scan(big)
	require.NoError(t, err)
	require.Equal(t, 10, first.Len())

	from, to := epoch(t, "2015001"), epoch(t, "2015365")
	var wg sync.WaitGroup
	done := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := c.Snapshot()
				n := len(snap.Entries())
				if n != 10 && n != 2 {
					t.Errorf("read saw %d entries, want 10 or 2", n)
					return
				}
				if got := len(snap.LookupRange(from, to)); got != n {
					t.Errorf("LookupRange saw %d entries, Entries saw %d", got, n)
					return
				}
				if dir := snap.Dir(); (n == 10) != (dir == big) {
					t.Errorf("snapshot of %s has %d entries", dir, n)
					return
				}
			}
		}()
	}
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			dir := small
			if i%2 == 1 {
				dir = big
			}
			if _, err := c.Scan(dir); err != nil {
				t.Errorf("scan %s: %v", dir, err)
				return
			}
		}
	}()
	wg.Wait()
	<-done
}
