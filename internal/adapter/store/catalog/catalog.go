// Package catalog indexes a workspace of GRACE Tellus raster files by epoch.
package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"go.ngs.io/grace-api/internal/adapter/store"
	"go.ngs.io/grace-api/internal/domain"
)

// DefaultPattern matches monthly GRD-3 land grids such as
// GRD-3_2015001-2015031_GRAC_UTCSR_BA01_0600_LND_v03.nc.
const DefaultPattern = `(?i)^GRD-3_(?P<start>\d{7})(?:-(?P<end>\d{7}))?_.*\.nc$`

// Convention decodes epoch tokens from file names.
type Convention struct {
	re       *regexp.Regexp
	startIdx int
	endIdx   int
}

// NewConvention compiles a file name pattern. The pattern must define a named
// group "start" holding a YYYYDDD token; an "end" group is optional.
func NewConvention(pattern string) (*Convention, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern: %w", err)
	}
	c := &Convention{re: re, startIdx: re.SubexpIndex("start"), endIdx: re.SubexpIndex("end")}
	if c.startIdx < 0 {
		return nil, fmt.Errorf("file pattern %q has no named group \"start\"", pattern)
	}
	return c, nil
}

// DefaultConvention returns the GRD-3 convention.
func DefaultConvention() *Convention {
	c, err := NewConvention(DefaultPattern)
	if err != nil {
		panic(err)
	}
	return c
}

// Decode extracts the start and end tokens of a file name. ok is false when
// the name does not follow the convention or a token is not a valid day.
func (c *Convention) Decode(name string) (start, end domain.Epoch, ok bool) {
	m := c.re.FindStringSubmatch(name)
	if m == nil {
		return domain.Epoch{}, domain.Epoch{}, false
	}
	start, err := domain.ParseEpoch(m[c.startIdx])
	if err != nil {
		return domain.Epoch{}, domain.Epoch{}, false
	}
	end = start
	if c.endIdx >= 0 && m[c.endIdx] != "" {
		end, err = domain.ParseEpoch(m[c.endIdx])
		if err != nil || end.Before(start) {
			return domain.Epoch{}, domain.Epoch{}, false
		}
	}
	return start, end, true
}

// Catalog holds the current snapshot of a workspace. Queries read whichever
// snapshot was last published; Scan builds a replacement and swaps it in.
type Catalog struct {
	codec      domain.DateCodec
	convention *Convention
	logger     zerolog.Logger

	current atomic.Pointer[Snapshot]
	scanMu  sync.Mutex // Serializes scans; readers never take it.
}

// New creates an empty catalog.
func New(codec domain.DateCodec, convention *Convention, logger zerolog.Logger) *Catalog {
	if convention == nil {
		convention = DefaultConvention()
	}
	c := &Catalog{
		codec:      codec,
		convention: convention,
		logger:     logger.With().Str("component", "catalog").Logger(),
	}
	c.current.Store(emptySnapshot(""))
	return c
}

// Scan rebuilds the index from dir. On failure the previous snapshot is kept.
func (c *Catalog) Scan(dir string) (*Snapshot, error) {
	c.scanMu.Lock()
	defer c.scanMu.Unlock()

	snap, err := c.build(dir)
	if err != nil {
		c.logger.Error().Err(err).Str("dir", dir).Msg("scan failed, keeping previous index")
		return nil, err
	}
	c.current.Store(snap)
	c.logger.Info().Str("dir", dir).Int("entries", len(snap.entries)).Msg("catalog rebuilt")
	return snap, nil
}

// Snapshot returns the current immutable index.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Current implements store.Index.
func (c *Catalog) Current() store.EntryLookup {
	return c.Snapshot()
}

func (c *Catalog) build(dir string) (*Snapshot, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &domain.CatalogError{Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &domain.CatalogError{Dir: dir, Err: fmt.Errorf("not a directory")}
	}

	byEpoch := make(map[domain.Epoch]store.Entry)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		start, end, ok := c.convention.Decode(name)
		if !ok {
			c.logger.Debug().Str("file", name).Msg("ignoring file outside naming convention")
			return nil
		}
		period, err := c.codec.PeriodOf(start.Date())
		if err != nil {
			c.logger.Debug().Str("file", name).Err(err).Msg("ignoring file outside supported dates")
			return nil
		}
		entry := store.Entry{
			Epoch:     period,
			Date:      period.Date().Format(domain.DateLayout),
			FileStart: start,
			FileEnd:   end,
			Path:      path,
		}
		if prev, dup := byEpoch[period]; dup {
			kept, shadowed := prev, entry
			if filepath.Base(entry.Path) < filepath.Base(prev.Path) {
				kept, shadowed = entry, prev
			}
			c.logger.Warn().Str("epoch", period.String()).Str("kept", kept.Path).
				Str("shadowed", shadowed.Path).Msg("several files for one epoch")
			entry = kept
		}
		byEpoch[period] = entry
		return nil
	})
	if err != nil {
		return nil, &domain.CatalogError{Dir: dir, Err: err}
	}

	snap := emptySnapshot(dir)
	snap.entries = make([]store.Entry, 0, len(byEpoch))
	for _, e := range byEpoch {
		snap.entries = append(snap.entries, e)
	}
	sort.Slice(snap.entries, func(i, j int) bool {
		return snap.entries[i].Epoch.Before(snap.entries[j].Epoch)
	})
	for i, e := range snap.entries {
		snap.index[e.Epoch] = i
	}
	return snap, nil
}

// Snapshot is an immutable epoch index of one directory scan.
type Snapshot struct {
	dir     string
	entries []store.Entry // Ascending by epoch.
	index   map[domain.Epoch]int
}

func emptySnapshot(dir string) *Snapshot {
	return &Snapshot{dir: dir, index: make(map[domain.Epoch]int)}
}

// Dir is the directory the snapshot was built from.
func (s *Snapshot) Dir() string {
	return s.dir
}

// Len is the number of catalogued epochs.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Lookup returns the entry for an epoch and whether one exists.
func (s *Snapshot) Lookup(e domain.Epoch) (store.Entry, bool) {
	i, ok := s.index[e]
	if !ok {
		return store.Entry{}, false
	}
	return s.entries[i], true
}

// LookupRange returns the present entries with start <= epoch <= end, ascending.
func (s *Snapshot) LookupRange(start, end domain.Epoch) []store.Entry {
	lo := sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].Epoch.Before(start)
	})
	out := make([]store.Entry, 0)
	for i := lo; i < len(s.entries) && !end.Before(s.entries[i].Epoch); i++ {
		out = append(out, s.entries[i])
	}
	return out
}

// Entries returns a copy of every entry, ascending.
func (s *Snapshot) Entries() []store.Entry {
	out := make([]store.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
