package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted on every surface.
const DateLayout = "2006-01-02"

// Epoch is the archive's native year + day-of-year key (e.g. 2015001 for 2015-01-01).
type Epoch struct {
	Year int // Calendar year.
	Day  int // 1-based day of year.
}

// ParseEpoch parses the seven digit YYYYDDD form used in archive file names.
func ParseEpoch(s string) (Epoch, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 {
		return Epoch{}, fmt.Errorf("%w: epoch %q must be YYYYDDD", ErrInvalidDate, s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return Epoch{}, fmt.Errorf("%w: epoch %q: %v", ErrInvalidDate, s, err)
	}
	day, err := strconv.Atoi(s[4:])
	if err != nil {
		return Epoch{}, fmt.Errorf("%w: epoch %q: %v", ErrInvalidDate, s, err)
	}
	e := Epoch{Year: year, Day: day}
	if !e.Valid() {
		return Epoch{}, fmt.Errorf("%w: epoch %q: day %d outside year %d", ErrInvalidDate, s, day, year)
	}
	return e, nil
}

// Valid reports whether the day exists in the epoch's year.
func (e Epoch) Valid() bool {
	return e.Year > 0 && e.Day >= 1 && e.Day <= daysIn(e.Year)
}

// Date returns the calendar date (UTC midnight) the epoch denotes.
func (e Epoch) Date() time.Time {
	return time.Date(e.Year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, e.Day-1)
}

// Compare returns -1, 0 or +1 ordering e relative to o.
func (e Epoch) Compare(o Epoch) int {
	switch {
	case e.Year < o.Year:
		return -1
	case e.Year > o.Year:
		return 1
	case e.Day < o.Day:
		return -1
	case e.Day > o.Day:
		return 1
	}
	return 0
}

// Before reports whether e sorts before o.
func (e Epoch) Before(o Epoch) bool {
	return e.Compare(o) < 0
}

// String renders the YYYYDDD key.
func (e Epoch) String() string {
	return fmt.Sprintf("%04d%03d", e.Year, e.Day)
}

// MarshalText encodes the epoch as its YYYYDDD key.
func (e Epoch) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes a YYYYDDD key.
func (e *Epoch) UnmarshalText(b []byte) error {
	parsed, err := ParseEpoch(string(b))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// EpochRange is an inclusive pair of epochs.
type EpochRange struct {
	Start Epoch
	End   Epoch
}

func daysIn(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

func epochOf(t time.Time) Epoch {
	return Epoch{Year: t.Year(), Day: t.YearDay()}
}

// truncateDay drops the time of day and moves the date to UTC.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Cadence is the archive's sampling interval.
type Cadence int

const (
	// CadenceMonthly has one observation period per calendar month.
	CadenceMonthly Cadence = iota
	// CadenceDaily has one observation period per day.
	CadenceDaily
)

// ParseCadence maps a configuration name to a Cadence.
func ParseCadence(s string) (Cadence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monthly":
		return CadenceMonthly, nil
	case "daily":
		return CadenceDaily, nil
	}
	return 0, fmt.Errorf("unknown cadence %q (expected monthly or daily)", s)
}

func (c Cadence) String() string {
	if c == CadenceDaily {
		return "daily"
	}
	return "monthly"
}

// PeriodOf returns the epoch starting the observation period that contains t.
func (c Cadence) PeriodOf(t time.Time) Epoch {
	t = truncateDay(t)
	if c == CadenceMonthly {
		t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return epochOf(t)
}

// Periods lists the period epochs from the one containing start to the one
// containing end, ascending. It returns nil when end precedes start.
func (c Cadence) Periods(start, end time.Time) []Epoch {
	first := c.PeriodOf(start).Date()
	last := c.PeriodOf(end).Date()
	var out []Epoch
	for t := first; !t.After(last); t = c.next(t) {
		out = append(out, epochOf(t))
	}
	return out
}

// PerYear is the number of periods the cadence defines in year.
func (c Cadence) PerYear(year int) int {
	if c == CadenceDaily {
		return daysIn(year)
	}
	return 12
}

func (c Cadence) next(t time.Time) time.Time {
	if c == CadenceDaily {
		return t.AddDate(0, 0, 1)
	}
	return t.AddDate(0, 1, 0)
}

// DateCodec converts between calendar dates and epochs for a bounded range of years.
// It holds no mutable state.
type DateCodec struct {
	MinYear int
	MaxYear int
	Cadence Cadence
}

// DefaultDateCodec covers the GRACE / GRACE-FO record at monthly cadence.
func DefaultDateCodec() DateCodec {
	return DateCodec{MinYear: 2002, MaxYear: 2100, Cadence: CadenceMonthly}
}

// ParseDate parses a YYYY-MM-DD date and checks it against the supported range.
func (c DateCodec) ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD): %v", ErrInvalidDate, s, err)
	}
	if err := c.check(t); err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// ToEpoch returns the canonical epoch for a date.
func (c DateCodec) ToEpoch(t time.Time) (Epoch, error) {
	t = truncateDay(t)
	if err := c.check(t); err != nil {
		return Epoch{}, err
	}
	return epochOf(t), nil
}

// ToDate returns the calendar date an epoch denotes.
func (c DateCodec) ToDate(e Epoch) (time.Time, error) {
	if !e.Valid() {
		return time.Time{}, fmt.Errorf("%w: epoch %s is not a day of year %d", ErrInvalidDate, e, e.Year)
	}
	t := e.Date()
	if err := c.check(t); err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// ParseKey accepts either a YYYY-MM-DD date or a YYYYDDD epoch key.
func (c DateCodec) ParseKey(s string) (Epoch, error) {
	s = strings.TrimSpace(s)
	if len(s) == 7 && !strings.Contains(s, "-") {
		e, err := ParseEpoch(s)
		if err != nil {
			return Epoch{}, err
		}
		if _, err := c.ToDate(e); err != nil {
			return Epoch{}, err
		}
		return e, nil
	}
	t, err := c.ParseDate(s)
	if err != nil {
		return Epoch{}, err
	}
	return epochOf(t), nil
}

// PeriodOf validates t and returns the epoch of its cadence period.
func (c DateCodec) PeriodOf(t time.Time) (Epoch, error) {
	t = truncateDay(t)
	if err := c.check(t); err != nil {
		return Epoch{}, err
	}
	return c.Cadence.PeriodOf(t), nil
}

// Periods validates the range and lists the cadence periods it touches.
func (c DateCodec) Periods(start, end time.Time) ([]Epoch, error) {
	start, end = truncateDay(start), truncateDay(end)
	if err := c.checkRange(start, end); err != nil {
		return nil, err
	}
	return c.Cadence.Periods(start, end), nil
}

// NormalizeRange widens [start, end] to whole calendar years: start moves back
// to January 1 and end forward to December 31 of their years.
func (c DateCodec) NormalizeRange(start, end time.Time) (time.Time, time.Time, error) {
	start, end = truncateDay(start), truncateDay(end)
	if err := c.checkRange(start, end); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.Month() != time.January || start.Day() != 1 {
		start = time.Date(start.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if end.Month() != time.December || end.Day() != 31 {
		end = time.Date(end.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return start, end, nil
}

func (c DateCodec) checkRange(start, end time.Time) error {
	if err := c.check(start); err != nil {
		return err
	}
	if err := c.check(end); err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidDate, start.Format(DateLayout), end.Format(DateLayout))
	}
	return nil
}

func (c DateCodec) check(t time.Time) error {
	if t.Year() < c.MinYear || t.Year() > c.MaxYear {
		return fmt.Errorf("%w: %s outside supported years %d-%d", ErrInvalidDate, t.Format(DateLayout), c.MinYear, c.MaxYear)
	}
	return nil
}
