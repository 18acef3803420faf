// Package localtime turns persisted timestamps into comparable wall-clock
// instants in a single local zone.
//
// Two timestamp dialects coexist in stored data: naive local strings
// ("2025-03-01T18:30:00") and UTC-suffixed strings ("2025-03-01T18:30:00Z").
// For a UTC-suffixed string the resulting Instant carries the clock digits
// as written, not the converted local time. Stored data depends on that
// reading, so it must not be "fixed" here.
package localtime

import (
	"strings"
	"time"
)

// CanonicalLayout is the naive local form produced by Instant.String.
// Sub-second digits appear only when present.
const CanonicalLayout = "2006-01-02T15:04:05.999999999"

// naiveLayouts are tried in order for strings without a zone marker.
// time.Parse accepts fractional seconds after a seconds field even when
// the layout omits them.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/1/2 15:04",
}

// offsetLayouts carry an explicit numeric offset.
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
}

const dateOnlyLayout = "2006-01-02"

// Instant is a wall-clock point in time in the normalizer's zone. The zero
// value is the invalid sentinel.
type Instant struct {
	t     time.Time
	valid bool
}

// Invalid returns the invalid sentinel.
func Invalid() Instant { return Instant{} }

// FromTime wraps t, converted into loc, as a valid Instant.
func FromTime(t time.Time, loc *time.Location) Instant {
	if loc == nil {
		loc = time.Local
	}
	return Instant{t: t.In(loc), valid: true}
}

// At builds the instant at the given date and clock in loc. Out-of-range
// clock fields roll over the way time.Date does.
func At(year int, month time.Month, day int, c Clock, loc *time.Location) Instant {
	if loc == nil {
		loc = time.Local
	}
	return Instant{t: time.Date(year, month, day, c.Hour, c.Minute, 0, 0, loc), valid: true}
}

// Valid reports whether i holds a parsed time.
func (i Instant) Valid() bool { return i.valid }

// Time returns the underlying time; the zero time for an invalid instant.
func (i Instant) Time() time.Time {
	if !i.valid {
		return time.Time{}
	}
	return i.t
}

// Location returns the zone of i.
func (i Instant) Location() *time.Location {
	if !i.valid {
		return time.Local
	}
	return i.t.Location()
}

// Date returns the calendar date of i.
func (i Instant) Date() (year int, month time.Month, day int) {
	if !i.valid {
		return 0, 0, 0
	}
	return i.t.Date()
}

// Clock returns the hour and minute of i.
func (i Instant) Clock() Clock {
	if !i.valid {
		return Clock{}
	}
	return Clock{Hour: i.t.Hour(), Minute: i.t.Minute()}
}

// Midnight returns the start of i's calendar day.
func (i Instant) Midnight() Instant {
	if !i.valid {
		return i
	}
	y, m, d := i.t.Date()
	return Instant{t: time.Date(y, m, d, 0, 0, 0, 0, i.t.Location()), valid: true}
}

// AddDays moves i by n calendar days, keeping the wall clock.
func (i Instant) AddDays(n int) Instant {
	if !i.valid {
		return i
	}
	return Instant{t: i.t.AddDate(0, 0, n), valid: true}
}

// DaysUntil counts the calendar days from i's date to j's date. Clock
// changes between them do not shorten or stretch a day. It is 0 when either
// instant is invalid.
func (i Instant) DaysUntil(j Instant) int {
	if !i.valid || !j.valid {
		return 0
	}
	y1, m1, d1 := i.t.Date()
	y2, m2, d2 := j.t.Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from) / (24 * time.Hour))
}

// OnDay returns the instant at clock c on i's calendar day.
func (i Instant) OnDay(c Clock) Instant {
	if !i.valid {
		return i
	}
	y, m, d := i.t.Date()
	return At(y, m, d, c, i.t.Location())
}

// Before reports i < j. False when either is invalid.
func (i Instant) Before(j Instant) bool {
	return i.valid && j.valid && i.t.Before(j.t)
}

// After reports i > j. False when either is invalid.
func (i Instant) After(j Instant) bool {
	return i.valid && j.valid && i.t.After(j.t)
}

// Equal reports i == j. False when either is invalid.
func (i Instant) Equal(j Instant) bool {
	return i.valid && j.valid && i.t.Equal(j.t)
}

// NotBefore reports i >= j. False when either is invalid.
func (i Instant) NotBefore(j Instant) bool {
	return i.valid && j.valid && !i.t.Before(j.t)
}

// NotAfter reports i <= j. False when either is invalid.
func (i Instant) NotAfter(j Instant) bool {
	return i.valid && j.valid && !i.t.After(j.t)
}

// Within reports lo <= i < hi.
func (i Instant) Within(lo, hi Instant) bool {
	return i.NotBefore(lo) && i.Before(hi)
}

// Between reports lo <= i <= hi.
func (i Instant) Between(lo, hi Instant) bool {
	return i.NotBefore(lo) && i.NotAfter(hi)
}

// String renders the canonical naive local form, or "" when invalid.
func (i Instant) String() string {
	if !i.valid {
		return ""
	}
	return i.t.Format(CanonicalLayout)
}

// Normalizer converts stored timestamps into Instants in one zone.
type Normalizer struct {
	loc *time.Location
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLocation sets the local zone. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(n *Normalizer) {
		if loc != nil {
			n.loc = loc
		}
	}
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{loc: time.Local}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Location returns the zone instants are produced in.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Now returns the current time as an Instant.
func (n *Normalizer) Now() Instant {
	return FromTime(time.Now(), n.loc)
}

// FromTime converts t into the normalizer's zone.
func (n *Normalizer) FromTime(t time.Time) Instant {
	return FromTime(t, n.loc)
}

// Normalize parses stored into an Instant. It never fails loudly: input
// matching no known shape yields the invalid sentinel.
func (n *Normalizer) Normalize(stored string) Instant {
	s := strings.TrimSpace(stored)
	if s == "" {
		return Invalid()
	}

	if strings.HasSuffix(s, "Z") {
		// Keep the UTC clock digits as local wall-clock digits.
		return n.parseNaive(s[:len(s)-1])
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t, n.loc)
		}
	}

	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		// A bare date is read as UTC midnight, then shown locally.
		return FromTime(t, n.loc)
	}

	return n.parseNaive(s)
}

func (n *Normalizer) parseNaive(s string) Instant {
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return Instant{t: t, valid: true}
		}
	}
	return Invalid()
}

// ParseDateBound reads a "YYYY-MM-DD" query bound. The lower bound is the
// start of that day and the upper bound its last millisecond. Other shapes
// go through Normalize.
func (n *Normalizer) ParseDateBound(s string, upper bool) Instant {
	s = strings.TrimSpace(s)
	if s == "" {
		return Invalid()
	}
	if t, err := time.ParseInLocation(dateOnlyLayout, s, n.loc); err == nil {
		if upper {
			t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), n.loc)
		}
		return Instant{t: t, valid: true}
	}
	return n.Normalize(s)
}
