package wallclock

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTemporalInput is returned for malformed date or time strings.
var ErrInvalidTemporalInput = errors.New("invalid temporal input")

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// DefaultDuration is the length of the block shown for a task that only has
// a start instant.
const DefaultDuration = time.Hour

// Normalizer converts between wall-clock fields and canonical instants for
// a single session timezone.
type Normalizer struct {
	Location *time.Location
	Now      func() time.Time
}

// New returns a Normalizer for loc using the real clock.
func New(loc *time.Location) Normalizer {
	return Normalizer{Location: loc, Now: time.Now}
}

func (n Normalizer) loc() *time.Location {
	if n.Location == nil {
		return time.UTC
	}
	return n.Location
}

func (n Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// Today returns the current local calendar date.
func (n Normalizer) Today() Date {
	return DateOf(n.now(), n.loc())
}

// CurrentInstant returns the clock's current instant in UTC.
func (n Normalizer) CurrentInstant() time.Time {
	return n.now().UTC()
}

// ToAbsolute composes a local date and time-of-day into a UTC instant.
// An empty clock means the field is unset and yields nil. An empty date
// defaults to today.
func (n Normalizer) ToAbsolute(date, clock string) (*time.Time, error) {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return nil, nil
	}

	var d Date
	if strings.TrimSpace(date) == "" {
		d = n.Today()
	} else {
		parsed, err := ParseDate(date)
		if err != nil {
			return nil, err
		}
		d = parsed
	}

	hour, minute, sec, err := parseClock(clock)
	if err != nil {
		return nil, err
	}

	t := time.Date(d.Year, d.Month, d.Day, hour, minute, sec, 0, n.loc()).UTC()
	return &t, nil
}

// ToWallClock is the inverse of ToAbsolute.
func (n Normalizer) ToWallClock(t time.Time) (date, clock string) {
	local := t.In(n.loc())
	return local.Format(DateLayout), local.Format(ClockLayout)
}

// DefaultEnd returns the end of the minimum visible block starting at start.
func (n Normalizer) DefaultEnd(start time.Time) time.Time {
	return start.Add(DefaultDuration)
}

// Midnight returns local midnight of d as a UTC instant.
func (n Normalizer) Midnight(d Date) time.Time {
	return d.Midnight(n.loc()).UTC()
}

// DateOf returns the local calendar date of t.
func (n Normalizer) DateOf(t time.Time) Date {
	return DateOf(t, n.loc())
}

// Loc returns the session location, UTC if none was configured.
func (n Normalizer) Loc() *time.Location {
	return n.loc()
}

func parseClock(s string) (hour, minute, sec int, err error) {
	for _, layout := range []string{ClockLayout, "15:04:05"} {
		t, perr := time.Parse(layout, s)
		if perr == nil {
			return t.Hour(), t.Minute(), t.Second(), nil
		}
	}
	return 0, 0, 0, fmt.Errorf("%w: time %q", ErrInvalidTemporalInput, s)
}
