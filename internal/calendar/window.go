package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/taskcal/internal/wallclock"
)

type Granularity int

const (
	Day Granularity = iota
	Week
	Month
)

var granularityNames = []string{"day", "week", "month"}

func (g Granularity) String() string {
	if int(g) < len(granularityNames) {
		return granularityNames[g]
	}
	return "unknown"
}

// ParseGranularity accepts "day", "week" or "month" (case-insensitive).
func ParseGranularity(s string) (Granularity, error) {
	for i, name := range granularityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Granularity(i), nil
		}
	}
	return Day, fmt.Errorf("unknown view %q", s)
}

// ParseWeekStart accepts "monday" or "sunday"; anything else is Monday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "sunday") {
		return time.Sunday
	}
	return time.Monday
}

// ViewWindow is the visible calendar range: a granularity anchored at a date.
type ViewWindow struct {
	Anchor      wallclock.Date
	Granularity Granularity
	WeekStart   time.Weekday
}

// Today returns w re-anchored at today's date.
func (w ViewWindow) Today(n wallclock.Normalizer) ViewWindow {
	w.Anchor = n.Today()
	return w
}

// Next moves forward by one unit of the window's granularity.
func (w ViewWindow) Next() ViewWindow {
	return w.shift(1)
}

// Prev moves back by one unit of the window's granularity.
func (w ViewWindow) Prev() ViewWindow {
	return w.shift(-1)
}

func (w ViewWindow) shift(n int) ViewWindow {
	switch w.Granularity {
	case Week:
		w.Anchor = w.Anchor.AddDays(7 * n)
	case Month:
		w.Anchor = w.Anchor.AddMonths(n)
	default:
		w.Anchor = w.Anchor.AddDays(n)
	}
	return w
}

// WithGranularity switches the view, keeping the anchor.
func (w ViewWindow) WithGranularity(g Granularity) ViewWindow {
	w.Granularity = g
	return w
}

// FirstDay returns the first local date covered by the window.
func (w ViewWindow) FirstDay() wallclock.Date {
	switch w.Granularity {
	case Week:
		back := (int(w.Anchor.Weekday()) - int(w.WeekStart) + 7) % 7
		return w.Anchor.AddDays(-back)
	case Month:
		return wallclock.Date{Year: w.Anchor.Year, Month: w.Anchor.Month, Day: 1}
	default:
		return w.Anchor
	}
}

// Days lists every local date covered by the window in order.
func (w ViewWindow) Days() []wallclock.Date {
	first := w.FirstDay()
	var n int
	switch w.Granularity {
	case Week:
		n = 7
	case Month:
		n = daysIn(first)
	default:
		n = 1
	}
	days := make([]wallclock.Date, n)
	for i := range days {
		days[i] = first.AddDays(i)
	}
	return days
}

func daysIn(first wallclock.Date) int {
	return first.AddMonths(1).AddDays(-1).Day
}

// Range returns the half-open interval [start, end) the window covers in loc.
func (w ViewWindow) Range(loc *time.Location) (time.Time, time.Time) {
	first := w.FirstDay()
	var last wallclock.Date
	switch w.Granularity {
	case Week:
		last = first.AddDays(7)
	case Month:
		last = first.AddMonths(1)
	default:
		last = first.AddDays(1)
	}
	return first.Midnight(loc), last.Midnight(loc)
}

// Label is a short human description of the window.
func (w ViewWindow) Label(loc *time.Location) string {
	start, end := w.Range(loc)
	switch w.Granularity {
	case Week:
		return fmt.Sprintf("%s — %s", start.Format("Jan 02"), end.AddDate(0, 0, -1).Format("Jan 02, 2006"))
	case Month:
		return start.Format("January 2006")
	default:
		return start.Format("Mon, Jan 02 2006")
	}
}
