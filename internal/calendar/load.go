package calendar

import (
	"time"

	"github.com/sadopc/taskcal/internal/task"
	"github.com/sadopc/taskcal/internal/wallclock"
)

// DayLoad is the scheduled time on one local day, split by priority.
type DayLoad struct {
	Date       wallclock.Date
	ByPriority map[task.Priority]time.Duration
	AllDay     int
}

func (d DayLoad) Total() time.Duration {
	var total time.Duration
	for _, v := range d.ByPriority {
		total += v
	}
	return total
}

// Workload spreads timed events over the window's days, clipping each event
// to the day boundaries in loc. All-day events are counted, not timed.
func Workload(events []Event, w ViewWindow, loc *time.Location) []DayLoad {
	days := w.Days()
	out := make([]DayLoad, len(days))
	for i, d := range days {
		out[i] = DayLoad{Date: d, ByPriority: make(map[task.Priority]time.Duration)}
	}

	for _, ev := range events {
		for i, d := range days {
			dayStart := d.Midnight(loc)
			dayEnd := d.AddDays(1).Midnight(loc)
			if ev.AllDay {
				if !ev.Start.Before(dayStart) && ev.Start.Before(dayEnd) {
					out[i].AllDay++
				}
				continue
			}
			s, e := ev.Start, ev.End
			if s.Before(dayStart) {
				s = dayStart
			}
			if e.After(dayEnd) {
				e = dayEnd
			}
			if e.After(s) {
				out[i].ByPriority[ev.Priority] += e.Sub(s)
			}
		}
	}
	return out
}
