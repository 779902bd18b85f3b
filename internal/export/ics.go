package export

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/sadopc/taskcal/internal/calendar"
	"github.com/sadopc/taskcal/internal/task"
)

const uidDomain = "@taskcal"

// WriteICS writes events as an iCalendar VCALENDAR. All-day events use
// DATE values in the meta location; timed events use UTC DATE-TIMEs.
func WriteICS(w io.Writer, events []calendar.Event, m Meta) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//taskcal//calendar export//EN")
	if m.Project != "" {
		cal.SetXWRCalName(m.Project)
	}
	if m.Location != nil {
		cal.SetXWRTimezone(m.Location.String())
	}

	stamp := time.Now().UTC()
	loc := m.loc()
	for _, ev := range events {
		ve := cal.AddEvent(ev.TaskID + uidDomain)
		ve.SetDtStampTime(stamp)
		ve.SetSummary(ev.Title)
		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start.In(loc))
			ve.SetAllDayEndAt(ev.Start.In(loc).AddDate(0, 0, 1))
		} else {
			ve.SetStartAt(ev.Start)
			ve.SetEndAt(ev.End)
		}
		ve.SetPriority(icsPriority(ev.Priority))
		ve.AddCategory(string(ev.Priority))
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

// icsPriority maps to RFC 5545 PRIORITY: 1 highest, 9 lowest.
func icsPriority(p task.Priority) int {
	switch p {
	case task.High:
		return 1
	case task.Low:
		return 9
	default:
		return 5
	}
}
