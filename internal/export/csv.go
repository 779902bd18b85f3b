package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/sadopc/taskcal/internal/calendar"
)

var csvHeader = []string{"Task ID", "Project", "Title", "Start", "End", "All Day", "Duration", "Priority", "Status"}

// WriteCSV writes one row per event. Times are RFC 3339 in the meta location.
func WriteCSV(w io.Writer, events []calendar.Event, m Meta) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	loc := m.loc()
	for _, ev := range events {
		row := []string{
			ev.TaskID,
			m.Project,
			ev.Title,
			ev.Start.In(loc).Format(time.RFC3339),
			ev.End.In(loc).Format(time.RFC3339),
			strconv.FormatBool(ev.AllDay),
			formatDuration(ev.Duration()),
			string(ev.Priority),
			string(ev.Status),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
