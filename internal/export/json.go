package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sadopc/taskcal/internal/calendar"
)

// Document is the JSON form of a projected window. The web feed serves the
// same shape.
type Document struct {
	ExportedAt string      `json:"exported_at"`
	Project    string      `json:"project,omitempty"`
	View       string      `json:"view"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	Count      int         `json:"count"`
	Events     []EventJSON `json:"events"`
}

type EventJSON struct {
	TaskID      string `json:"task_id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	AllDay      bool   `json:"all_day"`
	DurationSec int64  `json:"duration_seconds"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

// NewDocument builds the JSON document for events.
func NewDocument(events []calendar.Event, m Meta) Document {
	loc := m.loc()
	from, to := m.Window.Range(loc)
	doc := Document{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Project:    m.Project,
		View:       m.Window.Granularity.String(),
		From:       from.In(loc).Format(time.RFC3339),
		To:         to.In(loc).Format(time.RFC3339),
		Count:      len(events),
		Events:     make([]EventJSON, 0, len(events)),
	}
	for _, ev := range events {
		doc.Events = append(doc.Events, EventJSON{
			TaskID:      ev.TaskID,
			Title:       ev.Title,
			Start:       ev.Start.In(loc).Format(time.RFC3339),
			End:         ev.End.In(loc).Format(time.RFC3339),
			AllDay:      ev.AllDay,
			DurationSec: int64(ev.Duration() / time.Second),
			Priority:    string(ev.Priority),
			Status:      string(ev.Status),
		})
	}
	return doc
}

func WriteJSON(w io.Writer, events []calendar.Event, m Meta) error {
	data, err := json.MarshalIndent(NewDocument(events, m), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
