package planner

import (
	"fmt"
	"strings"

	"github.com/sadopc/taskcal/internal/task"
	"github.com/sadopc/taskcal/internal/wallclock"
)

// Form is the raw text a user enters when creating or editing a task.
// Date and clock fields stay separate strings until ScheduleFromForm.
type Form struct {
	Title       string
	Description string
	Status      task.Status
	Priority    task.Priority
	DueDate     string // YYYY-MM-DD, optional
	StartClock  string // HH:MM, optional
	EndClock    string // HH:MM, optional
	EndDate     string // YYYY-MM-DD, blank means same day as DueDate
}

// FormFor pre-fills a form from t in the normalizer's local zone.
func FormFor(t task.Task, n wallclock.Normalizer) Form {
	f := Form{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
	}
	s := t.Schedule
	if s.DueDate != nil {
		f.DueDate = s.DueDate.String()
	}
	if s.StartTime != nil {
		date, clock := n.ToWallClock(*s.StartTime)
		f.StartClock = clock
		if f.DueDate == "" {
			f.DueDate = date
		}
	}
	if s.EndTime != nil {
		date, clock := n.ToWallClock(*s.EndTime)
		f.EndClock = clock
		if f.DueDate == "" {
			f.DueDate = date
		}
		if date != f.DueDate {
			f.EndDate = date
		}
	}
	return f
}

// ScheduleFromForm converts form strings into a Schedule. Times are
// composed with the due date (today when blank) in the local zone; the end
// clock uses EndDate instead when one is given. A due date with blank
// times yields an all-day schedule with no start or end.
func ScheduleFromForm(f Form, n wallclock.Normalizer) (task.Schedule, error) {
	var s task.Schedule

	dueStr := strings.TrimSpace(f.DueDate)
	if dueStr != "" {
		d, err := wallclock.ParseDate(dueStr)
		if err != nil {
			return task.Schedule{}, fmt.Errorf("due date: %w", err)
		}
		s.DueDate = &d
	}

	start, err := n.ToAbsolute(dueStr, strings.TrimSpace(f.StartClock))
	if err != nil {
		return task.Schedule{}, fmt.Errorf("start time: %w", err)
	}
	endDate := strings.TrimSpace(f.EndDate)
	if endDate == "" {
		endDate = dueStr
	} else if _, err := wallclock.ParseDate(endDate); err != nil {
		return task.Schedule{}, fmt.Errorf("end date: %w", err)
	}
	end, err := n.ToAbsolute(endDate, strings.TrimSpace(f.EndClock))
	if err != nil {
		return task.Schedule{}, fmt.Errorf("end time: %w", err)
	}
	s.StartTime = start
	s.EndTime = end

	if !s.Valid() {
		return task.Schedule{}, fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidInterval, strings.TrimSpace(f.EndClock), strings.TrimSpace(f.StartClock))
	}
	return s, nil
}

// Draft converts a form into a creation draft.
func (f Form) Draft(n wallclock.Normalizer) (task.Draft, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return task.Draft{}, ErrEmptyTitle
	}
	s, err := ScheduleFromForm(f, n)
	if err != nil {
		return task.Draft{}, err
	}
	return task.Draft{
		Title:       title,
		Description: strings.TrimSpace(f.Description),
		Status:      f.Status,
		Priority:    f.Priority,
		Schedule:    s,
	}.WithDefaults(), nil
}
