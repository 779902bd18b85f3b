package task

import (
	"fmt"
	"time"

	"github.com/sadopc/taskcal/internal/wallclock"
)

type Status string

const (
	ToDo       Status = "To Do"
	InProgress Status = "In Progress"
	Done       Status = "Done"
)

var Statuses = []Status{ToDo, InProgress, Done}

// ParseStatus maps a wire string to a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Next cycles ToDo -> InProgress -> Done -> ToDo.
func (s Status) Next() Status {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return ToDo
}

type Priority string

const (
	Low    Priority = "Low"
	Medium Priority = "Medium"
	High   Priority = "High"
)

var Priorities = []Priority{Low, Medium, High}

func ParsePriority(s string) (Priority, error) {
	for _, p := range Priorities {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Next cycles Low -> Medium -> High -> Low.
func (p Priority) Next() Priority {
	for i, pr := range Priorities {
		if pr == p {
			return Priorities[(i+1)%len(Priorities)]
		}
	}
	return Medium
}

// Schedule holds the temporal fields of a task. Each field is optional.
// StartTime and EndTime are canonical UTC instants.
type Schedule struct {
	DueDate   *wallclock.Date
	StartTime *time.Time
	EndTime   *time.Time
}

// Scheduled reports whether any temporal field is set.
func (s Schedule) Scheduled() bool {
	return s.DueDate != nil || s.StartTime != nil || s.EndTime != nil
}

// Timed reports whether the schedule carries an explicit time of day.
func (s Schedule) Timed() bool {
	return s.StartTime != nil || s.EndTime != nil
}

// Valid reports whether the schedule respects end >= start.
func (s Schedule) Valid() bool {
	if s.StartTime != nil && s.EndTime != nil {
		return !s.EndTime.Before(*s.StartTime)
	}
	return true
}

// Clone returns a deep copy so callers never share pointers with a stored record.
func (s Schedule) Clone() Schedule {
	var out Schedule
	if s.DueDate != nil {
		d := *s.DueDate
		out.DueDate = &d
	}
	if s.StartTime != nil {
		t := *s.StartTime
		out.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	return out
}

// Equal compares two schedules by value.
func (s Schedule) Equal(o Schedule) bool {
	return equalDate(s.DueDate, o.DueDate) &&
		equalTime(s.StartTime, o.StartTime) &&
		equalTime(s.EndTime, o.EndTime)
}

type Task struct {
	ID          string
	ProjectID   int64
	Title       string
	Description string
	Status      Status
	Priority    Priority
	Schedule    Schedule
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	t.Schedule = t.Schedule.Clone()
	return t
}

// Patch is a partial update. A non-nil Schedule replaces all temporal
// fields at once; nil members inside it clear the field.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	Schedule    *Schedule
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil && p.Schedule == nil
}

// Apply returns a copy of t with p applied.
func (p Patch) Apply(t Task) Task {
	out := t.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Schedule != nil {
		out.Schedule = p.Schedule.Clone()
	}
	return out
}

// Draft carries the fields of a task to be created.
type Draft struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	Schedule    Schedule
}

// WithDefaults fills the status and priority a new task starts with.
func (d Draft) WithDefaults() Draft {
	if d.Status == "" {
		d.Status = ToDo
	}
	if d.Priority == "" {
		d.Priority = Medium
	}
	return d
}

func equalDate(a, b *wallclock.Date) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
