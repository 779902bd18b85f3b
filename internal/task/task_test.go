package task

import (
	"testing"
	"time"

	"github.com/sadopc/taskcal/internal/wallclock"
)

func TestStatusNext(t *testing.T) {
	if ToDo.Next() != InProgress || InProgress.Next() != Done || Done.Next() != ToDo {
		t.Fatal("status cycle broken")
	}
	if Status("bogus").Next() != ToDo {
		t.Fatal("unknown status should cycle to ToDo")
	}
}

func TestPriorityNext(t *testing.T) {
	if Low.Next() != Medium || Medium.Next() != High || High.Next() != Low {
		t.Fatal("priority cycle broken")
	}
	if Priority("").Next() != Medium {
		t.Fatal("unknown priority should cycle to Medium")
	}
}

func TestParseStatusAndPriority(t *testing.T) {
	if s, err := ParseStatus("In Progress"); err != nil || s != InProgress {
		t.Fatalf("ParseStatus: %v %v", s, err)
	}
	if _, err := ParseStatus("in progress"); err == nil {
		t.Fatal("expected error for non-canonical status")
	}
	if p, err := ParsePriority("High"); err != nil || p != High {
		t.Fatalf("ParsePriority: %v %v", p, err)
	}
	if _, err := ParsePriority("Urgent"); err == nil {
		t.Fatal("expected error for unknown priority")
	}
}

func TestScheduleFlags(t *testing.T) {
	var empty Schedule
	if empty.Scheduled() || empty.Timed() {
		t.Fatal("empty schedule should be unscheduled")
	}

	d := wallclock.Date{Year: 2026, Month: time.March, Day: 10}
	dueOnly := Schedule{DueDate: &d}
	if !dueOnly.Scheduled() || dueOnly.Timed() {
		t.Fatal("due-only schedule flags wrong")
	}

	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	end := start.Add(-time.Minute)
	inverted := Schedule{StartTime: &start, EndTime: &end}
	if inverted.Valid() {
		t.Fatal("inverted interval should be invalid")
	}
	end = start
	if !(Schedule{StartTime: &start, EndTime: &end}).Valid() {
		t.Fatal("zero-length interval should be valid")
	}
}

func TestScheduleCloneIsDeep(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	d := wallclock.Date{Year: 2026, Month: time.March, Day: 10}
	s := Schedule{DueDate: &d, StartTime: &start}

	c := s.Clone()
	*c.StartTime = c.StartTime.Add(time.Hour)
	c.DueDate.Day = 11

	if !s.StartTime.Equal(time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)) || s.DueDate.Day != 10 {
		t.Fatal("clone shares pointers with original")
	}
	if s.Equal(c) {
		t.Fatal("modified clone should not be equal")
	}
	if !s.Equal(s.Clone()) {
		t.Fatal("fresh clone should be equal")
	}
}

func TestPatchApply(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	orig := Task{ID: "a", Title: "Old", Status: ToDo, Priority: Low, Schedule: Schedule{StartTime: &start}}

	title := "New"
	status := Done
	p := Patch{Title: &title, Status: &status, Schedule: &Schedule{}}
	if p.Empty() {
		t.Fatal("patch should not be empty")
	}

	got := p.Apply(orig)
	if got.Title != "New" || got.Status != Done || got.Priority != Low {
		t.Fatalf("unexpected patched task %+v", got)
	}
	if got.Schedule.Scheduled() {
		t.Fatal("explicit empty schedule should clear temporal fields")
	}
	if orig.Title != "Old" || orig.Schedule.StartTime == nil {
		t.Fatal("Apply must not modify the input")
	}
	if !(Patch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}
}

func TestDraftDefaults(t *testing.T) {
	d := Draft{Title: "x"}.WithDefaults()
	if d.Status != ToDo || d.Priority != Medium {
		t.Fatalf("unexpected defaults %+v", d)
	}
	d = Draft{Status: Done, Priority: High}.WithDefaults()
	if d.Status != Done || d.Priority != High {
		t.Fatal("defaults should not override explicit values")
	}
}
