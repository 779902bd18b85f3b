package calendar

import (
	"reflect"
	"testing"
	"time"

	"github.com/sadopc/taskcal/internal/task"
	"github.com/sadopc/taskcal/internal/wallclock"
)

var testLoc = time.FixedZone("UTC-5", -5*3600)

func testNormalizer() wallclock.Normalizer {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	return wallclock.Normalizer{Location: testLoc, Now: func() time.Time { return now }}
}

func date(y int, m time.Month, d int) *wallclock.Date {
	return &wallclock.Date{Year: y, Month: m, Day: d}
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func weekOf(d wallclock.Date) ViewWindow {
	return ViewWindow{Anchor: d, Granularity: Week, WeekStart: time.Monday}
}

// ============================================================
// ViewWindow
// ============================================================

func TestWindowRanges(t *testing.T) {
	anchor := wallclock.Date{Year: 2026, Month: time.March, Day: 11} // Wednesday

	cases := []struct {
		name       string
		w          ViewWindow
		start, end wallclock.Date
		days       int
	}{
		{"day", ViewWindow{Anchor: anchor, Granularity: Day}, anchor, anchor.AddDays(1), 1},
		{"week monday", ViewWindow{Anchor: anchor, Granularity: Week, WeekStart: time.Monday},
			wallclock.Date{Year: 2026, Month: time.March, Day: 9}, wallclock.Date{Year: 2026, Month: time.March, Day: 16}, 7},
		{"week sunday", ViewWindow{Anchor: anchor, Granularity: Week, WeekStart: time.Sunday},
			wallclock.Date{Year: 2026, Month: time.March, Day: 8}, wallclock.Date{Year: 2026, Month: time.March, Day: 15}, 7},
		{"month", ViewWindow{Anchor: anchor, Granularity: Month},
			wallclock.Date{Year: 2026, Month: time.March, Day: 1}, wallclock.Date{Year: 2026, Month: time.April, Day: 1}, 31},
		{"february", ViewWindow{Anchor: wallclock.Date{Year: 2024, Month: time.February, Day: 29}, Granularity: Month},
			wallclock.Date{Year: 2024, Month: time.February, Day: 1}, wallclock.Date{Year: 2024, Month: time.March, Day: 1}, 29},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			start, end := c.w.Range(testLoc)
			if !start.Equal(c.start.Midnight(testLoc)) || !end.Equal(c.end.Midnight(testLoc)) {
				t.Fatalf("range = [%v, %v), want [%v, %v)", start, end, c.start, c.end)
			}
			if got := len(c.w.Days()); got != c.days {
				t.Fatalf("days = %d, want %d", got, c.days)
			}
		})
	}
}

func TestWindowWeekStartsOnAnchorDay(t *testing.T) {
	monday := wallclock.Date{Year: 2026, Month: time.March, Day: 9}
	w := ViewWindow{Anchor: monday, Granularity: Week, WeekStart: time.Monday}
	if w.FirstDay() != monday {
		t.Fatalf("week of a Monday should start that Monday, got %v", w.FirstDay())
	}
}

func TestWindowNavigation(t *testing.T) {
	anchor := wallclock.Date{Year: 2026, Month: time.January, Day: 31}

	day := ViewWindow{Anchor: anchor, Granularity: Day}
	if day.Next().Anchor != (wallclock.Date{Year: 2026, Month: time.February, Day: 1}) {
		t.Fatalf("day next: %v", day.Next().Anchor)
	}
	if day.Prev().Anchor != (wallclock.Date{Year: 2026, Month: time.January, Day: 30}) {
		t.Fatalf("day prev: %v", day.Prev().Anchor)
	}

	week := day.WithGranularity(Week)
	if week.Next().Anchor != anchor.AddDays(7) || week.Prev().Anchor != anchor.AddDays(-7) {
		t.Fatal("week navigation should move by 7 days")
	}

	month := day.WithGranularity(Month)
	if got := month.Next().Anchor; got.Month != time.February || got.Year != 2026 {
		t.Fatalf("month next from Jan 31 should land in February, got %v", got)
	}
	if got := month.Prev().Anchor; got.Month != time.December || got.Year != 2025 {
		t.Fatalf("month prev: %v", got)
	}

	n := testNormalizer()
	if got := month.Today(n).Anchor; got != (wallclock.Date{Year: 2026, Month: time.March, Day: 10}) {
		t.Fatalf("today: %v", got)
	}
	if month.Anchor != anchor {
		t.Fatal("navigation must not modify the receiver")
	}
}

func TestParseGranularity(t *testing.T) {
	for s, want := range map[string]Granularity{"day": Day, "Week": Week, " MONTH ": Month} {
		got, err := ParseGranularity(s)
		if err != nil || got != want {
			t.Errorf("ParseGranularity(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseGranularity("year"); err == nil {
		t.Fatal("expected error")
	}
	if ParseWeekStart("Sunday") != time.Sunday || ParseWeekStart("") != time.Monday {
		t.Fatal("ParseWeekStart")
	}
}

// ============================================================
// Project
// ============================================================

func TestProjectAllDayInference(t *testing.T) {
	n := testNormalizer()
	tasks := []task.Task{{ID: "a", Title: "Report", Schedule: task.Schedule{DueDate: date(2026, time.March, 10)}}}

	events := Project(tasks, weekOf(wallclock.Date{Year: 2026, Month: time.March, Day: 10}), n)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if !ev.AllDay {
		t.Fatal("due-date-only task should be all-day")
	}
	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, testLoc)
	if !ev.Start.Equal(midnight) {
		t.Fatalf("start = %v, want local midnight %v", ev.Start, midnight)
	}
	if !ev.End.Equal(midnight.Add(time.Hour)) {
		t.Fatalf("end = %v, want start+1h", ev.End)
	}
}

func TestProjectTimedAndMarkers(t *testing.T) {
	n := testNormalizer()
	tasks := []task.Task{
		{ID: "b", Title: "Meeting", Status: task.Done, Priority: task.High,
			Schedule: task.Schedule{StartTime: ts("2026-03-10T14:00:00Z"), EndTime: ts("2026-03-10T15:30:00Z")}},
		{ID: "c", Title: "Call", Schedule: task.Schedule{StartTime: ts("2026-03-10T16:00:00Z")}},
	}

	events := Project(tasks, weekOf(wallclock.Date{Year: 2026, Month: time.March, Day: 10}), n)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Title != "Meeting"+DoneMarker || events[0].AllDay || events[0].Priority != task.High {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[0].Duration() != 90*time.Minute {
		t.Fatalf("duration = %v", events[0].Duration())
	}
	if events[1].AllDay {
		t.Fatal("start-only task is timed")
	}
	if !events[1].End.Equal(events[1].Start.Add(time.Hour)) {
		t.Fatal("start-only task should get the default 1h block")
	}
}

func TestProjectEndOnlyFallsBackToNow(t *testing.T) {
	n := testNormalizer()
	tasks := []task.Task{{ID: "e", Schedule: task.Schedule{EndTime: ts("2026-03-10T18:00:00Z")}}}
	events := Project(tasks, weekOf(wallclock.Date{Year: 2026, Month: time.March, Day: 10}), n)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !events[0].Start.Equal(n.CurrentInstant()) || events[0].AllDay {
		t.Fatalf("unexpected event %+v", events[0])
	}
}

func TestProjectSkipsUnscheduled(t *testing.T) {
	n := testNormalizer()
	tasks := []task.Task{{ID: "u", Title: "Someday"}}
	if events := Project(tasks, weekOf(n.Today()), n); len(events) != 0 {
		t.Fatalf("unscheduled task projected: %+v", events)
	}
}

func TestProjectFiltersByWindow(t *testing.T) {
	n := testNormalizer()
	tasks := []task.Task{
		{ID: "in", Schedule: task.Schedule{DueDate: date(2026, time.March, 10)}},
		{ID: "before", Schedule: task.Schedule{DueDate: date(2026, time.March, 9)}},
		{ID: "after", Schedule: task.Schedule{DueDate: date(2026, time.March, 11)}},
		// Starts before the day, ends inside it.
		{ID: "span", Schedule: task.Schedule{StartTime: ts("2026-03-10T03:00:00Z"), EndTime: ts("2026-03-10T06:00:00Z")}},
		// Ends exactly at the window start: excluded.
		{ID: "edge", Schedule: task.Schedule{StartTime: ts("2026-03-10T04:00:00Z"), EndTime: ts("2026-03-10T05:00:00Z")}},
		// Zero-length at the window start: included.
		{ID: "point", Schedule: task.Schedule{StartTime: ts("2026-03-10T05:00:00Z"), EndTime: ts("2026-03-10T05:00:00Z")}},
	}

	w := ViewWindow{Anchor: wallclock.Date{Year: 2026, Month: time.March, Day: 10}, Granularity: Day}
	events := Project(tasks, w, n)

	var ids []string
	for _, ev := range events {
		ids = append(ids, ev.TaskID)
	}
	want := []string{"span", "in", "point"}
	// "span" starts at 03:00Z, "in" and "point" both at 05:00Z (tie by id).
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestProjectSortsWithTieBreak(t *testing.T) {
	n := testNormalizer()
	tasks := []task.Task{
		{ID: "z", Schedule: task.Schedule{StartTime: ts("2026-03-10T14:00:00Z")}},
		{ID: "a", Schedule: task.Schedule{StartTime: ts("2026-03-10T14:00:00Z")}},
		{ID: "m", Schedule: task.Schedule{StartTime: ts("2026-03-10T13:00:00Z")}},
	}
	events := Project(tasks, weekOf(n.Today()), n)
	if events[0].TaskID != "m" || events[1].TaskID != "a" || events[2].TaskID != "z" {
		t.Fatalf("unexpected order %v %v %v", events[0].TaskID, events[1].TaskID, events[2].TaskID)
	}
}

func TestProjectIsPure(t *testing.T) {
	n := testNormalizer()
	tasks := []task.Task{
		{ID: "b", Schedule: task.Schedule{StartTime: ts("2026-03-10T14:00:00Z"), EndTime: ts("2026-03-10T15:00:00Z")}},
		{ID: "a", Schedule: task.Schedule{DueDate: date(2026, time.March, 12)}},
	}
	w := weekOf(n.Today())

	first := Project(tasks, w, n)
	second := Project(tasks, w, n)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("projection not deterministic")
	}
	first[0].Title = "mutated"
	if third := Project(tasks, w, n); third[0].Title == "mutated" {
		t.Fatal("projection shares state between calls")
	}
}

// ============================================================
// Projector
// ============================================================

type fakeSource struct {
	tasks   []task.Task
	version uint64
	calls   int
}

func (f *fakeSource) Tasks() []task.Task { f.calls++; return f.tasks }
func (f *fakeSource) Version() uint64    { return f.version }

func TestProjectorMemoizes(t *testing.T) {
	n := testNormalizer()
	src := &fakeSource{tasks: []task.Task{{ID: "a", Schedule: task.Schedule{DueDate: date(2026, time.March, 10)}}}}
	p := NewProjector(src, n)
	w := weekOf(n.Today())

	first := p.Events(w)
	second := p.Events(w)
	if src.calls != 1 || p.hits != 1 {
		t.Fatalf("expected one computation and one hit, got calls=%d hits=%d", src.calls, p.hits)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("cached result differs")
	}

	second[0].Title = "changed"
	if p.Events(w)[0].Title == "changed" {
		t.Fatal("cache leaked to caller")
	}

	// Window change invalidates.
	p.Events(w.Next())
	if src.calls != 2 {
		t.Fatalf("window change should recompute, calls=%d", src.calls)
	}

	// Version change invalidates.
	src.tasks = append(src.tasks, task.Task{ID: "b", Schedule: task.Schedule{DueDate: date(2026, time.March, 11)}})
	src.version++
	if got := p.Events(w); len(got) != 2 {
		t.Fatalf("expected 2 events after version bump, got %d", len(got))
	}
}

func TestProjectorRecomputesEndOnly(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	n := wallclock.Normalizer{Location: testLoc, Now: func() time.Time { return now }}
	src := &fakeSource{tasks: []task.Task{{ID: "a", Schedule: task.Schedule{EndTime: ts("2026-03-10T20:00:00Z")}}}}
	p := NewProjector(src, n)
	w := weekOf(n.Today())

	first := p.Events(w)
	if len(first) != 1 || !first[0].Start.Equal(now) {
		t.Fatalf("first = %+v", first)
	}

	now = now.Add(time.Hour)
	second := p.Events(w)
	if src.calls != 2 || p.hits != 0 {
		t.Fatalf("end-only task should not be cached, calls=%d hits=%d", src.calls, p.hits)
	}
	if len(second) != 1 || !second[0].Start.Equal(now) {
		t.Fatalf("second = %+v", second)
	}
}

// ============================================================
// Workload
// ============================================================

func TestWorkload(t *testing.T) {
	n := testNormalizer()
	tasks := []task.Task{
		{ID: "a", Priority: task.High, Schedule: task.Schedule{StartTime: ts("2026-03-10T14:00:00Z"), EndTime: ts("2026-03-10T16:00:00Z")}},
		{ID: "b", Priority: task.Low, Schedule: task.Schedule{StartTime: ts("2026-03-10T15:00:00Z")}},
		{ID: "c", Schedule: task.Schedule{DueDate: date(2026, time.March, 11)}},
		// 22:00 local on the 11th until 02:00 local on the 12th.
		{ID: "d", Priority: task.Medium, Schedule: task.Schedule{StartTime: ts("2026-03-12T03:00:00Z"), EndTime: ts("2026-03-12T07:00:00Z")}},
	}
	w := weekOf(wallclock.Date{Year: 2026, Month: time.March, Day: 10})
	loads := Workload(Project(tasks, w, n), w, testLoc)
	if len(loads) != 7 {
		t.Fatalf("expected 7 days, got %d", len(loads))
	}

	tue := loads[1]
	if tue.ByPriority[task.High] != 2*time.Hour || tue.ByPriority[task.Low] != time.Hour || tue.Total() != 3*time.Hour {
		t.Fatalf("unexpected Tuesday load %+v", tue)
	}
	wed := loads[2]
	if wed.AllDay != 1 || wed.ByPriority[task.Medium] != 2*time.Hour {
		t.Fatalf("unexpected Wednesday load %+v", wed)
	}
	if loads[3].ByPriority[task.Medium] != 2*time.Hour {
		t.Fatalf("overnight event should be clipped into Thursday: %+v", loads[3])
	}
}
