package calendar

import (
	"sort"
	"sync"
	"time"

	"github.com/sadopc/taskcal/internal/task"
	"github.com/sadopc/taskcal/internal/wallclock"
)

// DoneMarker is appended to the title of completed tasks.
const DoneMarker = " ✓"

// Event is a task projected onto the calendar. Events are derived values
// and are rebuilt on every projection.
type Event struct {
	TaskID   string
	Title    string
	Start    time.Time
	End      time.Time
	AllDay   bool
	Priority task.Priority
	Status   task.Status
}

func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Interval returns the instants a task occupies on the calendar, using the
// same rules as Project. ok is false for unscheduled tasks.
func Interval(t task.Task, n wallclock.Normalizer) (start, end time.Time, ok bool) {
	s := t.Schedule
	if !s.Scheduled() {
		return time.Time{}, time.Time{}, false
	}

	switch {
	case s.StartTime != nil:
		start = s.StartTime.UTC()
	case s.DueDate != nil:
		start = n.Midnight(*s.DueDate)
	default:
		// Only EndTime is set.
		start = n.CurrentInstant()
	}

	if s.EndTime != nil {
		end = s.EndTime.UTC()
	} else {
		end = n.DefaultEnd(start)
	}
	return start, end, true
}

// EventFor projects a single task without window filtering.
func EventFor(t task.Task, n wallclock.Normalizer) (Event, bool) {
	start, end, ok := Interval(t, n)
	if !ok {
		return Event{}, false
	}
	title := t.Title
	if t.Status == task.Done {
		title += DoneMarker
	}
	return Event{
		TaskID:   t.ID,
		Title:    title,
		Start:    start,
		End:      end,
		AllDay:   !t.Schedule.Timed(),
		Priority: t.Priority,
		Status:   t.Status,
	}, true
}

// Project maps tasks to the events visible in w, ordered by start then
// task id. It has no side effects and always returns a new slice.
func Project(tasks []task.Task, w ViewWindow, n wallclock.Normalizer) []Event {
	rangeStart, rangeEnd := w.Range(n.Loc())

	events := make([]Event, 0, len(tasks))
	for _, t := range tasks {
		ev, ok := EventFor(t, n)
		if !ok {
			continue
		}
		if !overlaps(ev.Start, ev.End, rangeStart, rangeEnd) {
			continue
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].TaskID < events[j].TaskID
	})
	return events
}

// overlaps reports whether [aStart, aEnd) intersects [bStart, bEnd).
// A zero-length interval counts when its instant lies inside b.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Source is a versioned task collection. Version must change whenever the
// tasks change.
type Source interface {
	Tasks() []task.Task
	Version() uint64
}

type cacheKey struct {
	version uint64
	window  ViewWindow
}

// Projector memoizes Project for one Source, keyed by the source version
// and the view window. A projection that includes an end-only task starts
// that task at the current instant, so it is never reused.
type Projector struct {
	src  Source
	norm wallclock.Normalizer

	mu         sync.Mutex
	valid      bool
	key        cacheKey
	cached     []Event
	clockBound bool
	hits       int
}

func NewProjector(src Source, n wallclock.Normalizer) *Projector {
	return &Projector{src: src, norm: n}
}

// Events returns the projection of the source for w. The result is a copy
// and may be modified by the caller.
func (p *Projector) Events(w ViewWindow) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := cacheKey{version: p.src.Version(), window: w}
	if !p.valid || p.clockBound || p.key != key {
		tasks := p.src.Tasks()
		p.cached = Project(tasks, w, p.norm)
		p.clockBound = anyEndOnly(tasks)
		p.key = key
		p.valid = true
	} else {
		p.hits++
	}

	out := make([]Event, len(p.cached))
	copy(out, p.cached)
	return out
}

func anyEndOnly(tasks []task.Task) bool {
	for _, t := range tasks {
		s := t.Schedule
		if s.EndTime != nil && s.StartTime == nil && s.DueDate == nil {
			return true
		}
	}
	return false
}

// Normalizer returns the normalizer used for projection.
func (p *Projector) Normalizer() wallclock.Normalizer {
	return p.norm
}
