package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sadopc/taskcal/internal/calendar"
	appLog "github.com/sadopc/taskcal/internal/log"
	"github.com/sadopc/taskcal/internal/task"
	"github.com/sadopc/taskcal/internal/wallclock"
)

var (
	ErrInvalidInterval    = errors.New("end is before start")
	ErrRemoteUpdateFailed = errors.New("remote update failed")
	ErrMutationInFlight   = errors.New("task has a pending change")
	ErrNotFound           = errors.New("task not found")
	ErrUnscheduled        = errors.New("task is not scheduled")
	ErrEmptyTitle         = errors.New("title is required")
)

// Remote is the persistent source of truth for tasks.
type Remote interface {
	ListTasks(ctx context.Context, projectID int64) ([]task.Task, error)
	UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error)
	CreateTask(ctx context.Context, projectID int64, d task.Draft) (task.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type Kind int

const (
	KindDrag Kind = iota
	KindResize
	KindEdit
	KindStatus
	KindPriority
)

func (k Kind) String() string {
	switch k {
	case KindDrag:
		return "drag"
	case KindResize:
		return "resize"
	case KindEdit:
		return "edit"
	case KindStatus:
		return "status"
	case KindPriority:
		return "priority"
	default:
		return "unknown"
	}
}

type State int

const (
	InFlight State = iota
	Confirmed
	Failed
)

func (s State) String() string {
	switch s {
	case InFlight:
		return "in flight"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pending is one optimistic change awaiting the remote call.
type Pending struct {
	TaskID   string
	Kind     Kind
	Patch    task.Patch
	Proposed task.Task
	Original task.Task
	State    State
	Started  time.Time
}

// Result is the answer of the remote update call.
type Result struct {
	Task task.Task
	Err  error
}

// Outcome reports how a pending change was settled. Stale is set when the
// pending change had already been discarded and the result was ignored.
type Outcome struct {
	Pending *Pending
	Err     error
	Stale   bool
}

// Notice is sent to OnNotice when a change is rolled back.
type Notice struct {
	TaskID string
	Title  string
	Kind   Kind
	Err    error
}

// Coordinator applies gestures to a Board optimistically and reconciles
// them with a Remote. A task has at most one pending change at a time.
type Coordinator struct {
	board  *Board
	remote Remote
	norm   wallclock.Normalizer

	// OnNotice, if set, is called after a rollback. It runs outside the
	// coordinator lock.
	OnNotice func(Notice)

	mu      sync.Mutex
	pending map[string]*Pending
}

func NewCoordinator(b *Board, r Remote, n wallclock.Normalizer) *Coordinator {
	return &Coordinator{
		board:   b,
		remote:  r,
		norm:    n,
		pending: make(map[string]*Pending),
	}
}

func (c *Coordinator) Board() *Board                    { return c.board }
func (c *Coordinator) Normalizer() wallclock.Normalizer { return c.norm }

// InFlight reports whether id has an unresolved change.
func (c *Coordinator) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Load fetches the tasks of projectID and seeds the Board. Unresolved
// changes from a previous load are discarded.
func (c *Coordinator) Load(ctx context.Context, projectID int64) error {
	tasks, err := c.remote.ListTasks(ctx, projectID)
	if err != nil {
		return fmt.Errorf("loading tasks for project %d: %w", projectID, err)
	}

	c.mu.Lock()
	c.pending = make(map[string]*Pending)
	c.mu.Unlock()

	c.board.Seed(projectID, tasks)
	appLog.Debug("board loaded", "project_id", projectID, "tasks", len(tasks))
	return nil
}

// BeginDrag moves a task so its calendar start becomes newStart. Timed
// tasks keep their duration. Due-date-only tasks move to newStart's date.
func (c *Coordinator) BeginDrag(id string, newStart time.Time) (*Pending, error) {
	return c.begin(id, KindDrag, func(cur task.Task) (task.Patch, error) {
		start, _, ok := calendar.Interval(cur, c.norm)
		if !ok {
			return task.Patch{}, fmt.Errorf("%w: %s", ErrUnscheduled, cur.Title)
		}
		delta := newStart.Sub(start)

		s := cur.Schedule.Clone()
		if s.Timed() {
			if s.StartTime != nil {
				t := s.StartTime.Add(delta).UTC()
				s.StartTime = &t
			}
			if s.EndTime != nil {
				t := s.EndTime.Add(delta).UTC()
				s.EndTime = &t
			}
		}
		if s.DueDate != nil {
			d := c.norm.DateOf(newStart)
			s.DueDate = &d
		}
		return task.Patch{Schedule: &s}, nil
	})
}

// BeginResize sets an explicit start/end pair. A nil side keeps the
// currently projected value.
func (c *Coordinator) BeginResize(id string, newStart, newEnd *time.Time) (*Pending, error) {
	return c.begin(id, KindResize, func(cur task.Task) (task.Patch, error) {
		start, end, ok := calendar.Interval(cur, c.norm)
		if !ok {
			return task.Patch{}, fmt.Errorf("%w: %s", ErrUnscheduled, cur.Title)
		}
		if newStart != nil {
			start = newStart.UTC()
		}
		if newEnd != nil {
			end = newEnd.UTC()
		}
		if end.Before(start) {
			return task.Patch{}, fmt.Errorf("%w: %s before %s", ErrInvalidInterval,
				end.Format(time.RFC3339), start.Format(time.RFC3339))
		}

		s := cur.Schedule.Clone()
		s.StartTime = &start
		s.EndTime = &end
		if s.DueDate != nil {
			d := c.norm.DateOf(start)
			s.DueDate = &d
		}
		return task.Patch{Schedule: &s}, nil
	})
}

// BeginEdit replaces the editable fields of a task with the form values.
// Blank status or priority keep the current value.
func (c *Coordinator) BeginEdit(id string, f Form) (*Pending, error) {
	return c.begin(id, KindEdit, func(cur task.Task) (task.Patch, error) {
		d, err := f.Draft(c.norm)
		if err != nil {
			return task.Patch{}, err
		}
		if f.Status == "" {
			d.Status = cur.Status
		}
		if f.Priority == "" {
			d.Priority = cur.Priority
		}
		return task.Patch{
			Title:       &d.Title,
			Description: &d.Description,
			Status:      &d.Status,
			Priority:    &d.Priority,
			Schedule:    &d.Schedule,
		}, nil
	})
}

func (c *Coordinator) BeginStatus(id string, st task.Status) (*Pending, error) {
	return c.begin(id, KindStatus, func(task.Task) (task.Patch, error) {
		return task.Patch{Status: &st}, nil
	})
}

func (c *Coordinator) BeginPriority(id string, p task.Priority) (*Pending, error) {
	return c.begin(id, KindPriority, func(task.Task) (task.Patch, error) {
		return task.Patch{Priority: &p}, nil
	})
}

func (c *Coordinator) begin(id string, kind Kind, build func(task.Task) (task.Patch, error)) (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.pending[id]; busy {
		return nil, fmt.Errorf("%w: %s", ErrMutationInFlight, id)
	}
	cur, ok := c.board.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	patch, err := build(cur)
	if err != nil {
		return nil, err
	}
	proposed := patch.Apply(cur)
	if !proposed.Schedule.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, cur.Title)
	}

	p := &Pending{
		TaskID:   id,
		Kind:     kind,
		Patch:    patch,
		Proposed: proposed,
		Original: cur,
		State:    InFlight,
		Started:  c.norm.CurrentInstant(),
	}
	c.board.put(proposed)
	c.pending[id] = p
	appLog.Debug("optimistic change", "task_id", id, "kind", kind)
	return p, nil
}

// Dispatch sends the pending patch to the remote. It does not touch the
// Board and may run on any goroutine.
func (c *Coordinator) Dispatch(ctx context.Context, p *Pending) Result {
	t, err := c.remote.UpdateTask(ctx, p.TaskID, p.Patch)
	return Result{Task: t, Err: err}
}

// Resolve settles p with the remote result. On success the optimistic
// record stays. On failure the original record is restored and the
// returned error wraps ErrRemoteUpdateFailed.
func (c *Coordinator) Resolve(p *Pending, r Result) Outcome {
	c.mu.Lock()
	if c.pending[p.TaskID] != p {
		c.mu.Unlock()
		appLog.Debug("stale result ignored", "task_id", p.TaskID, "kind", p.Kind)
		return Outcome{Pending: p, Stale: true}
	}
	delete(c.pending, p.TaskID)

	if r.Err == nil {
		p.State = Confirmed
		confirmed := p.Proposed
		if !r.Task.UpdatedAt.IsZero() {
			confirmed.UpdatedAt = r.Task.UpdatedAt
		}
		c.board.put(confirmed)
		c.mu.Unlock()
		return Outcome{Pending: p}
	}

	p.State = Failed
	c.board.put(p.Original)
	c.mu.Unlock()

	err := fmt.Errorf("%w: %s %q: %w", ErrRemoteUpdateFailed, p.Kind, p.Original.Title, r.Err)
	appLog.Error("change rolled back", r.Err, "task_id", p.TaskID, "kind", p.Kind)
	if c.OnNotice != nil {
		c.OnNotice(Notice{TaskID: p.TaskID, Title: p.Original.Title, Kind: p.Kind, Err: err})
	}
	return Outcome{Pending: p, Err: err}
}

// Apply dispatches and resolves p in one call.
func (c *Coordinator) Apply(ctx context.Context, p *Pending) Outcome {
	return c.Resolve(p, c.Dispatch(ctx, p))
}

// Create stores a new task remotely, then adds it to the Board.
func (c *Coordinator) Create(ctx context.Context, d task.Draft) (task.Task, error) {
	d = d.WithDefaults()
	if !d.Schedule.Valid() {
		return task.Task{}, ErrInvalidInterval
	}
	t, err := c.remote.CreateTask(ctx, c.board.ProjectID(), d)
	if err != nil {
		return task.Task{}, fmt.Errorf("creating task: %w", err)
	}
	c.board.insert(t)
	appLog.Info("task created", "task_id", t.ID, "title", t.Title)
	return t, nil
}

// Delete removes a task remotely, then from the Board. Any pending change
// for the task is discarded and its later result ignored.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if err := c.remote.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}

	c.mu.Lock()
	delete(c.pending, id)
	c.board.remove(id)
	c.mu.Unlock()

	appLog.Info("task deleted", "task_id", id)
	return nil
}
