package planner

import (
	"sync"

	"github.com/sadopc/taskcal/internal/task"
)

// Board is the in-memory task store for the project being viewed.
// Reads are safe from any goroutine. Writes are unexported and made only
// by the Coordinator, always replacing whole records.
type Board struct {
	mu        sync.RWMutex
	projectID int64
	order     []string
	tasks     map[string]task.Task
	version   uint64
}

func NewBoard() *Board {
	return &Board{tasks: make(map[string]task.Task)}
}

// Seed replaces the Board contents with a fresh fetch for projectID.
func (b *Board) Seed(projectID int64, tasks []task.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.projectID = projectID
	b.order = make([]string, 0, len(tasks))
	b.tasks = make(map[string]task.Task, len(tasks))
	for _, t := range tasks {
		if _, dup := b.tasks[t.ID]; !dup {
			b.order = append(b.order, t.ID)
		}
		b.tasks[t.ID] = t.Clone()
	}
	b.version++
}

func (b *Board) ProjectID() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.projectID
}

// Version increases on every write.
func (b *Board) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// Get returns a copy of the task with id.
func (b *Board) Get(id string) (task.Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[id]
	if !ok {
		return task.Task{}, false
	}
	return t.Clone(), true
}

// Tasks returns copies of every task in fetch order.
func (b *Board) Tasks() []task.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]task.Task, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.tasks[id].Clone())
	}
	return out
}

// put replaces an existing record. It reports false if id is unknown.
func (b *Board) put(t task.Task) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tasks[t.ID]; !ok {
		return false
	}
	b.tasks[t.ID] = t.Clone()
	b.version++
	return true
}

func (b *Board) insert(t task.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tasks[t.ID]; !ok {
		b.order = append(b.order, t.ID)
	}
	b.tasks[t.ID] = t.Clone()
	b.version++
}

func (b *Board) remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tasks[id]; !ok {
		return false
	}
	delete(b.tasks, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.version++
	return true
}
