package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/taskcal/internal/task"
	"github.com/sadopc/taskcal/internal/wallclock"
)

// ErrInvalidSchedule is returned when a write would store end before start.
var ErrInvalidSchedule = errors.New("task end is before start")

const taskColumns = `id, project_id, title, description, status, priority, due_date, start_time, end_time, created_at, updated_at`

// CreateTask inserts a task with a fresh UUID.
func (s *Store) CreateTask(ctx context.Context, projectID int64, d task.Draft) (task.Task, error) {
	d = d.WithDefaults()
	if !d.Schedule.Valid() {
		return task.Task{}, ErrInvalidSchedule
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	due, start, end := scheduleColumns(d.Schedule)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, projectID, d.Title, d.Description, string(d.Status), string(d.Priority),
		due, start, end, now, now,
	)
	if err != nil {
		return task.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, id)
}

func (s *Store) GetTask(ctx context.Context, id string) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// ListTasks returns the tasks of a project in creation order.
func (s *Store) ListTasks(ctx context.Context, projectID int64) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY created_at, rowid`, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies p to the stored task and returns the new record.
func (s *Store) UpdateTask(ctx context.Context, id string, p task.Patch) (task.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return task.Task{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("update task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}

	next := p.Apply(cur)
	if !next.Schedule.Valid() {
		return task.Task{}, fmt.Errorf("update task %s: %w", id, ErrInvalidSchedule)
	}
	next.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	due, start, end := scheduleColumns(next.Schedule)
	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?,
			due_date = ?, start_time = ?, end_time = ?, updated_at = ? WHERE id = ?`,
		next.Title, next.Description, string(next.Status), string(next.Priority),
		due, start, end, next.UpdatedAt.Format(time.RFC3339), id,
	)
	if err != nil {
		return task.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return task.Task{}, fmt.Errorf("commit task %s: %w", id, err)
	}
	return next, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return requireRow(res, "task", id)
}

// CountTasks returns the number of tasks per project.
func (s *Store) CountTasks(ctx context.Context) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project_id, COUNT(*) FROM tasks GROUP BY project_id`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var pid int64
		var n int
		if err := rows.Scan(&pid, &n); err != nil {
			return nil, err
		}
		counts[pid] = n
	}
	return counts, rows.Err()
}

func scheduleColumns(sc task.Schedule) (due, start, end sql.NullString) {
	if sc.DueDate != nil {
		due = sql.NullString{String: sc.DueDate.String(), Valid: true}
	}
	if sc.StartTime != nil {
		start = sql.NullString{String: sc.StartTime.UTC().Format(time.RFC3339), Valid: true}
	}
	if sc.EndTime != nil {
		end = sql.NullString{String: sc.EndTime.UTC().Format(time.RFC3339), Valid: true}
	}
	return due, start, end
}

func scanTask(row scanner) (task.Task, error) {
	var t task.Task
	var status, priority, createdAt, updatedAt string
	var due, start, end sql.NullString
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &status, &priority,
		&due, &start, &end, &createdAt, &updatedAt)
	if err != nil {
		return task.Task{}, err
	}

	t.Status = task.Status(status)
	t.Priority = task.Priority(priority)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if due.Valid {
		d, err := wallclock.ParseDate(due.String)
		if err != nil {
			return task.Task{}, fmt.Errorf("task %s due_date: %w", t.ID, err)
		}
		t.Schedule.DueDate = &d
	}
	if t.Schedule.StartTime, err = parseInstant(start); err != nil {
		return task.Task{}, fmt.Errorf("task %s start_time: %w", t.ID, err)
	}
	if t.Schedule.EndTime, err = parseInstant(end); err != nil {
		return task.Task{}, fmt.Errorf("task %s end_time: %w", t.ID, err)
	}
	return t, nil
}

func parseInstant(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	v, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, err
	}
	v = v.UTC()
	return &v, nil
}
