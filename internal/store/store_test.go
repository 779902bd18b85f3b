package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sadopc/taskcal/internal/task"
	"github.com/sadopc/taskcal/internal/wallclock"
)

var ctx = context.Background()

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestProject(t *testing.T, s *Store, name string) *Project {
	t.Helper()
	p, err := s.CreateProject(ctx, name, "#000", "work")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s := newTestStore(t)

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	path := t.TempDir() + "/sub/taskcal.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.CreateProject(ctx, "Kept", "#111", "work")
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: data survives and migration is not repeated.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if _, err := s2.GetProject(ctx, p.ID); err != nil {
		t.Fatalf("project lost after reopen: %v", err)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)
	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Projects
// ============================================================

func TestCreateAndGetProject(t *testing.T) {
	s := newTestStore(t)
	p, err := s.CreateProject(ctx, "Work", "#FF0000", "work")
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == 0 || p.Name != "Work" || p.Color != "#FF0000" || p.Category != "work" {
		t.Fatalf("unexpected project: %+v", p)
	}
	if p.Archived || p.CreatedAt.IsZero() {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestCreateProjectDuplicateName(t *testing.T) {
	s := newTestStore(t)
	newTestProject(t, s, "Dup")
	if _, err := s.CreateProject(ctx, "Dup", "#222", "personal"); err == nil {
		t.Fatal("expected error for duplicate project name")
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetProject(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListProjectsSortedAndArchived(t *testing.T) {
	s := newTestStore(t)
	newTestProject(t, s, "B")
	a := newTestProject(t, s, "A")

	projects, err := s.ListProjects(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 || projects[0].Name != "A" || projects[1].Name != "B" {
		t.Fatalf("expected [A B], got %+v", projects)
	}

	if err := s.ArchiveProject(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	projects, _ = s.ListProjects(ctx, false)
	if len(projects) != 1 {
		t.Fatal("archived project should be hidden")
	}
	projects, _ = s.ListProjects(ctx, true)
	if len(projects) != 2 || !projects[0].Archived {
		t.Fatal("archived project should appear with includeArchived")
	}
}

func TestListProjectsEmpty(t *testing.T) {
	s := newTestStore(t)
	projects, err := s.ListProjects(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if projects != nil {
		t.Fatalf("expected nil slice, got %d items", len(projects))
	}
}

func TestUpdateProject(t *testing.T) {
	s := newTestStore(t)
	p := newTestProject(t, s, "Old")
	if err := s.UpdateProject(ctx, p.ID, "New", "#444", "personal"); err != nil {
		t.Fatal(err)
	}
	updated, _ := s.GetProject(ctx, p.ID)
	if updated.Name != "New" || updated.Color != "#444" || updated.Category != "personal" {
		t.Fatalf("update failed: %+v", updated)
	}
	if err := s.UpdateProject(ctx, 999, "x", "#000", "work"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestCreateTaskDefaults(t *testing.T) {
	s := newTestStore(t)
	p := newTestProject(t, s, "Dev")

	tk, err := s.CreateTask(ctx, p.ID, task.Draft{Title: "Bug fix"})
	if err != nil {
		t.Fatal(err)
	}
	if len(tk.ID) != 36 {
		t.Fatalf("expected a UUID id, got %q", tk.ID)
	}
	if tk.ProjectID != p.ID || tk.Status != task.ToDo || tk.Priority != task.Medium {
		t.Fatalf("unexpected task: %+v", tk)
	}
	if tk.Schedule.Scheduled() {
		t.Fatal("draft without schedule should stay unscheduled")
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	p := newTestProject(t, s, "Dev")

	due := wallclock.Date{Year: 2026, Month: time.March, Day: 10}
	created, err := s.CreateTask(ctx, p.ID, task.Draft{
		Title:    "Review",
		Status:   task.InProgress,
		Priority: task.High,
		Schedule: task.Schedule{
			DueDate:   &due,
			StartTime: ts("2026-03-10T09:00:00-05:00"),
			EndTime:   ts("2026-03-10T10:30:00-05:00"),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *got.Schedule.DueDate != due {
		t.Fatalf("due = %s", got.Schedule.DueDate)
	}
	if !got.Schedule.StartTime.Equal(*ts("2026-03-10T14:00:00Z")) ||
		got.Schedule.StartTime.Location() != time.UTC {
		t.Fatalf("start = %s, want UTC 14:00", got.Schedule.StartTime)
	}
	if !got.Schedule.EndTime.Equal(*ts("2026-03-10T15:30:00Z")) {
		t.Fatalf("end = %s", got.Schedule.EndTime)
	}

	var raw string
	s.db.QueryRow(`SELECT start_time FROM tasks WHERE id = ?`, created.ID).Scan(&raw)
	if raw != "2026-03-10T14:00:00Z" {
		t.Fatalf("stored start_time = %q, want RFC 3339 UTC", raw)
	}
}

func TestCreateTaskRejectsInvertedSchedule(t *testing.T) {
	s := newTestStore(t)
	p := newTestProject(t, s, "Dev")
	_, err := s.CreateTask(ctx, p.ID, task.Draft{
		Title:    "Backwards",
		Schedule: task.Schedule{StartTime: ts("2026-03-10T10:00:00Z"), EndTime: ts("2026-03-10T09:00:00Z")},
	})
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
}

func TestCreateTaskInvalidProject(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateTask(ctx, 999, task.Draft{Title: "Orphan"}); err == nil {
		t.Fatal("expected foreign key error")
	}
}

func TestListTasksCreationOrderAndIsolation(t *testing.T) {
	s := newTestStore(t)
	p1 := newTestProject(t, s, "P1")
	p2 := newTestProject(t, s, "P2")

	for _, title := range []string{"zeta", "alpha", "mid"} {
		if _, err := s.CreateTask(ctx, p1.ID, task.Draft{Title: title}); err != nil {
			t.Fatal(err)
		}
	}
	s.CreateTask(ctx, p2.ID, task.Draft{Title: "other"})

	tasks, err := s.ListTasks(ctx, p1.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if tasks[0].Title != "zeta" || tasks[1].Title != "alpha" || tasks[2].Title != "mid" {
		t.Fatalf("not in creation order: %s %s %s", tasks[0].Title, tasks[1].Title, tasks[2].Title)
	}

	counts, err := s.CountTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[p1.ID] != 3 || counts[p2.ID] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestUpdateTaskPatch(t *testing.T) {
	s := newTestStore(t)
	p := newTestProject(t, s, "Dev")
	tk, _ := s.CreateTask(ctx, p.ID, task.Draft{
		Title:    "Plan",
		Schedule: task.Schedule{StartTime: ts("2026-03-10T14:00:00Z"), EndTime: ts("2026-03-10T15:00:00Z")},
	})

	done := task.Done
	updated, err := s.UpdateTask(ctx, tk.ID, task.Patch{Status: &done})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != task.Done || updated.Title != "Plan" {
		t.Fatalf("unexpected record: %+v", updated)
	}
	if !updated.Schedule.Equal(tk.Schedule) {
		t.Fatal("status patch changed the schedule")
	}

	// A schedule patch replaces all temporal fields; nil members clear them.
	due := wallclock.Date{Year: 2026, Month: time.March, Day: 12}
	_, err = s.UpdateTask(ctx, tk.ID, task.Patch{Schedule: &task.Schedule{DueDate: &due}})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetTask(ctx, tk.ID)
	if got.Schedule.Timed() || *got.Schedule.DueDate != due {
		t.Fatalf("schedule = %+v", got.Schedule)
	}
}

func TestUpdateTaskErrors(t *testing.T) {
	s := newTestStore(t)
	p := newTestProject(t, s, "Dev")
	tk, _ := s.CreateTask(ctx, p.ID, task.Draft{Title: "Plan"})

	title := "x"
	if _, err := s.UpdateTask(ctx, "missing", task.Patch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	bad := task.Schedule{StartTime: ts("2026-03-10T10:00:00Z"), EndTime: ts("2026-03-10T09:00:00Z")}
	if _, err := s.UpdateTask(ctx, tk.ID, task.Patch{Schedule: &bad}); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
	got, _ := s.GetTask(ctx, tk.ID)
	if got.Schedule.Scheduled() {
		t.Fatal("rejected update was written")
	}
}

func TestDeleteTask(t *testing.T) {
	s := newTestStore(t)
	p := newTestProject(t, s, "Dev")
	tk, _ := s.CreateTask(ctx, p.ID, task.Draft{Title: "Gone"})

	if err := s.DeleteTask(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetTask(ctx, tk.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteTask(ctx, tk.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsStartEmpty(t *testing.T) {
	s := newTestStore(t)

	all, err := s.GetAllSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no settings on a fresh database, got %v", all)
	}
	if got := s.SettingOr(ctx, SettingWeekStart, "sunday"); got != "sunday" {
		t.Fatalf("SettingOr = %q, want fallback", got)
	}
}

func TestSetSettingOverwrite(t *testing.T) {
	s := newTestStore(t)

	s.SetSetting(ctx, "key", "v1")
	s.SetSetting(ctx, "key", "v2")
	val, _ := s.GetSetting(ctx, "key")
	if val != "v2" {
		t.Fatalf("expected v2, got %s", val)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetSetting(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := s.SettingOr(ctx, "nonexistent", "fallback"); got != "fallback" {
		t.Fatalf("SettingOr = %q", got)
	}
}

func TestGetAllSettingsSorted(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting(ctx, SettingWeekStart, "sunday")
	s.SetSetting(ctx, SettingDefaultView, "month")
	s.SetSetting(ctx, "a_key", "x")
	all, err := s.GetAllSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 settings, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("settings not sorted: %s >= %s", all[i-1].Key, all[i].Key)
		}
	}
}
