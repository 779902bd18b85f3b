package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/sadopc/taskcal/internal/planner"
	"github.com/sadopc/taskcal/internal/task"
	"github.com/sadopc/taskcal/internal/wallclock"
)

// taskForm wraps the huh form used to create or edit a task. Field values
// live behind pointers so they survive value copies of the owning model.
type taskForm struct {
	form   *huh.Form
	taskID string // empty when creating

	title       *string
	description *string
	status      *string
	priority    *string
	dueDate     *string
	startClock  *string
	endClock    *string
	endDate     *string
}

func newTaskForm(id string, f planner.Form, n wallclock.Normalizer) *taskForm {
	title, desc := f.Title, f.Description
	status, prio := string(f.Status), string(f.Priority)
	if status == "" {
		status = string(task.ToDo)
	}
	if prio == "" {
		prio = string(task.Medium)
	}
	due, start, end, endDate := f.DueDate, f.StartClock, f.EndClock, f.EndDate

	tf := &taskForm{
		taskID:      id,
		title:       &title,
		description: &desc,
		status:      &status,
		priority:    &prio,
		dueDate:     &due,
		startClock:  &start,
		endClock:    &end,
		endDate:     &endDate,
	}

	statusOptions := make([]huh.Option[string], len(task.Statuses))
	for i, s := range task.Statuses {
		statusOptions[i] = huh.NewOption(string(s), string(s))
	}
	prioOptions := make([]huh.Option[string], len(task.Priorities))
	for i, p := range task.Priorities {
		prioOptions[i] = huh.NewOption(string(p), string(p))
	}

	tf.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(tf.title).Validate(requireTitle),
			huh.NewText().Title("Description").Value(tf.description).CharLimit(2000),
			huh.NewSelect[string]().Title("Status").Options(statusOptions...).Value(tf.status),
			huh.NewSelect[string]().Title("Priority").Options(prioOptions...).Value(tf.priority),
		),
		huh.NewGroup(
			huh.NewInput().Title("Due date").Description("YYYY-MM-DD, blank for none").
				Value(tf.dueDate).Validate(validDate),
			huh.NewInput().Title("Start").Description("HH:MM, blank for none").
				Value(tf.startClock).Validate(validClock(n)),
			huh.NewInput().Title("End").Description("HH:MM, blank for none").
				Value(tf.endClock).Validate(validClock(n)),
			huh.NewInput().Title("End date").Description("YYYY-MM-DD, blank for same day").
				Value(tf.endDate).Validate(validDate),
		),
	).WithShowHelp(true).WithShowErrors(true)
	return tf
}

func (tf *taskForm) editing() bool { return tf.taskID != "" }

func (tf *taskForm) values() planner.Form {
	return planner.Form{
		Title:       *tf.title,
		Description: *tf.description,
		Status:      task.Status(*tf.status),
		Priority:    task.Priority(*tf.priority),
		DueDate:     *tf.dueDate,
		StartClock:  *tf.startClock,
		EndClock:    *tf.endClock,
		EndDate:     *tf.endDate,
	}
}

// update feeds msg to the form. done is set once the form was submitted
// or cancelled with esc.
func (tf *taskForm) update(msg tea.Msg) (done, submitted bool, cmd tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		return true, false, nil
	}
	form, cmd := tf.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		tf.form = f
	}
	switch tf.form.State {
	case huh.StateCompleted:
		return true, true, cmd
	case huh.StateAborted:
		return true, false, cmd
	}
	return false, false, cmd
}

// submit turns the completed form into a create or edit command.
func (tf *taskForm) submit(s *session) tea.Cmd {
	if tf.editing() {
		return s.begin(s.coord.BeginEdit(tf.taskID, tf.values()))
	}
	return s.createTask(tf.values())
}

func (tf *taskForm) view(width int) string {
	title := "New Task"
	if tf.editing() {
		title = "Edit Task"
	}
	return panelStyle.Width(width).Render(titleStyle.Render(title) + "\n\n" + tf.form.View())
}

func requireTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return planner.ErrEmptyTitle
	}
	return nil
}

func validDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := wallclock.ParseDate(strings.TrimSpace(s))
	return err
}

func validClock(n wallclock.Normalizer) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := n.ToAbsolute("", strings.TrimSpace(s)); err != nil {
			return errors.New("use HH:MM")
		}
		return nil
	}
}
