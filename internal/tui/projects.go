package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskcal/internal/calendar"
	"github.com/sadopc/taskcal/internal/planner"
	"github.com/sadopc/taskcal/internal/store"
	"github.com/sadopc/taskcal/internal/task"
)

var projectColors = []string{"#6C63FF", "#2EC4B6", "#FF6B6B", "#F39C12", "#2ECC71", "#E74C3C", "#9B59B6", "#3498DB"}
var projectCategories = []string{"work", "personal", "learning", "freelance", "other"}

type projectsModel struct {
	sess   *session
	width  int
	height int

	projects     []store.Project
	counts       map[int64]int
	cursor       int
	taskCursor   int
	showArchived bool
	viewingTasks bool // true = viewing tasks of the open project

	formActive bool
	form       *huh.Form
	formType   string // "project", "edit_project"

	// Form field pointers (survive value copies)
	formName     *string
	formColor    *string
	formCategory *string

	editingID int64 // project ID being edited

	taskForm *taskForm
}

func newProjectsModel(s *session) projectsModel {
	name, color, cat := "", projectColors[0], ""
	return projectsModel{
		sess:         s,
		formName:     &name,
		formColor:    &color,
		formCategory: &cat,
	}
}

func (p *projectsModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p projectsModel) capturing() bool {
	return p.formActive || p.taskForm != nil
}

type projectsDataMsg struct {
	projects []store.Project
	counts   map[int64]int
}

// projectLister is the part of the store the project list reads from.
type projectLister interface {
	ListProjects(ctx context.Context, includeArchived bool) ([]store.Project, error)
	CountTasks(ctx context.Context) (map[int64]int, error)
}

func (p projectsModel) refresh() tea.Cmd {
	st, archived := p.sess.store, p.showArchived
	return func() tea.Msg {
		return loadProjects(context.Background(), st, archived)
	}
}

func loadProjects(ctx context.Context, st projectLister, archived bool) tea.Msg {
	projects, err := st.ListProjects(ctx, archived)
	if err != nil {
		return statusMsg{text: fmt.Sprintf("Projects error: %v", err), isError: true}
	}
	counts, err := st.CountTasks(ctx)
	if err != nil {
		return statusMsg{text: fmt.Sprintf("Task counts error: %v", err), isError: true}
	}
	return projectsDataMsg{projects: projects, counts: counts}
}

func (p projectsModel) update(msg tea.Msg) (projectsModel, tea.Cmd) {
	if p.taskForm != nil {
		return p.updateTaskForm(msg)
	}
	if p.formActive && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case projectsDataMsg:
		p.projects = msg.projects
		p.counts = msg.counts
		if p.cursor >= len(p.projects) {
			p.cursor = max(0, len(p.projects)-1)
		}
		if p.sess.project == nil && len(p.projects) > 0 {
			return p, p.sess.openProject(p.projects[0])
		}
		return p, nil

	case tea.KeyMsg:
		if p.viewingTasks {
			return p.updateTaskView(msg)
		}
		return p.updateProjectList(msg)
	}
	return p, nil
}

func (p projectsModel) updateProjectList(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(msg, keys.Down):
		if p.cursor < len(p.projects)-1 {
			p.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(p.projects) > 0 {
			p.viewingTasks = true
			p.taskCursor = 0
			return p, p.sess.openProject(p.projects[p.cursor])
		}
	case key.Matches(msg, keys.New):
		return p.showProjectForm("project")
	case key.Matches(msg, keys.Rename):
		if len(p.projects) > 0 {
			return p.showProjectForm("edit_project")
		}
	case key.Matches(msg, keys.Delete):
		if len(p.projects) > 0 {
			proj := p.projects[p.cursor]
			if err := p.sess.store.ArchiveProject(context.Background(), proj.ID); err != nil {
				return p, statusCmd(err)
			}
			return p, p.refresh()
		}
	}
	return p, nil
}

func (p projectsModel) updateTaskView(msg tea.KeyMsg) (projectsModel, tea.Cmd) {
	tasks := p.sess.board.Tasks()
	if p.taskCursor >= len(tasks) {
		p.taskCursor = max(0, len(tasks)-1)
	}

	switch {
	case key.Matches(msg, keys.Back):
		p.viewingTasks = false
		return p, p.refresh()
	case key.Matches(msg, keys.Up):
		if p.taskCursor > 0 {
			p.taskCursor--
		}
		return p, nil
	case key.Matches(msg, keys.Down):
		if p.taskCursor < len(tasks)-1 {
			p.taskCursor++
		}
		return p, nil
	case key.Matches(msg, keys.New):
		f := planner.Form{Status: task.ToDo, Priority: task.Medium}
		p.taskForm = newTaskForm("", f, p.sess.norm)
		return p, p.taskForm.form.Init()
	}

	if len(tasks) == 0 {
		return p, nil
	}
	t := tasks[p.taskCursor]
	switch {
	case key.Matches(msg, keys.Edit):
		p.taskForm = newTaskForm(t.ID, planner.FormFor(t, p.sess.norm), p.sess.norm)
		return p, p.taskForm.form.Init()
	case key.Matches(msg, keys.Status):
		return p, p.sess.begin(p.sess.coord.BeginStatus(t.ID, t.Status.Next()))
	case key.Matches(msg, keys.Priority):
		return p, p.sess.begin(p.sess.coord.BeginPriority(t.ID, t.Priority.Next()))
	case key.Matches(msg, keys.Delete):
		return p, p.sess.deleteTask(t.ID, t.Title)
	}
	return p, nil
}

func (p projectsModel) showProjectForm(formType string) (projectsModel, tea.Cmd) {
	p.formType = formType
	if formType == "edit_project" {
		proj := p.projects[p.cursor]
		*p.formName = proj.Name
		*p.formColor = proj.Color
		*p.formCategory = proj.Category
		p.editingID = proj.ID
	} else {
		*p.formName = ""
		*p.formColor = projectColors[0]
		*p.formCategory = "work"
	}

	colorOptions := make([]huh.Option[string], len(projectColors))
	for i, c := range projectColors {
		colorOptions[i] = huh.NewOption(fmt.Sprintf("● %s", c), c)
	}
	catOptions := make([]huh.Option[string], len(projectCategories))
	for i, c := range projectCategories {
		catOptions[i] = huh.NewOption(c, c)
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project Name").Value(p.formName),
			huh.NewSelect[string]().Title("Color").Options(colorOptions...).Value(p.formColor),
			huh.NewSelect[string]().Title("Category").Options(catOptions...).Value(p.formCategory),
		),
	).WithShowHelp(true).WithShowErrors(true)

	p.formActive = true
	return p, p.form.Init()
}

func (p projectsModel) updateForm(msg tea.Msg) (projectsModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.formActive = false
			p.form = nil
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		p.formActive = false
		name := strings.TrimSpace(*p.formName)
		if name == "" {
			return p, nil
		}
		ctx := context.Background()
		var err error
		switch p.formType {
		case "project":
			_, err = p.sess.store.CreateProject(ctx, name, *p.formColor, *p.formCategory)
		case "edit_project":
			err = p.sess.store.UpdateProject(ctx, p.editingID, name, *p.formColor, *p.formCategory)
		}
		if err != nil {
			return p, statusCmd(err)
		}
		return p, p.refresh()
	}

	return p, cmd
}

func (p projectsModel) updateTaskForm(msg tea.Msg) (projectsModel, tea.Cmd) {
	done, submitted, cmd := p.taskForm.update(msg)
	if !done {
		return p, cmd
	}
	tf := p.taskForm
	p.taskForm = nil
	if !submitted {
		return p, nil
	}
	return p, tf.submit(p.sess)
}

func (p projectsModel) view() string {
	if p.taskForm != nil {
		return p.taskForm.view(p.width - 4)
	}
	if p.formActive && p.form != nil {
		title := titleStyle.Render("New Project")
		if p.formType == "edit_project" {
			title = titleStyle.Render("Edit Project")
		}
		formView := p.form.View()
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", formView)
		return panelStyle.Width(p.width - 4).Render(content)
	}

	if p.viewingTasks {
		return p.renderTaskView()
	}
	return p.renderProjectList()
}

func (p projectsModel) renderProjectList() string {
	w := p.width - 4
	title := titleStyle.Render("Projects")

	if len(p.projects) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No projects yet. Press n to create one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	// Table header
	header := mutedStyle.Render(fmt.Sprintf("  %-3s %-24s %-12s %6s", "", "Name", "Category", "Tasks"))
	rows = append(rows, header)

	for i, proj := range p.projects {
		colorDot := lipgloss.NewStyle().Foreground(lipgloss.Color(proj.Color)).Render("●")
		cursor := "  "
		style := normalItemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		open := ""
		if p.sess.project != nil && p.sess.project.ID == proj.ID {
			open = successStyle.Render(" (open)")
		}
		row := style.Render(fmt.Sprintf("%s%s %-24s %-12s %6d", cursor, colorDot, truncate(proj.Name, 24), proj.Category, p.counts[proj.ID]))
		rows = append(rows, row+open)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  r: edit  x: archive  enter: open"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (p projectsModel) renderTaskView() string {
	w := p.width - 4
	name := "Tasks"
	if p.sess.project != nil {
		colorDot := lipgloss.NewStyle().Foreground(lipgloss.Color(p.sess.project.Color)).Render("●")
		name = fmt.Sprintf("%s %s · Tasks", colorDot, p.sess.project.Name)
	}
	title := titleStyle.Render(name)

	tasks := p.sess.board.Tasks()
	if len(tasks) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("No tasks. Press n to add one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for i, t := range tasks {
		cursor := "  "
		style := normalItemStyle
		if i == p.taskCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		line := style.Render(fmt.Sprintf("%s%-12s %s", cursor, t.Status, truncate(t.Title, 32)))
		line += " " + priorityStyle(t.Priority).Render(string(t.Priority))
		line += " " + mutedStyle.Render(p.scheduleSummary(t))
		if p.sess.coord.InFlight(t.ID) {
			line += " " + pendingStyle.Render(p.sess.spinner.View()+" saving")
		}
		rows = append(rows, line)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  enter: edit  s: status  p: priority  x: delete  esc: back"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (p projectsModel) scheduleSummary(t task.Task) string {
	ev, ok := calendar.EventFor(t, p.sess.norm)
	if !ok {
		return "unscheduled"
	}
	loc := p.sess.norm.Loc()
	start := ev.Start.In(loc)
	if ev.AllDay {
		return start.Format("Mon Jan 02") + " all day"
	}
	end := ev.End.In(loc)
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return fmt.Sprintf("%s %s-%s", start.Format("Mon Jan 02"), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s %s → %s", start.Format("Mon Jan 02"), start.Format("15:04"), end.Format("Jan 02 15:04"))
}
