package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskcal/internal/calendar"
	"github.com/sadopc/taskcal/internal/planner"
	"github.com/sadopc/taskcal/internal/task"
	"github.com/sadopc/taskcal/internal/wallclock"
)

// Keyboard gestures move and resize in these steps.
const (
	moveStep   = 30 * time.Minute
	resizeStep = 30 * time.Minute
)

var errNoProject = errors.New("open a project first")

type calendarModel struct {
	sess   *session
	width  int
	height int

	selected string // task id of the highlighted event
	taskForm *taskForm
}

func newCalendarModel(s *session) calendarModel {
	return calendarModel{sess: s}
}

func (c *calendarModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

func (c calendarModel) capturing() bool {
	return c.taskForm != nil
}

// selection returns the highlighted event among events, falling back to
// the first one when the selected task left the window.
func (c calendarModel) selection(events []calendar.Event) (calendar.Event, int, bool) {
	for i, ev := range events {
		if ev.TaskID == c.selected {
			return ev, i, true
		}
	}
	if len(events) > 0 {
		return events[0], 0, true
	}
	return calendar.Event{}, -1, false
}

func (c calendarModel) update(msg tea.Msg) (calendarModel, tea.Cmd) {
	if c.taskForm != nil {
		return c.updateTaskForm(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}
	s := c.sess
	events := s.events()
	ev, idx, has := c.selection(events)

	switch {
	case key.Matches(km, keys.Left):
		s.window = s.window.Prev()
		return c, nil
	case key.Matches(km, keys.Right):
		s.window = s.window.Next()
		return c, nil
	case key.Matches(km, keys.Today):
		s.window = s.window.Today(s.norm)
		return c, nil
	case key.Matches(km, keys.View):
		s.window = s.window.WithGranularity((s.window.Granularity + 1) % 3)
		return c, nil
	case key.Matches(km, keys.Up):
		if has && idx > 0 {
			c.selected = events[idx-1].TaskID
		}
		return c, nil
	case key.Matches(km, keys.Down):
		if has && idx < len(events)-1 {
			c.selected = events[idx+1].TaskID
		}
		return c, nil
	case key.Matches(km, keys.New):
		if s.project == nil {
			return c, statusCmd(errNoProject)
		}
		f := planner.Form{
			Status:     task.ToDo,
			Priority:   task.Medium,
			DueDate:    s.window.Anchor.String(),
			StartClock: "09:00",
			EndClock:   "10:00",
		}
		c.taskForm = newTaskForm("", f, s.norm)
		return c, c.taskForm.form.Init()
	}

	if !has {
		return c, nil
	}
	c.selected = ev.TaskID
	loc := s.norm.Loc()

	switch {
	case key.Matches(km, keys.Earlier), key.Matches(km, keys.Later):
		if ev.AllDay {
			return c, statusCmd(errors.New("all-day tasks move by day (H/L)"))
		}
		step := moveStep
		if key.Matches(km, keys.Earlier) {
			step = -step
		}
		return c, s.begin(s.coord.BeginDrag(ev.TaskID, ev.Start.Add(step)))
	case key.Matches(km, keys.DayBack):
		return c, s.begin(s.coord.BeginDrag(ev.TaskID, ev.Start.In(loc).AddDate(0, 0, -1)))
	case key.Matches(km, keys.DayForward):
		return c, s.begin(s.coord.BeginDrag(ev.TaskID, ev.Start.In(loc).AddDate(0, 0, 1)))
	case key.Matches(km, keys.Grow):
		end := ev.End.Add(resizeStep)
		return c, s.begin(s.coord.BeginResize(ev.TaskID, nil, &end))
	case key.Matches(km, keys.Shrink):
		end := ev.End.Add(-resizeStep)
		return c, s.begin(s.coord.BeginResize(ev.TaskID, nil, &end))
	case key.Matches(km, keys.Edit):
		t, ok := s.board.Get(ev.TaskID)
		if !ok {
			return c, nil
		}
		c.taskForm = newTaskForm(t.ID, planner.FormFor(t, s.norm), s.norm)
		return c, c.taskForm.form.Init()
	case key.Matches(km, keys.Status):
		return c, s.begin(s.coord.BeginStatus(ev.TaskID, ev.Status.Next()))
	case key.Matches(km, keys.Priority):
		return c, s.begin(s.coord.BeginPriority(ev.TaskID, ev.Priority.Next()))
	case key.Matches(km, keys.Delete):
		t, _ := s.board.Get(ev.TaskID)
		return c, s.deleteTask(ev.TaskID, t.Title)
	}
	return c, nil
}

func (c calendarModel) updateTaskForm(msg tea.Msg) (calendarModel, tea.Cmd) {
	done, submitted, cmd := c.taskForm.update(msg)
	if !done {
		return c, cmd
	}
	tf := c.taskForm
	c.taskForm = nil
	if !submitted {
		return c, nil
	}
	return c, tf.submit(c.sess)
}

func (c calendarModel) view() string {
	w := c.width - 4
	if c.taskForm != nil {
		return c.taskForm.view(w)
	}

	s := c.sess
	loc := s.norm.Loc()
	project := "No project"
	if s.project != nil {
		project = s.project.Name
	}
	header := titleStyle.Render(s.window.Label(loc)) + "  " +
		mutedStyle.Render(fmt.Sprintf("%s · %s", s.window.Granularity, project))

	events := s.events()
	selected, _, _ := c.selection(events)

	inner := w - 6 // panel border and padding
	var body string
	switch s.window.Granularity {
	case calendar.Day:
		body = c.renderDay(events, selected.TaskID, inner)
	case calendar.Month:
		body = c.renderMonth(events, selected.TaskID, inner)
	default:
		body = c.renderWeek(events, selected.TaskID, inner)
	}

	hint := mutedStyle.Render("h/l: prev/next  t: today  v: view  J/K: move  H/L: day  +/-: resize  n: new  enter: edit")
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", hint))
}

// eventLine renders one event for list-style layouts.
func (c calendarModel) eventLine(ev calendar.Event, selected bool, width int) string {
	loc := c.sess.norm.Loc()
	when := "all day"
	if !ev.AllDay {
		when = ev.Start.In(loc).Format("15:04") + "-" + ev.End.In(loc).Format("15:04")
	}
	cursor := "  "
	style := normalItemStyle
	if selected {
		cursor = "> "
		style = selectedItemStyle
	}
	line := style.Render(cursor + when + " " + truncate(ev.Title, max(width-len(when)-14, 8)))
	line += " " + priorityStyle(ev.Priority).Render(string(ev.Priority))
	if c.sess.coord.InFlight(ev.TaskID) {
		line += " " + c.sess.spinner.View()
	}
	return line
}

func (c calendarModel) renderDay(events []calendar.Event, selected string, width int) string {
	if len(events) == 0 {
		return mutedStyle.Render("Nothing scheduled. Press n to add a task.")
	}
	var rows []string
	for _, ev := range events {
		rows = append(rows, c.eventLine(ev, ev.TaskID == selected, width))
	}
	return strings.Join(rows, "\n")
}

// dayIndex maps an event to the visible day it starts on. Events that
// begin before the window are shown on its first day.
func dayIndex(ev calendar.Event, days []wallclock.Date, n wallclock.Normalizer) int {
	d := n.DateOf(ev.Start)
	if d.Before(days[0]) {
		return 0
	}
	for i, day := range days {
		if day == d {
			return i
		}
	}
	return len(days) - 1
}

func (c calendarModel) renderWeek(events []calendar.Event, selected string, width int) string {
	s := c.sess
	days := s.window.Days()
	colWidth := max(width/len(days), 10)
	today := s.norm.Today()

	cols := make([][]string, len(days))
	for i, d := range days {
		label := d.Midnight(s.norm.Loc()).Format("Mon 02")
		style := dayHeaderStyle
		if d == today {
			style = todayHeaderStyle
		}
		cols[i] = append(cols[i], style.Render(label), "")
	}
	for _, ev := range events {
		i := dayIndex(ev, days, s.norm)
		cols[i] = append(cols[i], c.cell(ev, ev.TaskID == selected, colWidth-1))
	}

	rendered := make([]string, len(cols))
	for i, col := range cols {
		rendered[i] = lipgloss.NewStyle().Width(colWidth).Render(strings.Join(col, "\n"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// cell renders an event in a narrow grid cell.
func (c calendarModel) cell(ev calendar.Event, selected bool, width int) string {
	text := ev.Title
	if !ev.AllDay {
		text = ev.Start.In(c.sess.norm.Loc()).Format("15:04") + " " + text
	}
	if c.sess.coord.InFlight(ev.TaskID) {
		text = c.sess.spinner.View() + text
	}
	text = truncate(text, width)
	if selected {
		return selectedItemStyle.Reverse(true).Render(text)
	}
	return priorityStyle(ev.Priority).Render(text)
}

const monthCellLines = 3

func (c calendarModel) renderMonth(events []calendar.Event, selected string, width int) string {
	s := c.sess
	days := s.window.Days()
	colWidth := max(width/7, 8)
	today := s.norm.Today()

	perDay := make([][]calendar.Event, len(days))
	for _, ev := range events {
		i := dayIndex(ev, days, s.norm)
		perDay[i] = append(perDay[i], ev)
	}

	// Pad the first week back to the configured week start.
	lead := (int(days[0].Weekday()) - int(s.window.WeekStart) + 7) % 7

	var header []string
	for i := range 7 {
		wd := time.Weekday((int(s.window.WeekStart) + i) % 7)
		header = append(header, lipgloss.NewStyle().Width(colWidth).Render(dayHeaderStyle.Render(wd.String()[:3])))
	}
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}

	var week []string
	flush := func() {
		for len(week) < 7 {
			week = append(week, lipgloss.NewStyle().Width(colWidth).Render(""))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, week...))
		week = nil
	}
	for range lead {
		week = append(week, lipgloss.NewStyle().Width(colWidth).Render(outsideDayStyle.Render("·")))
	}
	for i, d := range days {
		num := fmt.Sprintf("%2d", d.Day)
		if d == today {
			num = todayHeaderStyle.Render(num)
		} else {
			num = mutedStyle.Render(num)
		}
		lines := []string{num}
		for j, ev := range perDay[i] {
			if j == monthCellLines-1 && len(perDay[i]) > monthCellLines {
				lines = append(lines, mutedStyle.Render(fmt.Sprintf("+%d more", len(perDay[i])-j)))
				break
			}
			lines = append(lines, c.cell(ev, ev.TaskID == selected, colWidth-1))
		}
		for len(lines) < monthCellLines+1 {
			lines = append(lines, "")
		}
		week = append(week, lipgloss.NewStyle().Width(colWidth).Render(strings.Join(lines, "\n")))
		if len(week) == 7 {
			flush()
		}
	}
	if len(week) > 0 {
		flush()
	}
	return strings.Join(rows, "\n")
}
