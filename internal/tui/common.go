package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/taskcal/internal/calendar"
	"github.com/sadopc/taskcal/internal/config"
	"github.com/sadopc/taskcal/internal/planner"
	"github.com/sadopc/taskcal/internal/store"
	"github.com/sadopc/taskcal/internal/wallclock"
)

// viewState represents the currently active view.
type viewState int

const (
	viewProjects viewState = iota
	viewCalendar
	viewReports
	viewSettings
)

var viewNames = []string{"Projects", "Calendar", "Reports", "Settings"}

// session is the state shared by every view: the open project, its Board
// and the coordinator that owns all writes to it.
type session struct {
	store     *store.Store
	cfg       *config.Config
	norm      wallclock.Normalizer
	board     *planner.Board
	coord     *planner.Coordinator
	projector *calendar.Projector
	project   *store.Project
	window    calendar.ViewWindow
	spinner   spinner.Model
}

func newSession(s *store.Store, cfg *config.Config, n wallclock.Normalizer) *session {
	board := planner.NewBoard()
	g, err := calendar.ParseGranularity(cfg.DefaultView)
	if err != nil {
		g = calendar.Week
	}
	return &session{
		store:     s,
		cfg:       cfg,
		norm:      n,
		board:     board,
		coord:     planner.NewCoordinator(board, s, n),
		projector: calendar.NewProjector(board, n),
		window: calendar.ViewWindow{
			Anchor:      n.Today(),
			Granularity: g,
			WeekStart:   calendar.ParseWeekStart(cfg.WeekStart),
		},
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(pendingStyle),
		),
	}
}

func (s *session) events() []calendar.Event {
	return s.projector.Events(s.window)
}

func (s *session) remoteContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.RemoteTimeout)
}

// openProject loads a project's tasks into the Board.
func (s *session) openProject(p store.Project) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := s.remoteContext()
		defer cancel()
		if err := s.coord.Load(ctx, p.ID); err != nil {
			return statusMsg{text: fmt.Sprintf("Load error: %v", err), isError: true}
		}
		return projectOpenedMsg{project: p}
	}
}

// dispatch runs the remote half of a gesture off the update loop.
func (s *session) dispatch(p *planner.Pending) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := s.remoteContext()
		defer cancel()
		return mutationResultMsg{pending: p, result: s.coord.Dispatch(ctx, p)}
	}
}

// begin turns the result of a Coordinator.Begin* call into a command.
func (s *session) begin(p *planner.Pending, err error) tea.Cmd {
	if err != nil {
		return statusCmd(err)
	}
	return tea.Batch(s.dispatch(p), s.spinner.Tick)
}

func (s *session) createTask(f planner.Form) tea.Cmd {
	d, err := f.Draft(s.norm)
	if err != nil {
		return statusCmd(err)
	}
	return func() tea.Msg {
		ctx, cancel := s.remoteContext()
		defer cancel()
		t, err := s.coord.Create(ctx, d)
		if err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return statusMsg{text: "Created " + t.Title}
	}
}

func (s *session) deleteTask(id, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := s.remoteContext()
		defer cancel()
		if err := s.coord.Delete(ctx, id); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return statusMsg{text: "Deleted " + title}
	}
}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type projectOpenedMsg struct {
	project store.Project
}

type mutationResultMsg struct {
	pending *planner.Pending
	result  planner.Result
}

type exportDoneMsg struct {
	path string
}

func statusCmd(err error) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: err.Error(), isError: true}
	}
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%02dm", h, m)
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%.1fh", d.Hours())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
