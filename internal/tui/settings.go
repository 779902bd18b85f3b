package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskcal/internal/calendar"
	"github.com/sadopc/taskcal/internal/store"
)

type settingsModel struct {
	sess   *session
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	weekStart   *string
	defaultView *string
}

func newSettingsModel(s *session) settingsModel {
	ws, dv := "", ""
	return settingsModel{
		sess:        s,
		weekStart:   &ws,
		defaultView: &dv,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	st := s.sess.store
	return func() tea.Msg {
		settings, err := st.GetAllSettings(context.Background())
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Settings error: %v", err), isError: true}
		}
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.weekStart = s.getVal(store.SettingWeekStart, s.sess.cfg.WeekStart)
	*s.defaultView = s.getVal(store.SettingDefaultView, s.sess.cfg.DefaultView)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Week starts on").
				Options(
					huh.NewOption("Monday", "monday"),
					huh.NewOption("Sunday", "sunday"),
				).Value(s.weekStart),
			huh.NewSelect[string]().Title("Default view").
				Options(
					huh.NewOption("Day", calendar.Day.String()),
					huh.NewOption("Week", calendar.Week.String()),
					huh.NewOption("Month", calendar.Month.String()),
				).Value(s.defaultView),
		).Title("Calendar"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		if err := s.saveSettings(); err != nil {
			return s, statusCmd(err)
		}
		return s, s.refresh()
	}

	return s, cmd
}

// saveSettings persists the form and applies it to the open calendar.
func (s settingsModel) saveSettings() error {
	ctx := context.Background()
	if err := s.sess.store.SetSetting(ctx, store.SettingWeekStart, *s.weekStart); err != nil {
		return err
	}
	if err := s.sess.store.SetSetting(ctx, store.SettingDefaultView, *s.defaultView); err != nil {
		return err
	}

	s.sess.window.WeekStart = calendar.ParseWeekStart(*s.weekStart)
	if g, err := calendar.ParseGranularity(*s.defaultView); err == nil {
		s.sess.window = s.sess.window.WithGranularity(g)
	}
	return nil
}

func (s settingsModel) getVal(k, fallback string) string {
	return s.sess.store.SettingOr(context.Background(), k, fallback)
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	stored := make(map[string]string, len(s.settings))
	for _, setting := range s.settings {
		stored[setting.Key] = setting.Value
	}
	cfg := s.sess.cfg
	entries := []struct{ key, value string }{
		{store.SettingWeekStart, valueOr(stored[store.SettingWeekStart], cfg.WeekStart)},
		{store.SettingDefaultView, valueOr(stored[store.SettingDefaultView], cfg.DefaultView)},
		{"timezone", s.sess.norm.Loc().String()},
		{"remote_timeout", cfg.RemoteTimeout.String()},
		{"db_path", cfg.DBPath},
		{"export_dir", cfg.ExportDir},
	}
	for _, e := range entries {
		label := lipgloss.NewStyle().Width(24).Render(e.key)
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(e.value)))
	}

	rows = append(rows, "")
	rows = append(rows, hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
