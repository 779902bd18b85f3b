package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/taskcal/internal/calendar"
	"github.com/sadopc/taskcal/internal/task"
)

type reportsModel struct {
	sess   *session
	width  int
	height int

	window calendar.ViewWindow
}

func newReportsModel(s *session) reportsModel {
	return reportsModel{
		sess:   s,
		window: s.window.WithGranularity(calendar.Week),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

// sync re-anchors the report on the calendar's current date.
func (r *reportsModel) sync() {
	r.window.Anchor = r.sess.window.Anchor
	r.window.WeekStart = r.sess.window.WeekStart
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.window = r.window.Prev()
		case key.Matches(msg, keys.Right):
			r.window = r.window.Next()
		case key.Matches(msg, keys.Today):
			r.window = r.window.Today(r.sess.norm)
		case key.Matches(msg, keys.View):
			if r.window.Granularity == calendar.Week {
				r.window = r.window.WithGranularity(calendar.Month)
			} else {
				r.window = r.window.WithGranularity(calendar.Week)
			}
		}
	}
	return r, nil
}

func (r reportsModel) loads() []calendar.DayLoad {
	events := r.sess.projector.Events(r.window)
	return calendar.Workload(events, r.window, r.sess.norm.Loc())
}

func (r reportsModel) buildChart(loads []calendar.DayLoad) barchart.Model {
	chartWidth := r.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	chart := barchart.New(chartWidth, chartHeight)
	loc := r.sess.norm.Loc()

	bars := make([]barchart.BarData, 0, len(loads))
	for _, l := range loads {
		label := l.Date.Midnight(loc).Format("Mon 02")
		if r.window.Granularity == calendar.Month {
			label = fmt.Sprintf("%d", l.Date.Day)
		}

		var values []barchart.BarValue
		for _, p := range task.Priorities {
			d := l.ByPriority[p]
			if d == 0 {
				continue
			}
			values = append(values, barchart.BarValue{
				Name:  string(p),
				Value: d.Hours(),
				Style: priorityStyle(p),
			})
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}

		bars = append(bars, barchart.BarData{
			Label:  label,
			Values: values,
		})
	}

	chart.PushAll(bars)
	chart.Draw()
	return chart
}

func (r reportsModel) view() string {
	w := r.width - 4
	loads := r.loads()

	weekTab := inactiveTabStyle.Render("Week")
	monthTab := inactiveTabStyle.Render("Month")
	if r.window.Granularity == calendar.Week {
		weekTab = activeTabStyle.Render("Week")
	} else {
		monthTab = activeTabStyle.Render("Month")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, weekTab, monthTab)
	dateLabel := mutedStyle.Render(r.window.Label(r.sess.norm.Loc()))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Workload"), "  ", modeTabs, "  ", dateLabel,
	)

	chartView := r.buildChart(loads).View()
	legend := r.renderLegend()
	tableView := r.renderSummaryTable(loads, w)
	nav := mutedStyle.Render("  ←/→: navigate  t: today  v: week/month")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", chartView, "", legend, "", tableView, "", nav,
		),
	)
}

func (r reportsModel) renderSummaryTable(loads []calendar.DayLoad, w int) string {
	var busy []calendar.DayLoad
	var total time.Duration
	for _, l := range loads {
		if l.Total() > 0 || l.AllDay > 0 {
			busy = append(busy, l)
			total += l.Total()
		}
	}
	if len(busy) == 0 {
		return mutedStyle.Render("  Nothing scheduled in this period")
	}

	var rows []string
	headerRow := mutedStyle.Render(fmt.Sprintf("  %-12s %8s %8s %8s %8s %8s", "Date", "Total", "High", "Medium", "Low", "All day"))
	rows = append(rows, headerRow)
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 58))))

	for _, l := range busy {
		rows = append(rows, fmt.Sprintf("  %-12s %8s %8s %8s %8s %8d",
			l.Date, formatDuration(l.Total()),
			formatHours(l.ByPriority[task.High]),
			formatHours(l.ByPriority[task.Medium]),
			formatHours(l.ByPriority[task.Low]),
			l.AllDay,
		))
	}
	rows = append(rows, "")
	rows = append(rows, highlightStyle.Render(fmt.Sprintf("  Scheduled: %s", formatDuration(total))))

	return strings.Join(rows, "\n")
}

func (r reportsModel) renderLegend() string {
	var items []string
	for _, p := range task.Priorities {
		items = append(items, fmt.Sprintf("%s %s", priorityStyle(p).Render("●"), p))
	}
	return "  " + strings.Join(items, "  ")
}
