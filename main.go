package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/taskcal/internal/calendar"
	"github.com/sadopc/taskcal/internal/config"
	"github.com/sadopc/taskcal/internal/export"
	appLog "github.com/sadopc/taskcal/internal/log"
	"github.com/sadopc/taskcal/internal/planner"
	"github.com/sadopc/taskcal/internal/store"
	"github.com/sadopc/taskcal/internal/tui"
	"github.com/sadopc/taskcal/internal/wallclock"
	"github.com/sadopc/taskcal/internal/web"
)

// The store is the backend of both the UI and the feed.
var _ planner.Remote = (*store.Store)(nil)
var _ web.Backend = (*store.Store)(nil)

type flagConfig struct {
	configPath string
	dbPath     string
	listen     string
	serve      bool
	export     string
	project    string
	view       string
	date       string
}

func main() {
	flags := parseFlags()
	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "", "Path to config file (default: user config dir)")
	flag.StringVar(&cfg.dbPath, "db", "", "SQLite database path (overrides config)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config)")
	flag.BoolVar(&cfg.serve, "serve", false, "Serve the calendar feed over HTTP instead of the terminal UI")
	flag.StringVar(&cfg.export, "export", "", "Export one calendar window as csv, json or ics and exit")
	flag.StringVar(&cfg.project, "project", "", "Project name for -export (default: first project)")
	flag.StringVar(&cfg.view, "view", "", "Window for -export: day, week or month (default: config)")
	flag.StringVar(&cfg.date, "date", "", "Date inside the -export window, YYYY-MM-DD (default: today)")

	flag.Parse()

	return cfg
}

func run(flags flagConfig) error {
	path := flags.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if flags.listen != "" {
		cfg.Listen = flags.listen
	}

	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	if !flags.serve {
		// The terminal UI owns stdout.
		closeLog, err := logToFile(cfg)
		if err != nil {
			return err
		}
		defer closeLog()
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	norm := wallclock.New(loc)

	dbPath := cfg.DBPath
	if dbPath == "" {
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return err
		}
	}
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Preferences saved from the UI win over the config file.
	cfg.WeekStart = st.SettingOr(ctx, store.SettingWeekStart, cfg.WeekStart)
	cfg.DefaultView = st.SettingOr(ctx, store.SettingDefaultView, cfg.DefaultView)
	cfg.Normalize()

	appLog.Info("taskcal starting",
		"db_path", dbPath,
		"timezone", loc.String(),
		"week_start", cfg.WeekStart,
		"default_view", cfg.DefaultView,
		"serve", flags.serve,
	)

	switch {
	case flags.export != "":
		return runExport(ctx, st, cfg, norm, flags)
	case flags.serve:
		return web.NewServer(cfg, st, norm).Run(ctx)
	}

	p := tea.NewProgram(tui.NewApp(st, cfg, norm), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// logToFile redirects logging to cfg.LogFile, or next to the database when
// unset.
func logToFile(cfg *config.Config) (func(), error) {
	path := cfg.LogFile
	if path == "" {
		dbPath, err := store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(filepath.Dir(dbPath), "taskcal.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	appLog.SetOutput(f)
	return func() {
		appLog.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

func runExport(ctx context.Context, st *store.Store, cfg *config.Config, norm wallclock.Normalizer, flags flagConfig) error {
	format, err := export.ParseFormat(flags.export)
	if err != nil {
		return err
	}

	projects, err := st.ListProjects(ctx, false)
	if err != nil {
		return err
	}
	var proj *store.Project
	for i := range projects {
		if flags.project == "" || projects[i].Name == flags.project {
			proj = &projects[i]
			break
		}
	}
	if proj == nil {
		return fmt.Errorf("project %q: %w", flags.project, store.ErrNotFound)
	}

	viewName := flags.view
	if viewName == "" {
		viewName = cfg.DefaultView
	}
	g, err := calendar.ParseGranularity(viewName)
	if err != nil {
		return err
	}
	anchor := norm.Today()
	if flags.date != "" {
		if anchor, err = wallclock.ParseDate(flags.date); err != nil {
			return err
		}
	}
	window := calendar.ViewWindow{
		Anchor:      anchor,
		Granularity: g,
		WeekStart:   calendar.ParseWeekStart(cfg.WeekStart),
	}

	board := planner.NewBoard()
	if err := planner.NewCoordinator(board, st, norm).Load(ctx, proj.ID); err != nil {
		return err
	}
	events := calendar.NewProjector(board, norm).Events(window)

	out, err := export.ToFile(cfg.ExportDir, format, events, export.Meta{
		Project:  proj.Name,
		Window:   window,
		Location: norm.Loc(),
	})
	if err != nil {
		return err
	}
	appLog.Info("exported", "path", out, "events", len(events))
	fmt.Println(out)
	return nil
}
