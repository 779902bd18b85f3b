package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sadopc/taskcal/internal/calendar"
	"github.com/sadopc/taskcal/internal/config"
	"github.com/sadopc/taskcal/internal/export"
	appLog "github.com/sadopc/taskcal/internal/log"
	"github.com/sadopc/taskcal/internal/planner"
	"github.com/sadopc/taskcal/internal/store"
	"github.com/sadopc/taskcal/internal/wallclock"
)

// Backend is what the feed reads from.
type Backend interface {
	planner.Remote
	ListProjects(ctx context.Context, includeArchived bool) ([]store.Project, error)
}

// snapshot is one project's Board as of the last refresh.
type snapshot struct {
	project   store.Project
	board     *planner.Board
	projector *calendar.Projector
	loadedAt  time.Time
}

// Server is a read-only HTTP feed of projected calendars. Boards are
// reloaded from the backend at startup and on the configured cron schedule.
type Server struct {
	cfg       *config.Config
	backend   Backend
	norm      wallclock.Normalizer
	weekStart time.Weekday
	mux       *http.ServeMux

	mu        sync.RWMutex
	snapshots map[int64]*snapshot
	order     []int64
}

func NewServer(cfg *config.Config, backend Backend, n wallclock.Normalizer) *Server {
	s := &Server{
		cfg:       cfg,
		backend:   backend,
		norm:      n,
		weekStart: calendar.ParseWeekStart(cfg.WeekStart),
		mux:       http.NewServeMux(),
		snapshots: make(map[int64]*snapshot),
	}
	s.registerRoutes()
	return s
}

// Handler returns the routes, wrapped in basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/projects", s.handleProjects)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
}

// Refresh reloads every active project from the backend. A project that
// fails to load keeps its previous snapshot.
func (s *Server) Refresh(ctx context.Context) error {
	projects, err := s.backend.ListProjects(ctx, false)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	s.mu.RLock()
	prev := s.snapshots
	s.mu.RUnlock()

	next := make(map[int64]*snapshot, len(projects))
	order := make([]int64, 0, len(projects))
	var errs []error
	for _, p := range projects {
		board := planner.NewBoard()
		coord := planner.NewCoordinator(board, s.backend, s.norm)
		if err := coord.Load(ctx, p.ID); err != nil {
			errs = append(errs, err)
			if old, ok := prev[p.ID]; ok {
				next[p.ID] = old
				order = append(order, p.ID)
			}
			continue
		}
		next[p.ID] = &snapshot{
			project:   p,
			board:     board,
			projector: calendar.NewProjector(board, s.norm),
			loadedAt:  s.norm.CurrentInstant(),
		}
		order = append(order, p.ID)
	}

	s.mu.Lock()
	s.snapshots = next
	s.order = order
	s.mu.Unlock()

	appLog.Info("feed refreshed", "projects", len(order), "errors", len(errs))
	return errors.Join(errs...)
}

// Run serves on cfg.Listen until ctx is cancelled, refreshing on the cron
// schedule in the meantime.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		appLog.Error("initial refresh failed", err)
	}

	sched := cron.New(cron.WithLocation(s.norm.Loc()))
	if _, err := sched.AddFunc(s.cfg.Refresh, func() {
		if err := s.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", s.cfg.Refresh, err)
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "refresh", s.cfg.Refresh)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type projectJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Category string `json:"category"`
	Tasks    int    `json:"tasks"`
	LoadedAt string `json:"loaded_at"`
}

func (s *Server) handleProjects(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make([]projectJSON, 0, len(s.order))
	for _, id := range s.order {
		snap := s.snapshots[id]
		out = append(out, projectJSON{
			ID:       snap.project.ID,
			Name:     snap.project.Name,
			Color:    snap.project.Color,
			Category: snap.project.Category,
			Tasks:    snap.board.Len(),
			LoadedAt: snap.loadedAt.Format(time.RFC3339),
		})
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, meta, status, err := s.project(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, export.NewDocument(events, meta))
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	events, meta, status, err := s.project(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+export.Filename(export.ICS, meta)+`"`)
	if err := export.WriteICS(w, events, meta); err != nil {
		appLog.Error("failed to write ICS response", err)
	}
}

// project resolves the query parameters to a snapshot and window and
// returns the projected events.
func (s *Server) project(r *http.Request) ([]calendar.Event, export.Meta, int, error) {
	q := r.URL.Query()

	id, err := strconv.ParseInt(q.Get("project"), 10, 64)
	if err != nil {
		return nil, export.Meta{}, http.StatusBadRequest, fmt.Errorf("invalid project %q", q.Get("project"))
	}

	view := q.Get("view")
	if view == "" {
		view = s.cfg.DefaultView
	}
	g, err := calendar.ParseGranularity(view)
	if err != nil {
		return nil, export.Meta{}, http.StatusBadRequest, err
	}

	anchor := s.norm.Today()
	if ds := q.Get("date"); ds != "" {
		anchor, err = wallclock.ParseDate(ds)
		if err != nil {
			return nil, export.Meta{}, http.StatusBadRequest, err
		}
	}

	s.mu.RLock()
	snap, ok := s.snapshots[id]
	s.mu.RUnlock()
	if !ok {
		return nil, export.Meta{}, http.StatusNotFound, fmt.Errorf("project %d not found", id)
	}

	window := calendar.ViewWindow{Anchor: anchor, Granularity: g, WeekStart: s.weekStart}
	meta := export.Meta{Project: snap.project.Name, Window: window, Location: s.norm.Loc()}
	return snap.projector.Events(window), meta, http.StatusOK, nil
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="taskcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
