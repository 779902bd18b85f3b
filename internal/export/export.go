package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sadopc/taskcal/internal/calendar"
)

type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	ICS  Format = "ics"
)

var Formats = []Format{CSV, JSON, ICS}

func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(strings.TrimSpace(s), string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Meta describes where a set of events came from.
type Meta struct {
	Project  string
	Window   calendar.ViewWindow
	Location *time.Location
}

func (m Meta) loc() *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}

// Write encodes events in format f.
func Write(w io.Writer, f Format, events []calendar.Event, m Meta) error {
	switch f {
	case CSV:
		return WriteCSV(w, events, m)
	case JSON:
		return WriteJSON(w, events, m)
	case ICS:
		return WriteICS(w, events, m)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// ToFile writes events to dir and returns the path of the new file.
func ToFile(dir string, f Format, events []calendar.Event, m Meta) (string, error) {
	path := filepath.Join(dir, Filename(f, m))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s file: %w", f, err)
	}

	if err := Write(file, f, events, m); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s file: %w", f, err)
	}
	return path, nil
}

// Filename is taskcal-<project>-<view>-<first day>.<ext>.
func Filename(f Format, m Meta) string {
	project := slug(m.Project)
	if project == "" {
		project = "calendar"
	}
	return fmt.Sprintf("taskcal-%s-%s-%s.%s", project, m.Window.Granularity, m.Window.FirstDay(), f)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func formatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
