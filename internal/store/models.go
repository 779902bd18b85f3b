package store

import "time"

type Project struct {
	ID        int64
	Name      string
	Color     string
	Category  string
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Setting struct {
	Key   string
	Value string
}

// Setting keys read by the calendar views.
const (
	SettingWeekStart   = "week_start"
	SettingDefaultView = "default_view"
)
