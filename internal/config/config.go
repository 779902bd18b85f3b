package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/taskcal/internal/calendar"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the web feed.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// DBPath is the SQLite database file. Empty means the platform default.
	DBPath string `yaml:"db_path"`

	// Timezone is the IANA zone all wall-clock fields are read and shown in.
	// "Local" uses the system zone.
	Timezone string `yaml:"timezone"`

	// WeekStart is "monday" or "sunday".
	WeekStart string `yaml:"week_start"`

	// DefaultView is the calendar granularity shown on start: day, week or month.
	DefaultView string `yaml:"default_view"`

	// RemoteTimeout bounds each backend update issued from the UI.
	RemoteTimeout time.Duration `yaml:"remote_timeout"`

	LogLevel string `yaml:"log_level"`
	// LogFile receives log output while the terminal UI owns the screen.
	LogFile string `yaml:"log_file"`

	ExportDir string `yaml:"export_dir"`

	// Listen is the HTTP listen address for -serve.
	Listen string `yaml:"listen"`

	// Refresh is the cron schedule for reloading the web feed snapshots.
	Refresh string `yaml:"refresh"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`
}

const (
	defaultTimeout = 10 * time.Second
	defaultListen  = "127.0.0.1:8080"
	defaultRefresh = "*/5 * * * *"
)

// DefaultPath returns $XDG_CONFIG_HOME/taskcal/config.yaml or the
// platform equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "taskcal", "config.yaml"), nil
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing or invalid values so partially filled files
// still behave.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "monday"
	}
	if _, err := calendar.ParseGranularity(c.DefaultView); err != nil {
		c.DefaultView = calendar.Week.String()
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = defaultTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ExportDir == "" {
		c.ExportDir = "."
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Refresh == "" {
		c.Refresh = defaultRefresh
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads the YAML file at path. On first run the file does not exist;
// a default config is written there and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".taskcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
