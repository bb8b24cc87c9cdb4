// ABOUTME: Fatigue configuration management with backend selection.
// ABOUTME: Handles settings, profile defaults, and the storage backend factory function.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // zones resolve on hosts without zoneinfo

	"github.com/harperreed/fatigue/internal/models"
	"github.com/harperreed/fatigue/internal/storage"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultTimezone is where peers view each other's day.
	DefaultTimezone = "America/Detroit"

	// DefaultWindowHours is how far back peer summaries read observations.
	DefaultWindowHours = 24

	defaultListen = ":8080"
)

// Config stores fatigue tool configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default) or "badger".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for data storage.
	// SQLite puts fatigue.db here. Badger keeps its files under badger/.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/fatigue.
	DataDir string `json:"data_dir,omitempty"`

	// Timezone is the IANA zone used for local hours. Defaults to America/Detroit.
	Timezone string `json:"timezone,omitempty"`

	// WindowHours is the trailing window for peer summaries: 12 or 24.
	WindowHours int `json:"window_hours,omitempty"`

	// Listen is the HTTP listen address. Defaults to :$PORT, then :8080.
	Listen string `json:"listen,omitempty"`

	// LogLevel is a zap level name (debug, info, warn, error).
	LogLevel string `json:"log_level,omitempty"`

	// Defaults override the profile constants given to new subjects.
	// Zero fields keep the built-in defaults.
	Defaults *models.Profile `json:"defaults,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return "sqlite"
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetTimezone returns the configured timezone name.
func (c *Config) GetTimezone() string {
	if c.Timezone == "" {
		return DefaultTimezone
	}
	return c.Timezone
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.GetTimezone())
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.GetTimezone(), err)
	}
	return loc, nil
}

// GetWindow returns the peer summary window.
func (c *Config) GetWindow() time.Duration {
	if c.WindowHours == 0 {
		return DefaultWindowHours * time.Hour
	}
	return time.Duration(c.WindowHours) * time.Hour
}

// GetListen returns the HTTP listen address.
func (c *Config) GetListen() string {
	if c.Listen != "" {
		return c.Listen
	}
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return defaultListen
}

// GetLogLevel returns the configured log level, defaulting to info.
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// GetDefaults returns the profile defaults for new subjects.
func (c *Config) GetDefaults() models.Profile {
	p := models.DefaultProfile()
	if c.Defaults == nil {
		return p
	}
	d := c.Defaults
	if d.Age != 0 {
		p.Age = d.Age
	}
	if d.RestHR != 0 {
		p.RestHR = d.RestHR
	}
	if d.HRRCP != 0 {
		p.HRRCP = d.HRRCP
	}
	if d.WTotal != 0 {
		p.WTotal = d.WTotal
	}
	if d.K != 0 {
		p.K = d.K
	}
	if d.R != 0 {
		p.R = d.R
	}
	return p
}

// Validate checks the config for values the service cannot run with.
func (c *Config) Validate() error {
	switch c.GetBackend() {
	case "sqlite", "badger":
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	if c.WindowHours != 0 && c.WindowHours != 12 && c.WindowHours != 24 {
		return fmt.Errorf("window_hours must be 12 or 24, got %d", c.WindowHours)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.GetLogLevel()); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}

	d := c.GetDefaults()
	switch {
	case d.Age < 0 || d.Age > 120:
		return fmt.Errorf("defaults.age must be between 1 and 120")
	case d.RestHR < 0 || d.RestHR >= models.MaxHeartRate(d.Age):
		return fmt.Errorf("defaults.rest_heart_rate must be below the max heart rate for age %d", d.Age)
	case d.WTotal < 0:
		return fmt.Errorf("defaults.w_total must be positive")
	case d.K < 0 || d.R < 0:
		return fmt.Errorf("defaults.k and defaults.r must be non-negative")
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Repository implementation based on the configured backend.
func (c *Config) OpenStorage() (storage.Repository, error) {
	backend := c.GetBackend()
	dataDir := c.GetDataDir()

	switch backend {
	case "sqlite":
		return storage.Open(filepath.Join(dataDir, "fatigue.db"))
	case "badger":
		return storage.OpenKV(filepath.Join(dataDir, "badger"))
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "fatigue", "config.json")
}

// Load reads config from the default path.
func Load() (*Config, error) {
	return LoadFile(GetConfigPath())
}

// LoadFile reads config from path. A missing file yields an empty config.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
