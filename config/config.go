// Package config loads the calevents configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/libcalevents/recurrence"
	"gopkg.in/yaml.v3"
)

// Recurrence presets accepted in RecurrenceConfig.Preset.
const (
	PresetDefault         = "default"
	PresetHighPerformance = "high_performance"
	PresetLowMemory       = "low_memory"
	PresetDisabled        = "disabled"
)

// RecurrenceConfig tunes the recurrence expansion engine.
type RecurrenceConfig struct {
	// Preset selects a base engine configuration.
	Preset string `yaml:"preset" json:"preset"`
	// MaxOccurrences overrides the preset's per-expansion cap when positive.
	MaxOccurrences int `yaml:"max_occurrences,omitempty" json:"max_occurrences,omitempty"`
	// MaxRangeDays overrides the preset's expansion range cap when positive.
	MaxRangeDays int `yaml:"max_range_days,omitempty" json:"max_range_days,omitempty"`
	// CacheTTL overrides the preset's cache TTL, e.g. "10m".
	CacheTTL string `yaml:"cache_ttl,omitempty" json:"cache_ttl,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	// EventsURI is the base address events are reported under.
	EventsURI string `yaml:"events_uri" json:"events_uri"`

	// FallbackCalendarID receives new events saved without a calendar.
	FallbackCalendarID string `yaml:"fallback_calendar_id" json:"fallback_calendar_id"`

	// Timezone is the IANA zone used for zone-less timestamps (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Recurrence RecurrenceConfig `yaml:"recurrence" json:"recurrence"`

	// Fixtures is a YAML file of calendars and events seeded at startup.
	// Relative paths are resolved against the config file's directory.
	Fixtures string `yaml:"fixtures,omitempty" json:"fixtures,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		EventsURI:          "content://com.android.calendar/events",
		FallbackCalendarID: "1",
		Timezone:           "UTC",
		LogLevel:           "info",
		Recurrence:         RecurrenceConfig{Preset: PresetDefault},
	}
}

// Normalize fills in missing/zero values with defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.EventsURI == "" {
		c.EventsURI = def.EventsURI
	}
	if c.FallbackCalendarID == "" {
		c.FallbackCalendarID = def.FallbackCalendarID
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = def.LogLevel
	}
	switch c.Recurrence.Preset {
	case PresetDefault, PresetHighPerformance, PresetLowMemory, PresetDisabled:
	default:
		c.Recurrence.Preset = PresetDefault
	}
	if c.Recurrence.MaxOccurrences < 0 {
		c.Recurrence.MaxOccurrences = 0
	}
	if c.Recurrence.MaxRangeDays < 0 {
		c.Recurrence.MaxRangeDays = 0
	}
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// EngineConfig builds the recurrence engine configuration.
func (c *Config) EngineConfig() (recurrence.EngineConfig, error) {
	var cfg recurrence.EngineConfig
	switch c.Recurrence.Preset {
	case PresetHighPerformance:
		cfg = recurrence.HighPerformanceConfig
	case PresetLowMemory:
		cfg = recurrence.LowMemoryConfig
	case PresetDisabled:
		cfg = recurrence.DisabledCacheConfig
	default:
		cfg = recurrence.DefaultEngineConfig
	}

	if c.Recurrence.MaxOccurrences > 0 {
		cfg.MaxOccurrences = c.Recurrence.MaxOccurrences
	}
	if c.Recurrence.MaxRangeDays > 0 {
		cfg.MaxRange = time.Duration(c.Recurrence.MaxRangeDays) * 24 * time.Hour
	}
	if c.Recurrence.CacheTTL != "" {
		ttl, err := time.ParseDuration(c.Recurrence.CacheTTL)
		if err != nil {
			return cfg, fmt.Errorf("invalid recurrence cache_ttl %q: %w", c.Recurrence.CacheTTL, err)
		}
		cfg.CacheConfig.TTL = ttl
	}
	return cfg, nil
}

// FixturesPath resolves Fixtures relative to the config file at configPath.
func (c *Config) FixturesPath(configPath string) string {
	if c.Fixtures == "" || filepath.IsAbs(c.Fixtures) {
		return c.Fixtures
	}
	return filepath.Join(filepath.Dir(configPath), c.Fixtures)
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist a default config is written there with 0600
// permissions and returned. Otherwise the file is read and normalized.
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
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path through a temp file and rename, leaving the file
// with 0600 permissions.
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

	tmp, err := os.CreateTemp(dir, ".calevents-config-*.tmp")
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
