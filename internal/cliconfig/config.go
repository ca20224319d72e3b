package cliconfig

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/flightrec/internal/domain"
)

// Heartbeat interval bounds, in seconds. MaxInterval is the longest whole
// number of seconds a time.Duration can hold.
const (
	DefaultInterval = 10.0
	MinInterval     = 0.001
	MaxInterval     = float64(math.MaxInt64 / int64(time.Second))
)

// Report output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config holds CLI configuration for flight-recorder.
type Config struct {
	// Interval between heartbeats, in seconds.
	Interval    float64
	Verbosity   string
	LogFile     string
	Database    string
	MetricsAddr string
}

// ReportConfig holds CLI configuration for flights.
type ReportConfig struct {
	Database string
	Format   string
	TieBreak string
	Follow   bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Interval:  DefaultInterval,
		Verbosity: LevelInfo.String(),
		Database:  DefaultDatabasePath(),
	}
}

// DefaultReportConfig returns a ReportConfig with default values.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Database: DefaultDatabasePath(),
		Format:   FormatJSON,
		TieBreak: domain.ClosesFirst.String(),
	}
}

// DefaultDatabasePath returns ~/.flight-recorder/flight-recorder.db, or a
// relative path when the home directory is unknown.
func DefaultDatabasePath() string {
	return filepath.Join(homeDir(), ".flight-recorder", "flight-recorder.db")
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return ""
}

// ExpandHome replaces a leading ~/ with the user home directory.
func ExpandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

// Validate checks the configuration for errors and normalizes paths.
func (c *Config) Validate() error {
	if err := validInterval(c.Interval); err != nil {
		return err
	}
	if _, err := ParseVerbosity(c.Verbosity); err != nil {
		return err
	}
	if c.Database == "" {
		return fmt.Errorf("%w: database is required", domain.ErrInvalidConfig)
	}
	c.Database = ExpandHome(c.Database)
	c.LogFile = ExpandHome(c.LogFile)
	return nil
}

func validInterval(v float64) error {
	switch {
	case math.IsNaN(v) || v <= 0:
		return fmt.Errorf("%w: interval %v is not a positive number of seconds", domain.ErrInvalidConfig, v)
	case v < MinInterval:
		return fmt.Errorf("%w: interval %vs is below the %vs minimum", domain.ErrInvalidConfig, v, MinInterval)
	case v > MaxInterval:
		return fmt.Errorf("%w: interval %vs exceeds the %.0fs maximum", domain.ErrInvalidConfig, v, MaxInterval)
	}
	return nil
}

// IntervalDuration returns Interval as a time.Duration.
func (c Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval * float64(time.Second))
}

// Validate checks the report configuration for errors.
func (c *ReportConfig) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("%w: database is required", domain.ErrInvalidConfig)
	}
	switch c.Format {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("%w: unknown format %q", domain.ErrInvalidConfig, c.Format)
	}
	if _, err := domain.ParseTieBreak(c.TieBreak); err != nil {
		return err
	}
	c.Database = ExpandHome(c.Database)
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if present and flag not changed.
// Non-positive values are rejected.
func (s *configSetter) setFloat(flag string, value *float64, dst *float64) error {
	if value == nil || s.changed[flag] {
		return nil
	}
	if *value <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", domain.ErrInvalidConfig, flag, *value)
	}
	*dst = *value
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloatFromString parses a string to float64 and sets the destination.
// Non-positive values are rejected so a bad environment value cannot
// silently fall back to the default.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidConfig, flag, err)
	}
	if f <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", domain.ErrInvalidConfig, flag, f)
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
