package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig is the TOML config file shared by flight-recorder and flights.
type FileConfig struct {
	Interval    *float64 `toml:"interval"`
	Verbosity   string   `toml:"verbosity"`
	Log         string   `toml:"log"`
	Database    string   `toml:"database"`
	MetricsAddr string   `toml:"metrics_addr"`

	Report ReportFileConfig `toml:"report"`
}

// ReportFileConfig is the [report] table of the config file.
type ReportFileConfig struct {
	Format   string `toml:"format"`
	TieBreak string `toml:"tie_break"`
	Follow   *bool  `toml:"follow"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.flight-recorder/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".flight-recorder", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setFloat("interval", fc.Interval, &cfg.Interval); err != nil {
		return err
	}
	s.setString("verbosity", fc.Verbosity, &cfg.Verbosity)
	s.setString("log", fc.Log, &cfg.LogFile)
	s.setString("database", fc.Database, &cfg.Database)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	return nil
}

// ApplyReportFileConfig applies the database and [report] settings of a
// config file to cfg.
func ApplyReportFileConfig(cfg *ReportConfig, fc FileConfig, changed map[string]bool) {
	s := newConfigSetter(changed)

	s.setString("database", fc.Database, &cfg.Database)
	s.setString("format", fc.Report.Format, &cfg.Format)
	s.setString("tie-break", fc.Report.TieBreak, &cfg.TieBreak)
	s.setBool("follow", fc.Report.Follow, &cfg.Follow)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
