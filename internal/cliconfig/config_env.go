package cliconfig

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/bft-labs/flightrec/internal/domain"
)

// LoadEnvFile loads KEY=value pairs from a dotenv file into the process
// environment. Variables already set in the environment are kept.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(ExpandHome(path)); err != nil {
		return fmt.Errorf("%w: load env file %s: %w", domain.ErrInvalidConfig, path, err)
	}
	return nil
}

// ApplyEnvConfig applies configuration from environment variables (FLIGHTREC_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("verbosity", os.Getenv("FLIGHTREC_VERBOSITY"), &cfg.Verbosity)
	s.setString("log", os.Getenv("FLIGHTREC_LOG"), &cfg.LogFile)
	s.setString("database", os.Getenv("FLIGHTREC_DATABASE"), &cfg.Database)
	s.setString("metrics-addr", os.Getenv("FLIGHTREC_METRICS_ADDR"), &cfg.MetricsAddr)

	return s.setFloatFromString("interval", os.Getenv("FLIGHTREC_INTERVAL"), &cfg.Interval)
}

// ApplyReportEnvConfig applies FLIGHTREC_* variables relevant to flights.
func ApplyReportEnvConfig(cfg *ReportConfig, changed map[string]bool) {
	s := newConfigSetter(changed)

	s.setString("database", os.Getenv("FLIGHTREC_DATABASE"), &cfg.Database)
	s.setString("format", os.Getenv("FLIGHTREC_FORMAT"), &cfg.Format)
	s.setString("tie-break", os.Getenv("FLIGHTREC_TIE_BREAK"), &cfg.TieBreak)
	s.setBoolFromString("follow", os.Getenv("FLIGHTREC_FOLLOW"), &cfg.Follow)
}
