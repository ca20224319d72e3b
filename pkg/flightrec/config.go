package flightrec

import (
	"fmt"
	"time"

	"github.com/bft-labs/flightrec/internal/app"
	"github.com/bft-labs/flightrec/internal/domain"
)

// DefaultInterval is the heartbeat interval used when Config.Interval is zero.
const DefaultInterval = 10 * time.Second

// MinInterval is the shortest accepted heartbeat interval.
const MinInterval = time.Millisecond

// Config configures a Recorder.
type Config struct {
	// Database is a SQLite file path or a PostgreSQL URL.
	Database string

	// Interval between heartbeats.
	// Default: 10 seconds
	Interval time.Duration

	// FinalUpdateTimeout bounds the heartbeat written by Stop.
	// Default: 5 seconds
	FinalUpdateTimeout time.Duration
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.FinalUpdateTimeout == 0 {
		c.FinalUpdateTimeout = app.DefaultFinalUpdateTimeout
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("%w: database is required", domain.ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", domain.ErrInvalidConfig)
	}
	if c.Interval < MinInterval {
		return fmt.Errorf("%w: interval %v is below the %v minimum", domain.ErrInvalidConfig, c.Interval, MinInterval)
	}
	if c.FinalUpdateTimeout <= 0 {
		return fmt.Errorf("%w: final update timeout must be positive", domain.ErrInvalidConfig)
	}
	return nil
}
