// Package clock provides the system implementation of ports.Clock.
package clock

import (
	"time"

	"github.com/bft-labs/flightrec/internal/ports"
)

// System reads the host clocks. Monotonic readings are measured from the
// moment the clock was created using the runtime's monotonic reading.
type System struct {
	origin time.Time
}

// NewSystem creates a system clock.
func NewSystem() *System {
	return &System{origin: time.Now()}
}

// Now returns the wall-clock time.
func (s *System) Now() time.Time {
	return time.Now()
}

// Monotonic returns the time elapsed since the clock was created.
func (s *System) Monotonic() time.Duration {
	return time.Since(s.origin)
}

// After waits for d on the monotonic clock.
func (s *System) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

var _ ports.Clock = (*System)(nil)
