package flightrec

import (
	"github.com/bft-labs/flightrec/internal/app"
	"github.com/bft-labs/flightrec/internal/domain"
	"github.com/bft-labs/flightrec/internal/ports"
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// Clock supplies wall-clock and monotonic time to a Recorder.
type Clock = ports.Clock

// Event is one FLIGHT or DOWNTIME interval of a report.
type Event = domain.Event

// EventKind tags an Event.
type EventKind = domain.EventKind

// Event kinds.
const (
	EventDowntime = domain.EventDowntime
	EventFlight   = domain.EventFlight
)

// TieBreak orders a close and an open that share a timestamp.
type TieBreak = domain.TieBreak

// Tie-break policies.
const (
	ClosesFirst = domain.ClosesFirst
	OpensFirst  = domain.OpensFirst
)

// ParseTieBreak parses "closes-first" or "opens-first".
func ParseTieBreak(s string) (TieBreak, error) {
	return domain.ParseTieBreak(s)
}

// Errors returned by this package; check them with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrStoreOpen       = domain.ErrStoreOpen
	ErrSessionCreate   = domain.ErrSessionCreate
	ErrStoreRead       = domain.ErrStoreRead
	ErrUnmatchedClose  = domain.ErrUnmatchedClose
)

// State is the lifecycle state of a Recorder.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
