package domain

import (
	"fmt"
	"math"
	"strconv"
)

// EventKind tags a reconstructed interval.
type EventKind int

const (
	// EventDowntime is an interval with no session known alive.
	EventDowntime EventKind = iota
	// EventFlight is an interval during which one session was alive.
	EventFlight
)

// String returns the tag used in reports.
func (k EventKind) String() string {
	switch k {
	case EventDowntime:
		return "DOWNTIME"
	case EventFlight:
		return "FLIGHT"
	default:
		return "UNKNOWN"
	}
}

// Event is one interval of the reconstructed chronology.
// For FLIGHT events ID is the flight id; for DOWNTIME events it is the
// report-local serial, starting at 1.
type Event struct {
	Kind    EventKind
	ID      int64
	StartTS float64
	EndTS   float64
}

// Flight builds a FLIGHT event.
func Flight(id int64, start, end float64) Event {
	return Event{Kind: EventFlight, ID: id, StartTS: start, EndTS: end}
}

// Downtime builds a DOWNTIME event.
func Downtime(serial int64, start, end float64) Event {
	return Event{Kind: EventDowntime, ID: serial, StartTS: start, EndTS: end}
}

// Duration returns the length of the interval in seconds.
// It is +Inf for the first downtime of a chronology.
func (e Event) Duration() float64 {
	return e.EndTS - e.StartTS
}

// OpenEnded reports whether the interval has no known start.
func (e Event) OpenEnded() bool {
	return math.IsInf(e.StartTS, -1)
}

// String formats the event as KIND(id, start, end) with timestamps in plain
// decimal epoch seconds.
func (e Event) String() string {
	return fmt.Sprintf("%s(%d, %s, %s)", e.Kind, e.ID, FormatSeconds(e.StartTS), FormatSeconds(e.EndTS))
}

// FormatSeconds formats epoch seconds without an exponent, using the
// shortest decimal that round-trips.
func FormatSeconds(ts float64) string {
	switch {
	case math.IsInf(ts, -1):
		return "-Inf"
	case math.IsInf(ts, 1):
		return "+Inf"
	}
	return strconv.FormatFloat(ts, 'f', -1, 64)
}
