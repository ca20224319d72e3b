package domain

import (
	"math"
	"time"
)

// MinusInf marks the start of the first downtime: no activity was ever
// recorded before it.
var MinusInf = math.Inf(-1)

// FlightRecord is one recording session. A session is never closed
// explicitly; its liveness ends at the last committed LastTS.
type FlightRecord struct {
	// ID is assigned by the store in insertion order.
	ID int64

	// Duration is the elapsed alive time in seconds as of the last update.
	Duration float64

	// LastTS is the wall-clock time of the last update, in epoch seconds.
	LastTS float64
}

// StartTS returns the wall-clock instant the session began.
func (r FlightRecord) StartTS() float64 {
	return r.LastTS - r.Duration
}

// Valid reports whether the record satisfies the persisted invariants.
func (r FlightRecord) Valid() bool {
	return r.Duration >= 0 && !math.IsNaN(r.LastTS) && !math.IsInf(r.LastTS, 0)
}

// Seconds converts a wall-clock time to epoch seconds.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Time converts epoch seconds back to a wall-clock time.
// Infinite values have no representation and yield the zero time.
func Time(ts float64) time.Time {
	if math.IsInf(ts, 0) || math.IsNaN(ts) {
		return time.Time{}
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
