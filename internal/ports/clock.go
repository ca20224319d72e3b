package ports

import "time"

// Clock provides the two time sources a recorder needs.
type Clock interface {
	// Now returns the wall-clock time.
	Now() time.Time

	// Monotonic returns a reading of a non-decreasing clock that is immune to
	// wall-clock adjustments. Only differences between readings are meaningful.
	Monotonic() time.Duration

	// After waits for the duration to elapse and then sends the current time
	// on the returned channel.
	After(d time.Duration) <-chan time.Time
}
