package domain

import "errors"

// Domain errors represent error conditions in the flightrec domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("flightrec: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("flightrec: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("flightrec: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("flightrec: invalid configuration")

	// ErrStoreOpen is returned when the flight store cannot be opened or its
	// schema cannot be prepared.
	ErrStoreOpen = errors.New("flightrec: store open failed")

	// ErrSessionCreate is returned when the session record cannot be created.
	ErrSessionCreate = errors.New("flightrec: session create failed")

	// ErrStoreRead is returned when scanning flight records fails.
	ErrStoreRead = errors.New("flightrec: store read failed")

	// ErrUnmatchedClose is returned when a close boundary has no matching open.
	ErrUnmatchedClose = errors.New("flightrec: close without open")
)
