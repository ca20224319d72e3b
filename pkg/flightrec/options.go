package flightrec

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/flightrec/internal/adapters/clock"
	logAdapter "github.com/bft-labs/flightrec/internal/adapters/log"
)

// Option configures optional behavior of a Recorder.
type Option func(*options)

type options struct {
	logger       Logger
	clock        Clock
	eventHandler EventHandler
	registerer   prometheus.Registerer
	namespace    string
}

func defaultOptions() options {
	return options{
		logger: logAdapter.NewNoopLogger(),
		clock:  clock.NewSystem(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithEventHandler sets a handler for recorder events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithMetrics registers recorder metrics on reg under namespace
// ("flightrec" if empty).
func WithMetrics(reg prometheus.Registerer, namespace string) Option {
	return func(o *options) {
		o.registerer = reg
		o.namespace = namespace
	}
}
