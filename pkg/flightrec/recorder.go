package flightrec

import (
	"context"
	"sync"

	"github.com/bft-labs/flightrec/internal/adapters/metrics"
	"github.com/bft-labs/flightrec/internal/adapters/sqlstore"
	"github.com/bft-labs/flightrec/internal/app"
	"github.com/bft-labs/flightrec/internal/ports"
)

// Recorder keeps one flight record current while it runs.
// Use New() to create an instance, then Start() to open the session.
type Recorder struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	emitter   *emitter
	logger    ports.Logger

	mu       sync.RWMutex
	recorder *app.Recorder
}

// New creates a Recorder with the given configuration.
// The instance is created in StateStopped; call Start() to open the session.
func New(cfg Config, opts ...Option) (*Recorder, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	em := &emitter{handler: o.eventHandler}
	if o.registerer != nil {
		em.sinks = append(em.sinks, metrics.NewPrometheus(o.registerer, o.namespace))
	}

	return &Recorder{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(o.logger, em),
		emitter:   em,
		logger:    o.logger,
	}, nil
}

// Start opens the store, creates the session record and starts the
// heartbeat loop in the background. Failures to open the store wrap
// ErrStoreOpen and failures to create the record wrap ErrSessionCreate;
// both leave the Recorder in StateCrashed.
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.lifecycle.Begin(); err != nil {
		return err
	}

	store, err := sqlstore.Open(ctx, r.config.Database, sqlstore.Options{})
	if err != nil {
		r.lifecycle.Abort(err)
		return err
	}

	rec := app.NewRecorder(app.RecorderConfig{
		Interval:           r.config.Interval,
		FinalUpdateTimeout: r.config.FinalUpdateTimeout,
	}, store, r.opts.clock, r.logger, r.emitter)

	if err := rec.Open(ctx); err != nil {
		store.Close()
		r.lifecycle.Abort(err)
		return err
	}

	r.mu.Lock()
	r.recorder = rec
	r.mu.Unlock()

	err = r.lifecycle.Launch(ctx, func(ctx context.Context) error {
		err := rec.Run(ctx)
		if closeErr := store.Close(); closeErr != nil {
			r.logger.Warn("close store failed", ports.Err(closeErr))
		}
		return err
	})
	if err != nil {
		store.Close()
		r.lifecycle.Abort(err)
	}
	return err
}

// Stop ends the heartbeat loop after one final heartbeat.
// Waits up to 30 seconds for it to finish.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (r *Recorder) Stop() error {
	return r.lifecycle.Stop(app.ShutdownTimeout)
}

// Done returns a channel closed when the current session has ended.
func (r *Recorder) Done() <-chan struct{} {
	return r.lifecycle.Done()
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (r *Recorder) Status() State {
	return convertState(r.lifecycle.State())
}

// SessionID returns the id of the current session record, or 0 before the
// first successful Start.
func (r *Recorder) SessionID() int64 {
	id, _, _ := r.Last()
	return id
}

// Last returns the id, duration and wall-clock timestamp of the last
// committed heartbeat of the current session.
func (r *Recorder) Last() (id int64, duration, lastTS float64) {
	r.mu.RLock()
	rec := r.recorder
	r.mu.RUnlock()
	if rec == nil {
		return 0, 0, 0
	}
	return rec.Last()
}
