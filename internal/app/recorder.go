package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/flightrec/internal/domain"
	"github.com/bft-labs/flightrec/internal/ports"
)

// DefaultFinalUpdateTimeout bounds the final heartbeat written on shutdown.
const DefaultFinalUpdateTimeout = 5 * time.Second

// errNotOpened is returned by Run when Open has not succeeded.
var errNotOpened = errors.New("flight record not opened")

// RecorderConfig contains configuration for the heartbeat loop.
type RecorderConfig struct {
	Interval           time.Duration
	FinalUpdateTimeout time.Duration
}

// HeartbeatEmitter is called when the session record is written.
type HeartbeatEmitter interface {
	OnSessionOpen(id int64, ts float64)
	OnHeartbeat(id int64, duration, ts float64, final bool)
	OnHeartbeatError(id int64, err error, final bool)
}

// Recorder owns one flight record and keeps it current while the process
// is alive.
type Recorder struct {
	config  RecorderConfig
	store   ports.FlightStore
	clock   ports.Clock
	logger  ports.Logger
	emitter HeartbeatEmitter

	mu        sync.RWMutex
	id        int64
	opened    bool
	startMono time.Duration
	lastTS    float64
	duration  float64
}

// NewRecorder creates a recorder with the given dependencies.
// emitter may be nil.
func NewRecorder(
	config RecorderConfig,
	store ports.FlightStore,
	clock ports.Clock,
	logger ports.Logger,
	emitter HeartbeatEmitter,
) *Recorder {
	if config.FinalUpdateTimeout <= 0 {
		config.FinalUpdateTimeout = DefaultFinalUpdateTimeout
	}
	return &Recorder{
		config:  config,
		store:   store,
		clock:   clock,
		logger:  logger,
		emitter: emitter,
	}
}

// Open creates the session record. A failure is fatal for the session:
// the error wraps domain.ErrSessionCreate and no retry is attempted.
func (r *Recorder) Open(ctx context.Context) error {
	startMono := r.clock.Monotonic()
	ts := domain.Seconds(r.clock.Now())

	id, err := r.store.Create(ctx, 0, ts)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSessionCreate, err)
	}

	r.mu.Lock()
	r.id = id
	r.opened = true
	r.startMono = startMono
	r.lastTS = ts
	r.duration = 0
	r.mu.Unlock()

	r.logger.Info("opened flight record",
		ports.Int64("id", id),
		ports.Duration("interval", r.config.Interval),
		ports.Float64("ts", ts),
	)

	if r.emitter != nil {
		r.emitter.OnSessionOpen(id, ts)
	}
	return nil
}

// Run executes the heartbeat loop until ctx is canceled.
// On cancellation it writes one final heartbeat and returns ctx.Err().
// Update failures are logged and retried on the next tick.
func (r *Recorder) Run(ctx context.Context) error {
	if !r.Opened() {
		return errNotOpened
	}

	for {
		if ctx.Err() != nil {
			return r.land(ctx)
		}

		select {
		case <-ctx.Done():
			return r.land(ctx)
		case <-r.clock.After(r.config.Interval):
			r.heartbeat(ctx, false)
		}
	}
}

// land writes the final heartbeat with a context that outlives ctx.
func (r *Recorder) land(ctx context.Context) error {
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.FinalUpdateTimeout)
	defer cancel()

	r.heartbeat(finalCtx, true)

	id, duration, _ := r.Last()
	r.logger.Info("flight record closed",
		ports.Int64("id", id),
		ports.Float64("duration", duration),
	)
	return ctx.Err()
}

// heartbeat persists the elapsed time and the wall-clock time of now.
func (r *Recorder) heartbeat(ctx context.Context, final bool) {
	elapsed := r.clock.Monotonic() - r.startMonotonic()
	if elapsed < 0 {
		elapsed = 0
	}
	duration := elapsed.Seconds()
	ts := domain.Seconds(r.clock.Now())
	id := r.SessionID()

	if err := r.store.Update(ctx, id, duration, ts); err != nil {
		r.logger.Error("flight record update failed",
			ports.Err(err),
			ports.Int64("id", id),
			ports.Bool("final", final),
		)
		if r.emitter != nil {
			r.emitter.OnHeartbeatError(id, err, final)
		}
		return
	}

	r.mu.Lock()
	r.duration = duration
	r.lastTS = ts
	r.mu.Unlock()

	r.logger.Debug("heartbeat",
		ports.Int64("id", id),
		ports.Float64("duration", duration),
		ports.Float64("ts", ts),
		ports.Bool("final", final),
	)

	if r.emitter != nil {
		r.emitter.OnHeartbeat(id, duration, ts, final)
	}
}

// Opened reports whether the session record exists.
func (r *Recorder) Opened() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.opened
}

// SessionID returns the id of the session record, or 0 before Open.
func (r *Recorder) SessionID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id
}

// Last returns the last committed duration and timestamp of the session.
func (r *Recorder) Last() (id int64, duration, lastTS float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.id, r.duration, r.lastTS
}

func (r *Recorder) startMonotonic() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.startMono
}
