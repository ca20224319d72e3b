package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/flightrec/internal/domain"
	"github.com/bft-labs/flightrec/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for the recorder loop to finish
// its final heartbeat.
const ShutdownTimeout = 30 * time.Second

// State represents the lifecycle state of a recorder session.
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

// active reports whether a session is in progress in s.
func (s State) active() bool {
	return s == StateStarting || s == StateRunning || s == StateStopping
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

type transition struct {
	from, to State
	reason   string
}

// Lifecycle drives one recorder session at a time through
// Starting, Running, Stopping and back to Stopped or Crashed.
//
// A session begins with Begin, ends early with Abort when the store or the
// session record cannot be opened, and otherwise hands its heartbeat loop to
// Launch. Stop cancels the loop and waits for it to land.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	logger  ports.Logger
	emitter EventEmitter
}

// NewLifecycle creates a lifecycle in StateStopped.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	done := make(chan struct{})
	close(done)
	return &Lifecycle{
		state:   StateStopped,
		done:    done,
		logger:  logger,
		emitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Done returns a channel closed when the current session has ended.
func (l *Lifecycle) Done() <-chan struct{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.done
}

// Begin starts a new session. It fails with ErrAlreadyRunning while a
// previous session is still in progress; a crashed session may be restarted.
func (l *Lifecycle) Begin() error {
	l.mu.Lock()
	if l.state.active() {
		l.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	t := l.moveLocked(StateStarting, "session starting")
	l.cancel = nil
	l.done = make(chan struct{})
	l.mu.Unlock()

	l.announce(t)
	return nil
}

// Abort ends a session that failed before its loop was launched.
func (l *Lifecycle) Abort(err error) {
	l.mu.RLock()
	done := l.done
	l.mu.RUnlock()
	l.finish(done, StateCrashed, err.Error())
}

// Launch runs loop in the background for the current session. If Stop was
// called while the session was starting, loop still runs with a canceled
// context so it can write its final heartbeat.
//
// When loop returns, the session ends in StateStopped, or in StateCrashed
// if loop failed with anything but a context error.
func (l *Lifecycle) Launch(ctx context.Context, loop func(context.Context) error) error {
	runCtx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	var ts []transition
	switch l.state {
	case StateStarting:
		ts = append(ts, l.moveLocked(StateRunning, "session opened"))
	case StateStopping:
		cancel()
	default:
		l.mu.Unlock()
		cancel()
		return domain.ErrNotRunning
	}
	l.cancel = cancel
	done := l.done
	l.mu.Unlock()

	l.announce(ts...)

	go func() {
		err := loop(runCtx)
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			l.logger.Error("recorder loop failed", ports.Err(err))
			l.finish(done, StateCrashed, err.Error())
			return
		}
		l.finish(done, StateStopped, "flight record closed")
	}()
	return nil
}

// Stop asks the running session to land and waits up to timeout for its
// loop to return. On timeout the session is marked crashed and
// ErrShutdownTimeout is returned.
func (l *Lifecycle) Stop(timeout time.Duration) error {
	l.mu.Lock()
	if l.state != StateStarting && l.state != StateRunning {
		l.mu.Unlock()
		return domain.ErrNotRunning
	}
	t := l.moveLocked(StateStopping, "stop requested")
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	l.announce(t)
	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit",
			ports.Duration("timeout", timeout),
		)
		l.mu.Lock()
		var ts []transition
		if l.state == StateStopping {
			ts = append(ts, l.moveLocked(StateCrashed, "shutdown timeout"))
		}
		l.mu.Unlock()
		l.announce(ts...)
		return domain.ErrShutdownTimeout
	}
}

// finish records the end of the session identified by done and closes done.
// A Running session passes through Stopping first. A session that was
// already given up on by Stop leaves the current state untouched.
func (l *Lifecycle) finish(done chan struct{}, to State, reason string) {
	l.mu.Lock()
	var ts []transition
	if l.done == done {
		if l.state == StateRunning && to == StateStopped {
			ts = append(ts, l.moveLocked(StateStopping, reason))
		}
		if l.state.active() {
			ts = append(ts, l.moveLocked(to, reason))
		}
		l.cancel = nil
	}
	l.mu.Unlock()

	l.announce(ts...)
	close(done)
}

func (l *Lifecycle) moveLocked(to State, reason string) transition {
	t := transition{from: l.state, to: to, reason: reason}
	l.state = to
	return t
}

// announce reports transitions outside of the lock.
func (l *Lifecycle) announce(ts ...transition) {
	for _, t := range ts {
		if l.emitter != nil {
			l.emitter.OnStateChange(t.from, t.to, t.reason)
		}
		l.logger.Info("state transition",
			ports.String("from", t.from.String()),
			ports.String("to", t.to.String()),
			ports.String("reason", t.reason),
		)
	}
}
