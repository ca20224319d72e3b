package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/flightrec/internal/domain"
	"github.com/bft-labs/flightrec/internal/ports"
)

type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

type step struct{ from, to State }

// stateLog records the transitions of a lifecycle.
type stateLog struct {
	mu      sync.Mutex
	steps   []step
	reasons []string
}

func (s *stateLog) OnStateChange(previous, current State, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, step{previous, current})
	s.reasons = append(s.reasons, reason)
}

func (s *stateLog) Steps() []step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]step(nil), s.steps...)
}

// idleClock never ticks, so a loop only writes its final heartbeat.
type idleClock struct{ *fakeClock }

func (idleClock) After(time.Duration) <-chan time.Time { return nil }

// openSession runs Begin, opens a recorder on store and launches its loop,
// the way a recorder session is started in production.
func openSession(t *testing.T, l *Lifecycle, store *fakeStore, emitter HeartbeatEmitter) (*Recorder, error) {
	t.Helper()
	require.NoError(t, l.Begin())

	rec := NewRecorder(RecorderConfig{Interval: time.Hour}, store, idleClock{newFakeClock()}, &mockLogger{}, emitter)
	if err := rec.Open(context.Background()); err != nil {
		l.Abort(err)
		return rec, err
	}
	return rec, l.Launch(context.Background(), rec.Run)
}

func requireClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestState_String(t *testing.T) {
	require.Equal(t, "Running", StateRunning.String())
	require.Equal(t, "Crashed", StateCrashed.String())
	require.Equal(t, "Unknown", State(99).String())
}

func TestLifecycle_IdleSession(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	require.Equal(t, StateStopped, l.State())
	requireClosed(t, l.Done())
	require.ErrorIs(t, l.Stop(time.Second), domain.ErrNotRunning)
}

func TestLifecycle_StopLandsSession(t *testing.T) {
	log := &stateLog{}
	l := NewLifecycle(&mockLogger{}, log)
	store := newFakeStore()
	emitter := &recordingEmitter{}

	rec, err := openSession(t, l, store, emitter)
	require.NoError(t, err)
	require.Equal(t, StateRunning, l.State())
	require.ErrorIs(t, l.Begin(), domain.ErrAlreadyRunning)

	require.NoError(t, l.Stop(time.Second))
	require.Equal(t, StateStopped, l.State())
	requireClosed(t, l.Done())

	require.Equal(t, []step{
		{StateStopped, StateStarting},
		{StateStarting, StateRunning},
		{StateRunning, StateStopping},
		{StateStopping, StateStopped},
	}, log.Steps())

	// the final heartbeat is the only update of an hour-interval session
	require.Equal(t, 1, store.updateCount())
	require.Equal(t, 1, emitter.finals)
	require.ErrorIs(t, l.Stop(time.Second), domain.ErrNotRunning)
	require.NotZero(t, rec.SessionID())
}

func TestLifecycle_SessionCreateFailureThenRestart(t *testing.T) {
	log := &stateLog{}
	l := NewLifecycle(&mockLogger{}, log)
	store := newFakeStore()
	store.createErr = errStoreDown

	_, err := openSession(t, l, store, nil)
	require.ErrorIs(t, err, domain.ErrSessionCreate)
	require.Equal(t, StateCrashed, l.State())
	requireClosed(t, l.Done())
	require.Zero(t, store.updateCount())

	log.mu.Lock()
	require.Contains(t, log.reasons[len(log.reasons)-1], errStoreDown.Error())
	log.mu.Unlock()

	store.createErr = nil
	_, err = openSession(t, l, store, nil)
	require.NoError(t, err)
	require.NoError(t, l.Stop(time.Second))

	require.Equal(t, []step{
		{StateStopped, StateStarting},
		{StateStarting, StateCrashed},
		{StateCrashed, StateStarting},
		{StateStarting, StateRunning},
		{StateRunning, StateStopping},
		{StateStopping, StateStopped},
	}, log.Steps())
}

func TestLifecycle_StopWhileOpening(t *testing.T) {
	log := &stateLog{}
	l := NewLifecycle(&mockLogger{}, log)
	store := newFakeStore()
	emitter := &recordingEmitter{}

	require.NoError(t, l.Begin())

	stopped := make(chan error, 1)
	go func() { stopped <- l.Stop(5 * time.Second) }()
	require.Eventually(t, func() bool { return l.State() == StateStopping }, time.Second, time.Millisecond)

	rec := NewRecorder(RecorderConfig{Interval: time.Hour}, store, idleClock{newFakeClock()}, &mockLogger{}, emitter)
	require.NoError(t, rec.Open(context.Background()))
	require.NoError(t, l.Launch(context.Background(), rec.Run))

	require.NoError(t, <-stopped)
	require.Equal(t, StateStopped, l.State())

	// the session never ran a tick but still landed
	require.Equal(t, 1, store.updateCount())
	require.Equal(t, 1, emitter.finals)
	require.Equal(t, []step{
		{StateStopped, StateStarting},
		{StateStarting, StateStopping},
		{StateStopping, StateStopped},
	}, log.Steps())
}

func TestLifecycle_ShutdownTimeout(t *testing.T) {
	log := &stateLog{}
	l := NewLifecycle(&mockLogger{}, log)

	release := make(chan struct{})
	require.NoError(t, l.Begin())
	require.NoError(t, l.Launch(context.Background(), func(context.Context) error {
		<-release
		return nil
	}))
	done := l.Done()

	require.ErrorIs(t, l.Stop(20*time.Millisecond), domain.ErrShutdownTimeout)
	require.Equal(t, StateCrashed, l.State())

	select {
	case <-done:
		t.Fatal("session ended before its loop returned")
	default:
	}

	// a loop that lands late does not revive the crashed session
	close(release)
	requireClosed(t, done)
	require.Equal(t, StateCrashed, l.State())
	require.Equal(t, step{StateStopping, StateCrashed}, log.Steps()[len(log.Steps())-1])

	require.NoError(t, l.Begin())
	require.Equal(t, StateStarting, l.State())
}

func TestLifecycle_StaleLoopLeavesNewSessionAlone(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	release := make(chan struct{})
	require.NoError(t, l.Begin())
	require.NoError(t, l.Launch(context.Background(), func(context.Context) error {
		<-release
		return nil
	}))
	stale := l.Done()
	require.ErrorIs(t, l.Stop(10*time.Millisecond), domain.ErrShutdownTimeout)

	_, err := openSession(t, l, newFakeStore(), nil)
	require.NoError(t, err)

	close(release)
	requireClosed(t, stale)
	require.Equal(t, StateRunning, l.State())

	select {
	case <-l.Done():
		t.Fatal("new session ended with the stale loop")
	default:
	}
	require.NoError(t, l.Stop(time.Second))
}

func TestLifecycle_ParentContextEndsSession(t *testing.T) {
	log := &stateLog{}
	l := NewLifecycle(&mockLogger{}, log)
	store := newFakeStore()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Begin())
	rec := NewRecorder(RecorderConfig{Interval: time.Hour}, store, idleClock{newFakeClock()}, &mockLogger{}, nil)
	require.NoError(t, rec.Open(ctx))
	require.NoError(t, l.Launch(ctx, rec.Run))

	cancel()
	requireClosed(t, l.Done())

	require.Equal(t, StateStopped, l.State())
	require.Equal(t, 1, store.updateCount())
	require.Equal(t, []step{
		{StateRunning, StateStopping},
		{StateStopping, StateStopped},
	}, log.Steps()[2:])
	require.ErrorIs(t, l.Stop(time.Second), domain.ErrNotRunning)
}

func TestLifecycle_LoopFailureCrashes(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	require.NoError(t, l.Begin())
	require.NoError(t, l.Launch(context.Background(), func(context.Context) error {
		return errStoreDown
	}))
	requireClosed(t, l.Done())

	require.Equal(t, StateCrashed, l.State())
	require.ErrorIs(t, l.Stop(time.Second), domain.ErrNotRunning)
}

func TestLifecycle_LaunchWithoutBegin(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	called := false
	err := l.Launch(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, domain.ErrNotRunning)
	require.False(t, called)
}

func TestLifecycle_ConcurrentBegin(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Begin() == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, won)
	require.Equal(t, StateStarting, l.State())
}
