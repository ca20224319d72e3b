package flightrec

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// recordingHandler captures recorder events.
type recordingHandler struct {
	BaseEventHandler

	mu         sync.Mutex
	opens      []SessionOpenEvent
	heartbeats []HeartbeatEvent
	states     []StateChangeEvent
}

func (h *recordingHandler) OnSessionOpen(e SessionOpenEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opens = append(h.opens, e)
}

func (h *recordingHandler) OnHeartbeat(e HeartbeatEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.heartbeats = append(h.heartbeats, e)
}

func (h *recordingHandler) OnStateChange(e StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e)
}

func (h *recordingHandler) heartbeatCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.heartbeats)
}

func (h *recordingHandler) lastHeartbeat() HeartbeatEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.heartbeats[len(h.heartbeats)-1]
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Database: filepath.Join(t.TempDir(), "flight-recorder.db"),
		Interval: 10 * time.Millisecond,
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Database: "/tmp/x.db", Interval: -time.Second})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Database: "/tmp/x.db", Interval: time.Microsecond})
	require.ErrorIs(t, err, ErrInvalidConfig)

	r, err := New(Config{Database: "/tmp/x.db"})
	require.NoError(t, err)
	require.Equal(t, DefaultInterval, r.config.Interval)
	require.Equal(t, StateStopped, r.Status())
}

func TestRecorder_StartStop(t *testing.T) {
	cfg := testConfig(t)
	h := &recordingHandler{}

	r, err := New(cfg, WithEventHandler(h))
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	require.Equal(t, StateRunning, r.Status())
	require.NotZero(t, r.SessionID())
	require.ErrorIs(t, r.Start(context.Background()), ErrAlreadyRunning)

	require.Eventually(t, func() bool { return h.heartbeatCount() >= 3 }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, r.Stop())
	require.Equal(t, StateStopped, r.Status())
	<-r.Done()

	last := h.lastHeartbeat()
	require.True(t, last.Final)
	require.Equal(t, r.SessionID(), last.ID)

	id, duration, ts := r.Last()
	require.Equal(t, last.ID, id)
	require.Equal(t, last.Duration, duration)
	require.Equal(t, last.TS, ts)
	require.Greater(t, duration, 0.0)

	require.ErrorIs(t, r.Stop(), ErrNotRunning)

	h.mu.Lock()
	require.Len(t, h.opens, 1)
	require.Equal(t, StateStopped, h.states[len(h.states)-1].Current)
	h.mu.Unlock()

	events, err := Reconstruct(context.Background(), cfg.Database, ClosesFirst)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, EventDowntime, events[0].Kind)
	require.True(t, events[0].OpenEnded())
	require.Equal(t, EventFlight, events[1].Kind)
	require.Equal(t, id, events[1].ID)
	require.InDelta(t, duration, events[1].Duration(), 1e-6)
}

func TestRecorder_Restart(t *testing.T) {
	cfg := testConfig(t)

	r, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	first := r.SessionID()
	require.NoError(t, r.Stop())

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, r.Start(context.Background()))
	second := r.SessionID()
	require.NoError(t, r.Stop())
	require.Greater(t, second, first)

	events, err := Reconstruct(context.Background(), cfg.Database, ClosesFirst)
	require.NoError(t, err)
	require.Len(t, events, 4)
	require.Equal(t, EventDowntime, events[2].Kind)
	require.EqualValues(t, 2, events[2].ID)
	require.Equal(t, events[1].EndTS, events[2].StartTS)
	require.Equal(t, events[3].StartTS, events[2].EndTS)
}

func TestRecorder_StoreOpenFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	r, err := New(Config{Database: filepath.Join(blocker, "sub", "f.db")})
	require.NoError(t, err)

	err = r.Start(context.Background())
	require.ErrorIs(t, err, ErrStoreOpen)
	require.Equal(t, StateCrashed, r.Status())
	require.Zero(t, r.SessionID())
}

func TestRecorder_ParentContextCanceled(t *testing.T) {
	r, err := New(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	cancel()

	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not exit after context cancellation")
	}
	require.Eventually(t, func() bool { return r.Status() == StateStopped }, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, r.Stop(), ErrNotRunning)
}

func TestRecorder_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := &recordingHandler{}

	r, err := New(testConfig(t), WithMetrics(reg, ""), WithEventHandler(h))
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	require.Eventually(t, func() bool { return h.heartbeatCount() >= 1 }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop())

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	require.True(t, names["flightrec_recorder_heartbeats_total"])
	require.True(t, names["flightrec_recorder_session_id"])
	require.True(t, names["flightrec_lifecycle_state"])
}

func TestReconstruct_MissingStore(t *testing.T) {
	_, err := Reconstruct(context.Background(), filepath.Join(t.TempDir(), "none.db"), ClosesFirst)
	require.ErrorIs(t, err, ErrStoreOpen)
}
