// Package metrics exposes recorder heartbeats and lifecycle state as
// Prometheus metrics.
package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/flightrec/internal/app"
)

// Heartbeat result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// PrometheusCollector records recorder activity into Prometheus metrics.
// It implements app.HeartbeatEmitter and app.EventEmitter.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	heartbeats    *prometheus.CounterVec
	sessionID     prometheus.Gauge
	sessionStart  prometheus.Gauge
	duration      prometheus.Gauge
	lastHeartbeat prometheus.Gauge
	state         *prometheus.GaugeVec
	transitions   *prometheus.CounterVec
}

var (
	_ app.HeartbeatEmitter = (*PrometheusCollector)(nil)
	_ app.EventEmitter     = (*PrometheusCollector)(nil)
)

// NewPrometheus creates a collector registering on reg
// (prometheus.DefaultRegisterer if nil) under namespace ("flightrec" if empty).
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "flightrec"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.heartbeats = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "recorder",
			Name:      "heartbeats_total",
			Help:      "Heartbeat writes by result (success,failure) and whether it was the final one.",
		}, []string{"result", "final"})

		p.sessionID = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "recorder",
			Name:      "session_id",
			Help:      "Id of the flight record owned by this process.",
		})
		p.sessionStart = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "recorder",
			Name:      "session_start_timestamp_seconds",
			Help:      "Wall-clock time the session record was created.",
		})
		p.duration = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "recorder",
			Name:      "session_duration_seconds",
			Help:      "Last committed alive duration of the session.",
		})
		p.lastHeartbeat = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "recorder",
			Name:      "last_heartbeat_timestamp_seconds",
			Help:      "Wall-clock time of the last committed heartbeat.",
		})

		p.state = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "lifecycle",
			Name:      "state",
			Help:      "Current lifecycle state (1 for the active state, 0 otherwise).",
		}, []string{"state"})
		p.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Lifecycle state transitions.",
		}, []string{"from", "to"})

		p.reg.MustRegister(p.heartbeats)
		p.reg.MustRegister(p.sessionID)
		p.reg.MustRegister(p.sessionStart)
		p.reg.MustRegister(p.duration)
		p.reg.MustRegister(p.lastHeartbeat)
		p.reg.MustRegister(p.state)
		p.reg.MustRegister(p.transitions)
	})
}

// OnSessionOpen records the new session.
func (p *PrometheusCollector) OnSessionOpen(id int64, ts float64) {
	p.ensureRegistered()
	p.sessionID.Set(float64(id))
	p.sessionStart.Set(ts)
	p.duration.Set(0)
	p.lastHeartbeat.Set(ts)
}

// OnHeartbeat records a committed heartbeat.
func (p *PrometheusCollector) OnHeartbeat(_ int64, duration, ts float64, final bool) {
	p.ensureRegistered()
	p.heartbeats.WithLabelValues(ResultSuccess, strconv.FormatBool(final)).Inc()
	p.duration.Set(duration)
	p.lastHeartbeat.Set(ts)
}

// OnHeartbeatError records a failed heartbeat.
func (p *PrometheusCollector) OnHeartbeatError(_ int64, _ error, final bool) {
	p.ensureRegistered()
	p.heartbeats.WithLabelValues(ResultFailure, strconv.FormatBool(final)).Inc()
}

// OnStateChange records a lifecycle transition.
func (p *PrometheusCollector) OnStateChange(previous, current app.State, _ string) {
	p.ensureRegistered()
	p.transitions.WithLabelValues(stateLabel(previous), stateLabel(current)).Inc()
	for _, s := range []app.State{app.StateStopped, app.StateStarting, app.StateRunning, app.StateStopping, app.StateCrashed} {
		v := 0.0
		if s == current {
			v = 1
		}
		p.state.WithLabelValues(stateLabel(s)).Set(v)
	}
}

func stateLabel(s app.State) string {
	return strings.ToLower(s.String())
}
