package flightrec

import "github.com/bft-labs/flightrec/internal/app"

// StateChangeEvent reports a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SessionOpenEvent reports the creation of the session record.
type SessionOpenEvent struct {
	ID int64
	TS float64
}

// HeartbeatEvent reports a committed heartbeat.
type HeartbeatEvent struct {
	ID       int64
	Duration float64
	TS       float64
	Final    bool
}

// HeartbeatErrorEvent reports a heartbeat that could not be written.
type HeartbeatErrorEvent struct {
	ID    int64
	Error error
	Final bool
}

// EventHandler receives recorder notifications. Methods are called
// synchronously from the heartbeat goroutine and should return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnSessionOpen(SessionOpenEvent)
	OnHeartbeat(HeartbeatEvent)
	OnHeartbeatError(HeartbeatErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnSessionOpen(SessionOpenEvent)       {}
func (BaseEventHandler) OnHeartbeat(HeartbeatEvent)           {}
func (BaseEventHandler) OnHeartbeatError(HeartbeatErrorEvent) {}

// emitter fans internal notifications out to the user handler and the
// metrics collector.
type emitter struct {
	handler EventHandler
	sinks   []sink
}

// sink is implemented by metrics.PrometheusCollector.
type sink interface {
	app.EventEmitter
	app.HeartbeatEmitter
}

func (e *emitter) OnStateChange(previous, current app.State, reason string) {
	for _, s := range e.sinks {
		s.OnStateChange(previous, current, reason)
	}
	if e.handler != nil {
		e.handler.OnStateChange(StateChangeEvent{
			Previous: convertState(previous),
			Current:  convertState(current),
			Reason:   reason,
		})
	}
}

func (e *emitter) OnSessionOpen(id int64, ts float64) {
	for _, s := range e.sinks {
		s.OnSessionOpen(id, ts)
	}
	if e.handler != nil {
		e.handler.OnSessionOpen(SessionOpenEvent{ID: id, TS: ts})
	}
}

func (e *emitter) OnHeartbeat(id int64, duration, ts float64, final bool) {
	for _, s := range e.sinks {
		s.OnHeartbeat(id, duration, ts, final)
	}
	if e.handler != nil {
		e.handler.OnHeartbeat(HeartbeatEvent{ID: id, Duration: duration, TS: ts, Final: final})
	}
}

func (e *emitter) OnHeartbeatError(id int64, err error, final bool) {
	for _, s := range e.sinks {
		s.OnHeartbeatError(id, err, final)
	}
	if e.handler != nil {
		e.handler.OnHeartbeatError(HeartbeatErrorEvent{ID: id, Error: err, Final: final})
	}
}
