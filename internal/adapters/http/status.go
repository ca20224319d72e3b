// Package http serves the recorder's status endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/flightrec/internal/ports"
)

const shutdownTimeout = 5 * time.Second

// Health is the body of the /healthz response.
type Health struct {
	State     string  `json:"state"`
	Healthy   bool    `json:"healthy"`
	SessionID int64   `json:"session_id"`
	Duration  float64 `json:"duration"`
	LastTS    float64 `json:"last_ts"`
}

// HealthFunc reports the current recorder health.
type HealthFunc func() Health

// StatusServer exposes /metrics and /healthz.
type StatusServer struct {
	addr   string
	router *mux.Router
	logger ports.Logger

	server   *http.Server
	listener net.Listener
}

// NewStatusServer creates a status server listening on addr.
// gatherer defaults to prometheus.DefaultGatherer.
func NewStatusServer(addr string, gatherer prometheus.Gatherer, health HealthFunc, logger ports.Logger) *StatusServer {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &StatusServer{addr: addr, logger: logger}
	s.router = NewRouter(gatherer, health)
	return s
}

// NewRouter builds the status routes.
func NewRouter(gatherer prometheus.Gatherer, health HealthFunc) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	r.HandleFunc("/healthz", healthHandler(health)).Methods("GET")
	return r
}

func healthHandler(health HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		h := health()
		w.Header().Set("Content-Type", "application/json")
		if !h.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(h)
	}
}

// Handler returns the router serving the status routes.
func (s *StatusServer) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background.
func (s *StatusServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("status server listening", ports.String("addr", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", ports.Err(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *StatusServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops the server, waiting up to five seconds for open requests.
func (s *StatusServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
