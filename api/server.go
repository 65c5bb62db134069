package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/linewatch/bus"
	"github.com/c360/linewatch/errors"
	"github.com/c360/linewatch/metric"
	"github.com/c360/linewatch/state"
)

// HealthFunc reports per-component health, keyed by component name. The
// runtime supplies it so the server does not need to know the pipeline shape.
type HealthFunc func() map[string]bool

// Deps holds runtime dependencies for the API server.
type Deps struct {
	Addr     string
	Store    *state.Store
	Bus      *bus.Bus
	Registry *metric.MetricsRegistry
	Health   HealthFunc
	Logger   *slog.Logger
}

// Server is the single HTTP listener for the API, metrics and the websocket
// event stream.
type Server struct {
	addr    string
	store   *state.Store
	bus     *bus.Bus
	metrics *metric.MetricsRegistry
	health  HealthFunc
	logger  *slog.Logger

	hub  *wsHub
	srv  *http.Server
	run  atomic.Bool
	stop func()
}

// NewServer creates the API server.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api-server")

	s := &Server{
		addr:    deps.Addr,
		store:   deps.Store,
		bus:     deps.Bus,
		metrics: deps.Registry,
		health:  deps.Health,
		logger:  logger,
		hub:     newWSHub(logger),
	}
	return s
}

// Initialize validates wiring.
func (s *Server) Initialize() error {
	if s.addr == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "api-server", "Initialize", "addr check")
	}
	if s.store == nil {
		return errors.WrapInvalid(fmt.Errorf("nil store"), "api-server", "Initialize", "store check")
	}
	return nil
}

// Start begins serving. The listener failing later (port collision at bind
// time aside) is logged, not fatal to the pipeline.
func (s *Server) Start(ctx context.Context) error {
	if s.run.Load() {
		return nil
	}
	s.run.Store(true)

	if s.bus != nil {
		s.stop = s.hub.attach(s.bus)
	}

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("api server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server failed", "error", err)
		}
	}()
	return nil
}

// Stop detaches from the bus, drops websocket clients and shuts the listener
// down gracefully.
func (s *Server) Stop(timeout time.Duration) error {
	if !s.run.Load() {
		return nil
	}
	s.run.Store(false)

	if s.stop != nil {
		s.stop()
	}
	s.hub.close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "api-server", "Stop", "graceful shutdown")
	}
	return nil
}

// Healthy reports whether the server is running.
func (s *Server) Healthy() bool {
	return s.run.Load()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(
			s.metrics.PrometheusRegistry(),
			promhttp.HandlerOpts{EnableOpenMetrics: true},
		))
	}
	mux.HandleFunc("GET /api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/v1/alarms", s.handleAlarms)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("POST /api/v1/events/clear", s.handleClearEvents)
	mux.HandleFunc("GET /api/v1/events/ws", s.hub.handleUpgrade)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	components := map[string]bool{}
	if s.health != nil {
		components = s.health()
	}

	healthy := true
	for _, ok := range components {
		if !ok {
			healthy = false
			break
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"components": components,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleAlarms(w http.ResponseWriter, r *http.Request) {
	var states any
	if r.URL.Query().Get("active") == "true" {
		states = s.store.ActiveStates()
	} else {
		states = s.store.States()
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Events())
}

func (s *Server) handleClearEvents(w http.ResponseWriter, _ *http.Request) {
	s.store.ClearHistory()
	s.logger.Info("event history cleared via api")
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Too late for an error payload; the status line is already gone.
		slog.Default().Warn("response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error":  msg,
		"status": status,
	})
}
