package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// freshFor is how long a cached check result answers HTTP requests.
const freshFor = 10 * time.Second

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	monitor *Monitor
	server  *http.Server
}

// NewServer creates a new health server.
func NewServer(monitor *Monitor, port int) *Server {
	s := &Server{
		monitor: monitor,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	s.server.Handler = s.Handler()
	return s
}

// Handler returns the routes served by the health server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// current returns a recent result, running a check if the cached one is old.
func (s *Server) current(ctx context.Context) ConnectionHealth {
	last := s.monitor.Last()
	if last.LastCheck != nil && time.Since(*last.LastCheck) < freshFor {
		return last
	}
	h, err := s.monitor.CheckHealth(ctx)
	if errors.Is(err, ErrCheckInProgress) {
		return last
	}
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.current(r.Context())

	response := map[string]string{"status": string(h.Overall)}
	w.Header().Set("Content-Type", "application/json")

	if h.Overall == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_ = json.NewEncoder(w).Encode(response)
}

type detailedResponse struct {
	ConnectionHealth
	Checking   bool `json:"checking"`
	RetryCount int  `json:"retry_count"`
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	h := s.current(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(detailedResponse{
		ConnectionHealth: h,
		Checking:         s.monitor.IsChecking(),
		RetryCount:       s.monitor.RetryCount(),
	})
}
