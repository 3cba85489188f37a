// Copyright 2025 Certen Protocol

package service

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the loop's /healthz status and a Prometheus /metrics
// endpoint on one small HTTP server, mirroring main.go's HealthStatus
// JSON-dump pattern rather than introducing a web framework for two
// routes.
type Server struct {
	loop *Loop
	mux  *http.ServeMux
}

// NewServer builds a Server serving loop's status and reg's collectors.
func NewServer(loop *Loop, reg *prometheus.Registry) *Server {
	s := &Server{loop: loop, mux: http.NewServeMux()}
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := s.loop.Status()

	w.Header().Set("Content-Type", "application/json")
	if status.State == LoopStateDegraded {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}
