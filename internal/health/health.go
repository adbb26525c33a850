// Package health provides a simple HTTP health check endpoint.
//
// Docker and Kubernetes use this endpoint to monitor the daemon's liveness.
// When the daemon is running and ready to accept requests, /healthz returns
// 200 OK together with basic invocation counters.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port      int
	ready     atomic.Bool
	startedAt time.Time
	server    *http.Server

	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// New creates a new health check server.
func New(port int) *Server {
	return &Server{port: port, startedAt: time.Now()}
}

// SetReady marks the daemon as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// RecordInvocation counts one completed interpretation.
func (s *Server) RecordInvocation(success bool) {
	s.processed.Add(1)
	if success {
		s.succeeded.Add(1)
	} else {
		s.failed.Add(1)
	}
}

// status is the /healthz response body.
type status struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Processed     int64  `json:"processed"`
	Succeeded     int64  `json:"succeeded"`
	Failed        int64  `json:"failed"`
}

func (s *Server) currentStatus() status {
	st := "ok"
	if !s.ready.Load() {
		st = "not_ready"
	}
	return status{
		Status:        st,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Processed:     s.processed.Load(),
		Succeeded:     s.succeeded.Load(),
		Failed:        s.failed.Load(),
	}
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		st := s.currentStatus()
		if st.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(st)
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
