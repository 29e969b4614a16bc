// Package server provides the management listener: Prometheus metrics and
// health, readiness and liveness probes for the rewrite service.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthStatus is the /health response body
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker reports whether a dependency is usable. A nil error is healthy.
type HealthChecker func(ctx context.Context) error

// checkTimeout bounds each dependency check
const checkTimeout = 2 * time.Second

// Server serves the management endpoints
type Server struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker

	httpServer *http.Server
	mux        *http.ServeMux
	started    time.Time
	version    string
	logger     zerolog.Logger
}

// Config holds management server configuration
type Config struct {
	Addr        string
	MetricsPath string
	HealthPath  string
	ReadyPath   string
	LivePath    string
	Version     string
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:        ":9090",
		MetricsPath: "/metrics",
		HealthPath:  "/health",
		ReadyPath:   "/ready",
		LivePath:    "/live",
		Version:     "dev",
	}
}

// New creates a management server. A nil cfg uses DefaultConfig.
func New(cfg *Config, logger zerolog.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		checkers: make(map[string]HealthChecker),
		mux:      http.NewServeMux(),
		started:  time.Now(),
		version:  cfg.Version,
		logger:   logger.With().Str("component", "management").Logger(),
	}

	s.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	s.mux.HandleFunc("GET "+cfg.HealthPath, s.health)
	s.mux.HandleFunc("GET "+cfg.ReadyPath, s.ready)
	s.mux.HandleFunc("GET "+cfg.LivePath, s.live)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	return s
}

// RegisterHealthCheck adds or replaces the checker called name
func (s *Server) RegisterHealthCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
}

// check runs every checker in parallel, each under its own deadline.
// It returns "ok" or the error text per checker.
func (s *Server) check(ctx context.Context) (results map[string]string, healthy bool) {
	s.mu.RLock()
	checkers := make(map[string]HealthChecker, len(s.checkers))
	for name, c := range s.checkers {
		checkers[name] = c
	}
	s.mu.RUnlock()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out = make(map[string]string, len(checkers))
	)
	healthy = true
	for name, checker := range checkers {
		wg.Go(func() {
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			err := checker(checkCtx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out[name] = err.Error()
				healthy = false
				s.logger.Warn().Err(err).Str("check", name).Msg("health check failed")
				return
			}
			out[name] = "ok"
		})
	}
	wg.Wait()
	return out, healthy
}

// Start listens on the configured address
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on l
func (s *Server) Serve(l net.Listener) error {
	return s.httpServer.Serve(l)
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	checks, healthy := s.check(r.Context())

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Checks:    checks,
	}
	code := http.StatusOK
	if !healthy {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// ready names every failing check, in order
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	checks, healthy := s.check(r.Context())
	if healthy {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}

	var failed []string
	for name, result := range checks {
		if result != "ok" {
			failed = append(failed, name)
		}
	}
	slices.Sort(failed)

	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready: " + strings.Join(failed, ", ")))
}

func (s *Server) live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}

// Handler returns the management mux
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
