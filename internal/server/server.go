// ABOUTME: HTTP server wiring the transport routes to the dispatch engine.
// ABOUTME: Owns the listener lifecycle with graceful shutdown on context cancel.

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/toolgate/internal/dispatch"
	"github.com/2389/toolgate/internal/registry"
)

// ExecutionLister provides read access to the execution audit log.
type ExecutionLister interface {
	ListExecutions(ctx context.Context, limit int) ([]dispatch.Execution, error)
}

// Registrar is implemented by components that mount their own routes,
// such as the MCP endpoint.
type Registrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Config contains configuration options for the Server.
type Config struct {
	Registry   *registry.Registry
	Engine     *dispatch.Engine
	Logger     *slog.Logger
	Executions ExecutionLister // optional; nil disables GET /executions
	Extra      []Registrar     // optional; additional route providers
}

// Server exposes the registry and dispatch engine over HTTP.
type Server struct {
	registry   *registry.Registry
	engine     *dispatch.Engine
	logger     *slog.Logger
	executions ExecutionLister
	extra      []Registrar
}

// New creates a Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry:   cfg.Registry,
		engine:     cfg.Engine,
		logger:     logger.With("component", "server"),
		executions: cfg.Executions,
		extra:      cfg.Extra,
	}, nil
}

// RegisterRoutes registers all transport endpoints on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleStatusPage)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /services", s.handleListServices)
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.HandleFunc("GET /executions", s.handleListExecutions)
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("POST /{service}/{tool}", s.handleExecuteService)
}

// Handler returns the complete HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	for _, r := range s.extra {
		r.RegisterRoutes(mux)
	}
	return mux
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
