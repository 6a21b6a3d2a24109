package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	syncService driving.SyncService
	authority   driven.TokenAuthority // nil disables API auth

	// Infrastructure checked by /ready
	checks map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server.
// authority may be nil, in which case the API is unauthenticated.
// checks are pinged by /ready; nil entries are ignored.
func NewServer(
	cfg Config,
	syncService driving.SyncService,
	authority driven.TokenAuthority,
	checks map[string]Pinger,
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:      http.NewServeMux(),
		version:     cfg.Version,
		logger:      logger,
		syncService: syncService,
		authority:   authority,
		checks:      make(map[string]Pinger, len(checks)),
	}
	for name, p := range checks {
		if p != nil {
			s.checks[name] = p
		}
	}

	s.setupRoutes()

	var handler http.Handler = s.router
	if len(cfg.AllowedOrigins) > 0 {
		handler = NewCORSMiddleware(cfg.AllowedOrigins).Handler(handler)
	}
	handler = NewLoggingMiddleware(logger).Handler(handler)
	handler = NewRecoveryMiddleware(logger).Handler(handler)
	handler = RequestIDMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authority, s.logger)
	protected := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Sync endpoints
	s.router.Handle("POST /api/v1/sync", protected(s.handleStartSync))
	s.router.Handle("GET /api/v1/sync/status", protected(s.handleSyncStatus))
	s.router.Handle("POST /api/v1/sync/cancel", protected(s.handleCancelSync))
	s.router.Handle("GET /api/v1/sync/runs", protected(s.handleListRuns))
	s.router.Handle("GET /api/v1/sync/runs/{id}", protected(s.handleGetRun))

	// Source connectivity
	s.router.Handle("POST /api/v1/connection/test", protected(s.handleTestConnection))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
