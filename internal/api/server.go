package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/caterdispatch/tally/internal/domain"
	"github.com/caterdispatch/tally/internal/pricing"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, loader *pricing.Loader, snapshots *pricing.SnapshotStore, calculator *pricing.Calculator, conditions *pricing.Conditions, version string) *Server {
	handler := NewHandler(repo, cache, loader, snapshots, calculator, conditions, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Pricing calculation
	router.Post("/calculate", handler.Calculate)

	// Calculation audit records
	router.Get("/calculations", handler.ListCalculations)
	router.Get("/calculations/{id}", handler.GetCalculation)

	// Template management
	router.Get("/templates", handler.ListTemplates)
	router.Get("/templates/{id}", handler.GetTemplate)
	router.Post("/templates", handler.CreateTemplate)
	router.Delete("/templates/{id}", handler.DeleteTemplate)
	router.Post("/templates/reload", handler.ReloadTemplates)

	// Client configuration management
	router.Get("/clients", handler.ListClientConfigs)
	router.Get("/clients/{id}", handler.GetClientConfig)
	router.Post("/clients", handler.CreateClientConfig)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
