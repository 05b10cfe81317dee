package http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/homeinventory/inventory-sync/internal/core/domain"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driving"
	_ "github.com/homeinventory/inventory-sync/internal/docs"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	// Services
	items        driving.EntityRepository[domain.Item]
	coordinator  driving.SyncCoordinator
	connectivity driven.ReachabilityStatus // optional
	cache        driven.Cache              // optional

	// Infrastructure
	tokens TokenVerifier // nil disables bearer auth
	stores map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	Audience       string   // Expected audience of bearer tokens
	AllowedOrigins []string // CORS; empty disables the headers
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:     "0.0.0.0",
		Port:     8080,
		Version:  "dev",
		Audience: "inventory-sync-api",
	}
}

// NewServer creates a new HTTP server.
// connectivity, cache and tokens may be nil. stores maps a component name
// ("redis", "postgres") to its health check for /ready.
func NewServer(
	cfg Config,
	items driving.EntityRepository[domain.Item],
	coordinator driving.SyncCoordinator,
	connectivity driven.ReachabilityStatus,
	cache driven.Cache,
	tokens TokenVerifier,
	stores map[string]Pinger,
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:       http.NewServeMux(),
		version:      cfg.Version,
		logger:       logger,
		items:        items,
		coordinator:  coordinator,
		connectivity: connectivity,
		cache:        cache,
		tokens:       tokens,
		stores:       stores,
	}

	s.setupRoutes(cfg.Audience)

	var handler http.Handler = s.router
	handler = NewLoggingMiddleware(logger).Handler(handler)
	if len(cfg.AllowedOrigins) > 0 {
		handler = NewCORSMiddleware(cfg.AllowedOrigins).Handler(handler)
	}
	handler = NewRecoveryMiddleware(logger).Handler(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(audience string) {
	authMiddleware := NewAuthMiddleware(s.tokens, audience)
	protected := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Item endpoints
	s.router.Handle("GET /api/v1/items", protected(s.handleListItems))
	s.router.Handle("POST /api/v1/items", protected(s.handleCreateItem))
	s.router.Handle("GET /api/v1/items/{id}", protected(s.handleGetItem))
	s.router.Handle("PUT /api/v1/items/{id}", protected(s.handlePutItem))
	s.router.Handle("DELETE /api/v1/items/{id}", protected(s.handleDeleteItem))

	// Sync endpoints
	s.router.Handle("POST /api/v1/sync", protected(s.handleSyncNow))
	s.router.Handle("GET /api/v1/sync/status", protected(s.handleSyncStatus))
	s.router.Handle("GET /api/v1/sync/dead-letters", protected(s.handleDeadLetters))
	s.router.Handle("DELETE /api/v1/sync/queue", protected(s.handleClearQueue))
	s.router.Handle("GET /api/v1/connectivity", protected(s.handleConnectivity))

	// Cache endpoints
	s.router.Handle("GET /api/v1/cache", protected(s.handleCacheSize))
	s.router.Handle("DELETE /api/v1/cache", protected(s.handleClearCache))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
