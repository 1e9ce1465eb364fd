package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sanonone/basketdb/pkg/engine"
)

// Server holds the HTTP interface and the underlying Analytics Engine.
type Server struct {
	Engine *engine.Engine

	httpServer *http.Server

	taskManager     *TaskManager
	ingestorConfig  *Config
	ingestorService *IngestorService
	authToken       string
}

// NewServer initializes the HTTP server using an existing Engine.
// Note: The Engine must be initialized (Open) before passing it here.
func NewServer(eng *engine.Engine, httpAddr string, ingestorsConfigPath string, authToken string) (*Server, error) {

	// Load Ingestor Configuration
	ingConfig, err := LoadIngestorsConfig(ingestorsConfigPath)
	if err != nil {
		return nil, err
	}
	if len(ingConfig.Ingestors) > 0 {
		log.Printf("Loaded %d Ingestor configurations", len(ingConfig.Ingestors))
	}

	s := &Server{
		Engine:         eng,
		taskManager:    NewTaskManager(),
		ingestorConfig: ingConfig,
		authToken:      authToken,
	}

	// Initialize Ingestor Service
	ingService, err := NewIngestorService(s)
	if err != nil {
		log.Printf("WARNING: Ingestor service failed to start: %v", err)
	}
	s.ingestorService = ingService

	// Setup HTTP
	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)

	// Chain middlewares: Recovery -> Logging -> Auth -> Mux
	// Order matters! Recovery must be outer-most to catch everything.

	var handler http.Handler = mux

	// 1. Auth (Inner)
	handler = s.authMiddleware(handler)

	// 2. Logging (Middle) - Logs duration and status
	handler = s.LoggingMiddleware(handler)

	// 3. Recovery (Outer) - Catches panics
	handler = s.RecoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", promhttp.Handler())
	rootMux.Handle("/", handler)
	s.httpServer = &http.Server{
		Addr:    httpAddr,
		Handler: rootMux,
	}

	return s, nil
}

// Handler returns the fully assembled HTTP handler, middlewares included,
// for mounting the API inside another server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server.
// It does NOT load the journal (the Engine already did that in Open).
func (s *Server) Run() error {
	// Start Ingestors if present
	if s.ingestorService != nil {
		s.ingestorService.Start()
	}

	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and the Ingestor service.
// It does NOT close the Engine (main.go handles that for proper lifecycle management).
func (s *Server) Shutdown() {
	log.Println("Starting graceful shutdown of HTTP Server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if s.ingestorService != nil {
		s.ingestorService.Stop()
	}
}
