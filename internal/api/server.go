package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hermes/internal/api/health"
	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	Port         int
	ServiceName  string
	Version      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps the HTTP server with lifecycle management.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures the HTTP server with all routes.
func NewServer(cfg ServerConfig, handlers *Handlers, healthHandler *health.Handler, log *logger.Logger) *Server {
	mux := http.NewServeMux()

	// Health check endpoints (Kubernetes probes)
	mux.HandleFunc("GET /health", healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", healthHandler.HandleReadiness)
	mux.HandleFunc("GET /live", healthHandler.HandleLiveness)

	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", metrics.Handler())

	// Agent endpoints
	mux.HandleFunc("POST /api/v1/query", instrument("/api/v1/query", handlers.HandleQuery))
	mux.HandleFunc("POST /api/v1/portfolio/analyze", instrument("/api/v1/portfolio/analyze", handlers.HandleAnalyzePortfolio))
	mux.HandleFunc("POST /api/v1/email/send-update", instrument("/api/v1/email/send-update", handlers.HandleEmailUpdate))

	// Direct market data endpoints
	mux.HandleFunc("GET /api/v1/stocks/top-gainers", instrument("/api/v1/stocks/top-gainers", handlers.HandleTopGainers))
	mux.HandleFunc("GET /api/v1/stocks/top-losers", instrument("/api/v1/stocks/top-losers", handlers.HandleTopLosers))
	mux.HandleFunc("POST /api/v1/stocks/current-prices", instrument("/api/v1/stocks/current-prices", handlers.HandleCurrentPrices))
	mux.HandleFunc("GET /api/v1/stocks/{symbol}", instrument("/api/v1/stocks/{symbol}", handlers.HandleStock))

	// Root endpoint (service info)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":"%s","version":"%s","status":"running"}`,
			cfg.ServiceName, cfg.Version)
	})

	port := 8080
	if cfg.Port > 0 {
		port = cfg.Port
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Agent queries can run many reasoning rounds.
		cfg.WriteTimeout = 120 * time.Second
	}

	log.Infof("HTTP server configured on port %d", port)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		log:        log,
	}
}

// Start begins listening for HTTP requests. Blocks until the server is
// stopped or encounters an error.
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server, waiting for active
// connections to complete within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("HTTP server stopped")
	return nil
}
