// Package server exposes the valuation, ledger and price APIs over HTTP and
// relays live updates over WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/alanyoungcy/satfolio/internal/server/handler"
	"github.com/alanyoungcy/satfolio/internal/server/middleware"
	"github.com/alanyoungcy/satfolio/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per RateWindow per client IP; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Status    *handler.StatusHandler
	Valuation *handler.ValuationHandler
	Ledger    *handler.LedgerHandler
	Prices    *handler.PriceHandler
	Account   *handler.AccountHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and wraps them in CORS, logging, rate
// limiting and auth, outermost first. limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewHandler(cfg, handlers, wsHub, limiter, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// NewHandler builds the routed and middleware-wrapped handler.
func NewHandler(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Valuation.
	mux.HandleFunc("GET /api/users/{userID}/snapshots", handlers.Valuation.GetSnapshots)
	mux.HandleFunc("GET /api/users/{userID}/summary", handlers.Valuation.GetSummary)

	// Ledger.
	mux.HandleFunc("GET /api/users/{userID}/events", handlers.Ledger.ListEvents)
	mux.HandleFunc("POST /api/users/{userID}/events", handlers.Ledger.CreateEvent)
	mux.HandleFunc("PUT /api/users/{userID}/events/{id}", handlers.Ledger.UpdateEvent)
	mux.HandleFunc("DELETE /api/users/{userID}/events/{id}", handlers.Ledger.DeleteEvent)
	mux.HandleFunc("GET /api/ledger/changes", handlers.Ledger.ListChanges)

	// Account.
	if handlers.Account != nil {
		mux.HandleFunc("DELETE /api/users/{userID}", handlers.Account.DeleteAccount)
	}

	// Prices.
	mux.HandleFunc("GET /api/prices/spot", handlers.Prices.GetSpot)
	mux.HandleFunc("GET /api/prices/closes", handlers.Prices.ListCloses)
	mux.HandleFunc("PUT /api/prices/closes/{month}", handlers.Prices.RecordClose)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/api/health")(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
