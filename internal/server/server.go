// Package server exposes the engagement engine over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/questlab/engagehub/internal/server/handler"
	"github.com/questlab/engagehub/internal/server/middleware"
	"github.com/questlab/engagehub/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimiter is optional; when set, per-client request limiting is
	// applied in front of the API.
	RateLimiter middleware.Limiter
	RateLimit   int
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health        *handler.HealthHandler
	Notifications *handler.NotificationHandler
	State         *handler.StateHandler
	Users         *handler.UserHandler
	Battles       *handler.BattleHandler
	Flags         *handler.FlagHandler
	Audit         *handler.AuditHandler
}

// Server is the headless HTTP + WebSocket API server for the engagement
// engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, optional rate limiting) and
// attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Notification feed endpoints.
	mux.HandleFunc("GET /api/notifications", handlers.Notifications.ListNotifications)
	mux.HandleFunc("POST /api/notifications", handlers.Notifications.CreateNotification)
	mux.HandleFunc("DELETE /api/notifications", handlers.Notifications.ClearNotifications)
	mux.HandleFunc("PUT /api/notifications/read-all", handlers.Notifications.MarkAllRead)
	mux.HandleFunc("PUT /api/notifications/{id}/read", handlers.Notifications.MarkRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", handlers.Notifications.DeleteNotification)

	// Collection submission endpoint.
	mux.HandleFunc("PUT /api/state/{collection}", handlers.State.SubmitCollection)

	// User ledger endpoints.
	mux.HandleFunc("GET /api/users/{id}", handlers.Users.GetUser)
	mux.HandleFunc("GET /api/users/{id}/balance", handlers.Users.GetBalance)
	mux.HandleFunc("POST /api/users/{id}/balance", handlers.Users.UpdateBalance)
	mux.HandleFunc("POST /api/users/{id}/experience", handlers.Users.UpdateExperience)

	// Battle endpoints.
	mux.HandleFunc("GET /api/battles", handlers.Battles.ListState)
	mux.HandleFunc("POST /api/battles/invitations", handlers.Battles.CreateInvitation)
	mux.HandleFunc("POST /api/battles/invitations/{id}/accept", handlers.Battles.AcceptInvitation)
	mux.HandleFunc("POST /api/battles/invitations/{id}/decline", handlers.Battles.DeclineInvitation)
	mux.HandleFunc("POST /api/battles/{id}/complete", handlers.Battles.Complete)
	mux.HandleFunc("POST /api/battles/{id}/cancel", handlers.Battles.Cancel)

	// Persisted flag endpoints.
	mux.HandleFunc("GET /api/flags/{name}", handlers.Flags.GetFlag)
	mux.HandleFunc("PUT /api/flags/{name}", handlers.Flags.SetFlag)

	// Audit trail endpoint.
	mux.HandleFunc("GET /api/audit", handlers.Audit.ListEntries)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if cfg.RateLimiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit, cfg.RateWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
