// Package http implements the console's REST API: sessions, the users and
// influencers pages, the dashboards, health checks and metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/travy/admin-hub/internal/application/command"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/infrastructure/metrics"
	"github.com/travy/admin-hub/internal/interface/http/handlers"
	"github.com/travy/admin-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// MaxBodyBytes - maximum size of request bodies.
	MaxBodyBytes int64

	// EnableCORS - enable CORS headers.
	EnableCORS bool

	// AllowedOrigins - allowed origins for CORS.
	AllowedOrigins []string

	// EnableMetrics - expose /metrics.
	EnableMetrics bool

	// EnableCompression - gzip responses.
	EnableCompression bool

	// RateLimitPerSecond - requests per second per client IP (0 = disabled).
	RateLimitPerSecond float64

	// RateLimitBurst - burst allowance of the rate limiter.
	RateLimitBurst int

	// TrustProxy - take the client IP from X-Forwarded-For.
	TrustProxy bool

	// SecureCookies - mark the session cookie Secure.
	SecureCookies bool

	// DisableInfluencerDelete - do not register the delete route.
	DisableInfluencerDelete bool

	// DisableInfluencerDashboard - do not register the influencer dashboard.
	DisableInfluencerDashboard bool

	// Version is reported by the health endpoint.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       30 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20, // 1 MB
		MaxBodyBytes:       64 << 10,
		EnableCORS:         false,
		EnableMetrics:      true,
		EnableCompression:  true,
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
		Version:            "dev",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Sessions owns session state and authorizes protected routes.
	Sessions *session.Owner

	// Command Handlers (CQRS Write Side)
	Login  *command.LoginHandler
	Logout *command.LogoutHandler

	// Workspaces holds the page owners of every signed-in session.
	Workspaces *Workspaces

	// Metrics is optional.
	Metrics *metrics.Metrics

	// HealthChecker is optional.
	HealthChecker handlers.HealthChecker

	// Now is the clock; time.Now by default.
	Now func() time.Time

	Logger *zap.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *zap.Logger

	rateLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.HealthChecker == nil {
		deps.HealthChecker = handlers.NewNoopHealthChecker()
	}

	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger.With(logger.Component("http")),
	}

	if config.RateLimitPerSecond > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerSecond, config.RateLimitBurst)
	}

	s.setupRoutes()
	s.handler = s.buildMiddlewareChain(s.router)

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

const apiPrefix = "/api/v1"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)

	if s.config.EnableMetrics && s.deps.Metrics != nil {
		s.router.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Auth
	// ─────────────────────────────────────────────────────────────────────────
	s.handle("POST /auth/login", s.handleLogin)
	s.handle("POST /auth/logout", s.handleLogout)
	s.handle("GET /auth/me", s.requireRole(session.RoleNone, s.handleMe))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin
	// ─────────────────────────────────────────────────────────────────────────
	admin := func(h guardedHandler) http.HandlerFunc { return s.requireRole(session.RoleAdmin, h) }

	s.handle("GET /admin/dashboard", admin(s.handleAdminDashboard))

	s.handle("GET /admin/users", admin(s.handleUsersView))
	s.handle("POST /admin/users/view/refresh", admin(s.handleUsersRefresh))
	s.handle("PATCH /admin/users/view/query", admin(s.handleUsersQuery))
	s.handle("DELETE /admin/users/view/query", admin(s.handleUsersClearFilters))
	s.handle("PUT /admin/users/view/page", admin(s.handleUsersPage))
	s.handle("DELETE /admin/users/view/banner", admin(s.handleUsersDismiss))
	s.handle("PUT /admin/users/{id}/block", admin(s.handleUserBlock))
	s.handle("PUT /admin/users/{id}/unblock", admin(s.handleUserUnblock))
	s.handle("POST /admin/users/{id}/toggle", admin(s.handleUserToggle))

	s.handle("GET /admin/influencers", admin(s.handleInfluencersView))
	s.handle("POST /admin/influencers/view/refresh", admin(s.handleInfluencersRefresh))
	s.handle("PATCH /admin/influencers/view/query", admin(s.handleInfluencersQuery))
	s.handle("DELETE /admin/influencers/view/query", admin(s.handleInfluencersClearFilters))
	s.handle("PUT /admin/influencers/view/page", admin(s.handleInfluencersPage))
	s.handle("DELETE /admin/influencers/view/banner", admin(s.handleInfluencersDismiss))
	s.handle("GET /admin/influencers/{id}/link", admin(s.handleInfluencerLink))
	if !s.config.DisableInfluencerDelete {
		s.handle("DELETE /admin/influencers/{id}", admin(s.handleInfluencerDelete))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Influencer
	// ─────────────────────────────────────────────────────────────────────────
	if !s.config.DisableInfluencerDashboard {
		s.handle("GET /influencer/dashboard", s.requireRole(session.RoleInfluencer, s.handleInfluencerDashboard))
	}
}

// handle registers an API route under /api/v1 with the body size limit.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	limit := s.config.MaxBodyBytes
	s.router.HandleFunc(method+" "+apiPrefix+path, func(w http.ResponseWriter, r *http.Request) {
		if limit > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		h(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", zap.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
