// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jeranaias/sessionguard/internal/audit"
	"github.com/jeranaias/sessionguard/internal/config"
	"github.com/jeranaias/sessionguard/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = "127.0.0.1:4000"

	// DefaultTokenTTL is how long a login token lives.
	DefaultTokenTTL = 8 * time.Hour

	// MaxRequestBodySize caps JSON request bodies (64KB).
	MaxRequestBodySize = 64 * 1024
)

// Version is reported by /health; main overrides it at startup.
var Version = "0.1.0"

// Store is the persistence the server needs. *storage.PortalStore
// implements it.
type Store interface {
	GetInactivityTimeout(ctx context.Context) (time.Duration, error)
	SetInactivityTimeout(ctx context.Context, d time.Duration) error
	VerifyUser(ctx context.Context, email, password string) (*storage.User, error)
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*storage.Session, error)
	LookupSession(ctx context.Context, token string) (*storage.Session, error)
	RevokeSession(ctx context.Context, token string) error
	ActiveSessions(ctx context.Context) (int, error)
}

// Config configures a Server.
type Config struct {
	Addr     string
	TokenTTL time.Duration
	// RateLimitPerMinute is the per-IP request budget (0 = unlimited).
	RateLimitPerMinute int
	Logger             *log.Logger
	Audit              *audit.Logger
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the portal HTTP API.
type Server struct {
	cfg     Config
	store   Store
	router  *http.ServeMux
	metrics *Metrics
	handler http.Handler

	mu     sync.Mutex
	server *http.Server
}

// New builds a Server backed by store.
func New(cfg Config, store Store) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	s := &Server{
		cfg:     cfg,
		store:   store,
		router:  http.NewServeMux(),
		metrics: NewMetrics(store.ActiveSessions),
	}
	s.setupRoutes()

	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(cfg.Logger, s.metrics),
	}
	if cfg.RateLimitPerMinute > 0 {
		middlewares = append(middlewares, RateLimitMiddleware(NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)))
	}
	s.handler = Chain(middlewares...)(s.router)

	if d, err := store.GetInactivityTimeout(context.Background()); err == nil {
		s.metrics.setTimeout(d)
	}
	return s
}

// FromConfig maps the [server] config section onto a server Config.
func FromConfig(sc config.ServerConfig, logger *log.Logger, auditLog *audit.Logger) Config {
	return Config{
		Addr:               sc.Addr,
		TokenTTL:           time.Duration(sc.TokenTTLHours) * time.Hour,
		RateLimitPerMinute: sc.RateLimitPerMinute,
		Logger:             logger,
		Audit:              auditLog,
	}
}

func (s *Server) setupRoutes() {
	admin := AuthMiddleware(s.store, true)

	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/community/session-timeout", s.handleGetTimeout)
	s.router.Handle("PUT /api/community/session-timeout", admin(http.HandlerFunc(s.handlePutTimeout)))
	s.router.HandleFunc("POST /api/login", s.handleLogin)
	s.router.HandleFunc("POST /api/logout", s.handleLogout)
	s.router.Handle("GET /metrics", s.metrics.Handler())
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// ============================================================================
// HEALTH
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{Status: "ok", Version: Version, Database: "ok"}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.store.GetInactivityTimeout(ctx); err != nil {
		health.Status = "degraded"
		health.Database = "unavailable"
	}
	writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// COMMUNITY SESSION TIMEOUT
// ============================================================================

// TimeoutBody is the request and response body of the session-timeout
// endpoints.
type TimeoutBody struct {
	InactivityTimeoutMinutes *float64 `json:"inactivityTimeoutMinutes"`
}

func (s *Server) handleGetTimeout(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.GetInactivityTimeout(r.Context())
	if err != nil {
		log.Printf("TIMEOUT_READ_FAILED | error=%v", err)
		writeError(w, http.StatusInternalServerError, "failed to read session timeout")
		return
	}
	minutes := d.Minutes()
	writeJSON(w, http.StatusOK, TimeoutBody{InactivityTimeoutMinutes: &minutes})
}

func (s *Server) handlePutTimeout(w http.ResponseWriter, r *http.Request) {
	var body TimeoutBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.InactivityTimeoutMinutes == nil {
		writeError(w, http.StatusBadRequest, "inactivityTimeoutMinutes is required")
		return
	}

	m := *body.InactivityTimeoutMinutes
	if m != math.Trunc(m) || !config.ValidTimeoutMinutes(int(m)) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf(
			"inactivityTimeoutMinutes must be %d-%d in steps of %d",
			config.MinTimeoutMinutes, config.MaxTimeoutMinutes, config.TimeoutStepMinutes))
		return
	}

	d := time.Duration(m) * time.Minute
	if err := s.store.SetInactivityTimeout(r.Context(), d); err != nil {
		log.Printf("TIMEOUT_WRITE_FAILED | error=%v", err)
		writeError(w, http.StatusInternalServerError, "failed to update session timeout")
		return
	}
	s.metrics.setTimeout(d)

	actor := ""
	if sess, ok := SessionFromContext(r.Context()); ok {
		actor = sess.Email
	}
	log.Printf("TIMEOUT_CHANGED | user=%s minutes=%d", actor, int(m))
	s.cfg.Audit.LogEvent("", audit.EventTimeoutChanged, actor, map[string]string{
		"minutes": strconv.Itoa(int(m)),
		"ip":      GetClientIP(r),
	})

	writeJSON(w, http.StatusOK, body)
}

// ============================================================================
// LOGIN / LOGOUT
// ============================================================================

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token            string `json:"token"`
	UserID           string `json:"userId"`
	ExpiresInMinutes int    `json:"expiresInMinutes"`
}

// LogoutResponse is the body of POST /api/logout.
type LogoutResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.VerifyUser(r.Context(), req.Email, req.Password)
	if err != nil {
		s.metrics.login(false)
		s.cfg.Audit.LogFailure("", audit.EventLoginFailed, req.Email, err)
		if errors.Is(err, storage.ErrInvalidCredentials) {
			log.Printf("LOGIN_FAILED | ip=%s reason=invalid_credentials", GetClientIP(r))
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		log.Printf("LOGIN_FAILED | ip=%s error=%v", GetClientIP(r), err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	sess, err := s.store.CreateSession(r.Context(), user.ID, s.cfg.TokenTTL)
	if err != nil {
		s.metrics.login(false)
		log.Printf("LOGIN_FAILED | user=%s error=%v", user.Email, err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	s.metrics.login(true)
	log.Printf("LOGIN | user=%s admin=%t", user.Email, user.IsAdmin)
	s.cfg.Audit.LogEvent("", audit.EventLogin, user.Email, map[string]string{"ip": GetClientIP(r)})

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:            sess.Token,
		UserID:           user.ID,
		ExpiresInMinutes: int(s.cfg.TokenTTL / time.Minute),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := BearerToken(r)
	if !ok {
		s.metrics.logout(false)
		writeJSON(w, http.StatusUnauthorized, LogoutResponse{Error: "missing bearer token"})
		return
	}

	// Lookup first so the audit line can name the user; an expired token
	// can still be revoked.
	actor := ""
	if sess, err := s.store.LookupSession(r.Context(), token); err == nil {
		actor = sess.Email
	}

	if err := s.store.RevokeSession(r.Context(), token); err != nil {
		s.metrics.logout(false)
		s.cfg.Audit.LogFailure("", audit.EventLogoutFailed, actor, err)
		status, reason := authFailure(err)
		log.Printf("LOGOUT_FAILED | ip=%s reason=%s", GetClientIP(r), reason)
		writeJSON(w, status, LogoutResponse{Error: err.Error()})
		return
	}

	s.metrics.logout(true)
	log.Printf("LOGOUT | user=%s", actor)
	s.cfg.Audit.LogEvent("", audit.EventLogout, actor, map[string]string{"ip": GetClientIP(r)})
	writeJSON(w, http.StatusOK, LogoutResponse{Success: true})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	log.Printf("SERVER_START | addr=%s version=%s", ln.Addr(), Version)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
