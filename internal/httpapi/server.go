// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

// Package httpapi serves the gateway's HTTP surface: the authentication
// endpoints and the administrator principal operations. Authorization is
// enforced per operation through the access policy evaluator before any
// handler logic runs.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/conectasenior/authgate/internal/access"
	"github.com/conectasenior/authgate/internal/auth"
	"github.com/conectasenior/authgate/internal/observability"
)

// Operation names, the keys into the access policy table.
const (
	OpLogin              = "auth:login"
	OpRegister           = "auth:register"
	OpRefresh            = "auth:refresh"
	OpMe                 = "auth:me"
	OpPrincipalsList     = "principals:list"
	OpPrincipalsActivate = "principals:activate"
)

// Server is the gateway HTTP server.
type Server struct {
	addr       string
	service    *auth.Service
	codec      auth.TokenCodec
	evaluator  *access.Evaluator
	limiter    *auth.LoginLimiter
	metrics    *observability.Metrics
	logger     *slog.Logger
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a gateway server. metrics may be nil when the
// observability server is disabled.
func NewServer(addr string, service *auth.Service, codec auth.TokenCodec, evaluator *access.Evaluator, metrics *observability.Metrics, logger *slog.Logger) (*Server, error) {
	if addr == "" {
		return nil, oops.Code("API_NIL_DEPENDENCY").Errorf("listen address is required")
	}
	if service == nil {
		return nil, oops.Code("API_NIL_DEPENDENCY").Errorf("auth service is required")
	}
	if codec == nil {
		return nil, oops.Code("API_NIL_DEPENDENCY").Errorf("token codec is required")
	}
	if evaluator == nil {
		return nil, oops.Code("API_NIL_DEPENDENCY").Errorf("access evaluator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:      addr,
		service:   service,
		codec:     codec,
		evaluator: evaluator,
		limiter:   auth.NewLoginLimiter(),
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Handler builds the full middleware chain and routes. Exposed so tests
// can drive the server through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/auth/me", s.protected(OpMe, s.handleMe))
	mux.HandleFunc("GET /api/principals", s.protected(OpPrincipalsList, s.handlePrincipalsList))
	mux.HandleFunc("PATCH /api/principals/{id}/active", s.protected(OpPrincipalsActivate, s.handlePrincipalActivate))

	var h http.Handler = mux
	h = s.authenticateMiddleware(h)
	h = s.bodySizeLimitMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.requestIDMiddleware(h)
	h = s.recoveryMiddleware(h)
	return h
}

// protected wraps a handler with a policy evaluation for the operation.
// Denials are surfaced before the handler runs: 401 when no security
// context exists, 403 when the caller's role is not permitted.
func (s *Server) protected(operation string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.evaluator.Authorize(r.Context(), operation); err != nil {
			s.recordAuthz(err)
			s.writeError(w, r, err)
			return
		}
		s.recordAuthzAllow()
		next(w, r)
	}
}

// Start begins serving. Returns an error channel that receives any serve
// failure; the channel is closed on graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server, letting in-flight requests
// finish within the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// recordAuthz counts a denial by kind.
func (s *Server) recordAuthz(err error) {
	if s.metrics == nil {
		return
	}
	decision := "deny_forbidden"
	if errorIsUnauthenticated(err) {
		decision = "deny_unauthenticated"
	}
	s.metrics.AuthzDecisions.WithLabelValues(decision).Inc()
}

// recordAuthzAllow counts an allow decision.
func (s *Server) recordAuthzAllow() {
	if s.metrics == nil {
		return
	}
	s.metrics.AuthzDecisions.WithLabelValues("allow").Inc()
}
