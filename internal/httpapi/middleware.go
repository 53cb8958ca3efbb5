// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/conectasenior/authgate/internal/access"
	"github.com/conectasenior/authgate/internal/auth"
	"github.com/conectasenior/authgate/internal/token"
)

// maxBodyBytes caps request bodies. The largest legitimate payload is a
// registration request, well under a kilobyte.
const maxBodyBytes = 1 << 20

const requestIDHeader = "X-Request-Id"

// statusRecorder captures the response status for the request log line.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestIDMiddleware assigns each request a ULID, echoed back in the
// response header and attached to the request-scoped logger.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(requestIDHeader, id)
		r = r.WithContext(withRequestID(r.Context(), id))
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware emits one structured line per request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestIDFromContext(r.Context()),
		)
	})
}

// recoveryMiddleware converts handler panics into 500 responses so a
// single bad request cannot take the process down.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.ErrorContext(r.Context(), "handler panic",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeJSONError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// bodySizeLimitMiddleware bounds request body reads.
func (s *Server) bodySizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// authenticateMiddleware extracts and validates a bearer token when one
// is presented, installing the caller's identity on the context. It never
// rejects the request itself: a missing or invalid token simply leaves
// the context without an identity, and the policy evaluator fails closed
// on protected operations. Failures are logged by kind only; token
// contents are never written to the log.
func (s *Server) authenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := s.codec.Decode(raw)
		if err != nil {
			kind := tokenFailureKind(err)
			s.logger.WarnContext(r.Context(), "bearer token rejected", "kind", kind)
			if s.metrics != nil {
				s.metrics.TokenFailures.WithLabelValues(kind).Inc()
			}
			next.ServeHTTP(w, r)
			return
		}

		role, err := auth.ParseRole(claims.Role)
		if err != nil {
			s.logger.WarnContext(r.Context(), "bearer token rejected", "kind", "unknown_role")
			if s.metrics != nil {
				s.metrics.TokenFailures.WithLabelValues("malformed").Inc()
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := access.WithIdentity(r.Context(), access.Identity{
			Subject: claims.Subject,
			Role:    role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken pulls the token out of the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// tokenFailureKind collapses a decode error to a loggable kind.
func tokenFailureKind(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrSignatureInvalid):
		return "signature"
	default:
		return "malformed"
	}
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
