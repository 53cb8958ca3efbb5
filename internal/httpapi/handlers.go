// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/conectasenior/authgate/internal/access"
	"github.com/conectasenior/authgate/internal/auth"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Token      string `json:"token"`
	TokenType  string `json:"token_type"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Role       string `json:"role"`
}

type registerRequest struct {
	Name       string  `json:"name"`
	Identifier string  `json:"identifier"`
	Password   string  `json:"password"`
	Role       string  `json:"role"`
	Phone      *string `json:"phone,omitempty"`
}

type refreshResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

type principalResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Identifier string    `json:"identifier"`
	Role       string    `json:"role"`
	Active     bool      `json:"active"`
	Phone      *string   `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type activateRequest struct {
	Active bool `json:"active"`
}

const tokenTypeBearer = "Bearer"

func newPrincipalResponse(p *auth.Principal) principalResponse {
	return principalResponse{
		ID:         p.ID.String(),
		Name:       p.Name,
		Identifier: p.Identifier,
		Role:       string(p.Role),
		Active:     p.Active,
		Phone:      p.Phone,
		CreatedAt:  p.CreatedAt,
	}
}

// decodeBody parses a JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// handleLogin verifies credentials and returns a bearer token. The
// per-identifier limiter is consulted first so locked-out identifiers
// never reach the credential path.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	limit := s.limiter.Check(req.Identifier)
	if limit.IsLockedOut || limit.Delay > 0 {
		wait := limit.LockoutRemaining
		if !limit.IsLockedOut {
			wait = limit.Delay
		}
		w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		s.recordLogin("rate_limited")
		writeJSONError(w, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}

	session, err := s.service.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.limiter.RecordFailure(req.Identifier)
			s.recordLogin("invalid_credentials")
		} else {
			s.recordLogin("error")
		}
		s.writeError(w, r, err)
		return
	}

	s.limiter.RecordSuccess(req.Identifier)
	s.recordLogin("success")
	s.recordTokenIssued("login")

	writeJSON(w, http.StatusOK, loginResponse{
		Token:      session.Token,
		TokenType:  tokenTypeBearer,
		Identifier: session.Principal.Identifier,
		Name:       session.Principal.Name,
		Role:       string(session.Principal.Role),
	})
}

// handleRegister creates a new principal.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		s.recordRegistration("invalid")
		s.writeError(w, r, err)
		return
	}

	principal, err := s.service.Register(r.Context(), auth.RegisterParams{
		Name:       req.Name,
		Identifier: req.Identifier,
		Password:   req.Password,
		Role:       role,
		Phone:      req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateIdentifier):
			s.recordRegistration("duplicate")
		case classifyErrorStatus(err) == http.StatusBadRequest:
			s.recordRegistration("invalid")
		default:
			s.recordRegistration("error")
		}
		s.writeError(w, r, err)
		return
	}

	s.recordRegistration("success")
	writeJSON(w, http.StatusCreated, newPrincipalResponse(principal))
}

// handleRefresh exchanges the presented bearer token for a fresh one.
// The token authenticates itself; this endpoint is public in the policy
// table and does the full validation through the service.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw, ok := bearerToken(r)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "missing bearer token")
		return
	}

	session, err := s.service.Refresh(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.recordTokenIssued("refresh")
	writeJSON(w, http.StatusOK, refreshResponse{
		Token:     session.Token,
		TokenType: tokenTypeBearer,
		ExpiresIn: int64(time.Until(session.ExpiresAt).Seconds()),
	})
}

// handleMe returns the caller's current principal record.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := access.IdentityFromContext(r.Context())
	if !ok {
		// The policy evaluator already required an identity; reaching here
		// without one is a wiring bug.
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	principal, err := s.service.Resolve(r.Context(), id.Subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPrincipalResponse(principal))
}

// handlePrincipalsList returns every principal. Administrator only.
func (s *Server) handlePrincipalsList(w http.ResponseWriter, r *http.Request) {
	principals, err := s.service.Principals(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]principalResponse, 0, len(principals))
	for _, p := range principals {
		out = append(out, newPrincipalResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePrincipalActivate flips a principal's active flag. Administrator
// only. Deactivation does not revoke outstanding tokens.
func (s *Server) handlePrincipalActivate(w http.ResponseWriter, r *http.Request) {
	id, err := ulid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid principal id")
		return
	}

	var req activateRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.service.SetActive(r.Context(), id, req.Active); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// classifyErrorStatus returns just the status for metric bucketing.
func classifyErrorStatus(err error) int {
	status, _ := classifyError(err)
	return status
}

func (s *Server) recordLogin(status string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) recordRegistration(status string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) recordTokenIssued(grant string) {
	if s.metrics != nil {
		s.metrics.TokensIssuedTotal.WithLabelValues(grant).Inc()
	}
}
