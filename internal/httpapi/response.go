// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/conectasenior/authgate/internal/access"
	"github.com/conectasenior/authgate/internal/auth"
	"github.com/conectasenior/authgate/pkg/errutil"
)

// errorResponse is the wire shape for every failure.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON serializes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error is unrecoverable, client may disconnect
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeError maps a service or policy error to a status and a generic
// client-facing message. Internal detail stays in the server log; the
// body never carries context that would distinguish an unknown account
// from a wrong password.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(s.logger, "request failed", err)
	} else {
		s.logger.InfoContext(r.Context(), "request rejected",
			"code", errutil.Code(err),
			"status", status,
		)
	}
	writeJSONError(w, status, message)
}

// validationCodes are the oops codes produced by input validation. They
// map to 400 with the validation message passed through verbatim; the
// messages never echo secrets.
var validationCodes = map[string]struct{}{
	"AUTH_INVALID_NAME":       {},
	"AUTH_INVALID_IDENTIFIER": {},
	"AUTH_INVALID_PASSWORD":   {},
	"AUTH_INVALID_ROLE":       {},
	"AUTH_INVALID_PHONE":      {},
}

// classifyError resolves the HTTP status and message for an error. The
// sentinel chain decides the class; validation errors pass their message
// through, everything unexpected collapses to a generic 500.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid or expired token"
	case errors.Is(err, access.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, auth.ErrDuplicateIdentifier):
		return http.StatusConflict, "identifier already registered"
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, "principal not found"
	}
	if _, ok := validationCodes[errutil.Code(err)]; ok {
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

// errorIsUnauthenticated distinguishes a missing identity from an
// insufficient role when counting denials.
func errorIsUnauthenticated(err error) bool {
	return errors.Is(err, access.ErrUnauthenticated)
}
