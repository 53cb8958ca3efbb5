// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package access

import (
	"context"

	"github.com/conectasenior/authgate/internal/auth"
)

// Identity is the request-scoped security context derived from a
// validated token: who the caller is and what role they carry. It is
// read-only and discarded when the request completes.
type Identity struct {
	Subject string // normalized login identifier
	Role    auth.Role
}

type identityKey struct{}

// WithIdentity returns a context carrying the caller's identity.
// Installed once per request by the authentication middleware.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity installed on the context, if
// any. A missing identity means the request was unauthenticated (or its
// token failed validation) and authorization must fail closed.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
