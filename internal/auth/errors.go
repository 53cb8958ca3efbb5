// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested principal does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateIdentifier is returned when a login identifier is already
// registered. Repositories map the store's uniqueness violation to this
// error so the race between an existence check and the insert cannot
// produce a second principal with the same identifier.
var ErrDuplicateIdentifier = errors.New("identifier already registered")

// ErrInvalidCredentials covers unknown identifiers, wrong passwords, and
// inactive principals alike, so responses never reveal which of the three
// occurred.
var ErrInvalidCredentials = errors.New("invalid identifier or password")

// ErrInvalidToken is the client-facing kind for any refresh failure:
// expired, tampered, or malformed tokens, and tokens whose principal no
// longer resolves. The specific cause is retained in the wrapped chain
// for logging.
var ErrInvalidToken = errors.New("invalid or expired token")
