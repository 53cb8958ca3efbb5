// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

// Package token encodes and decodes the signed bearer tokens issued by
// the gateway. Tokens are self-contained HS256 JWTs carrying the
// principal's login identifier and role; validity is derived purely from
// the signature and the expiry instant, with no server-side state and no
// clock-skew leeway.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// MinKeyLength is the minimum accepted signing key size in bytes. HS256
// keys shorter than the hash output weaken the MAC.
const MinKeyLength = 32

// Decode failure kinds. Each is distinct so callers can log the specific
// cause before collapsing them into a generic client-facing error.
var (
	// ErrMalformed is returned when the token structure cannot be parsed.
	ErrMalformed = errors.New("token is malformed")

	// ErrSignatureInvalid is returned when the signature does not verify.
	ErrSignatureInvalid = errors.New("token signature is invalid")

	// ErrExpired is returned when the current time is at or past the
	// token's expiry instant.
	ErrExpired = errors.New("token has expired")
)

// Claims are the decoded contents of a valid token.
type Claims struct {
	Subject   string // normalized login identifier
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// jwtClaims is the wire representation.
type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies bearer tokens with a symmetric key. The key is
// loaded once at startup and treated as immutable for the process
// lifetime; a Codec is safe for concurrent use.
type Codec struct {
	key []byte
}

// NewCodec creates a Codec from the configured signing key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) < MinKeyLength {
		return nil, oops.Code("TOKEN_KEY_TOO_SHORT").
			With("min_bytes", MinKeyLength).
			Errorf("signing key must be at least %d bytes", MinKeyLength)
	}
	return &Codec{key: key}, nil
}

// Encode mints a signed token for the subject and role. The expiry is the
// absolute instant issuedAt + ttl; sub-second precision is dropped by the
// JWT numeric date encoding.
func (c *Codec) Encode(subject, role string, issuedAt time.Time, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", oops.Code("TOKEN_EMPTY_SUBJECT").Errorf("subject cannot be empty")
	}
	if ttl <= 0 {
		return "", oops.Code("TOKEN_INVALID_TTL").
			With("ttl", ttl.String()).
			Errorf("ttl must be positive")
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	})

	signed, err := t.SignedString(c.key)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Decode verifies a token string and returns its claims. Failures are one
// of ErrMalformed, ErrSignatureInvalid, or ErrExpired, wrapped with a
// matching code.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &jwtClaims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, oops.Code("TOKEN_EXPIRED").Wrap(ErrExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, oops.Code("TOKEN_SIGNATURE_INVALID").Wrap(ErrSignatureInvalid)
		default:
			return nil, oops.Code("TOKEN_MALFORMED").Wrap(ErrMalformed)
		}
	}
	if !parsed.Valid {
		return nil, oops.Code("TOKEN_SIGNATURE_INVALID").Wrap(ErrSignatureInvalid)
	}

	out := &Claims{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	// iat is set by Encode but optional in the JWT spec.
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
