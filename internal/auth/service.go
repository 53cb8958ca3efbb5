// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/conectasenior/authgate/internal/token"
)

// TokenCodec mints and verifies bearer tokens. Satisfied by token.Codec.
type TokenCodec interface {
	Encode(subject, role string, issuedAt time.Time, ttl time.Duration) (string, error)
	Decode(tokenString string) (*token.Claims, error)
}

// Session is the result of a successful login or refresh: the minted
// token plus the denormalized principal for immediate display.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Principal *Principal
}

// RegisterParams are the inputs to Register. Password is the raw secret;
// it is hashed before persistence and never stored or logged.
type RegisterParams struct {
	Name       string
	Identifier string
	Password   string
	Role       Role
	Phone      *string
}

// Service provides the authentication operations: credential login,
// registration, and token refresh.
type Service struct {
	principals PrincipalRepository
	hasher     PasswordHasher
	codec      TokenCodec
	tokenTTL   time.Duration
	logger     *slog.Logger
}

// dummyPasswordHash is used when a principal doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// NewService creates a new Service.
func NewService(principals PrincipalRepository, hasher PasswordHasher, codec TokenCodec, tokenTTL time.Duration) (*Service, error) {
	return NewServiceWithLogger(principals, hasher, codec, tokenTTL, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(principals PrincipalRepository, hasher PasswordHasher, codec TokenCodec, tokenTTL time.Duration, logger *slog.Logger) (*Service, error) {
	if principals == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("principals repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("token codec is required")
	}
	if tokenTTL <= 0 {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("token ttl must be positive")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("logger is required")
	}
	return &Service{
		principals: principals,
		hasher:     hasher,
		codec:      codec,
		tokenTTL:   tokenTTL,
		logger:     logger,
	}, nil
}

// TokenTTL returns the configured token validity window.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Login verifies credentials and mints a bearer token.
// Unknown identifiers, wrong passwords, and inactive principals all
// produce the same ErrInvalidCredentials so responses cannot be used to
// enumerate accounts. Uses constant-time operations to keep the unknown
// and known paths indistinguishable.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = NormalizeIdentifier(identifier)

	principal, lookupErr := s.principals.GetByIdentifier(ctx, identifier)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	var targetHash string
	var principalExists bool

	if lookupErr != nil {
		if errors.Is(lookupErr, ErrNotFound) {
			targetHash = dummyPasswordHash
			principalExists = false
		} else {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get principal by identifier").
				Wrap(lookupErr)
		}
	} else {
		targetHash = principal.PasswordHash
		principalExists = true
	}

	// Always verify the password, even against the dummy hash.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !principalExists {
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !principalExists || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	// Inactive principals get the same generic error as a wrong password.
	// Checked after verification so the inactive path costs the same.
	if !principal.Active {
		s.logger.WarnContext(ctx, "login attempt for inactive principal",
			"principal_id", principal.ID.String())
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	// Upgrade legacy hashes in place. Best effort; login succeeds
	// regardless of whether the rewrite lands.
	if s.hasher.NeedsUpgrade(principal.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			principal.PasswordHash = newHash
			principal.UpdatedAt = time.Now()
			if updateErr := s.principals.Update(ctx, principal); updateErr != nil {
				s.logger.WarnContext(ctx, "password hash upgrade failed",
					"principal_id", principal.ID.String(),
					"error", updateErr)
			}
		}
	}

	return s.issueSession(principal)
}

// Register creates a new principal with a hashed secret. Duplicate
// identifiers surface as ErrDuplicateIdentifier from the store's
// uniqueness constraint; there is no racy pre-check.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*Principal, error) {
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	principal, err := NewPrincipal(params.Name, params.Identifier, hash, params.Role, params.Phone)
	if err != nil {
		return nil, err
	}

	if err := s.principals.Create(ctx, principal); err != nil {
		if errors.Is(err, ErrDuplicateIdentifier) {
			return nil, oops.Code("AUTH_DUPLICATE_IDENTITY").
				With("identifier", principal.Identifier).
				Wrap(ErrDuplicateIdentifier)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create principal").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "principal registered",
		"principal_id", principal.ID.String(),
		"role", string(principal.Role))
	return principal, nil
}

// Refresh exchanges a still-valid token for a fresh one. The presented
// token must decode successfully and resolve to an active principal.
// The old token is not invalidated; it stays valid until its own expiry.
func (s *Service) Refresh(ctx context.Context, oldToken string) (*Session, error) {
	claims, err := s.codec.Decode(oldToken)
	if err != nil {
		// The specific kind (expired, bad signature, malformed) stays in
		// the wrapped chain for logging; clients see the generic kind.
		return nil, oops.Code("AUTH_INVALID_TOKEN").Wrap(errors.Join(ErrInvalidToken, err))
	}

	principal, err := s.principals.GetByIdentifier(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_INVALID_TOKEN").Wrap(ErrInvalidToken)
		}
		return nil, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get principal by identifier").
			Wrap(err)
	}
	if !principal.Active {
		return nil, oops.Code("AUTH_INVALID_TOKEN").Wrap(ErrInvalidToken)
	}

	return s.issueSession(principal)
}

// Resolve returns the active principal for a token subject. Used by
// handlers that need the caller's current record rather than the token
// claims alone.
func (s *Service) Resolve(ctx context.Context, subject string) (*Principal, error) {
	principal, err := s.principals.GetByIdentifier(ctx, NormalizeIdentifier(subject))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("PRINCIPAL_NOT_FOUND").Wrap(ErrNotFound)
		}
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "get principal by identifier").
			Wrap(err)
	}
	return principal, nil
}

// Principals lists all principals. Administrator surface.
func (s *Service) Principals(ctx context.Context) ([]*Principal, error) {
	list, err := s.principals.List(ctx)
	if err != nil {
		return nil, oops.Code("PRINCIPAL_LIST_FAILED").Wrap(err)
	}
	return list, nil
}

// SetActive flips a principal's active flag. Deactivation does not revoke
// already-issued tokens; they remain valid until expiry.
func (s *Service) SetActive(ctx context.Context, id ulid.ULID, active bool) error {
	if err := s.principals.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("PRINCIPAL_NOT_FOUND").
				With("principal_id", id.String()).
				Wrap(ErrNotFound)
		}
		return oops.Code("PRINCIPAL_SET_ACTIVE_FAILED").
			With("principal_id", id.String()).
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "principal active flag updated",
		"principal_id", id.String(),
		"active", active)
	return nil
}

// issueSession mints a token for the principal with a fresh issued-at.
func (s *Service) issueSession(principal *Principal) (*Session, error) {
	issuedAt := time.Now()
	tok, err := s.codec.Encode(principal.Identifier, string(principal.Role), issuedAt, s.tokenTTL)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("operation", "encode token").
			Wrap(err)
	}
	return &Session{
		Token:     tok,
		ExpiresAt: issuedAt.Add(s.tokenTTL),
		Principal: principal,
	}, nil
}
