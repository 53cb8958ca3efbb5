// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is one of the fixed set of principal roles.
type Role string

// The closed role vocabulary. Every protected operation declares the
// subset of these roles permitted to invoke it.
const (
	RoleAdministrator Role = "administrator"
	RoleCaregiver     Role = "caregiver"
	RoleRelative      Role = "relative"
	RoleClinician     Role = "clinician"
)

// AllRoles returns every defined role.
func AllRoles() []Role {
	return []Role{RoleAdministrator, RoleCaregiver, RoleRelative, RoleClinician}
}

// ParseRole converts a string into a Role, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdministrator:
		return RoleAdministrator, nil
	case RoleCaregiver:
		return RoleCaregiver, nil
	case RoleRelative:
		return RoleRelative, nil
	case RoleClinician:
		return RoleClinician, nil
	default:
		return "", oops.Code("AUTH_INVALID_ROLE").
			With("role", s).
			Errorf("unknown role %q", s)
	}
}

// Display name constraints, matching the registration contract.
const (
	MinNameLength = 2
	MaxNameLength = 100
)

// Password length constraints. The upper bound is the bcrypt input limit,
// kept so legacy hashes stay verifiable.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// identifierRegex matches a practical subset of RFC 5322 addresses. The
// store applies LOWER() on lookup, so validation is case-insensitive.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// phoneRegex matches 10 or 11 digit phone numbers.
var phoneRegex = regexp.MustCompile(`^\d{10,11}$`)

// Principal represents an authenticable identity with a role.
type Principal struct {
	ID           ulid.ULID
	Name         string
	Identifier   string // login identifier (email), case-normalized
	PasswordHash string
	Role         Role
	Active       bool
	Phone        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewPrincipal creates a validated, active Principal. The identifier is
// case-normalized. The password hash must already be computed; this
// package never stores raw secrets.
func NewPrincipal(name, identifier, passwordHash string, role Role, phone *string) (*Principal, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	identifier = NormalizeIdentifier(identifier)
	if err := ValidateIdentifier(identifier); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	if phone != nil && !phoneRegex.MatchString(*phone) {
		return nil, oops.Code("AUTH_INVALID_PHONE").
			Errorf("phone must contain 10 or 11 digits")
	}

	now := time.Now()
	return &Principal{
		ID:           ulid.Make(),
		Name:         name,
		Identifier:   identifier,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		Phone:        phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeIdentifier case-folds and trims a login identifier. All
// lookups and comparisons use the normalized form.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// ValidateName validates a display name.
func ValidateName(name string) error {
	if name == "" {
		return oops.Code("AUTH_INVALID_NAME").Errorf("name cannot be empty")
	}
	if len(name) < MinNameLength {
		return oops.Code("AUTH_INVALID_NAME").
			With("min", MinNameLength).
			Errorf("name must be at least %d characters", MinNameLength)
	}
	if len(name) > MaxNameLength {
		return oops.Code("AUTH_INVALID_NAME").
			With("max", MaxNameLength).
			Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// ValidateIdentifier validates a login identifier (email form).
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return oops.Code("AUTH_INVALID_IDENTIFIER").Errorf("identifier cannot be empty")
	}
	if !identifierRegex.MatchString(identifier) {
		return oops.Code("AUTH_INVALID_IDENTIFIER").
			Errorf("identifier must be a valid email address")
	}
	return nil
}

// ValidatePassword validates a raw password before hashing. The raw value
// is never included in the returned error.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code("AUTH_INVALID_PASSWORD").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}

// PrincipalRepository is the credential store adapter. Implementations
// must enforce identifier uniqueness on the write path and surface
// violations as ErrDuplicateIdentifier.
type PrincipalRepository interface {
	// Create stores a new principal.
	Create(ctx context.Context, principal *Principal) error

	// GetByID retrieves a principal by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Principal, error)

	// GetByIdentifier retrieves a principal by login identifier
	// (case-insensitive).
	GetByIdentifier(ctx context.Context, identifier string) (*Principal, error)

	// ExistsByIdentifier reports whether the identifier is taken. Callers
	// wanting a cheap pre-check may use it, but only Create's duplicate
	// mapping is race-free.
	ExistsByIdentifier(ctx context.Context, identifier string) (bool, error)

	// Update updates an existing principal.
	Update(ctx context.Context, principal *Principal) error

	// SetActive flips the active flag for a principal.
	SetActive(ctx context.Context, id ulid.ULID, active bool) error

	// List returns all principals ordered by creation time.
	List(ctx context.Context) ([]*Principal, error)
}
