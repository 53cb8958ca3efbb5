// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

// Package postgres implements the auth repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/conectasenior/authgate/internal/auth"
)

// querier is the subset of pgxpool.Pool the repository needs. Satisfied
// by *pgxpool.Pool and by pgxmock.PgxPoolIface in tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PrincipalRepository implements auth.PrincipalRepository using PostgreSQL.
type PrincipalRepository struct {
	pool querier
}

// NewPrincipalRepository creates a new PrincipalRepository.
func NewPrincipalRepository(pool querier) *PrincipalRepository {
	return &PrincipalRepository{pool: pool}
}

// Create stores a new principal. A unique violation on the identifier
// column maps to auth.ErrDuplicateIdentifier, making the store's
// constraint the authoritative duplicate check.
func (r *PrincipalRepository) Create(ctx context.Context, principal *auth.Principal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO principals (
			id, name, identifier, password_hash, role, active, phone,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		principal.ID.String(),
		principal.Name,
		principal.Identifier,
		principal.PasswordHash,
		string(principal.Role),
		principal.Active,
		principal.Phone,
		principal.CreatedAt,
		principal.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("PRINCIPAL_DUPLICATE").
				With("identifier", principal.Identifier).
				Wrap(auth.ErrDuplicateIdentifier)
		}
		return oops.Code("PRINCIPAL_CREATE_FAILED").
			With("operation", "insert principal").
			With("identifier", principal.Identifier).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a principal by ID.
func (r *PrincipalRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Principal, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, identifier, password_hash, role, active, phone,
		       created_at, updated_at
		FROM principals
		WHERE id = $1
	`, id.String())

	principal, err := scanPrincipal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PRINCIPAL_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PRINCIPAL_GET_BY_ID_FAILED").
			With("operation", "get principal by id").
			With("id", id.String()).
			Wrap(err)
	}
	return principal, nil
}

// GetByIdentifier retrieves a principal by login identifier
// (case-insensitive).
func (r *PrincipalRepository) GetByIdentifier(ctx context.Context, identifier string) (*auth.Principal, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, identifier, password_hash, role, active, phone,
		       created_at, updated_at
		FROM principals
		WHERE LOWER(identifier) = LOWER($1)
	`, identifier)

	principal, err := scanPrincipal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PRINCIPAL_NOT_FOUND").
			With("identifier", identifier).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PRINCIPAL_GET_BY_IDENTIFIER_FAILED").
			With("operation", "get principal by identifier").
			With("identifier", identifier).
			Wrap(err)
	}
	return principal, nil
}

// ExistsByIdentifier reports whether a principal with the identifier
// exists (case-insensitive).
func (r *PrincipalRepository) ExistsByIdentifier(ctx context.Context, identifier string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM principals WHERE LOWER(identifier) = LOWER($1)
		)
	`, identifier).Scan(&exists)
	if err != nil {
		return false, oops.Code("PRINCIPAL_EXISTS_FAILED").
			With("operation", "check identifier exists").
			With("identifier", identifier).
			Wrap(err)
	}
	return exists, nil
}

// Update updates an existing principal.
func (r *PrincipalRepository) Update(ctx context.Context, principal *auth.Principal) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE principals
		SET name = $2, identifier = $3, password_hash = $4, role = $5,
		    active = $6, phone = $7, updated_at = $8
		WHERE id = $1
	`,
		principal.ID.String(),
		principal.Name,
		principal.Identifier,
		principal.PasswordHash,
		string(principal.Role),
		principal.Active,
		principal.Phone,
		principal.UpdatedAt,
	)
	if err != nil {
		return oops.Code("PRINCIPAL_UPDATE_FAILED").
			With("operation", "update principal").
			With("id", principal.ID.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("PRINCIPAL_NOT_FOUND").
			With("id", principal.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetActive flips the active flag for a principal.
func (r *PrincipalRepository) SetActive(ctx context.Context, id ulid.ULID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE principals SET active = $2, updated_at = $3 WHERE id = $1
	`, id.String(), active, time.Now())
	if err != nil {
		return oops.Code("PRINCIPAL_SET_ACTIVE_FAILED").
			With("operation", "set active flag").
			With("id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("PRINCIPAL_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// List returns all principals ordered by creation time.
func (r *PrincipalRepository) List(ctx context.Context) ([]*auth.Principal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, identifier, password_hash, role, active, phone,
		       created_at, updated_at
		FROM principals
		ORDER BY created_at
	`)
	if err != nil {
		return nil, oops.Code("PRINCIPAL_LIST_FAILED").
			With("operation", "query principals").
			Wrap(err)
	}
	defer rows.Close()

	var principals []*auth.Principal
	for rows.Next() {
		principal, err := scanPrincipal(rows)
		if err != nil {
			return nil, oops.Code("PRINCIPAL_LIST_FAILED").
				With("operation", "scan principal row").
				Wrap(err)
		}
		principals = append(principals, principal)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PRINCIPAL_LIST_FAILED").
			With("operation", "iterate principals").
			Wrap(err)
	}
	return principals, nil
}

// scanPrincipal scans one principal row.
func scanPrincipal(row pgx.Row) (*auth.Principal, error) {
	var p auth.Principal
	var idStr, roleStr string

	err := row.Scan(
		&idStr,
		&p.Name,
		&p.Identifier,
		&p.PasswordHash,
		&roleStr,
		&p.Active,
		&p.Phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("PRINCIPAL_SCAN_FAILED").
			With("operation", "parse principal id").
			Wrap(err)
	}
	p.ID = id
	p.Role = auth.Role(roleStr)
	return &p, nil
}
