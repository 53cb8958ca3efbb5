// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conectasenior/authgate/internal/auth"
)

const testHash = "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"

func testPrincipal() *auth.Principal {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &auth.Principal{
		ID:           ulid.Make(),
		Name:         "Maria Silva",
		Identifier:   "maria@example.com",
		PasswordHash: testHash,
		Role:         auth.RoleCaregiver,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func principalRows(p *auth.Principal) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "name", "identifier", "password_hash", "role", "active", "phone",
		"created_at", "updated_at",
	}).AddRow(
		p.ID.String(), p.Name, p.Identifier, p.PasswordHash, string(p.Role),
		p.Active, p.Phone, p.CreatedAt, p.UpdatedAt,
	)
}

func TestPrincipalRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts a principal", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		p := testPrincipal()
		mock.ExpectExec(`INSERT INTO principals`).
			WithArgs(p.ID.String(), p.Name, p.Identifier, p.PasswordHash,
				string(p.Role), p.Active, p.Phone, p.CreatedAt, p.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := NewPrincipalRepository(mock)
		require.NoError(t, repo.Create(ctx, p))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to duplicate identifier", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		p := testPrincipal()
		mock.ExpectExec(`INSERT INTO principals`).
			WithArgs(p.ID.String(), p.Name, p.Identifier, p.PasswordHash,
				string(p.Role), p.Active, p.Phone, p.CreatedAt, p.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		repo := NewPrincipalRepository(mock)
		err = repo.Create(ctx, p)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateIdentifier)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other database errors pass through", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		p := testPrincipal()
		mock.ExpectExec(`INSERT INTO principals`).
			WithArgs(p.ID.String(), p.Name, p.Identifier, p.PasswordHash,
				string(p.Role), p.Active, p.Phone, p.CreatedAt, p.UpdatedAt).
			WillReturnError(errors.New("connection refused"))

		repo := NewPrincipalRepository(mock)
		err = repo.Create(ctx, p)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrDuplicateIdentifier)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPrincipalRepository_GetByIdentifier(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the principal", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		p := testPrincipal()
		mock.ExpectQuery(`LOWER\(identifier\) = LOWER\(\$1\)`).
			WithArgs(p.Identifier).
			WillReturnRows(principalRows(p))

		repo := NewPrincipalRepository(mock)
		got, err := repo.GetByIdentifier(ctx, p.Identifier)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, p.Identifier, got.Identifier)
		assert.Equal(t, p.Role, got.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`LOWER\(identifier\) = LOWER\(\$1\)`).
			WithArgs("gone@example.com").
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "name", "identifier", "password_hash", "role", "active", "phone",
				"created_at", "updated_at",
			}))

		repo := NewPrincipalRepository(mock)
		_, err = repo.GetByIdentifier(ctx, "gone@example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPrincipalRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the principal", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		p := testPrincipal()
		mock.ExpectQuery(`FROM principals\s+WHERE id = \$1`).
			WithArgs(p.ID.String()).
			WillReturnRows(principalRows(p))

		repo := NewPrincipalRepository(mock)
		got, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		mock.ExpectQuery(`FROM principals\s+WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "name", "identifier", "password_hash", "role", "active", "phone",
				"created_at", "updated_at",
			}))

		repo := NewPrincipalRepository(mock)
		_, err = repo.GetByID(ctx, id)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPrincipalRepository_ExistsByIdentifier(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		exists bool
	}{
		{"identifier taken", true},
		{"identifier free", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs("maria@example.com").
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			repo := NewPrincipalRepository(mock)
			got, err := repo.ExistsByIdentifier(ctx, "maria@example.com")
			require.NoError(t, err)
			assert.Equal(t, tt.exists, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPrincipalRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates an existing principal", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		p := testPrincipal()
		mock.ExpectExec(`UPDATE principals`).
			WithArgs(p.ID.String(), p.Name, p.Identifier, p.PasswordHash,
				string(p.Role), p.Active, p.Phone, p.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewPrincipalRepository(mock)
		require.NoError(t, repo.Update(ctx, p))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		p := testPrincipal()
		mock.ExpectExec(`UPDATE principals`).
			WithArgs(p.ID.String(), p.Name, p.Identifier, p.PasswordHash,
				string(p.Role), p.Active, p.Phone, p.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewPrincipalRepository(mock)
		err = repo.Update(ctx, p)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPrincipalRepository_SetActive(t *testing.T) {
	ctx := context.Background()

	t.Run("flips the active flag", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		mock.ExpectExec(`UPDATE principals SET active`).
			WithArgs(id.String(), false, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := NewPrincipalRepository(mock)
		require.NoError(t, repo.SetActive(ctx, id, false))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id maps to not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		mock.ExpectExec(`UPDATE principals SET active`).
			WithArgs(id.String(), true, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := NewPrincipalRepository(mock)
		err = repo.SetActive(ctx, id, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPrincipalRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("returns all principals in creation order", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		p1 := testPrincipal()
		p2 := testPrincipal()
		p2.Identifier = "joao@example.com"

		rows := principalRows(p1).AddRow(
			p2.ID.String(), p2.Name, p2.Identifier, p2.PasswordHash, string(p2.Role),
			p2.Active, p2.Phone, p2.CreatedAt, p2.UpdatedAt,
		)
		mock.ExpectQuery(`FROM principals\s+ORDER BY created_at`).
			WillReturnRows(rows)

		repo := NewPrincipalRepository(mock)
		got, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, p1.ID, got[0].ID)
		assert.Equal(t, p2.ID, got[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty table returns empty slice", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FROM principals\s+ORDER BY created_at`).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "name", "identifier", "password_hash", "role", "active", "phone",
				"created_at", "updated_at",
			}))

		repo := NewPrincipalRepository(mock)
		got, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
