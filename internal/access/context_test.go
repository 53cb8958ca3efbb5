// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package access_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conectasenior/authgate/internal/access"
	"github.com/conectasenior/authgate/internal/auth"
)

func TestIdentityContext(t *testing.T) {
	t.Run("round-trips an identity", func(t *testing.T) {
		id := access.Identity{Subject: "maria@example.com", Role: auth.RoleCaregiver}
		ctx := access.WithIdentity(context.Background(), id)

		got, ok := access.IdentityFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, id, got)
	})

	t.Run("absent identity reports false", func(t *testing.T) {
		_, ok := access.IdentityFromContext(context.Background())
		assert.False(t, ok)
	})
}
