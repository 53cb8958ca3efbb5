// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode fails the test unless err is an oops error carrying
// the given code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected an oops error carrying code %q, got %T: %v", code, err, err)
	assert.Equal(t, code, oopsErr.Code(), "wrong error code")
}

// AssertErrorContext fails the test unless err is an oops error whose
// context holds the given key with the given value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected an oops error with context %q, got %T: %v", key, err, err)
	got, present := oopsErr.Context()[key]
	require.True(t, present, "error context missing key %q", key)
	assert.Equal(t, value, got, "wrong value for context key %q", key)
}
