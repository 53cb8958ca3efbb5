// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/conectasenior/authgate/internal/auth"
)

func TestCheckFailures(t *testing.T) {
	now := time.Now()

	t.Run("no failures means no delay", func(t *testing.T) {
		result := auth.CheckFailures(0, time.Time{}, time.Time{}, now)
		assert.Zero(t, result.Delay)
		assert.False(t, result.IsLockedOut)
	})

	t.Run("delay grows exponentially from the last failure", func(t *testing.T) {
		tests := []struct {
			failures int
			delay    time.Duration
		}{
			{1, 1 * time.Second},
			{2, 2 * time.Second},
			{3, 4 * time.Second},
			{4, 8 * time.Second},
			{5, 16 * time.Second},
			{6, 32 * time.Second},
		}
		for _, tt := range tests {
			result := auth.CheckFailures(tt.failures, now, time.Time{}, now)
			assert.Equal(t, tt.delay, result.Delay, "failures=%d", tt.failures)
			assert.False(t, result.IsLockedOut)
		}
	})

	t.Run("delay counts down as time passes", func(t *testing.T) {
		lastFailure := now.Add(-1500 * time.Millisecond)
		result := auth.CheckFailures(2, lastFailure, time.Time{}, now)
		assert.Equal(t, 500*time.Millisecond, result.Delay)
	})

	t.Run("elapsed delay allows the next attempt", func(t *testing.T) {
		lastFailure := now.Add(-2 * time.Second)
		result := auth.CheckFailures(1, lastFailure, time.Time{}, now)
		assert.Zero(t, result.Delay)
		assert.False(t, result.IsLockedOut)
	})

	t.Run("threshold triggers lockout", func(t *testing.T) {
		result := auth.CheckFailures(auth.LockoutThreshold, now, time.Time{}, now)
		assert.True(t, result.IsLockedOut)
		assert.Equal(t, auth.LockoutDuration, result.LockoutRemaining)
	})

	t.Run("active lockout reports remaining time", func(t *testing.T) {
		lockedUntil := now.Add(5 * time.Minute)
		result := auth.CheckFailures(auth.LockoutThreshold, now, lockedUntil, now)
		assert.True(t, result.IsLockedOut)
		assert.Equal(t, 5*time.Minute, result.LockoutRemaining)
	})

	t.Run("served lockout allows attempts again", func(t *testing.T) {
		lockedUntil := now.Add(-time.Minute)
		result := auth.CheckFailures(auth.LockoutThreshold, now.Add(-auth.LockoutDuration), lockedUntil, now)
		assert.False(t, result.IsLockedOut)
		assert.Zero(t, result.Delay)
	})
}

func TestLoginLimiter(t *testing.T) {
	t.Run("unknown identifier has no limit", func(t *testing.T) {
		limiter := auth.NewLoginLimiter()
		result := limiter.Check("user@example.com")
		assert.Zero(t, result.Delay)
		assert.False(t, result.IsLockedOut)
	})

	t.Run("failures accumulate delay", func(t *testing.T) {
		limiter := auth.NewLoginLimiter()
		limiter.RecordFailure("user@example.com")
		limiter.RecordFailure("user@example.com")

		result := limiter.Check("user@example.com")
		assert.Positive(t, result.Delay)
		assert.LessOrEqual(t, result.Delay, 2*time.Second)
	})

	t.Run("delay expires once the wait is served", func(t *testing.T) {
		limiter := auth.NewLoginLimiter()
		limiter.RecordFailure("user@example.com")

		assert.Positive(t, limiter.Check("user@example.com").Delay)

		// One failure imposes a one second delay.
		time.Sleep(1100 * time.Millisecond)

		result := limiter.Check("user@example.com")
		assert.Zero(t, result.Delay)
		assert.False(t, result.IsLockedOut)
	})

	t.Run("threshold locks the identifier out", func(t *testing.T) {
		limiter := auth.NewLoginLimiter()
		for range auth.LockoutThreshold {
			limiter.RecordFailure("user@example.com")
		}

		result := limiter.Check("user@example.com")
		assert.True(t, result.IsLockedOut)
		assert.Positive(t, result.LockoutRemaining)
	})

	t.Run("success clears the failure state", func(t *testing.T) {
		limiter := auth.NewLoginLimiter()
		limiter.RecordFailure("user@example.com")
		limiter.RecordSuccess("user@example.com")

		result := limiter.Check("user@example.com")
		assert.Zero(t, result.Delay)
		assert.False(t, result.IsLockedOut)
	})

	t.Run("identifiers are tracked case-insensitively", func(t *testing.T) {
		limiter := auth.NewLoginLimiter()
		limiter.RecordFailure("User@Example.Com")

		result := limiter.Check("user@example.com")
		assert.Positive(t, result.Delay)
	})

	t.Run("identifiers are independent", func(t *testing.T) {
		limiter := auth.NewLoginLimiter()
		limiter.RecordFailure("a@example.com")

		result := limiter.Check("b@example.com")
		assert.Zero(t, result.Delay)
	})
}
