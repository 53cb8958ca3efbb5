// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

package auth

import (
	"sync"
	"time"
)

// Rate limiting configuration.
const (
	// LockoutDuration is the time an identifier is locked out after too
	// many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of failures that triggers a lockout.
	LockoutThreshold = 7
)

// maxProgressiveDelay caps the sub-threshold delay.
const maxProgressiveDelay = 32 * time.Second

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	// Delay is the remaining time to wait before another attempt is
	// allowed. Zero once the progressive delay has elapsed.
	Delay time.Duration

	// IsLockedOut indicates the identifier is temporarily locked.
	IsLockedOut bool

	// LockoutRemaining is the time until the lockout expires.
	LockoutRemaining time.Duration
}

// CheckFailures evaluates the rate limit state. lastFailure is when the
// most recent failure happened and lockedUntil the current lockout
// timestamp (zero values if none). The progressive delay counts down
// from the last failure, so an attempt made after waiting it out is
// allowed through.
func CheckFailures(failures int, lastFailure, lockedUntil, now time.Time) RateLimitResult {
	result := RateLimitResult{}

	if lockedUntil.After(now) {
		result.IsLockedOut = true
		result.LockoutRemaining = lockedUntil.Sub(now)
		return result
	}

	if failures >= LockoutThreshold {
		// A lockout that was set and has since passed is served.
		if !lockedUntil.IsZero() {
			return result
		}
		result.IsLockedOut = true
		result.LockoutRemaining = LockoutDuration
		return result
	}

	// Progressive delay: 2^(failures-1) seconds since the last failure,
	// capped before the lockout threshold.
	if failures > 0 {
		delay := time.Duration(1<<(failures-1)) * time.Second
		if delay > maxProgressiveDelay {
			delay = maxProgressiveDelay
		}
		if remaining := delay - now.Sub(lastFailure); remaining > 0 {
			result.Delay = remaining
		}
	}

	return result
}

// LoginLimiter tracks recent login failures per identifier, entirely
// in-process. Principals themselves are never mutated during
// authentication; this counter is the only mutable state on the login
// path and resets on restart.
type LoginLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptState
	now      func() time.Time
}

type attemptState struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

// NewLoginLimiter creates an empty limiter.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		attempts: make(map[string]*attemptState),
		now:      time.Now,
	}
}

// Check returns the current rate limit state for an identifier.
func (l *LoginLimiter) Check(identifier string) RateLimitResult {
	identifier = NormalizeIdentifier(identifier)

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.attempts[identifier]
	if !ok {
		return RateLimitResult{}
	}

	now := l.now()
	result := CheckFailures(state.failures, state.lastFailure, state.lockedUntil, now)

	// A served lockout is forgotten entirely; sub-threshold failures
	// decay once the identifier has been quiet for a full lockout
	// duration, so the map does not grow without bound.
	if !result.IsLockedOut {
		if state.failures >= LockoutThreshold || now.Sub(state.lastFailure) >= LockoutDuration {
			delete(l.attempts, identifier)
			return RateLimitResult{}
		}
	}
	return result
}

// RecordFailure increments the failure counter for an identifier and
// starts a lockout when the threshold is reached.
func (l *LoginLimiter) RecordFailure(identifier string) {
	identifier = NormalizeIdentifier(identifier)

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.attempts[identifier]
	if !ok {
		state = &attemptState{}
		l.attempts[identifier] = state
	}
	state.failures++
	state.lastFailure = l.now()
	if state.failures >= LockoutThreshold {
		state.lockedUntil = state.lastFailure.Add(LockoutDuration)
	}
}

// RecordSuccess clears the failure state for an identifier.
func (l *LoginLimiter) RecordSuccess(identifier string) {
	identifier = NormalizeIdentifier(identifier)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, identifier)
}
