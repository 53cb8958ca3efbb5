// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

// Package auth provides authentication primitives for the ConectaSenior
// gateway.
//
// # Domain Types
//
// Principal is the authenticable identity record. Create one with
// NewPrincipal, which validates the display name, login identifier, role,
// and optional phone number. Direct struct initialization bypasses
// validation and may create invalid state. Repository implementations
// receive pre-validated values from the constructor.
//
// # Services
//
// Service coordinates the credential operations: Login verifies
// credentials and mints a bearer token, Register creates principals with
// hashed secrets, and Refresh exchanges a still-valid token for a fresh
// one. Construct it with NewService, which validates dependencies.
package auth
