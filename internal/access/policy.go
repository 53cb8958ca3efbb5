// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ConectaSenior Contributors

// Package access provides authorization for the ConectaSenior gateway.
//
// Required-role declarations live in one policy table keyed by operation
// name (e.g. "principals:list") instead of being re-derived at each call
// site. Operation keys may use glob patterns with ':' as the separator,
// so "principals:*" covers every principal operation. Evaluation is a
// pure function of the request identity and the static table: no
// row-level authorization happens here.
package access

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/conectasenior/authgate/internal/auth"
)

// Authorization failure kinds. Forbidden is deliberately distinct from
// any not-found shape so callers cannot infer resource existence from a
// denial.
var (
	// ErrUnauthenticated is returned when no identity is present and the
	// operation requires one.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden is returned when the caller's role is not in the
	// operation's required-role set.
	ErrForbidden = errors.New("forbidden")
)

// rule is a compiled policy table entry.
type rule struct {
	pattern string
	glob    glob.Glob
	roles   map[auth.Role]struct{}
	public  bool
}

// Policy is the compiled, immutable policy table. Safe for concurrent
// use; it is never mutated after construction.
type Policy struct {
	rules []rule
}

// NewPolicy compiles a policy table. A nil role slice marks the
// operation public (no identity required); an unknown operation is
// denied by default. Returns an error if any pattern fails to compile.
func NewPolicy(table map[string][]auth.Role) (*Policy, error) {
	rules := make([]rule, 0, len(table))
	for pattern, roles := range table {
		g, err := glob.Compile(pattern, ':')
		if err != nil {
			return nil, oops.In("access").
				Code("INVALID_OPERATION_PATTERN").
				With("pattern", pattern).
				Wrap(err)
		}
		r := rule{pattern: pattern, glob: g, public: roles == nil}
		if !r.public {
			r.roles = make(map[auth.Role]struct{}, len(roles))
			for _, role := range roles {
				r.roles[role] = struct{}{}
			}
		}
		rules = append(rules, r)
	}

	// Exact entries win over patterns; remaining order is lexicographic
	// so evaluation is deterministic regardless of map iteration.
	sort.Slice(rules, func(i, j int) bool {
		wi := strings.ContainsAny(rules[i].pattern, "*?[")
		wj := strings.ContainsAny(rules[j].pattern, "*?[")
		if wi != wj {
			return !wi
		}
		return rules[i].pattern < rules[j].pattern
	})

	return &Policy{rules: rules}, nil
}

// DefaultPolicy returns the gateway's policy table. Login, registration,
// and refresh are public (refresh authenticates via the presented token
// itself); everything under principals: is administrator-only.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(map[string][]auth.Role{
		"auth:login":    nil,
		"auth:register": nil,
		"auth:refresh":  nil,
		"auth:me":       auth.AllRoles(),
		"principals:*":  {auth.RoleAdministrator},
	})
	if err != nil {
		// The default table is hardcoded; a compile failure is a code bug
		// that should fail fast.
		panic("invalid operation pattern in DefaultPolicy: " + err.Error())
	}
	return p
}

// lookup returns the first rule matching the operation.
func (p *Policy) lookup(operation string) (rule, bool) {
	for _, r := range p.rules {
		if r.glob.Match(operation) {
			return r, true
		}
	}
	return rule{}, false
}

// Evaluator decides allow/deny for operations against the policy table.
type Evaluator struct {
	policy *Policy
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(policy *Policy, logger *slog.Logger) (*Evaluator, error) {
	if policy == nil {
		return nil, oops.In("access").Code("ACCESS_NIL_DEPENDENCY").Errorf("policy is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{policy: policy, logger: logger}, nil
}

// Authorize decides whether the caller on ctx may invoke the operation.
// Returns nil to allow, ErrUnauthenticated when no identity is present
// and one is required, and ErrForbidden when the caller's role is not in
// the required set. Operations absent from the table are denied.
func (e *Evaluator) Authorize(ctx context.Context, operation string) error {
	r, known := e.policy.lookup(operation)
	id, authenticated := IdentityFromContext(ctx)

	if !known {
		e.logger.WarnContext(ctx, "operation not in policy table",
			"operation", operation)
		if !authenticated {
			return oops.Code("AUTHZ_UNAUTHENTICATED").
				With("operation", operation).
				Wrap(ErrUnauthenticated)
		}
		return oops.Code("AUTHZ_FORBIDDEN").
			With("operation", operation).
			Wrap(ErrForbidden)
	}

	if r.public {
		return nil
	}

	if !authenticated {
		return oops.Code("AUTHZ_UNAUTHENTICATED").
			With("operation", operation).
			Wrap(ErrUnauthenticated)
	}

	if _, ok := r.roles[id.Role]; !ok {
		e.logger.InfoContext(ctx, "authorization denied",
			"operation", operation,
			"role", string(id.Role))
		return oops.Code("AUTHZ_FORBIDDEN").
			With("operation", operation).
			With("role", string(id.Role)).
			Wrap(ErrForbidden)
	}

	return nil
}

// Allowed reports whether a role is in the operation's required set
// without consulting a context. Public operations allow every role.
func (e *Evaluator) Allowed(role auth.Role, operation string) bool {
	r, known := e.policy.lookup(operation)
	if !known {
		return false
	}
	if r.public {
		return true
	}
	_, ok := r.roles[role]
	return ok
}
