// Package authz implements the authorization gate consulted by every
// mutating entry point. It answers two questions: does this actor hold a
// capability, and is this customer account authorized to hold the
// instrument. The gate is injected as an interface so modules can be
// deployed against a different authorization implementation without
// rewiring.
package authz

//go:generate mockgen -source=authz.go -destination=mock/gate_mock.go -package=mock_authz

import (
	"context"

	id "xftledger/pkg/domain"
)

// Gate is the capability-check oracle. Capability checks are orthogonal to
// and checked before lifecycle and ledger validation.
type Gate interface {
	// HasCapability reports whether the account holds the capability.
	// Admin accounts implicitly hold every capability.
	HasCapability(ctx context.Context, account id.Address, capability id.Capability) bool
	// IsAdmin reports whether the account is an administrator.
	IsAdmin(ctx context.Context, account id.Address) bool
}

// AccountDirectory is the customer-facing half of the gate: the whitelist of
// accounts permitted to hold the instrument at all.
type AccountDirectory interface {
	IsAccountAuthorized(ctx context.Context, account id.Address) bool
}
