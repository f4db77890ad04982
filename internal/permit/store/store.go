// Package store persists per-owner permit nonces.
package store

import (
	"context"

	id "xftledger/pkg/domain"
)

// NonceStore tracks each owner's monotonic permit nonce. A fresh owner
// starts at zero; Increment is called once per accepted permit.
type NonceStore interface {
	Nonce(ctx context.Context, owner id.Address) (uint64, error)
	Increment(ctx context.Context, owner id.Address) error
}
