// Package store defines ledger persistence. Stores are interface-driven so
// the accounting service can run against in-memory state in tests and
// PostgreSQL in production without rewiring business code.
package store

import (
	"context"

	"xftledger/internal/ledger/models"
	id "xftledger/pkg/domain"
)

// Store persists accounts and the singleton ledger state.
//
// Apply is the only write path and must be atomic: either every record in
// the change set is persisted or none is. Reads of a missing account return
// sentinel.ErrNotFound.
type Store interface {
	Account(ctx context.Context, addr id.Address) (models.Account, error)
	State(ctx context.Context) (models.State, error)
	Apply(ctx context.Context, change models.ChangeSet) error
	// NonZeroAccounts returns every account with shares > 0, used to
	// rebuild the holder index after a restart or implementation swap.
	NonZeroAccounts(ctx context.Context) ([]models.Account, error)
}
