// Package holdings maintains the set of accounts currently holding a
// non-zero share balance. It is pure bookkeeping: no business rules, no
// locking. The owning ledger serializes access and keeps the index in sync
// with every balance mutation, so membership here is always "shares > 0".
//
// The structure is a position map over a compact slice so maturity
// settlement can enumerate holders in O(holders), and add/remove stay O(1)
// via swap-and-pop.
package holdings

import (
	id "xftledger/pkg/domain"
)

// Index tracks accounts with non-zero balances.
type Index struct {
	positions map[id.Address]int
	holders   []id.Address
}

// NewIndex returns an empty holder index.
func NewIndex() *Index {
	return &Index{positions: make(map[id.Address]int)}
}

// Add inserts an account into the index. Adding a present account is a
// no-op, not an error: callers repairing drift must be able to call this
// blindly.
func (x *Index) Add(account id.Address) {
	if _, ok := x.positions[account]; ok {
		return
	}
	x.positions[account] = len(x.holders)
	x.holders = append(x.holders, account)
}

// Remove deletes an account via swap-and-pop. Removing an absent account is
// a no-op.
func (x *Index) Remove(account id.Address) {
	pos, ok := x.positions[account]
	if !ok {
		return
	}
	last := len(x.holders) - 1
	if pos != last {
		moved := x.holders[last]
		x.holders[pos] = moved
		x.positions[moved] = pos
	}
	x.holders = x.holders[:last]
	delete(x.positions, account)
}

// Contains reports whether the account is currently indexed.
func (x *Index) Contains(account id.Address) bool {
	_, ok := x.positions[account]
	return ok
}

// All returns a copy of the holder set. The copy is safe to iterate while
// the caller mutates the index (e.g. burning every holder at maturity).
func (x *Index) All() []id.Address {
	out := make([]id.Address, len(x.holders))
	copy(out, x.holders)
	return out
}

// Len returns the number of indexed holders.
func (x *Index) Len() int {
	return len(x.holders)
}

// Sync reconciles one account against its actual share count. Used by the
// out-of-band repair entry points when a caller observes drift after an
// adjustment bypassed the normal mutation path. Idempotent.
func (x *Index) Sync(account id.Address, hasShares bool) {
	if hasShares {
		x.Add(account)
		return
	}
	x.Remove(account)
}
