package models

import (
	id "xftledger/pkg/domain"
	"xftledger/pkg/fixedpoint"
)

// Account is a per-address ledger record.
//
// Invariants:
//   - Shares is non-negative
//   - Shares == 0 implies the account is absent from the holder index
//   - Blocked is independent of authorization: a blocked account can still
//     be minted to by privileged roles but cannot send or receive transfers
type Account struct {
	Address id.Address
	Shares  fixedpoint.Value
	Blocked bool
}

// State is the singleton ledger state.
//
// Invariants:
//   - sum(account.Shares) == TotalShares after every mutation
//   - balanceOf(a) == a.Shares * RewardMultiplier / BASE
type State struct {
	TotalShares      fixedpoint.Value
	RewardMultiplier fixedpoint.Value
	Decimals         uint8
}

// NewState returns the initial ledger state: empty supply, multiplier 1.0.
func NewState() State {
	return State{
		TotalShares:      fixedpoint.Zero(),
		RewardMultiplier: fixedpoint.Base(),
		Decimals:         fixedpoint.Decimals(),
	}
}

// ChangeSet is an atomic batch of ledger writes. A store either applies the
// whole set or none of it. Accounts carry their complete new record;
// accounts reaching zero shares stay in the set (the store persists the
// zero, the holder index drops them).
type ChangeSet struct {
	Accounts []Account
	State    *State
}

// IsEmpty reports whether the change set carries no writes.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Accounts) == 0 && c.State == nil
}
