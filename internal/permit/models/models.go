// Package models holds the delegated-approval records.
package models

import (
	"crypto/ed25519"
	"time"

	id "xftledger/pkg/domain"
	"xftledger/pkg/fixedpoint"
)

// Permit is a signed, off-ledger approval: Owner authorizes Spender to move
// up to Value tokens before Deadline. Nonce must match the owner's current
// monotonic nonce; the signature covers the canonical digest of all fields.
type Permit struct {
	Owner     id.Address
	Spender   id.Address
	Value     fixedpoint.Value
	Nonce     uint64
	Deadline  time.Time
	PublicKey ed25519.PublicKey
	Signature []byte
}
