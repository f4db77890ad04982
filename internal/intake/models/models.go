// Package models holds the pending request records for transaction intake.
package models

import (
	"time"

	id "xftledger/pkg/domain"
	"xftledger/pkg/fixedpoint"
)

// Kind is the direction of a cash request.
type Kind string

const (
	KindPurchase    Kind = "purchase"
	KindLiquidation Kind = "liquidation"
)

// Valid reports whether the kind is one of the known directions.
func (k Kind) Valid() bool {
	return k == KindPurchase || k == KindLiquidation
}

// Request is a customer purchase or liquidation awaiting settlement. Amount
// is a cash amount; the settlement price converts it to token units. A
// request stays pending until it is consumed by settlement or cancelled by
// its owner.
type Request struct {
	ID          id.RequestID
	Account     id.Address
	Kind        Kind
	Amount      fixedpoint.Value
	RequestDate time.Time
}
