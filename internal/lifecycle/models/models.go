// Package models holds the instrument lifecycle records.
package models

import (
	"time"

	id "xftledger/pkg/domain"
)

// Kind distinguishes the two instrument classes the ledger supports. A
// money market fund has no maturity date and never settles.
type Kind string

const (
	KindBond            Kind = "bond"
	KindMoneyMarketFund Kind = "mmf"
)

// Instrument is the lifecycle record for one issued instrument. Active and
// Settled are orthogonal to Paused: pausing only suspends peer transfers.
type Instrument struct {
	Name         string
	Symbol       id.InstrumentSymbol
	Kind         Kind
	MaturityDate time.Time
	// CouponRate is in basis points.
	CouponRate uint32
	Active     bool
	Settled    bool
	Paused     bool
}
