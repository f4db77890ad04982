package domain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	dErrors "xftledger/pkg/domain-errors"
)

// Address identifies an account on the ledger. Addresses are 20-byte values
// rendered as 0x-prefixed lowercase hex. This is a domain primitive that
// enforces validity at parse time.
type Address string

// AddressLength is the byte length of a raw address.
const AddressLength = 20

// ParseAddress validates and normalizes an address string.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	raw := strings.TrimPrefix(strings.ToLower(s), "0x")
	b, err := hex.DecodeString(raw)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("address is not valid hex: %s", s))
	}
	if len(b) != AddressLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("address must be %d bytes, got %d", AddressLength, len(b)))
	}
	return Address("0x" + raw), nil
}

// AddressFromBytes builds an Address from a raw 20-byte value.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("address must be %d bytes, got %d", AddressLength, len(b)))
	}
	return Address("0x" + hex.EncodeToString(b)), nil
}

func (a Address) String() string {
	return string(a)
}

// IsNil reports whether the address is empty.
func (a Address) IsNil() bool {
	return a == ""
}

// RequestID identifies a pending intake request.
type RequestID uuid.UUID

// NewRequestID generates a fresh request ID.
func NewRequestID() RequestID {
	return RequestID(uuid.New())
}

// ParseRequestID validates and returns a RequestID.
// Rejects empty, malformed, and nil UUIDs.
func ParseRequestID(s string) (RequestID, error) {
	if s == "" {
		return RequestID{}, dErrors.New(dErrors.CodeInvalidInput, "request id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return RequestID{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("request id is not a valid UUID: %s", s))
	}
	if u == uuid.Nil {
		return RequestID{}, dErrors.New(dErrors.CodeInvalidInput, "request id cannot be the nil UUID")
	}
	return RequestID(u), nil
}

func (r RequestID) String() string {
	return uuid.UUID(r).String()
}

// IsNil reports whether the request ID is the nil UUID.
func (r RequestID) IsNil() bool {
	return uuid.UUID(r) == uuid.Nil
}

// InstrumentSymbol identifies a registered token instrument ("BOND", "MMF").
type InstrumentSymbol string

func (s InstrumentSymbol) String() string {
	return string(s)
}

// ModuleID identifies a registered module in the module registry.
type ModuleID string

// Well-known module IDs mirroring the deployed module set.
const (
	ModuleAuthorization ModuleID = "MODULE_AUTHORIZATION"
	ModuleTransactional ModuleID = "MODULE_TRANSACTIONAL"
	ModuleTransferAgent ModuleID = "MODULE_TRANSFER_AGENT"
)

func (m ModuleID) String() string {
	return string(m)
}
