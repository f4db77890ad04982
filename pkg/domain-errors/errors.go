// Package dErrors defines coded domain errors.
//
// Services return these so callers (handlers, automation) can distinguish
// "retry with corrected input" from "permanently invalid" without string
// matching. Stores return sentinel errors (pkg/platform/sentinel) and the
// service layer translates them into domain errors.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

// Ledger and settlement error codes.
const (
	// CodeNotAuthorized: the authorization gate rejected the actor.
	CodeNotAuthorized Code = "not_authorized"
	// CodeInstrumentNotActive: lifecycle state forbids the mutation.
	CodeInstrumentNotActive Code = "instrument_not_active"
	// CodeBondMatured: the instrument has been maturity-settled; terminal.
	CodeBondMatured Code = "bond_matured"
	// CodeTransfersPaused: peer-to-peer transfers are paused.
	CodeTransfersPaused Code = "transfers_paused"
	// CodeInsufficientBalance: burn or transfer exceeds the account's shares.
	CodeInsufficientBalance Code = "insufficient_balance"
	// CodeSenderBlocked / CodeRecipientBlocked: blocklist checks on transfer.
	CodeSenderBlocked    Code = "sender_blocked"
	CodeRecipientBlocked Code = "recipient_blocked"
	// CodeBondNotMature: maturity settlement attempted before maturity date.
	CodeBondNotMature Code = "bond_not_mature"
	// CodeBondAlreadySettled: maturity settlement attempted twice.
	CodeBondAlreadySettled Code = "bond_already_settled"
	// CodeUnknownRequest: intake request missing, already consumed, or
	// cancelled.
	CodeUnknownRequest Code = "unknown_request"
	// CodeStaleBalance: optimistic guard mismatch on balance adjustment.
	CodeStaleBalance Code = "stale_balance"
	// CodePermitExpired / CodeInvalidSignature / CodeNonceReused: delegated
	// approval checks, in validation order.
	CodePermitExpired    Code = "permit_expired"
	CodeInvalidSignature Code = "invalid_signature"
	CodeNonceReused      Code = "nonce_reused"
)

// Ambient error codes shared across modules.
const (
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a domain error carrying a stable code and a human description.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, wrapped: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or CodeInternal if err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
