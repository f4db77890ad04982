// Package httputil centralizes JSON response writing and error translation
// for HTTP handlers. Handlers stay thin: decode, call the service, write.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "xftledger/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteError translates a domain error into an HTTP response. The stable
// error code is always returned; descriptions are omitted for internal
// errors so infrastructure details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
	}

	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal && de != nil {
		body.ErrorDescription = de.Message
	}
	WriteJSON(w, StatusForCode(code), body)
}

// StatusForCode maps domain error codes to HTTP status codes.
func StatusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotAuthorized:
		return http.StatusForbidden
	case dErrors.CodeNotFound, dErrors.CodeUnknownRequest:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeStaleBalance,
		dErrors.CodeBondAlreadySettled, dErrors.CodeNonceReused:
		return http.StatusConflict
	case dErrors.CodeInstrumentNotActive, dErrors.CodeBondMatured,
		dErrors.CodeTransfersPaused, dErrors.CodeInsufficientBalance,
		dErrors.CodeSenderBlocked, dErrors.CodeRecipientBlocked,
		dErrors.CodeBondNotMature, dErrors.CodePermitExpired,
		dErrors.CodeInvalidSignature:
		return http.StatusUnprocessableEntity
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest,
		dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads and validates a JSON request body into T. On failure it
// writes a bad-request response and returns ok=false; the handler should
// simply return.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request decode failed",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		var zero T
		return zero, false
	}
	return req, true
}
