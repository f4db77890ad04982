package testutil

import (
	"net/http"
	"time"

	id "xftledger/pkg/domain"
	"xftledger/pkg/requestcontext"
)

// WithActor stamps an authenticated actor onto the request context, the way
// the auth middleware would for a valid token.
func WithActor(req *http.Request, actor id.Address) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithRequestTime pins the request clock, so handlers observe a fixed
// instant instead of wall time.
func WithRequestTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}

// WithRequestID sets a correlation id on the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
