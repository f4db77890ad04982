package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "xftledger/pkg/domain"
	"xftledger/pkg/requestcontext"
)

func TestLimiterSlidingWindow(t *testing.T) {
	limiter := NewLimiter(3, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		allowed, _, _ := limiter.Allow("key")
		assert.True(t, allowed, "request %d should pass", i)
	}
	allowed, remaining, _ := limiter.Allow("key")
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	// Distinct keys have independent windows.
	allowed, _, _ = limiter.Allow("other")
	assert.True(t, allowed)

	time.Sleep(120 * time.Millisecond)
	allowed, _, _ = limiter.Allow("key")
	assert.True(t, allowed, "window should have slid past the burst")
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewLimiter(1, time.Minute)
	handler := RateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(actor string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/requests", nil)
		ctx := req.Context()
		if actor != "" {
			ctx = requestcontext.WithActor(ctx, mustAddress(t, actor))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req.WithContext(ctx))
		return rr
	}

	addr := "0x1100000000000000000000000000000000000000"
	first := call(addr)
	assert.Equal(t, http.StatusOK, first.Code)

	second := call(addr)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func mustAddress(t *testing.T, s string) id.Address {
	t.Helper()
	addr, err := id.ParseAddress(s)
	require.NoError(t, err)
	return addr
}
