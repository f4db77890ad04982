package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"xftledger/pkg/platform/httputil"
	"xftledger/pkg/requestcontext"
)

// Limiter is a sliding window rate limiter keyed by caller identity. The
// window holds raw timestamps so bursts at a window boundary cannot double
// the effective limit.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
}

func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
	}
}

// Allow records one request for the key and reports whether it fits the
// window, along with the remaining budget and the reset time.
func (l *Limiter) Allow(key string) (allowed bool, remaining int, resetAt time.Time) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.windows[key]
	i := 0
	for ; i < len(kept); i++ {
		if kept[i].After(cutoff) {
			break
		}
	}
	kept = kept[i:]

	if len(kept) >= l.limit {
		l.windows[key] = kept
		return false, 0, kept[0].Add(l.window)
	}
	kept = append(kept, now)
	l.windows[key] = kept
	return true, l.limit - len(kept), kept[0].Add(l.window)
}

// RateLimit throttles per caller. Authenticated requests are keyed by the
// actor address, anonymous ones by client IP. A limiter failure never
// blocks traffic; only an exhausted window does.
func RateLimit(limiter *Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := requestcontext.Actor(ctx).String()
			if key == "" {
				key = requestcontext.ClientIP(ctx)
			}

			allowed, remaining, resetAt := limiter.Allow(key)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			if !allowed {
				retryAfter := int(time.Until(resetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				if logger != nil {
					logger.WarnContext(ctx, "rate limit exceeded", "key", key)
				}
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":       "rate_limit_exceeded",
					"message":     "too many requests, slow down",
					"retry_after": retryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
