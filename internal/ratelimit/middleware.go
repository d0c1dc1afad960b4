package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"badgepass/pkg/platform/httputil"
	"badgepass/pkg/requestcontext"
)

// Middleware applies one limit to every request it wraps.
type Middleware struct {
	limiter Limiter
	limit   int
	window  time.Duration
	logger  *slog.Logger
}

func NewMiddleware(limiter Limiter, limit int, window time.Duration, logger *slog.Logger) *Middleware {
	return &Middleware{limiter: limiter, limit: limit, window: window, logger: logger}
}

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// PerOperator keys the window on the authenticated operator, falling back to
// the client IP. It must run after authentication. Limiter failures fail open
// so a cache outage never stops check-in.
func (m *Middleware) PerOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := "scan:op:" + requestcontext.Operator(ctx)
		if requestcontext.Operator(ctx) == "" {
			key = "scan:ip:" + requestcontext.ClientIP(ctx)
		}

		result, err := m.limiter.Allow(ctx, key, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check scan rate limit",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			m.logger.WarnContext(ctx, "scan rate limit exceeded",
				"key", key,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, &exceededResponse{
				Error:      "rate_limit_exceeded",
				Message:    "Too many scans from this operator. Please try again later.",
				RetryAfter: result.RetryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
