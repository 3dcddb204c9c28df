package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/avatarstudio/avatarstudio/internal/cache"
)

// Rate limit scopes. Each scope has its own bucket per client.
const (
	ScopeShareAccess = "share_access"
	ScopeLogin       = "login"
)

// Limiter consumes tokens from a per-client bucket.
// *cache.Cache implements it with a Redis token bucket.
type Limiter interface {
	CheckRateLimit(ctx context.Context, scope, client string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig configures one rate limited route group.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter Limiter
	Enabled bool
	Scope   string
	// PerMinute of 0 disables the limit.
	PerMinute int
	Burst     int
}

// RateLimit returns middleware that limits requests per client IP within
// cfg.Scope. Run chi's RealIP first so RemoteAddr reflects the client behind
// a proxy. Limiter failures fail open.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || cfg.Limiter == nil || cfg.PerMinute <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)

			result, err := cfg.Limiter.CheckRateLimit(r.Context(), cfg.Scope, client, cfg.PerMinute, cfg.Burst)
			if err != nil {
				cfg.Logger.Error("rate_limit_check_failed",
					slog.String("scope", cfg.Scope),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.PerMinute, result.Remaining, result.ResetAt)

			if !result.Allowed {
				retryAfter := int(result.RetryAfter.Seconds())
				cfg.Logger.Warn("rate_limit_exceeded",
					slog.String("scope", cfg.Scope),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int("retry_after_seconds", retryAfter),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeFailure(w, http.StatusTooManyRequests,
					"Too many attempts. Retry after "+strconv.Itoa(retryAfter)+" seconds.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// clientIP returns RemoteAddr without its port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
