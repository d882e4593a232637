package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/quickai/quickai/internal/auth"
	"github.com/quickai/quickai/internal/cache"
)

// RateLimitConfig configures RateLimitUser and RateLimitIP.
type RateLimitConfig struct {
	Logger *slog.Logger
	Cache  *cache.Cache

	// Per signed-in user on the AI routes. UserRPM 0 means unlimited.
	UserEnabled bool
	UserRPM     int
	UserBurst   int

	// Per client address in front of authentication.
	IPEnabled bool
	IPRPS     int
	IPBurst   int
}

// RateLimitUser limits AI requests per Clerk user. It must run after Auth;
// requests without a caller pass through.
func RateLimitUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := auth.UserIDFromContext(r.Context())
			if !cfg.UserEnabled || cfg.UserRPM <= 0 || userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			bucket := cache.UserBucket(userID, cfg.UserRPM, cfg.UserBurst)
			if takeToken(w, r, cfg, bucket, cfg.UserRPM, slog.String("user_id", userID)) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RateLimitIP limits requests per client address before the session is
// verified, so token floods never reach the identity provider.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.IPEnabled || cfg.IPRPS <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			bucket := cache.IPBucket(ip, cfg.IPRPS, cfg.IPBurst)
			if takeToken(w, r, cfg, bucket, cfg.IPBurst, slog.String("ip", ip)) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// takeToken reports whether the request may proceed. On a denial it has
// already written the 429. Redis failures fail open.
func takeToken(w http.ResponseWriter, r *http.Request, cfg RateLimitConfig, bucket cache.Bucket, limit int, who slog.Attr) bool {
	result, err := cfg.Cache.Take(r.Context(), bucket)
	if err != nil {
		cfg.Logger.WarnContext(r.Context(), "rate_limit_unavailable",
			who,
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return true
	}

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

	if result.Allowed {
		return true
	}

	retryAfter := max(cache.RetryAfterSeconds(result.RetryAfter), 1)
	cfg.Logger.WarnContext(r.Context(), "rate_limited",
		who,
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int("retry_after_seconds", retryAfter),
		slog.String("request_id", GetRequestID(r.Context())),
	)

	h.Set("Retry-After", strconv.Itoa(retryAfter))
	WriteJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter))
	return false
}

// getClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the host part of RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
