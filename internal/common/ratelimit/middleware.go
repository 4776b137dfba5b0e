package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"finance-agreements/internal/common/errors"
	"finance-agreements/internal/common/metrics"
)

type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

// Middleware rejects clients over their budget with 429. When Redis is
// unavailable the request is let through and a warning is logged.
// With trustForwardedFor set, clients are keyed by the last X-Forwarded-For
// hop, which is the address the fronting proxy saw.
func Middleware(limiter *Limiter, logger Logger, trustForwardedFor bool, onReject func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	clientKey := ClientIP
	if trustForwardedFor {
		clientKey = ForwardedClientIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)

			decision, err := limiter.Allow(r.Context(), client)
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request", map[string]interface{}{
					"client": client,
					"error":  err.Error(),
				})
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				metrics.RateLimitRejections.WithLabelValues(r.URL.Path).Inc()
				onReject(w, r, errors.NewRateLimitExceededError(client))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of RemoteAddr, or RemoteAddr itself when it
// has no port.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ForwardedClientIP returns the last X-Forwarded-For entry, falling back to
// ClientIP when the header is absent or empty.
func ForwardedClientIP(r *http.Request) string {
	values := r.Header.Values("X-Forwarded-For")
	if len(values) == 0 {
		return ClientIP(r)
	}
	hops := strings.Split(values[len(values)-1], ",")
	if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
		return last
	}
	return ClientIP(r)
}
