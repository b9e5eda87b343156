package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/siteboss-backend/api/responses"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

const maxAuthBody = 64 << 10

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy throttles one auth surface by client IP and by the
// mobile number in the request body, each with its own fixed window counter.
type AuthRateLimitPolicy struct {
	name        string
	window      time.Duration
	ipLimit     int
	mobileLimit int
}

// NewAuthRateLimitPolicy builds a policy. A zero limit turns that counter
// off; a zero window turns the policy off.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, mobileLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, mobileLimit: mobileLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.mobileLimit > 0)
}

// rateCounter is one throttled dimension of a request. Mobile numbers are
// hashed before they reach redis or the logs.
type rateCounter struct {
	scope string
	value string
	limit int
}

func (p AuthRateLimitPolicy) key(c rateCounter) string {
	return "rl:" + c.scope + ":" + p.name + ":" + c.value
}

// AuthRateLimit rejects requests over either counter of policy with 429 and
// a Retry-After of the window length. Redis failures fail closed with 503.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			counters, err := policy.counters(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			for _, c := range counters {
				count, err := store.IncrWithTTL(ctx, policy.key(c), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(c.limit) {
					policy.reject(ctx, logg, w, c, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// counters lists the dimensions that apply to r, buffering the body so the
// handler can still read it.
func (p AuthRateLimitPolicy) counters(r *http.Request) ([]rateCounter, error) {
	var out []rateCounter
	if ip := clientIP(r); p.ipLimit > 0 && ip != "" {
		out = append(out, rateCounter{scope: "ip", value: ip, limit: p.ipLimit})
	}
	if p.mobileLimit <= 0 || r.Body == nil {
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBody))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var form struct {
		Mobile string `json:"mobile"`
	}
	if json.Unmarshal(body, &form) == nil {
		if mobile := types.NormalizeMobile(form.Mobile); mobile != "" {
			sum := sha256.Sum256([]byte(mobile))
			out = append(out, rateCounter{scope: "mobile", value: hex.EncodeToString(sum[:]), limit: p.mobileLimit})
		}
	}
	return out, nil
}

func (p AuthRateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, c rateCounter, count int64) {
	retryAfter := int(p.window.Round(time.Second).Seconds())
	if logg != nil {
		field := "ip"
		if c.scope == "mobile" {
			field = "mobile_hash"
		}
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"scope":          c.scope,
			field:            c.value,
			"policy":         p.name,
			"attempts":       count,
			"limit":          c.limit,
			"window_seconds": retryAfter,
		}), "auth.rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later").
		WithDetails(map[string]any{responses.RetryAfterDetail: retryAfter}))
}

// clientIP prefers the first X-Forwarded-For hop set by the load balancer.
func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
