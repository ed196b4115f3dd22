package middleware

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/config"
)

// gcraScript keeps one value per key: the theoretical arrival time (TAT)
// of the next request in milliseconds.  A request is admitted while
// TAT - (burst-1)*period <= now.  Returns {allowed, remaining, retry_ms}.
var gcraScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local period = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tat = redis.call('GET', KEYS[1])
if tat then tat = tonumber(tat) else tat = now end
if tat < now then tat = now end

local allow_at = tat - (burst - 1) * period
if now < allow_at then
	return {0, 0, allow_at - now}
end

tat = tat + period
redis.call('SET', KEYS[1], string.format('%d', tat), 'PX', ttl)
return {1, math.floor((now - tat + burst * period) / period), 0}
`)

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// RateLimiter admits requests per key using GCRA state held in Redis.
type RateLimiter struct {
	cfg     config.RateLimitConfig
	scripts redis.Scripter
	now     func() time.Time
}

// NewRateLimiter returns a limiter evaluated on rdb.
func NewRateLimiter(cfg config.RateLimitConfig, rdb redis.Scripter) *RateLimiter {
	return &RateLimiter{cfg: cfg, scripts: rdb, now: time.Now}
}

// Allow takes one request from key's bucket.
func (l *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	vals, err := gcraScript.Run(ctx, l.scripts, []string{key},
		l.now().UnixMilli(),
		l.cfg.Period.Milliseconds(),
		l.cfg.Burst,
		l.cfg.TTL().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("rate limiter: unexpected reply %v", vals)
	}
	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// Middleware rejects requests over the limit with 429.  When Redis fails
// the request is let through and a warning is logged.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(l.cfg, c)
			d, err := l.Allow(c.Request().Context(), key)
			if err != nil {
				GetLogger(c).Warn("rate limiter unavailable", map[string]interface{}{
					"scope": l.cfg.Scope,
					"error": err.Error(),
				})
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Burst))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if l.cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if d.Allowed {
				return next(c)
			}

			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			if l.cfg.Debug {
				GetLogger(c).Debug("rate limited", map[string]interface{}{"key": key, "retry_ms": d.RetryAfter.Milliseconds()})
			}
			return apperr.New(apperr.KindRateLimited, apperr.CodeTooManyRequests, "rate limit exceeded").
				WithFields(map[string]string{"retry_after": strconv.Itoa(secs)})
		}
	}
}

// NewRateLimit builds the limiter middleware for cfg.  It is a no-op when
// the limiter is disabled or Redis is not configured.
func NewRateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return NewRateLimiter(cfg, rdb).Middleware()
}

// rateKey names the bucket a request draws from, e.g.
// "rl:reports:op:AM" or "rl:login:ip:10.0.0.1".
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix, cfg.Scope}
	switch cfg.KeyBy {
	case config.KeyByIP:
		parts = append(parts, "ip", clientIP(c))
	case config.KeyByToken:
		parts = append(parts, caller(c)...)
	case config.KeyByCompany:
		if u, ok := CurrentUser(c); ok && u.CompanyID != "" {
			parts = append(parts, "op", u.CompanyID)
		} else {
			parts = append(parts, caller(c)...)
		}
	default:
		parts = append(parts, "ip", clientIP(c))
		parts = append(parts, caller(c)...)
	}
	return strings.Join(parts, ":")
}

func clientIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// caller identifies the requester: the authenticated user when TokenAuth
// already ran, else a fingerprint of the presented token.
func caller(c echo.Context) []string {
	if _, ok := CurrentUser(c); ok {
		return []string{"user", userID(c)}
	}
	if tok := c.Request().Header.Get(AuthHeader); tok != "" {
		return []string{"tok", tokenFingerprint(tok)}
	}
	return []string{"guest"}
}

// tokenFingerprint keeps raw tokens out of Redis key names.
func tokenFingerprint(tok string) string {
	sum := sha1.Sum([]byte(tok))
	return hex.EncodeToString(sum[:8])
}
