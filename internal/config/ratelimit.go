package config

import (
	"os"
	"strconv"
	"time"
)

// Keying modes for RateLimitConfig.KeyBy.
const (
	KeyByIP      = "ip"       // client address
	KeyByToken   = "token"    // authenticated user, else token fingerprint
	KeyByCompany = "company"  // operator of the authenticated user
	KeyByIPToken = "ip_token" // address and caller together
)

// RateLimitConfig describes one GCRA limiter: Burst requests may arrive
// back to back, after which one request is admitted every Period.
type RateLimitConfig struct {
	Enabled bool
	Scope   string // bucket name inside the key
	Burst   int
	Period  time.Duration
	KeyBy   string
	Prefix  string
	Debug   bool
}

// TTL is how long an idle key takes to drain back to a full burst.
func (c RateLimitConfig) TTL() time.Duration {
	return time.Duration(c.Burst+1) * c.Period
}

// LoadRateLimitConfig builds the limiter in front of the whole /api group.
func LoadRateLimitConfig() RateLimitConfig {
	return loadRateLimit("api", "RATE_LIMIT", 120, 500*time.Millisecond, KeyByIPToken)
}

// LoadLoginRateLimitConfig builds the limiter on POST /login.
func LoadLoginRateLimitConfig() RateLimitConfig {
	return loadRateLimit("login", "LOGIN_RATE_LIMIT", 10, 6*time.Second, KeyByIP)
}

// LoadReportRateLimitConfig builds the limiter shared by the settlement
// reports.  All accounts of one operator draw from the same bucket.
func LoadReportRateLimitConfig() RateLimitConfig {
	return loadRateLimit("reports", "REPORT_RATE_LIMIT", 30, 2*time.Second, KeyByCompany)
}

// LoadAdminRateLimitConfig builds the limiter on imports, resets and usermod.
func LoadAdminRateLimitConfig() RateLimitConfig {
	return loadRateLimit("admin", "ADMIN_RATE_LIMIT", 5, 30*time.Second, KeyByToken)
}

func loadRateLimit(scope, env string, burst int, period time.Duration, keyBy string) RateLimitConfig {
	c := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true) && envBool(env+"_ENABLED", true),
		Scope:   scope,
		Burst:   envInt(env+"_BURST", burst),
		Period:  envDur(env+"_PERIOD", period),
		KeyBy:   envStr(env+"_KEY_BY", keyBy),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:   envBool("RATE_LIMIT_DEBUG", false),
	}
	if c.Burst < 1 {
		c.Burst = 1
	}
	if c.Period <= 0 {
		c.Period = time.Second
	}
	return c
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
