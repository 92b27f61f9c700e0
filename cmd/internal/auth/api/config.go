package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth transport behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	// ExposeToken also returns the raw token in the login response body
	// for non-browser clients that authenticate with a bearer header.
	ExposeToken bool

	// LoginRatePerMinute and LoginBurst shape the per-IP login token bucket.
	LoginRatePerMinute float64
	LoginBurst         int
	LoginLimiterIdle   time.Duration
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:       64 << 10,
		CookieName:         "desk_session",
		CookiePath:         "/",
		CookieSecure:       true,
		CookieSameSite:     http.SameSiteStrictMode,
		LoginRatePerMinute: 10,
		LoginBurst:         5,
		LoginLimiterIdle:   10 * time.Minute,
	}
}

// LoadConfigFromEnv loads auth transport config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		TrustProxy:         envBool("DESK_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:       envInt64("DESK_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		CookieName:         envString("DESK_AUTH_COOKIE_NAME", def.CookieName),
		CookiePath:         envString("DESK_AUTH_COOKIE_PATH", def.CookiePath),
		CookieDomain:       envString("DESK_AUTH_COOKIE_DOMAIN", ""),
		CookieSecure:       envBool("DESK_AUTH_COOKIE_SECURE", def.CookieSecure),
		CookieSameSite:     parseSameSite(os.Getenv("DESK_AUTH_COOKIE_SAMESITE"), def.CookieSameSite),
		ExposeToken:        envBool("DESK_AUTH_EXPOSE_TOKEN", false),
		LoginRatePerMinute: envFloat("DESK_AUTH_LOGIN_RATE_PER_MINUTE", def.LoginRatePerMinute),
		LoginBurst:         envInt("DESK_AUTH_LOGIN_BURST", def.LoginBurst),
		LoginLimiterIdle:   envDuration("DESK_AUTH_LOGIN_LIMITER_IDLE", def.LoginLimiterIdle),
	}
	return cfg
}

func parseSameSite(v string, def http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return def
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
