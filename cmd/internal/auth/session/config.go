package session

import (
	"os"
	"strings"
	"time"

	"servicedesk/cmd/security/token"
)

// Token formats accepted by Config.TokenFormat.
const (
	TokenFormatJWT    = "jwt"
	TokenFormatPaseto = "paseto"
)

// Config defines all runtime configuration for the session subsystem.
type Config struct {
	// Issuer is the value set in the "iss" claim and checked on verify.
	Issuer string

	// SessionTTL is both the token lifetime and the session row lifetime.
	// It is never extended by activity.
	SessionTTL time.Duration

	// TokenFormat selects the Codec implementation ("jwt" or "paseto").
	TokenFormat string

	// SigningSecret is the shared secret. Read-only after startup.
	SigningSecret []byte

	// TouchInterval is the minimum gap between two last-activity writes for one session.
	TouchInterval time.Duration

	// InactiveRetention controls physical deletion during cleanup.
	// Inactive rows whose expiry is older than now-InactiveRetention are deleted.
	// Zero keeps every row.
	InactiveRetention time.Duration
}

// DefaultConfig returns defaults suitable for development. SigningSecret is left empty.
func DefaultConfig() Config {
	return Config{
		Issuer:        "servicedesk",
		SessionTTL:    8 * time.Hour,
		TokenFormat:   TokenFormatJWT,
		TouchInterval: time.Minute,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - DESK_AUTH_SIGNING_SECRET (>= 32 bytes)
//
// Optional (durations must be valid Go duration strings):
//   - DESK_AUTH_ISSUER
//   - DESK_AUTH_SESSION_TTL
//   - DESK_AUTH_TOKEN_FORMAT (jwt|paseto)
//   - DESK_AUTH_TOUCH_INTERVAL
//   - DESK_AUTH_INACTIVE_RETENTION (0 disables deletion)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("DESK_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := strings.TrimSpace(os.Getenv("DESK_AUTH_SESSION_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.SessionTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("DESK_AUTH_TOKEN_FORMAT")); v != "" {
		cfg.TokenFormat = strings.ToLower(v)
	}

	if v := strings.TrimSpace(os.Getenv("DESK_AUTH_TOUCH_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.TouchInterval = d
	}

	if v := strings.TrimSpace(os.Getenv("DESK_AUTH_INACTIVE_RETENTION")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.InactiveRetention = d
	}

	secret, err := token.SecretFromEnv(token.MinSecretBytes)
	if err != nil {
		return Config{}, ErrConfig
	}
	cfg.SigningSecret = secret

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants that must hold before any Codec is built.
func (c Config) Validate() error {
	if len(c.SigningSecret) < token.MinSecretBytes {
		return ErrConfig
	}
	if c.SessionTTL <= 0 {
		return ErrConfig
	}
	if strings.TrimSpace(c.Issuer) == "" {
		return ErrConfig
	}
	switch c.TokenFormat {
	case TokenFormatJWT, TokenFormatPaseto:
	default:
		return ErrConfig
	}
	return nil
}
