package session

import (
	"time"
)

// Claims is the identity envelope carried inside a session token.
type Claims struct {
	UserID    string
	Email     string
	Role      string
	TokenID   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies session tokens.
//
// Implementations hold no mutable state after construction and are safe for concurrent use.
// Verify returns ErrInvalidToken for every failure and never reveals which check failed.
type Codec interface {
	Sign(userID, email, role, tokenID string, ttl time.Duration) (string, error)
	Verify(token string) (Claims, error)
}

// CodecOption configures optional Codec dependencies.
type CodecOption func(*codecOptions)

type codecOptions struct {
	now func() time.Time
}

// WithCodecClock overrides the clock used for iat/exp. Intended for tests.
func WithCodecClock(now func() time.Time) CodecOption {
	return func(o *codecOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewCodec builds the Codec selected by cfg.TokenFormat.
func NewCodec(cfg Config, opts ...CodecOption) (Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := codecOptions{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	switch cfg.TokenFormat {
	case TokenFormatPaseto:
		return NewPasetoV4Codec(cfg.Issuer, cfg.SigningSecret, o.now)
	default:
		return NewJWTCodec(cfg.Issuer, cfg.SigningSecret, o.now)
	}
}
