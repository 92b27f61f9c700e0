package session

import (
	"encoding/base64"
	"errors"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func codecConfig(format string) Config {
	cfg := DefaultConfig()
	cfg.TokenFormat = format
	cfg.SigningSecret = []byte(testSecret)
	return cfg
}

func flipMiddleChar(s string) string {
	i := len(s) / 2
	b := []byte(s)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestCodec_RoundTrip(t *testing.T) {
	for _, format := range []string{TokenFormatJWT, TokenFormatPaseto} {
		t.Run(format, func(t *testing.T) {
			clk := newFakeClock()
			codec, err := NewCodec(codecConfig(format), WithCodecClock(clk.Now))
			require.NoError(t, err)

			tok, err := codec.Sign("u1", "a@x.io", "agent", "tid-1", time.Hour)
			require.NoError(t, err)
			require.NotEmpty(t, tok)

			claims, err := codec.Verify(tok)
			require.NoError(t, err)
			assert.Equal(t, "u1", claims.UserID)
			assert.Equal(t, "a@x.io", claims.Email)
			assert.Equal(t, "agent", claims.Role)
			assert.Equal(t, "tid-1", claims.TokenID)
			assert.Equal(t, "servicedesk", claims.Issuer)
			assert.True(t, claims.ExpiresAt.Equal(clk.Now().Add(time.Hour)))
		})
	}
}

func TestCodec_RejectsExpired(t *testing.T) {
	for _, format := range []string{TokenFormatJWT, TokenFormatPaseto} {
		t.Run(format, func(t *testing.T) {
			clk := newFakeClock()
			codec, err := NewCodec(codecConfig(format), WithCodecClock(clk.Now))
			require.NoError(t, err)

			tok, err := codec.Sign("u1", "a@x.io", "agent", "tid-1", time.Second)
			require.NoError(t, err)

			clk.Advance(2 * time.Second)
			_, err = codec.Verify(tok)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestCodec_RejectsEverySingleCharacterAlteration(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_."

	for _, format := range []string{TokenFormatJWT, TokenFormatPaseto} {
		t.Run(format, func(t *testing.T) {
			clk := newFakeClock()
			codec, err := NewCodec(codecConfig(format), WithCodecClock(clk.Now))
			require.NoError(t, err)

			tok, err := codec.Sign("u1", "a@x.io", "agent", "tid-1", time.Hour)
			require.NoError(t, err)

			// Covers the final signature character, whose low bits are padding in base64url.
			for pos := 0; pos < len(tok); pos++ {
				for i := 0; i < len(alphabet); i++ {
					if alphabet[i] == tok[pos] {
						continue
					}
					b := []byte(tok)
					b[pos] = alphabet[i]

					_, err := codec.Verify(string(b))
					if !errors.Is(err, ErrInvalidToken) {
						t.Fatalf("pos %d/%d %q->%q: expected ErrInvalidToken, got %v", pos, len(tok), tok[pos], alphabet[i], err)
					}
				}
			}
		})
	}
}

func TestCodec_RejectsFlippedMiddleChar(t *testing.T) {
	for _, format := range []string{TokenFormatJWT, TokenFormatPaseto} {
		t.Run(format, func(t *testing.T) {
			codec, err := NewCodec(codecConfig(format))
			require.NoError(t, err)

			tok, err := codec.Sign("u1", "a@x.io", "agent", "tid-1", time.Hour)
			require.NoError(t, err)

			_, err = codec.Verify(flipMiddleChar(tok))
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTCodec_RejectsEscalatedPayload(t *testing.T) {
	codec, err := NewCodec(codecConfig(TokenFormatJWT))
	require.NoError(t, err)

	tok, err := codec.Sign("u1", "a@x.io", "agent", "tid-1", time.Hour)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)

	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["role"] = "admin"
	raw, err = json.Marshal(payload)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(raw)

	_, err = codec.Verify(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTCodec_RejectsNoneAlgorithm(t *testing.T) {
	codec, err := NewCodec(codecConfig(TokenFormatJWT))
	require.NoError(t, err)

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	exp := time.Now().Add(time.Hour).Unix()
	body, _ := json.Marshal(map[string]any{"sub": "u1", "jti": "t", "iss": "servicedesk", "exp": exp})
	tok := header + "." + base64.RawURLEncoding.EncodeToString(body) + "."

	_, err = codec.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_RejectsWrongSecret(t *testing.T) {
	for _, format := range []string{TokenFormatJWT, TokenFormatPaseto} {
		t.Run(format, func(t *testing.T) {
			signer, err := NewCodec(codecConfig(format))
			require.NoError(t, err)

			other := codecConfig(format)
			other.SigningSecret = []byte(strings.Repeat("z", 48))
			verifier, err := NewCodec(other)
			require.NoError(t, err)

			tok, err := signer.Sign("u1", "a@x.io", "agent", "tid-1", time.Hour)
			require.NoError(t, err)

			_, err = verifier.Verify(tok)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestCodec_RejectsWrongIssuer(t *testing.T) {
	for _, format := range []string{TokenFormatJWT, TokenFormatPaseto} {
		t.Run(format, func(t *testing.T) {
			signer, err := NewCodec(codecConfig(format))
			require.NoError(t, err)

			other := codecConfig(format)
			other.Issuer = "someone-else"
			verifier, err := NewCodec(other)
			require.NoError(t, err)

			tok, err := signer.Sign("u1", "a@x.io", "agent", "tid-1", time.Hour)
			require.NoError(t, err)

			_, err = verifier.Verify(tok)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestCodec_RejectsGarbage(t *testing.T) {
	for _, format := range []string{TokenFormatJWT, TokenFormatPaseto} {
		t.Run(format, func(t *testing.T) {
			codec, err := NewCodec(codecConfig(format))
			require.NoError(t, err)

			for _, in := range []string{"", "abc", "a.b.c", "v4.local.", "v4.public.xyz"} {
				_, err := codec.Verify(in)
				assert.ErrorIs(t, err, ErrInvalidToken, "input %q", in)
			}
		})
	}
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	cfg := DefaultConfig()
	_, err := NewCodec(cfg)
	require.ErrorIs(t, err, ErrConfig)
}
