package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwtClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTCodec issues and verifies HS256 JWTs.
// HMAC comparison inside golang-jwt is constant-time (hmac.Equal).
type JWTCodec struct {
	issuer string
	secret []byte
	now    func() time.Time
}

// NewJWTCodec returns a JWTCodec. A nil clock defaults to time.Now in UTC.
func NewJWTCodec(issuer string, secret []byte, now func() time.Time) (*JWTCodec, error) {
	if len(secret) == 0 {
		return nil, ErrConfig
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &JWTCodec{
		issuer: issuer,
		secret: append([]byte(nil), secret...),
		now:    now,
	}, nil
}

// Sign issues a token for the given identity that expires ttl from now.
func (c *JWTCodec) Sign(userID, email, role, tokenID string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := jwtClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   userID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks signature, algorithm, issuer and expiry, then returns the claims.
func (c *JWTCodec) Verify(tokenString string) (Claims, error) {
	// Fresh parser per call so the injected clock is always honored.
	// Strict decoding rejects segments with non-zero trailing bits, so every
	// altered character changes the decoded bytes.
	p := jwt.NewParser(
		jwt.WithStrictDecoding(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)

	var claims jwtClaims
	tok, err := p.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || tok == nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		TokenID:   claims.ID,
		Issuer:    claims.Issuer,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
