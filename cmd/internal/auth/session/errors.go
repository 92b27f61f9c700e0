package session

import "errors"

var (
	// ErrInvalidToken is returned by a Codec when a token fails verification for any reason
	// (bad signature, malformed payload, expired). The cases are never distinguished.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnauthenticated is the single outcome of Validate for every rejected token:
	// invalid, expired, unknown token id, or inactive session.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrNotFound is returned by owner-scoped operations when the session does not exist,
	// belongs to another user, or is no longer active.
	ErrNotFound = errors.New("session not found")

	// ErrSessionNotFound is returned by a Store when no row matches.
	ErrSessionNotFound = errors.New("session row not found")

	// ErrDuplicateTokenID is returned by a Store when a token id has already been issued.
	ErrDuplicateTokenID = errors.New("duplicate token id")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
