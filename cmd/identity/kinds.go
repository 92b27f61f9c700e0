package identity

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrConflict     = errors.New("conflict")

	// ErrInvalidCredentials is the only failure Authenticate reports for a bad login.
	// Unknown email and wrong password are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrInvalidHash is returned for malformed or out-of-bounds password hashes.
	ErrInvalidHash = errors.New("invalid password hash")
)
