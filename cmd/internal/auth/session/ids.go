package session

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// newSessionID returns a lexically sortable session identifier.
func newSessionID() string {
	return ulid.Make().String()
}

// newTokenID returns 128 bits of randomness in UUIDv4 text form.
func newTokenID() string {
	return uuid.NewString()
}
