package token

import "errors"

// Public, stable errors for callers.
var (
	ErrSecretMissing  = errors.New("signing secret missing")
	ErrSecretTooShort = errors.New("signing secret too short")
)
