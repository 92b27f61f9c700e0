// Package token provides the hashing and secret-loading primitives shared by
// the session subsystem.
//
// It is the single source of truth for:
//   - the signing secret surface (DESK_AUTH_SIGNING_SECRET) and its minimum size
//   - SHA-256 hex digests used for advisory device fingerprints
//
// Environment:
//   - DESK_AUTH_SIGNING_SECRET: shared secret used to sign session tokens.
//     Must be at least MinSecretBytes bytes after trimming.
package token
