// Package identity resolves staff credentials to users.
//
// It provides the Authenticator boundary used by the login endpoint, a Postgres
// implementation over desk.users, an in-memory implementation for development,
// and Argon2id password hashing.
package identity
