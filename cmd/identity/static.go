package identity

import (
	"context"
	"strings"
	"time"
)

type staticEntry struct {
	user User
	hash string
}

// StaticAuthenticator is an in-memory Authenticator for development and tests.
// It is immutable after construction.
type StaticAuthenticator struct {
	params Argon2idParams
	users  map[string]staticEntry
}

// NewStaticAuthenticator hashes each user's password and indexes users by email.
func NewStaticAuthenticator(params Argon2idParams, users ...CreateUserInput) (*StaticAuthenticator, error) {
	const op = "identity.NewStaticAuthenticator"

	a := &StaticAuthenticator{params: params, users: make(map[string]staticEntry, len(users))}
	for _, in := range users {
		email := NormalizeEmail(in.Email)
		if email == "" {
			return nil, invalid(op, "email is required")
		}
		if _, dup := a.users[email]; dup {
			return nil, ConflictError{Op: op, Field: "email"}
		}
		hash, err := HashPassword(in.Password, params)
		if err != nil {
			return nil, err
		}
		id, err := newUserID(in.Now)
		if err != nil {
			return nil, err
		}
		role := strings.TrimSpace(in.Role)
		if role == "" {
			role = RoleAgent
		}
		a.users[email] = staticEntry{
			user: User{
				ID:          id,
				Email:       email,
				Role:        role,
				DisplayName: strings.TrimSpace(in.DisplayName),
				CreatedAt:   time.Now().UTC(),
			},
			hash: hash,
		}
	}
	return a, nil
}

// Authenticate implements Authenticator.
func (a *StaticAuthenticator) Authenticate(_ context.Context, email, password string) (User, error) {
	entry, ok := a.users[NormalizeEmail(email)]
	if !ok || password == "" {
		burnVerify(password, a.params)
		return User{}, ErrInvalidCredentials
	}
	match, err := VerifyPassword(password, entry.hash)
	if err != nil || !match {
		return User{}, ErrInvalidCredentials
	}
	return entry.user, nil
}

// ParseDevUsers parses "email:password:role;email:password:role".
// The role segment is optional. Blank entries are skipped.
func ParseDevUsers(raw string) ([]CreateUserInput, error) {
	const op = "identity.ParseDevUsers"

	var out []CreateUserInput
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || parts[1] == "" {
			return nil, invalid(op, "expected email:password[:role]")
		}
		in := CreateUserInput{Email: parts[0], Password: parts[1]}
		if len(parts) == 3 {
			in.Role = strings.TrimSpace(parts[2])
		}
		out = append(out, in)
	}
	return out, nil
}
