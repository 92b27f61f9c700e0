package identity

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Roles understood by the service desk. Authorization beyond carrying the role is out of scope.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleTechnician = "technician"
	RoleAgent      = "agent"
)

// User is the authenticated staff principal.
type User struct {
	ID          string
	Email       string
	Role        string
	DisplayName string
	CreatedAt   time.Time
}

// Authenticator resolves an email/password pair to a user.
//
// Implementations return ErrInvalidCredentials for every credential miss and
// reserve other errors for infrastructure failures.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (User, error)
}

// CreateUserInput describes a staff account to provision.
type CreateUserInput struct {
	Email       string
	Password    string
	Role        string
	DisplayName string
	Now         time.Time
}

func newUserID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
