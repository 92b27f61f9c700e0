package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Authenticator over PostgreSQL (desk.users).
//
// The pgx pool is owned by the caller; this store never closes it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
	params Argon2idParams
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "desk").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// WithPasswordParams overrides the Argon2id parameters used for new hashes.
func WithPasswordParams(p Argon2idParams) PostgresOption {
	return func(s *PostgresStore) error {
		s.params = p
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "desk",
		params: DefaultArgon2idParams(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// Authenticate verifies email and password against desk.users.
//
// Unknown emails still run one Argon2id verification so both miss paths cost the same.
func (s *PostgresStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	var (
		u    User
		hash string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, role, display_name, created_at, password_hash
		   FROM `+s.table()+`
		  WHERE email = $1 AND is_active`,
		email,
	).Scan(&u.ID, &u.Email, &u.Role, &u.DisplayName, &u.CreatedAt, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		burnVerify(password, s.params)
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	ok, err := VerifyPassword(password, hash)
	if err != nil || !ok {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// CreateUser provisions a staff account with an Argon2id password hash.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	email := NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, invalid(op, "valid email is required")
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = RoleAgent
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	hash, err := HashPassword(in.Password, s.params)
	if err != nil {
		return User{}, err
	}
	id, err := newUserID(now)
	if err != nil {
		return User{}, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+s.table()+` (id, email, role, display_name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, email, role, strings.TrimSpace(in.DisplayName), hash, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		return User{}, err
	}

	return User{
		ID:          id,
		Email:       email,
		Role:        role,
		DisplayName: strings.TrimSpace(in.DisplayName),
		CreatedAt:   now,
	}, nil
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "users"}.Sanitize()
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// burnVerify performs a verification against a fixed hash with the given parameters.
func burnVerify(password string, p Argon2idParams) {
	dummyOnce.Do(func() {
		h, err := HashPassword("servicedesk-timing-equalizer", p)
		if err == nil {
			dummyHash = h
		}
	})
	if dummyHash != "" {
		_, _ = VerifyPassword(password, dummyHash)
	}
}
