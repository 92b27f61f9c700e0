package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL (desk.sessions).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const sessionColumns = `
	id, user_id, token_id,
	device_fingerprint, device_name, ip_address, user_agent,
	created_at, last_activity_at, expires_at, is_active`

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TokenID,
		&s.DeviceFingerprint,
		&s.DeviceName,
		&s.IPAddress,
		&s.UserAgent,
		&s.CreatedAt,
		&s.LastActivityAt,
		&s.ExpiresAt,
		&s.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// Insert writes a new active session row and returns its id.
func (s *PostgresStore) Insert(ctx context.Context, row Session) (string, error) {
	id := row.ID
	if id == "" {
		id = newSessionID()
	}

	// Token ids are reserved in desk.issued_token_ids so they stay unique after row deletion.
	_, err := s.pool.Exec(ctx, `
		WITH reserved AS (
			INSERT INTO desk.issued_token_ids (token_id, issued_at)
			VALUES ($3, $8)
			RETURNING token_id
		)
		INSERT INTO desk.sessions (
			id, user_id, token_id,
			device_fingerprint, device_name, ip_address, user_agent,
			created_at, last_activity_at, expires_at, is_active
		)
		SELECT
			$1, $2, reserved.token_id,
			$4, $5, $6, $7,
			$8, $9, $10, TRUE
		FROM reserved
	`, id, row.UserID, row.TokenID,
		row.DeviceFingerprint, row.DeviceName, row.IPAddress, row.UserAgent,
		row.CreatedAt, row.LastActivityAt, row.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return "", ErrDuplicateTokenID
		}
		return "", err
	}

	return id, nil
}

// FindByTokenID loads a session row by token id.
func (s *PostgresStore) FindByTokenID(ctx context.Context, tokenID string) (Session, error) {
	return scanSession(s.pool.QueryRow(ctx, `
		SELECT`+sessionColumns+`
		FROM desk.sessions
		WHERE token_id = $1
	`, tokenID))
}

// FindByID loads a session row by id.
func (s *PostgresStore) FindByID(ctx context.Context, sessionID string) (Session, error) {
	return scanSession(s.pool.QueryRow(ctx, `
		SELECT`+sessionColumns+`
		FROM desk.sessions
		WHERE id = $1
	`, sessionID))
}

// ListActiveByUser returns active, unexpired sessions for a user, newest first.
func (s *PostgresStore) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT`+sessionColumns+`
		FROM desk.sessions
		WHERE user_id = $1
		  AND is_active
		  AND expires_at >= $2
		ORDER BY created_at DESC, id DESC
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SetInactive deactivates a session by id.
func (s *PostgresStore) SetInactive(ctx context.Context, sessionID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE desk.sessions
		SET is_active = FALSE
		WHERE id = $1 AND is_active
	`, sessionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetInactiveByTokenID deactivates the session holding tokenID.
func (s *PostgresStore) SetInactiveByTokenID(ctx context.Context, tokenID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE desk.sessions
		SET is_active = FALSE
		WHERE token_id = $1 AND is_active
	`, tokenID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetInactiveOwned deactivates a session only when id, owner and activity all match.
func (s *PostgresStore) SetInactiveOwned(ctx context.Context, sessionID, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE desk.sessions
		SET is_active = FALSE
		WHERE id = $1 AND user_id = $2 AND is_active
	`, sessionID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetInactiveAllForUserExcept deactivates all of a user's sessions but one.
func (s *PostgresStore) SetInactiveAllForUserExcept(ctx context.Context, userID, exceptTokenID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE desk.sessions
		SET is_active = FALSE
		WHERE user_id = $1 AND token_id <> $2 AND is_active
	`, userID, exceptTokenID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// MarkInactiveExpired deactivates active sessions that expired before the cutoff.
func (s *PostgresStore) MarkInactiveExpired(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE desk.sessions
		SET is_active = FALSE
		WHERE is_active AND expires_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteInactiveBefore removes inactive sessions that expired before the cutoff.
// The token id stays reserved through the UNIQUE index on desk.issued_token_ids.
func (s *PostgresStore) DeleteInactiveBefore(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM desk.sessions
		WHERE NOT is_active AND expires_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Touch updates last_activity_at for an active session.
func (s *PostgresStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE desk.sessions
		SET last_activity_at = GREATEST(last_activity_at, $2)
		WHERE id = $1 AND is_active
	`, sessionID, at)
	return err
}
