package session

import (
	"context"
	"time"
)

// State is the derived lifecycle state of a session at a given instant.
type State string

const (
	StateActive  State = "active"
	StateRevoked State = "revoked"
	StateExpired State = "expired"
)

// Session mirrors the desk.sessions row.
//
// Device fields and timestamps other than LastActivityAt are written once at creation.
type Session struct {
	ID                string
	UserID            string
	TokenID           string
	DeviceFingerprint string
	DeviceName        string
	IPAddress         string
	UserAgent         string
	CreatedAt         time.Time
	LastActivityAt    time.Time
	ExpiresAt         time.Time
	IsActive          bool
}

// State derives the session state at now. Revoked wins over expired.
func (s Session) State(now time.Time) State {
	switch {
	case !s.IsActive:
		return StateRevoked
	case now.After(s.ExpiresAt):
		return StateExpired
	default:
		return StateActive
	}
}

// Alive reports whether the session can still authenticate requests at now.
func (s Session) Alive(now time.Time) bool {
	return s.State(now) == StateActive
}

// Store abstracts persistence for session rows.
//
// Every mutating method is a single atomic step in the backing store; callers never
// read-then-write to decide ownership or activity.
type Store interface {
	// Insert persists a new active row. When s.ID is empty the store assigns one.
	// Returns ErrDuplicateTokenID if s.TokenID was ever issued before.
	Insert(ctx context.Context, s Session) (sessionID string, err error)

	// FindByTokenID loads a row by token id or returns ErrSessionNotFound.
	FindByTokenID(ctx context.Context, tokenID string) (Session, error)

	// FindByID loads a row by session id or returns ErrSessionNotFound.
	FindByID(ctx context.Context, sessionID string) (Session, error)

	// ListActiveByUser returns the user's active, unexpired rows, newest first.
	ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]Session, error)

	// SetInactive deactivates one row. Reports whether a row changed.
	SetInactive(ctx context.Context, sessionID string) (bool, error)

	// SetInactiveByTokenID deactivates the row holding tokenID. Reports whether a row changed.
	SetInactiveByTokenID(ctx context.Context, tokenID string) (bool, error)

	// SetInactiveOwned deactivates sessionID only if it exists, belongs to userID and is active.
	SetInactiveOwned(ctx context.Context, sessionID, userID string) (bool, error)

	// SetInactiveAllForUserExcept deactivates every active row of userID except the one
	// holding exceptTokenID, and returns how many rows changed.
	SetInactiveAllForUserExcept(ctx context.Context, userID, exceptTokenID string) (int, error)

	// MarkInactiveExpired deactivates active rows whose expiry is before the cutoff.
	MarkInactiveExpired(ctx context.Context, before time.Time) (int, error)

	// DeleteInactiveBefore removes inactive rows whose expiry is before the cutoff.
	DeleteInactiveBefore(ctx context.Context, before time.Time) (int, error)

	// Touch records activity on an active row. Never moves LastActivityAt backwards.
	Touch(ctx context.Context, sessionID string, at time.Time) error
}
