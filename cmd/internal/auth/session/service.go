package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"servicedesk/cmd/internal/auth/device"
)

// Manager implements the multi-device session lifecycle.
//
// It issues tokens bound to persisted session rows, validates tokens against those rows,
// and supports single, bulk and by-id revocation plus the expiry sweep.
// Manager holds no mutable state of its own; concurrency is delegated to the Store.
type Manager struct {
	cfg     Config
	store   Store
	codec   Codec
	log     *slog.Logger
	metrics *Metrics

	now        func() time.Time
	newTokenID func() string
}

// Option configures optional Manager dependencies.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(mt *Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithClock overrides the clock for the manager and the codec it builds.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithCodec replaces the codec selected by Config.TokenFormat.
func WithCodec(c Codec) Option {
	return func(m *Manager) { m.codec = c }
}

// WithTokenIDGenerator overrides token id generation. Intended for tests.
func WithTokenIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newTokenID = gen
		}
	}
}

// Issued is the result of CreateSession.
type Issued struct {
	Token   string
	Session Session
}

// Identity is the authenticated caller behind a validated token.
type Identity struct {
	UserID         string
	Email          string
	Role           string
	SessionID      string
	TokenID        string
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// CleanupResult reports what one sweep changed.
type CleanupResult struct {
	Deactivated int
	Deleted     int
}

// NewManager validates cfg and wires a Manager around store.
func NewManager(cfg Config, store Store, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrConfig
	}

	m := &Manager{
		cfg:        cfg,
		store:      store,
		log:        slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
		newTokenID: newTokenID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.codec == nil {
		codec, err := NewCodec(cfg, WithCodecClock(m.now))
		if err != nil {
			return nil, err
		}
		m.codec = codec
	}
	return m, nil
}

// Config returns the manager's configuration. SigningSecret is omitted.
func (m *Manager) Config() Config {
	cfg := m.cfg
	cfg.SigningSecret = nil
	return cfg
}

// CreateSession issues a token and persists a new active session for userID.
// Existing sessions of the user are never touched.
func (m *Manager) CreateSession(ctx context.Context, userID, email, role string, dev device.Info) (Issued, error) {
	now := m.now()
	tokenID := m.newTokenID()

	tok, err := m.codec.Sign(userID, email, role, tokenID, m.cfg.SessionTTL)
	if err != nil {
		return Issued{}, err
	}

	// Codecs encode timestamps at whole-second precision. The row takes its
	// window from the token so both expire at the same instant.
	claims, err := m.codec.Verify(tok)
	if err != nil {
		return Issued{}, err
	}
	expiresAt := claims.ExpiresAt.UTC()
	if !claims.IssuedAt.IsZero() {
		now = claims.IssuedAt.UTC()
	}

	row := Session{
		ID:                newSessionID(),
		UserID:            userID,
		TokenID:           tokenID,
		DeviceFingerprint: dev.Fingerprint,
		DeviceName:        dev.Name,
		IPAddress:         dev.IPAddress,
		UserAgent:         dev.UserAgent,
		CreatedAt:         now,
		LastActivityAt:    now,
		ExpiresAt:         expiresAt,
		IsActive:          true,
	}

	id, err := m.store.Insert(ctx, row)
	if err != nil {
		m.log.Error("session.create.fail", "user_id", userID, "err", err)
		return Issued{}, err
	}
	row.ID = id

	m.metrics.sessionCreated()
	m.log.Info("session.create",
		"user_id", userID,
		"session_id", id,
		"device", dev.Name,
		"fingerprint", dev.Fingerprint,
	)

	return Issued{Token: tok, Session: row}, nil
}

// Validate resolves a token to the caller's identity.
//
// Every rejection (bad token, unknown token id, owner mismatch, revoked or expired row)
// returns ErrUnauthenticated. Store failures are returned unchanged.
func (m *Manager) Validate(ctx context.Context, token string) (Identity, error) {
	claims, err := m.codec.Verify(token)
	if err != nil {
		m.reject(resultInvalidToken, "", "")
		return Identity{}, ErrUnauthenticated
	}

	row, err := m.store.FindByTokenID(ctx, claims.TokenID)
	if errors.Is(err, ErrSessionNotFound) {
		m.reject(resultUnknownSession, claims.UserID, "")
		return Identity{}, ErrUnauthenticated
	}
	if err != nil {
		m.metrics.validation(resultError)
		return Identity{}, err
	}

	if row.UserID != claims.UserID {
		m.reject(resultUnknownSession, claims.UserID, row.ID)
		return Identity{}, ErrUnauthenticated
	}

	switch row.State(m.now()) {
	case StateRevoked:
		m.reject(resultRevoked, row.UserID, row.ID)
		return Identity{}, ErrUnauthenticated
	case StateExpired:
		m.reject(resultExpired, row.UserID, row.ID)
		return Identity{}, ErrUnauthenticated
	}

	m.metrics.validation(resultOK)
	return Identity{
		UserID:         row.UserID,
		Email:          claims.Email,
		Role:           claims.Role,
		SessionID:      row.ID,
		TokenID:        row.TokenID,
		ExpiresAt:      row.ExpiresAt,
		LastActivityAt: row.LastActivityAt,
	}, nil
}

func (m *Manager) reject(result, userID, sessionID string) {
	m.metrics.validation(result)
	m.log.Debug("session.validate.reject", "result", result, "user_id", userID, "session_id", sessionID)
}

// Touch records activity on the caller's session, at most once per TouchInterval.
// Activity never extends expiry.
func (m *Manager) Touch(ctx context.Context, ident Identity) error {
	if ident.SessionID == "" {
		return nil
	}
	now := m.now()
	if now.Sub(ident.LastActivityAt) < m.cfg.TouchInterval {
		return nil
	}
	return m.store.Touch(ctx, ident.SessionID, now)
}

// Logout deactivates the session holding tokenID. Unknown or already inactive ids succeed.
func (m *Manager) Logout(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	changed, err := m.store.SetInactiveByTokenID(ctx, tokenID)
	if err != nil {
		return err
	}
	if changed {
		m.metrics.revoked(revokeLogout, 1)
		m.log.Info("session.logout", "token_hint", tokenHint(tokenID))
	}
	return nil
}

// LogoutToken logs out the session behind a raw token.
// A token that fails verification is ignored.
func (m *Manager) LogoutToken(ctx context.Context, token string) error {
	claims, err := m.codec.Verify(token)
	if err != nil {
		return nil
	}
	return m.Logout(ctx, claims.TokenID)
}

// LogoutAllDevices deactivates every active session of userID except the one holding
// exceptTokenID, and returns how many sessions were deactivated.
func (m *Manager) LogoutAllDevices(ctx context.Context, userID, exceptTokenID string) (int, error) {
	n, err := m.store.SetInactiveAllForUserExcept(ctx, userID, exceptTokenID)
	if err != nil {
		return 0, err
	}
	m.metrics.revoked(revokeOthers, n)
	m.log.Info("session.logout_others", "user_id", userID, "revoked", n)
	return n, nil
}

// RevokeByID deactivates one of the caller's own sessions.
// Missing, foreign and already inactive sessions all yield ErrNotFound.
func (m *Manager) RevokeByID(ctx context.Context, sessionID, requestingUserID string) error {
	if sessionID == "" || requestingUserID == "" {
		return ErrNotFound
	}
	ok, err := m.store.SetInactiveOwned(ctx, sessionID, requestingUserID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	m.metrics.revoked(revokeByID, 1)
	m.log.Info("session.revoke", "user_id", requestingUserID, "session_id", sessionID)
	return nil
}

// Session returns one session owned by requestingUserID, or ErrNotFound.
func (m *Manager) Session(ctx context.Context, sessionID, requestingUserID string) (Session, error) {
	row, err := m.store.FindByID(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if row.UserID != requestingUserID {
		return Session{}, ErrNotFound
	}
	return row, nil
}

// ListSessions returns the user's active sessions, newest first.
func (m *Manager) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	return m.store.ListActiveByUser(ctx, userID, m.now())
}

// CleanupExpiredSessions deactivates active sessions past expiry and, when
// InactiveRetention is set, deletes inactive rows older than the retention window.
// Running it twice in a row reports zero deactivations the second time.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) (CleanupResult, error) {
	now := m.now()

	var res CleanupResult
	n, err := m.store.MarkInactiveExpired(ctx, now)
	if err != nil {
		return res, err
	}
	res.Deactivated = n
	m.metrics.cleanup("deactivated", n)
	m.metrics.revoked(revokeCleanupSweep, n)

	if m.cfg.InactiveRetention > 0 {
		d, err := m.store.DeleteInactiveBefore(ctx, now.Add(-m.cfg.InactiveRetention))
		if err != nil {
			return res, err
		}
		res.Deleted = d
		m.metrics.cleanup("deleted", d)
	}

	m.log.Info("session.cleanup", "deactivated", res.Deactivated, "deleted", res.Deleted)
	return res, nil
}

func tokenHint(tokenID string) string {
	if len(tokenID) <= 8 {
		return tokenID
	}
	return tokenID[:8]
}
