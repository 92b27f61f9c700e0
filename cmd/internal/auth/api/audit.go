package authapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit actions.
const (
	auditLoginSuccess     = "auth.login.success"
	auditLoginFailed      = "auth.login.failed"
	auditLoginRateLimited = "auth.login.rate_limited"
	auditLogout           = "auth.logout"
	auditLogoutOthers     = "auth.logout_others"
	auditRevoke           = "auth.session.revoke"
)

// AuditEvent is one security-relevant action.
type AuditEvent struct {
	Action    string
	UserID    string
	SessionID string
	IP        string
	UserAgent string
	Meta      map[string]any
}

// Auditor records audit events. Implementations must not fail the request.
type Auditor interface {
	Record(ctx context.Context, ev AuditEvent)
}

// PostgresAuditor writes events to desk.audit_log.
type PostgresAuditor struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresAuditor returns an Auditor backed by pool.
func NewPostgresAuditor(pool *pgxpool.Pool, log *slog.Logger) *PostgresAuditor {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresAuditor{pool: pool, log: log}
}

func (a *PostgresAuditor) Record(ctx context.Context, ev AuditEvent) {
	if a == nil || a.pool == nil || strings.TrimSpace(ev.Action) == "" {
		return
	}

	var metaVal *string
	if len(ev.Meta) > 0 {
		if b, err := json.Marshal(ev.Meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO desk.audit_log (
			user_id, session_id, action, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, now(), $4, $5, $6::jsonb)
	`, nilIfEmpty(ev.UserID), nilIfEmpty(ev.SessionID), ev.Action, nilIfEmpty(ev.IP), nilIfEmpty(ev.UserAgent), metaVal)
	if err != nil {
		a.log.Error("auth.audit.insert.fail", "err", err, "action", ev.Action)
	}
}

// LogAuditor writes events to a logger. Used when no database is configured.
type LogAuditor struct {
	log *slog.Logger
}

// NewLogAuditor returns an Auditor that logs at info level.
func NewLogAuditor(log *slog.Logger) *LogAuditor {
	if log == nil {
		log = slog.Default()
	}
	return &LogAuditor{log: log}
}

func (a *LogAuditor) Record(ctx context.Context, ev AuditEvent) {
	attrs := []any{"action", ev.Action, "user_id", ev.UserID, "session_id", ev.SessionID, "ip", ev.IP}
	for k, v := range ev.Meta {
		attrs = append(attrs, k, v)
	}
	a.log.InfoContext(ctx, "audit", attrs...)
}

func nilIfEmpty(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
