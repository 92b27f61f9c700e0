package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"servicedesk/cmd/identity"
	"servicedesk/cmd/internal/auth/device"
	"servicedesk/cmd/internal/auth/session"
)

// Handler wires HTTP auth endpoints to the authenticator and session manager.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	auth     identity.Authenticator
	sessions *session.Manager
	audit    Auditor
	limiter  *ipLimiter
	now      func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithAuditor overrides the default log-backed auditor.
func WithAuditor(a Auditor) HandlerOption {
	return func(h *Handler) {
		if a != nil {
			h.audit = a
		}
	}
}

// WithClock overrides the clock used by the login rate limiter.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, auth identity.Authenticator, sessions *session.Manager, opts ...HandlerOption) (*Handler, error) {
	if auth == nil || sessions == nil {
		return nil, errors.New("authapi: authenticator and session manager are required")
	}
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(cfg.CookieName) == "" {
		cfg.CookieName = DefaultConfig().CookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		auth:     auth,
		sessions: sessions,
		audit:    NewLogAuditor(log),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if cfg.LoginRatePerMinute > 0 {
		h.limiter = newIPLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst, cfg.LoginLimiterIdle)
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("POST /auth/logout_others", h.requireAuth(h.handleLogoutOthers))
	mux.HandleFunc("GET /auth/sessions", h.requireAuth(h.handleListSessions))
	mux.HandleFunc("GET /auth/sessions/{id}", h.requireAuth(h.handleGetSession))
	mux.HandleFunc("DELETE /auth/sessions/{id}", h.requireAuth(h.handleRevokeSession))
	mux.HandleFunc("GET /me", h.requireAuth(h.handleMe))
}

// authenticate validates the request's candidate tokens in order and returns the first
// live identity. A stale cookie does not shadow a valid bearer token.
func (h *Handler) authenticate(r *http.Request) (session.Identity, error) {
	for _, token := range h.requestTokens(r) {
		ident, err := h.sessions.Validate(r.Context(), token)
		if err == nil {
			return ident, nil
		}
		if !errors.Is(err, session.ErrUnauthenticated) {
			return session.Identity{}, err
		}
	}
	return session.Identity{}, session.ErrUnauthenticated
}

type authedHandler func(w http.ResponseWriter, r *http.Request, ident session.Identity)

// requireAuth validates the request token and passes the caller identity through.
// Every rejection is the same 401.
func (h *Handler) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := h.authenticate(r)
		if errors.Is(err, session.ErrUnauthenticated) {
			writeUnauthorized(w)
			return
		}
		if err != nil {
			h.log.Error("auth.validate.fail", "err", err)
			writeServerError(w)
			return
		}

		if err := h.sessions.Touch(r.Context(), ident); err != nil {
			h.log.Warn("auth.touch.fail", "err", err, "session_id", ident.SessionID)
		}

		next(w, r, ident)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	email := identity.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	if h.limiter != nil {
		if ok, retryAfter := h.limiter.allow(ip, h.now()); !ok {
			h.audit.Record(ctx, AuditEvent{
				Action: auditLoginRateLimited, IP: ip, UserAgent: ua,
				Meta: map[string]any{"email": email, "retry_after_s": int64(retryAfter.Seconds())},
			})
			writeRateLimited(w, retryAfter)
			return
		}
	}

	user, err := h.auth.Authenticate(ctx, email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		h.audit.Record(ctx, AuditEvent{
			Action: auditLoginFailed, IP: ip, UserAgent: ua,
			Meta: map[string]any{"email": email},
		})
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	}
	if err != nil {
		h.log.Error("auth.login.authenticate.fail", "err", err)
		writeServerError(w)
		return
	}

	issued, err := h.sessions.CreateSession(ctx, user.ID, user.Email, user.Role, device.Resolve(ua, ip))
	if err != nil {
		h.log.Error("auth.login.session.fail", "err", err, "user_id", user.ID)
		writeServerError(w)
		return
	}

	h.audit.Record(ctx, AuditEvent{
		Action: auditLoginSuccess, UserID: user.ID, SessionID: issued.Session.ID, IP: ip, UserAgent: ua,
		Meta: map[string]any{"device": issued.Session.DeviceName},
	})

	h.setSessionCookie(w, issued.Token, h.sessions.Config().SessionTTL)

	resp := loginResponse{
		User:    toUserResponse(user),
		Session: toSessionView(issued.Session, issued.Session.ID),
	}
	if h.cfg.ExposeToken {
		resp.Token = issued.Token
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogout always succeeds from the client's point of view.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ident, err := h.authenticate(r)
	switch {
	case err == nil:
		h.audit.Record(ctx, AuditEvent{
			Action: auditLogout, UserID: ident.UserID, SessionID: ident.SessionID,
			IP: clientIP(r, h.cfg.TrustProxy), UserAgent: r.UserAgent(),
		})
		if err := h.sessions.Logout(ctx, ident.TokenID); err != nil {
			h.log.Error("auth.logout.fail", "err", err)
		}
	case errors.Is(err, session.ErrUnauthenticated):
		for _, token := range h.requestTokens(r) {
			if err := h.sessions.LogoutToken(ctx, token); err != nil {
				h.log.Error("auth.logout.fail", "err", err)
			}
		}
	default:
		h.log.Error("auth.logout.fail", "err", err)
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutOthers(w http.ResponseWriter, r *http.Request, ident session.Identity) {
	n, err := h.sessions.LogoutAllDevices(r.Context(), ident.UserID, ident.TokenID)
	if err != nil {
		h.log.Error("auth.logout_others.fail", "err", err, "user_id", ident.UserID)
		writeServerError(w)
		return
	}

	h.audit.Record(r.Context(), AuditEvent{
		Action: auditLogoutOthers, UserID: ident.UserID, SessionID: ident.SessionID,
		IP: clientIP(r, h.cfg.TrustProxy), UserAgent: r.UserAgent(),
		Meta: map[string]any{"revoked": n},
	})
	writeJSON(w, http.StatusOK, revokedResponse{Revoked: n})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request, ident session.Identity) {
	rows, err := h.sessions.ListSessions(r.Context(), ident.UserID)
	if err != nil {
		h.log.Error("auth.sessions.list.fail", "err", err, "user_id", ident.UserID)
		writeServerError(w)
		return
	}

	out := sessionsResponse{Sessions: make([]sessionView, 0, len(rows))}
	for _, s := range rows {
		out.Sessions = append(out.Sessions, toSessionView(s, ident.SessionID))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request, ident session.Identity) {
	s, err := h.sessions.Session(r.Context(), r.PathValue("id"), ident.UserID)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	if err != nil {
		h.log.Error("auth.sessions.get.fail", "err", err)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(s, ident.SessionID))
}

func (h *Handler) handleRevokeSession(w http.ResponseWriter, r *http.Request, ident session.Identity) {
	id := r.PathValue("id")
	err := h.sessions.RevokeByID(r.Context(), id, ident.UserID)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "session not found")
		return
	}
	if err != nil {
		h.log.Error("auth.sessions.revoke.fail", "err", err)
		writeServerError(w)
		return
	}

	h.audit.Record(r.Context(), AuditEvent{
		Action: auditRevoke, UserID: ident.UserID, SessionID: id,
		IP: clientIP(r, h.cfg.TrustProxy), UserAgent: r.UserAgent(),
	})
	if id == ident.SessionID {
		h.clearSessionCookie(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, _ *http.Request, ident session.Identity) {
	writeJSON(w, http.StatusOK, meResponse{
		UserID:    ident.UserID,
		Email:     ident.Email,
		Role:      ident.Role,
		SessionID: ident.SessionID,
		ExpiresAt: ident.ExpiresAt,
	})
}
