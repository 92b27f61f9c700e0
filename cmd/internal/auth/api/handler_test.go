package authapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicedesk/cmd/identity"
	"servicedesk/cmd/internal/auth/session"
)

const (
	uaDesktop = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.2478.51"
	uaPhone   = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36"
)

type recordingAuditor struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (a *recordingAuditor) Record(_ context.Context, ev AuditEvent) {
	a.mu.Lock()
	a.events = append(a.events, ev)
	a.mu.Unlock()
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, ev := range a.events {
		out = append(out, ev.Action)
	}
	return out
}

type testServer struct {
	mux   *http.ServeMux
	audit *recordingAuditor
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	auth, err := identity.NewStaticAuthenticator(
		identity.Argon2idParams{MemoryKiB: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		identity.CreateUserInput{Email: "alice@desk.test", Password: "alice-pw", Role: identity.RoleTechnician},
		identity.CreateUserInput{Email: "bob@desk.test", Password: "bob-pw", Role: identity.RoleManager},
	)
	require.NoError(t, err)

	scfg := session.DefaultConfig()
	scfg.SigningSecret = []byte(strings.Repeat("k", 48))
	mgr, err := session.NewManager(scfg, session.NewMemoryStore(), session.WithLogger(logger))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.LoginRatePerMinute = 0
	if mutate != nil {
		mutate(&cfg)
	}

	audit := &recordingAuditor{}
	h, err := NewHandler(logger, cfg, auth, mgr, WithAuditor(audit))
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	return &testServer{mux: mux, audit: audit}
}

func (s *testServer) do(t *testing.T, method, path, body string, prepare func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "192.0.2.10:5555"
	if prepare != nil {
		prepare(req)
	}
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) login(t *testing.T, email, password, ua string) (*http.Cookie, loginResponse) {
	t.Helper()

	rr := s.do(t, http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, func(r *http.Request) {
		r.Header.Set("User-Agent", ua)
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	for _, c := range rr.Result().Cookies() {
		if c.Name == "desk_session" {
			return c, resp
		}
	}
	t.Fatalf("session cookie not set")
	return nil, resp
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value}) }
}

func TestLogin_SetsHardenedCookie(t *testing.T) {
	s := newTestServer(t, nil)

	c, resp := s.login(t, "Alice@Desk.test", "alice-pw", uaDesktop)

	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int((8 * time.Hour).Seconds()), c.MaxAge)

	assert.Equal(t, "alice@desk.test", resp.User.Email)
	assert.Equal(t, identity.RoleTechnician, resp.User.Role)
	assert.Equal(t, "Edge Desktop", resp.Session.DeviceName)
	assert.Equal(t, "192.0.2.10", resp.Session.IPAddress)
	assert.True(t, resp.Session.Current)
	assert.Empty(t, resp.Token, "token is not exposed in the body by default")

	assert.Equal(t, []string{auditLoginSuccess}, s.audit.actions())
}

func TestLogin_ExposeTokenAllowsBearer(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.ExposeToken = true })

	_, resp := s.login(t, "bob@desk.test", "bob-pw", "curl/8.5.0")
	require.NotEmpty(t, resp.Token)

	rr := s.do(t, http.MethodGet, "/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+resp.Token)
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var me meResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, resp.User.ID, me.UserID)
	assert.Equal(t, identity.RoleManager, me.Role)
	assert.Equal(t, resp.Session.ID, me.SessionID)
}

func TestStaleCookieDoesNotShadowBearer(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.ExposeToken = true })

	stale, _ := s.login(t, "bob@desk.test", "bob-pw", uaDesktop)
	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/auth/logout", "", withCookie(stale)).Code)

	_, live := s.login(t, "bob@desk.test", "bob-pw", "curl/8.5.0")
	both := func(r *http.Request) {
		withCookie(stale)(r)
		r.Header.Set("Authorization", "Bearer "+live.Token)
	}

	rr := s.do(t, http.MethodGet, "/me", "", both)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var me meResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, live.Session.ID, me.SessionID)

	rr = s.do(t, http.MethodPost, "/auth/logout", "", both)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+live.Token)
	}).Code, "logout ends the session behind the bearer token")
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		code int
		err  string
	}{
		{"wrong password", `{"email":"alice@desk.test","password":"nope"}`, http.StatusUnauthorized, "invalid_credentials"},
		{"unknown user", `{"email":"eve@desk.test","password":"alice-pw"}`, http.StatusUnauthorized, "invalid_credentials"},
		{"missing password", `{"email":"alice@desk.test"}`, http.StatusBadRequest, "invalid_request"},
		{"unknown field", `{"email":"a","password":"b","admin":true}`, http.StatusBadRequest, "invalid_json"},
		{"trailing data", `{"email":"a","password":"b"}{}`, http.StatusBadRequest, "invalid_json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/auth/login", tc.body, nil)
			require.Equal(t, tc.code, rr.Code)

			var er errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &er))
			assert.Equal(t, tc.err, er.Error.Code)
			assert.Empty(t, rr.Result().Cookies())
		})
	}
}

func TestLogin_RateLimitedPerIP(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.LoginRatePerMinute = 1
		c.LoginBurst = 2
	})

	body := `{"email":"alice@desk.test","password":"nope"}`
	for i := 0; i < 2; i++ {
		rr := s.do(t, http.MethodPost, "/auth/login", body, nil)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}

	rr := s.do(t, http.MethodPost, "/auth/login", body, nil)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	rr = s.do(t, http.MethodPost, "/auth/login", body, func(r *http.Request) { r.RemoteAddr = "198.51.100.7:1" })
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "other clients are not affected")

	assert.Contains(t, s.audit.actions(), auditLoginRateLimited)
}

func TestMe_RequiresAuth(t *testing.T) {
	s := newTestServer(t, nil)

	for _, prepare := range []func(*http.Request){
		nil,
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") },
		func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "desk_session", Value: "garbage"}) },
		func(r *http.Request) { r.Header.Set("Authorization", "Basic Zm9vOmJhcg==") },
	} {
		rr := s.do(t, http.MethodGet, "/me", "", prepare)
		require.Equal(t, http.StatusUnauthorized, rr.Code)

		var er errorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &er))
		assert.Equal(t, "unauthorized", er.Error.Code)
		assert.Equal(t, "not authenticated", er.Error.Message)
	}
}

func TestLogout_InvalidatesOnlyThatDevice(t *testing.T) {
	s := newTestServer(t, nil)

	laptop, _ := s.login(t, "alice@desk.test", "alice-pw", uaDesktop)
	phone, _ := s.login(t, "alice@desk.test", "alice-pw", uaPhone)

	rr := s.do(t, http.MethodPost, "/auth/logout", "", withCookie(laptop))
	require.Equal(t, http.StatusNoContent, rr.Code)
	cleared := rr.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/me", "", withCookie(laptop)).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/me", "", withCookie(phone)).Code)
}

func TestLogout_AlwaysNoContent(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/auth/logout", "", nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/auth/logout", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-token")
	}).Code)
}

func TestSessions_ListLogoutOthersAndRevoke(t *testing.T) {
	s := newTestServer(t, nil)

	current, _ := s.login(t, "alice@desk.test", "alice-pw", uaDesktop)
	_, phone := s.login(t, "alice@desk.test", "alice-pw", uaPhone)
	_, third := s.login(t, "alice@desk.test", "alice-pw", "curl/8.5.0")
	bobCookie, bob := s.login(t, "bob@desk.test", "bob-pw", uaDesktop)

	rr := s.do(t, http.MethodGet, "/auth/sessions", "", withCookie(current))
	require.Equal(t, http.StatusOK, rr.Code)
	var list sessionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 3)
	currents := 0
	for _, v := range list.Sessions {
		if v.Current {
			currents++
			assert.Equal(t, "Edge Desktop", v.DeviceName)
		}
	}
	assert.Equal(t, 1, currents)

	rr = s.do(t, http.MethodGet, "/auth/sessions/"+phone.Session.ID, "", withCookie(current))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/auth/sessions/"+bob.Session.ID, "", withCookie(current))
	assert.Equal(t, http.StatusNotFound, rr.Code, "foreign sessions look missing")

	rr = s.do(t, http.MethodDelete, "/auth/sessions/"+bob.Session.ID, "", withCookie(current))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/me", "", withCookie(bobCookie)).Code)

	rr = s.do(t, http.MethodDelete, "/auth/sessions/"+third.Session.ID, "", withCookie(current))
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = s.do(t, http.MethodDelete, "/auth/sessions/"+third.Session.ID, "", withCookie(current))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodPost, "/auth/logout_others", "", withCookie(current))
	require.Equal(t, http.StatusOK, rr.Code)
	var revoked revokedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &revoked))
	assert.Equal(t, 1, revoked.Revoked)

	rr = s.do(t, http.MethodGet, "/auth/sessions", "", withCookie(current))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 1)
	assert.True(t, list.Sessions[0].Current)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/me", "", withCookie(bobCookie)).Code)

	assert.Subset(t, s.audit.actions(), []string{auditRevoke, auditLogoutOthers})
}

func TestRevokeCurrentSessionClearsCookie(t *testing.T) {
	s := newTestServer(t, nil)

	c, resp := s.login(t, "alice@desk.test", "alice-pw", uaDesktop)

	rr := s.do(t, http.MethodDelete, "/auth/sessions/"+resp.Session.ID, "", withCookie(c))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, rr.Result().Cookies(), 1)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/me", "", withCookie(c)).Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:443"
	r.Header.Set("X-Forwarded-For", "bogus, 10.1.2.3, 10.0.0.1")

	assert.Equal(t, "203.0.113.9", clientIP(r, false))
	assert.Equal(t, "10.1.2.3", clientIP(r, true))

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-IP", "10.9.9.9")
	assert.Equal(t, "10.9.9.9", clientIP(r, true))
}
