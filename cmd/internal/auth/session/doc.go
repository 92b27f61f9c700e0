// Package session implements the multi-device session core.
//
// A user may hold several independently revocable sessions. Each session row
// carries a unique token id that is embedded in a signed, short-lived token
// (JWT HS256 by default, PASETO v4.local optionally). A token is necessary but
// not sufficient: Validate always corroborates it against the session row so
// revoked-but-unexpired tokens are rejected.
//
// Expiry is a derived predicate evaluated at read time. There are no
// per-session timers; expired rows are reconciled by CleanupExpiredSessions,
// which is triggered externally (see cmd/sessionsweep).
//
// All cross-request coordination is delegated to the Store. The package owns
// no locks and no shared in-memory session table.
//
// Transport (HTTP/cookies) is out of scope here.
package session
