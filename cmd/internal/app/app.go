// Package app wires the servicedesk server runtime: config, logging, persistence,
// session management, HTTP routes and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"servicedesk/cmd/identity"
	authapi "servicedesk/cmd/internal/auth/api"
	"servicedesk/cmd/internal/auth/session"
	"servicedesk/cmd/internal/db"
)

// App is the servicedesk server runtime. It owns the DB pool and the HTTP handler tree.
type App struct {
	cfg Config
	log Logger

	pool     *pgxpool.Pool
	sessions *session.Manager
	auth     *authapi.Handler

	registry    *prometheus.Registry
	httpMetrics *httpMetrics

	handler http.Handler
}

// backend groups the persistence-facing collaborators chosen by newBackend.
type backend struct {
	pool     *pgxpool.Pool
	sessions session.Store
	authn    identity.Authenticator
	auditor  authapi.Auditor
}

// New constructs a fully wired App from cfg. Session and auth settings are read from the
// environment. Postgres is used when DESK_DATABASE_URL is set; otherwise everything is in memory.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	authCfg := authapi.LoadConfigFromEnv()

	if err := ValidateSecurityConfig(cfg, authCfg); err != nil {
		return nil, err
	}

	return newApp(ctx, cfg, log, sessCfg, authCfg)
}

func newApp(ctx context.Context, cfg Config, log Logger, sessCfg session.Config, authCfg authapi.Config) (*App, error) {
	a := &App{cfg: cfg, log: log}
	if cfg.MetricsEnabled {
		a.registry = newRegistry()
		a.httpMetrics = newHTTPMetrics(a.registry)
	}

	be, err := newBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.pool = be.pool

	a.sessions, err = newSessionManager(sessCfg, be.sessions, log, a.registry)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.auth, err = authapi.NewHandler(log, authCfg, be.authn, a.sessions, authapi.WithAuditor(be.auditor))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.handler = a.routes()
	return a, nil
}

func newSessionManager(cfg session.Config, store session.Store, log Logger, reg *prometheus.Registry) (*session.Manager, error) {
	opts := []session.Option{session.WithLogger(log)}
	if reg != nil {
		opts = append(opts, session.WithMetrics(session.NewMetrics(reg)))
	}
	return session.NewManager(cfg, store, opts...)
}

// newBackend decides between Postgres-backed persistence and the in-memory dev backend.
func newBackend(ctx context.Context, cfg Config, log Logger) (backend, error) {
	devUsers, err := identity.ParseDevUsers(cfg.DevUsers)
	if err != nil {
		return backend{}, fmt.Errorf("DESK_DEV_USERS: %w", err)
	}

	if !cfg.DBEnabled() {
		authn, err := identity.NewStaticAuthenticator(identity.DefaultArgon2idParams(), devUsers...)
		if err != nil {
			return backend{}, err
		}
		log.Info("db.disabled.inmemory_store", "dev_users", len(devUsers))
		return backend{
			sessions: session.NewMemoryStore(),
			authn:    authn,
			auditor:  authapi.NewLogAuditor(log),
		}, nil
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL, db.DirectionUp); err != nil && !errors.Is(err, db.ErrNoChange) {
			return backend{}, err
		}
		log.Info("db.migrate.done")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return backend{}, err
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return backend{}, err
	}
	for _, in := range devUsers {
		if _, err := users.CreateUser(ctx, in); err != nil && !identity.IsConflict(err) {
			pool.Close()
			return backend{}, fmt.Errorf("seed dev user: %w", err)
		}
	}

	log.Info("db.enabled.postgres_store", "dev_users", len(devUsers))
	return backend{
		pool:     pool,
		sessions: session.NewPostgresStore(pool),
		authn:    users,
		auditor:  authapi.NewPostgresAuditor(pool, log),
	}, nil
}

// Handler returns the root HTTP handler including middleware.
func (a *App) Handler() http.Handler { return a.handler }

// Sessions exposes the session manager.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"env", a.cfg.Env,
		"db_enabled", a.pool != nil,
		"token_format", a.sessions.Config().TokenFormat,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// Close releases the DB pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
