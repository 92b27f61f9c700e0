package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"servicedesk/cmd/internal/auth/session"
)

// RunSweep is the entrypoint used by cmd/sessionsweep: one cleanup pass against Postgres.
func RunSweep() error {
	LoadDotEnv()

	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	if !cfg.DBEnabled() {
		return errors.New("sessionsweep: DESK_DATABASE_URL is required")
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	mgr, err := newSessionManager(sessCfg, session.NewPostgresStore(pool), log, nil)
	if err != nil {
		return err
	}

	_, err = Sweep(ctx, mgr, log)
	return err
}

// Sweep runs one cleanup pass and logs the outcome as "sweep.done".
func Sweep(ctx context.Context, mgr *session.Manager, log Logger) (session.CleanupResult, error) {
	start := time.Now()

	res, err := mgr.CleanupExpiredSessions(ctx)
	if err != nil {
		log.Error("sweep.fail", "err", err, "duration_ms", time.Since(start).Milliseconds())
		return res, err
	}

	log.Info("sweep.done",
		"deactivated", res.Deactivated,
		"deleted", res.Deleted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
