package app

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

// Run is the CLI entrypoint used by cmd/servicedesk.
// It returns an error instead of calling os.Exit to keep defers effective.
func Run() error {
	LoadDotEnv()

	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}

// LoadDotEnv loads DESK_ENV_FILE (default ".env") into the process environment.
// Variables already set are left untouched and a missing file is not an error.
func LoadDotEnv() {
	path := EnvString("DESK_ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("dotenv.load.fail", "path", path, "err", err)
	}
}
