package app

import "time"

// Environment names recognized by DESK_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	Env string

	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool

	MetricsEnabled bool

	// DevUsers seeds accounts as "email:password:role" entries separated by ';'.
	DevUsers string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		Env: EnvString("DESK_ENV", EnvDevelopment),

		HTTPAddr:  EnvString("DESK_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("DESK_LOG_LEVEL", "info"),
		LogFormat: EnvString("DESK_LOG_FORMAT", LogFormatJSON),

		ReadHeaderTimeout: EnvDuration("DESK_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("DESK_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("DESK_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("DESK_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("DESK_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    EnvInt("DESK_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("DESK_DATABASE_URL", ""),
		DBMaxConns:     EnvInt32("DESK_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("DESK_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("DESK_DB_MIGRATE_ON_START", false),

		ReadinessRequireDB: EnvBool("DESK_READINESS_REQUIRE_DB", false),

		MetricsEnabled: EnvBool("DESK_METRICS_ENABLED", true),

		DevUsers: EnvString("DESK_DEV_USERS", ""),
	}
}

// DBEnabled reports whether Postgres persistence is configured.
func (c Config) DBEnabled() bool { return c.DatabaseURL != "" }
