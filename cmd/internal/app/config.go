package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// JWTSecret signs dev bearer tokens. Deployments behind a real identity
	// provider share this secret with the issuer.
	JWTSecret string

	// AllowedOrigins feeds both the CORS layer and the websocket origin
	// policy. Empty means same-origin / non-browser clients only.
	AllowedOrigins []string

	// SweepInterval controls how often expired sessions are purged.
	SweepInterval time.Duration
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("SPLITBITE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("SPLITBITE_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("SPLITBITE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("SPLITBITE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("SPLITBITE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("SPLITBITE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("SPLITBITE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("SPLITBITE_DATABASE_URL", ""),
		DBSchema:    EnvString("SPLITBITE_DB_SCHEMA", "splitbite"),
		DBMaxConns:  EnvInt32("SPLITBITE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("SPLITBITE_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("SPLITBITE_READINESS_REQUIRE_DB", false),

		JWTSecret: EnvString("SPLITBITE_JWT_SECRET", ""),

		AllowedOrigins: EnvStrings("SPLITBITE_ALLOWED_ORIGINS", nil),

		SweepInterval: EnvDuration("SPLITBITE_SWEEP_INTERVAL", time.Hour),
	}
}
