// Package config loads the inquiry service settings from environment
// variables, applying defaults, normalization and validation in one place.
// Values are grouped by concern: server, logging, database, CRM directory,
// authentication, workflow limits, web protection and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// LogConfig controls the process logger and its optional rotating file sink.
type LogConfig struct {
	Level      string // LOG_LEVEL: debug|info|warn|error|fatal|panic
	Pretty     bool   // LOG_PRETTY: console writer instead of JSON
	Redact     bool   // LOG_REDACT: PII-scrubbing access log
	File       string // LOG_FILE: rotate into this file as well as stdout
	MaxSizeMB  int    // LOG_MAX_SIZE_MB
	MaxBackups int    // LOG_MAX_BACKUPS
	MaxAgeDays int    // LOG_MAX_AGE_DAYS
}

// DBConfig selects and tunes the local inquiry store.
type DBConfig struct {
	Driver          string        // DB_DRIVER: sqlite|postgres|mysql
	DSN             string        // DB_DSN: file path for sqlite
	MaxOpenConns    int           // DB_MAX_OPEN_CONNS
	MaxIdleConns    int           // DB_MAX_IDLE_CONNS
	ConnMaxLifetime time.Duration // DB_CONN_MAX_LIFETIME
	LogLevel        string        // DB_LOG_LEVEL: silent|error|warn|info
}

// CRMConfig points at the remote directory. An empty URL selects the
// in-process directory, which is only suitable for development.
type CRMConfig struct {
	URL        string        // CRM_URL, e.g. https://org.crm.dynamics.com
	Token      string        // CRM_TOKEN (bearer)
	APIVersion string        // CRM_API_VERSION
	Timeout    time.Duration // CRM_TIMEOUT per remote call
}

// AuthConfig configures principal resolution.
type AuthConfig struct {
	JWTSecret       string // AUTH_JWT_SECRET (HS256)
	JWTIssuer       string // AUTH_JWT_ISSUER, checked when set
	AllowUserHeader bool   // AUTH_ALLOW_USER_HEADER: trust X-User-ID
}

// LimitsConfig caps user-supplied text, counted in runes.
type LimitsConfig struct {
	QuestionMaxLen int // QUESTION_MAX_LEN
	ResponseMaxLen int // RESPONSE_MAX_LEN
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	// Docs / routing
	SwaggerEnabled bool
	APIBasePath    string

	Log    LogConfig
	DB     DBConfig
	CRM    CRMConfig
	Auth   AuthConfig
	Limits LimitsConfig

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// IdempotencyTTL is how long a stored Idempotency-Key is replayed.
	IdempotencyTTL time.Duration

	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		Log: LogConfig{
			Level:      strings.ToLower(getenv("LOG_LEVEL", "info")),
			Pretty:     getbool("LOG_PRETTY", false),
			Redact:     getbool("LOG_REDACT", true),
			File:       getenv("LOG_FILE", ""),
			MaxSizeMB:  getint("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getint("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getint("LOG_MAX_AGE_DAYS", 28),
		},

		DB: DBConfig{
			Driver:          strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DSN:             getenv("DB_DSN", ""),
			MaxOpenConns:    getint("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getint("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getdur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			LogLevel:        strings.ToLower(getenv("DB_LOG_LEVEL", "warn")),
		},

		CRM: CRMConfig{
			URL:        strings.TrimRight(getenv("CRM_URL", ""), "/"),
			Token:      getenv("CRM_TOKEN", ""),
			APIVersion: getenv("CRM_API_VERSION", "v9.2"),
			Timeout:    getdur("CRM_TIMEOUT", 10*time.Second),
		},

		Auth: AuthConfig{
			JWTSecret:       getenv("AUTH_JWT_SECRET", ""),
			JWTIssuer:       getenv("AUTH_JWT_ISSUER", ""),
			AllowUserHeader: getbool("AUTH_ALLOW_USER_HEADER", false),
		},

		Limits: LimitsConfig{
			QuestionMaxLen: getint("QUESTION_MAX_LEN", 2000),
			ResponseMaxLen: getint("RESPONSE_MAX_LEN", 4000),
		},

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-inquiry-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.Log.Level == "warning" {
		cfg.Log.Level = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "sqlite3" {
		cfg.DB.Driver = "sqlite"
	}
	if cfg.DB.Driver == "sqlite" && cfg.DB.DSN == "" {
		cfg.DB.DSN = "app.db"
	}

	// --- validation ---
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.Log.File != "" && (cfg.Log.MaxSizeMB <= 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0) {
		return cfg, errors.New("LOG_MAX_SIZE_MB must be > 0 and LOG_MAX_BACKUPS/LOG_MAX_AGE_DAYS >= 0")
	}
	switch cfg.DB.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres, mysql")
	}
	if strings.TrimSpace(cfg.DB.DSN) == "" {
		return cfg, errors.New("DB_DSN must not be empty for " + cfg.DB.Driver)
	}
	if cfg.DB.MaxOpenConns < 0 || cfg.DB.MaxIdleConns < 0 || cfg.DB.ConnMaxLifetime < 0 {
		return cfg, errors.New("DB pool settings must be >= 0")
	}
	if cfg.CRM.URL != "" && !strings.HasPrefix(cfg.CRM.URL, "http://") && !strings.HasPrefix(cfg.CRM.URL, "https://") {
		return cfg, errors.New("CRM_URL must be an http(s) URL")
	}
	if cfg.CRM.Timeout <= 0 {
		return cfg, errors.New("CRM_TIMEOUT must be > 0")
	}
	if cfg.Auth.JWTSecret == "" && !cfg.Auth.AllowUserHeader {
		return cfg, errors.New("AUTH_JWT_SECRET must be set unless AUTH_ALLOW_USER_HEADER is enabled")
	}
	if cfg.Limits.QuestionMaxLen <= 0 || cfg.Limits.ResponseMaxLen <= 0 {
		return cfg, errors.New("QUESTION_MAX_LEN and RESPONSE_MAX_LEN must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
