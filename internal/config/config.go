// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Tools    ToolsConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1, the form is a local tool)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is 0 because a form submit blocks until the pipeline finishes
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds settings for the pre-flight catalog connection.
// Host, port, user and database name come from each import request.
type DatabaseConfig struct {
	// ConnectTimeout bounds the existence-check connection (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`

	// SSLMode is passed through to the connection string; PGSSLMODE is honoured as a fallback (default: prefer)
	SSLMode string `env:"DB_SSLMODE" envAlt:"PGSSLMODE" default:"prefer"`

	// Schema is the only schema searched for an existing table (default: public)
	Schema string `env:"DB_SCHEMA" default:"public"`
}

// ImportConfig holds import orchestration settings.
type ImportConfig struct {
	// DefaultSRID is used when a request leaves the SRID empty (default: 4326)
	DefaultSRID int `env:"IMPORT_DEFAULT_SRID" default:"4326"`

	// DefaultPort is used when a request leaves the port empty (default: 5432)
	DefaultPort int `env:"IMPORT_DEFAULT_PORT" default:"5432"`

	// TargetPlatform selects the username rule set: auto, linux, windows, macos (default: auto)
	TargetPlatform string `env:"IMPORT_TARGET_PLATFORM" default:"auto"`

	// CaptureDir is where per-import capture files are created (default: ".", the working directory)
	CaptureDir string `env:"IMPORT_CAPTURE_DIR" default:"."`

	// MaxConcurrent is the maximum number of pipelines running at once (default: 2)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a submit waits for a free pipeline slot (default: 10s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`

	// Timeout bounds a single import, subprocesses included (default: 30m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"30m"`

	// HistorySize is the number of recent attempts kept in memory (default: 50)
	HistorySize int `env:"IMPORT_HISTORY_SIZE" default:"50"`
}

// ToolsConfig holds the external binaries the pipeline runs.
type ToolsConfig struct {
	// Shp2pgsqlPath is the shapefile-to-SQL converter (default: shp2pgsql, resolved via PATH)
	Shp2pgsqlPath string `env:"SHP2PGSQL_PATH" default:"shp2pgsql"`

	// PsqlPath is the SQL client (default: psql, resolved via PATH)
	PsqlPath string `env:"PSQL_PATH" default:"psql"`

	// OnErrorStop makes psql exit nonzero on the first failing statement (default: true)
	OnErrorStop bool `env:"PSQL_ON_ERROR_STOP" default:"true"`

	// CreateIndex passes -I to shp2pgsql to build a spatial index (default: true)
	CreateIndex bool `env:"SHP2PGSQL_CREATE_INDEX" default:"true"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enforces X-API-Key on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File, when set, sends logs to a rotating file instead of stdout
	File string `env:"LOG_FILE"`

	// MaxSizeMB is the size at which the log file is rotated (default: 50)
	MaxSizeMB int `env:"LOG_MAX_SIZE_MB" default:"50"`

	// MaxBackups is the number of rotated files kept (default: 5)
	MaxBackups int `env:"LOG_MAX_BACKUPS" default:"5"`

	// MaxAgeDays is how long rotated files are kept (default: 28)
	MaxAgeDays int `env:"LOG_MAX_AGE_DAYS" default:"28"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
