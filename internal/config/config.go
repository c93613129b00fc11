// Package config provides centralized configuration management for the
// pipeline. It loads configuration from environment variables with defaults
// and validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Paths    PathsConfig
	Output   OutputConfig
	Database DatabaseConfig
	Server   ServerConfig
	Schedule ScheduleConfig
	Logging  LoggingConfig
}

// PathsConfig holds the layer directories.
type PathsConfig struct {
	// RawDir holds the nine raw extract CSVs (default: data/raw/archive)
	RawDir string `env:"RAW_DIR" default:"data/raw/archive"`

	// BronzeDir receives bronze artifacts (default: data/interim/bronze)
	BronzeDir string `env:"BRONZE_DIR" default:"data/interim/bronze"`

	// SilverDir receives silver_<table> artifacts (default: data/processed)
	SilverDir string `env:"SILVER_DIR" default:"data/processed"`

	// GoldDir receives the gold table and the run manifest (default: data/processed)
	GoldDir string `env:"GOLD_DIR" default:"data/processed"`
}

// OutputConfig holds artifact encoding settings.
type OutputConfig struct {
	// Format is the preferred encoding: parquet or csv (default: parquet)
	Format string `env:"OUTPUT_FORMAT" default:"parquet"`
}

// DatabaseConfig holds the optional PostgreSQL export settings.
type DatabaseConfig struct {
	// URL enables the gold export when set.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// GoldTable is the export target table (default: gold_orders)
	GoldTable string `env:"GOLD_TABLE" default:"gold_orders"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// ExportEnabled reports whether a database URL is configured.
func (c *DatabaseConfig) ExportEnabled() bool { return c.URL != "" }

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response. POST
	// /api/runs answers after a full run, so the default is 0 (none).
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ScheduleConfig holds the serve-mode schedule.
type ScheduleConfig struct {
	// Cron is a six-field cron expression (with seconds) or a descriptor
	// such as "@daily". Empty disables scheduled runs.
	Cron string `env:"SCHEDULE_CRON"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
