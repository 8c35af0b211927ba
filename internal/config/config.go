// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Warehouse WarehouseConfig
	Store     StoreConfig
	Queue     QueueConfig
	Restore   RestoreConfig
	Upload    UploadConfig
	Rate      RateLimitConfig
	Auth      AuthConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m,
	// report downloads can be slow)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// WarehouseConfig holds analytical warehouse settings.
type WarehouseConfig struct {
	// Path is the DuckDB database file (default: ledgerlens.duckdb).
	// Use ":memory:" for an ephemeral warehouse.
	Path string `env:"WAREHOUSE_PATH" default:"ledgerlens.duckdb"`

	// Catalog is the catalog part of fully-qualified table ids (default: ledgerlens)
	Catalog string `env:"WAREHOUSE_CATALOG" default:"ledgerlens"`

	// Dataset is the schema part of fully-qualified table ids (default: main)
	Dataset string `env:"WAREHOUSE_DATASET" default:"main"`
}

// StoreConfig holds artifact store settings.
type StoreConfig struct {
	// Driver selects the store implementation: fs or memory (default: fs)
	Driver string `env:"STORE_DRIVER" default:"fs"`

	// Dir is the root directory for the fs driver (default: data/artifacts)
	Dir string `env:"STORE_DIR" default:"data/artifacts"`

	// Bucket is the logical store name carried in import messages
	// (default: ledgerlens-artifacts)
	Bucket string `env:"STORE_BUCKET" default:"ledgerlens-artifacts"`
}

// QueueConfig holds message queue settings.
type QueueConfig struct {
	// Driver selects the queue implementation: nats or memory (default: nats)
	Driver string `env:"QUEUE_DRIVER" default:"nats"`

	// URL is the NATS server URL (default: nats://127.0.0.1:4222)
	URL string `env:"NATS_URL" default:"nats://127.0.0.1:4222"`

	// ImportTopic is the topic SQL import messages travel on (default: sql.import)
	ImportTopic string `env:"QUEUE_IMPORT_TOPIC" default:"sql.import"`
}

// RestoreConfig holds settings for the SQL dump restore target.
type RestoreConfig struct {
	// DatabaseURL is the PostgreSQL connection string for the restore
	// target. Required by the restore worker, unused by the web server.
	DatabaseURL string `env:"RESTORE_DATABASE_URL" envAlt:"DATABASE_URL"`
}

// UploadConfig holds upload processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed upload size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per client (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for the upload endpoint (default: 5)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"5"`
}

// AuthConfig holds reverse-proxy identity settings.
type AuthConfig struct {
	// Required controls whether requests must carry a proxy identity
	// header (default: true). Disable only for local development.
	Required bool `env:"AUTH_REQUIRED" default:"true"`

	// Header is the request header the upstream proxy sets with the
	// authenticated user's email (default: X-Auth-Request-Email)
	Header string `env:"AUTH_HEADER" default:"X-Auth-Request-Email"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
