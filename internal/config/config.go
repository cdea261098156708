// Package config provides environment-driven configuration for auditrail.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all server configuration values.
type Config struct {
	DatabaseURL       Secret
	Port              string
	ListenHost        string
	MetricsPort       string
	LogLevel          string
	DBMaxConns        int32
	CORSOrigins       []string
	AuditQueueSize    int
	AuditFlushRetries int
	AuditConfigFile   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     Secret(envOrDefault("DATABASE_URL", "")),
		Port:            envOrDefault("PORT", "3030"),
		ListenHost:      envOrDefault("LISTEN_HOST", "127.0.0.1"),
		MetricsPort:     envOrDefault("METRICS_PORT", "9091"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		AuditConfigFile: envOrDefault("AUDIT_CONFIG_FILE", ""),
	}

	maxConns, err := envInt("DB_MAX_CONNS", "20", 1, 1000)
	if err != nil {
		return nil, err
	}
	cfg.DBMaxConns = int32(maxConns)

	if cfg.AuditQueueSize, err = envInt("AUDIT_QUEUE_SIZE", "1000", 1, 1_000_000); err != nil {
		return nil, err
	}

	if cfg.AuditFlushRetries, err = envInt("AUDIT_FLUSH_RETRIES", "5", 0, 100); err != nil {
		return nil, err
	}

	if origins := envOrDefault("CORS_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the API listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// MetricsAddr returns the metrics listen address in host:port format.
func (c *Config) MetricsAddr() string {
	return c.ListenHost + ":" + c.MetricsPort
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key, fallback string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(envOrDefault(key, fallback))
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, lo, hi)
	}

	return n, nil
}
