// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Backend names accepted in OXIDE_BACKEND.
const (
	BackendWebDAV = "webdav"
	BackendS3     = "s3"
	BackendLocal  = "local"
)

// DefaultMaxFileSize is the load/upload limit used when MAX_FILE_SIZE is unset.
const DefaultMaxFileSize = 10 * 1000 * 1000

// Config holds the editor client configuration.
type Config struct {
	// Remote store
	Backend        string
	URL            string
	Username       string
	Password       string
	RequestTimeout time.Duration

	// Local directory backend
	RootPath string

	// S3 backend
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Region    string

	// Size limit for loads and uploads; 0 disables the limit
	MaxFileSize int64

	// Observability
	MetricsAddr string
	LogLevel    string
	LogFormat   string
	LogFile     string
}

// Load reads the client configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Backend:        envOr("OXIDE_BACKEND", BackendWebDAV),
		URL:            envOr("OXIDE_URL", "http://localhost:8000/"),
		Username:       envOr("OXIDE_USERNAME", ""),
		Password:       envOr("OXIDE_PASSWORD", ""),
		RequestTimeout: envDuration("REQUEST_TIMEOUT", 30*time.Second),
		RootPath:       envOr("OXIDE_ROOT", "."),
		S3Endpoint:     envOr("S3_ENDPOINT", "http://localhost:9000"),
		S3Bucket:       envOr("S3_BUCKET", "oxide"),
		S3AccessKey:    envOr("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:    envOr("S3_SECRET_KEY", "minioadmin"),
		S3Region:       envOr("S3_REGION", "us-east-1"),
		MaxFileSize:    envInt64("MAX_FILE_SIZE", DefaultMaxFileSize),
		MetricsAddr:    envOr("METRICS_ADDR", ""),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogFormat:      envOr("LOG_FORMAT", "console"),
		LogFile:        envOr("LOG_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields that depend on the chosen backend.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendWebDAV:
		if c.URL == "" {
			return fmt.Errorf("OXIDE_URL is required for the webdav backend")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 backend")
		}
	case BackendLocal:
		if c.RootPath == "" {
			return fmt.Errorf("OXIDE_ROOT is required for the local backend")
		}
	default:
		return fmt.Errorf("unknown backend %q (want webdav, s3 or local)", c.Backend)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("MAX_FILE_SIZE must not be negative")
	}
	return nil
}

// DAVConfig holds the development WebDAV server configuration.
type DAVConfig struct {
	ListenAddr   string
	MetricsAddr  string
	RootPath     string
	Prefix       string
	Username     string
	PasswordHash string // bcrypt hash; empty disables authentication
	LogLevel     string
	LogFormat    string
}

// LoadDAV reads the WebDAV server configuration from environment variables.
func LoadDAV() (*DAVConfig, error) {
	cfg := &DAVConfig{
		ListenAddr:   envOr("LISTEN_ADDR", ":8000"),
		MetricsAddr:  envOr("METRICS_ADDR", ""),
		RootPath:     envOr("DAV_ROOT", "./data"),
		Prefix:       envOr("DAV_PREFIX", ""),
		Username:     envOr("DAV_USERNAME", ""),
		PasswordHash: envOr("DAV_PASSWORD_HASH", ""),
		LogLevel:     envOr("LOG_LEVEL", "info"),
		LogFormat:    envOr("LOG_FORMAT", "json"),
	}

	if cfg.RootPath == "" {
		return nil, fmt.Errorf("DAV_ROOT is required")
	}
	if (cfg.Username == "") != (cfg.PasswordHash == "") {
		return nil, fmt.Errorf("DAV_USERNAME and DAV_PASSWORD_HASH must be set together")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
