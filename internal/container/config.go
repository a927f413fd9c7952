// Package container provides dependency injection and lifecycle management
// for the procurement workflow service.
package container

import (
	"fmt"
	"time"

	// zone data for digest.timezone on hosts without a zoneinfo database
	_ "time/tzdata"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Auth     AuthConfig
	Lark     LarkConfig
	Amazon   AmazonConfig
	Metadata MetadataConfig
	Storage  StorageConfig
	Server   ServerConfig
	Worker   WorkerConfig
	Digest   DigestConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
}

// LarkConfig holds Lark API settings. Notifications are off when AppID is empty.
type LarkConfig struct {
	AppID          string
	AppSecret      string
	ApproverChatID string
}

// AmazonConfig holds the cart automation endpoint. Dispatch is off when BaseURL is empty.
type AmazonConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// MetadataConfig holds product page fetch settings.
type MetadataConfig struct {
	Enabled   bool
	Timeout   time.Duration
	UserAgent string
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// BaseDir receives digest snapshots
	BaseDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// WorkerConfig holds cart worker settings.
type WorkerConfig struct {
	CartWorkers         int
	CartQueueSize       int
	CartDispatchTimeout time.Duration
	CartRecoveryBatch   int
}

// DigestConfig holds the daily digest schedule.
type DigestConfig struct {
	Enabled  bool
	Schedule string
	Timezone string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/procurement.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Amazon: AmazonConfig{
			Timeout: 45 * time.Second,
		},
		Metadata: MetadataConfig{
			Enabled: true,
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			BaseDir: "data/files",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Worker: WorkerConfig{
			CartWorkers:         2,
			CartQueueSize:       100,
			CartDispatchTimeout: 60 * time.Second,
			CartRecoveryBatch:   100,
		},
		Digest: DigestConfig{
			Schedule: "0 9 * * 1-5",
			Timezone: "America/Mexico_City",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Lark.AppID != "" && c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
	}
	if c.Amazon.BaseURL != "" && c.Amazon.APIKey == "" {
		return fmt.Errorf("amazon.api_key is required when amazon.base_url is set")
	}
	if c.Worker.CartWorkers < 1 {
		return fmt.Errorf("worker.cart_workers must be at least 1")
	}
	if c.Digest.Enabled && c.Digest.Schedule == "" {
		return fmt.Errorf("digest.schedule is required when the digest is enabled")
	}
	if c.Digest.Timezone != "" {
		if _, err := time.LoadLocation(c.Digest.Timezone); err != nil {
			return fmt.Errorf("digest.timezone: %w", err)
		}
	}
	return nil
}
