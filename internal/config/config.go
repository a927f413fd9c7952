package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Amazon   AmazonConfig   `mapstructure:"amazon"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Digest   DigestConfig   `mapstructure:"digest"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	MigrationsDir   string        `mapstructure:"migrations_dir"` // empty uses the embedded migrations
}

// AuthConfig holds bearer token configuration
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	AppID          string `mapstructure:"app_id"`
	AppSecret      string `mapstructure:"app_secret"`
	ApproverChatID string `mapstructure:"approver_chat_id"`
}

// AmazonConfig holds the cart automation endpoint
type AmazonConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MetadataConfig holds product page fetch configuration
type MetadataConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// StorageConfig holds file storage configuration
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// WorkerConfig holds cart worker configuration
type WorkerConfig struct {
	CartWorkers         int           `mapstructure:"cart_workers"`
	CartQueueSize       int           `mapstructure:"cart_queue_size"`
	CartDispatchTimeout time.Duration `mapstructure:"cart_dispatch_timeout"`
	CartRecoveryBatch   int           `mapstructure:"cart_recovery_batch"`
}

// DigestConfig holds daily digest configuration
type DigestConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	Timezone string `mapstructure:"timezone"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads the YAML file at configPath, then applies environment overrides.
// An empty configPath runs on defaults and environment alone.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/procurement.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Amazon defaults
	v.SetDefault("amazon.timeout", 45*time.Second)

	// Metadata defaults
	v.SetDefault("metadata.enabled", true)
	v.SetDefault("metadata.timeout", 10*time.Second)

	v.SetDefault("storage.base_dir", "data/files")

	// Worker defaults
	v.SetDefault("worker.cart_workers", 2)
	v.SetDefault("worker.cart_queue_size", 100)
	v.SetDefault("worker.cart_dispatch_timeout", 60*time.Second)
	v.SetDefault("worker.cart_recovery_batch", 100)

	// Digest defaults
	v.SetDefault("digest.enabled", false)
	v.SetDefault("digest.schedule", "0 9 * * 1-5")
	v.SetDefault("digest.timezone", "America/Mexico_City")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds secrets to their conventional environment variable names
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("lark.approver_chat_id", "LARK_APPROVER_CHAT_ID")
	_ = v.BindEnv("amazon.api_key", "AMAZON_AUTOMATION_API_KEY")
	_ = v.BindEnv("amazon.base_url", "AMAZON_AUTOMATION_URL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Lark.AppID != "" && c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
	}
	if c.Amazon.BaseURL != "" && c.Amazon.APIKey == "" {
		return fmt.Errorf("amazon.api_key is required when amazon.base_url is set")
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console")
	}
	return nil
}
