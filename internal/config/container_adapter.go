package config

import (
	"github.com/garyjia/procurement-workflow/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
		},
		Lark: container.LarkConfig{
			AppID:          c.Lark.AppID,
			AppSecret:      c.Lark.AppSecret,
			ApproverChatID: c.Lark.ApproverChatID,
		},
		Amazon: container.AmazonConfig{
			BaseURL: c.Amazon.BaseURL,
			APIKey:  c.Amazon.APIKey,
			Timeout: c.Amazon.Timeout,
		},
		Metadata: container.MetadataConfig{
			Enabled:   c.Metadata.Enabled,
			Timeout:   c.Metadata.Timeout,
			UserAgent: c.Metadata.UserAgent,
		},
		Storage: container.StorageConfig{
			BaseDir: c.Storage.BaseDir,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
			CORSOrigins:  c.Server.CORSOrigins,
		},
		Worker: container.WorkerConfig{
			CartWorkers:         c.Worker.CartWorkers,
			CartQueueSize:       c.Worker.CartQueueSize,
			CartDispatchTimeout: c.Worker.CartDispatchTimeout,
			CartRecoveryBatch:   c.Worker.CartRecoveryBatch,
		},
		Digest: container.DigestConfig{
			Enabled:  c.Digest.Enabled,
			Schedule: c.Digest.Schedule,
			Timezone: c.Digest.Timezone,
		},
	}
}
