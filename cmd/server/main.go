package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/config"
	"github.com/garyjia/procurement-workflow/internal/container"
	httpserver "github.com/garyjia/procurement-workflow/internal/interfaces/http"
	"github.com/garyjia/procurement-workflow/pkg/utils"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before configuration")
	flag.Parse()

	// A missing .env is fine; the process environment still applies
	_ = gotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting purchase request workflow",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port))

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container shutdown error", zap.Error(err))
		}
	}()

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			JWTSecret:    cfg.Auth.JWTSecret,
			CORSOrigins:  cfg.Server.CORSOrigins,
		},
		c.Engine(),
		c.Services().Requests,
		c.Services().Exports,
		c.Health,
		c.NamedLogger("http"),
	)

	// Blocks until SIGINT/SIGTERM, then shuts the listener down
	return server.Start(ctx)
}
