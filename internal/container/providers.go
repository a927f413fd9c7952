package container

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/application/dispatcher"
	"github.com/garyjia/procurement-workflow/internal/application/port"
	"github.com/garyjia/procurement-workflow/internal/application/service"
	"github.com/garyjia/procurement-workflow/internal/application/workflow"
	"github.com/garyjia/procurement-workflow/internal/infrastructure/external/amazon"
	infraLark "github.com/garyjia/procurement-workflow/internal/infrastructure/external/lark"
	"github.com/garyjia/procurement-workflow/internal/infrastructure/external/metadata"
	"github.com/garyjia/procurement-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/procurement-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/procurement-workflow/internal/infrastructure/storage"
	"github.com/garyjia/procurement-workflow/internal/infrastructure/worker"
	"github.com/garyjia/procurement-workflow/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Request port.RequestRepository
	History port.HistoryRepository
}

// ExternalBundle holds adapters for outside systems. Nil fields are disabled.
type ExternalBundle struct {
	LarkClient *infraLark.SDKClient
	Messenger  port.MessageSender
	Cart       port.CartDispatcher
	Extractor  port.MetadataExtractor
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Requests     service.RequestService
	Exports      service.ExportService
	Notification service.NotificationService
	Digest       service.DigestService
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(cfg.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Request: repository.NewRequestRepository(db.DB, logger),
		History: repository.NewHistoryRepository(db.DB, logger),
	}, nil
}

// ProvideExternal creates the Lark, cart and metadata adapters that are configured.
func ProvideExternal(cfg *Config, logger *zap.Logger) (*ExternalBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	bundle := &ExternalBundle{}

	larkCfg := infraLark.Config{
		AppID:          cfg.Lark.AppID,
		AppSecret:      cfg.Lark.AppSecret,
		ApproverChatID: cfg.Lark.ApproverChatID,
	}
	if larkCfg.Enabled() {
		bundle.LarkClient = infraLark.NewSDKClient(larkCfg, logger)
		bundle.Messenger = infraLark.NewMessenger(bundle.LarkClient, logger)
	} else {
		logger.Info("Lark notifications disabled")
	}

	amazonCfg := amazon.Config{
		BaseURL: cfg.Amazon.BaseURL,
		APIKey:  cfg.Amazon.APIKey,
		Timeout: cfg.Amazon.Timeout,
	}
	if amazonCfg.Enabled() {
		bundle.Cart = amazon.NewCartClient(amazonCfg, logger)
	} else {
		logger.Info("Amazon cart automation disabled, approvals will record a cart failure")
	}

	if cfg.Metadata.Enabled {
		bundle.Extractor = metadata.NewExtractor(metadata.Config{
			Timeout:   cfg.Metadata.Timeout,
			UserAgent: cfg.Metadata.UserAgent,
		}, logger)
	}

	return bundle, nil
}

// ProvideStorage creates the local file storage.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil || cfg.BaseDir == "" {
		return nil, fmt.Errorf("storage base dir is required")
	}
	return storage.NewLocalFileStorage(cfg.BaseDir, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	), nil
}

// ProvideCartWorker creates the cart worker. It needs the engine as its result
// recorder, which is attached once the engine exists.
func ProvideCartWorker(cfg *WorkerConfig, cart port.CartDispatcher, repos *RepositoryBundle, logger *zap.Logger) *worker.CartWorker {
	return worker.NewCartWorker(worker.CartWorkerConfig{
		Workers:         cfg.CartWorkers,
		QueueSize:       cfg.CartQueueSize,
		DispatchTimeout: cfg.CartDispatchTimeout,
		RecoveryBatch:   cfg.CartRecoveryBatch,
	}, cart, repos.Request, logger)
}

// WorkflowDeps holds dependencies required for creating the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	CartQueue  port.CartQueue
	Extractor  port.MetadataExtractor
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.Engine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	opts := []workflow.EngineOption{
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger.Named("workflow")}),
	}
	if deps.CartQueue != nil {
		opts = append(opts, workflow.WithCartQueue(deps.CartQueue))
	}
	if deps.Extractor != nil {
		opts = append(opts, workflow.WithMetadataExtractor(deps.Extractor))
	}

	return workflow.NewEngine(deps.Repos.Request, deps.Repos.History, deps.TxManager, opts...), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	External   *ExternalBundle
	Storage    port.FileStorage
	Dispatcher dispatcher.Dispatcher
	ChatID     string
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notification handlers.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger.Named("service")}

	var extractor port.MetadataExtractor
	var messenger port.MessageSender
	if deps.External != nil {
		extractor = deps.External.Extractor
		messenger = deps.External.Messenger
	}

	requests := service.NewRequestService(deps.Repos.Request, deps.Repos.History, extractor, serviceLogger)
	bundle := &ServiceBundle{
		Requests:     requests,
		Exports:      service.NewExportService(requests, serviceLogger),
		Notification: service.NewNotificationService(deps.Repos.Request, messenger, deps.ChatID, serviceLogger),
		Digest:       service.NewDigestService(deps.Repos.Request, messenger, deps.Storage, deps.ChatID, serviceLogger),
	}

	if deps.Dispatcher != nil && messenger != nil {
		bundle.Notification.Register(deps.Dispatcher)
	}

	return bundle, nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	CartWorker *worker.CartWorker
	Digest     service.DigestService
	DigestCfg  *DigestConfig
	Logger     *zap.Logger
}

// ProvideWorkers registers all background workers without starting them.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewWorkerManager(deps.Logger)

	if deps.CartWorker != nil {
		manager.Register(deps.CartWorker)
	}

	if deps.DigestCfg != nil && deps.DigestCfg.Enabled && deps.Digest != nil {
		loc := time.Local
		if deps.DigestCfg.Timezone != "" {
			l, err := time.LoadLocation(deps.DigestCfg.Timezone)
			if err != nil {
				return nil, fmt.Errorf("invalid digest timezone: %w", err)
			}
			loc = l
		}
		manager.Register(worker.NewDigestWorker(worker.DigestWorkerConfig{
			Schedule: deps.DigestCfg.Schedule,
			Location: loc,
		}, deps.Digest, deps.Logger))
	}

	return manager, nil
}

// zapLoggerAdapter adapts zap.Logger to the minimal Logger interfaces of the
// application packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
