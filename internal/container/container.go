package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/application/dispatcher"
	"github.com/garyjia/procurement-workflow/internal/application/port"
	"github.com/garyjia/procurement-workflow/internal/application/workflow"
	"github.com/garyjia/procurement-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/procurement-workflow/internal/infrastructure/worker"
	"github.com/garyjia/procurement-workflow/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and stop in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External and storage
	external    *ExternalBundle
	fileStorage port.FileStorage

	// Application
	dispatcher dispatcher.Dispatcher
	cartWorker *worker.CartWorker
	engine     workflow.Engine
	services   *ServiceBundle

	// Workers
	workers *worker.WorkerManager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing:
// 1. Database and repositories
// 2. External adapters and storage
// 3. Dispatcher, cart worker and workflow engine
// 4. Application services
// 5. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initExternal(); err != nil {
		return fmt.Errorf("failed to initialize external adapters: %w", err)
	}
	c.logger.Info("External adapters and storage initialized")

	if err := c.initWorkflow(); err != nil {
		return fmt.Errorf("failed to initialize workflow: %w", err)
	}
	c.logger.Info("Dispatcher and workflow engine initialized")

	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Workers first so in-flight cart results are recorded before the
	// dispatcher and database go away
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	if c.cancel != nil {
		c.cancel()
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		return fmt.Errorf("container closed with errors: %w", errors.Join(errs...))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health reports each component as "ok", "disabled" or a failure message.
func (c *Container) Health(ctx context.Context) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := map[string]string{}

	switch {
	case c.db == nil:
		status["database"] = "not initialized"
	default:
		if err := c.db.Check(ctx); err != nil {
			status["database"] = fmt.Sprintf("check failed: %v", err)
		} else {
			status["database"] = "ok"
		}
	}

	switch {
	case c.workers == nil:
		status["workers"] = "not initialized"
	case c.workers.IsRunning():
		status["workers"] = "ok"
	default:
		status["workers"] = "stopped"
	}

	status["lark"] = "disabled"
	status["amazon_cart"] = "disabled"
	status["metadata"] = "disabled"
	if c.external != nil {
		if c.external.Messenger != nil {
			status["lark"] = "ok"
		}
		if c.external.Cart != nil {
			status["amazon_cart"] = "ok"
		}
		if c.external.Extractor != nil {
			status["metadata"] = "ok"
		}
	}
	if c.cartWorker != nil {
		// every value is a status word; the backlog goes to the log
		status["cart_queue"] = "ok"
		c.logger.Debug("Cart queue backlog", zap.Int("pending", c.cartWorker.Pending()))
	}

	return status
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = bundle.DB
	c.txManager = bundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		_ = c.db.Close()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initExternal() error {
	external, err := ProvideExternal(c.config, c.logger)
	if err != nil {
		return err
	}
	c.external = external

	fileStorage, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.fileStorage = fileStorage
	return nil
}

func (c *Container) initWorkflow() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	var queue port.CartQueue
	if c.external.Cart != nil {
		c.cartWorker = ProvideCartWorker(&c.config.Worker, c.external.Cart, c.repositories, c.logger)
		queue = c.cartWorker
	}

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Dispatcher: c.dispatcher,
		CartQueue:  queue,
		Extractor:  c.external.Extractor,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.engine = engine

	if c.cartWorker != nil {
		c.cartWorker.SetResultRecorder(engine)
	}
	return nil
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		External:   c.external,
		Storage:    c.fileStorage,
		Dispatcher: c.dispatcher,
		ChatID:     c.config.Lark.ApproverChatID,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(&WorkerDeps{
		CartWorker: c.cartWorker,
		Digest:     c.services.Digest,
		DigestCfg:  &c.config.Digest,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// Getters for accessing container components

// Engine returns the workflow engine.
func (c *Container) Engine() workflow.Engine {
	return c.engine
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// KVLogger logs with alternating key/value pairs
type KVLogger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// NamedLogger returns a key/value logger for adapters wired outside the container
func (c *Container) NamedLogger(name string) KVLogger {
	return &zapLoggerAdapter{logger: c.logger.Named(name)}
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
