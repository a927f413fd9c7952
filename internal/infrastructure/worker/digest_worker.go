package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DigestRunner builds and delivers the digest for a given day
type DigestRunner interface {
	SendDailyDigest(ctx context.Context, day time.Time) error
}

// DigestWorkerConfig holds the schedule for the daily digest
type DigestWorkerConfig struct {
	// Schedule is a standard five-field cron expression
	Schedule string
	Location *time.Location
	Timeout  time.Duration
}

// DigestWorker posts the approver digest on a cron schedule
type DigestWorker struct {
	config DigestWorkerConfig
	runner DigestRunner
	logger *zap.Logger

	mu        sync.Mutex
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	lastRun   time.Time
	lastError error
}

// NewDigestWorker creates a new digest worker
func NewDigestWorker(config DigestWorkerConfig, runner DigestRunner, logger *zap.Logger) *DigestWorker {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	return &DigestWorker{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Start registers the cron job and starts the scheduler
func (w *DigestWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("digest worker already running")
	}

	c := cron.New(cron.WithLocation(w.config.Location))
	if _, err := c.AddFunc(w.config.Schedule, w.run); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", w.config.Schedule, err)
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.cron = c
	w.isRunning = true
	c.Start()

	w.logger.Info("DigestWorker started",
		zap.String("schedule", w.config.Schedule),
		zap.String("location", w.config.Location.String()))
	return nil
}

// Stop halts the scheduler and waits for a running digest to finish
func (w *DigestWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	c := w.cron
	cancel := w.cancel
	w.mu.Unlock()

	<-c.Stop().Done()
	if cancel != nil {
		cancel()
	}

	w.logger.Info("DigestWorker stopped")
	return nil
}

// Name returns the worker name for identification
func (w *DigestWorker) Name() string {
	return "DigestWorker"
}

// LastRun reports when the digest last ran and its error, if any
func (w *DigestWorker) LastRun() (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun, w.lastError
}

// run executes one digest. Scheduled runs keep going after shutdown starts
// only until the timeout expires.
func (w *DigestWorker) run() {
	w.mu.Lock()
	base := w.ctx
	w.mu.Unlock()
	if base == nil {
		base = context.Background()
	}

	ctx, cancel := context.WithTimeout(base, w.config.Timeout)
	defer cancel()

	now := time.Now().In(w.config.Location)
	err := w.runner.SendDailyDigest(ctx, now)

	w.mu.Lock()
	w.lastRun = now
	w.lastError = err
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Daily digest failed", zap.Error(err))
		return
	}
	w.logger.Info("Daily digest sent", zap.Time("day", now))
}

// Verify interface compliance
var _ Worker = (*DigestWorker)(nil)
