package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/application/port"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
)

const (
	cartTimeoutMessage = "cart dispatch timed out"
	recordTimeout      = 10 * time.Second
)

// CartResultRecorder persists the outcome of a cart dispatch
type CartResultRecorder interface {
	OnCartDispatchResult(ctx context.Context, requestID int64, result port.CartResult) (*entity.PurchaseRequest, error)
}

// CartWorkerConfig holds configuration for the cart worker
type CartWorkerConfig struct {
	Workers         int
	QueueSize       int
	DispatchTimeout time.Duration
	// RecoveryBatch bounds the startup sweep for dispatches lost to a restart
	RecoveryBatch int
}

// DefaultCartWorkerConfig returns default configuration
func DefaultCartWorkerConfig() CartWorkerConfig {
	return CartWorkerConfig{
		Workers:         2,
		QueueSize:       100,
		DispatchTimeout: 60 * time.Second,
		RecoveryBatch:   100,
	}
}

// CartWorker runs Amazon cart dispatches off the request path and reports
// each outcome back to the workflow
type CartWorker struct {
	config     CartWorkerConfig
	dispatcher port.CartDispatcher
	requests   port.RequestRepository
	recorder   CartResultRecorder
	logger     *zap.Logger

	jobs chan port.CartRequest
	wg   sync.WaitGroup

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	closed    bool
	inFlight  map[int64]struct{}

	succeeded int
	failed    int
}

// NewCartWorker creates a new cart worker. The result recorder is attached
// with SetResultRecorder because it usually depends on the worker itself.
func NewCartWorker(
	config CartWorkerConfig,
	dispatcher port.CartDispatcher,
	requests port.RequestRepository,
	logger *zap.Logger,
) *CartWorker {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1
	}
	if config.DispatchTimeout <= 0 {
		config.DispatchTimeout = DefaultCartWorkerConfig().DispatchTimeout
	}

	return &CartWorker{
		config:     config,
		dispatcher: dispatcher,
		requests:   requests,
		logger:     logger,
		jobs:       make(chan port.CartRequest, config.QueueSize),
		inFlight:   make(map[int64]struct{}),
	}
}

// SetResultRecorder attaches the component that records dispatch outcomes
func (w *CartWorker) SetResultRecorder(r CartResultRecorder) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recorder = r
}

// Enqueue never blocks. A job for a request that is still in flight is refused.
func (w *CartWorker) Enqueue(job port.CartRequest) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return port.ErrQueueClosed
	}
	if _, busy := w.inFlight[job.RequestID]; busy {
		return port.ErrAlreadyQueued
	}

	select {
	case w.jobs <- job:
		w.inFlight[job.RequestID] = struct{}{}
		return nil
	default:
		return port.ErrQueueFull
	}
}

// Start launches the dispatch goroutines and re-enqueues approved requests
// that never got a cart outcome
func (w *CartWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("cart worker already running")
	}
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("cart worker stopped")
	}
	if w.recorder == nil {
		w.mu.Unlock()
		return fmt.Errorf("cart worker has no result recorder")
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	for i := 0; i < w.config.Workers; i++ {
		w.wg.Add(1)
		go w.loop(i)
	}

	w.logger.Info("CartWorker started",
		zap.Int("workers", w.config.Workers),
		zap.Int("queue_size", w.config.QueueSize),
		zap.Duration("dispatch_timeout", w.config.DispatchTimeout))

	w.sweep()
	return nil
}

// Stop refuses new jobs and waits for running dispatches. Jobs still queued
// stay unrecorded and are picked up by the next startup sweep.
func (w *CartWorker) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	wasRunning := w.isRunning
	w.isRunning = false
	close(w.jobs)
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasRunning {
		w.wg.Wait()
	}

	w.mu.Lock()
	w.logger.Info("CartWorker stopped",
		zap.Int("succeeded", w.succeeded),
		zap.Int("failed", w.failed),
		zap.Int("unprocessed", len(w.inFlight)))
	w.mu.Unlock()

	return nil
}

// Name returns the worker name for identification
func (w *CartWorker) Name() string {
	return "CartWorker"
}

// Pending returns how many requests are queued or being dispatched
func (w *CartWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inFlight)
}

func (w *CartWorker) loop(id int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Cart dispatch loop cancelled", zap.Int("worker", id))
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			w.process(job)
		}
	}
}

func (w *CartWorker) process(job port.CartRequest) {
	dctx, cancel := context.WithTimeout(w.ctx, w.config.DispatchTimeout)
	err := w.dispatcher.AddToCart(dctx, job)
	timedOut := errors.Is(dctx.Err(), context.DeadlineExceeded)
	cancel()

	if err != nil && w.ctx.Err() != nil {
		// shutdown interrupted the call; leave the request for the startup sweep
		w.logger.Warn("Cart dispatch interrupted by shutdown", zap.Int64("request_id", job.RequestID))
		w.release(job.RequestID)
		return
	}

	result := port.CartResult{Success: err == nil}
	switch {
	case err == nil:
	case timedOut:
		result.Error = cartTimeoutMessage
	default:
		result.Error = err.Error()
	}

	// Released before recording so a retry committed right after the failure
	// can enqueue its own dispatch.
	w.mu.Lock()
	delete(w.inFlight, job.RequestID)
	if result.Success {
		w.succeeded++
	} else {
		w.failed++
	}
	w.mu.Unlock()

	rctx, rcancel := context.WithTimeout(context.WithoutCancel(w.ctx), recordTimeout)
	_, recErr := w.recorder.OnCartDispatchResult(rctx, job.RequestID, result)
	rcancel()

	if recErr != nil {
		w.logger.Error("Failed to record cart dispatch result",
			zap.Int64("request_id", job.RequestID),
			zap.Bool("success", result.Success),
			zap.Error(recErr))
		return
	}

	w.logger.Info("Cart dispatch finished",
		zap.Int64("request_id", job.RequestID),
		zap.Bool("success", result.Success),
		zap.String("error", result.Error))
}

func (w *CartWorker) release(requestID int64) {
	w.mu.Lock()
	delete(w.inFlight, requestID)
	w.mu.Unlock()
}

// sweep re-enqueues approved Amazon requests that have no outcome recorded
func (w *CartWorker) sweep() {
	if w.requests == nil {
		return
	}

	pending, err := w.requests.ListAwaitingCart(w.ctx, w.config.RecoveryBatch)
	if err != nil {
		w.logger.Error("Failed to list requests awaiting cart dispatch", zap.Error(err))
		return
	}

	requeued := 0
	for _, req := range pending {
		err := w.Enqueue(port.CartRequest{
			RequestID: req.ID,
			ASIN:      req.AmazonASIN,
			URL:       req.URL,
			Quantity:  req.Quantity,
		})
		switch {
		case err == nil:
			requeued++
		case errors.Is(err, port.ErrAlreadyQueued):
		default:
			w.logger.Warn("Stopped cart recovery sweep", zap.Int("requeued", requeued), zap.Error(err))
			return
		}
	}

	if requeued > 0 {
		w.logger.Info("Requeued cart dispatches lost to restart", zap.Int("count", requeued))
	}
}

// Verify interface compliance
var _ port.CartQueue = (*CartWorker)(nil)
var _ Worker = (*CartWorker)(nil)
