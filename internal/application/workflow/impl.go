package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/procurement-workflow/internal/application/dispatcher"
	"github.com/garyjia/procurement-workflow/internal/application/port"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
	"github.com/garyjia/procurement-workflow/internal/domain/event"
	domainwf "github.com/garyjia/procurement-workflow/internal/domain/workflow"
	"github.com/garyjia/procurement-workflow/pkg/utils"
)

const (
	defaultApproveComment  = "Request approved"
	defaultPurchaseComment = "Marked as purchased"
	defaultResubmitComment = "Request updated and resubmitted"
	defaultCartError       = "cart dispatch failed"
	defaultMetadataTimeout = 15 * time.Second
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// engineImpl holds no per-request state; every call works from the repositories
type engineImpl struct {
	requestRepo port.RequestRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager

	dispatcher      dispatcher.Dispatcher
	cartQueue       port.CartQueue
	extractor       port.MetadataExtractor
	metadataTimeout time.Duration
	logger          Logger
	now             func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithCartQueue sets where cart jobs go after an Amazon request is approved
func WithCartQueue(q port.CartQueue) EngineOption {
	return func(e *engineImpl) {
		e.cartQueue = q
	}
}

// WithMetadataExtractor lets Submit fill missing product details from the URL
func WithMetadataExtractor(x port.MetadataExtractor) EngineOption {
	return func(e *engineImpl) {
		e.extractor = x
	}
}

// WithMetadataTimeout bounds the extraction call made by Submit
func WithMetadataTimeout(d time.Duration) EngineOption {
	return func(e *engineImpl) {
		if d > 0 {
			e.metadataTimeout = d
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	requestRepo port.RequestRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		requestRepo:     requestRepo,
		historyRepo:     historyRepo,
		txManager:       txManager,
		metadataTimeout: defaultMetadataTimeout,
		logger:          nopLogger{},
		now:             func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// transitionPlan describes one status-changing (or status-preserving) step
type transitionPlan struct {
	requestID int64
	actorID   int64
	trigger   domainwf.Trigger
	action    entity.HistoryAction
	comment   string
	eventType event.Type

	// authorize runs before the state check; used for ownership
	authorize func(req *entity.PurchaseRequest) error
	// validate runs after the state check with the current record
	validate func(req *entity.PurchaseRequest) error
	mutate   func(req *entity.PurchaseRequest, now time.Time)
}

func (e *engineImpl) Submit(ctx context.Context, requesterID int64, role entity.Role, in SubmitInput) (*entity.PurchaseRequest, error) {
	if !role.Can(entity.CapSubmit) {
		return nil, fmt.Errorf("%w: role %q cannot submit requests", domainwf.ErrUnauthorized, role)
	}
	if err := validateSubmit(&in); err != nil {
		return nil, err
	}

	e.fillMetadata(ctx, &in)

	now := e.now()
	req := &entity.PurchaseRequest{
		URL:                in.URL,
		ProductTitle:       in.ProductTitle,
		ProductImageURL:    in.ProductImageURL,
		ProductDescription: in.ProductDescription,
		EstimatedPrice:     in.EstimatedPrice,
		Currency:           in.Currency,
		Quantity:           in.Quantity,
		Justification:      strings.TrimSpace(in.Justification),
		Urgency:            in.Urgency,
		RequesterID:        requesterID,
		Status:             entity.StatusPending,
		IsAmazonURL:        entity.IsAmazonURL(in.URL),
		AmazonASIN:         entity.ExtractASIN(in.URL),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.EstimatedPrice.Valid && req.Currency == "" {
		req.Currency = entity.DefaultCurrency
	}

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.requestRepo.Create(txCtx, req); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		history := entity.NewHistory(req.ID, requesterID, entity.ActionCreated, nil, entity.StatusPending, "")
		history.CreatedAt = now
		if err := e.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Request submitted",
		"request_id", req.ID,
		"request_number", req.RequestNumber,
		"requester_id", requesterID,
		"is_amazon", req.IsAmazonURL,
	)
	e.publish(ctx, event.TypeRequestSubmitted, req, requesterID, map[string]interface{}{
		"urgency":   string(req.Urgency),
		"is_amazon": req.IsAmazonURL,
		"title":     req.ProductTitle,
	})

	return e.reload(ctx, req.ID)
}

func (e *engineImpl) Approve(ctx context.Context, requestID, approverID int64, role entity.Role, comment string) (*entity.PurchaseRequest, error) {
	if err := requireCapability(role, entity.CapApprove); err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		comment = defaultApproveComment
	}

	approved, err := e.transition(ctx, transitionPlan{
		requestID: requestID,
		actorID:   approverID,
		trigger:   domainwf.TriggerApprove,
		action:    entity.ActionApproved,
		comment:   comment,
		eventType: event.TypeRequestApproved,
		mutate: func(req *entity.PurchaseRequest, now time.Time) {
			req.ApprovedByID = &approverID
			req.ApprovedAt = &now
			if req.IsAmazonURL {
				req.CartAttempts++
			}
		},
	})
	if err != nil {
		return nil, err
	}

	if approved.IsAmazonURL {
		e.dispatchCart(ctx, approved)
	}

	return e.reload(ctx, requestID)
}

func (e *engineImpl) Reject(ctx context.Context, requestID, approverID int64, role entity.Role, comment string) (*entity.PurchaseRequest, error) {
	if err := requireCapability(role, entity.CapApprove); err != nil {
		return nil, err
	}
	reason, err := requireComment(comment, "rejection reason")
	if err != nil {
		return nil, err
	}

	if _, err := e.transition(ctx, transitionPlan{
		requestID: requestID,
		actorID:   approverID,
		trigger:   domainwf.TriggerReject,
		action:    entity.ActionRejected,
		comment:   reason,
		eventType: event.TypeRequestRejected,
		mutate: func(req *entity.PurchaseRequest, now time.Time) {
			req.RejectedByID = &approverID
			req.RejectedAt = &now
			req.RejectionReason = &reason
		},
	}); err != nil {
		return nil, err
	}

	return e.reload(ctx, requestID)
}

func (e *engineImpl) RequestInfo(ctx context.Context, requestID, approverID int64, role entity.Role, comment string) (*entity.PurchaseRequest, error) {
	if err := requireCapability(role, entity.CapApprove); err != nil {
		return nil, err
	}
	note, err := requireComment(comment, "info request note")
	if err != nil {
		return nil, err
	}

	if _, err := e.transition(ctx, transitionPlan{
		requestID: requestID,
		actorID:   approverID,
		trigger:   domainwf.TriggerRequestInfo,
		action:    entity.ActionReturned,
		comment:   note,
		eventType: event.TypeRequestInfoRequested,
		mutate: func(req *entity.PurchaseRequest, now time.Time) {
			req.InfoRequestNote = &note
			req.InfoRequestedAt = &now
		},
	}); err != nil {
		return nil, err
	}

	return e.reload(ctx, requestID)
}

func (e *engineImpl) Resubmit(ctx context.Context, requestID, requesterID int64, in ResubmitInput) (*entity.PurchaseRequest, error) {
	if err := validateResubmit(&in); err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(in.Comment)
	if comment == "" {
		comment = defaultResubmitComment
	}

	if _, err := e.transition(ctx, transitionPlan{
		requestID: requestID,
		actorID:   requesterID,
		trigger:   domainwf.TriggerResubmit,
		action:    entity.ActionResubmitted,
		comment:   comment,
		eventType: event.TypeRequestResubmitted,
		authorize: requireOwner(requesterID),
		validate: func(req *entity.PurchaseRequest) error {
			if !resubmitChanges(req, &in) {
				return fmt.Errorf("%w: resubmission must change at least one field", domainwf.ErrValidation)
			}
			return nil
		},
		mutate: func(req *entity.PurchaseRequest, now time.Time) {
			if in.Justification != nil {
				req.Justification = strings.TrimSpace(*in.Justification)
			}
			if in.Quantity != nil {
				req.Quantity = *in.Quantity
			}
			if in.Urgency != nil {
				req.Urgency = *in.Urgency
			}
		},
	}); err != nil {
		return nil, err
	}

	return e.reload(ctx, requestID)
}

func (e *engineImpl) Cancel(ctx context.Context, requestID, requesterID int64, reason string) (*entity.PurchaseRequest, error) {
	if _, err := e.transition(ctx, transitionPlan{
		requestID: requestID,
		actorID:   requesterID,
		trigger:   domainwf.TriggerCancel,
		action:    entity.ActionCancelled,
		comment:   strings.TrimSpace(reason),
		eventType: event.TypeRequestCancelled,
		authorize: requireOwner(requesterID),
		mutate:    func(req *entity.PurchaseRequest, now time.Time) {},
	}); err != nil {
		return nil, err
	}

	return e.reload(ctx, requestID)
}

func (e *engineImpl) MarkPurchased(ctx context.Context, requestID, adminID int64, role entity.Role, in MarkPurchasedInput) (*entity.PurchaseRequest, error) {
	if err := requireCapability(role, entity.CapMarkPurchased); err != nil {
		return nil, err
	}
	notes := strings.TrimSpace(in.Notes)
	comment := notes
	if comment == "" {
		comment = defaultPurchaseComment
	}

	if _, err := e.transition(ctx, transitionPlan{
		requestID: requestID,
		actorID:   adminID,
		trigger:   domainwf.TriggerMarkPurchased,
		action:    entity.ActionPurchased,
		comment:   comment,
		eventType: event.TypeRequestPurchased,
		validate: func(req *entity.PurchaseRequest) error {
			if req.IsAmazonURL && !req.AddedToCart && !in.ConfirmManual {
				return fmt.Errorf("%w: request %s was never added to the Amazon cart; confirm the manual purchase",
					domainwf.ErrValidation, req.RequestNumber)
			}
			return nil
		},
		mutate: func(req *entity.PurchaseRequest, now time.Time) {
			req.PurchasedByID = &adminID
			req.PurchasedAt = &now
			if notes != "" {
				req.PurchaseNotes = &notes
			}
		},
	}); err != nil {
		return nil, err
	}

	return e.reload(ctx, requestID)
}

func (e *engineImpl) RetryCart(ctx context.Context, requestID, adminID int64, role entity.Role) (*entity.PurchaseRequest, error) {
	if err := requireCapability(role, entity.CapRetryCart); err != nil {
		return nil, err
	}

	var previousError string
	retried, err := e.transition(ctx, transitionPlan{
		requestID: requestID,
		actorID:   adminID,
		trigger:   domainwf.TriggerRetryCart,
		action:    entity.ActionCartRetry,
		eventType: event.TypeCartRetried,
		mutate: func(req *entity.PurchaseRequest, now time.Time) {
			if req.CartError != nil {
				previousError = *req.CartError
			}
			req.CartError = nil
			req.CartAttempts++
		},
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Cart dispatch retried",
		"request_id", requestID,
		"admin_id", adminID,
		"attempt", retried.CartAttempts,
		"previous_error", previousError,
	)
	e.dispatchCart(ctx, retried)

	return e.reload(ctx, requestID)
}

func (e *engineImpl) OnCartDispatchResult(ctx context.Context, requestID int64, result port.CartResult) (*entity.PurchaseRequest, error) {
	plan := transitionPlan{
		requestID: requestID,
		actorID:   entity.SystemUserID,
	}

	if result.Success {
		plan.trigger = domainwf.TriggerCartSucceeded
		plan.action = entity.ActionCartAdded
		plan.comment = "Added to Amazon cart"
		plan.eventType = event.TypeCartAdded
		plan.mutate = func(req *entity.PurchaseRequest, now time.Time) {
			req.AddedToCart = true
			req.AddedToCartAt = &now
			req.CartError = nil
		}
	} else {
		msg := strings.TrimSpace(result.Error)
		if msg == "" {
			msg = defaultCartError
		}
		plan.trigger = domainwf.TriggerCartFailed
		plan.action = entity.ActionCartFailed
		plan.comment = msg
		plan.eventType = event.TypeCartFailed
		plan.mutate = func(req *entity.PurchaseRequest, now time.Time) {
			req.CartError = &msg
		}
	}

	if _, err := e.transition(ctx, plan); err != nil {
		e.logger.Error("Failed to record cart dispatch result",
			"request_id", requestID,
			"success", result.Success,
			"error", err,
		)
		return nil, err
	}

	return e.reload(ctx, requestID)
}

func (e *engineImpl) GetStats(ctx context.Context, role entity.Role, callerID int64) (*entity.StatsSnapshot, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", domainwf.ErrUnauthorized, role)
	}

	scope := entity.StatsScope{}
	if !role.Can(entity.CapViewAll) {
		scope.RequesterID = callerID
	}

	stats, err := e.requestRepo.Stats(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// transition runs load, check, compare-and-swap write and history append in one transaction
func (e *engineImpl) transition(ctx context.Context, t transitionPlan) (*entity.PurchaseRequest, error) {
	var (
		updated   *entity.PurchaseRequest
		oldStatus entity.RequestStatus
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := e.load(txCtx, t.requestID)
		if err != nil {
			return err
		}

		if t.authorize != nil {
			if err := t.authorize(current); err != nil {
				return err
			}
		}

		machine := BuildRequestStateMachine(current)
		if err := machine.Fire(txCtx, t.trigger); err != nil {
			return fmt.Errorf("%w: request %s: %v", domainwf.ErrInvalidState, current.RequestNumber, err)
		}

		if t.validate != nil {
			if err := t.validate(current); err != nil {
				return err
			}
		}

		now := e.now()
		next := current.Clone()
		next.Status = entity.RequestStatus(machine.State())
		next.UpdatedAt = now
		t.mutate(next, now)

		applied, err := e.requestRepo.UpdateIfStatus(txCtx, next, current.Status)
		if err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		if !applied {
			return fmt.Errorf("%w: request %s was modified concurrently", domainwf.ErrInvalidState, current.RequestNumber)
		}

		oldStatus = current.Status
		history := entity.NewHistory(next.ID, t.actorID, t.action, &oldStatus, next.Status, t.comment)
		history.CreatedAt = now
		if err := e.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("failed to create history record: %w", err)
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Request transitioned",
		"request_id", updated.ID,
		"trigger", t.trigger.String(),
		"previous_status", oldStatus.String(),
		"new_status", updated.Status.String(),
		"actor_id", t.actorID,
	)

	payload := map[string]interface{}{
		"previous_status": oldStatus.String(),
		"new_status":      updated.Status.String(),
		"trigger":         t.trigger.String(),
		"comment":         t.comment,
		"cart_attempts":   updated.CartAttempts,
	}
	e.publish(ctx, t.eventType, updated, t.actorID, payload)

	return updated, nil
}

// dispatchCart hands the job to the queue. When the queue refuses, the
// failure is recorded immediately so the request never sits without an outcome.
func (e *engineImpl) dispatchCart(ctx context.Context, req *entity.PurchaseRequest) {
	job := port.CartRequest{
		RequestID: req.ID,
		ASIN:      req.AmazonASIN,
		URL:       req.URL,
		Quantity:  req.Quantity,
	}

	var err error
	if e.cartQueue == nil {
		err = errors.New("cart dispatcher is not configured")
	} else {
		err = e.cartQueue.Enqueue(job)
	}

	switch {
	case err == nil:
		return
	case errors.Is(err, port.ErrAlreadyQueued):
		e.logger.Info("Cart dispatch already in flight", "request_id", req.ID)
		return
	}

	e.logger.Error("Failed to enqueue cart dispatch", "request_id", req.ID, "error", err)
	if _, recErr := e.OnCartDispatchResult(ctx, req.ID, port.CartResult{Success: false, Error: err.Error()}); recErr != nil {
		e.logger.Error("Failed to record enqueue failure", "request_id", req.ID, "error", recErr)
	}
}

func (e *engineImpl) fillMetadata(ctx context.Context, in *SubmitInput) {
	if e.extractor == nil || (in.ProductTitle != "" && in.ProductImageURL != "") {
		return
	}

	mctx, cancel := context.WithTimeout(ctx, e.metadataTimeout)
	defer cancel()

	meta, err := e.extractor.Extract(mctx, in.URL)
	if err != nil {
		e.logger.Error("Metadata extraction failed, continuing with submitted values", "url", in.URL, "error", err)
		return
	}
	if meta == nil {
		return
	}

	if in.ProductTitle == "" {
		in.ProductTitle = meta.Title
	}
	if in.ProductDescription == "" {
		in.ProductDescription = meta.Description
	}
	if in.ProductImageURL == "" {
		in.ProductImageURL = meta.ImageURL
	}
	if !in.EstimatedPrice.Valid && meta.Price.Valid {
		in.EstimatedPrice = meta.Price
		if in.Currency == "" {
			in.Currency = meta.Currency
		}
	}
}

func (e *engineImpl) load(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
	req, err := e.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %d", domainwf.ErrNotFound, id)
	}
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: request %d has unknown status %q", domainwf.ErrInvalidState, id, req.Status)
	}
	return req, nil
}

// reload returns the committed record with its full history
func (e *engineImpl) reload(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
	req, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := e.historyRepo.GetByRequestID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	req.History = history
	return req, nil
}

func (e *engineImpl) publish(ctx context.Context, t event.Type, req *entity.PurchaseRequest, actorID int64, payload map[string]interface{}) {
	if e.dispatcher == nil || t == "" {
		return
	}
	e.dispatcher.DispatchAsync(ctx, event.NewEvent(t, req.ID, req.RequestNumber, actorID, payload))
}

func requireCapability(role entity.Role, c entity.Capability) error {
	if !role.Can(c) {
		return fmt.Errorf("%w: role %q lacks %s", domainwf.ErrUnauthorized, role, c)
	}
	return nil
}

func requireOwner(userID int64) func(*entity.PurchaseRequest) error {
	return func(req *entity.PurchaseRequest) error {
		if !req.IsOwnedBy(userID) {
			return fmt.Errorf("%w: user %d does not own request %s", domainwf.ErrUnauthorized, userID, req.RequestNumber)
		}
		return nil
	}
}

func requireComment(comment, what string) (string, error) {
	c := strings.TrimSpace(comment)
	if c == "" {
		return "", fmt.Errorf("%w: %s is required", domainwf.ErrValidation, what)
	}
	return c, nil
}

func validateSubmit(in *SubmitInput) error {
	in.URL = strings.TrimSpace(in.URL)
	if in.URL == "" {
		return fmt.Errorf("%w: url is required", domainwf.ErrValidation)
	}
	if err := utils.ValidateProductURL(in.URL); err != nil {
		return fmt.Errorf("%w: %v", domainwf.ErrValidation, err)
	}
	in.Justification = utils.SanitizeString(in.Justification)
	if in.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", domainwf.ErrValidation)
	}
	if strings.TrimSpace(in.Justification) == "" {
		return fmt.Errorf("%w: justification is required", domainwf.ErrValidation)
	}
	if in.Urgency == "" {
		in.Urgency = entity.UrgencyNormal
	}
	if !in.Urgency.IsValid() {
		return fmt.Errorf("%w: urgency must be normal or urgent", domainwf.ErrValidation)
	}
	if in.EstimatedPrice.Valid && in.EstimatedPrice.Decimal.IsNegative() {
		return fmt.Errorf("%w: estimated price cannot be negative", domainwf.ErrValidation)
	}
	return nil
}

func validateResubmit(in *ResubmitInput) error {
	if in.Justification == nil && in.Quantity == nil && in.Urgency == nil {
		return fmt.Errorf("%w: resubmission must update at least one field", domainwf.ErrValidation)
	}
	if in.Justification != nil && strings.TrimSpace(*in.Justification) == "" {
		return fmt.Errorf("%w: justification cannot be empty", domainwf.ErrValidation)
	}
	if in.Quantity != nil && *in.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", domainwf.ErrValidation)
	}
	if in.Urgency != nil && !in.Urgency.IsValid() {
		return fmt.Errorf("%w: urgency must be normal or urgent", domainwf.ErrValidation)
	}
	return nil
}

func resubmitChanges(req *entity.PurchaseRequest, in *ResubmitInput) bool {
	if in.Justification != nil && strings.TrimSpace(*in.Justification) != req.Justification {
		return true
	}
	if in.Quantity != nil && *in.Quantity != req.Quantity {
		return true
	}
	if in.Urgency != nil && *in.Urgency != req.Urgency {
		return true
	}
	return false
}
