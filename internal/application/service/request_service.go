package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/procurement-workflow/internal/application/port"
	appwf "github.com/garyjia/procurement-workflow/internal/application/workflow"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/procurement-workflow/internal/domain/workflow"
	"github.com/garyjia/procurement-workflow/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// RequestService answers read-side queries over purchase requests
type RequestService interface {
	// List returns requests visible to the caller. Roles without view-all see their own only.
	List(ctx context.Context, callerID int64, role entity.Role, status entity.RequestStatus, limit, offset int) ([]*entity.PurchaseRequest, error)

	// Get returns one request with its history and the actions the caller may take.
	// Requests the caller may not see are reported as not found.
	Get(ctx context.Context, id, callerID int64, role entity.Role) (*entity.PurchaseRequest, error)

	// ListOrders returns approved and purchased requests for the admin order views
	ListOrders(ctx context.Context, role entity.Role, filter string) ([]*entity.PurchaseRequest, error)

	// PreviewMetadata extracts product details for a URL without creating anything
	PreviewMetadata(ctx context.Context, rawURL string) (*port.ProductMetadata, error)
}

type requestServiceImpl struct {
	requestRepo port.RequestRepository
	historyRepo port.HistoryRepository
	extractor   port.MetadataExtractor
	logger      Logger
}

// NewRequestService creates a new RequestService. extractor may be nil.
func NewRequestService(
	requestRepo port.RequestRepository,
	historyRepo port.HistoryRepository,
	extractor port.MetadataExtractor,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		requestRepo: requestRepo,
		historyRepo: historyRepo,
		extractor:   extractor,
		logger:      logger,
	}
}

func (s *requestServiceImpl) List(ctx context.Context, callerID int64, role entity.Role, status entity.RequestStatus, limit, offset int) ([]*entity.PurchaseRequest, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", domainwf.ErrUnauthorized, role)
	}
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domainwf.ErrValidation, status)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset cannot be negative", domainwf.ErrValidation)
	}

	filter := port.RequestFilter{
		Status: status,
		Limit:  clampLimit(limit),
		Offset: offset,
	}
	if !role.Can(entity.CapViewAll) {
		filter.RequesterID = callerID
	}

	requests, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list requests", "error", err, "caller_id", callerID)
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

func (s *requestServiceImpl) Get(ctx context.Context, id, callerID int64, role entity.Role) (*entity.PurchaseRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get request", "error", err, "request_id", id)
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %d", domainwf.ErrNotFound, id)
	}
	if !role.Can(entity.CapViewAll) && !req.IsOwnedBy(callerID) {
		return nil, fmt.Errorf("%w: request %d", domainwf.ErrNotFound, id)
	}

	history, err := s.historyRepo.GetByRequestID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get request history", "error", err, "request_id", id)
		return nil, fmt.Errorf("get history: %w", err)
	}
	req.History = history
	req.AllowedActions = appwf.AllowedActions(ctx, req, callerID, role)
	return req, nil
}

func (s *requestServiceImpl) ListOrders(ctx context.Context, role entity.Role, filter string) ([]*entity.PurchaseRequest, error) {
	if !role.Can(entity.CapMarkPurchased) {
		return nil, fmt.Errorf("%w: role %q cannot view orders", domainwf.ErrUnauthorized, role)
	}
	filter, err := NormalizeOrderFilter(filter)
	if err != nil {
		return nil, err
	}

	orders, err := s.requestRepo.List(ctx, port.RequestFilter{OrderFilter: filter})
	if err != nil {
		s.logger.Error("Failed to list orders", "error", err, "filter", filter)
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *requestServiceImpl) PreviewMetadata(ctx context.Context, rawURL string) (*port.ProductMetadata, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := utils.ValidateProductURL(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %v", domainwf.ErrValidation, err)
	}

	fallback := &port.ProductMetadata{
		IsAmazon: entity.IsAmazonURL(rawURL),
		ASIN:     entity.ExtractASIN(rawURL),
	}
	if s.extractor == nil {
		return fallback, nil
	}

	meta, err := s.extractor.Extract(ctx, rawURL)
	if err != nil {
		// the preview is advisory; the form still works without it
		s.logger.Error("Metadata preview failed", "url", rawURL, "error", err)
		return fallback, nil
	}
	return meta, nil
}

// NormalizeOrderFilter maps an empty filter to "all" and rejects unknown names
func NormalizeOrderFilter(filter string) (string, error) {
	switch filter {
	case "":
		return entity.OrderFilterAll, nil
	case entity.OrderFilterAll, entity.OrderFilterAmazonCart,
		entity.OrderFilterPendingManual, entity.OrderFilterPurchased:
		return filter, nil
	default:
		return "", fmt.Errorf("%w: unknown order filter %q", domainwf.ErrValidation, filter)
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
