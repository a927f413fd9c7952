package port

import (
	"context"

	"github.com/garyjia/procurement-workflow/internal/domain/entity"
)

// RequestFilter narrows request listings. Zero values mean "no restriction".
type RequestFilter struct {
	RequesterID int64
	Status      entity.RequestStatus
	// OrderFilter is one of the entity.OrderFilter* values and implies approved or purchased records
	OrderFilter string
	Limit       int
	Offset      int
}

// RequestRepository defines persistence operations for PurchaseRequest
type RequestRepository interface {
	// Create inserts the request and assigns its ID and request number
	Create(ctx context.Context, req *entity.PurchaseRequest) error

	// GetByID returns nil, nil when the request does not exist
	GetByID(ctx context.Context, id int64) (*entity.PurchaseRequest, error)

	// UpdateIfStatus writes every mutable column only if the stored status still equals expected.
	// It reports false when another writer moved the record first.
	UpdateIfStatus(ctx context.Context, req *entity.PurchaseRequest, expected entity.RequestStatus) (bool, error)

	List(ctx context.Context, filter RequestFilter) ([]*entity.PurchaseRequest, error)

	// ListAwaitingCart returns approved Amazon requests with no cart outcome recorded
	ListAwaitingCart(ctx context.Context, limit int) ([]*entity.PurchaseRequest, error)

	// Stats derives a snapshot from the stored rows on every call
	Stats(ctx context.Context, scope entity.StatsScope) (*entity.StatsSnapshot, error)
}

// HistoryRepository defines append-only persistence for RequestHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.RequestHistory) error
	GetByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
