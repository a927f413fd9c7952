package workflow

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-workflow/internal/application/port"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
)

// Engine applies purchase request transitions. Every mutating call returns
// the updated request with its full history, or an error matching one of
// the domain/workflow sentinels (ErrValidation, ErrUnauthorized,
// ErrInvalidState, ErrNotFound).
type Engine interface {
	Submit(ctx context.Context, requesterID int64, role entity.Role, in SubmitInput) (*entity.PurchaseRequest, error)

	Approve(ctx context.Context, requestID, approverID int64, role entity.Role, comment string) (*entity.PurchaseRequest, error)
	Reject(ctx context.Context, requestID, approverID int64, role entity.Role, comment string) (*entity.PurchaseRequest, error)
	RequestInfo(ctx context.Context, requestID, approverID int64, role entity.Role, comment string) (*entity.PurchaseRequest, error)

	// Resubmit is restricted to the request owner
	Resubmit(ctx context.Context, requestID, requesterID int64, in ResubmitInput) (*entity.PurchaseRequest, error)

	// Cancel is restricted to the request owner and only before a decision
	Cancel(ctx context.Context, requestID, requesterID int64, reason string) (*entity.PurchaseRequest, error)

	MarkPurchased(ctx context.Context, requestID, adminID int64, role entity.Role, in MarkPurchasedInput) (*entity.PurchaseRequest, error)
	RetryCart(ctx context.Context, requestID, adminID int64, role entity.Role) (*entity.PurchaseRequest, error)

	// OnCartDispatchResult records the outcome of an asynchronous cart dispatch
	OnCartDispatchResult(ctx context.Context, requestID int64, result port.CartResult) (*entity.PurchaseRequest, error)

	GetStats(ctx context.Context, role entity.Role, callerID int64) (*entity.StatsSnapshot, error)
}

// SubmitInput carries the requester's form. Product fields are optional and
// win over extracted metadata when present.
type SubmitInput struct {
	URL           string         `json:"url"`
	Quantity      int            `json:"quantity"`
	Justification string         `json:"justification"`
	Urgency       entity.Urgency `json:"urgency"`

	ProductTitle       string              `json:"product_title"`
	ProductDescription string              `json:"product_description"`
	ProductImageURL    string              `json:"product_image_url"`
	EstimatedPrice     decimal.NullDecimal `json:"estimated_price"`
	Currency           string              `json:"currency"`
}

// ResubmitInput lists the fields a requester may change after an info request.
// Nil fields are left untouched; at least one must change.
type ResubmitInput struct {
	Justification *string         `json:"justification"`
	Quantity      *int            `json:"quantity"`
	Urgency       *entity.Urgency `json:"urgency"`
	Comment       string          `json:"comment"`
}

// MarkPurchasedInput completes an approved request.
// ConfirmManual is required for Amazon requests the cart automation never handled.
type MarkPurchasedInput struct {
	Notes         string `json:"notes"`
	ConfirmManual bool   `json:"confirm_manual"`
}
