package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest is a requester's ask to buy a product from a URL
type PurchaseRequest struct {
	ID            int64  `json:"id"`
	RequestNumber string `json:"request_number"`

	// Metadata snapshot captured at submission, never re-fetched
	URL                string              `json:"url"`
	ProductTitle       string              `json:"product_title"`
	ProductImageURL    string              `json:"product_image_url"`
	ProductDescription string              `json:"product_description"`
	EstimatedPrice     decimal.NullDecimal `json:"estimated_price"`
	Currency           string              `json:"currency"`

	Quantity      int     `json:"quantity"`
	Justification string  `json:"justification"`
	Urgency       Urgency `json:"urgency"`

	RequesterID int64         `json:"requester_id"`
	Status      RequestStatus `json:"status"`

	// Amazon auto-cart branch
	IsAmazonURL   bool       `json:"is_amazon_url"`
	AmazonASIN    string     `json:"amazon_asin,omitempty"`
	AddedToCart   bool       `json:"added_to_cart"`
	AddedToCartAt *time.Time `json:"added_to_cart_at,omitempty"`
	CartError     *string    `json:"cart_error,omitempty"`
	CartAttempts  int        `json:"cart_attempts"`

	// Decision fields; later decisions overwrite only their own fields
	ApprovedByID    *int64     `json:"approved_by_id,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedByID    *int64     `json:"rejected_by_id,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	InfoRequestNote *string    `json:"info_request_note,omitempty"`
	InfoRequestedAt *time.Time `json:"info_requested_at,omitempty"`

	PurchasedByID *int64     `json:"purchased_by_id,omitempty"`
	PurchasedAt   *time.Time `json:"purchased_at,omitempty"`
	PurchaseNotes *string    `json:"purchase_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	History []*RequestHistory `json:"history,omitempty"`
	// AllowedActions is computed for the reading caller and never stored
	AllowedActions []string `json:"allowed_actions,omitempty"`
}

// FormatRequestNumber renders the human-readable number REQ-YYYY-NNNN
func FormatRequestNumber(year int, seq int64) string {
	return fmt.Sprintf("REQ-%d-%04d", year, seq)
}

// HasCartError reports whether the last cart dispatch failed
func (r *PurchaseRequest) HasCartError() bool {
	return r.CartError != nil && *r.CartError != ""
}

// AwaitingCart reports whether an Amazon request is approved with no dispatch outcome yet
func (r *PurchaseRequest) AwaitingCart() bool {
	return r.IsAmazonURL && r.Status == StatusApproved && !r.AddedToCart && !r.HasCartError()
}

// CartTarget returns the identifier the cart automation should use, preferring the ASIN
func (r *PurchaseRequest) CartTarget() string {
	if r.AmazonASIN != "" {
		return r.AmazonASIN
	}
	return r.URL
}

// IsOwnedBy reports whether userID submitted the request
func (r *PurchaseRequest) IsOwnedBy(userID int64) bool {
	return r.RequesterID == userID
}

// Clone returns a shallow copy that can be mutated without touching r.
// History and AllowedActions are not copied.
func (r *PurchaseRequest) Clone() *PurchaseRequest {
	c := *r
	c.History = nil
	c.AllowedActions = nil
	return &c
}
