package port

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// CartRequest is one add-to-cart job for the Amazon automation
type CartRequest struct {
	RequestID int64  `json:"request_id"`
	ASIN      string `json:"asin,omitempty"`
	URL       string `json:"url"`
	Quantity  int    `json:"quantity"`
}

// CartResult is the outcome reported back to the workflow
type CartResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CartDispatcher adds approved Amazon items to the managed business cart
type CartDispatcher interface {
	AddToCart(ctx context.Context, req CartRequest) error
}

var (
	// ErrQueueFull is returned by CartQueue.Enqueue when no buffer space is left
	ErrQueueFull = errors.New("cart queue is full")

	// ErrQueueClosed is returned by CartQueue.Enqueue after the worker stopped
	ErrQueueClosed = errors.New("cart queue is closed")

	// ErrAlreadyQueued is returned when a dispatch for the request is still in flight
	ErrAlreadyQueued = errors.New("cart dispatch already in flight")
)

// CartQueue accepts cart jobs without blocking the caller
type CartQueue interface {
	Enqueue(req CartRequest) error
}

// ProductMetadata is what a product page reveals about itself
type ProductMetadata struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	ImageURL    string              `json:"image_url"`
	Price       decimal.NullDecimal `json:"price"`
	Currency    string              `json:"currency"`
	IsAmazon    bool                `json:"is_amazon"`
	ASIN        string              `json:"asin,omitempty"`
}

// MetadataExtractor fetches product metadata for a URL
type MetadataExtractor interface {
	Extract(ctx context.Context, url string) (*ProductMetadata, error)
}

// MessageSender delivers chat notifications
type MessageSender interface {
	SendText(ctx context.Context, chatID string, text string) error
	SendCard(ctx context.Context, chatID string, card interface{}) error
}
