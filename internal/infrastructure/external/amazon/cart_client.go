package amazon

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/application/port"
	domainwf "github.com/garyjia/procurement-workflow/internal/domain/workflow"
)

// DispatchError carries the automation service's reason for a failed dispatch.
// It matches workflow.ErrDispatch with errors.Is.
type DispatchError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *DispatchError) Error() string {
	return "cart automation failed: " + e.Message
}

func (e *DispatchError) Unwrap() []error {
	if e.Err == nil {
		return []error{domainwf.ErrDispatch}
	}
	return []error{domainwf.ErrDispatch, e.Err}
}

// Config holds the cart automation endpoint settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Enabled reports whether an automation endpoint is configured
func (c Config) Enabled() bool {
	return c.BaseURL != ""
}

// CartClient adds items to the managed Amazon Business cart through the automation service
type CartClient struct {
	http   *resty.Client
	logger *zap.Logger
}

type addToCartBody struct {
	RequestID int64  `json:"request_id"`
	ASIN      string `json:"asin,omitempty"`
	URL       string `json:"url"`
	Quantity  int    `json:"quantity"`
}

type addToCartResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewCartClient creates a client for the cart automation service
func NewCartClient(cfg Config, logger *zap.Logger) *CartClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &CartClient{
		http:   client,
		logger: logger,
	}
}

// AddToCart returns nil only when the automation confirms the item is in the cart
func (c *CartClient) AddToCart(ctx context.Context, req port.CartRequest) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(addToCartBody{
			RequestID: req.RequestID,
			ASIN:      req.ASIN,
			URL:       req.URL,
			Quantity:  req.Quantity,
		}).
		Post("/cart/items")
	if err != nil {
		c.logger.Error("Cart automation request failed",
			zap.Int64("request_id", req.RequestID),
			zap.Error(err))
		return &DispatchError{Message: "unreachable: " + err.Error(), Err: err}
	}

	var body addToCartResponse
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &body); err != nil && resp.IsSuccess() {
			return &DispatchError{StatusCode: resp.StatusCode(), Message: "invalid response", Err: err}
		}
	}

	if resp.IsError() || !body.Success {
		msg := firstNonEmpty(body.Error, body.Message, resp.Status())
		c.logger.Error("Cart automation rejected item",
			zap.Int64("request_id", req.RequestID),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", msg))
		return &DispatchError{StatusCode: resp.StatusCode(), Message: msg}
	}

	c.logger.Info("Item added to Amazon cart",
		zap.Int64("request_id", req.RequestID),
		zap.String("asin", req.ASIN),
		zap.Int("quantity", req.Quantity))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "unknown error"
}

// Verify interface compliance
var _ port.CartDispatcher = (*CartClient)(nil)
