package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/procurement-workflow/internal/application/service"
	"github.com/garyjia/procurement-workflow/internal/application/workflow"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/procurement-workflow/internal/domain/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine   workflow.Engine
	requests service.RequestService
	exports  service.ExportService
	health   HealthFunc
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine workflow.Engine,
	requests service.RequestService,
	exports service.ExportService,
	health HealthFunc,
	logger Logger,
) *Handlers {
	return &Handlers{
		engine:   engine,
		requests: requests,
		exports:  exports,
		health:   health,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
}

// ListRequestsQuery holds query parameters for listing requests
type ListRequestsQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// CommentBody is the body of approve, reject and request-info
type CommentBody struct {
	Comment string `json:"comment"`
}

// CancelBody is the body of a cancellation
type CancelBody struct {
	Reason string `json:"reason"`
}

// MetadataBody is the body of a metadata preview
type MetadataBody struct {
	URL string `json:"url"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.health != nil {
		resp.Components = h.health(c.Request.Context())
		for _, status := range resp.Components {
			if status != "ok" && status != "disabled" {
				resp.Status = "degraded"
			}
		}
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, Response{Success: code == http.StatusOK, Data: resp})
}

// SubmitRequest handles POST /api/requests
func (h *Handlers) SubmitRequest(c *gin.Context) {
	var in workflow.SubmitInput
	if !h.bindJSON(c, &in) {
		return
	}
	userID, role := caller(c)

	req, err := h.engine.Submit(c.Request.Context(), userID, role, in)
	if err != nil {
		h.fail(c, "submit", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var q ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid query parameters")
		return
	}
	userID, role := caller(c)

	requests, err := h.requests.List(c.Request.Context(), userID, role, entity.RequestStatus(q.Status), q.Limit, q.Offset)
	if err != nil {
		h.fail(c, "list requests", err)
		return
	}
	if requests == nil {
		requests = []*entity.PurchaseRequest{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}
	userID, role := caller(c)

	req, err := h.requests.Get(c.Request.Context(), id, userID, role)
	if err != nil {
		h.fail(c, "get request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// ResubmitRequest handles PUT /api/requests/:id
func (h *Handlers) ResubmitRequest(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}
	var in workflow.ResubmitInput
	if !h.bindJSON(c, &in) {
		return
	}
	userID, _ := caller(c)

	req, err := h.engine.Resubmit(c.Request.Context(), id, userID, in)
	h.respondRequest(c, "resubmit", req, err)
}

// CancelRequest handles POST /api/requests/:id/cancel
func (h *Handlers) CancelRequest(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}
	var body CancelBody
	if !h.bindOptionalJSON(c, &body) {
		return
	}
	userID, _ := caller(c)

	req, err := h.engine.Cancel(c.Request.Context(), id, userID, body.Reason)
	h.respondRequest(c, "cancel", req, err)
}

// ApproveRequest handles POST /api/requests/:id/approve
func (h *Handlers) ApproveRequest(c *gin.Context) {
	h.decide(c, "approve", h.engine.Approve)
}

// RejectRequest handles POST /api/requests/:id/reject
func (h *Handlers) RejectRequest(c *gin.Context) {
	h.decide(c, "reject", h.engine.Reject)
}

// RequestInfo handles POST /api/requests/:id/request-info
func (h *Handlers) RequestInfo(c *gin.Context) {
	h.decide(c, "request info", h.engine.RequestInfo)
}

type decision func(ctx context.Context, requestID, approverID int64, role entity.Role, comment string) (*entity.PurchaseRequest, error)

func (h *Handlers) decide(c *gin.Context, op string, fn decision) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}
	var body CommentBody
	if !h.bindOptionalJSON(c, &body) {
		return
	}
	userID, role := caller(c)

	req, err := fn(c.Request.Context(), id, userID, role, body.Comment)
	h.respondRequest(c, op, req, err)
}

// MarkPurchased handles POST /api/admin/requests/:id/purchase
func (h *Handlers) MarkPurchased(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}
	var in workflow.MarkPurchasedInput
	if !h.bindOptionalJSON(c, &in) {
		return
	}
	userID, role := caller(c)

	req, err := h.engine.MarkPurchased(c.Request.Context(), id, userID, role, in)
	h.respondRequest(c, "mark purchased", req, err)
}

// RetryCart handles POST /api/admin/requests/:id/retry-cart
func (h *Handlers) RetryCart(c *gin.Context) {
	id, ok := h.requestID(c)
	if !ok {
		return
	}
	userID, role := caller(c)

	req, err := h.engine.RetryCart(c.Request.Context(), id, userID, role)
	h.respondRequest(c, "retry cart", req, err)
}

// ListOrders handles GET /api/admin/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	_, role := caller(c)

	orders, err := h.requests.ListOrders(c.Request.Context(), role, c.Query("filter"))
	if err != nil {
		h.fail(c, "list orders", err)
		return
	}
	if orders == nil {
		orders = []*entity.PurchaseRequest{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: orders})
}

// ExportOrders handles GET /api/admin/orders/export
func (h *Handlers) ExportOrders(c *gin.Context) {
	_, role := caller(c)

	export, err := h.exports.ExportOrders(c.Request.Context(), role, c.Query("filter"))
	if err != nil {
		h.fail(c, "export orders", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, xlsxContentType, export.Content)
}

// GetStats handles GET /api/stats
func (h *Handlers) GetStats(c *gin.Context) {
	userID, role := caller(c)

	stats, err := h.engine.GetStats(c.Request.Context(), role, userID)
	if err != nil {
		h.fail(c, "stats", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// PreviewMetadata handles POST /api/metadata
func (h *Handlers) PreviewMetadata(c *gin.Context) {
	var body MetadataBody
	if !h.bindJSON(c, &body) {
		return
	}

	meta, err := h.requests.PreviewMetadata(c.Request.Context(), body.URL)
	if err != nil {
		h.fail(c, "metadata preview", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: meta})
}

func (h *Handlers) respondRequest(c *gin.Context, op string, req *entity.PurchaseRequest, err error) {
	if err != nil {
		h.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// fail maps workflow errors onto HTTP status codes
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "operation", op, "path", c.Request.URL.Path, "error", err)
		msg = "internal error"
	}
	h.respondError(c, status, msg)
}

// StatusFor returns the HTTP status for an error returned by the workflow
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domainwf.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domainwf.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domainwf.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{Success: false, Error: msg})
}

func (h *Handlers) requestID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.respondError(c, http.StatusBadRequest, "invalid request ID")
		return 0, false
	}
	return id, true
}

func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body
func (h *Handlers) bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	h.respondError(c, http.StatusBadRequest, "invalid request body")
	return false
}
