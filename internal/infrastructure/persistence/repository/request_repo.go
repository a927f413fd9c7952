package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/application/port"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
	"github.com/garyjia/procurement-workflow/internal/infrastructure/persistence/sqlite"
)

const requestColumns = `
	id, request_number, url, product_title, product_image_url, product_description,
	estimated_price, currency, quantity, justification, urgency, requester_id, status,
	is_amazon_url, amazon_asin, added_to_cart, added_to_cart_at, cart_error, cart_attempts,
	approved_by_id, approved_at, rejected_by_id, rejected_at, rejection_reason,
	info_request_note, info_requested_at, purchased_by_id, purchased_at, purchase_notes,
	created_at, updated_at`

// RequestRepository implements port.RequestRepository on SQLite
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new purchase request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create allocates the next yearly sequence value and inserts the request.
// Callers run it inside a transaction so the number and the row commit together.
func (r *RequestRepository) Create(ctx context.Context, req *entity.PurchaseRequest) error {
	exec := sqlite.ExecutorFor(ctx, r.db)

	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}

	year := req.CreatedAt.Year()
	var seq int64
	err := exec.QueryRowContext(ctx, `
		INSERT INTO request_sequences (year, last_value) VALUES (?, 1)
		ON CONFLICT(year) DO UPDATE SET last_value = last_value + 1
		RETURNING last_value
	`, year).Scan(&seq)
	if err != nil {
		r.logger.Error("Failed to allocate request number", zap.Int("year", year), zap.Error(err))
		return fmt.Errorf("failed to allocate request number: %w", err)
	}
	req.RequestNumber = entity.FormatRequestNumber(year, seq)

	query := `
		INSERT INTO purchase_requests (
			request_number, url, product_title, product_image_url, product_description,
			estimated_price, currency, quantity, justification, urgency, requester_id, status,
			is_amazon_url, amazon_asin, added_to_cart, cart_attempts, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := exec.ExecContext(ctx, query,
		req.RequestNumber,
		req.URL,
		req.ProductTitle,
		req.ProductImageURL,
		req.ProductDescription,
		req.EstimatedPrice,
		req.Currency,
		req.Quantity,
		req.Justification,
		req.Urgency,
		req.RequesterID,
		req.Status,
		req.IsAmazonURL,
		req.AmazonASIN,
		req.AddedToCart,
		req.CartAttempts,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create purchase request", zap.String("request_number", req.RequestNumber), zap.Error(err))
		return fmt.Errorf("failed to create purchase request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByID returns nil, nil when no row matches
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM purchase_requests WHERE id = ?`

	req, err := scanRequest(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get purchase request", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get purchase request: %w", err)
	}
	return req, nil
}

// UpdateIfStatus writes all mutable columns guarded by the expected status
func (r *RequestRepository) UpdateIfStatus(ctx context.Context, req *entity.PurchaseRequest, expected entity.RequestStatus) (bool, error) {
	query := `
		UPDATE purchase_requests SET
			status = ?, quantity = ?, justification = ?, urgency = ?,
			added_to_cart = ?, added_to_cart_at = ?, cart_error = ?, cart_attempts = ?,
			approved_by_id = ?, approved_at = ?,
			rejected_by_id = ?, rejected_at = ?, rejection_reason = ?,
			info_request_note = ?, info_requested_at = ?,
			purchased_by_id = ?, purchased_at = ?, purchase_notes = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		req.Status,
		req.Quantity,
		req.Justification,
		req.Urgency,
		req.AddedToCart,
		req.AddedToCartAt,
		req.CartError,
		req.CartAttempts,
		req.ApprovedByID,
		req.ApprovedAt,
		req.RejectedByID,
		req.RejectedAt,
		req.RejectionReason,
		req.InfoRequestNote,
		req.InfoRequestedAt,
		req.PurchasedByID,
		req.PurchasedAt,
		req.PurchaseNotes,
		req.UpdatedAt,
		req.ID,
		expected,
	)
	if err != nil {
		r.logger.Error("Failed to update purchase request",
			zap.Int64("id", req.ID),
			zap.String("expected_status", expected.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to update purchase request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// List returns requests newest first
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter.RequesterID != 0 {
		where = append(where, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	orderBy := " ORDER BY created_at DESC, id DESC"
	switch filter.OrderFilter {
	case "":
	case entity.OrderFilterAll:
		where = append(where, "status IN ('approved', 'purchased')")
	case entity.OrderFilterAmazonCart:
		where = append(where, "status = 'approved' AND is_amazon_url = 1 AND added_to_cart = 1")
	case entity.OrderFilterPendingManual:
		where = append(where, "status = 'approved' AND (is_amazon_url = 0 OR added_to_cart = 0)")
	case entity.OrderFilterPurchased:
		where = append(where, "status = 'purchased'")
	default:
		return nil, fmt.Errorf("unknown order filter %q", filter.OrderFilter)
	}
	if filter.OrderFilter != "" {
		orderBy = " ORDER BY approved_at DESC, id DESC"
	}

	query := `SELECT ` + requestColumns + ` FROM purchase_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderBy
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	return r.query(ctx, query, args...)
}

// ListAwaitingCart returns approved Amazon requests without a recorded cart outcome, oldest first
func (r *RequestRepository) ListAwaitingCart(ctx context.Context, limit int) ([]*entity.PurchaseRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM purchase_requests
		WHERE status = 'approved' AND is_amazon_url = 1 AND added_to_cart = 0 AND cart_error IS NULL
		ORDER BY approved_at ASC, id ASC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

// Stats aggregates counts in one pass over the table
func (r *RequestRepository) Stats(ctx context.Context, scope entity.StatsScope) (*entity.StatsSnapshot, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'info_requested' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'purchased' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN urgency = 'urgent' AND status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN added_to_cart = 1 AND status = 'approved' THEN 1 ELSE 0 END), 0)
		FROM purchase_requests
	`
	var args []interface{}
	if scope.RequesterID != 0 {
		query += " WHERE requester_id = ?"
		args = append(args, scope.RequesterID)
	}

	var s entity.StatsSnapshot
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(
		&s.Total,
		&s.Pending,
		&s.Approved,
		&s.Rejected,
		&s.InfoRequested,
		&s.Purchased,
		&s.Cancelled,
		&s.Urgent,
		&s.AmazonInCart,
	)
	if err != nil {
		r.logger.Error("Failed to compute stats", zap.Int64("requester_id", scope.RequesterID), zap.Error(err))
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return &s, nil
}

func (r *RequestRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.PurchaseRequest, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list purchase requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list purchase requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.PurchaseRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.PurchaseRequest, error) {
	var (
		req             entity.PurchaseRequest
		addedToCartAt   sql.NullTime
		cartError       sql.NullString
		approvedByID    sql.NullInt64
		approvedAt      sql.NullTime
		rejectedByID    sql.NullInt64
		rejectedAt      sql.NullTime
		rejectionReason sql.NullString
		infoNote        sql.NullString
		infoRequestedAt sql.NullTime
		purchasedByID   sql.NullInt64
		purchasedAt     sql.NullTime
		purchaseNotes   sql.NullString
	)

	err := row.Scan(
		&req.ID,
		&req.RequestNumber,
		&req.URL,
		&req.ProductTitle,
		&req.ProductImageURL,
		&req.ProductDescription,
		&req.EstimatedPrice,
		&req.Currency,
		&req.Quantity,
		&req.Justification,
		&req.Urgency,
		&req.RequesterID,
		&req.Status,
		&req.IsAmazonURL,
		&req.AmazonASIN,
		&req.AddedToCart,
		&addedToCartAt,
		&cartError,
		&req.CartAttempts,
		&approvedByID,
		&approvedAt,
		&rejectedByID,
		&rejectedAt,
		&rejectionReason,
		&infoNote,
		&infoRequestedAt,
		&purchasedByID,
		&purchasedAt,
		&purchaseNotes,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.AddedToCartAt = timePtr(addedToCartAt)
	req.CartError = stringPtr(cartError)
	req.ApprovedByID = int64Ptr(approvedByID)
	req.ApprovedAt = timePtr(approvedAt)
	req.RejectedByID = int64Ptr(rejectedByID)
	req.RejectedAt = timePtr(rejectedAt)
	req.RejectionReason = stringPtr(rejectionReason)
	req.InfoRequestNote = stringPtr(infoNote)
	req.InfoRequestedAt = timePtr(infoRequestedAt)
	req.PurchasedByID = int64Ptr(purchasedByID)
	req.PurchasedAt = timePtr(purchasedAt)
	req.PurchaseNotes = stringPtr(purchaseNotes)

	return &req, nil
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
