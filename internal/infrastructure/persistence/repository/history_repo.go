package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/application/port"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
	"github.com/garyjia/procurement-workflow/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.RequestHistory) error {
	query := `
		INSERT INTO request_history (
			request_id, user_id, action, comment, old_status, new_status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		history.RequestID,
		history.UserID,
		history.Action,
		history.Comment,
		history.OldStatus,
		history.NewStatus,
		history.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.Int64("request_id", history.RequestID),
			zap.String("action", string(history.Action)),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByRequestID returns the records of a request in insertion order
func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestHistory, error) {
	query := `
		SELECT id, request_id, user_id, action, comment, old_status, new_status, created_at
		FROM request_history
		WHERE request_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get history by request ID", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.RequestHistory
	for rows.Next() {
		var (
			record    entity.RequestHistory
			oldStatus sql.NullString
		)
		err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&record.UserID,
			&record.Action,
			&record.Comment,
			&oldStatus,
			&record.NewStatus,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		if oldStatus.Valid {
			s := entity.RequestStatus(oldStatus.String)
			record.OldStatus = &s
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
