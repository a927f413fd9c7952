package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/garyjia/procurement-workflow/internal/application/port"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
)

const digestListLimit = 10

// DigestService summarises the open workload for approvers once a day
type DigestService interface {
	SendDailyDigest(ctx context.Context, day time.Time) error
}

type digestServiceImpl struct {
	requestRepo port.RequestRepository
	sender      port.MessageSender
	storage     port.FileStorage
	chatID      string
	logger      Logger
}

// NewDigestService creates a new DigestService. sender and storage may be nil.
func NewDigestService(
	requestRepo port.RequestRepository,
	sender port.MessageSender,
	storage port.FileStorage,
	chatID string,
	logger Logger,
) DigestService {
	return &digestServiceImpl{
		requestRepo: requestRepo,
		sender:      sender,
		storage:     storage,
		chatID:      chatID,
		logger:      logger,
	}
}

// SendDailyDigest posts the stats and the latest pending requests, and keeps
// an xlsx snapshot of orders still waiting for a manual purchase
func (s *digestServiceImpl) SendDailyDigest(ctx context.Context, day time.Time) error {
	stats, err := s.requestRepo.Stats(ctx, entity.StatsScope{})
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	pending, err := s.requestRepo.List(ctx, port.RequestFilter{Status: entity.StatusPending, Limit: digestListLimit})
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	manual, err := s.requestRepo.List(ctx, port.RequestFilter{OrderFilter: entity.OrderFilterPendingManual})
	if err != nil {
		return fmt.Errorf("list manual orders: %w", err)
	}

	snapshot := ""
	if s.storage != nil && len(manual) > 0 {
		snapshot, err = s.saveSnapshot(ctx, day, manual)
		if err != nil {
			// the chat summary is still useful without the file
			s.logger.Error("Failed to save digest snapshot", "error", err)
		}
	}

	text := FormatDigest(day, stats, pending, len(manual), snapshot)
	if s.sender == nil || s.chatID == "" {
		s.logger.Info("Digest built, no chat configured", "pending", stats.Pending, "manual_orders", len(manual))
		return nil
	}
	if err := s.sender.SendText(ctx, s.chatID, text); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	s.logger.Info("Digest sent", "pending", stats.Pending, "urgent", stats.Urgent, "manual_orders", len(manual))
	return nil
}

func (s *digestServiceImpl) saveSnapshot(ctx context.Context, day time.Time, orders []*entity.PurchaseRequest) (string, error) {
	content, err := BuildOrdersWorkbook(orders)
	if err != nil {
		return "", err
	}
	rel := path.Join("digests", fmt.Sprintf("manual-orders-%s.xlsx", day.Format("2006-01-02")))
	if err := s.storage.Save(ctx, rel, content); err != nil {
		return "", err
	}
	return rel, nil
}

// FormatDigest renders the digest message body
func FormatDigest(day time.Time, stats *entity.StatsSnapshot, pending []*entity.PurchaseRequest, manualOrders int, snapshot string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Purchase requests digest for %s\n", day.Format("Mon 2 Jan 2006"))
	fmt.Fprintf(&b, "Pending: %d (urgent: %d)\n", stats.Pending, stats.Urgent)
	fmt.Fprintf(&b, "Waiting on requester: %d\n", stats.InfoRequested)
	fmt.Fprintf(&b, "Approved, not yet purchased: %d\n", stats.Approved)
	fmt.Fprintf(&b, "Manual purchases outstanding: %d\n", manualOrders)

	if len(pending) > 0 {
		b.WriteString("\nLatest pending:\n")
		for _, r := range pending {
			marker := ""
			if r.Urgency == entity.UrgencyUrgent {
				marker = " [urgent]"
			}
			fmt.Fprintf(&b, "- %s %s x%d%s\n", r.RequestNumber, r.ProductTitle, r.Quantity, marker)
		}
	}
	if snapshot != "" {
		fmt.Fprintf(&b, "\nManual order sheet saved as %s\n", snapshot)
	}
	return strings.TrimRight(b.String(), "\n")
}
