package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/procurement-workflow/internal/application/dispatcher"
	"github.com/garyjia/procurement-workflow/internal/application/port"
	"github.com/garyjia/procurement-workflow/internal/domain/entity"
	"github.com/garyjia/procurement-workflow/internal/domain/event"
)

// NotificationService posts request lifecycle updates to the approver chat
type NotificationService interface {
	// Register subscribes the notification handlers on d
	Register(d dispatcher.Dispatcher)

	// Handle sends the message for a single event
	Handle(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	requestRepo port.RequestRepository
	sender      port.MessageSender
	chatID      string
	logger      Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	requestRepo port.RequestRepository,
	sender port.MessageSender,
	chatID string,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		requestRepo: requestRepo,
		sender:      sender,
		chatID:      chatID,
		logger:      logger,
	}
}

var notifiedEvents = []event.Type{
	event.TypeRequestSubmitted,
	event.TypeRequestResubmitted,
	event.TypeRequestApproved,
	event.TypeRequestRejected,
	event.TypeRequestInfoRequested,
	event.TypeRequestPurchased,
	event.TypeRequestCancelled,
	event.TypeCartAdded,
	event.TypeCartFailed,
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	for _, t := range notifiedEvents {
		d.SubscribeNamed(t, "lark-notification", s.Handle)
	}
}

func (s *notificationServiceImpl) Handle(ctx context.Context, evt *event.Event) error {
	switch evt.Type {
	case event.TypeRequestSubmitted, event.TypeRequestResubmitted:
		return s.notifyNewRequest(ctx, evt)
	case event.TypeCartFailed:
		return s.notifyCartFailure(ctx, evt)
	default:
		text := statusText(evt)
		if text == "" {
			return nil
		}
		return s.sendText(ctx, evt, text)
	}
}

// notifyNewRequest sends a card the approvers can act on
func (s *notificationServiceImpl) notifyNewRequest(ctx context.Context, evt *event.Event) error {
	req, err := s.requestRepo.GetByID(ctx, evt.RequestID)
	if err != nil {
		return fmt.Errorf("load request %d: %w", evt.RequestID, err)
	}
	if req == nil {
		s.logger.Info("Request vanished before notification", "request_id", evt.RequestID)
		return nil
	}

	heading := "New purchase request"
	template := "blue"
	if evt.Type == event.TypeRequestResubmitted {
		heading = "Purchase request resubmitted"
	}
	if req.Urgency == entity.UrgencyUrgent {
		heading = "URGENT: " + heading
		template = "red"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** %s\n", req.RequestNumber, req.ProductTitle)
	fmt.Fprintf(&b, "Quantity: %d\n", req.Quantity)
	if req.EstimatedPrice.Valid {
		fmt.Fprintf(&b, "Estimated price: %s %s\n", req.EstimatedPrice.Decimal.StringFixed(2), req.Currency)
	}
	fmt.Fprintf(&b, "Justification: %s\n", req.Justification)
	if req.IsAmazonURL {
		b.WriteString("Amazon item: it will be added to the business cart on approval\n")
	}
	fmt.Fprintf(&b, "[Open product page](%s)", req.URL)

	return s.sendCard(ctx, evt, buildCard(heading, template, b.String()))
}

func (s *notificationServiceImpl) notifyCartFailure(ctx context.Context, evt *event.Event) error {
	reason := evt.GetPayloadString("comment")
	if reason == "" {
		reason = "unknown error"
	}
	body := fmt.Sprintf("**%s** could not be added to the Amazon cart.\nReason: %s\n", evt.RequestNumber, reason)
	if attempts := evt.GetPayloadInt("cart_attempts"); attempts > 1 {
		body += fmt.Sprintf("Attempts so far: %d\n", attempts)
	}
	body += "An admin can retry the dispatch or buy it manually."
	return s.sendCard(ctx, evt, buildCard("Amazon cart dispatch failed", "red", body))
}

func (s *notificationServiceImpl) sendText(ctx context.Context, evt *event.Event, text string) error {
	if !s.enabled() {
		return nil
	}
	if err := s.sender.SendText(ctx, s.chatID, text); err != nil {
		s.logger.Error("Failed to send notification", "error", err, "event_type", evt.Type.String(), "request_id", evt.RequestID)
		return fmt.Errorf("send text: %w", err)
	}
	s.logger.Info("Notification sent", "event_type", evt.Type.String(), "request_id", evt.RequestID)
	return nil
}

func (s *notificationServiceImpl) sendCard(ctx context.Context, evt *event.Event, card map[string]interface{}) error {
	if !s.enabled() {
		return nil
	}
	if err := s.sender.SendCard(ctx, s.chatID, card); err != nil {
		s.logger.Error("Failed to send notification card", "error", err, "event_type", evt.Type.String(), "request_id", evt.RequestID)
		return fmt.Errorf("send card: %w", err)
	}
	s.logger.Info("Notification card sent", "event_type", evt.Type.String(), "request_id", evt.RequestID)
	return nil
}

func (s *notificationServiceImpl) enabled() bool {
	return s.sender != nil && s.chatID != ""
}

func statusText(evt *event.Event) string {
	comment := evt.GetPayloadString("comment")
	var text string
	switch evt.Type {
	case event.TypeRequestApproved:
		text = fmt.Sprintf("%s approved", evt.RequestNumber)
	case event.TypeRequestRejected:
		text = fmt.Sprintf("%s rejected", evt.RequestNumber)
	case event.TypeRequestInfoRequested:
		text = fmt.Sprintf("%s returned to the requester for more information", evt.RequestNumber)
	case event.TypeRequestPurchased:
		text = fmt.Sprintf("%s marked as purchased", evt.RequestNumber)
	case event.TypeRequestCancelled:
		text = fmt.Sprintf("%s cancelled by the requester", evt.RequestNumber)
	case event.TypeCartAdded:
		return fmt.Sprintf("%s added to the Amazon business cart", evt.RequestNumber)
	default:
		return ""
	}
	if comment != "" {
		text += ": " + comment
	}
	return text
}

// buildCard renders a minimal interactive message card
func buildCard(title, template, markdown string) map[string]interface{} {
	return map[string]interface{}{
		"config": map[string]interface{}{
			"wide_screen_mode": true,
		},
		"header": map[string]interface{}{
			"template": template,
			"title": map[string]interface{}{
				"tag":     "plain_text",
				"content": title,
			},
		},
		"elements": []interface{}{
			map[string]interface{}{
				"tag": "div",
				"text": map[string]interface{}{
					"tag":     "lark_md",
					"content": markdown,
				},
			},
		},
	}
}
