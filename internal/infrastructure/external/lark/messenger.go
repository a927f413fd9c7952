package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-workflow/internal/application/port"
)

const (
	receiveIDTypeChat  = "chat_id"
	msgTypeText        = "text"
	msgTypeInteractive = "interactive"
)

// messageCreator is the slice of the IM API the messenger needs
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Messenger implements port.MessageSender on top of Lark group chats
type Messenger struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewMessenger creates a new Lark message sender adapter
func NewMessenger(sdk *SDKClient, logger *zap.Logger) *Messenger {
	return &Messenger{
		messages: sdk.GetClient().Im.Message,
		logger:   logger,
	}
}

// SendText posts a plain text message to a chat
func (m *Messenger) SendText(ctx context.Context, chatID string, text string) error {
	if chatID == "" {
		return fmt.Errorf("chatID cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal text content: %w", err)
	}

	_, err = m.send(ctx, chatID, msgTypeText, string(content))
	return err
}

// SendCard posts an interactive card to a chat
func (m *Messenger) SendCard(ctx context.Context, chatID string, card interface{}) error {
	if chatID == "" {
		return fmt.Errorf("chatID cannot be empty")
	}
	if card == nil {
		return fmt.Errorf("card cannot be nil")
	}

	cardJSON, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal card content: %w", err)
	}

	_, err = m.send(ctx, chatID, msgTypeInteractive, string(cardJSON))
	return err
}

func (m *Messenger) send(ctx context.Context, chatID, msgType, content string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeChat).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("chat_id", chatID),
			zap.Error(err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("chat_id", chatID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent successfully",
		zap.String("message_id", messageID),
		zap.String("chat_id", chatID),
		zap.String("msg_type", msgType))

	return messageID, nil
}

// Verify interface compliance
var _ port.MessageSender = (*Messenger)(nil)
