package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event emitted after a committed transition
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	RequestID     int64                  `json:"request_id"`
	RequestNumber string                 `json:"request_number"`
	ActorID       int64                  `json:"actor_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
}

// NewEvent creates a new domain event with a generated ID and timestamp
func NewEvent(eventType Type, requestID int64, requestNumber string, actorID int64, payload map[string]interface{}) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		RequestID:     requestID,
		RequestNumber: requestNumber,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
	}
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
