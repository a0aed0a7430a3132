package mq

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope every domain event travels in. Type doubles as the routing key.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	TraceID    string          `json:"trace_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// NewEvent 把 payload 序列化进 envelope
func NewEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}, nil
}
