package outbox

import (
	"encoding/json"
	"fmt"

	"freelancehub/pkg/mq"
)

// FromEnvelope wraps a domain event as a pending outbox row. The envelope is stored
// whole so consumers see the original event id; its type is the routing key.
func FromEnvelope(aggregateType string, aggregateID int64, evt mq.Event) (*Event, error) {
	if evt.Type == "" {
		return nil, fmt.Errorf("outbox event for %s %d has no type", aggregateType, aggregateID)
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", evt.Type, err)
	}

	var agg *int64
	if aggregateID != 0 {
		agg = &aggregateID
	}
	return &Event{
		AggregateType: aggregateType,
		AggregateID:   agg,
		RoutingKey:    evt.Type,
		Payload:       payload,
		Status:        StatusPending,
	}, nil
}
