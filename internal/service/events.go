package service

import (
	"context"
	"fmt"

	"freelancehub/internal/repository"
	"freelancehub/pkg/mq"
	"freelancehub/pkg/trace"
)

// recordEvent appends a domain event to the outbox inside tx.
func recordEvent(ctx context.Context, tx repository.Store, aggregate string, aggregateID int64, eventType string, payload any) error {
	evt, err := mq.NewEvent(eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", eventType, err)
	}
	evt.TraceID = trace.FromContext(ctx)
	if err := tx.Outbox().Append(ctx, aggregate, aggregateID, evt); err != nil {
		return fmt.Errorf("failed to record %s: %w", eventType, err)
	}
	return nil
}
