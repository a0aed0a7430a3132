package postgres

import (
	"context"

	"freelancehub/pkg/mq"
	"freelancehub/pkg/outbox"
)

type outboxWriter struct {
	q    querier
	repo *outbox.Repository
}

func (w outboxWriter) Append(ctx context.Context, aggregateType string, aggregateID int64, evt mq.Event) error {
	e, err := outbox.FromEnvelope(aggregateType, aggregateID, evt)
	if err != nil {
		return err
	}
	return w.repo.InsertEvent(ctx, w.q, e)
}
