package mq

import (
	"context"
	"encoding/json"
	"time"

	"freelancehub/pkg/metrics"
)

// LocalPublisher delivers messages to an in-process handler instead of a broker.
// Used when no MQ url is configured.
type LocalPublisher struct {
	handler MessageHandler
}

func NewLocalPublisher(handler MessageHandler) *LocalPublisher {
	return &LocalPublisher{handler: handler}
}

func (p *LocalPublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	start := time.Now()
	err = p.handler(ctx, body)
	metrics.RecordMQConsumeLatency(routingKey, "local", time.Since(start))
	return err
}
