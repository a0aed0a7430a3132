package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type fakeTracker struct {
	counts map[string]int64
	err    error
}

func (f *fakeTracker) IncrementAndGet(_ context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeTracker) Reset(_ context.Context, key string) error {
	delete(f.counts, key)
	return nil
}

func newTestConsumer(tracker RetryTracker) *Consumer {
	c := &Consumer{queue: amqp091.Queue{Name: "notifications.q"}, maxRetries: 2}
	if tracker != nil {
		c.retries = tracker
	}
	return c
}

func TestDecideAckOnSuccessResetsCounter(t *testing.T) {
	tracker := &fakeTracker{counts: map[string]int64{"retry:notifications.q:m1": 2}}
	c := newTestConsumer(tracker)

	assert.Equal(t, outcomeAck, c.decide(context.Background(), "m1", nil))
	assert.Empty(t, tracker.counts)
}

func TestDecideNonRetryableGoesToDLQ(t *testing.T) {
	c := newTestConsumer(nil)
	assert.Equal(t, outcomeDeadLetter, c.decide(context.Background(), "m1", errors.New("json: cannot unmarshal")))
}

func TestDecideRetryableRequeuesUntilBudget(t *testing.T) {
	tracker := &fakeTracker{counts: map[string]int64{}}
	c := newTestConsumer(tracker)
	err := context.DeadlineExceeded

	assert.Equal(t, outcomeRequeue, c.decide(context.Background(), "m1", err))
	assert.Equal(t, outcomeRequeue, c.decide(context.Background(), "m1", err))
	assert.Equal(t, outcomeDeadLetter, c.decide(context.Background(), "m1", err))
}

func TestDecideRequeuesWhenTrackerFails(t *testing.T) {
	c := newTestConsumer(&fakeTracker{err: errors.New("redis down")})
	assert.Equal(t, outcomeRequeue, c.decide(context.Background(), "m1", context.DeadlineExceeded))
}

func TestDLQPublishingKeepsOriginalMessage(t *testing.T) {
	msg := amqp091.Delivery{
		RoutingKey:  "payment.released",
		MessageId:   "evt-1",
		ContentType: "application/json",
		Body:        []byte(`{"id":"evt-1"}`),
		Headers:     amqp091.Table{"traceparent": "00-abc"},
	}
	pub := dlqPublishing(msg, "notifications.q", "boom")

	assert.Equal(t, msg.Body, pub.Body)
	assert.Equal(t, "evt-1", pub.MessageId)
	assert.Equal(t, amqp091.Persistent, pub.DeliveryMode)
	assert.Equal(t, "00-abc", pub.Headers["traceparent"])
	assert.Equal(t, "boom", pub.Headers["x-original-error"])
	assert.Equal(t, "notifications.q", pub.Headers["x-failed-queue"])
	assert.Equal(t, "payment.released", pub.Headers["x-original-routing-key"])
	assert.Equal(t, "notifications.q.payment.released", dlqRoutingKey("notifications.q", msg.RoutingKey))
	assert.Equal(t, "notifications.q.dlq", DLQName("notifications.q"))
}
