package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"freelancehub/pkg/metrics"
	"freelancehub/pkg/otel"
	"freelancehub/pkg/trace"
	"freelancehub/pkg/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// RetryTracker counts delivery attempts per message. util.RetryCounter implements it.
type RetryTracker interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeDeadLetter
)

type Consumer struct {
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	queue       amqp091.Queue
	routingKeys []string
	handler     MessageHandler
	logger      *zap.Logger

	retries    RetryTracker
	maxRetries int64

	stopOnce sync.Once
	done     chan struct{}
}

// NewConsumer creates a durable queue bound to the given routing keys (topic patterns allowed).
func NewConsumer(url, queueName string, logger *zap.Logger, routingKeys ...string) (*Consumer, error) {
	if len(routingKeys) == 0 {
		return nil, fmt.Errorf("consumer %s has no routing keys", queueName)
	}

	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	closeAll := func() {
		ch.Close()
		conn.Close()
	}

	if err := DeclareExchange(ch); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := DeclareDLQExchange(ch); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare dlq exchange: %w", err)
	}
	if _, err := DeclareDLQQueue(ch, queueName); err != nil {
		closeAll()
		return nil, err
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range routingKeys {
		if err := ch.QueueBind(q.Name, key, ExchangeName, false, nil); err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to bind queue to %s: %w", key, err)
		}
	}

	if err := ch.Qos(16, 0, false); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.Strings("routing_keys", routingKeys),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       q,
		routingKeys: routingKeys,
		logger:      logger,
		maxRetries:  3,
		done:        make(chan struct{}),
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// WithRetries enables bounded redelivery: retryable failures are requeued until
// maxRetries attempts, after which the message goes to the dead letter exchange.
func (c *Consumer) WithRetries(tracker RetryTracker, maxRetries int64) *Consumer {
	c.retries = tracker
	c.maxRetries = maxRetries
	return c
}

// IsConnected reports whether the underlying connection is open.
func (c *Consumer) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

// Stop cancels the consumer; StartConsuming returns once in-flight work finishes.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		if c.channel != nil {
			_ = c.channel.Cancel(c.queue.Name, false)
		}
	})
}

func (c *Consumer) Close() {
	c.Stop()
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming blocks until the delivery channel closes; call it in a goroutine.
func (c *Consumer) StartConsuming() error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		c.queue.Name, // consumer tag, used by Stop
		false,        // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages", zap.String("queue", c.queue.Name))

	for msg := range deliveries {
		c.handle(msg)
	}

	c.logger.Info("Consumer stopped", zap.String("queue", c.queue.Name))
	return nil
}

func (c *Consumer) handle(msg amqp091.Delivery) {
	start := time.Now()
	ctx, span := otel.MQConsumeSpan(context.Background(), msg.Headers, msg.RoutingKey, c.queue.Name)
	defer span.End()
	if traceID, ok := msg.Headers["trace_id"].(string); ok {
		ctx = trace.WithContext(ctx, traceID)
	}

	log := c.logger.With(
		zap.String("routing_key", msg.RoutingKey),
		zap.String("queue", c.queue.Name),
		zap.String("message_id", msg.MessageId),
	)

	var handlerErr error
	func() {
		// 确保 handler panic 时消息也会被处理
		defer func() {
			if r := recover(); r != nil {
				log.Error("Handler panic recovered", zap.Any("panic", r))
				handlerErr = fmt.Errorf("handler panic: %v", r)
			}
		}()
		handlerErr = c.handler(ctx, msg.Body)
	}()

	metrics.RecordMQConsumeLatency(msg.RoutingKey, c.queue.Name, time.Since(start))

	switch c.decide(ctx, msg.MessageId, handlerErr) {
	case outcomeAck:
		if err := msg.Ack(false); err != nil {
			log.Error("Failed to ack message", zap.Error(err))
		}
	case outcomeRequeue:
		log.Warn("Handler failed, requeueing", zap.Error(handlerErr))
		if err := msg.Nack(false, true); err != nil {
			log.Error("Failed to nack message", zap.Error(err))
		}
	case outcomeDeadLetter:
		log.Error("Handler failed, dead-lettering", zap.Error(handlerErr))
		if err := publishToDLQ(c.channel, msg, c.queue.Name, handlerErr.Error()); err != nil {
			log.Error("Failed to publish to DLQ, requeueing", zap.Error(err))
			_ = msg.Nack(false, true)
			return
		}
		if err := msg.Ack(false); err != nil {
			log.Error("Failed to ack dead-lettered message", zap.Error(err))
		}
	}
}

// decide maps a handler result onto ack / requeue / dead-letter.
func (c *Consumer) decide(ctx context.Context, messageID string, handlerErr error) outcome {
	if handlerErr == nil {
		if c.retries != nil && messageID != "" {
			_ = c.retries.Reset(ctx, util.FormatRetryKey(c.queue.Name, messageID))
		}
		return outcomeAck
	}

	retryable, _ := util.IsRetryableError(handlerErr)
	if !retryable {
		return outcomeDeadLetter
	}
	if c.retries == nil || messageID == "" {
		return outcomeRequeue
	}

	count, err := c.retries.IncrementAndGet(ctx, util.FormatRetryKey(c.queue.Name, messageID))
	if err != nil {
		// 计数器不可用时保守地重试
		return outcomeRequeue
	}
	if util.ShouldRetry(count, c.maxRetries, true) {
		return outcomeRequeue
	}
	return outcomeDeadLetter
}
