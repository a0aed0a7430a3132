package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// DLQExchangeName receives deliveries a consumer gave up on.
const DLQExchangeName = "events.dlq"

// DLQName is the parking queue for queueName.
func DLQName(queueName string) string {
	return queueName + ".dlq"
}

func DeclareDLQExchange(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(DLQExchangeName, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", DLQExchangeName, err)
	}
	return nil
}

// DeclareDLQQueue declares the parking queue for queueName. Dead letters are routed
// as <queue>.<event type>, so each queue only sees its own failures.
func DeclareDLQQueue(ch *amqp091.Channel, queueName string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(DLQName(queueName), true, false, false, false, nil)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare DLQ queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, dlqRoutingKey(queueName, "#"), DLQExchangeName, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind DLQ queue: %w", err)
	}
	return q, nil
}

func dlqRoutingKey(queueName, eventType string) string {
	return queueName + "." + eventType
}

// dlqPublishing copies msg for the DLQ, recording why and where it failed.
func dlqPublishing(msg amqp091.Delivery, queue, reason string) amqp091.Publishing {
	headers := make(amqp091.Table, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-original-error"] = reason
	headers["x-failed-queue"] = queue
	headers["x-original-routing-key"] = msg.RoutingKey

	return amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.MessageId,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
	}
}

func publishToDLQ(ch *amqp091.Channel, msg amqp091.Delivery, queue, reason string) error {
	return ch.Publish(DLQExchangeName, dlqRoutingKey(queue, msg.RoutingKey), false, false, dlqPublishing(msg, queue, reason))
}
