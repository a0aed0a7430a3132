package mq

import (
	"fmt"
	"os"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange every domain event is published to.
const ExchangeName = "events"

const heartbeat = 10 * time.Second

// NewConnection dials RabbitMQ, naming the connection after the host and pid so it
// can be found in the management UI.
func NewConnection(url string) (*amqp091.Connection, error) {
	host, _ := os.Hostname()
	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName(fmt.Sprintf("freelancehub@%s:%d", host, os.Getpid()))

	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange declares the durable events topic exchange.
func DeclareExchange(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeName, err)
	}
	return nil
}
