// Package amqp delivers notification messages to a RabbitMQ queue consumed
// by a separate mailer.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/notification"
)

// channel is the part of *amqp.Channel the sender uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Sender publishes each message as a persistent JSON delivery on queue.
type Sender struct {
	conn  *amqp.Connection
	ch    channel
	queue string
}

// Dial connects to the broker and declares the durable queue.
func Dial(url, queue string) (*Sender, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-type": "classic"},
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &Sender{conn: conn, ch: ch, queue: queue}, nil
}

func newSender(ch channel, queue string) *Sender {
	return &Sender{ch: ch, queue: queue}
}

func (s *Sender) Name() string { return "amqp" }

func (s *Sender) Send(ctx context.Context, msg *notification.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	err = s.ch.PublishWithContext(ctx,
		"",      // default exchange routes by queue name
		s.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			ContentType:  "application/json",
			Type:         "email",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish email to %s: %w", s.queue, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (s *Sender) Close() error {
	if err := s.ch.Close(); err != nil {
		return fmt.Errorf("close rabbitmq channel: %w", err)
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
