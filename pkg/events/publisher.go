package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message types set on the AMQP Type property.
const (
	MessageOrderPlaced            = "order.placed"
	MessagePasswordResetRequested = "password.reset_requested"
)

// Publisher sends order and notification messages to the broker.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, msg OrderPlaced) error
	PublishPasswordReset(ctx context.Context, msg PasswordResetRequested) error
	Close() error
}

// NoopPublisher is used when RabbitMQ is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }
func (NoopPublisher) PublishPasswordReset(context.Context, PasswordResetRequested) error {
	return nil
}
func (NoopPublisher) Close() error { return nil }

// Queues names the durable queues messages are routed to.
type Queues struct {
	Orders        string
	Notifications string
}

// AMQPPublisher publishes persistent JSON messages to durable queues on the
// default exchange.
type AMQPPublisher struct {
	conn   *amqp.Connection
	mu     sync.Mutex
	ch     *amqp.Channel
	queues Queues
}

func NewAMQPPublisher(url string, queues Queues) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	for _, queue := range []string{queues.Orders, queues.Notifications} {
		if _, err := ch.QueueDeclare(
			queue,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	logger.Info("RabbitMQ publisher ready", map[string]interface{}{
		"orders":        queues.Orders,
		"notifications": queues.Notifications,
	})
	return &AMQPPublisher{conn: conn, ch: ch, queues: queues}, nil
}

func (p *AMQPPublisher) PublishOrderPlaced(ctx context.Context, msg OrderPlaced) error {
	return p.publish(ctx, p.queues.Orders, MessageOrderPlaced, msg.PlacedAt, msg)
}

func (p *AMQPPublisher) PublishPasswordReset(ctx context.Context, msg PasswordResetRequested) error {
	return p.publish(ctx, p.queues.Notifications, MessagePasswordResetRequested, time.Now(), msg)
}

func newPublishing(messageType string, at time.Time, msg interface{}) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    at,
		Type:         messageType,
		Body:         body,
	}, nil
}

func (p *AMQPPublisher) publish(ctx context.Context, queue, messageType string, at time.Time, msg interface{}) error {
	publishing, err := newPublishing(messageType, at, msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// a channel must not be used by two goroutines at once
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx,
		"",
		queue,
		false, // mandatory
		false, // immediate
		publishing,
	)
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
