package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/diogopython/Nuvemhost/internal/logging"
	q "github.com/diogopython/Nuvemhost/internal/queue"
)

// dialBroker is replaced in tests.
var dialBroker = func(url string) (brokerConn, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

type brokerChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type brokerConn interface {
	Channel() (brokerChannel, error)
	Close() error
}

type amqpConn struct{ *amqp.Connection }

func (c amqpConn) Channel() (brokerChannel, error) { return c.Connection.Channel() }

// EventPublisher publishes domain events to RabbitMQ. A nil *EventPublisher
// or one without a URL drops events silently; notifications never block
// the request that triggered them.
type EventPublisher struct {
	url string
	log logging.Logger
}

func NewEventPublisher(url string, log logging.Logger) *EventPublisher {
	return &EventPublisher{url: url, log: log}
}

// PublishUserRegistered sends a UserRegisteredEvent to the user.registered
// queue. Messages are persistent. Errors are logged and returned so the
// caller may ignore them.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, ev q.UserRegisteredEvent) error {
	if p == nil || p.url == "" {
		return nil
	}
	conn, err := dialBroker(p.url)
	if err != nil {
		p.log.Warn(ctx, "rabbitmq: dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn(ctx, "rabbitmq: channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(q.UserRegisteredQueue, true, false, false, false, nil); err != nil {
		p.log.Warn(ctx, "rabbitmq: queue declare failed", "err", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.UserRegisteredQueue, false, false, pub); err != nil {
		p.log.Warn(ctx, "rabbitmq: publish failed", "err", err)
		return err
	}
	return nil
}

// PublishUserRegisteredAsync publishes in the background with its own
// timeout, detached from the request context.
func (p *EventPublisher) PublishUserRegisteredAsync(ctx context.Context, ev q.UserRegisteredEvent) {
	if p == nil || p.url == "" {
		return
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, 10*time.Second)
		defer cancel()
		_ = p.PublishUserRegistered(ctx, ev)
	}()
}
