package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/diogopython/Nuvemhost/internal/logging"
)

// Sender delivers the welcome message for a new account.
type Sender interface {
	SendWelcome(ctx context.Context, to, username string) error
}

// StartWelcomeConsumer connects to RabbitMQ, declares the user.registered
// queue and sends a welcome mail for every event. It reconnects with
// exponential backoff and returns only when ctx is cancelled.
func StartWelcomeConsumer(ctx context.Context, url string, sender Sender, log logging.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn(ctx, "welcome-consumer: failed to dial broker", "err", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, sender, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn(ctx, "welcome-consumer: consume loop ended; reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sender Sender, log logging.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Warn(ctx, "welcome-consumer: set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(UserRegisteredQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, UserRegisteredQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	log.Info(ctx, "welcome-consumer: consuming", "queue", UserRegisteredQueue)
	for d := range msgs {
		if err := handleMessage(ctx, d.Body, sender); err != nil {
			log.Error(ctx, "welcome-consumer: handle message failed", "err", err)
			_ = d.Nack(false, false) // do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(ctx context.Context, body []byte, sender Sender) error {
	var ev UserRegisteredEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Email == "" {
		return errors.New("event without email")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sender.SendWelcome(ctx, ev.Email, ev.Username); err != nil {
		return fmt.Errorf("send welcome to user %d: %w", ev.UserID, err)
	}
	return nil
}
