package queue

// publisher.go publishes domain events to RabbitMQ. Errors are logged and
// returned so callers can ignore failures without interrupting their main
// flow; an unpublished reminder simply comes around again on the next poll.

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher publishes reminder events to the broker at the configured URL.
// Connections are dialed per publish: send-out volume is a handful of
// messages per day, so holding a channel open buys nothing.
type Publisher struct {
	url string
	log *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishReminderDue publishes a ReminderDueEvent to the reminder.due
// queue. Messages are marked persistent so they survive broker restarts.
func (p *Publisher) PublishReminderDue(ctx context.Context, event ReminderDueEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(reminderDueQueueName, true, false, false, false, nil); err != nil {
		p.log.Warn("rabbitmq queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", reminderDueQueueName, false, false, pub); err != nil {
		p.log.Warn("rabbitmq publish failed",
			zap.Uint64("reminder_id", event.ReminderID), zap.Error(err))
		return err
	}
	return nil
}
