package queue

// consumer.go contains the background consumer that listens to the
// reminder.due queue. Each message is the send-out itself in this build:
// the notification is appended to logs/reminders.log in a single-line,
// human-friendly format (the mail/SMS integration hangs off the same
// event later) and the reminder is flipped to 'sent' so it is not
// re-published by subsequent polls.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SentMarker flips a pending reminder to sent. Implemented by the reminder
// repository; the guard inside makes duplicate deliveries harmless.
type SentMarker interface {
	MarkSent(ctx context.Context, id uint64) error
}

// StartReminderConsumer connects to RabbitMQ, declares the reminder.due
// queue (durable), and starts consuming. It runs a reconnect loop with
// exponential backoff and never returns under normal operation; processing
// errors are logged and the offending message rejected without requeue so
// a poison message cannot wedge the queue.
func StartReminderConsumer(url string, marker SentMarker, log *zap.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("reminder consumer dial failed; retrying",
				zap.Duration("backoff", backoff), zap.Error(err))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, marker, log); err != nil {
			log.Warn("reminder consume loop ended; reconnecting", zap.Error(err))
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, marker SentMarker, log *zap.Logger) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(reminderDueQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(reminderDueQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, marker, log); err != nil {
			log.Warn("reminder message failed", zap.Error(err))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, marker SentMarker, log *zap.Logger) error {
	var ev ReminderDueEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := appendNotificationLog(ev); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := marker.MarkSent(ctx, ev.ReminderID); err != nil {
		// The notification went out but the status write failed; the next
		// poll re-publishes and MarkSent's pending guard absorbs the
		// duplicate.
		return fmt.Errorf("mark sent: %w", err)
	}
	log.Info("renewal reminder sent",
		zap.Uint64("reminder_id", ev.ReminderID),
		zap.Uint64("quote_id", ev.QuoteID))
	return nil
}

func appendNotificationLog(ev ReminderDueEvent) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "reminders.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	contact := ev.CustomerPhone
	if ev.CustomerEmail != "" {
		contact = ev.CustomerEmail
	}
	line := fmt.Sprintf("[%s] Renewal due | reminder_id=%d | quote_id=%d | customer=%q | contact=%q | renewal=%s\n",
		time.Now().UTC().Format(time.RFC3339), ev.ReminderID, ev.QuoteID, ev.CustomerName, contact, ev.RenewalDate)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
