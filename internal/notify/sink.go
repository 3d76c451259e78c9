package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"roombook/pkg/kafka"
	"roombook/pkg/logger"
)

var ErrInvalidNotification = errors.New("invalid notification")

// Sink delivers a decoded notification to its recipient.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

type logSink struct {
	log *logger.Logger
}

// NewLogSink records each delivery as a structured log line. Real push and
// email delivery live outside this repository.
func NewLogSink(log *logger.Logger) Sink {
	return &logSink{log: log}
}

func (s *logSink) Deliver(_ context.Context, n Notification) error {
	s.log.Info("Booking notification",
		"event", n.Event,
		"booking_id", n.BookingID,
		"room_id", n.RoomID,
		"recipient", n.BookedBy,
		"title", n.Title,
		"date", n.Date,
		"start_time", n.StartTime,
		"end_time", n.EndTime,
		"priority", n.Priority,
		"occurred_at", n.OccurredAt,
		"correlation_id", n.CorrelationID,
	)
	return nil
}

func Decode(body []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return n, fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	if n.BookingID == "" {
		return n, fmt.Errorf("%w: missing booking_id", ErrInvalidNotification)
	}
	switch n.Event {
	case EventBookingCreated, EventBookingCancelled:
	default:
		return n, fmt.Errorf("%w: unknown event %q", ErrInvalidNotification, n.Event)
	}
	return n, nil
}

// KafkaHandler adapts sink to the Kafka consumer. Undecodable payloads are
// permanent failures so they go straight to the dead letter topic.
func KafkaHandler(sink Sink) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		n, err := Decode(msg.Value)
		if err != nil {
			return kafka.NewPermanentError("decode booking notification", err)
		}
		if n.CorrelationID == "" {
			n.CorrelationID = msg.GetCorrelationID()
		}
		if err := sink.Deliver(ctx, n); err != nil {
			return kafka.NewTransientError("deliver booking notification", err)
		}
		return nil
	}
}

// RabbitMQConsumer drains the notification queue into a sink, reconnecting
// with backoff until ctx is cancelled.
type RabbitMQConsumer struct {
	url   string
	queue string
	sink  Sink
	log   *logger.Logger
}

const (
	rabbitPrefetch   = 50
	rabbitMaxBackoff = 30 * time.Second
)

func NewRabbitMQConsumer(url, queue string, sink Sink, log *logger.Logger) *RabbitMQConsumer {
	return &RabbitMQConsumer{url: url, queue: queue, sink: sink, log: log}
}

func (c *RabbitMQConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("Failed to dial RabbitMQ", "error", err, "retry_in", backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, rabbitMaxBackoff)
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("RabbitMQ consume loop ended, reconnecting", "error", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *RabbitMQConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(rabbitPrefetch, 0, false); err != nil {
		c.log.Warn("Failed to set RabbitMQ prefetch", "error", err)
	}
	if _, err := DeclareQueue(ch, c.queue); err != nil {
		return err
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for d := range deliveries {
		c.handle(ctx, d)
	}
	return errors.New("deliveries channel closed")
}

// handle rejects undecodable messages without requeue and requeues sink
// failures once.
func (c *RabbitMQConsumer) handle(ctx context.Context, d amqp.Delivery) {
	n, err := Decode(d.Body)
	if err != nil {
		c.log.Warn("Rejecting invalid notification", "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, false)
		return
	}
	if n.CorrelationID == "" {
		n.CorrelationID = d.CorrelationId
	}
	if err := c.sink.Deliver(ctx, n); err != nil {
		c.log.Warn("Failed to deliver notification",
			"booking_id", n.BookingID,
			"event", n.Event,
			"redelivered", d.Redelivered,
			"error", err,
		)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
