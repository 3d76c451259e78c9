package notify

import (
	"context"
	"fmt"

	"roombook/pkg/kafka"
)

const (
	schemaVersion = "1"
	sourceService = "bookings"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaDispatcher struct {
	publisher Publisher
}

// NewKafkaDispatcher keys every message by booking id so events for one
// booking stay ordered on a single partition.
func NewKafkaDispatcher(publisher Publisher) Dispatcher {
	return &kafkaDispatcher{publisher: publisher}
}

func (d *kafkaDispatcher) Dispatch(ctx context.Context, n Notification) error {
	msg, err := NewMessage(n)
	if err != nil {
		return err
	}
	if err := d.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for booking %s: %w", n.Event, n.BookingID, err)
	}
	return nil
}

func (d *kafkaDispatcher) Close() error {
	return d.publisher.Close()
}

func NewMessage(n Notification) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(n.BookingID).
		WithValue(n).
		WithEventID(n.EventID()).
		WithEventType(string(n.Event)).
		WithCorrelationID(n.CorrelationID).
		WithSchemaVersion(schemaVersion).
		WithSource(sourceService).
		WithTimestamp(n.OccurredAt).
		Build()
}
