package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type rabbitDispatcher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitMQDispatcher publishes persistent JSON messages to a durable queue
// on the default exchange. The connection is opened on first use and reopened
// after the broker drops it.
func NewRabbitMQDispatcher(url, queue string) Dispatcher {
	return &rabbitDispatcher{url: url, queue: queue}
}

func (d *rabbitDispatcher) channel() (*amqp.Channel, error) {
	if d.ch != nil && !d.ch.IsClosed() {
		return d.ch, nil
	}
	if d.conn == nil || d.conn.IsClosed() {
		conn, err := amqp.Dial(d.url)
		if err != nil {
			return nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		d.conn = conn
	}

	ch, err := d.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := DeclareQueue(ch, d.queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	d.ch = ch
	return ch, nil
}

func (d *rabbitDispatcher) Dispatch(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ch, err := d.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, "", d.queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     n.EventID(),
		CorrelationId: n.CorrelationID,
		Type:          string(n.Event),
		Timestamp:     n.OccurredAt,
		AppId:         sourceService,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish %s for booking %s: %w", n.Event, n.BookingID, err)
	}
	return nil
}

func (d *rabbitDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.ch != nil {
		err = d.ch.Close()
		d.ch = nil
	}
	if d.conn != nil {
		if cerr := d.conn.Close(); err == nil {
			err = cerr
		}
		d.conn = nil
	}
	return err
}

// DeclareQueue declares the durable notification queue. Publisher and
// consumer both call it so either may start first.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return q, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return q, nil
}
