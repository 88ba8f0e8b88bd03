package fabric

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connector opens AMQP connections; swapped for a fake in tests.
type Connector interface {
	Dial(url string) (*amqp.Connection, error)
}

type defaultConnector struct{}

func (defaultConnector) Dial(url string) (*amqp.Connection, error) {
	return amqp.Dial(url)
}

// Publisher owns one connection/channel pair to a single vhost and
// publishes messages to one queue within it, with publisher confirms
// enabled (spec §4.1 "publishers enable publisher confirms"). It is
// re-created by the caller on connection loss (spec §5 "Per-cluster
// publisher channel; re-created on connection loss").
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	confirm chan amqp.Confirmation
}

// DialPublisher opens a connection to the given AMQP URL (which encodes
// the target vhost) and declares the queue, returning a ready-to-use
// Publisher.
func DialPublisher(ctx context.Context, connector Connector, url, queue string) (*Publisher, error) {
	conn, err := connector.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", queue, err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := channel.Confirm(false); err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	confirm := channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &Publisher{conn: conn, channel: channel, queue: queue, confirm: confirm}, nil
}

// Publish sends a single message and blocks for its publisher confirm.
// Messages to a given cluster preserve producer-emission order because
// callers serialize all sends through one Publisher per cluster (spec §5
// "Ordering guarantees").
func (p *Publisher) Publish(ctx context.Context, messageType MessageType, payload interface{}) error {
	body, err := Encode(messageType, payload)
	if err != nil {
		return err
	}

	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}); err != nil {
		return err
	}

	select {
	case confirmation := <-p.confirm:
		if !confirmation.Ack {
			return fmt.Errorf("publish to %s: broker nacked", p.queue)
		}

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the underlying connection.
func (p *Publisher) Close() error {
	return p.conn.Close()
}

// NewConnector returns the production Connector backed by amqp091-go.
func NewConnector() Connector {
	return defaultConnector{}
}
