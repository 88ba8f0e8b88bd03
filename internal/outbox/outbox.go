// Package outbox implements the transactional outbox of spec §4.2: writers
// never publish directly, they enqueue (cluster-id, message) pairs that are
// flushed only after the enclosing DB transaction commits, and discarded on
// rollback. Grounded on original_source's MessageSender/message_sender_scope
// (services/airm/api/app/messaging/sender.py), translated from an
// async-context-manager into an explicit Go scope-guard pair per spec §9
// "Scoped resources".
package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/fabric"
)

// Entry is one enqueued (cluster, message) pair.
type Entry struct {
	ClusterID   uuid.UUID
	MessageType fabric.MessageType
	Payload     interface{}
}

// Sender publishes a single message to a cluster's queue, keyed by cluster
// id; internal/fabric's ClusterBus satisfies this.
type Sender interface {
	Send(ctx context.Context, clusterID uuid.UUID, messageType fabric.MessageType, payload interface{}) error
}

// Outbox collects messages enqueued during one request/transaction. It is
// not safe for concurrent use: one Outbox belongs to exactly one in-flight
// request or message-handler invocation.
type Outbox struct {
	entries []Entry
}

// New returns an empty Outbox.
func New() *Outbox {
	return &Outbox{}
}

// Enqueue buffers a message; it is not sent until Flush is called.
func (o *Outbox) Enqueue(clusterID uuid.UUID, messageType fabric.MessageType, payload interface{}) {
	o.entries = append(o.entries, Entry{ClusterID: clusterID, MessageType: messageType, Payload: payload})
}

// Len reports how many messages are currently buffered.
func (o *Outbox) Len() int {
	return len(o.entries)
}

// Flush sends every buffered message in enqueue order via sender, removing
// each from the buffer only after a successful send (spec §4.2 "If flush
// fails mid-way, remaining messages stay in order and the error surfaces;
// already-sent messages are not rolled back"). Callers must only invoke
// Flush after their DB transaction has committed successfully.
func (o *Outbox) Flush(ctx context.Context, sender Sender) error {
	for len(o.entries) > 0 {
		e := o.entries[0]

		if err := sender.Send(ctx, e.ClusterID, e.MessageType, e.Payload); err != nil {
			return fmt.Errorf("flush outbox (message_type=%s, cluster=%s): %w", e.MessageType, e.ClusterID, err)
		}

		o.entries = o.entries[1:]
	}

	return nil
}

// Discard drops every buffered message without sending it (spec §4.2 "If
// the DB transaction rolls back, the outbox is discarded").
func (o *Outbox) Discard() {
	o.entries = nil
}

// Scope runs fn with a fresh Outbox, then flushes it via sender if fn
// returns nil, or discards it if fn returns an error — mirroring
// message_sender_scope's try/except/else. The caller is responsible for
// nesting this *outside* their DB-transaction scope guard so that
// transaction commit happens-before flush (spec §4.2, §5 "DB transaction
// commits happen-before message publish").
func Scope(ctx context.Context, sender Sender, fn func(ctx context.Context, o *Outbox) error) error {
	o := New()

	ctx = withOutbox(ctx, o)

	if err := fn(ctx, o); err != nil {
		o.Discard()
		return err
	}

	return o.Flush(ctx, sender)
}

type outboxKey struct{}

func withOutbox(ctx context.Context, o *Outbox) context.Context {
	return context.WithValue(ctx, outboxKey{}, o)
}

// FromContext retrieves the Outbox installed by Scope, if any.
func FromContext(ctx context.Context) (*Outbox, bool) {
	o, ok := ctx.Value(outboxKey{}).(*Outbox)
	return o, ok
}
