package outbox_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/outbox"
)

type fakeSender struct {
	sent      []fabric.MessageType
	failAfter int // fail the (failAfter+1)'th send; -1 never fails
}

func (f *fakeSender) Send(ctx context.Context, clusterID uuid.UUID, messageType fabric.MessageType, payload interface{}) error {
	if f.failAfter >= 0 && len(f.sent) == f.failAfter {
		return errors.New("broker unavailable")
	}

	f.sent = append(f.sent, messageType)

	return nil
}

func TestScopeFlushesOnSuccess(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{failAfter: -1}
	clusterID := uuid.New()

	err := outbox.Scope(context.Background(), sender, func(ctx context.Context, o *outbox.Outbox) error {
		o.Enqueue(clusterID, fabric.TypeHeartbeat, fabric.HeartbeatMessage{})
		o.Enqueue(clusterID, fabric.TypeClusterNodes, fabric.ClusterNodesMessage{})

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []fabric.MessageType{fabric.TypeHeartbeat, fabric.TypeClusterNodes}, sender.sent)
}

func TestScopeDiscardsOnError(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{failAfter: -1}
	clusterID := uuid.New()

	err := outbox.Scope(context.Background(), sender, func(ctx context.Context, o *outbox.Outbox) error {
		o.Enqueue(clusterID, fabric.TypeHeartbeat, fabric.HeartbeatMessage{})

		return errors.New("transaction rolled back")
	})

	require.Error(t, err)
	// Invariant (spec §8 #4): a rolled-back transaction's outbox messages
	// are never published.
	assert.Empty(t, sender.sent)
}

func TestFlushStopsAtFirstFailureButPreservesOrder(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{failAfter: 1}
	o := outbox.New()
	clusterID := uuid.New()

	o.Enqueue(clusterID, fabric.TypeHeartbeat, fabric.HeartbeatMessage{})
	o.Enqueue(clusterID, fabric.TypeClusterNodes, fabric.ClusterNodesMessage{})
	o.Enqueue(clusterID, fabric.TypeAIMClusterModels, fabric.AIMClusterModelsMessage{})

	err := o.Flush(context.Background(), sender)

	require.Error(t, err)
	assert.Equal(t, []fabric.MessageType{fabric.TypeHeartbeat}, sender.sent)
	// The already-sent message is not rolled back and the remaining two
	// stay queued in order (spec §4.2).
	assert.Equal(t, 2, o.Len())
}
