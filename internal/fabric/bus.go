package fabric

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// URLBuilder resolves a cluster id to the AMQP URL and queue name for that
// cluster's per-cluster vhost (spec §6 "one virtual host per cluster
// vh_{cluster_id} with queue {cluster_id}"). cmd/airm-controller supplies
// one backed by the broker host/port plus each cluster's provisioned
// credentials.
type URLBuilder interface {
	URLForCluster(ctx context.Context, clusterID uuid.UUID) (url, queue string, err error)
}

// ClusterBus implements outbox.Sender by lazily dialing and caching one
// Publisher per cluster id, re-dialing on the next send after a publish
// failure (spec §5 "Per-cluster publisher channel; re-created on
// connection loss").
type ClusterBus struct {
	connector Connector
	urls      URLBuilder

	mu         sync.Mutex
	publishers map[uuid.UUID]*Publisher
}

// NewClusterBus returns a ClusterBus dialing connections via connector,
// resolving each cluster's AMQP URL/queue via urls.
func NewClusterBus(connector Connector, urls URLBuilder) *ClusterBus {
	return &ClusterBus{connector: connector, urls: urls, publishers: make(map[uuid.UUID]*Publisher)}
}

// Send implements outbox.Sender, dialing clusterID's Publisher on first
// use and evicting it for a fresh dial on the next call if the publish
// fails.
func (b *ClusterBus) Send(ctx context.Context, clusterID uuid.UUID, messageType MessageType, payload interface{}) error {
	pub, err := b.publisherFor(ctx, clusterID)
	if err != nil {
		return err
	}

	if err := pub.Publish(ctx, messageType, payload); err != nil {
		b.evict(clusterID)
		return err
	}

	return nil
}

func (b *ClusterBus) publisherFor(ctx context.Context, clusterID uuid.UUID) (*Publisher, error) {
	b.mu.Lock()
	pub, ok := b.publishers[clusterID]
	b.mu.Unlock()

	if ok {
		return pub, nil
	}

	url, queue, err := b.urls.URLForCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	pub, err = DialPublisher(ctx, b.connector, url, queue)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.publishers[clusterID] = pub
	b.mu.Unlock()

	return pub, nil
}

func (b *ClusterBus) evict(clusterID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pub, ok := b.publishers[clusterID]; ok {
		pub.Close()
		delete(b.publishers, clusterID)
	}
}

// Close releases every cached Publisher.
func (b *ClusterBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error

	for id, pub := range b.publishers {
		if err := pub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		delete(b.publishers, id)
	}

	return firstErr
}

// BrokerURLBuilder implements URLBuilder using the controller's own
// broker-admin connection, never the per-cluster user: spec §4.1's
// provisioned per-cluster secret "is returned once to the caller; it is
// never stored", so the controller cannot authenticate as {cluster_id}
// later. It instead publishes over the same management credentials Admin
// provisions clusters with, which RabbitMQ grants access to every vhost.
type BrokerURLBuilder struct {
	Host     string
	Port     int
	Username string
	Password string
}

// URLForCluster implements URLBuilder.
func (b BrokerURLBuilder) URLForCluster(ctx context.Context, clusterID uuid.UUID) (url, queue string, err error) {
	id := clusterID.String()
	queue = ClusterQueue(id)
	url = BrokerURL(b.Username, b.Password, b.Host, b.Port, ClusterVHost(id))

	return url, queue, nil
}
