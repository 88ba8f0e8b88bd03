// Package fabric implements the per-cluster messaging topology of spec
// §4.1/§6: virtual-host provisioning with directional permissions, queue
// declaration, and a JSON-codec'd discriminated union of messages. No AMQP
// client appears anywhere in the example pack, so this package is built on
// github.com/rabbitmq/amqp091-go, the de facto Go AMQP 0-9-1 client (named,
// not grounded — see DESIGN.md).
package fabric

import "fmt"

// CommonVHost is the single shared virtual host carrying inbound messages
// from every dispatcher to the controller (spec §6).
const CommonVHost = "vh_airm_common"

// CommonQueue is the queue name within CommonVHost.
const CommonQueue = "airm_common"

// ClusterVHost returns the dedicated virtual host used only for
// controller->dispatcher messages to the given cluster (spec §4.1).
func ClusterVHost(clusterID string) string {
	return fmt.Sprintf("vh_%s", clusterID)
}

// ClusterQueue returns the queue name within a cluster's dedicated vhost.
// It is identical to the cluster id (spec §6).
func ClusterQueue(clusterID string) string {
	return clusterID
}

// BrokerURL builds an AMQP URL for the given broker credentials and vhost.
// Used both for BrokerURLBuilder's per-cluster URLs and for dialing the
// shared common vhost the controller consumes from.
func BrokerURL(username, password, host string, port int, vhost string) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", username, password, host, port, vhost)
}

// ClusterUser returns the AMQP user provisioned for a cluster's dispatcher;
// it is identical to the cluster id (spec §4.1).
func ClusterUser(clusterID string) string {
	return clusterID
}

// Permissions is a RabbitMQ management-API permission triple, each a regex
// string matched against resource names.
type Permissions struct {
	Configure string
	Write     string
	Read      string
}

// ReadOnly grants configure-everything, write-nothing, read-everything: the
// dispatcher's view of its own per-cluster vhost (spec §4.1 "grants the
// dispatcher user read-only on its per-cluster vhost").
var ReadOnly = Permissions{Configure: ".*", Write: "^$", Read: ".*"}

// WriteOnly grants configure-everything, write-everything, read-nothing:
// the dispatcher's view of the common vhost (spec §4.1 "write-only on
// common").
var WriteOnly = Permissions{Configure: ".*", Write: ".*", Read: "^$"}
