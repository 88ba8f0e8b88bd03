package fabric

import (
	"time"

	"github.com/amd-eai/airm/internal/model"
)

// HeartbeatMessage is emitted periodically by the dispatcher (spec §4.5).
type HeartbeatMessage struct {
	ClusterName      string    `json:"cluster_name"`
	OrganizationName string    `json:"organization_name"`
	LastHeartbeatAt  time.Time `json:"last_heartbeat_at"`
}

// ClusterNodeReport is one node within a ClusterNodesMessage.
type ClusterNodeReport struct {
	Name            string          `json:"name"`
	CPUMillicores   int64           `json:"cpu_millicores"`
	MemoryBytes     int64           `json:"memory_bytes"`
	EphemeralBytes  int64           `json:"ephemeral_bytes"`
	GPUCount        int             `json:"gpu_count"`
	GPUVendor       model.GPUVendor `json:"gpu_vendor"`
	GPUType         string          `json:"gpu_type"`
	GPUVRAMBytes    int64           `json:"gpu_vram_bytes"`
	GPUProductName  string          `json:"gpu_product_name"`
	Ready           bool            `json:"ready"`
	Status          string          `json:"status"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ClusterIdentity is embedded in ClusterNodesMessage,
// ClusterQuotasStatusMessage, ClusterQuotasFailureMessage and
// AIMClusterModelsMessage; other dispatcher-originated messages do not carry
// it. Every dispatcher publishes onto the one shared vh_airm_common queue
// (spec §6 "Queue fabric"), so nothing about the queue itself identifies
// the sender; unlike heartbeat (spec §4.5), which identifies by name because
// it may run before the cluster row's name is even set, these messages
// identify the cluster by its cluster_id (the same id used as its
// per-cluster vhost's AMQP username, spec §4.1 "Provisioning").
type ClusterIdentity struct {
	ClusterID string `json:"cluster_id"`
}

// ClusterNodesMessage carries the dispatcher's full node set (spec §4.5).
type ClusterNodesMessage struct {
	ClusterIdentity
	Nodes []ClusterNodeReport `json:"nodes"`
}

// QuotaEntry is one line item within a quota allocation or status message.
type QuotaEntry struct {
	ProjectName string           `json:"project_name"`
	Resources   model.Resources  `json:"resources"`
	Namespaces  []string         `json:"namespaces"`
}

// PriorityClass is one of the three fixed Kaiwo priority classes the
// allocation message carries (spec §4.6).
type PriorityClass struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// DefaultPriorityClasses are the three fixed classes every allocation
// message carries (spec §4.6: low=-100, medium=0, high=+100).
var DefaultPriorityClasses = []PriorityClass{
	{Name: "low", Priority: -100},
	{Name: "medium", Priority: 0},
	{Name: "high", Priority: 100},
}

// ClusterQuotasAllocationMessage is the controller's authoritative set of
// cluster-queue entries, including the synthetic catch-all (spec §4.6).
type ClusterQuotasAllocationMessage struct {
	Quotas          []QuotaEntry      `json:"quotas"`
	GPUVendor       model.GPUVendor   `json:"gpu_vendor"`
	PriorityClasses []PriorityClass   `json:"priority_classes"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ClusterQuotasStatusMessage is the dispatcher's report of the quotas it
// wrote into its KaiwoQueueConfig (spec §4.6). It is sent as soon as the
// update of that resource succeeds; the resource's READY status is not
// awaited.
type ClusterQuotasStatusMessage struct {
	ClusterIdentity
	Quotas    []QuotaEntry `json:"quotas"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ClusterQuotasFailureMessage is emitted when the dispatcher's
// KaiwoQueueConfig apply fails (spec §4.6).
type ClusterQuotasFailureMessage struct {
	ClusterIdentity
	Reason    string    `json:"reason"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkloadCreateMessage ships a rendered manifest document stream to the
// owning cluster for the dispatcher's manifest-apply step (spec §4.9
// "Manifest apply").
type WorkloadCreateMessage struct {
	WorkloadID string `json:"workload_id"`
	ProjectID  string `json:"project_id"`
	Manifest   []byte `json:"manifest"`
}

// WorkloadStatusUpdateMessage reports the aggregate workload status.
type WorkloadStatusUpdateMessage struct {
	WorkloadID string                `json:"workload_id"`
	Status     model.WorkloadStatus  `json:"status"`
	Reason     string                `json:"reason"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// WorkloadComponentStatusUpdateMessage reports a single component's status
// (spec §4.9).
type WorkloadComponentStatusUpdateMessage struct {
	WorkloadID  string                        `json:"workload_id"`
	ComponentID string                        `json:"component_id"`
	ProjectID   string                        `json:"project_id"`
	Kind        string                        `json:"kind"`
	Status      model.WorkloadComponentStatus `json:"status"`
	Reason      string                        `json:"reason"`
	UpdatedAt   time.Time                     `json:"updated_at"`
}

// AutoDiscoveredWorkloadComponentMessage is sent before the first status
// update for a component the dispatcher found via annotation rather than
// having created itself (spec §4.9 (g)).
type AutoDiscoveredWorkloadComponentMessage struct {
	WorkloadID  string `json:"workload_id"`
	ComponentID string `json:"component_id"`
	ProjectID   string `json:"project_id"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
}

// DeleteWorkloadMessage triggers the dispatcher's label-cascade delete
// (spec §4.9).
type DeleteWorkloadMessage struct {
	WorkloadID string `json:"workload_id"`
}

// ProjectNamespaceCreateMessage requests namespace creation on a cluster.
type ProjectNamespaceCreateMessage struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// ProjectNamespaceDeleteMessage requests namespace deletion.
type ProjectNamespaceDeleteMessage struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
}

// ProjectNamespaceStatusMessage reports the dispatcher-observed namespace
// phase back to the controller.
type ProjectNamespaceStatusMessage struct {
	ProjectID string                `json:"project_id"`
	Status    model.NamespaceStatus `json:"status"`
	Reason    string                `json:"reason"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// ProjectSecretsCreateMessage ships a secret manifest to a project's
// cluster (spec §4.8).
type ProjectSecretsCreateMessage struct {
	ProjectID  string            `json:"project_id"`
	SecretID   string            `json:"secret_id"`
	SecretType model.SecretKind  `json:"secret_type"`
	Manifest   map[string]string `json:"manifest"`
	Labels     map[string]string `json:"labels,omitempty"`
}

// ProjectSecretsDeleteMessage requests a secret be removed from a project's
// cluster.
type ProjectSecretsDeleteMessage struct {
	ProjectID string `json:"project_id"`
	SecretID  string `json:"secret_id"`
}

// ProjectSecretsUpdateMessage reports the dispatcher-observed secret status
// (spec §4.8).
type ProjectSecretsUpdateMessage struct {
	ProjectID string                       `json:"project_id"`
	SecretID  string                       `json:"secret_id"`
	Status    model.SecretAssignmentStatus `json:"status"`
	Reason    string                       `json:"reason"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// ProjectS3StorageCreateMessage ships a storage binding to a project's
// cluster (spec §4.8).
type ProjectS3StorageCreateMessage struct {
	ProjectID      string `json:"project_id"`
	StorageID      string `json:"storage_id"`
	BucketURL      string `json:"bucket_url"`
	SecretName     string `json:"secret_name"`
	AccessKeyField string `json:"access_key_field"`
	SecretKeyField string `json:"secret_key_field"`
}

// ProjectStorageDeleteMessage requests a storage binding be removed.
type ProjectStorageDeleteMessage struct {
	ProjectID string `json:"project_id"`
	StorageID string `json:"storage_id"`
}

// ProjectStorageUpdateMessage reports the dispatcher-observed config-map
// status for a storage binding.
type ProjectStorageUpdateMessage struct {
	ProjectID string                `json:"project_id"`
	StorageID string                `json:"storage_id"`
	Status    model.ConfigmapStatus `json:"status"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// AIMClusterModelReport is one entry within an AIMClusterModelsMessage.
type AIMClusterModelReport struct {
	ImageReference string            `json:"image_reference"`
	ResourceName   string            `json:"resource_name"`
	Labels         map[string]string `json:"labels"`
}

// AIMClusterModelsMessage is the dispatcher's full current AIM set for its
// cluster (spec §4.10).
type AIMClusterModelsMessage struct {
	ClusterIdentity
	Models    []AIMClusterModelReport `json:"models"`
	UpdatedAt time.Time               `json:"updated_at"`
}
