// Package model holds the entity types shared by the controller and the
// dispatcher: the persisted record (internal/store) and the message
// envelopes (internal/fabric) are both built from these types.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit is embedded in every persisted entity. created_by/updated_by carry
// the acting principal (a subject id from the JWT, or "dispatcher:<cluster>"
// for dispatcher-originated writes).
type Audit struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// Organization is the top-level tenancy boundary. Name is unique,
// case-folded before storage and comparison.
type Organization struct {
	ID                 uuid.UUID
	Name               string
	IdentityProviderID string
	Audit
}

// ClusterStatus is derived, never stored as an independent write target: it
// is computed from LastHeartbeatAt on read (see internal/cluster).
type ClusterStatus string

const (
	ClusterVerifying ClusterStatus = "VERIFYING"
	ClusterHealthy   ClusterStatus = "HEALTHY"
	ClusterUnhealthy ClusterStatus = "UNHEALTHY"
)

// HeartbeatStaleAfter is the age past which a cluster is considered
// UNHEALTHY rather than HEALTHY (spec §4.5).
const HeartbeatStaleAfter = 5 * time.Minute

// Cluster is owned by an Organization; Name is unique within it.
type Cluster struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	Name             string
	WorkloadsBaseURL string
	KubeAPIURL       string
	LastHeartbeatAt  *time.Time
	Audit
}

// Status derives the cluster's health from its last heartbeat, per spec
// §4.5: VERIFYING until first heartbeat, HEALTHY while recent, else
// UNHEALTHY.
func (c *Cluster) Status(now time.Time) ClusterStatus {
	if c.LastHeartbeatAt == nil {
		return ClusterVerifying
	}

	if now.Sub(*c.LastHeartbeatAt) < HeartbeatStaleAfter {
		return ClusterHealthy
	}

	return ClusterUnhealthy
}

// GPUVendor identifies the accelerator vendor present on a cluster's nodes;
// it is carried in node reports and in the quota allocation message. The
// dispatcher does not read it when building the KaiwoQueueConfig.
type GPUVendor string

const (
	GPUVendorNone   GPUVendor = ""
	GPUVendorNVIDIA GPUVendor = "NVIDIA"
	GPUVendorAMD    GPUVendor = "AMD"
)

// ClusterNode is owned by a Cluster; Name is unique within it
// (case-folded). The node collection is replaced in bulk from dispatcher
// reports using UpdatedAt dominance (spec §4.5).
type ClusterNode struct {
	ID               uuid.UUID
	ClusterID        uuid.UUID
	Name             string
	CPUMillicores    int64
	MemoryBytes      int64
	EphemeralBytes   int64
	GPUCount         int
	GPUVendor        GPUVendor
	GPUType          string
	GPUVRAMBytes     int64
	GPUProductName   string
	Ready            bool
	StatusText       string
	Audit
}

// Resources is the four-dimensional resource vector the quota engine and
// cluster inventory both operate on.
type Resources struct {
	CPUMillicores  int64
	MemoryBytes    int64
	EphemeralBytes int64
	GPUCount       int
}

// Add returns the element-wise sum of r and o.
func (r Resources) Add(o Resources) Resources {
	return Resources{
		CPUMillicores:  r.CPUMillicores + o.CPUMillicores,
		MemoryBytes:    r.MemoryBytes + o.MemoryBytes,
		EphemeralBytes: r.EphemeralBytes + o.EphemeralBytes,
		GPUCount:       r.GPUCount + o.GPUCount,
	}
}

// Sub returns the element-wise difference r - o, never going negative in
// any dimension (used to compute the catch-all remainder, spec §4.6).
func (r Resources) Sub(o Resources) Resources {
	sub := func(a, b int64) int64 {
		if a < b {
			return 0
		}

		return a - b
	}

	gpu := r.GPUCount - o.GPUCount
	if gpu < 0 {
		gpu = 0
	}

	return Resources{
		CPUMillicores:  sub(r.CPUMillicores, o.CPUMillicores),
		MemoryBytes:    sub(r.MemoryBytes, o.MemoryBytes),
		EphemeralBytes: sub(r.EphemeralBytes, o.EphemeralBytes),
		GPUCount:       gpu,
	}
}

// Exceeds returns the names of every dimension in which r is strictly
// greater than limit ("cpu", "memory", "ephemeral-storage", "gpu"), empty
// when none is (spec §4.6 "four resource checks are independent").
func (r Resources) Exceeds(limit Resources) []string {
	var failed []string

	if r.CPUMillicores > limit.CPUMillicores {
		failed = append(failed, "cpu")
	}

	if r.MemoryBytes > limit.MemoryBytes {
		failed = append(failed, "memory")
	}

	if r.EphemeralBytes > limit.EphemeralBytes {
		failed = append(failed, "ephemeral-storage")
	}

	if r.GPUCount > limit.GPUCount {
		failed = append(failed, "gpu")
	}

	return failed
}
