package model

import "github.com/google/uuid"

// ApiKey stores only a truncated display form and an opaque external-key-id;
// validity metadata (expiry, renewable, num-uses) lives in the external
// auth service and is fetched on demand (spec §3, §4.10).
type ApiKey struct {
	ID            uuid.UUID
	ProjectID     uuid.UUID
	Name          string
	TruncatedForm string
	ExternalKeyID string
	Audit
}

// AIMStatus tracks an AIM catalog entry's lifecycle; entries are
// soft-deleted (status = AIMDeleted) rather than removed, per spec §4.10.
type AIMStatus string

const (
	AIMActive  AIMStatus = "ACTIVE"
	AIMDeleted AIMStatus = "DELETED"
)

// AIM is the catalog entry for a deployable inference-model image
// (GLOSSARY: AMD Inference Model).
type AIM struct {
	ID             uuid.UUID
	ImageReference string
	ResourceName   string
	Labels         map[string]string
	Status         AIMStatus
	Audit
}

// AIMClusterModel binds an AIM to a specific cluster, as reported by that
// cluster's dispatcher discovery pass (spec §4.10, §4.9 supplement).
type AIMClusterModel struct {
	ID        uuid.UUID
	AIMID     uuid.UUID
	ClusterID uuid.UUID
	Status    AIMStatus
	Audit
}
