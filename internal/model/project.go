package model

import "github.com/google/uuid"

// ProjectStatus is the rollup of a project's namespace and quota, computed
// by internal/resolver and never set directly by a handler (spec §4.4).
type ProjectStatus string

const (
	ProjectPending        ProjectStatus = "Pending"
	ProjectFailed         ProjectStatus = "Failed"
	ProjectPartiallyReady ProjectStatus = "PartiallyReady"
	ProjectReady          ProjectStatus = "Ready"
	ProjectDeleting       ProjectStatus = "Deleting"
)

// Project is the unit of tenancy: one name, one cluster, one quota, one
// namespace, a set of memberships (GLOSSARY).
type Project struct {
	ID                 uuid.UUID
	OrganizationID     uuid.UUID
	ClusterID          uuid.UUID
	Name               string
	IdentityProviderGroupID string
	Status             ProjectStatus
	StatusReason       string
	Audit
}

// QuotaStatus tracks the quota through the allocation protocol (spec §4.6).
type QuotaStatus string

const (
	QuotaPending  QuotaStatus = "Pending"
	QuotaReady    QuotaStatus = "Ready"
	QuotaFailed   QuotaStatus = "Failed"
	QuotaDeleting QuotaStatus = "Deleting"
	QuotaDeleted  QuotaStatus = "Deleted"
)

// Quota is one-to-one with Project; it holds only the project id, never an
// owning pointer back to Project (spec §9 "Cyclic ownership").
type Quota struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	Resources Resources
	// PriorLost preserves the resource vector that was zeroed when the
	// cluster reported the quota missing (spec §9 Open Question #1). It is
	// never read back into Resources automatically; it exists purely so an
	// operator can recover the last-known-good values.
	PriorLost *Resources
	Status       QuotaStatus
	StatusReason string
	Audit
}

// NamespaceStatus tracks the per-project namespace through its lifecycle
// (spec §3).
type NamespaceStatus string

const (
	NamespacePending      NamespaceStatus = "Pending"
	NamespaceActive       NamespaceStatus = "Active"
	NamespaceTerminating  NamespaceStatus = "Terminating"
	NamespaceDeleted      NamespaceStatus = "Deleted"
	NamespaceFailed       NamespaceStatus = "Failed"
	NamespaceDeleteFailed NamespaceStatus = "DeleteFailed"
)

// Namespace is one-to-one with Project within its cluster.
type Namespace struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	ClusterID    uuid.UUID
	Name         string
	Status       NamespaceStatus
	StatusReason string
	Audit
}

// DefaultCatchAllQuotaName is the synthetic quota name reserved for the
// cluster's unallocated capacity; it is rejected as a project name and
// skipped during per-project reconciliation (spec §4.6, §4.7, §8 invariant
// 9-11).
const DefaultCatchAllQuotaName = "catch-all"

// MaxProjectsPerCluster bounds active projects on a cluster; one slot is
// always reserved for the catch-all quota (spec §4.7).
const MaxProjectsPerCluster = 64

// RestrictedProjectNames may never be used as a project name: the
// catch-all quota name plus reserved identity-provider group names
// (spec §4.7, §8 invariant 11).
var RestrictedProjectNames = map[string]bool{
	DefaultCatchAllQuotaName: true,
	"kaiwo":                  true,
	"minio-users":            true,
	"platformadmins":         true,
}
