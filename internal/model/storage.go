package model

import "github.com/google/uuid"

// Storage is organization-scoped and references a credential-bearing
// Secret by id (spec §3, §4.8).
type Storage struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	SecretID        uuid.UUID
	Name            string
	BucketURL       string
	AccessKeyField  string
	SecretKeyField  string
	Status          SecretStatus // same enum/rollup shape as Secret (spec §4.4)
	StatusReason    string
	Audit
}

// ConfigmapStatus tracks the cluster-side config-map mirroring a
// ProjectStorage binding.
type ConfigmapStatus string

const (
	ConfigmapAdded   ConfigmapStatus = "Added"
	ConfigmapFailed  ConfigmapStatus = "Failed"
	ConfigmapDeleted ConfigmapStatus = "Deleted"
)

// ProjectStorageStatus is the composite status of a ProjectStorage binding,
// computed from (configmap status, linked secret-assignment status) per the
// table in spec §4.8.
type ProjectStorageStatus string

const (
	ProjectStorageSynced      ProjectStorageStatus = "Synced"
	ProjectStoragePending     ProjectStorageStatus = "Pending"
	ProjectStorageSyncedError ProjectStorageStatus = "SyncedError"
	ProjectStorageFailed      ProjectStorageStatus = "Failed"
)

// ProjectStorage binds a Storage to a specific project.
type ProjectStorage struct {
	ID           uuid.UUID
	StorageID    uuid.UUID
	ProjectID    uuid.UUID
	Status       ProjectStorageStatus
	StatusReason string
	Audit
}

// ProjectStorageConfigmap is the child row tracking the cluster-side
// config-map status for a ProjectStorage binding.
type ProjectStorageConfigmap struct {
	ID               uuid.UUID
	ProjectStorageID uuid.UUID
	Status           ConfigmapStatus
	Audit
}
