package model

import "github.com/google/uuid"

// WorkloadComponentStatus is the per-component status emitted by a
// dispatcher watcher (spec §4.9's per-kind status maps), and the enum the
// workload composite rollup folds over.
type WorkloadComponentStatus string

const (
	ComponentPending    WorkloadComponentStatus = "PENDING"
	ComponentRunning    WorkloadComponentStatus = "RUNNING"
	ComponentSuspended  WorkloadComponentStatus = "SUSPENDED"
	ComponentComplete   WorkloadComponentStatus = "COMPLETE"
	ComponentFailed     WorkloadComponentStatus = "FAILED"
	ComponentInvalid    WorkloadComponentStatus = "INVALID"
	ComponentReady      WorkloadComponentStatus = "READY"
	ComponentAdded      WorkloadComponentStatus = "ADDED"
	ComponentDeleted    WorkloadComponentStatus = "DELETED"
	ComponentCreateFailed WorkloadComponentStatus = "CreateFailed"
	ComponentUnknown    WorkloadComponentStatus = "UNKNOWN"
)

// WorkloadStatus is the aggregate status of a workload, rolled up from its
// components the same way project status rolls up from namespace+quota
// (spec §3 "Workload status rolls up from its components, similar to
// §4.4").
type WorkloadStatus string

const (
	WorkloadPending        WorkloadStatus = "Pending"
	WorkloadRunning        WorkloadStatus = "Running"
	WorkloadPartiallyReady WorkloadStatus = "PartiallyReady"
	WorkloadFailed         WorkloadStatus = "Failed"
	WorkloadComplete       WorkloadStatus = "Complete"
	WorkloadDeleting       WorkloadStatus = "Deleting"
	WorkloadDeleted        WorkloadStatus = "Deleted"
)

// Chart, Overlay, Model, Dataset are reference rows a Workload points at;
// the core treats them as opaque identifiers (spec §3).
type Chart struct {
	ID   uuid.UUID
	Name string
}

type Overlay struct {
	ID   uuid.UUID
	Name string
}

type DatasetRef struct {
	ID   uuid.UUID
	Name string
}

type ModelRef struct {
	ID   uuid.UUID
	Name string
}

// Workload references a chart plus optional overlay/model/dataset.
type Workload struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	Name         string
	ChartID      uuid.UUID
	OverlayID    *uuid.UUID
	ModelID      *uuid.UUID
	DatasetID    *uuid.UUID
	Status       WorkloadStatus
	StatusReason string
	Audit
}

// WorkloadComponent is a single Kubernetes resource created for a
// Workload, tracked by ComponentID (GLOSSARY).
type WorkloadComponent struct {
	ID             uuid.UUID
	WorkloadID     uuid.UUID
	ComponentID    string
	Kind           string
	Name           string
	Status         WorkloadComponentStatus
	StatusReason   string
	AutoDiscovered bool
	Audit
}
