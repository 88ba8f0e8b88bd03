package model

import "github.com/google/uuid"

// SecretScope distinguishes an organization-wide secret (fanned out to
// target projects via assignments) from a project-owned one (spec §3, §4.8).
type SecretScope string

const (
	SecretScopeOrganization SecretScope = "Organization"
	SecretScopeProject      SecretScope = "Project"
)

// SecretKind distinguishes the wire/manifest shape of the secret.
type SecretKind string

const (
	SecretKindExternal         SecretKind = "External"
	SecretKindKubernetesSecret SecretKind = "KubernetesSecret"
)

// SecretUseCase is carried on a project-scoped KubernetesSecret; the
// HUGGING_FACE case gets a label injected before the manifest ships
// (spec §4.8).
type SecretUseCase string

const (
	SecretUseCaseNone        SecretUseCase = ""
	SecretUseCaseHuggingFace SecretUseCase = "HUGGING_FACE"
)

// HuggingFaceUseCaseLabel is injected onto the Kubernetes manifest of a
// project-scoped secret whose UseCase is HUGGING_FACE.
const HuggingFaceUseCaseLabel = "airm.silogen.com/use-case"

// HuggingFaceUseCaseLabelValue is the label value paired with
// HuggingFaceUseCaseLabel.
const HuggingFaceUseCaseLabelValue = "hugging_face"

// SecretStatus is the rollup over a secret's assignments (spec §4.4, §4.8).
type SecretStatus string

const (
	SecretUnassigned SecretStatus = "Unassigned"
	SecretSynced     SecretStatus = "Synced"
	SecretPartiallySynced SecretStatus = "PartiallySynced"
	SecretSyncedError    SecretStatus = "SyncedError"
	SecretFailed         SecretStatus = "Failed"
	SecretDeleting       SecretStatus = "Deleting"
	SecretDeleted        SecretStatus = "Deleted"
	SecretDeleteFailed   SecretStatus = "DeleteFailed"
)

// Secret is polymorphic over Scope; a Project-scoped secret has exactly one
// assignment, an Organization-scoped one has zero or more.
type Secret struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	// ProjectID is set only when Scope == SecretScopeProject.
	ProjectID    *uuid.UUID
	Scope        SecretScope
	Kind         SecretKind
	UseCase      SecretUseCase
	Name         string
	Manifest     []byte
	Status       SecretStatus
	StatusReason string
	Audit
}

// SecretAssignmentStatus is the per-(secret,project) child status rolled up
// into the parent Secret's Status (spec §3, §4.4).
type SecretAssignmentStatus string

const (
	AssignmentPending      SecretAssignmentStatus = "Pending"
	AssignmentSynced       SecretAssignmentStatus = "Synced"
	AssignmentSyncedError  SecretAssignmentStatus = "SyncedError"
	AssignmentFailed       SecretAssignmentStatus = "Failed"
	AssignmentDeleting     SecretAssignmentStatus = "Deleting"
	AssignmentDeleted      SecretAssignmentStatus = "Deleted"
	AssignmentDeleteFailed SecretAssignmentStatus = "DeleteFailed"
	AssignmentUnknown      SecretAssignmentStatus = "Unknown"
)

// SecretAssignment links an organization-scoped secret to one target
// project. A project-scoped secret's single implicit assignment is
// represented the same way for uniformity of the rollup function.
type SecretAssignment struct {
	ID           uuid.UUID
	SecretID     uuid.UUID
	ProjectID    uuid.UUID
	Status       SecretAssignmentStatus
	StatusReason string
	Audit
}
