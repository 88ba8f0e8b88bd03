// Package secret implements the secret half of the secret & storage sync
// component (spec §4.8): organization-scoped secrets fanned out to target
// projects via assignments, project-scoped secrets with a single implicit
// assignment, Hugging Face label injection, and assignment-set diffing on
// update. Grounded on original_source's secrets service
// (services/airm/api/app/secrets/*).
package secret

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/outbox"
	"github.com/amd-eai/airm/internal/store"
)

// ClusterResolver maps a project id to the cluster its messages must be
// published to.
type ClusterResolver interface {
	ClusterForProject(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error)
}

// CreateOrganizationScoped implements spec §4.8 "Organization-scoped
// secret": created with 0..N target projects, each getting a Pending
// assignment and a project_secrets_create message.
func CreateOrganizationScoped(ctx context.Context, st *store.Store, resolver ClusterResolver, sender outbox.Sender, organizationID uuid.UUID, name string, kind model.SecretKind, manifest []byte, targetProjects []uuid.UUID, createdBy string) (*model.Secret, error) {
	return create(ctx, st, resolver, sender, organizationID, model.SecretScopeOrganization, nil, name, kind, model.SecretUseCaseNone, manifest, targetProjects, createdBy)
}

// CreateProjectScoped implements spec §4.8 "Project-scoped secret": same
// flow, but exactly one target project. useCase HUGGING_FACE gets the
// Kubernetes-secret label injected before the manifest ships.
func CreateProjectScoped(ctx context.Context, st *store.Store, resolver ClusterResolver, sender outbox.Sender, organizationID, projectID uuid.UUID, name string, useCase model.SecretUseCase, manifest []byte, createdBy string) (*model.Secret, error) {
	if useCase == model.SecretUseCaseHuggingFace {
		manifest = injectHuggingFaceLabel(manifest)
	}

	return create(ctx, st, resolver, sender, organizationID, model.SecretScopeProject, &projectID, name, model.SecretKindKubernetesSecret, useCase, manifest, []uuid.UUID{projectID}, createdBy)
}

func create(ctx context.Context, st *store.Store, resolver ClusterResolver, sender outbox.Sender, organizationID uuid.UUID, scope model.SecretScope, ownerProjectID *uuid.UUID, name string, kind model.SecretKind, useCase model.SecretUseCase, manifest []byte, targets []uuid.UUID, createdBy string) (*model.Secret, error) {
	var created *model.Secret

	err := outbox.Scope(ctx, sender, func(ctx context.Context, ob *outbox.Outbox) error {
		return st.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
			sec := &model.Secret{
				ID:             uuid.New(),
				OrganizationID: organizationID,
				ProjectID:      ownerProjectID,
				Scope:        scope,
				Kind:         kind,
				UseCase:      useCase,
				Name:         name,
				Manifest:     manifest,
				Status:       model.SecretUnassigned,
				StatusReason: "awaiting assignment sync",
				Audit:        model.Audit{CreatedBy: createdBy, UpdatedBy: createdBy},
			}
			if err := tx.CreateSecret(ctx, sec); err != nil {
				return err
			}

			for _, projectID := range targets {
				assignment := &model.SecretAssignment{
					ID:           uuid.New(),
					SecretID:     sec.ID,
					ProjectID:    projectID,
					Status:       model.AssignmentPending,
					StatusReason: "creating",
					Audit:        model.Audit{CreatedBy: createdBy, UpdatedBy: createdBy},
				}
				if err := tx.CreateSecretAssignment(ctx, assignment); err != nil {
					return err
				}

				clusterID, err := resolver.ClusterForProject(ctx, projectID)
				if err != nil {
					return err
				}

				ob.Enqueue(clusterID, fabric.TypeProjectSecretsCreate, fabric.ProjectSecretsCreateMessage{
					ProjectID:  projectID.String(),
					SecretID:   sec.ID.String(),
					SecretType: sec.Kind,
				})
			}

			created = sec

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateTargets implements spec §4.8 "Updates replace the assignment set":
// diff current assignments against desiredProjects, enqueueing a create for
// each addition and a delete (assignment -> Deleting) for each removal.
func UpdateTargets(ctx context.Context, st *store.Store, resolver ClusterResolver, sender outbox.Sender, secretID uuid.UUID, desiredProjects []uuid.UUID, updatedBy string) error {
	sec, err := st.GetSecret(ctx, secretID)
	if err != nil {
		return err
	}

	current, err := st.ListSecretAssignments(ctx, secretID)
	if err != nil {
		return err
	}

	currentByProject := make(map[uuid.UUID]model.SecretAssignment, len(current))
	for _, a := range current {
		currentByProject[a.ProjectID] = a
	}

	desired := make(map[uuid.UUID]bool, len(desiredProjects))
	for _, p := range desiredProjects {
		desired[p] = true
	}

	return outbox.Scope(ctx, sender, func(ctx context.Context, ob *outbox.Outbox) error {
		for _, projectID := range desiredProjects {
			if _, exists := currentByProject[projectID]; exists {
				continue
			}

			a := &model.SecretAssignment{
				ID:           uuid.New(),
				SecretID:     secretID,
				ProjectID:    projectID,
				Status:       model.AssignmentPending,
				StatusReason: "creating",
				Audit:        model.Audit{CreatedBy: updatedBy, UpdatedBy: updatedBy},
			}
			if err := st.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
				return tx.CreateSecretAssignment(ctx, a)
			}); err != nil {
				return err
			}

			clusterID, err := resolver.ClusterForProject(ctx, projectID)
			if err != nil {
				return err
			}

			ob.Enqueue(clusterID, fabric.TypeProjectSecretsCreate, fabric.ProjectSecretsCreateMessage{
				ProjectID:  projectID.String(),
				SecretID:   secretID.String(),
				SecretType: sec.Kind,
			})
		}

		for projectID, a := range currentByProject {
			if desired[projectID] {
				continue
			}

			if err := st.UpdateSecretAssignmentStatus(ctx, a.ID, model.AssignmentDeleting, "removed from target set", updatedBy); err != nil {
				return err
			}

			clusterID, err := resolver.ClusterForProject(ctx, projectID)
			if err != nil {
				return err
			}

			ob.Enqueue(clusterID, fabric.TypeProjectSecretsDelete, fabric.ProjectSecretsDeleteMessage{
				ProjectID: projectID.String(),
				SecretID:  secretID.String(),
			})
		}

		return nil
	})
}
