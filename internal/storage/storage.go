// Package storage implements the storage half of the secret & storage sync
// component (spec §4.8): assigning a Storage to a project ensures the
// underlying project-scoped secret assignment exists first, then binds the
// storage and ships project_s3_storage_create. Grounded on original_source's
// storages service (services/airm/api/app/storages/*).
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/outbox"
	"github.com/amd-eai/airm/internal/secret"
	"github.com/amd-eai/airm/internal/store"
)

// ClusterResolver maps a project id to the cluster its messages must be
// published to.
type ClusterResolver interface {
	ClusterForProject(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error)
}

// AssignToProject implements spec §4.8 "Storage": ensures the storage's
// secret has an assignment to the project, in any status (creating one
// and enqueueing project_secrets_create if none exists yet), then
// inserts a ProjectStorage (Pending) and ProjectStorageConfigmap (Added),
// and ships project_s3_storage_create.
func AssignToProject(ctx context.Context, st *store.Store, resolver ClusterResolver, sender outbox.Sender, storageID, projectID uuid.UUID, createdBy string) (*model.ProjectStorage, error) {
	s, err := st.GetStorage(ctx, storageID)
	if err != nil {
		return nil, err
	}

	secretAssignments, err := st.ListSecretAssignments(ctx, s.SecretID)
	if err != nil {
		return nil, err
	}

	hasAssignment := false

	for _, a := range secretAssignments {
		if a.ProjectID == projectID {
			hasAssignment = true
			break
		}
	}

	if !hasAssignment {
		desired := make([]uuid.UUID, 0, len(secretAssignments)+1)
		for _, a := range secretAssignments {
			desired = append(desired, a.ProjectID)
		}

		desired = append(desired, projectID)

		if err := secret.UpdateTargets(ctx, st, resolver, sender, s.SecretID, desired, createdBy); err != nil {
			return nil, err
		}
	}

	var created *model.ProjectStorage

	clusterID, err := resolver.ClusterForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	err = outbox.Scope(ctx, sender, func(ctx context.Context, ob *outbox.Outbox) error {
		return st.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
			ps := &model.ProjectStorage{
				ID:           uuid.New(),
				StorageID:    storageID,
				ProjectID:    projectID,
				Status:       model.ProjectStoragePending,
				StatusReason: "awaiting sync",
				Audit:        model.Audit{CreatedBy: createdBy, UpdatedBy: createdBy},
			}
			if err := tx.CreateProjectStorage(ctx, ps); err != nil {
				return err
			}

			cm := &model.ProjectStorageConfigmap{
				ID:               uuid.New(),
				ProjectStorageID: ps.ID,
				Status:           model.ConfigmapAdded,
				Audit:            model.Audit{CreatedBy: createdBy, UpdatedBy: createdBy},
			}
			if err := tx.CreateProjectStorageConfigmap(ctx, cm); err != nil {
				return err
			}

			ob.Enqueue(clusterID, fabric.TypeProjectS3StorageCreate, fabric.ProjectS3StorageCreateMessage{
				ProjectID:      projectID.String(),
				StorageID:      storageID.String(),
				BucketURL:      s.BucketURL,
				SecretName:     s.Name,
				AccessKeyField: s.AccessKeyField,
				SecretKeyField: s.SecretKeyField,
			})

			created = ps

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

