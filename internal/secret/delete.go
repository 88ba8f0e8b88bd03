package secret

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/outbox"
	"github.com/amd-eai/airm/internal/store"
)

// StorageBlockers lists the storages in a project still referencing a
// secret — used to refuse a removal that would orphan a storage binding.
type StorageBlockers interface {
	BlockingStorageNames(ctx context.Context, secretID, projectID uuid.UUID) ([]string, error)
}

// RemoveFromProject implements spec §4.8's "Updates replace the assignment
// set" remove path for a single project, guarded by "Deletion refusal": a
// secret cannot be removed from a project while a storage in that project
// still references it.
func RemoveFromProject(ctx context.Context, st *store.Store, resolver ClusterResolver, blockers StorageBlockers, sender outbox.Sender, secretID, projectID uuid.UUID, updatedBy string) error {
	if blocking, err := blockers.BlockingStorageNames(ctx, secretID, projectID); err != nil {
		return err
	} else if len(blocking) > 0 {
		return apierrors.Validation(fmt.Sprintf("secret is still referenced by storage(s): %v", blocking), "storages")
	}

	assignments, err := st.ListSecretAssignments(ctx, secretID)
	if err != nil {
		return err
	}

	var target *model.SecretAssignment

	for i := range assignments {
		if assignments[i].ProjectID == projectID {
			target = &assignments[i]
			break
		}
	}

	if target == nil {
		return apierrors.NotFound("secret assignment", projectID.String())
	}

	clusterID, err := resolver.ClusterForProject(ctx, projectID)
	if err != nil {
		return err
	}

	return outbox.Scope(ctx, sender, func(ctx context.Context, ob *outbox.Outbox) error {
		if err := st.UpdateSecretAssignmentStatus(ctx, target.ID, model.AssignmentDeleting, "removed from target set", updatedBy); err != nil {
			return err
		}

		ob.Enqueue(clusterID, fabric.TypeProjectSecretsDelete, fabric.ProjectSecretsDeleteMessage{
			ProjectID: projectID.String(),
			SecretID:  secretID.String(),
		})

		return nil
	})
}

// ReapIfOrphaned implements spec §4.8 "Project-scoped secret ... when its
// last assignment is gone, the parent secret is deleted" — called after an
// assignment transitions to Deleted.
func ReapIfOrphaned(ctx context.Context, st *store.Store, secretID uuid.UUID) error {
	sec, err := st.GetSecret(ctx, secretID)
	if err != nil {
		return err
	}

	if sec.Scope != model.SecretScopeProject {
		return nil
	}

	assignments, err := st.ListSecretAssignments(ctx, secretID)
	if err != nil {
		return err
	}

	if len(assignments) == 0 {
		return st.DeleteSecret(ctx, secretID)
	}

	return nil
}
