package project

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/outbox"
	"github.com/amd-eai/airm/internal/store"
)

// Delete implements spec §4.7 "Delete": requires the project not already
// be Deleting, emits project_namespace_delete, and marks the quota
// Deleting — which in turn triggers a re-emitted allocation without this
// project (the caller is responsible for calling quota.BuildAllocationMessage
// and enqueuing it, since that needs the full cluster quota list).
func Delete(ctx context.Context, st *store.Store, sender outbox.Sender, projectID uuid.UUID, updatedBy string) error {
	p, err := st.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	if p.Status == model.ProjectDeleting {
		return apierrors.Conflict("project is already being deleted")
	}

	ns, err := st.GetNamespaceByProject(ctx, projectID)
	if err != nil {
		return err
	}

	q, err := st.GetQuotaByProject(ctx, projectID)
	if err != nil {
		return err
	}

	return outbox.Scope(ctx, sender, func(ctx context.Context, ob *outbox.Outbox) error {
		if err := st.UpdateProjectStatus(ctx, projectID, model.ProjectDeleting, "deletion requested", updatedBy); err != nil {
			return err
		}

		if err := st.UpdateNamespaceStatus(ctx, ns.ID, model.NamespaceTerminating, "deleting", updatedBy); err != nil {
			return err
		}

		if err := st.UpdateQuotaStatus(ctx, q.ID, model.QuotaDeleting, "deleting", nil, updatedBy); err != nil {
			return err
		}

		ob.Enqueue(p.ClusterID, fabric.TypeProjectNamespaceDelete, fabric.ProjectNamespaceDeleteMessage{
			ProjectID: p.ID.String(),
			Name:      ns.Name,
		})

		return nil
	})
}
