package workload

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/outbox"
	"github.com/amd-eai/airm/internal/store"
)

// Delete marks the workload Deleting and enqueues delete_workload, which
// triggers the dispatcher's label-cascade delete (spec §4.9).
func Delete(ctx context.Context, st *store.Store, resolver ClusterResolver, sender outbox.Sender, workloadID uuid.UUID, updatedBy string) error {
	w, err := st.GetWorkload(ctx, workloadID)
	if err != nil {
		return err
	}

	if w.Status == model.WorkloadDeleting {
		return apierrors.Conflict("workload is already deleting")
	}

	clusterID, err := resolver.ClusterForProject(ctx, w.ProjectID)
	if err != nil {
		return err
	}

	return outbox.Scope(ctx, sender, func(ctx context.Context, o *outbox.Outbox) error {
		if err := st.UpdateWorkloadStatus(ctx, workloadID, model.WorkloadDeleting, "deletion requested", updatedBy); err != nil {
			return err
		}

		o.Enqueue(clusterID, fabric.TypeDeleteWorkload, fabric.DeleteWorkloadMessage{WorkloadID: workloadID.String()})

		return nil
	})
}
