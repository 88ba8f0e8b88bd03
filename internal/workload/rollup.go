package workload

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/resolver"
	"github.com/amd-eai/airm/internal/store"
)

// ApplyAutoDiscovered implements spec §4.9 (g): a component the dispatcher
// found via annotation rather than having created itself is inserted
// PENDING before its first real status update arrives, so that update has
// a row to apply to.
func ApplyAutoDiscovered(ctx context.Context, st *store.Store, msg fabric.AutoDiscoveredWorkloadComponentMessage, updatedBy string) error {
	workloadID, err := uuid.Parse(msg.WorkloadID)
	if err != nil {
		return err
	}

	return st.CreateWorkloadComponent(ctx, &model.WorkloadComponent{
		ID:             uuid.New(),
		WorkloadID:     workloadID,
		ComponentID:    msg.ComponentID,
		Kind:           msg.Kind,
		Name:           msg.Name,
		Status:         model.ComponentPending,
		AutoDiscovered: true,
		Audit:          model.Audit{CreatedBy: updatedBy, UpdatedBy: updatedBy},
	})
}

// ApplyComponentStatus implements spec §4.9 (e)/(f): applies one
// component's reported status, removing the row on a terminal Deleted
// report, then recomputes and persists the workload's aggregate status.
func ApplyComponentStatus(ctx context.Context, st *store.Store, msg fabric.WorkloadComponentStatusUpdateMessage, updatedBy string) error {
	workloadID, err := uuid.Parse(msg.WorkloadID)
	if err != nil {
		return err
	}

	if msg.Status == model.ComponentDeleted {
		if err := st.DeleteWorkloadComponent(ctx, workloadID, msg.ComponentID); err != nil {
			return err
		}
	} else if err := st.UpdateWorkloadComponentStatusIfOlder(ctx, workloadID, msg.ComponentID, msg.UpdatedAt, msg.Status, msg.Reason, updatedBy); err != nil {
		return err
	}

	return Rollup(ctx, st, workloadID, updatedBy)
}

// Rollup recomputes a workload's aggregate status from its current
// component set and persists it if changed, hard-deleting the workload row
// once it is Deleting with zero remaining components (spec §4.4 "parent
// hard-deletes once every component reaches a terminal state", generalized
// from internal/project.Rollup).
func Rollup(ctx context.Context, st *store.Store, workloadID uuid.UUID, updatedBy string) error {
	w, err := st.GetWorkload(ctx, workloadID)
	if err != nil {
		return err
	}

	components, err := st.ListWorkloadComponents(ctx, workloadID)
	if err != nil {
		return err
	}

	result := resolver.ResolveWorkload(w.Status == model.WorkloadDeleting, components)

	if result.Status == model.WorkloadDeleted {
		return st.DeleteWorkload(ctx, workloadID)
	}

	if result.Status == w.Status && result.Reason == w.StatusReason {
		return nil
	}

	return st.UpdateWorkloadStatus(ctx, workloadID, result.Status, result.Reason, updatedBy)
}
