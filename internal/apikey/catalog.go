package apikey

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/store"
)

// ReconcileAIMCatalog implements spec §4.10 "AIM catalog reconciliation":
// consumes the cluster's full current aim_cluster_models set, diffs it
// against the table keyed by image_reference, inserts/updates present
// entries, and marks absent rows DELETED rather than hard-deleting them.
func ReconcileAIMCatalog(ctx context.Context, st *store.Store, clusterID uuid.UUID, msg fabric.AIMClusterModelsMessage, updatedBy string) error {
	reported := make(map[string]fabric.AIMClusterModelReport, len(msg.Models))
	for _, m := range msg.Models {
		reported[m.ImageReference] = m
	}

	for ref, m := range reported {
		aim := &model.AIM{
			ID:             uuid.New(),
			ImageReference: ref,
			ResourceName:   m.ResourceName,
			Labels:         m.Labels,
			Status:         model.AIMActive,
			Audit:          model.Audit{CreatedBy: updatedBy, UpdatedBy: updatedBy},
		}
		if err := st.CreateOrUpdateAIM(ctx, aim); err != nil {
			return err
		}

		binding := &model.AIMClusterModel{
			ID:        uuid.New(),
			AIMID:     aim.ID,
			ClusterID: clusterID,
			Status:    model.AIMActive,
			Audit:     model.Audit{CreatedBy: updatedBy, UpdatedBy: updatedBy},
		}
		if err := st.CreateOrUpdateAIMClusterModel(ctx, binding); err != nil {
			return err
		}
	}

	existing, err := st.ListAIMClusterModelsByCluster(ctx, clusterID)
	if err != nil {
		return err
	}

	for _, e := range existing {
		if e.Status == model.AIMDeleted {
			continue
		}

		aim, err := st.GetAIM(ctx, e.AIMID)
		if err != nil {
			return err
		}

		if _, present := reported[aim.ImageReference]; !present {
			if err := st.SoftDeleteAIMClusterModel(ctx, e.ID, updatedBy); err != nil {
				return err
			}
		}
	}

	return nil
}
