package quota

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/model"
)

// EditStore is the subset of internal/store the edit path needs, beyond
// CapacityStore.
type EditStore interface {
	CapacityStore
	GetQuotaByProject(ctx context.Context, projectID uuid.UUID) (*model.Quota, error)
	UpdateQuotaResources(ctx context.Context, id uuid.UUID, r model.Resources, updatedBy string) error
	UpdateQuotaStatus(ctx context.Context, id uuid.UUID, status model.QuotaStatus, reason string, priorLost *model.Resources, updatedBy string) error
}

// Edit implements spec §4.6 "Skip-send optimization": if the proposed
// resources are unchanged from the persisted value, it sets the quota
// directly to Ready without validating or republishing; otherwise it
// validates them against capacity, persists them, sets the quota to
// Pending, and reports that a re-allocation is needed so the caller can
// enqueue it.
func Edit(ctx context.Context, store EditStore, clusterID uuid.UUID, project model.Project, proposed model.Resources, updatedBy string) (needsReallocation bool, err error) {
	q, err := store.GetQuotaByProject(ctx, project.ID)
	if err != nil {
		return false, err
	}

	if proposed == q.Resources {
		return false, store.UpdateQuotaStatus(ctx, q.ID, model.QuotaReady, "", nil, updatedBy)
	}

	projectID := project.ID
	if err := Validate(ctx, store, clusterID, &projectID, proposed); err != nil {
		return false, err
	}

	if err := store.UpdateQuotaResources(ctx, q.ID, proposed, updatedBy); err != nil {
		return false, err
	}

	if err := store.UpdateQuotaStatus(ctx, q.ID, model.QuotaPending, "applying edited quota", nil, updatedBy); err != nil {
		return false, err
	}

	return true, nil
}
