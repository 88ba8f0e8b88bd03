package apikey

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/store"
)

// StoreGroupResolver is the store-backed GroupResolver: an AIM's
// cluster-auth groups are the identity-provider groups of every project
// currently running or about to run a workload against that AIM (spec
// §4.10 step 4).
type StoreGroupResolver struct {
	Store *store.Store
}

var _ GroupResolver = (*StoreGroupResolver)(nil)

// GroupsForAIM implements GroupResolver.
func (r *StoreGroupResolver) GroupsForAIM(ctx context.Context, aimID uuid.UUID) ([]string, error) {
	workloads, err := r.Store.ListWorkloadsByModel(ctx, aimID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)

	var groups []string

	for _, w := range workloads {
		if w.Status != model.WorkloadPending && w.Status != model.WorkloadRunning && w.Status != model.WorkloadPartiallyReady {
			continue
		}

		if seen[w.ProjectID] {
			continue
		}

		seen[w.ProjectID] = true

		p, err := r.Store.GetProject(ctx, w.ProjectID)
		if err != nil {
			return nil, err
		}

		groups = append(groups, p.IdentityProviderGroupID)
	}

	return groups, nil
}
