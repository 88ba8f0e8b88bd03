// Package quota implements the quota engine component (spec §4.6):
// validation of proposed resource vectors against cluster capacity,
// construction of the per-cluster allocation message with its synthetic
// catch-all remainder, the skip-send optimization, and reconciliation of
// the dispatcher's status/failure feedback. Grounded on original_source's
// quotas service (services/airm/api/app/quotas/*) and unikorn's
// provisioners/kaiwo-queue-config pattern for the KaiwoQueueConfig shape.
package quota

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/cluster"
	"github.com/amd-eai/airm/internal/model"
)

// CapacityStore is the subset of internal/store the validation path needs.
type CapacityStore interface {
	ListClusterNodes(ctx context.Context, clusterID uuid.UUID) ([]model.ClusterNode, error)
	ListActiveQuotasByCluster(ctx context.Context, clusterID uuid.UUID) ([]model.Quota, error)
}

// Validate implements spec §4.6 "Validation on create/edit": proposed,
// added to the cluster's allocated capacity excluding excludeProjectID (the
// project being created or edited), must not exceed available. The four
// resource checks are independent; a non-nil error lists every dimension
// that failed, not just the first.
func Validate(ctx context.Context, store CapacityStore, clusterID uuid.UUID, excludeProjectID *uuid.UUID, proposed model.Resources) error {
	nodes, err := store.ListClusterNodes(ctx, clusterID)
	if err != nil {
		return err
	}

	available := cluster.Available(nodes).Available

	allocatedOthers, err := cluster.Allocated(ctx, store, clusterID, excludeProjectID)
	if err != nil {
		return err
	}

	attempted := proposed.Add(allocatedOthers)

	if failed := attempted.Exceeds(available); len(failed) > 0 {
		return apierrors.Validation("requested quota exceeds available cluster capacity", failed...)
	}

	return nil
}

// Checker adapts Validate to the internal/project.CapacityChecker
// interface, so callers can inject it without project importing quota's
// full surface.
type Checker struct {
	Store CapacityStore
}

// Validate delegates to the package-level Validate using c.Store.
func (c Checker) Validate(ctx context.Context, clusterID uuid.UUID, excludeProjectID *uuid.UUID, proposed model.Resources) error {
	return Validate(ctx, c.Store, clusterID, excludeProjectID, proposed)
}
