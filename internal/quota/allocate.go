package quota

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/cluster"
	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
)

// AllocationStore is the subset of internal/store needed to materialize a
// full cluster allocation message.
type AllocationStore interface {
	ListClusterNodes(ctx context.Context, clusterID uuid.UUID) ([]model.ClusterNode, error)
	ListActiveQuotasByCluster(ctx context.Context, clusterID uuid.UUID) ([]model.Quota, error)
	GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	GetNamespaceByProject(ctx context.Context, projectID uuid.UUID) (*model.Namespace, error)
}

// BuildAllocationMessage implements spec §4.6 "Allocation message": the
// full active quota list for clusterID plus a synthetic catch-all entry
// whose resources are max(0, available - allocated_active) and whose
// namespace set is empty, carrying the cluster's GPU vendor and the three
// fixed priority classes.
func BuildAllocationMessage(ctx context.Context, store AllocationStore, clusterID uuid.UUID, now time.Time) (fabric.ClusterQuotasAllocationMessage, error) {
	nodes, err := store.ListClusterNodes(ctx, clusterID)
	if err != nil {
		return fabric.ClusterQuotasAllocationMessage{}, err
	}

	derived := cluster.Available(nodes)

	quotas, err := store.ListActiveQuotasByCluster(ctx, clusterID)
	if err != nil {
		return fabric.ClusterQuotasAllocationMessage{}, err
	}

	entries := make([]fabric.QuotaEntry, 0, len(quotas)+1)

	var allocated model.Resources

	for _, q := range quotas {
		project, err := store.GetProject(ctx, q.ProjectID)
		if err != nil {
			return fabric.ClusterQuotasAllocationMessage{}, err
		}

		ns, err := store.GetNamespaceByProject(ctx, q.ProjectID)
		if err != nil {
			return fabric.ClusterQuotasAllocationMessage{}, err
		}

		entries = append(entries, fabric.QuotaEntry{
			ProjectName: project.Name,
			Resources:   q.Resources,
			Namespaces:  []string{ns.Name},
		})

		allocated = allocated.Add(q.Resources)
	}

	entries = append(entries, fabric.QuotaEntry{
		ProjectName: model.DefaultCatchAllQuotaName,
		Resources:   derived.Available.Sub(allocated),
		Namespaces:  []string{},
	})

	return fabric.ClusterQuotasAllocationMessage{
		Quotas:          entries,
		GPUVendor:       derived.GPU.Vendor,
		PriorityClasses: fabric.DefaultPriorityClasses,
		UpdatedAt:       now,
	}, nil
}
