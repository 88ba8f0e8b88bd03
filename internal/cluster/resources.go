package cluster

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/model"
)

// GPUInfo is the homogeneous-per-cluster GPU description taken from any
// GPU-bearing node (spec §4.5 "gpu_info is taken from any GPU-bearing node
// (assumed homogeneous per cluster)").
type GPUInfo struct {
	Vendor      model.GPUVendor
	Type        string
	VRAMBytes   int64
	ProductName string
}

// DerivedResources is the cluster-level view the quota engine consumes:
// available capacity (sum over ready nodes) and the cluster's GPU identity.
// Allocated capacity is not part of it; Allocated computes that separately.
type DerivedResources struct {
	Available model.Resources
	GPU       GPUInfo
}

// Available computes spec §4.5's derived "available": the element-wise sum
// of capacity over every node with Ready set, plus the cluster's GPU
// identity taken from the first GPU-bearing node encountered.
func Available(nodes []model.ClusterNode) DerivedResources {
	var d DerivedResources

	for _, n := range nodes {
		if !n.Ready {
			continue
		}

		d.Available = d.Available.Add(model.Resources{
			CPUMillicores:  n.CPUMillicores,
			MemoryBytes:    n.MemoryBytes,
			EphemeralBytes: n.EphemeralBytes,
			GPUCount:       n.GPUCount,
		})

		if d.GPU.Vendor == model.GPUVendorNone && n.GPUVendor != model.GPUVendorNone {
			d.GPU = GPUInfo{
				Vendor:      n.GPUVendor,
				Type:        n.GPUType,
				VRAMBytes:   n.GPUVRAMBytes,
				ProductName: n.GPUProductName,
			}
		}
	}

	return d
}

// QuotaStore is the subset of internal/store the allocated-capacity
// computation needs.
type QuotaStore interface {
	ListActiveQuotasByCluster(ctx context.Context, clusterID uuid.UUID) ([]model.Quota, error)
}

// Allocated sums the resource vectors of every quota on clusterID whose
// status is not Deleting/Deleted — spec §4.5 "allocated = sum of quotas
// whose status is not Deleting/Deleted". excludeProjectID, when non-nil, is
// skipped from the sum (used when computing "available - allocated(others)"
// for a specific project's own validation, spec §4.6).
func Allocated(ctx context.Context, store QuotaStore, clusterID uuid.UUID, excludeProjectID *uuid.UUID) (model.Resources, error) {
	quotas, err := store.ListActiveQuotasByCluster(ctx, clusterID)
	if err != nil {
		return model.Resources{}, err
	}

	var total model.Resources

	for _, q := range quotas {
		if excludeProjectID != nil && q.ProjectID == *excludeProjectID {
			continue
		}

		total = total.Add(q.Resources)
	}

	return total, nil
}
