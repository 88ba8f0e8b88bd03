package cluster

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/model"
)

// NodeStore is the subset of internal/store the node-reconcile path needs.
type NodeStore interface {
	ReplaceClusterNodes(ctx context.Context, clusterID uuid.UUID, incoming []model.ClusterNode, updatedBy string) (changed bool, err error)
	ListClusterNodes(ctx context.Context, clusterID uuid.UUID) ([]model.ClusterNode, error)
}

// NodeInventory wraps NodeStore with the re-emission decision of spec §4.5.
type NodeInventory struct {
	store NodeStore
}

// NewNodeInventory returns a NodeInventory backed by store.
func NewNodeInventory(store NodeStore) *NodeInventory {
	return &NodeInventory{store: store}
}

// ReplaceNodes diff-reconciles clusterID's node set and reports whether the
// set changed materially — callers use this to decide whether to re-emit
// the quota allocation (spec §4.5: "When the set changes materially, the
// controller re-emits the quota allocation to that cluster because
// catch-all depends on capacity").
func (ni *NodeInventory) ReplaceNodes(ctx context.Context, clusterID uuid.UUID, incoming []model.ClusterNode) (changed bool, err error) {
	return ni.store.ReplaceClusterNodes(ctx, clusterID, incoming, dispatcherPrincipal(clusterID))
}

// Nodes returns the current node set for clusterID.
func (ni *NodeInventory) Nodes(ctx context.Context, clusterID uuid.UUID) ([]model.ClusterNode, error) {
	return ni.store.ListClusterNodes(ctx, clusterID)
}
