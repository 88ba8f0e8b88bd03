// Package cluster implements the cluster inventory component (spec §4.5):
// heartbeat processing, node-set reconciliation, and the derived
// available/allocated/gpu_info view the quota engine reads. Grounded on
// unikorn's cluster-manager reconcile loop (pkg/provisioners/...), adapted
// from Kubernetes-object reconciliation to message-driven state updates.
package cluster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
)

// Store is the subset of internal/store the inventory component depends on.
type Store interface {
	GetCluster(ctx context.Context, id uuid.UUID) (*model.Cluster, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	UpdateClusterName(ctx context.Context, id uuid.UUID, name, updatedBy string) error
	AdvanceHeartbeat(ctx context.Context, id uuid.UUID, at time.Time, updatedBy string) error
}

// Inventory wraps the store with the heartbeat/node-reconcile logic of
// spec §4.5.
type Inventory struct {
	store Store
}

// New returns an Inventory backed by store.
func New(store Store) *Inventory {
	return &Inventory{store: store}
}

// ApplyHeartbeat implements spec §4.5 "Heartbeat": if the cluster's name is
// unset or mismatched it adopts clusterName, but only when organizationName
// also matches the cluster's owning organization — otherwise the heartbeat
// is dropped (caller logs and nacks-without-requeue, since retry won't
// change the mismatch). last_heartbeat_at is then advanced, never backward.
func (inv *Inventory) ApplyHeartbeat(ctx context.Context, clusterID uuid.UUID, clusterName, organizationName string, at time.Time) error {
	c, err := inv.store.GetCluster(ctx, clusterID)
	if err != nil {
		return err
	}

	org, err := inv.store.GetOrganization(ctx, c.OrganizationID)
	if err != nil {
		return err
	}

	if !strings.EqualFold(org.Name, organizationName) {
		return apierrors.Validation(fmt.Sprintf("heartbeat organization %q does not match cluster's organization %q", organizationName, org.Name))
	}

	if c.Name == "" || !strings.EqualFold(c.Name, clusterName) {
		if err := inv.store.UpdateClusterName(ctx, clusterID, clusterName, dispatcherPrincipal(clusterID)); err != nil {
			return err
		}
	}

	return inv.store.AdvanceHeartbeat(ctx, clusterID, at, dispatcherPrincipal(clusterID))
}

// Status returns the cluster's derived health as of now (spec §4.5).
func (inv *Inventory) Status(ctx context.Context, clusterID uuid.UUID, now time.Time) (model.ClusterStatus, error) {
	c, err := inv.store.GetCluster(ctx, clusterID)
	if err != nil {
		return "", err
	}

	return c.Status(now), nil
}

// dispatcherPrincipal is the updated_by value carried on dispatcher-
// originated writes (spec §3 Audit: "dispatcher:<cluster>").
func dispatcherPrincipal(clusterID uuid.UUID) string {
	return "dispatcher:" + clusterID.String()
}
