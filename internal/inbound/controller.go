// Package inbound implements the controller's fabric.Handler: the
// message_type switch that folds every dispatcher-originated message back
// into store state, delegating the per-component rollup logic to
// internal/project, internal/secret, internal/storage, internal/workload,
// and internal/cluster. Grounded on the teacher's controller reconcile
// loops, adapted from "reconcile one Kubernetes object" to "apply one
// fabric message".
package inbound

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/apikey"
	"github.com/amd-eai/airm/internal/cluster"
	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/metrics"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/outbox"
	"github.com/amd-eai/airm/internal/project"
	"github.com/amd-eai/airm/internal/quota"
	"github.com/amd-eai/airm/internal/secret"
	"github.com/amd-eai/airm/internal/storage"
	"github.com/amd-eai/airm/internal/store"
	"github.com/amd-eai/airm/internal/workload"
)

// principal is the updated_by value recorded against every store write
// this handler makes, since the write is driven by a cluster-originated
// report rather than an operator action.
const principal = "dispatcher"

// Controller dispatches every dispatcher-originated message type to the
// store/rollup call that applies it.
type Controller struct {
	Store            *store.Store
	Inventory        *cluster.Inventory
	Nodes            *cluster.NodeInventory
	IdentityProvider project.IdentityProviderGroups
	Metrics          *metrics.Recorder
	Sender           outbox.Sender
}

// New returns a Controller backed by st, deleting identity-provider groups
// via idp once a project's rollup reaches its terminal deleted state,
// recording allocation gauges against rec, and re-emitting allocation
// messages through sender when a cluster's node set materially changes
// (spec §4.5).
func New(st *store.Store, idp project.IdentityProviderGroups, rec *metrics.Recorder, sender outbox.Sender) *Controller {
	return &Controller{
		Store:            st,
		Inventory:        cluster.New(st),
		Nodes:            cluster.NewNodeInventory(st),
		IdentityProvider: idp,
		Metrics:          rec,
		Sender:           sender,
	}
}

// Handle implements fabric.Handler, switching on the envelope's
// message_type (spec §4.1's declared union, restricted to the subset the
// controller consumes).
func (c *Controller) Handle(ctx context.Context, e fabric.Envelope) error {
	switch e.MessageType {
	case fabric.TypeHeartbeat:
		return c.handleHeartbeat(ctx, e)
	case fabric.TypeClusterNodes:
		return c.handleClusterNodes(ctx, e)
	case fabric.TypeClusterQuotasStatus, fabric.TypeClusterQuotasFailure:
		return c.handleClusterQuotas(ctx, e)
	case fabric.TypeWorkloadStatusUpdate:
		return c.handleWorkloadStatus(ctx, e)
	case fabric.TypeWorkloadComponentStatusUpdate:
		return c.handleWorkloadComponentStatus(ctx, e)
	case fabric.TypeAutoDiscoveredWorkloadComponent:
		return c.handleAutoDiscoveredComponent(ctx, e)
	case fabric.TypeProjectNamespaceStatus:
		return c.handleNamespaceStatus(ctx, e)
	case fabric.TypeProjectSecretsUpdate:
		return c.handleSecretsUpdate(ctx, e)
	case fabric.TypeProjectStorageUpdate:
		return c.handleStorageUpdate(ctx, e)
	case fabric.TypeAIMClusterModels:
		return c.handleAIMClusterModels(ctx, e)
	default:
		// Messages the controller itself publishes (workload_create,
		// project_namespace_create, ...) never arrive back on its own
		// consumer queue; anything else is a genuinely unknown type
		// fabric.ParseEnvelope would already have rejected.
		return fmt.Errorf("controller: no handler for %s", e.MessageType)
	}
}

func (c *Controller) handleHeartbeat(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.HeartbeatMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	org, err := c.Store.GetOrganizationByName(ctx, msg.OrganizationName)
	if err != nil {
		return err
	}

	clusterID, err := c.resolveClusterByName(ctx, org.ID, msg.ClusterName)
	if err != nil {
		return err
	}

	return c.Inventory.ApplyHeartbeat(ctx, clusterID, msg.ClusterName, msg.OrganizationName, msg.LastHeartbeatAt)
}

// resolveClusterByName finds the cluster a heartbeat belongs to: an exact
// case-folded name match if the cluster has already adopted one, or the
// organization's sole name-unset cluster otherwise (spec §4.5 "if
// cluster.name is unset... adopts the name"). Ambiguity (more than one
// name-unset cluster in the same organization) is a provisioning-time bug
// this handler can't resolve: whenever there is not exactly one name-unset
// cluster, it returns a PreconditionNotMet error stating how many there are.
func (c *Controller) resolveClusterByName(ctx context.Context, organizationID uuid.UUID, name string) (uuid.UUID, error) {
	if cl, err := c.Store.GetClusterByName(ctx, organizationID, name); err == nil {
		return cl.ID, nil
	}

	clusters, err := c.Store.ListClustersByOrganization(ctx, organizationID)
	if err != nil {
		return uuid.UUID{}, err
	}

	var unnamed []model.Cluster

	for _, cl := range clusters {
		if cl.Name == "" {
			unnamed = append(unnamed, cl)
		}
	}

	if len(unnamed) != 1 {
		return uuid.UUID{}, apierrors.PreconditionNotMet(fmt.Sprintf("cannot resolve heartbeat cluster identity: %d name-unset clusters in organization", len(unnamed)))
	}

	return unnamed[0].ID, nil
}

func (c *Controller) handleClusterNodes(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.ClusterNodesMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	clusterID, err := uuid.Parse(msg.ClusterID)
	if err != nil {
		return apierrors.Validation("invalid cluster_id", "cluster_id")
	}

	nodes := make([]model.ClusterNode, 0, len(msg.Nodes))
	for _, n := range msg.Nodes {
		nodes = append(nodes, model.ClusterNode{
			Name:           n.Name,
			CPUMillicores:  n.CPUMillicores,
			MemoryBytes:    n.MemoryBytes,
			EphemeralBytes: n.EphemeralBytes,
			GPUCount:       n.GPUCount,
			GPUVendor:      n.GPUVendor,
			GPUType:        n.GPUType,
			GPUVRAMBytes:   n.GPUVRAMBytes,
			GPUProductName: n.GPUProductName,
			Ready:          n.Ready,
			StatusText:     n.Status,
			Audit:          model.Audit{UpdatedAt: n.UpdatedAt},
		})
	}

	changed, err := c.Nodes.ReplaceNodes(ctx, clusterID, nodes)
	if err != nil {
		return err
	}

	if !changed {
		return nil
	}

	// A materially changed node set changes available capacity, which the
	// catch-all quota entry derives from (spec §4.5 "re-emit the quota
	// allocation"), so the cluster needs the allocation message resent.
	msg, err := quota.BuildAllocationMessage(ctx, c.Store, clusterID, time.Now())
	if err != nil {
		return err
	}

	return c.Sender.Send(ctx, clusterID, fabric.TypeClusterQuotasAllocation, msg)
}

// handleClusterQuotas applies the dispatcher's report of what it actually
// enforced (spec §4.6 "status"/"failure"). A status message is diff-matched
// by quota.ApplyStatus (matching quotas become Ready, mismatched or missing
// ones Failed), and the allocation gauge is set for every active quota the
// message names. A failure message marks every Pending active quota on the
// cluster Failed with the reported reason and drops its allocation gauge.
func (c *Controller) handleClusterQuotas(ctx context.Context, e fabric.Envelope) error {
	if e.MessageType == fabric.TypeClusterQuotasFailure {
		var msg fabric.ClusterQuotasFailureMessage
		if err := fabric.Decode(e, &msg); err != nil {
			return err
		}

		clusterID, err := uuid.Parse(msg.ClusterID)
		if err != nil {
			return apierrors.Validation("invalid cluster_id", "cluster_id")
		}

		quotas, err := c.Store.ListActiveQuotasByCluster(ctx, clusterID)
		if err != nil {
			return err
		}

		for _, q := range quotas {
			if q.Status != model.QuotaPending {
				continue
			}

			if err := c.Store.UpdateQuotaStatusIfOlder(ctx, q.ID, msg.UpdatedAt, model.QuotaFailed, msg.Reason, nil, principal); err != nil {
				return err
			}

			if p, err := c.Store.GetProject(ctx, q.ProjectID); err == nil {
				c.Metrics.DeleteProject(p.OrganizationID.String(), clusterID.String(), p.ID.String())
			}
		}

		return nil
	}

	var msg fabric.ClusterQuotasStatusMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	clusterID, err := uuid.Parse(msg.ClusterID)
	if err != nil {
		return apierrors.Validation("invalid cluster_id", "cluster_id")
	}

	if err := quota.ApplyStatus(ctx, c.Store, clusterID, msg); err != nil {
		return err
	}

	quotas, err := c.Store.ListActiveQuotasByCluster(ctx, clusterID)
	if err != nil {
		return err
	}

	applied := make(map[string]bool, len(msg.Quotas))
	for _, entry := range msg.Quotas {
		applied[entry.ProjectName] = true
	}

	vramPerGPU := c.clusterVRAMPerGPU(ctx, clusterID)

	for _, q := range quotas {
		p, err := c.Store.GetProject(ctx, q.ProjectID)
		if err != nil {
			return err
		}

		if applied[p.Name] {
			c.Metrics.SetAllocation(p.OrganizationID.String(), clusterID.String(), p.ID.String(),
				q.Resources.GPUCount, vramPerGPU*int64(q.Resources.GPUCount))
		}
	}

	return nil
}

// clusterVRAMPerGPU returns the per-GPU VRAM size reported by clusterID's
// nodes, used to turn a GPU-count allocation into the VRAM-bytes gauge
// metrics.Recorder.SetAllocation expects. Nodes within a cluster are
// assumed homogeneous, so the first GPU node found is representative.
func (c *Controller) clusterVRAMPerGPU(ctx context.Context, clusterID uuid.UUID) int64 {
	nodes, err := c.Store.ListClusterNodes(ctx, clusterID)
	if err != nil {
		return 0
	}

	for _, n := range nodes {
		if n.GPUVRAMBytes > 0 {
			return n.GPUVRAMBytes
		}
	}

	return 0
}

func (c *Controller) handleWorkloadStatus(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.WorkloadStatusUpdateMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	workloadID, err := uuid.Parse(msg.WorkloadID)
	if err != nil {
		return apierrors.Validation("invalid workload_id", "workload_id")
	}

	w, err := c.Store.GetWorkload(ctx, workloadID)
	if err != nil {
		return err
	}

	if w.Status == msg.Status && w.StatusReason == msg.Reason {
		return nil
	}

	return c.Store.UpdateWorkloadStatus(ctx, workloadID, msg.Status, msg.Reason, principal)
}

func (c *Controller) handleWorkloadComponentStatus(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.WorkloadComponentStatusUpdateMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	return workload.ApplyComponentStatus(ctx, c.Store, msg, principal)
}

func (c *Controller) handleAutoDiscoveredComponent(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.AutoDiscoveredWorkloadComponentMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	return workload.ApplyAutoDiscovered(ctx, c.Store, msg, principal)
}

func (c *Controller) handleNamespaceStatus(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.ProjectNamespaceStatusMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	projectID, err := uuid.Parse(msg.ProjectID)
	if err != nil {
		return apierrors.Validation("invalid project_id", "project_id")
	}

	ns, err := c.Store.GetNamespaceByProject(ctx, projectID)
	if err != nil {
		return err
	}

	if ns.Status != msg.Status || ns.StatusReason != msg.Reason {
		if err := c.Store.UpdateNamespaceStatus(ctx, ns.ID, msg.Status, msg.Reason, principal); err != nil {
			return err
		}
	}

	return project.Rollup(ctx, c.Store, c.IdentityProvider, projectID, principal)
}

func (c *Controller) handleSecretsUpdate(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.ProjectSecretsUpdateMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	secretID, err := uuid.Parse(msg.SecretID)
	if err != nil {
		return apierrors.Validation("invalid secret_id", "secret_id")
	}

	projectID, err := uuid.Parse(msg.ProjectID)
	if err != nil {
		return apierrors.Validation("invalid project_id", "project_id")
	}

	assignments, err := c.Store.ListSecretAssignments(ctx, secretID)
	if err != nil {
		return err
	}

	for _, a := range assignments {
		if a.ProjectID != projectID {
			continue
		}

		if a.Status == msg.Status && a.StatusReason == msg.Reason {
			break
		}

		if err := c.Store.UpdateSecretAssignmentStatus(ctx, a.ID, msg.Status, msg.Reason, principal); err != nil {
			return err
		}

		break
	}

	return secret.Rollup(ctx, c.Store, secretID, principal)
}

func (c *Controller) handleStorageUpdate(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.ProjectStorageUpdateMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	storageID, err := uuid.Parse(msg.StorageID)
	if err != nil {
		return apierrors.Validation("invalid storage_id", "storage_id")
	}

	projectID, err := uuid.Parse(msg.ProjectID)
	if err != nil {
		return apierrors.Validation("invalid project_id", "project_id")
	}

	projectStorages, err := c.Store.ListProjectStoragesByProject(ctx, projectID)
	if err != nil {
		return err
	}

	for _, ps := range projectStorages {
		if ps.StorageID != storageID {
			continue
		}

		cm, err := c.Store.GetProjectStorageConfigmap(ctx, ps.ID)
		if err != nil {
			return err
		}

		if cm.Status != msg.Status {
			if err := c.Store.UpdateProjectStorageConfigmapStatus(ctx, cm.ID, msg.Status, principal); err != nil {
				return err
			}
		}

		return storage.Rollup(ctx, c.Store, ps.ID, principal)
	}

	return nil
}

func (c *Controller) handleAIMClusterModels(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.AIMClusterModelsMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	clusterID, err := uuid.Parse(msg.ClusterID)
	if err != nil {
		return apierrors.Validation("invalid cluster_id", "cluster_id")
	}

	return apikey.ReconcileAIMCatalog(ctx, c.Store, clusterID, msg, principal)
}
