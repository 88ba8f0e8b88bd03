package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/cluster"
	"github.com/amd-eai/airm/internal/model"
)

type clusterNodeDTO struct {
	Name           string          `json:"name"`
	Ready          bool            `json:"ready"`
	CPUMillicores  int64           `json:"cpu_millicores"`
	MemoryBytes    int64           `json:"memory_bytes"`
	EphemeralBytes int64           `json:"ephemeral_bytes"`
	GPUCount       int             `json:"gpu_count"`
	GPUVendor      model.GPUVendor `json:"gpu_vendor,omitempty"`
	GPUType        string          `json:"gpu_type,omitempty"`
}

func clusterNodeToDTO(n *model.ClusterNode) clusterNodeDTO {
	return clusterNodeDTO{
		Name:           n.Name,
		Ready:          n.Ready,
		CPUMillicores:  n.CPUMillicores,
		MemoryBytes:    n.MemoryBytes,
		EphemeralBytes: n.EphemeralBytes,
		GPUCount:       n.GPUCount,
		GPUVendor:      n.GPUVendor,
		GPUType:        n.GPUType,
	}
}

// GetCluster handles GET /v1/clusters/{clusterID}. Admin-only: mounted
// behind auth.RequirePlatformAdmin by the router, since a cluster's
// identity spans every project provisioned on it.
func (h *Handler) GetCluster(w http.ResponseWriter, r *http.Request) {
	clusterID, err := uuid.Parse(chi.URLParam(r, "clusterID"))
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid cluster id", "clusterID"))
		return
	}

	c, err := h.Store.GetCluster(r.Context(), clusterID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, struct {
		ID               uuid.UUID           `json:"id"`
		OrganizationID   uuid.UUID           `json:"organization_id"`
		Name             string              `json:"name"`
		Status           model.ClusterStatus `json:"status"`
		WorkloadsBaseURL string              `json:"workloads_base_url"`
	}{
		ID:               c.ID,
		OrganizationID:   c.OrganizationID,
		Name:             c.Name,
		Status:           c.Status(h.Now()),
		WorkloadsBaseURL: c.WorkloadsBaseURL,
	})
}

// ListClusterNodes handles GET /v1/clusters/{clusterID}/nodes. Admin-only.
func (h *Handler) ListClusterNodes(w http.ResponseWriter, r *http.Request) {
	clusterID, err := uuid.Parse(chi.URLParam(r, "clusterID"))
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid cluster id", "clusterID"))
		return
	}

	nodes, err := h.Store.ListClusterNodes(r.Context(), clusterID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]clusterNodeDTO, 0, len(nodes))
	for i := range nodes {
		out = append(out, clusterNodeToDTO(&nodes[i]))
	}

	writeJSON(w, r, http.StatusOK, out)
}

// ClusterResources handles GET /v1/clusters/{clusterID}/resources,
// returning the cluster's derived available capacity plus its GPU vendor
// and type (spec §4.5). The allocated total is not part of the response.
func (h *Handler) ClusterResources(w http.ResponseWriter, r *http.Request) {
	clusterID, err := uuid.Parse(chi.URLParam(r, "clusterID"))
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid cluster id", "clusterID"))
		return
	}

	nodes, err := h.Store.ListClusterNodes(r.Context(), clusterID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	derived := cluster.Available(nodes)

	writeJSON(w, r, http.StatusOK, struct {
		Available model.Resources `json:"available"`
		GPUVendor model.GPUVendor `json:"gpu_vendor,omitempty"`
		GPUType   string          `json:"gpu_type,omitempty"`
	}{
		Available: derived.Available,
		GPUVendor: derived.GPU.Vendor,
		GPUType:   derived.GPU.Type,
	})
}
