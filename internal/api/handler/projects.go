package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/auth"
	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/project"
	"github.com/amd-eai/airm/internal/quota"
)

type resourcesDTO struct {
	CPUMillicores  int64 `json:"cpu_millicores"`
	MemoryBytes    int64 `json:"memory_bytes"`
	EphemeralBytes int64 `json:"ephemeral_bytes"`
	GPUCount       int   `json:"gpu_count"`
}

func resourcesFromDTO(d resourcesDTO) model.Resources {
	return model.Resources{
		CPUMillicores:  d.CPUMillicores,
		MemoryBytes:    d.MemoryBytes,
		EphemeralBytes: d.EphemeralBytes,
		GPUCount:       d.GPUCount,
	}
}

type projectDTO struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	ClusterID      uuid.UUID       `json:"cluster_id"`
	Name           string          `json:"name"`
	Status         model.ProjectStatus `json:"status"`
	StatusReason   string          `json:"status_reason"`
}

func projectToDTO(p *model.Project) projectDTO {
	return projectDTO{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		ClusterID:      p.ClusterID,
		Name:           p.Name,
		Status:         p.Status,
		StatusReason:   p.StatusReason,
	}
}

type createProjectRequest struct {
	Name          string       `json:"name"`
	ClusterID     uuid.UUID    `json:"cluster_id"`
	NamespaceName string       `json:"namespace_name"`
	Quota         resourcesDTO `json:"quota"`
}

// CreateProject handles POST /v1/projects (spec §4.7 "Create", S1).
// Admin-only (provisioning capacity on a cluster is a platform decision,
// not a team-member one).
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, apierrors.Forbidden("missing claims"))
		return
	}

	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid organization claim"))
		return
	}

	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	namespaceName := req.NamespaceName
	if namespaceName == "" {
		namespaceName = req.Name
	}

	org, err := h.Store.GetOrganization(r.Context(), orgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := project.Create(r.Context(), h.Store, h.Identity, h.Capacity, h.Sender, h.Now(), project.CreateParams{
		OrganizationID:          orgID,
		ClusterID:               req.ClusterID,
		Name:                    req.Name,
		NamespaceName:           namespaceName,
		IdentityProviderGroupID: org.IdentityProviderID,
		Quota:                   resourcesFromDTO(req.Quota),
		CreatedBy:               claims.Subject,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, projectToDTO(p))
}

// ListProjects handles GET /v1/projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, apierrors.Forbidden("missing claims"))
		return
	}

	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid organization claim"))
		return
	}

	projects, err := h.Store.ListProjectsByOrganization(r.Context(), orgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]projectDTO, 0, len(projects))
	for i := range projects {
		if !claims.IsPlatformAdmin() && !claims.InProject(projects[i].Name) {
			continue
		}

		out = append(out, projectToDTO(&projects[i]))
	}

	writeJSON(w, r, http.StatusOK, out)
}

// GetProject handles GET /v1/projects/{name}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.projectByName(r, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims, _ := auth.FromContext(r.Context())
	if err := auth.RequireProjectMembership(p.Name, claims); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, projectToDTO(p))
}

type editQuotaRequest struct {
	Quota resourcesDTO `json:"quota"`
}

// EditProjectQuota handles PUT /v1/projects/{name}/quota (spec §4.6
// "Skip-send optimization", S3).
func (h *Handler) EditProjectQuota(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, apierrors.Forbidden("missing claims"))
		return
	}

	p, err := h.projectByName(r, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := auth.RequireProjectMembership(p.Name, claims); err != nil {
		writeError(w, r, err)
		return
	}

	var req editQuotaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	proposed := resourcesFromDTO(req.Quota)

	needsReallocation, err := quota.Edit(r.Context(), h.Store, p.ClusterID, *p, proposed, claims.Subject)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if needsReallocation {
		msg, err := quota.BuildAllocationMessage(r.Context(), h.Store, p.ClusterID, h.Now())
		if err != nil {
			writeError(w, r, err)
			return
		}

		if err := h.Sender.Send(r.Context(), p.ClusterID, fabric.TypeClusterQuotasAllocation, msg); err != nil {
			writeError(w, r, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteProject handles DELETE /v1/projects/{name} (spec §4.7 "Delete",
// S5). Mounted behind auth.RequirePlatformAdmin by the router.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, apierrors.Forbidden("missing claims"))
		return
	}

	p, err := h.projectByName(r, chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := project.Delete(r.Context(), h.Store, h.Sender, p.ID, claims.Subject); err != nil {
		writeError(w, r, err)
		return
	}

	// project.Delete only marks the quota Deleting; re-emitting the
	// allocation without this project is this caller's responsibility
	// (spec §4.7 "Delete", S5 — see internal/project/delete.go).
	msg, err := quota.BuildAllocationMessage(r.Context(), h.Store, p.ClusterID, h.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Sender.Send(r.Context(), p.ClusterID, fabric.TypeClusterQuotasAllocation, msg); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) projectByName(r *http.Request, name string) (*model.Project, error) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return nil, apierrors.Forbidden("missing claims")
	}

	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return nil, apierrors.Validation("invalid organization claim")
	}

	projects, err := h.Store.ListProjectsByOrganization(r.Context(), orgID)
	if err != nil {
		return nil, err
	}

	for i := range projects {
		if projects[i].Name == name {
			return &projects[i], nil
		}
	}

	return nil, apierrors.NotFound("project", name)
}
