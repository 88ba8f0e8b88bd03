package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/auth"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/storage"
)

type projectStorageDTO struct {
	ID           uuid.UUID                  `json:"id"`
	StorageID    uuid.UUID                  `json:"storage_id"`
	ProjectID    uuid.UUID                  `json:"project_id"`
	Status       model.ProjectStorageStatus `json:"status"`
	StatusReason string                     `json:"status_reason"`
}

func projectStorageToDTO(p *model.ProjectStorage) projectStorageDTO {
	return projectStorageDTO{
		ID:           p.ID,
		StorageID:    p.StorageID,
		ProjectID:    p.ProjectID,
		Status:       p.Status,
		StatusReason: p.StatusReason,
	}
}

type assignStorageRequest struct {
	StorageID uuid.UUID `json:"storage_id"`
}

// AssignStorageToProject handles POST /v1/projects/{name}/storages (spec
// §4.8 "Storage").
func (h *Handler) AssignStorageToProject(w http.ResponseWriter, r *http.Request) {
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

	var req assignStorageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := storage.AssignToProject(r.Context(), h.Store, h.Store, h.Sender, req.StorageID, p.ID, claims.Subject)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, projectStorageToDTO(created))
}

// ListProjectStorages handles GET /v1/projects/{name}/storages.
func (h *Handler) ListProjectStorages(w http.ResponseWriter, r *http.Request) {
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

	bindings, err := h.Store.ListProjectStoragesByProject(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]projectStorageDTO, 0, len(bindings))
	for i := range bindings {
		out = append(out, projectStorageToDTO(&bindings[i]))
	}

	writeJSON(w, r, http.StatusOK, out)
}
