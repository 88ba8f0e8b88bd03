package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/auth"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/workload"
)

type workloadDTO struct {
	ID           uuid.UUID            `json:"id"`
	ProjectID    uuid.UUID            `json:"project_id"`
	Name         string               `json:"name"`
	ChartID      uuid.UUID            `json:"chart_id"`
	OverlayID    *uuid.UUID           `json:"overlay_id,omitempty"`
	ModelID      *uuid.UUID           `json:"model_id,omitempty"`
	DatasetID    *uuid.UUID           `json:"dataset_id,omitempty"`
	Status       model.WorkloadStatus `json:"status"`
	StatusReason string               `json:"status_reason"`
}

func workloadToDTO(w *model.Workload) workloadDTO {
	return workloadDTO{
		ID:           w.ID,
		ProjectID:    w.ProjectID,
		Name:         w.Name,
		ChartID:      w.ChartID,
		OverlayID:    w.OverlayID,
		ModelID:      w.ModelID,
		DatasetID:    w.DatasetID,
		Status:       w.Status,
		StatusReason: w.StatusReason,
	}
}

type createWorkloadRequest struct {
	Name      string     `json:"name"`
	ChartID   uuid.UUID  `json:"chart_id"`
	OverlayID *uuid.UUID `json:"overlay_id,omitempty"`
	ModelID   *uuid.UUID `json:"model_id,omitempty"`
	DatasetID *uuid.UUID `json:"dataset_id,omitempty"`
	Manifest  []byte     `json:"manifest"`
}

// CreateWorkload handles POST /v1/projects/{name}/workloads (spec §4.9
// "Create").
func (h *Handler) CreateWorkload(w http.ResponseWriter, r *http.Request) {
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

	var req createWorkloadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := workload.Create(r.Context(), h.Store, h.Store, h.Sender, workload.CreateParams{
		ProjectID: p.ID,
		Name:      req.Name,
		ChartID:   req.ChartID,
		OverlayID: req.OverlayID,
		ModelID:   req.ModelID,
		DatasetID: req.DatasetID,
		Manifest:  req.Manifest,
		CreatedBy: claims.Subject,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, workloadToDTO(created))
}

// ListWorkloads handles GET /v1/projects/{name}/workloads.
func (h *Handler) ListWorkloads(w http.ResponseWriter, r *http.Request) {
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

	workloads, err := h.Store.ListWorkloadsByProject(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]workloadDTO, 0, len(workloads))
	for i := range workloads {
		out = append(out, workloadToDTO(&workloads[i]))
	}

	writeJSON(w, r, http.StatusOK, out)
}

// GetWorkload handles GET /v1/projects/{name}/workloads/{workloadID}.
func (h *Handler) GetWorkload(w http.ResponseWriter, r *http.Request) {
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

	workloadID, err := uuid.Parse(chi.URLParam(r, "workloadID"))
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid workload id", "workloadID"))
		return
	}

	wl, err := h.Store.GetWorkload(r.Context(), workloadID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if wl.ProjectID != p.ID {
		writeError(w, r, apierrors.NotFound("workload", workloadID.String()))
		return
	}

	writeJSON(w, r, http.StatusOK, workloadToDTO(wl))
}

// DeleteWorkload handles DELETE /v1/projects/{name}/workloads/{workloadID}
// (spec §4.9 "Delete").
func (h *Handler) DeleteWorkload(w http.ResponseWriter, r *http.Request) {
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

	workloadID, err := uuid.Parse(chi.URLParam(r, "workloadID"))
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid workload id", "workloadID"))
		return
	}

	wl, err := h.Store.GetWorkload(r.Context(), workloadID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if wl.ProjectID != p.ID {
		writeError(w, r, apierrors.NotFound("workload", workloadID.String()))
		return
	}

	if err := workload.Delete(r.Context(), h.Store, h.Store, h.Sender, workloadID, claims.Subject); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
