package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/auth"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/secret"
)

type secretDTO struct {
	ID             uuid.UUID          `json:"id"`
	OrganizationID uuid.UUID          `json:"organization_id"`
	ProjectID      *uuid.UUID         `json:"project_id,omitempty"`
	Scope          model.SecretScope  `json:"scope"`
	Kind           model.SecretKind   `json:"kind"`
	UseCase        model.SecretUseCase `json:"use_case,omitempty"`
	Name           string             `json:"name"`
	Status         model.SecretStatus `json:"status"`
	StatusReason   string             `json:"status_reason"`
}

func secretToDTO(s *model.Secret) secretDTO {
	return secretDTO{
		ID:             s.ID,
		OrganizationID: s.OrganizationID,
		ProjectID:      s.ProjectID,
		Scope:          s.Scope,
		Kind:           s.Kind,
		UseCase:        s.UseCase,
		Name:           s.Name,
		Status:         s.Status,
		StatusReason:   s.StatusReason,
	}
}

type createOrganizationSecretRequest struct {
	Name           string      `json:"name"`
	Kind           model.SecretKind `json:"kind"`
	Manifest       []byte      `json:"manifest"`
	TargetProjects []uuid.UUID `json:"target_projects"`
}

// CreateOrganizationSecret handles POST /v1/secrets (spec §4.8
// "Organization-scoped secret"). Admin-only: mounted behind
// auth.RequirePlatformAdmin by the router.
func (h *Handler) CreateOrganizationSecret(w http.ResponseWriter, r *http.Request) {
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

	var req createOrganizationSecretRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := secret.CreateOrganizationScoped(r.Context(), h.Store, h.Store, h.Sender, orgID, req.Name, req.Kind, req.Manifest, req.TargetProjects, claims.Subject)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, secretToDTO(created))
}

type createProjectSecretRequest struct {
	Name     string               `json:"name"`
	UseCase  model.SecretUseCase `json:"use_case,omitempty"`
	Manifest []byte               `json:"manifest"`
}

// CreateProjectSecret handles POST /v1/projects/{name}/secrets (spec §4.8
// "Project-scoped secret").
func (h *Handler) CreateProjectSecret(w http.ResponseWriter, r *http.Request) {
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

	var req createProjectSecretRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := secret.CreateProjectScoped(r.Context(), h.Store, h.Store, h.Sender, p.OrganizationID, p.ID, req.Name, req.UseCase, req.Manifest, claims.Subject)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, secretToDTO(created))
}

type updateSecretTargetsRequest struct {
	TargetProjects []uuid.UUID `json:"target_projects"`
}

// UpdateSecretTargets handles PUT /v1/secrets/{secretID}/targets (spec
// §4.8 "Updates replace the assignment set"). Admin-only.
func (h *Handler) UpdateSecretTargets(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, r, apierrors.Forbidden("missing claims"))
		return
	}

	secretID, err := uuid.Parse(chi.URLParam(r, "secretID"))
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid secret id", "secretID"))
		return
	}

	var req updateSecretTargetsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := secret.UpdateTargets(r.Context(), h.Store, h.Store, h.Sender, secretID, req.TargetProjects, claims.Subject); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveSecretFromProject handles
// DELETE /v1/projects/{name}/secrets/{secretID} (spec §4.8 "Deletion
// refusal").
func (h *Handler) RemoveSecretFromProject(w http.ResponseWriter, r *http.Request) {
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

	secretID, err := uuid.Parse(chi.URLParam(r, "secretID"))
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid secret id", "secretID"))
		return
	}

	if err := secret.RemoveFromProject(r.Context(), h.Store, h.Store, h.Store, h.Sender, secretID, p.ID, claims.Subject); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
