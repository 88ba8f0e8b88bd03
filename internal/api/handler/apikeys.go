package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/apikey"
	"github.com/amd-eai/airm/internal/auth"
	"github.com/amd-eai/airm/internal/model"
)

type apiKeyDTO struct {
	ID            uuid.UUID `json:"id"`
	ProjectID     uuid.UUID `json:"project_id"`
	Name          string    `json:"name"`
	TruncatedForm string    `json:"truncated_form"`
}

func apiKeyToDTO(k *model.ApiKey) apiKeyDTO {
	return apiKeyDTO{
		ID:            k.ID,
		ProjectID:     k.ProjectID,
		Name:          k.Name,
		TruncatedForm: k.TruncatedForm,
	}
}

type createAPIKeyRequest struct {
	Name           string        `json:"name"`
	TTL            time.Duration `json:"ttl"`
	NumUses        int           `json:"num_uses"`
	Renewable      bool          `json:"renewable"`
	Period         time.Duration `json:"period"`
	ExplicitMaxTTL time.Duration `json:"explicit_max_ttl"`
	AIMIDs         []uuid.UUID   `json:"aim_ids"`
}

type createAPIKeyResponse struct {
	Key   apiKeyDTO `json:"key"`
	Value string    `json:"value"`
}

// CreateAPIKey handles POST /v1/projects/{name}/api-keys (spec §4.10
// "Create"). The full key value is present only in this response.
func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
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

	var req createAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := apikey.Create(r.Context(), h.Store, h.ExternalAuth, h.Groups, apikey.CreateParams{
		ProjectID:      p.ID,
		Name:           req.Name,
		TTL:            req.TTL,
		NumUses:        req.NumUses,
		Renewable:      req.Renewable,
		Period:         req.Period,
		ExplicitMaxTTL: req.ExplicitMaxTTL,
		AIMIDs:         req.AIMIDs,
		CreatedBy:      claims.Subject,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, createAPIKeyResponse{
		Key:   apiKeyToDTO(result.Key),
		Value: result.Value,
	})
}

// ListAPIKeys handles GET /v1/projects/{name}/api-keys.
func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
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

	keys, err := h.Store.ListApiKeysByProject(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]apiKeyDTO, 0, len(keys))
	for i := range keys {
		out = append(out, apiKeyToDTO(&keys[i]))
	}

	writeJSON(w, r, http.StatusOK, out)
}

type apiKeyMetadataResponse struct {
	ExpireTime time.Time `json:"expire_time"`
	Renewable  bool      `json:"renewable"`
	NumUses    int       `json:"num_uses"`
}

// GetAPIKey handles GET /v1/projects/{name}/api-keys/{keyID} (spec §4.10
// "Lookup"), passing through the external service's live metadata.
func (h *Handler) GetAPIKey(w http.ResponseWriter, r *http.Request) {
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

	keyID, err := uuid.Parse(chi.URLParam(r, "keyID"))
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid api key id", "keyID"))
		return
	}

	expireTime, renewable, numUses, err := apikey.Lookup(r.Context(), h.Store, h.ExternalAuth, keyID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, apiKeyMetadataResponse{ExpireTime: expireTime, Renewable: renewable, NumUses: numUses})
}

type updateAPIKeyBindingsRequest struct {
	AIMIDs []uuid.UUID `json:"aim_ids"`
}

// UpdateAPIKeyBindings handles PUT /v1/projects/{name}/api-keys/{keyID}/bindings
// (spec §4.10 "Update bindings").
func (h *Handler) UpdateAPIKeyBindings(w http.ResponseWriter, r *http.Request) {
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

	keyID, err := uuid.Parse(chi.URLParam(r, "keyID"))
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid api key id", "keyID"))
		return
	}

	var req updateAPIKeyBindingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	key, err := h.Store.GetApiKey(r.Context(), keyID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := apikey.UpdateBindings(r.Context(), h.ExternalAuth, h.Groups, key.ExternalKeyID, req.AIMIDs); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RevokeAPIKey handles DELETE /v1/projects/{name}/api-keys/{keyID} (spec
// §4.10 "Revoke").
func (h *Handler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
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

	keyID, err := uuid.Parse(chi.URLParam(r, "keyID"))
	if err != nil {
		writeError(w, r, apierrors.Validation("invalid api key id", "keyID"))
		return
	}

	if err := apikey.Revoke(r.Context(), h.Store, h.ExternalAuth, keyID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
