package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
)

func (tx *Tx) CreateApiKey(ctx context.Context, k *model.ApiKey) error {
	const query = `
		INSERT INTO api_keys (id, project_id, name, truncated_form, external_key_id, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, now(), now(), $6, $6)
		RETURNING created_at, updated_at`

	err := tx.tx.QueryRow(ctx, query, k.ID, k.ProjectID, k.Name, k.TruncatedForm, k.ExternalKeyID, k.CreatedBy).
		Scan(&k.CreatedAt, &k.UpdatedAt)

	return mapWriteError("create api key", err)
}

func (s *Store) GetApiKey(ctx context.Context, id uuid.UUID) (*model.ApiKey, error) {
	const query = `
		SELECT id, project_id, name, truncated_form, external_key_id, created_at, updated_at, created_by, updated_by
		FROM api_keys WHERE id = $1`

	var k model.ApiKey

	err := s.pool.QueryRow(ctx, query, id).Scan(&k.ID, &k.ProjectID, &k.Name, &k.TruncatedForm, &k.ExternalKeyID,
		&k.CreatedAt, &k.UpdatedAt, &k.CreatedBy, &k.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("api key", id.String())
	}

	if err != nil {
		return nil, err
	}

	return &k, nil
}

// ListApiKeysByProject returns every key belonging to projectID.
func (s *Store) ListApiKeysByProject(ctx context.Context, projectID uuid.UUID) ([]model.ApiKey, error) {
	const query = `
		SELECT id, project_id, name, truncated_form, external_key_id, created_at, updated_at, created_by, updated_by
		FROM api_keys WHERE project_id = $1`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.ApiKey

	for rows.Next() {
		var k model.ApiKey

		if err := rows.Scan(&k.ID, &k.ProjectID, &k.Name, &k.TruncatedForm, &k.ExternalKeyID, &k.CreatedAt,
			&k.UpdatedAt, &k.CreatedBy, &k.UpdatedBy); err != nil {
			return nil, err
		}

		out = append(out, k)
	}

	return out, rows.Err()
}

// DeleteApiKey hard-deletes the row. Callers revoke the key in the external
// auth service first; if that fails the row is left in place (spec §4.10
// compensating-action: create rolls back on external failure, delete does
// not proceed past a failed revoke).
func (s *Store) DeleteApiKey(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	return err
}
