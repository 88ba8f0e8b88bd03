package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
)

// CreateOrUpdateAIM upserts a catalog entry keyed by ImageReference — the
// dispatcher's discovery pass reports the same image repeatedly across
// clusters and heartbeats, and each report should converge onto one row
// (spec §4.9 supplement, §4.10).
func (s *Store) CreateOrUpdateAIM(ctx context.Context, a *model.AIM) error {
	labels, err := json.Marshal(a.Labels)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO aims (id, image_reference, resource_name, labels, status, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, now(), now(), $6, $6)
		ON CONFLICT (image_reference) DO UPDATE SET
			resource_name = excluded.resource_name, labels = excluded.labels, status = excluded.status,
			updated_at = now(), updated_by = excluded.created_by
		RETURNING id, created_at, updated_at`

	err = s.pool.QueryRow(ctx, query, a.ID, a.ImageReference, a.ResourceName, labels, a.Status, a.CreatedBy).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	return mapWriteError("upsert aim", err)
}

func (s *Store) GetAIM(ctx context.Context, id uuid.UUID) (*model.AIM, error) {
	const query = `
		SELECT id, image_reference, resource_name, labels, status, created_at, updated_at, created_by, updated_by
		FROM aims WHERE id = $1`

	var a model.AIM

	var labels []byte

	err := s.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.ImageReference, &a.ResourceName, &labels, &a.Status,
		&a.CreatedAt, &a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("aim", id.String())
	}

	if err != nil {
		return nil, err
	}

	if len(labels) > 0 {
		if err := json.Unmarshal(labels, &a.Labels); err != nil {
			return nil, err
		}
	}

	return &a, nil
}

// ListActiveAIMs returns every catalog entry not soft-deleted.
func (s *Store) ListActiveAIMs(ctx context.Context) ([]model.AIM, error) {
	const query = `
		SELECT id, image_reference, resource_name, labels, status, created_at, updated_at, created_by, updated_by
		FROM aims WHERE status <> $1`

	rows, err := s.pool.Query(ctx, query, model.AIMDeleted)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.AIM

	for rows.Next() {
		var a model.AIM

		var labels []byte

		if err := rows.Scan(&a.ID, &a.ImageReference, &a.ResourceName, &labels, &a.Status, &a.CreatedAt,
			&a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy); err != nil {
			return nil, err
		}

		if len(labels) > 0 {
			if err := json.Unmarshal(labels, &a.Labels); err != nil {
				return nil, err
			}
		}

		out = append(out, a)
	}

	return out, rows.Err()
}

// SoftDeleteAIM marks a catalog entry AIMDeleted rather than removing it
// (spec §4.10: catalog history is retained for audit).
func (s *Store) SoftDeleteAIM(ctx context.Context, id uuid.UUID, updatedBy string) error {
	const query = `UPDATE aims SET status = $2, updated_at = now(), updated_by = $3 WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, model.AIMDeleted, updatedBy)

	return mapWriteError("soft delete aim", err)
}

// CreateOrUpdateAIMClusterModel upserts the (aim, cluster) binding reported
// by a dispatcher's discovery pass.
func (s *Store) CreateOrUpdateAIMClusterModel(ctx context.Context, m *model.AIMClusterModel) error {
	const query = `
		INSERT INTO aim_cluster_models (id, aim_id, cluster_id, status, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, now(), now(), $5, $5)
		ON CONFLICT (aim_id, cluster_id) DO UPDATE SET
			status = excluded.status, updated_at = now(), updated_by = excluded.created_by
		RETURNING id, created_at, updated_at`

	err := s.pool.QueryRow(ctx, query, m.ID, m.AIMID, m.ClusterID, m.Status, m.CreatedBy).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	return mapWriteError("upsert aim cluster model", err)
}

// ListAIMClusterModelsByCluster returns every binding reported by clusterID,
// the set a fresh discovery pass diffs against to find stale entries.
func (s *Store) ListAIMClusterModelsByCluster(ctx context.Context, clusterID uuid.UUID) ([]model.AIMClusterModel, error) {
	const query = `
		SELECT id, aim_id, cluster_id, status, created_at, updated_at, created_by, updated_by
		FROM aim_cluster_models WHERE cluster_id = $1`

	rows, err := s.pool.Query(ctx, query, clusterID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.AIMClusterModel

	for rows.Next() {
		var m model.AIMClusterModel

		if err := rows.Scan(&m.ID, &m.AIMID, &m.ClusterID, &m.Status, &m.CreatedAt, &m.UpdatedAt, &m.CreatedBy,
			&m.UpdatedBy); err != nil {
			return nil, err
		}

		out = append(out, m)
	}

	return out, rows.Err()
}

// SoftDeleteAIMClusterModel marks one binding AIMDeleted when a discovery
// pass no longer reports it.
func (s *Store) SoftDeleteAIMClusterModel(ctx context.Context, id uuid.UUID, updatedBy string) error {
	const query = `UPDATE aim_cluster_models SET status = $2, updated_at = now(), updated_by = $3 WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, model.AIMDeleted, updatedBy)

	return mapWriteError("soft delete aim cluster model", err)
}
