package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
)

func (tx *Tx) CreateNamespace(ctx context.Context, n *model.Namespace) error {
	const query = `
		INSERT INTO namespaces (id, project_id, cluster_id, name, status, status_reason, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now(), $7, $7)
		RETURNING created_at, updated_at`

	err := tx.tx.QueryRow(ctx, query, n.ID, n.ProjectID, n.ClusterID, n.Name, n.Status, n.StatusReason, n.CreatedBy).
		Scan(&n.CreatedAt, &n.UpdatedAt)

	return mapWriteError("create namespace", err)
}

// GetNamespaceByProject fetches the one-to-one namespace for a project.
func (s *Store) GetNamespaceByProject(ctx context.Context, projectID uuid.UUID) (*model.Namespace, error) {
	const query = `
		SELECT id, project_id, cluster_id, name, status, status_reason, created_at, updated_at, created_by, updated_by
		FROM namespaces WHERE project_id = $1`

	var n model.Namespace

	err := s.pool.QueryRow(ctx, query, projectID).Scan(&n.ID, &n.ProjectID, &n.ClusterID, &n.Name, &n.Status,
		&n.StatusReason, &n.CreatedAt, &n.UpdatedAt, &n.CreatedBy, &n.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("namespace", projectID.String())
	}

	if err != nil {
		return nil, err
	}

	return &n, nil
}

// UpdateNamespaceStatus writes a new (status, reason) pair.
func (s *Store) UpdateNamespaceStatus(ctx context.Context, id uuid.UUID, status model.NamespaceStatus, reason, updatedBy string) error {
	const query = `UPDATE namespaces SET status = $2, status_reason = $3, updated_at = now(), updated_by = $4 WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, status, reason, updatedBy)

	return mapWriteError("update namespace status", err)
}

// DeleteNamespace hard-deletes the namespace row.
func (s *Store) DeleteNamespace(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM namespaces WHERE id = $1`, id)
	return err
}
