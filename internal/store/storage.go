package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
)

func (tx *Tx) CreateStorage(ctx context.Context, s *model.Storage) error {
	const query = `
		INSERT INTO storages
			(id, organization_id, secret_id, name, bucket_url, access_key_field, secret_key_field, status,
			 status_reason, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now(), $10, $10)
		RETURNING created_at, updated_at`

	err := tx.tx.QueryRow(ctx, query, s.ID, s.OrganizationID, s.SecretID, s.Name, s.BucketURL, s.AccessKeyField,
		s.SecretKeyField, s.Status, s.StatusReason, s.CreatedBy).Scan(&s.CreatedAt, &s.UpdatedAt)

	return mapWriteError("create storage", err)
}

func (s *Store) GetStorage(ctx context.Context, id uuid.UUID) (*model.Storage, error) {
	const query = `
		SELECT id, organization_id, secret_id, name, bucket_url, access_key_field, secret_key_field, status,
		       status_reason, created_at, updated_at, created_by, updated_by
		FROM storages WHERE id = $1`

	var st model.Storage

	err := s.pool.QueryRow(ctx, query, id).Scan(&st.ID, &st.OrganizationID, &st.SecretID, &st.Name, &st.BucketURL,
		&st.AccessKeyField, &st.SecretKeyField, &st.Status, &st.StatusReason, &st.CreatedAt, &st.UpdatedAt,
		&st.CreatedBy, &st.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("storage", id.String())
	}

	if err != nil {
		return nil, err
	}

	return &st, nil
}

// UpdateStorageStatus writes a new (status, reason) pair, derived from the
// rollup over the underlying secret's assignment states.
func (s *Store) UpdateStorageStatus(ctx context.Context, id uuid.UUID, status model.SecretStatus, reason, updatedBy string) error {
	const query = `UPDATE storages SET status = $2, status_reason = $3, updated_at = now(), updated_by = $4 WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, status, reason, updatedBy)

	return mapWriteError("update storage status", err)
}

// BlockingStorageNames returns the names of storages in projectID that
// reference secretID, used to refuse a secret removal that would orphan a
// storage binding (spec §4.8 "Deletion refusal").
func (s *Store) BlockingStorageNames(ctx context.Context, secretID, projectID uuid.UUID) ([]string, error) {
	const query = `
		SELECT st.name
		FROM storages st
		JOIN project_storages ps ON ps.storage_id = st.id
		WHERE st.secret_id = $1 AND ps.project_id = $2`

	rows, err := s.pool.Query(ctx, query, secretID, projectID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []string

	for rows.Next() {
		var name string

		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		out = append(out, name)
	}

	return out, rows.Err()
}

// DeleteStorage hard-deletes the storage row.
func (s *Store) DeleteStorage(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM storages WHERE id = $1`, id)
	return err
}

func (tx *Tx) CreateProjectStorage(ctx context.Context, p *model.ProjectStorage) error {
	const query = `
		INSERT INTO project_storages (id, storage_id, project_id, status, status_reason, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, now(), now(), $6, $6)
		RETURNING created_at, updated_at`

	err := tx.tx.QueryRow(ctx, query, p.ID, p.StorageID, p.ProjectID, p.Status, p.StatusReason, p.CreatedBy).
		Scan(&p.CreatedAt, &p.UpdatedAt)

	return mapWriteError("create project storage", err)
}

// GetProjectStorage fetches a single binding by id.
func (s *Store) GetProjectStorage(ctx context.Context, id uuid.UUID) (*model.ProjectStorage, error) {
	const query = `
		SELECT id, storage_id, project_id, status, status_reason, created_at, updated_at, created_by, updated_by
		FROM project_storages WHERE id = $1`

	var p model.ProjectStorage

	err := s.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.StorageID, &p.ProjectID, &p.Status, &p.StatusReason,
		&p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("project storage", id.String())
	}

	if err != nil {
		return nil, err
	}

	return &p, nil
}

// ListProjectStoragesByProject returns every storage binding for projectID.
func (s *Store) ListProjectStoragesByProject(ctx context.Context, projectID uuid.UUID) ([]model.ProjectStorage, error) {
	const query = `
		SELECT id, storage_id, project_id, status, status_reason, created_at, updated_at, created_by, updated_by
		FROM project_storages WHERE project_id = $1`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.ProjectStorage

	for rows.Next() {
		var p model.ProjectStorage

		if err := rows.Scan(&p.ID, &p.StorageID, &p.ProjectID, &p.Status, &p.StatusReason, &p.CreatedAt,
			&p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy); err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

// UpdateProjectStorageStatus writes a new (status, reason) pair, as computed
// by internal/resolver.ResolveProjectStorage.
func (s *Store) UpdateProjectStorageStatus(ctx context.Context, id uuid.UUID, status model.ProjectStorageStatus, reason, updatedBy string) error {
	const query = `UPDATE project_storages SET status = $2, status_reason = $3, updated_at = now(), updated_by = $4 WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, status, reason, updatedBy)

	return mapWriteError("update project storage status", err)
}

// DeleteProjectStorage hard-deletes the binding row.
func (s *Store) DeleteProjectStorage(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM project_storages WHERE id = $1`, id)
	return err
}

func (tx *Tx) CreateProjectStorageConfigmap(ctx context.Context, c *model.ProjectStorageConfigmap) error {
	const query = `
		INSERT INTO project_storage_configmaps (id, project_storage_id, status, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, now(), now(), $4, $4)
		RETURNING created_at, updated_at`

	err := tx.tx.QueryRow(ctx, query, c.ID, c.ProjectStorageID, c.Status, c.CreatedBy).Scan(&c.CreatedAt, &c.UpdatedAt)

	return mapWriteError("create project storage configmap", err)
}

// GetProjectStorageConfigmap fetches the one-to-one configmap child row.
func (s *Store) GetProjectStorageConfigmap(ctx context.Context, projectStorageID uuid.UUID) (*model.ProjectStorageConfigmap, error) {
	const query = `
		SELECT id, project_storage_id, status, created_at, updated_at, created_by, updated_by
		FROM project_storage_configmaps WHERE project_storage_id = $1`

	var c model.ProjectStorageConfigmap

	err := s.pool.QueryRow(ctx, query, projectStorageID).
		Scan(&c.ID, &c.ProjectStorageID, &c.Status, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("project storage configmap", projectStorageID.String())
	}

	if err != nil {
		return nil, err
	}

	return &c, nil
}

// UpdateProjectStorageConfigmapStatus writes a new status for the configmap
// child row.
func (s *Store) UpdateProjectStorageConfigmapStatus(ctx context.Context, id uuid.UUID, status model.ConfigmapStatus, updatedBy string) error {
	const query = `UPDATE project_storage_configmaps SET status = $2, updated_at = now(), updated_by = $3 WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, status, updatedBy)

	return mapWriteError("update project storage configmap status", err)
}
