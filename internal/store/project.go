package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
)

// CountActiveProjects returns the number of projects on clusterID not in
// ProjectDeleting, used to enforce MaxProjectsPerCluster (spec §4.7, §8
// invariant 9).
func (s *Store) CountActiveProjects(ctx context.Context, clusterID uuid.UUID) (int, error) {
	const q = `SELECT count(*) FROM projects WHERE cluster_id = $1 AND status <> $2`

	var n int

	err := s.pool.QueryRow(ctx, q, clusterID, model.ProjectDeleting).Scan(&n)

	return n, err
}

// ProjectNameExists reports whether name is already used within
// organizationID.
func (s *Store) ProjectNameExists(ctx context.Context, organizationID uuid.UUID, name string) (bool, error) {
	const q = `SELECT exists(SELECT 1 FROM projects WHERE organization_id = $1 AND name = $2)`

	var exists bool

	err := s.pool.QueryRow(ctx, q, organizationID, name).Scan(&exists)

	return exists, err
}

func (tx *Tx) CreateProject(ctx context.Context, p *model.Project) error {
	const q = `
		INSERT INTO projects
			(id, organization_id, cluster_id, name, identity_provider_group_id, status, status_reason,
			 created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now(), $8, $8)
		RETURNING created_at, updated_at`

	err := tx.tx.QueryRow(ctx, q, p.ID, p.OrganizationID, p.ClusterID, p.Name, p.IdentityProviderGroupID,
		p.Status, p.StatusReason, p.CreatedBy).Scan(&p.CreatedAt, &p.UpdatedAt)

	return mapWriteError("create project", err)
}

// GetProject fetches a project by id.
func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	const q = `
		SELECT id, organization_id, cluster_id, name, identity_provider_group_id, status, status_reason,
		       created_at, updated_at, created_by, updated_by
		FROM projects WHERE id = $1`

	var p model.Project

	err := s.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.OrganizationID, &p.ClusterID, &p.Name, &p.IdentityProviderGroupID,
		&p.Status, &p.StatusReason, &p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("project", id.String())
	}

	if err != nil {
		return nil, err
	}

	return &p, nil
}

// ClusterForProject resolves a project to its owning cluster id,
// satisfying internal/secret, internal/storage, and internal/workload's
// identically-shaped ClusterResolver interfaces directly off *Store.
func (s *Store) ClusterForProject(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return uuid.UUID{}, err
	}

	return p.ClusterID, nil
}

// ListProjectsByOrganization returns every project row owned by
// organizationID, used by the project list route.
func (s *Store) ListProjectsByOrganization(ctx context.Context, organizationID uuid.UUID) ([]model.Project, error) {
	const q = `
		SELECT id, organization_id, cluster_id, name, identity_provider_group_id, status, status_reason,
		       created_at, updated_at, created_by, updated_by
		FROM projects WHERE organization_id = $1 ORDER BY name`

	rows, err := s.pool.Query(ctx, q, organizationID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.Project

	for rows.Next() {
		var p model.Project

		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.ClusterID, &p.Name, &p.IdentityProviderGroupID,
			&p.Status, &p.StatusReason, &p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy); err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

// UpdateProjectStatus writes a new (status, reason) pair, as computed by
// internal/resolver.ResolveProject — never set ad hoc by a handler.
func (s *Store) UpdateProjectStatus(ctx context.Context, id uuid.UUID, status model.ProjectStatus, reason, updatedBy string) error {
	const q = `UPDATE projects SET status = $2, status_reason = $3, updated_at = now(), updated_by = $4 WHERE id = $1`

	_, err := s.pool.Exec(ctx, q, id, status, reason, updatedBy)

	return mapWriteError("update project status", err)
}

// DeleteProject hard-deletes the project row (spec §4.7 "deletes the
// project"; done once every component has reached a terminal deleted
// state).
func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}
