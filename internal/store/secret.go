package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
)

func (tx *Tx) CreateSecret(ctx context.Context, s *model.Secret) error {
	const query = `
		INSERT INTO secrets
			(id, organization_id, project_id, scope, kind, use_case, name, manifest, status, status_reason,
			 created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now(), $11, $11)
		RETURNING created_at, updated_at`

	err := tx.tx.QueryRow(ctx, query, s.ID, s.OrganizationID, s.ProjectID, s.Scope, s.Kind, s.UseCase, s.Name,
		s.Manifest, s.Status, s.StatusReason, s.CreatedBy).Scan(&s.CreatedAt, &s.UpdatedAt)

	return mapWriteError("create secret", err)
}

func (s *Store) GetSecret(ctx context.Context, id uuid.UUID) (*model.Secret, error) {
	const query = `
		SELECT id, organization_id, project_id, scope, kind, use_case, name, manifest, status, status_reason,
		       created_at, updated_at, created_by, updated_by
		FROM secrets WHERE id = $1`

	var sec model.Secret

	err := s.pool.QueryRow(ctx, query, id).Scan(&sec.ID, &sec.OrganizationID, &sec.ProjectID, &sec.Scope, &sec.Kind,
		&sec.UseCase, &sec.Name, &sec.Manifest, &sec.Status, &sec.StatusReason, &sec.CreatedAt, &sec.UpdatedAt,
		&sec.CreatedBy, &sec.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("secret", id.String())
	}

	if err != nil {
		return nil, err
	}

	return &sec, nil
}

// ListSecretsByOrganization returns every organization-scoped secret owned
// by organizationID.
func (s *Store) ListSecretsByOrganization(ctx context.Context, organizationID uuid.UUID) ([]model.Secret, error) {
	const query = `
		SELECT id, organization_id, project_id, scope, kind, use_case, name, manifest, status, status_reason,
		       created_at, updated_at, created_by, updated_by
		FROM secrets WHERE organization_id = $1 AND scope = $2`

	rows, err := s.pool.Query(ctx, query, organizationID, model.SecretScopeOrganization)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.Secret

	for rows.Next() {
		var sec model.Secret

		if err := rows.Scan(&sec.ID, &sec.OrganizationID, &sec.ProjectID, &sec.Scope, &sec.Kind, &sec.UseCase,
			&sec.Name, &sec.Manifest, &sec.Status, &sec.StatusReason, &sec.CreatedAt, &sec.UpdatedAt,
			&sec.CreatedBy, &sec.UpdatedBy); err != nil {
			return nil, err
		}

		out = append(out, sec)
	}

	return out, rows.Err()
}

// UpdateSecretStatus writes a new (status, reason) pair, as computed by
// internal/resolver over the secret's assignments.
func (s *Store) UpdateSecretStatus(ctx context.Context, id uuid.UUID, status model.SecretStatus, reason, updatedBy string) error {
	const query = `UPDATE secrets SET status = $2, status_reason = $3, updated_at = now(), updated_by = $4 WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, status, reason, updatedBy)

	return mapWriteError("update secret status", err)
}

// UpdateSecretManifest overwrites the stored manifest bytes (an edit).
func (s *Store) UpdateSecretManifest(ctx context.Context, id uuid.UUID, manifest []byte, updatedBy string) error {
	const query = `UPDATE secrets SET manifest = $2, updated_at = now(), updated_by = $3 WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, manifest, updatedBy)

	return mapWriteError("update secret manifest", err)
}

// DeleteSecret hard-deletes the secret row.
func (s *Store) DeleteSecret(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM secrets WHERE id = $1`, id)
	return err
}

// CreateSecretAssignment creates a child assignment linking secretID to
// projectID. Project-scoped secrets create exactly one of these at the same
// time as the secret itself (spec §4.8).
func (tx *Tx) CreateSecretAssignment(ctx context.Context, a *model.SecretAssignment) error {
	const query = `
		INSERT INTO secret_assignments (id, secret_id, project_id, status, status_reason, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, now(), now(), $6, $6)
		RETURNING created_at, updated_at`

	err := tx.tx.QueryRow(ctx, query, a.ID, a.SecretID, a.ProjectID, a.Status, a.StatusReason, a.CreatedBy).
		Scan(&a.CreatedAt, &a.UpdatedAt)

	return mapWriteError("create secret assignment", err)
}

// ListSecretAssignments returns every assignment child of secretID, the set
// the rollup resolver folds into the parent Secret's status.
func (s *Store) ListSecretAssignments(ctx context.Context, secretID uuid.UUID) ([]model.SecretAssignment, error) {
	const query = `
		SELECT id, secret_id, project_id, status, status_reason, created_at, updated_at, created_by, updated_by
		FROM secret_assignments WHERE secret_id = $1`

	rows, err := s.pool.Query(ctx, query, secretID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.SecretAssignment

	for rows.Next() {
		var a model.SecretAssignment

		if err := rows.Scan(&a.ID, &a.SecretID, &a.ProjectID, &a.Status, &a.StatusReason, &a.CreatedAt,
			&a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy); err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	return out, rows.Err()
}

// ListSecretAssignmentsByProject returns every assignment targeting
// projectID, across all organization secrets — the set a namespace sync
// must reconcile into the cluster.
func (s *Store) ListSecretAssignmentsByProject(ctx context.Context, projectID uuid.UUID) ([]model.SecretAssignment, error) {
	const query = `
		SELECT id, secret_id, project_id, status, status_reason, created_at, updated_at, created_by, updated_by
		FROM secret_assignments WHERE project_id = $1`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.SecretAssignment

	for rows.Next() {
		var a model.SecretAssignment

		if err := rows.Scan(&a.ID, &a.SecretID, &a.ProjectID, &a.Status, &a.StatusReason, &a.CreatedAt,
			&a.UpdatedAt, &a.CreatedBy, &a.UpdatedBy); err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	return out, rows.Err()
}

// UpdateSecretAssignmentStatus writes a new (status, reason) pair for one
// assignment child.
func (s *Store) UpdateSecretAssignmentStatus(ctx context.Context, id uuid.UUID, status model.SecretAssignmentStatus, reason, updatedBy string) error {
	const query = `UPDATE secret_assignments SET status = $2, status_reason = $3, updated_at = now(), updated_by = $4 WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, status, reason, updatedBy)

	return mapWriteError("update secret assignment status", err)
}

// DeleteSecretAssignment hard-deletes one assignment row, once its status
// has reached AssignmentDeleted.
func (s *Store) DeleteSecretAssignment(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM secret_assignments WHERE id = $1`, id)
	return err
}
