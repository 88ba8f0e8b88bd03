package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
)

// CreateWorkload inserts a workload row inside a transaction alongside its
// namespace/quota siblings where applicable.
func (tx *Tx) CreateWorkload(ctx context.Context, w *model.Workload) error {
	const query = `
		INSERT INTO workloads
			(id, project_id, name, chart_id, overlay_id, model_id, dataset_id, status, status_reason,
			 created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now(), $10, $10)
		RETURNING created_at, updated_at`

	err := tx.tx.QueryRow(ctx, query, w.ID, w.ProjectID, w.Name, w.ChartID, w.OverlayID, w.ModelID, w.DatasetID,
		w.Status, w.StatusReason, w.CreatedBy).Scan(&w.CreatedAt, &w.UpdatedAt)

	return mapWriteError("create workload", err)
}

func (s *Store) GetWorkload(ctx context.Context, id uuid.UUID) (*model.Workload, error) {
	const query = `
		SELECT id, project_id, name, chart_id, overlay_id, model_id, dataset_id, status, status_reason,
		       created_at, updated_at, created_by, updated_by
		FROM workloads WHERE id = $1`

	var w model.Workload

	err := s.pool.QueryRow(ctx, query, id).Scan(&w.ID, &w.ProjectID, &w.Name, &w.ChartID, &w.OverlayID, &w.ModelID,
		&w.DatasetID, &w.Status, &w.StatusReason, &w.CreatedAt, &w.UpdatedAt, &w.CreatedBy, &w.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("workload", id.String())
	}

	if err != nil {
		return nil, err
	}

	return &w, nil
}

// ListWorkloadsByModel returns every workload referencing modelID, used to
// resolve an AIM's currently-interested cluster-auth groups (spec §4.10
// step 4: "the cluster-auth group ids owned by that AIM's running/pending
// inference workloads").
func (s *Store) ListWorkloadsByModel(ctx context.Context, modelID uuid.UUID) ([]model.Workload, error) {
	const query = `
		SELECT id, project_id, name, chart_id, overlay_id, model_id, dataset_id, status, status_reason,
		       created_at, updated_at, created_by, updated_by
		FROM workloads WHERE model_id = $1`

	rows, err := s.pool.Query(ctx, query, modelID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.Workload

	for rows.Next() {
		var w model.Workload

		if err := rows.Scan(&w.ID, &w.ProjectID, &w.Name, &w.ChartID, &w.OverlayID, &w.ModelID, &w.DatasetID,
			&w.Status, &w.StatusReason, &w.CreatedAt, &w.UpdatedAt, &w.CreatedBy, &w.UpdatedBy); err != nil {
			return nil, err
		}

		out = append(out, w)
	}

	return out, rows.Err()
}

// ListWorkloadsByProject returns every workload owned by projectID.
func (s *Store) ListWorkloadsByProject(ctx context.Context, projectID uuid.UUID) ([]model.Workload, error) {
	const query = `
		SELECT id, project_id, name, chart_id, overlay_id, model_id, dataset_id, status, status_reason,
		       created_at, updated_at, created_by, updated_by
		FROM workloads WHERE project_id = $1`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.Workload

	for rows.Next() {
		var w model.Workload

		if err := rows.Scan(&w.ID, &w.ProjectID, &w.Name, &w.ChartID, &w.OverlayID, &w.ModelID, &w.DatasetID,
			&w.Status, &w.StatusReason, &w.CreatedAt, &w.UpdatedAt, &w.CreatedBy, &w.UpdatedBy); err != nil {
			return nil, err
		}

		out = append(out, w)
	}

	return out, rows.Err()
}

// UpdateWorkloadStatus writes a new (status, reason) pair, as computed by
// internal/workload from the workload's current component set.
func (s *Store) UpdateWorkloadStatus(ctx context.Context, id uuid.UUID, status model.WorkloadStatus, reason, updatedBy string) error {
	const query = `UPDATE workloads SET status = $2, status_reason = $3, updated_at = now(), updated_by = $4 WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, status, reason, updatedBy)

	return mapWriteError("update workload status", err)
}

// DeleteWorkload hard-deletes the workload row once every component has
// been torn down.
func (s *Store) DeleteWorkload(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM workloads WHERE id = $1`, id)
	return err
}

// CreateWorkloadComponent inserts one component row, either as part of the
// initial manifest-apply fan-out or as an auto-discovered component (spec
// §4.9 (g)).
func (s *Store) CreateWorkloadComponent(ctx context.Context, c *model.WorkloadComponent) error {
	const query = `
		INSERT INTO workload_components
			(id, workload_id, component_id, kind, name, status, status_reason, auto_discovered,
			 created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now(), $9, $9)
		ON CONFLICT (workload_id, component_id) DO UPDATE SET
			kind = EXCLUDED.kind, name = EXCLUDED.name, updated_at = now(), updated_by = EXCLUDED.updated_by
		RETURNING created_at, updated_at`

	err := s.pool.QueryRow(ctx, query, c.ID, c.WorkloadID, c.ComponentID, c.Kind, c.Name, c.Status, c.StatusReason,
		c.AutoDiscovered, c.CreatedBy).Scan(&c.CreatedAt, &c.UpdatedAt)

	return mapWriteError("create workload component", err)
}

// ListWorkloadComponents returns every component child of workloadID, the
// set internal/workload's rollup folds into the parent's aggregate status.
func (s *Store) ListWorkloadComponents(ctx context.Context, workloadID uuid.UUID) ([]model.WorkloadComponent, error) {
	const query = `
		SELECT id, workload_id, component_id, kind, name, status, status_reason, auto_discovered,
		       created_at, updated_at, created_by, updated_by
		FROM workload_components WHERE workload_id = $1`

	rows, err := s.pool.Query(ctx, query, workloadID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.WorkloadComponent

	for rows.Next() {
		var c model.WorkloadComponent

		if err := rows.Scan(&c.ID, &c.WorkloadID, &c.ComponentID, &c.Kind, &c.Name, &c.Status, &c.StatusReason,
			&c.AutoDiscovered, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy); err != nil {
			return nil, err
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

// UpdateWorkloadComponentStatus writes a new (status, reason) pair for one
// component, reported by a dispatcher watcher (spec §4.9 (e)).
func (s *Store) UpdateWorkloadComponentStatus(ctx context.Context, workloadID uuid.UUID, componentID string, status model.WorkloadComponentStatus, reason, updatedBy string) error {
	const query = `
		UPDATE workload_components SET status = $3, status_reason = $4, updated_at = now(), updated_by = $5
		WHERE workload_id = $1 AND component_id = $2`

	_, err := s.pool.Exec(ctx, query, workloadID, componentID, status, reason, updatedBy)

	return mapWriteError("update workload component status", err)
}

// UpdateWorkloadComponentStatusIfOlder applies UpdateWorkloadComponentStatus
// only if the component's persisted updated_at is at or before asOf (spec
// §8 invariant 1, invariant 6).
func (s *Store) UpdateWorkloadComponentStatusIfOlder(ctx context.Context, workloadID uuid.UUID, componentID string, asOf time.Time, status model.WorkloadComponentStatus, reason, updatedBy string) error {
	const query = `
		UPDATE workload_components SET status = $3, status_reason = $4, updated_at = now(), updated_by = $6
		WHERE workload_id = $1 AND component_id = $2 AND updated_at <= $5`

	_, err := s.pool.Exec(ctx, query, workloadID, componentID, status, reason, asOf, updatedBy)

	return mapWriteError("conditionally update workload component status", err)
}

// DeleteWorkloadComponent hard-deletes one component row once the
// dispatcher confirms it is gone from the cluster.
func (s *Store) DeleteWorkloadComponent(ctx context.Context, workloadID uuid.UUID, componentID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM workload_components WHERE workload_id = $1 AND component_id = $2`, workloadID, componentID)
	return err
}
