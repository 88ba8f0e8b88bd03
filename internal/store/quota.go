package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
)

func (tx *Tx) CreateQuota(ctx context.Context, q *model.Quota) error {
	const query = `
		INSERT INTO quotas
			(id, project_id, cpu_millicores, memory_bytes, ephemeral_bytes, gpu_count, status, status_reason,
			 created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now(), $9, $9)
		RETURNING created_at, updated_at`

	err := tx.tx.QueryRow(ctx, query, q.ID, q.ProjectID, q.Resources.CPUMillicores, q.Resources.MemoryBytes,
		q.Resources.EphemeralBytes, q.Resources.GPUCount, q.Status, q.StatusReason, q.CreatedBy).
		Scan(&q.CreatedAt, &q.UpdatedAt)

	return mapWriteError("create quota", err)
}

// GetQuotaByProject fetches the one-to-one quota for a project.
func (s *Store) GetQuotaByProject(ctx context.Context, projectID uuid.UUID) (*model.Quota, error) {
	const query = `
		SELECT id, project_id, cpu_millicores, memory_bytes, ephemeral_bytes, gpu_count, status, status_reason,
		       created_at, updated_at, created_by, updated_by
		FROM quotas WHERE project_id = $1`

	var q model.Quota

	err := s.pool.QueryRow(ctx, query, projectID).Scan(&q.ID, &q.ProjectID, &q.Resources.CPUMillicores,
		&q.Resources.MemoryBytes, &q.Resources.EphemeralBytes, &q.Resources.GPUCount, &q.Status, &q.StatusReason,
		&q.CreatedAt, &q.UpdatedAt, &q.CreatedBy, &q.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("quota", projectID.String())
	}

	if err != nil {
		return nil, err
	}

	return &q, nil
}

// ListActiveQuotasByCluster returns every quota (joined through project)
// for projects on clusterID whose status is not Deleting/Deleted — the
// "allocated(others)" set of spec §4.5/§4.6.
func (s *Store) ListActiveQuotasByCluster(ctx context.Context, clusterID uuid.UUID) ([]model.Quota, error) {
	const query = `
		SELECT q.id, q.project_id, q.cpu_millicores, q.memory_bytes, q.ephemeral_bytes, q.gpu_count,
		       q.status, q.status_reason, q.created_at, q.updated_at, q.created_by, q.updated_by
		FROM quotas q JOIN projects p ON p.id = q.project_id
		WHERE p.cluster_id = $1 AND q.status NOT IN ($2, $3)`

	rows, err := s.pool.Query(ctx, query, clusterID, model.QuotaDeleting, model.QuotaDeleted)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var quotas []model.Quota

	for rows.Next() {
		var q model.Quota

		if err := rows.Scan(&q.ID, &q.ProjectID, &q.Resources.CPUMillicores, &q.Resources.MemoryBytes,
			&q.Resources.EphemeralBytes, &q.Resources.GPUCount, &q.Status, &q.StatusReason,
			&q.CreatedAt, &q.UpdatedAt, &q.CreatedBy, &q.UpdatedBy); err != nil {
			return nil, err
		}

		quotas = append(quotas, q)
	}

	return quotas, rows.Err()
}

// UpdateQuotaResources overwrites the resource vector (a quota edit);
// status/reason are left to a subsequent UpdateQuotaStatus call by the
// engine (skip-send fast path vs. re-allocation, spec §4.6).
func (s *Store) UpdateQuotaResources(ctx context.Context, id uuid.UUID, r model.Resources, updatedBy string) error {
	const query = `
		UPDATE quotas SET cpu_millicores = $2, memory_bytes = $3, ephemeral_bytes = $4, gpu_count = $5,
		       updated_at = now(), updated_by = $6
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, r.CPUMillicores, r.MemoryBytes, r.EphemeralBytes, r.GPUCount, updatedBy)

	return mapWriteError("update quota resources", err)
}

// UpdateQuotaStatus writes a new (status, reason); if status is Failed due
// to the quota being reported missing on the cluster, priorLost preserves
// the zeroed-out resource values (spec §9 Open Question #1) — pass nil when
// not applicable.
func (s *Store) UpdateQuotaStatus(ctx context.Context, id uuid.UUID, status model.QuotaStatus, reason string, priorLost *model.Resources, updatedBy string) error {
	const query = `
		UPDATE quotas SET status = $2, status_reason = $3, prior_lost_cpu_millicores = $4,
		       prior_lost_memory_bytes = $5, prior_lost_ephemeral_bytes = $6, prior_lost_gpu_count = $7,
		       updated_at = now(), updated_by = $8
		WHERE id = $1`

	var cpu, mem, eph *int64

	var gpu *int

	if priorLost != nil {
		cpu, mem, eph = &priorLost.CPUMillicores, &priorLost.MemoryBytes, &priorLost.EphemeralBytes
		gpu = &priorLost.GPUCount
	}

	_, err := s.pool.Exec(ctx, query, id, status, reason, cpu, mem, eph, gpu, updatedBy)

	return mapWriteError("update quota status", err)
}

// UpdateQuotaStatusIfOlder applies UpdateQuotaStatus only if the quota's
// persisted updated_at is at or before asOf — the monotonicity guard of
// spec §8 invariant 1 and §4.6 "Only quotas with updated_at <=
// message.updated_at are considered". priorLost follows UpdateQuotaStatus's
// contract: non-nil zeroes the live resource vector and stashes its
// previous values in the prior_lost_* columns (spec §4.6, §9 Open Question
// #1); pass nil when the transition isn't a reported-missing quota.
func (s *Store) UpdateQuotaStatusIfOlder(ctx context.Context, id uuid.UUID, asOf time.Time, status model.QuotaStatus, reason string, priorLost *model.Resources, updatedBy string) error {
	if priorLost != nil {
		const query = `
			UPDATE quotas SET status = $2, status_reason = $3,
			       cpu_millicores = 0, memory_bytes = 0, ephemeral_bytes = 0, gpu_count = 0,
			       prior_lost_cpu_millicores = $4, prior_lost_memory_bytes = $5,
			       prior_lost_ephemeral_bytes = $6, prior_lost_gpu_count = $7,
			       updated_at = now(), updated_by = $9
			WHERE id = $1 AND updated_at <= $8`

		_, err := s.pool.Exec(ctx, query, id, status, reason,
			priorLost.CPUMillicores, priorLost.MemoryBytes, priorLost.EphemeralBytes, priorLost.GPUCount,
			asOf, updatedBy)

		return mapWriteError("conditionally update quota status", err)
	}

	const query = `
		UPDATE quotas SET status = $2, status_reason = $3, updated_at = now(), updated_by = $5
		WHERE id = $1 AND updated_at <= $4`

	_, err := s.pool.Exec(ctx, query, id, status, reason, asOf, updatedBy)

	return mapWriteError("conditionally update quota status", err)
}

// DeleteQuota hard-deletes the quota row.
func (s *Store) DeleteQuota(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM quotas WHERE id = $1`, id)
	return err
}
