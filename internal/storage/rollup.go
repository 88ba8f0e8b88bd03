package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/resolver"
	"github.com/amd-eai/airm/internal/store"
)

// Rollup re-evaluates and persists a ProjectStorage's composite status from
// its configmap and linked project-secret-assignment statuses (spec §4.8's
// configmap_status/secret_status table, via internal/resolver).
func Rollup(ctx context.Context, st *store.Store, projectStorageID uuid.UUID, updatedBy string) error {
	ps, err := st.GetProjectStorage(ctx, projectStorageID)
	if err != nil {
		return err
	}

	cm, err := st.GetProjectStorageConfigmap(ctx, projectStorageID)
	if err != nil {
		return err
	}

	s, err := st.GetStorage(ctx, ps.StorageID)
	if err != nil {
		return err
	}

	assignments, err := st.ListSecretAssignments(ctx, s.SecretID)
	if err != nil {
		return err
	}

	var secretStatus model.SecretAssignmentStatus = model.AssignmentUnknown

	for _, a := range assignments {
		if a.ProjectID == ps.ProjectID {
			secretStatus = a.Status
			break
		}
	}

	status, reason := resolver.ResolveProjectStorage(resolver.ProjectStorageChild{
		ConfigmapStatus: cm.Status,
		SecretStatus:    secretStatus,
	})

	if status == ps.Status && reason == ps.StatusReason {
		return nil
	}

	return st.UpdateProjectStorageStatus(ctx, projectStorageID, status, reason, updatedBy)
}
