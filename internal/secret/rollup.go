package secret

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/resolver"
	"github.com/amd-eai/airm/internal/store"
)

// Rollup re-evaluates and persists a secret's status from its assignments,
// via the parent-with-lifecycle resolver (spec §4.4, §4.8). Called every
// time an assignment's status changes.
func Rollup(ctx context.Context, st *store.Store, secretID uuid.UUID, updatedBy string) error {
	sec, err := st.GetSecret(ctx, secretID)
	if err != nil {
		return err
	}

	assignments, err := st.ListSecretAssignments(ctx, secretID)
	if err != nil {
		return err
	}

	children := make([]resolver.ChildStatus, 0, len(assignments))
	for _, a := range assignments {
		children = append(children, resolver.ChildStatus{Name: a.ProjectID.String(), Status: a.Status})
	}

	result := resolver.ResolveLifecycle(sec.Status, children)

	if result.Status == sec.Status && result.Reason == sec.StatusReason {
		return nil
	}

	return st.UpdateSecretStatus(ctx, secretID, result.Status, result.Reason, updatedBy)
}
