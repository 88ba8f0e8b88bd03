package project

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/resolver"
	"github.com/amd-eai/airm/internal/store"
)

// IdentityProviderGroups deletes the project's group once the project
// itself is being torn down (spec §4.7 rollup: "it deletes the project and
// the identity-provider group").
type IdentityProviderGroups interface {
	DeleteGroup(ctx context.Context, groupID string) error
}

// Rollup re-evaluates and persists a project's status from its namespace
// and quota (spec §4.4 second rule list, §4.7 "Rollup"). It is called every
// time either component's status changes. When the project is Deleting and
// both components have reached a terminal deleted state, it hard-deletes
// the project row and the identity-provider group.
func Rollup(ctx context.Context, st *store.Store, idp IdentityProviderGroups, projectID uuid.UUID, updatedBy string) error {
	p, err := st.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	ns, err := st.GetNamespaceByProject(ctx, projectID)
	if err != nil {
		return err
	}

	q, err := st.GetQuotaByProject(ctx, projectID)
	if err != nil {
		return err
	}

	deleting := p.Status == model.ProjectDeleting

	components := []resolver.ComponentStatus{
		namespaceComponent(ns),
		quotaComponent(q),
	}

	result := resolver.ResolveProject(deleting, components)

	if deleting && ns.Status == model.NamespaceDeleted && q.Status == model.QuotaDeleted {
		if err := idp.DeleteGroup(ctx, p.IdentityProviderGroupID); err != nil {
			return err
		}

		return st.DeleteProject(ctx, projectID)
	}

	if result.Status == p.Status && result.Reason == p.StatusReason {
		return nil
	}

	return st.UpdateProjectStatus(ctx, projectID, result.Status, result.Reason, updatedBy)
}

func namespaceComponent(ns *model.Namespace) resolver.ComponentStatus {
	return resolver.ComponentStatus{
		Name:    "namespace",
		Ready:   ns.Status == model.NamespaceActive,
		Pending: ns.Status == model.NamespacePending,
		Failed:  ns.Status == model.NamespaceFailed || ns.Status == model.NamespaceDeleteFailed,
		Reason:  ns.StatusReason,
	}
}

func quotaComponent(q *model.Quota) resolver.ComponentStatus {
	return resolver.ComponentStatus{
		Name:    "quota",
		Ready:   q.Status == model.QuotaReady,
		Pending: q.Status == model.QuotaPending,
		Failed:  q.Status == model.QuotaFailed,
		Reason:  q.StatusReason,
	}
}
