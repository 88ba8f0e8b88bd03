package apikey

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
)

// UpdateBindings implements spec §4.10 "Update bindings": resolves the
// target group set for aimIDs, diffs it against the external service's
// current groups for the key, then issues unbinds (removed) and binds
// (added) concurrently, raising one aggregate error if any sub-operation
// failed (spec §9 "Asynchronous fan-out" — every bind/unbind runs to
// completion even if another one fails).
func UpdateBindings(ctx context.Context, auth ExternalAuth, groups GroupResolver, externalKeyID string, aimIDs []uuid.UUID) error {
	target, err := resolveGroups(ctx, groups, aimIDs)
	if err != nil {
		return err
	}

	current, err := auth.CurrentGroups(ctx, externalKeyID)
	if err != nil {
		return apierrors.ExternalServiceError(err)
	}

	targetSet := toSet(target)
	currentSet := toSet(current)

	var tasks []func() error

	for _, groupID := range target {
		if currentSet[groupID] {
			continue
		}

		groupID := groupID

		tasks = append(tasks, func() error { return auth.BindGroup(ctx, externalKeyID, groupID) })
	}

	for _, groupID := range current {
		if targetSet[groupID] {
			continue
		}

		groupID := groupID

		tasks = append(tasks, func() error { return auth.UnbindGroup(ctx, externalKeyID, groupID) })
	}

	if err := fanOut(tasks...); err != nil {
		return apierrors.ExternalServiceError(err)
	}

	return nil
}

func toSet(ss []string) map[string]bool {
	out := make(map[string]bool, len(ss))
	for _, s := range ss {
		out[s] = true
	}

	return out
}
