package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/resolver"
)

func TestResolveLifecycleDeleting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		children []resolver.ChildStatus
		want     model.SecretStatus
	}{
		{"empty children deleted", nil, model.SecretDeleted},
		{"delete failed child blocks", []resolver.ChildStatus{{Name: "a", Status: model.AssignmentDeleteFailed}}, model.SecretDeleteFailed},
		{"still deleting", []resolver.ChildStatus{{Name: "a", Status: model.AssignmentDeleting}}, model.SecretDeleting},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := resolver.ResolveLifecycle(model.SecretDeleting, tt.children)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestResolveLifecycleSteadyState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		children []resolver.ChildStatus
		want     model.SecretStatus
	}{
		{"no children unassigned", nil, model.SecretUnassigned},
		{"delete failed dominates", []resolver.ChildStatus{
			{Name: "a", Status: model.AssignmentSynced},
			{Name: "b", Status: model.AssignmentDeleteFailed},
		}, model.SecretDeleteFailed},
		{"failed dominates", []resolver.ChildStatus{
			{Name: "a", Status: model.AssignmentSynced},
			{Name: "b", Status: model.AssignmentFailed},
		}, model.SecretFailed},
		{"synced error dominates pending", []resolver.ChildStatus{
			{Name: "a", Status: model.AssignmentSyncedError},
			{Name: "b", Status: model.AssignmentPending},
		}, model.SecretSyncedError},
		{"unknown counts as synced error", []resolver.ChildStatus{
			{Name: "a", Status: model.AssignmentUnknown},
		}, model.SecretSyncedError},
		{"all synced", []resolver.ChildStatus{
			{Name: "a", Status: model.AssignmentSynced},
			{Name: "b", Status: model.AssignmentSynced},
		}, model.SecretSynced},
		{"spurious delete while not deleting", []resolver.ChildStatus{
			{Name: "a", Status: model.AssignmentDeleted},
		}, model.SecretSyncedError},
		{"partially synced", []resolver.ChildStatus{
			{Name: "a", Status: model.AssignmentSynced},
			{Name: "b", Status: model.AssignmentPending},
		}, model.SecretPartiallySynced},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := resolver.ResolveLifecycle(model.SecretSynced, tt.children)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestResolveLifecycleIsTotal(t *testing.T) {
	t.Parallel()

	// Every pair of assignment statuses must resolve to a member of the
	// declared enum, never a zero value (spec §8 invariant 5).
	all := []model.SecretAssignmentStatus{
		model.AssignmentPending, model.AssignmentSynced, model.AssignmentSyncedError,
		model.AssignmentFailed, model.AssignmentDeleting, model.AssignmentDeleted,
		model.AssignmentDeleteFailed, model.AssignmentUnknown,
	}

	valid := map[model.SecretStatus]bool{
		model.SecretUnassigned: true, model.SecretSynced: true, model.SecretPartiallySynced: true,
		model.SecretSyncedError: true, model.SecretFailed: true, model.SecretDeleting: true,
		model.SecretDeleted: true, model.SecretDeleteFailed: true,
	}

	for _, a := range all {
		for _, b := range all {
			children := []resolver.ChildStatus{{Name: "a", Status: a}, {Name: "b", Status: b}}
			got := resolver.ResolveLifecycle(model.SecretSynced, children)
			assert.Truef(t, valid[got.Status], "combination (%s,%s) resolved to invalid status %q", a, b, got.Status)
			assert.NotEmpty(t, got.Status)
		}
	}
}

func TestResolveProject(t *testing.T) {
	t.Parallel()

	ready := resolver.ComponentStatus{Name: "namespace", Ready: true}
	pending := resolver.ComponentStatus{Name: "namespace", Pending: true}
	failed := resolver.ComponentStatus{Name: "quota", Failed: true, Reason: "exceeds available"}

	tests := []struct {
		name       string
		deleting   bool
		components []resolver.ComponentStatus
		want       model.ProjectStatus
	}{
		{"deleting wins", true, []resolver.ComponentStatus{ready}, model.ProjectDeleting},
		{"any failed", false, []resolver.ComponentStatus{ready, failed}, model.ProjectFailed},
		{"all ready", false, []resolver.ComponentStatus{ready, {Name: "quota", Ready: true}}, model.ProjectReady},
		{"all pending", false, []resolver.ComponentStatus{pending, {Name: "quota", Pending: true}}, model.ProjectPending},
		{"mixed ready/pending", false, []resolver.ComponentStatus{ready, pending}, model.ProjectPartiallyReady},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := resolver.ResolveProject(tt.deleting, tt.components)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestResolveProjectFailedReasonListsComponents(t *testing.T) {
	t.Parallel()

	got := resolver.ResolveProject(false, []resolver.ComponentStatus{
		{Name: "quota", Failed: true, Reason: "exceeds GPU"},
		{Name: "namespace", Failed: true, Reason: "apply error"},
	})

	assert.Equal(t, model.ProjectFailed, got.Status)
	assert.Contains(t, got.Reason, "quota")
	assert.Contains(t, got.Reason, "namespace")
}

func TestResolveProjectStorage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   resolver.ProjectStorageChild
		want model.ProjectStorageStatus
	}{
		{"failed configmap", resolver.ProjectStorageChild{ConfigmapStatus: model.ConfigmapFailed, SecretStatus: model.AssignmentSynced}, model.ProjectStorageFailed},
		{"synced", resolver.ProjectStorageChild{ConfigmapStatus: model.ConfigmapAdded, SecretStatus: model.AssignmentSynced}, model.ProjectStorageSynced},
		{"pending secret", resolver.ProjectStorageChild{ConfigmapStatus: model.ConfigmapAdded, SecretStatus: model.AssignmentPending}, model.ProjectStoragePending},
		{"synced error", resolver.ProjectStorageChild{ConfigmapStatus: model.ConfigmapAdded, SecretStatus: model.AssignmentSyncedError}, model.ProjectStorageSyncedError},
		{"default failed", resolver.ProjectStorageChild{ConfigmapStatus: model.ConfigmapDeleted, SecretStatus: model.AssignmentSynced}, model.ProjectStorageFailed},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, reason := resolver.ResolveProjectStorage(tt.in)
			assert.Equal(t, tt.want, status)
			assert.NotEmpty(t, reason)
		})
	}
}
