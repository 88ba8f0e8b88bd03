// Package resolver implements the composite status rollups of spec §4.4,
// plus the workload rollup spec §3 describes as "similar to §4.4". Every
// function here is pure: no I/O, no clock, total over its input space. An
// unmatched combination always resolves to a terminal Failed/SyncedError
// rather than silently dropping the update (spec §4.4 last paragraph,
// §8 invariant 5).
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/amd-eai/airm/internal/model"
)

// ChildStatus is the minimal shape the parent-with-lifecycle rollup needs
// from a child (a SecretAssignment, a ProjectStorage, ...).
type ChildStatus struct {
	Name   string
	Status model.SecretAssignmentStatus
}

// LifecycleResult is the outcome of ResolveLifecycle.
type LifecycleResult struct {
	Status model.SecretStatus
	Reason string
}

// ResolveLifecycle implements the "parent-with-lifecycle" rollup used by
// projects' secrets and storages (spec §4.4, first rule list). parentStatus
// is the parent's *current* persisted status (only its Deleting-ness
// matters here); children are every child's current status.
func ResolveLifecycle(parentStatus model.SecretStatus, children []ChildStatus) LifecycleResult {
	if parentStatus == model.SecretDeleting {
		if len(children) == 0 {
			return LifecycleResult{model.SecretDeleted, "all children deleted"}
		}

		if hasStatus(children, model.AssignmentDeleteFailed) {
			return LifecycleResult{model.SecretDeleteFailed, reasonFor(children, model.AssignmentDeleteFailed)}
		}

		return LifecycleResult{model.SecretDeleting, "deletion in progress"}
	}

	if len(children) == 0 {
		return LifecycleResult{model.SecretUnassigned, "no assignments"}
	}

	if hasStatus(children, model.AssignmentDeleteFailed) {
		return LifecycleResult{model.SecretDeleteFailed, reasonFor(children, model.AssignmentDeleteFailed)}
	}

	if hasStatus(children, model.AssignmentFailed) {
		return LifecycleResult{model.SecretFailed, reasonFor(children, model.AssignmentFailed)}
	}

	if hasStatus(children, model.AssignmentSyncedError) || hasStatus(children, model.AssignmentUnknown) {
		return LifecycleResult{model.SecretSyncedError, reasonFor(children, model.AssignmentSyncedError, model.AssignmentUnknown)}
	}

	if allStatus(children, model.AssignmentSynced) {
		return LifecycleResult{model.SecretSynced, "all assignments synced"}
	}

	// Parent is not Deleting, yet a child reports Deleted: spurious.
	if hasStatus(children, model.AssignmentDeleted) {
		return LifecycleResult{model.SecretSyncedError, "unexpected delete"}
	}

	syncedCount := countStatus(children, model.AssignmentSynced)
	if syncedCount > 0 && syncedCount < len(children) {
		return LifecycleResult{model.SecretPartiallySynced, reasonFor(children, model.AssignmentPending)}
	}

	return LifecycleResult{model.SecretSyncedError, "unknown states"}
}

func hasStatus(children []ChildStatus, s model.SecretAssignmentStatus) bool {
	for _, c := range children {
		if c.Status == s {
			return true
		}
	}

	return false
}

func allStatus(children []ChildStatus, s model.SecretAssignmentStatus) bool {
	for _, c := range children {
		if c.Status != s {
			return false
		}
	}

	return true
}

func countStatus(children []ChildStatus, s model.SecretAssignmentStatus) int {
	n := 0

	for _, c := range children {
		if c.Status == s {
			n++
		}
	}

	return n
}

// reasonFor concatenates the names of every child whose status matches one
// of the given statuses, in input order, into a human reason string.
func reasonFor(children []ChildStatus, statuses ...model.SecretAssignmentStatus) string {
	want := make(map[model.SecretAssignmentStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}

	var names []string

	for _, c := range children {
		if want[c.Status] {
			names = append(names, fmt.Sprintf("%s=%s", c.Name, c.Status))
		}
	}

	return strings.Join(names, ", ")
}

// ComponentStatus is the project rollup's view of namespace/quota.
type ComponentStatus struct {
	Name   string
	Ready  bool // Active (namespace) or Ready (quota)
	Pending bool
	Failed bool
	Reason string
}

// ProjectResult is the outcome of ResolveProject.
type ProjectResult struct {
	Status model.ProjectStatus
	Reason string
}

// ResolveProject implements the "project status from components" rollup
// (spec §4.4, second rule list): namespace + quota fold into one project
// status, in priority order Deleting > Failed > Ready > Pending >
// PartiallyReady > Failed (default).
func ResolveProject(deleting bool, components []ComponentStatus) ProjectResult {
	if deleting {
		return ProjectResult{model.ProjectDeleting, "deletion in progress"}
	}

	var failedNames []string

	for _, c := range components {
		if c.Failed {
			failedNames = append(failedNames, c.Name+": "+c.Reason)
		}
	}

	if len(failedNames) > 0 {
		sort.Strings(failedNames)
		return ProjectResult{model.ProjectFailed, strings.Join(failedNames, "; ")}
	}

	allReady := len(components) > 0
	allPending := len(components) > 0
	anyReady := false
	anyPending := false

	for _, c := range components {
		if !c.Ready {
			allReady = false
		} else {
			anyReady = true
		}

		if !c.Pending {
			allPending = false
		} else {
			anyPending = true
		}
	}

	switch {
	case allReady:
		return ProjectResult{model.ProjectReady, "all components ready"}
	case allPending:
		return ProjectResult{model.ProjectPending, "all components pending"}
	case anyReady && anyPending:
		return ProjectResult{model.ProjectPartiallyReady, reasonList(components)}
	default:
		return ProjectResult{model.ProjectFailed, "unrecognized component state combination"}
	}
}

func reasonList(components []ComponentStatus) string {
	parts := make([]string, 0, len(components))

	for _, c := range components {
		reason := c.Reason
		if reason == "" {
			reason = componentState(c)
		}

		parts = append(parts, fmt.Sprintf("%s: %s", c.Name, reason))
	}

	return strings.Join(parts, "; ")
}

func componentState(c ComponentStatus) string {
	switch {
	case c.Ready:
		return "ready"
	case c.Pending:
		return "pending"
	case c.Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProjectStorageChild is the (configmap, secret-assignment) pair the
// project-storage composite status resolves over (spec §4.8).
type ProjectStorageChild struct {
	ConfigmapStatus model.ConfigmapStatus
	SecretStatus    model.SecretAssignmentStatus
}

// ResolveProjectStorage implements the project-storage composite status
// table of spec §4.8.
func ResolveProjectStorage(c ProjectStorageChild) (model.ProjectStorageStatus, string) {
	if c.ConfigmapStatus == model.ConfigmapFailed || c.SecretStatus == model.AssignmentFailed {
		return model.ProjectStorageFailed, "configmap or secret failed"
	}

	switch {
	case c.ConfigmapStatus == model.ConfigmapAdded && c.SecretStatus == model.AssignmentSynced:
		return model.ProjectStorageSynced, "configmap added, secret synced"
	case c.ConfigmapStatus == model.ConfigmapAdded && c.SecretStatus == model.AssignmentPending:
		return model.ProjectStoragePending, "configmap added, secret pending"
	case c.ConfigmapStatus == model.ConfigmapDeleted && c.SecretStatus == model.AssignmentDeleting:
		return model.ProjectStoragePending, "configmap deleted, secret deleting"
	case c.ConfigmapStatus == model.ConfigmapAdded && (c.SecretStatus == model.AssignmentSyncedError || c.SecretStatus == model.AssignmentUnknown):
		return model.ProjectStorageSyncedError, "configmap added, secret in error"
	default:
		return model.ProjectStorageFailed, "unrecognized configmap/secret combination"
	}
}

// WorkloadResult is the outcome of ResolveWorkload.
type WorkloadResult struct {
	Status model.WorkloadStatus
	Reason string
}

// ResolveWorkload implements the workload composite status rollup (spec §3
// "Workload status rolls up from its components, similar to §4.4"):
// deleting dominates, then any Failed/CreateFailed/Invalid component is
// terminal, then the aggregate is computed from how many components are
// Running/Complete vs still Pending/Added.
func ResolveWorkload(deleting bool, components []model.WorkloadComponent) WorkloadResult {
	if deleting {
		if len(components) == 0 {
			return WorkloadResult{model.WorkloadDeleted, "all components deleted"}
		}

		return WorkloadResult{model.WorkloadDeleting, "deletion in progress"}
	}

	if len(components) == 0 {
		return WorkloadResult{model.WorkloadPending, "no components yet"}
	}

	var failed []string

	for _, c := range components {
		if c.Status == model.ComponentFailed || c.Status == model.ComponentCreateFailed || c.Status == model.ComponentInvalid {
			failed = append(failed, c.Name+": "+c.StatusReason)
		}
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		return WorkloadResult{model.WorkloadFailed, strings.Join(failed, "; ")}
	}

	allComplete := true
	allRunning := true
	anyRunning := false
	anyPending := false

	for _, c := range components {
		switch c.Status {
		case model.ComponentComplete:
		default:
			allComplete = false
		}

		switch c.Status {
		case model.ComponentRunning, model.ComponentReady:
			anyRunning = true
		default:
			allRunning = false
		}

		switch c.Status {
		case model.ComponentPending, model.ComponentAdded, model.ComponentUnknown:
			anyPending = true
		}
	}

	switch {
	case allComplete:
		return WorkloadResult{model.WorkloadComplete, "all components complete"}
	case allRunning:
		return WorkloadResult{model.WorkloadRunning, "all components running"}
	case anyRunning && anyPending:
		return WorkloadResult{model.WorkloadPartiallyReady, "some components still starting"}
	default:
		return WorkloadResult{model.WorkloadPending, "components not yet ready"}
	}
}
