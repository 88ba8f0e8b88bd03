package reconcile

import (
	"strconv"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/amd-eai/airm/internal/model"
)

// StatusForJob implements spec §4.9's Job row: "suspended → SUSPENDED;
// active>0 → RUNNING; succeeded>=completions → COMPLETE; failed>0 →
// FAILED; else PENDING".
func StatusForJob(obj *unstructured.Unstructured) model.WorkloadComponentStatus {
	suspended, _, _ := unstructured.NestedBool(obj.Object, "spec", "suspend")
	if suspended {
		return model.WorkloadComponentStatus("SUSPENDED")
	}

	active, _, _ := unstructured.NestedInt64(obj.Object, "status", "active")
	if active > 0 {
		return model.ComponentRunning
	}

	succeeded, _, _ := unstructured.NestedInt64(obj.Object, "status", "succeeded")
	completions, hasCompletions, _ := unstructured.NestedInt64(obj.Object, "spec", "completions")

	if !hasCompletions {
		completions = 1
	}

	if succeeded >= completions && completions > 0 {
		return model.ComponentComplete
	}

	failed, _, _ := unstructured.NestedInt64(obj.Object, "status", "failed")
	if failed > 0 {
		return model.ComponentFailed
	}

	return model.ComponentPending
}

// StatusForDeployment implements spec §4.9's Deployment row:
// "ready==replicas → RUNNING; ready<replicas → PENDING".
func StatusForDeployment(obj *unstructured.Unstructured) model.WorkloadComponentStatus {
	ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "readyReplicas")
	replicas, _, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")

	if ready == replicas && replicas > 0 {
		return model.ComponentRunning
	}

	return model.ComponentPending
}

// StatusForStatefulSetOrDaemonSet implements spec §4.9's StatefulSet/
// DaemonSet row: "ready==desired AND available==desired → RUNNING; else
// PENDING".
func StatusForStatefulSetOrDaemonSet(obj *unstructured.Unstructured) model.WorkloadComponentStatus {
	ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "readyReplicas") // DaemonSet uses numberReady; checked below
	if ready == 0 {
		ready, _, _ = unstructured.NestedInt64(obj.Object, "status", "numberReady")
	}

	available, _, _ := unstructured.NestedInt64(obj.Object, "status", "availableReplicas")
	if available == 0 {
		available, _, _ = unstructured.NestedInt64(obj.Object, "status", "numberAvailable")
	}

	desired, _, _ := unstructured.NestedInt64(obj.Object, "status", "replicas")
	if desired == 0 {
		desired, _, _ = unstructured.NestedInt64(obj.Object, "status", "desiredNumberScheduled")
	}

	if desired > 0 && ready == desired && available == desired {
		return model.ComponentRunning
	}

	return model.ComponentPending
}

// StatusForPod implements spec §4.9's Pod row: "phase →
// {PENDING, RUNNING, COMPLETE, FAILED}".
func StatusForPod(obj *unstructured.Unstructured) model.WorkloadComponentStatus {
	phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")

	switch corev1.PodPhase(phase) {
	case corev1.PodPending:
		return model.ComponentPending
	case corev1.PodRunning:
		return model.ComponentRunning
	case corev1.PodSucceeded:
		return model.ComponentComplete
	case corev1.PodFailed:
		return model.ComponentFailed
	default:
		return model.ComponentUnknown
	}
}

// StatusForService implements spec §4.9's Service row: "no selector/ports
// → INVALID; LoadBalancer without ingress → PENDING; else READY".
func StatusForService(obj *unstructured.Unstructured) model.WorkloadComponentStatus {
	selector, _, _ := unstructured.NestedStringMap(obj.Object, "spec", "selector")
	ports, _, _ := unstructured.NestedSlice(obj.Object, "spec", "ports")

	if len(selector) == 0 || len(ports) == 0 {
		return model.ComponentInvalid
	}

	svcType, _, _ := unstructured.NestedString(obj.Object, "spec", "type")
	if corev1.ServiceType(svcType) == corev1.ServiceTypeLoadBalancer {
		ingress, _, _ := unstructured.NestedSlice(obj.Object, "status", "loadBalancer", "ingress")
		if len(ingress) == 0 {
			return model.ComponentPending
		}
	}

	return model.ComponentReady
}

// knownComponentStatuses is the enum StatusForKaiwoOrAIM falls back to
// Unknown outside of (spec §4.9 "pass through status.status if it parses
// into the enum, else Unknown").
var knownComponentStatuses = map[string]model.WorkloadComponentStatus{
	string(model.ComponentPending): model.ComponentPending, string(model.ComponentRunning): model.ComponentRunning,
	string(model.ComponentSuspended): model.ComponentSuspended, string(model.ComponentComplete): model.ComponentComplete,
	string(model.ComponentFailed): model.ComponentFailed, string(model.ComponentInvalid): model.ComponentInvalid,
	string(model.ComponentReady): model.ComponentReady,
}

// StatusForKaiwoOrAIM implements spec §4.9's Kaiwo*/AIMService row: "pass
// through status.status if it parses into the enum, else Unknown".
func StatusForKaiwoOrAIM(obj *unstructured.Unstructured) model.WorkloadComponentStatus {
	raw, _, _ := unstructured.NestedString(obj.Object, "status", "status")

	if status, ok := knownComponentStatuses[raw]; ok {
		return status
	}

	return model.ComponentUnknown
}

// StatusForAddedOrDeletedOnly implements spec §4.9's ConfigMap/Ingress/
// HTTPRoute row: "ADDED vs DELETED only" — the watcher's own event type
// carries the only signal these kinds get. Reporter.Handle calls it with
// the event's delete flag, and StatusAdded wraps it for non-delete events.
func StatusForAddedOrDeletedOnly(deleted bool) model.WorkloadComponentStatus {
	if deleted {
		return model.ComponentDeleted
	}

	return model.ComponentAdded
}

// StatusAdded is the StatusFunc for kinds in the "ADDED vs DELETED only"
// set: non-delete events always report ComponentAdded, since these kinds
// carry no richer status the watcher can usefully observe.
func StatusAdded(*unstructured.Unstructured) model.WorkloadComponentStatus {
	return StatusForAddedOrDeletedOnly(false)
}

// isAutoDiscovered reports whether obj carries the dispatcher's
// auto-discovery annotation (spec §4.9 (g)).
func isAutoDiscovered(obj *unstructured.Unstructured) bool {
	v, ok := obj.GetAnnotations()["airm.silogen.ai/auto-discovered"]
	return ok && v == strconv.FormatBool(true)
}
