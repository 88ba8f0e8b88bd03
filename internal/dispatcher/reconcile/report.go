package reconcile

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
)

// autoDiscoveredAnnotation marks a resource the dispatcher didn't create
// itself (spec §4.9 (g)): the controller needs an auto_discovered_workload_
// component row created before its first status update arrives.
const autoDiscoveredAnnotation = "airm.silogen.ai/auto-discovered"

// StatusFunc maps one watched object to its component status (spec §4.9
// (e)); internal/dispatcher/reconcile's per-kind StatusFor* functions all
// have this shape.
type StatusFunc func(obj *unstructured.Unstructured) model.WorkloadComponentStatus

// Publisher is the subset of fabric.Publisher a Reporter needs.
type Publisher interface {
	Publish(ctx context.Context, messageType fabric.MessageType, payload interface{}) error
}

// Reporter turns a watch.EventHandler-shaped callback for one Kubernetes
// kind into the fabric messages spec §4.9 describes: a component status
// update for every event, preceded on every event of an object carrying the
// auto-discovered annotation by an auto_discovered_workload_component (the
// controller's insert of that row is an upsert, so repeats are harmless).
type Reporter struct {
	Kind      string
	Status    StatusFunc
	Publisher Publisher
	Now       func() time.Time
}

// Handle implements watch.EventHandler.
func (r *Reporter) Handle(ctx context.Context, eventType watch.EventType, obj *unstructured.Unstructured) {
	labels := obj.GetLabels()

	workloadID := labels["workload-id"]
	componentID := labels["component-id"]
	projectID := labels["project-id"]

	if workloadID == "" || componentID == "" {
		// Not a workload component this system tracks (e.g. a namespace or
		// secret watch event reused for a different purpose).
		return
	}

	if obj.GetAnnotations()[autoDiscoveredAnnotation] == "true" {
		_ = r.Publisher.Publish(ctx, fabric.TypeAutoDiscoveredWorkloadComponent, fabric.AutoDiscoveredWorkloadComponentMessage{
			WorkloadID:  workloadID,
			ComponentID: componentID,
			ProjectID:   projectID,
			Kind:        r.Kind,
			Name:        obj.GetName(),
		})
	}

	status := StatusForAddedOrDeletedOnly(eventType == watch.Deleted)
	if eventType != watch.Deleted {
		status = r.Status(obj)
	}

	_ = r.Publisher.Publish(ctx, fabric.TypeWorkloadComponentStatusUpdate, fabric.WorkloadComponentStatusUpdateMessage{
		WorkloadID:  workloadID,
		ComponentID: componentID,
		ProjectID:   projectID,
		Kind:        r.Kind,
		Status:      status,
		UpdatedAt:   r.Now(),
	})
}
