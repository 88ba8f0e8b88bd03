package reconcile

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
)

// foregroundDeletion asks the API server to delete dependents before the
// owner, matching kubectl's default and avoiding orphaned children.
var foregroundDeletion = metav1.DeletePropagationForeground

// Deleter performs spec §4.9's label-cascade delete: list every namespaced
// resource of an allowed kind carrying the given label, foreground-delete
// each. Used for workloads (workload-id), secrets (project-secret-id), and
// storages (project-storage-id).
type Deleter struct {
	Client dynamic.Interface
	// Kinds is the allowed set of GVRs this deleter sweeps; the dispatcher
	// constructs one Deleter per label key with the GVR set that label
	// applies to (spec §4.9's three named label keys).
	Kinds []schema.GroupVersionResource
}

// DeleteByLabel foreground-deletes every matching resource across Kinds
// and reports whether anything was found (spec §4.9 "If nothing matched,
// publish a synthetic Deleted so the controller can advance state").
func (d *Deleter) DeleteByLabel(ctx context.Context, labelKey, labelValue string) (matched bool, err error) {
	selector := fmt.Sprintf("%s=%s", labelKey, labelValue)

	for _, gvr := range d.Kinds {
		list, err := d.Client.Resource(gvr).List(ctx, metav1.ListOptions{LabelSelector: selector})
		if err != nil {
			return matched, fmt.Errorf("list %s: %w", gvr, err)
		}

		for _, item := range list.Items {
			matched = true

			if err := d.Client.Resource(gvr).Namespace(item.GetNamespace()).Delete(ctx, item.GetName(), metav1.DeleteOptions{
				PropagationPolicy: &foregroundDeletion,
			}); err != nil {
				return matched, fmt.Errorf("delete %s/%s: %w", gvr, item.GetName(), err)
			}
		}
	}

	return matched, nil
}
