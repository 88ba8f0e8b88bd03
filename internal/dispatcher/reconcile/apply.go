// Package reconcile implements the dispatcher-side per-message actions of
// spec §4.9: manifest apply, label-cascade delete, and the per-kind
// (resource, event) -> component status maps the watchers consult.
// Grounded on the teacher's pkg/readiness (dynamic client + unstructured
// idiom) and pkg/provisioners' general "apply a set of objects, report
// per-object failure" shape, generalized from Helm-chart provisioning to
// applying an arbitrary YAML document stream sent over the bus.
package reconcile

import (
	"bytes"
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	k8syaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
)

// labelWorkloadID, labelComponentID, labelProjectID are the identity labels
// every workload component carries (spec §6 "Per-cluster state on
// Kubernetes").
const (
	labelWorkloadID  = "workload-id"
	labelComponentID = "component-id"
	labelProjectID   = "project-id"
)

// ComponentFailure reports one manifest's apply failure, identity recovered
// from its own labels (spec §4.9 "Manifest apply").
type ComponentFailure struct {
	WorkloadID  string
	ComponentID string
	ProjectID   string
	Reason      string
}

// Applier applies a multi-document YAML manifest stream against the
// cluster, using the discovery client to resolve each document's
// GroupVersionKind to the dynamic client's GroupVersionResource.
type Applier struct {
	Client    dynamic.Interface
	Mapper    discovery.DiscoveryInterface
	resolveFn func(schema.GroupVersionKind) (schema.GroupVersionResource, error)
}

// NewApplier builds an Applier backed by client, resolving kinds to
// resources via a discovery-backed lookup.
func NewApplier(client dynamic.Interface, mapper discovery.DiscoveryInterface) *Applier {
	a := &Applier{Client: client, Mapper: mapper}
	a.resolveFn = a.resolveGVR

	return a
}

// Apply splits manifest into individual documents and creates each one,
// returning one ComponentFailure per document that failed (spec §4.9
// "On any per-manifest failure, publish a workload_component_status_update
// {status=CreateFailed, reason}").
func (a *Applier) Apply(ctx context.Context, manifest []byte) ([]ComponentFailure, error) {
	decoder := k8syaml.NewYAMLOrJSONDecoder(bytes.NewReader(manifest), 4096)

	var failures []ComponentFailure

	for {
		var obj unstructured.Unstructured

		if err := decoder.Decode(&obj.Object); err != nil {
			if err.Error() == "EOF" {
				break
			}

			return failures, fmt.Errorf("decode manifest document: %w", err)
		}

		if len(obj.Object) == 0 {
			continue
		}

		if err := a.applyOne(ctx, &obj); err != nil {
			failures = append(failures, ComponentFailure{
				WorkloadID:  obj.GetLabels()[labelWorkloadID],
				ComponentID: obj.GetLabels()[labelComponentID],
				ProjectID:   obj.GetLabels()[labelProjectID],
				Reason:      err.Error(),
			})
		}
	}

	return failures, nil
}

func (a *Applier) applyOne(ctx context.Context, obj *unstructured.Unstructured) error {
	gvr, err := a.resolveFn(obj.GroupVersionKind())
	if err != nil {
		return fmt.Errorf("resolve %s: %w", obj.GroupVersionKind(), err)
	}

	resourceClient := a.Client.Resource(gvr)

	ns := obj.GetNamespace()
	if ns != "" {
		_, err = resourceClient.Namespace(ns).Create(ctx, obj, metav1.CreateOptions{})
	} else {
		_, err = resourceClient.Create(ctx, obj, metav1.CreateOptions{})
	}

	return err
}

// resolveGVR maps a GVK to its GVR via the discovery client's API resource
// lists, the same REST-mapping step pkg/readiness.go leaves as a TODO in
// the teacher and which this dispatcher must actually perform since it
// applies arbitrary kinds rather than one caller-supplied GVR.
func (a *Applier) resolveGVR(gvk schema.GroupVersionKind) (schema.GroupVersionResource, error) {
	resources, err := a.Mapper.ServerResourcesForGroupVersion(gvk.GroupVersion().String())
	if err != nil {
		return schema.GroupVersionResource{}, err
	}

	for _, r := range resources.APIResources {
		if r.Kind == gvk.Kind {
			return gvk.GroupVersion().WithResource(r.Name), nil
		}
	}

	return schema.GroupVersionResource{}, fmt.Errorf("no resource found for kind %s", gvk.Kind)
}
