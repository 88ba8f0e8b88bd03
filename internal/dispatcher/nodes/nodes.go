// Package nodes builds the dispatcher's node-inventory and AIM-catalog
// bootstrap reports (spec §4.9 "Bootstrap": "emit one-shot cluster_nodes,
// heartbeat, aim_cluster_models"). Grounded on the teacher's
// pkg/readiness resource-inspection idiom (read an object, derive a typed
// report), generalized from one Kubernetes object to a full list.
package nodes

import (
	"context"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
)

// amdGPUResourceName and nvidiaGPUResourceName are the device-plugin
// allocatable-resource names the two supported vendors advertise.
const (
	amdGPUResourceName    corev1.ResourceName = "amd.com/gpu"
	nvidiaGPUResourceName corev1.ResourceName = "nvidia.com/gpu"

	gpuProductLabel = "amd.com/gpu.device-id"
)

// BuildClusterNodes lists every Node and renders a fabric.ClusterNodesMessage
// (spec §4.5 "Node inventory"), identifying the sender by clusterID (spec
// §4.5's ClusterIdentity embed).
func BuildClusterNodes(ctx context.Context, clientset kubernetes.Interface, clusterID string, now time.Time) (fabric.ClusterNodesMessage, error) {
	list, err := clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return fabric.ClusterNodesMessage{}, err
	}

	reports := make([]fabric.ClusterNodeReport, 0, len(list.Items))

	for i := range list.Items {
		reports = append(reports, reportForNode(&list.Items[i], now))
	}

	return fabric.ClusterNodesMessage{
		ClusterIdentity: fabric.ClusterIdentity{ClusterID: clusterID},
		Nodes:           reports,
	}, nil
}

func reportForNode(n *corev1.Node, now time.Time) fabric.ClusterNodeReport {
	allocatable := n.Status.Allocatable

	vendor, gpuQty := model.GPUVendorNone, int64(0)

	if q, ok := allocatable[amdGPUResourceName]; ok && !q.IsZero() {
		vendor, gpuQty = model.GPUVendorAMD, q.Value()
	} else if q, ok := allocatable[nvidiaGPUResourceName]; ok && !q.IsZero() {
		vendor, gpuQty = model.GPUVendorNVIDIA, q.Value()
	}

	ready := false

	for _, cond := range n.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			ready = cond.Status == corev1.ConditionTrue
		}
	}

	return fabric.ClusterNodeReport{
		Name:           n.Name,
		CPUMillicores:  allocatable.Cpu().MilliValue(),
		MemoryBytes:    allocatable.Memory().Value(),
		EphemeralBytes: allocatable.StorageEphemeral().Value(),
		GPUCount:       int(gpuQty),
		GPUVendor:      vendor,
		GPUType:        n.Labels[gpuProductLabel],
		Ready:          ready,
		UpdatedAt:      now,
	}
}

var aimClusterModelGVR = schema.GroupVersionResource{Group: "aim.silogen.ai", Version: "v1alpha1", Resource: "aimclustermodels"}

// BuildAIMClusterModels lists the cluster's AIMClusterModel custom
// resources and renders the dispatcher's full current set (spec §4.10
// "AIM catalog reconciliation").
func BuildAIMClusterModels(ctx context.Context, client dynamic.Interface, clusterID string, now time.Time) (fabric.AIMClusterModelsMessage, error) {
	list, err := client.Resource(aimClusterModelGVR).List(ctx, metav1.ListOptions{})
	if err != nil {
		return fabric.AIMClusterModelsMessage{}, err
	}

	models := make([]fabric.AIMClusterModelReport, 0, len(list.Items))

	for _, item := range list.Items {
		models = append(models, reportForAIMClusterModel(&item))
	}

	return fabric.AIMClusterModelsMessage{
		ClusterIdentity: fabric.ClusterIdentity{ClusterID: clusterID},
		Models:          models,
		UpdatedAt:       now,
	}, nil
}

func reportForAIMClusterModel(obj *unstructured.Unstructured) fabric.AIMClusterModelReport {
	imageRef, _, _ := unstructured.NestedString(obj.Object, "spec", "image")
	resourceName, _, _ := unstructured.NestedString(obj.Object, "spec", "resourceName")

	return fabric.AIMClusterModelReport{
		ImageReference: imageRef,
		ResourceName:   resourceName,
		Labels:         obj.GetLabels(),
	}
}
