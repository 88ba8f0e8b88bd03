package nodes_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/amd-eai/airm/internal/dispatcher/nodes"
	"github.com/amd-eai/airm/internal/model"
)

func TestBuildClusterNodesReportsAMDGPUAndReadiness(t *testing.T) {
	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name:   "gpu-node-1",
			Labels: map[string]string{"amd.com/gpu.device-id": "mi300x"},
		},
		Status: corev1.NodeStatus{
			Allocatable: corev1.ResourceList{
				corev1.ResourceCPU:              resource.MustParse("64"),
				corev1.ResourceMemory:           resource.MustParse("512Gi"),
				corev1.ResourceEphemeralStorage: resource.MustParse("1Ti"),
				corev1.ResourceName("amd.com/gpu"): resource.MustParse("8"),
			},
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
			},
		},
	}

	clientset := fake.NewSimpleClientset(node)
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	msg, err := nodes.BuildClusterNodes(context.Background(), clientset, "cluster-1", now)
	require.NoError(t, err)
	require.Len(t, msg.Nodes, 1)

	report := msg.Nodes[0]
	assert.Equal(t, "cluster-1", msg.ClusterID)
	assert.Equal(t, "gpu-node-1", report.Name)
	assert.Equal(t, model.GPUVendorAMD, report.GPUVendor)
	assert.Equal(t, 8, report.GPUCount)
	assert.Equal(t, "mi300x", report.GPUType)
	assert.True(t, report.Ready)
	assert.Equal(t, now, report.UpdatedAt)
}

func TestBuildClusterNodesReportsNoGPUWhenAbsent(t *testing.T) {
	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "cpu-node"},
		Status: corev1.NodeStatus{
			Allocatable: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("16"),
				corev1.ResourceMemory: resource.MustParse("64Gi"),
			},
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionFalse},
			},
		},
	}

	clientset := fake.NewSimpleClientset(node)

	msg, err := nodes.BuildClusterNodes(context.Background(), clientset, "cluster-1", time.Now())
	require.NoError(t, err)
	require.Len(t, msg.Nodes, 1)

	report := msg.Nodes[0]
	assert.Equal(t, model.GPUVendorNone, report.GPUVendor)
	assert.Equal(t, 0, report.GPUCount)
	assert.False(t, report.Ready)
}

var aimClusterModelGVR = schema.GroupVersionResource{Group: "aim.silogen.ai", Version: "v1alpha1", Resource: "aimclustermodels"}

func TestBuildAIMClusterModels(t *testing.T) {
	scheme := runtime.NewScheme()
	gvrToListKind := map[schema.GroupVersionResource]string{
		aimClusterModelGVR: "AIMClusterModelList",
	}

	obj := &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "aim.silogen.ai/v1alpha1",
			"kind":       "AIMClusterModel",
			"metadata": map[string]interface{}{
				"name":   "llama-3-70b",
				"labels": map[string]interface{}{"model-family": "llama"},
			},
			"spec": map[string]interface{}{
				"image":        "registry.example.com/llama:3-70b",
				"resourceName": "amd.com/gpu",
			},
		},
	}

	client := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, gvrToListKind, obj)

	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	msg, err := nodes.BuildAIMClusterModels(context.Background(), client, "cluster-1", now)
	require.NoError(t, err)
	require.Len(t, msg.Models, 1)

	model := msg.Models[0]
	assert.Equal(t, "registry.example.com/llama:3-70b", model.ImageReference)
	assert.Equal(t, "amd.com/gpu", model.ResourceName)
	assert.Equal(t, "llama", model.Labels["model-family"])
	assert.Equal(t, "cluster-1", msg.ClusterID)
	assert.Equal(t, now, msg.UpdatedAt)
}
