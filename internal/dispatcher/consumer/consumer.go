// Package consumer implements the dispatcher's fabric.Handler: the
// message_type switch that turns a controller-originated message into a
// cluster-side action (manifest apply, namespace/secret/configmap create,
// label-cascade delete) and, for the handful of message types that
// complete synchronously, a status reply published back over the same
// Publisher the watchers use.
package consumer

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"

	"github.com/amd-eai/airm/internal/dispatcher/reconcile"
	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
)

// Publisher is the subset of fabric.Publisher the dispatcher needs to
// report status back to the controller.
type Publisher interface {
	Publish(ctx context.Context, messageType fabric.MessageType, payload interface{}) error
}

// Clock exists so tests can control the timestamps dispatcher-originated
// messages carry.
type Clock func() time.Time

var (
	namespaceGVR = schema.GroupVersionResource{Version: "v1", Resource: "namespaces"}
	secretGVR    = schema.GroupVersionResource{Version: "v1", Resource: "secrets"}
	configmapGVR = schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}
)

// Dispatcher applies controller-originated messages against the cluster
// and reports component-level results back over Publisher.
type Dispatcher struct {
	Client           dynamic.Interface
	Applier          *reconcile.Applier
	WorkloadDeleter  *reconcile.Deleter
	NamespaceDeleter *reconcile.Deleter
	SecretDeleter    *reconcile.Deleter
	StorageDeleter   *reconcile.Deleter
	Publisher        Publisher
	Now              Clock
}

// Handle implements fabric.Handler for the controller->dispatcher half of
// spec §4.1's message union.
func (d *Dispatcher) Handle(ctx context.Context, e fabric.Envelope) error {
	switch e.MessageType {
	case fabric.TypeWorkloadCreate:
		return d.handleWorkloadCreate(ctx, e)
	case fabric.TypeDeleteWorkload:
		return d.handleDeleteWorkload(ctx, e)
	case fabric.TypeProjectNamespaceCreate:
		return d.handleNamespaceCreate(ctx, e)
	case fabric.TypeProjectNamespaceDelete:
		return d.handleNamespaceDelete(ctx, e)
	case fabric.TypeProjectSecretsCreate:
		return d.handleSecretCreate(ctx, e)
	case fabric.TypeProjectSecretsDelete:
		return d.handleSecretDelete(ctx, e)
	case fabric.TypeProjectS3StorageCreate:
		return d.handleStorageCreate(ctx, e)
	case fabric.TypeProjectStorageDelete:
		return d.handleStorageDelete(ctx, e)
	case fabric.TypeClusterQuotasAllocation:
		return d.handleQuotasAllocation(ctx, e)
	default:
		return fmt.Errorf("dispatcher: no handler for %s", e.MessageType)
	}
}

func (d *Dispatcher) handleWorkloadCreate(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.WorkloadCreateMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	failures, err := d.Applier.Apply(ctx, msg.Manifest)
	if err != nil {
		return err
	}

	for _, f := range failures {
		if pubErr := d.Publisher.Publish(ctx, fabric.TypeWorkloadComponentStatusUpdate, fabric.WorkloadComponentStatusUpdateMessage{
			WorkloadID:  f.WorkloadID,
			ComponentID: f.ComponentID,
			ProjectID:   f.ProjectID,
			Status:      model.ComponentCreateFailed,
			Reason:      f.Reason,
			UpdatedAt:   d.Now(),
		}); pubErr != nil {
			return pubErr
		}
	}

	return nil
}

func (d *Dispatcher) handleDeleteWorkload(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.DeleteWorkloadMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	matched, err := d.WorkloadDeleter.DeleteByLabel(ctx, "workload-id", msg.WorkloadID)
	if err != nil {
		return err
	}

	if !matched {
		return d.Publisher.Publish(ctx, fabric.TypeWorkloadStatusUpdate, fabric.WorkloadStatusUpdateMessage{
			WorkloadID: msg.WorkloadID,
			Status:     model.WorkloadDeleted,
			Reason:     "no cluster resources found",
			UpdatedAt:  d.Now(),
		})
	}

	return nil
}

// handleNamespaceCreate implements spec §4.9/§4.7: creates the Kubernetes
// Namespace object labeled with the owning project-id, then reports its
// phase back (the watcher over namespaces normally does this once it
// observes the object; the create path reports Active immediately since a
// freshly created namespace has no provisioning phase of its own).
func (d *Dispatcher) handleNamespaceCreate(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.ProjectNamespaceCreateMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	ns := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Namespace",
		"metadata": map[string]interface{}{
			"name":   msg.Name,
			"labels": map[string]interface{}{"project-id": msg.ProjectID},
		},
	}}

	status, reason := model.NamespaceActive, "created"

	if _, err := d.Client.Resource(namespaceGVR).Create(ctx, ns, metav1.CreateOptions{}); err != nil {
		status, reason = model.NamespaceFailed, err.Error()
	}

	return d.Publisher.Publish(ctx, fabric.TypeProjectNamespaceStatus, fabric.ProjectNamespaceStatusMessage{
		ProjectID: msg.ProjectID,
		Status:    status,
		Reason:    reason,
		UpdatedAt: d.Now(),
	})
}

func (d *Dispatcher) handleNamespaceDelete(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.ProjectNamespaceDeleteMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	matched, err := d.NamespaceDeleter.DeleteByLabel(ctx, "project-id", msg.ProjectID)
	if err != nil {
		return err
	}

	if !matched {
		return d.Publisher.Publish(ctx, fabric.TypeProjectNamespaceStatus, fabric.ProjectNamespaceStatusMessage{
			ProjectID: msg.ProjectID,
			Status:    model.NamespaceDeleted,
			Reason:    "namespace not found",
			UpdatedAt: d.Now(),
		})
	}

	return nil
}

// handleSecretCreate implements spec §4.8: materializes the Kubernetes
// Secret in the project's namespace, labeled with project-secret-id for
// later label-cascade delete, carrying any extra labels the controller
// attached (e.g. the Hugging Face marker).
func (d *Dispatcher) handleSecretCreate(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.ProjectSecretsCreateMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	labels := map[string]interface{}{"project-secret-id": msg.SecretID}
	for k, v := range msg.Labels {
		labels[k] = v
	}

	stringData := make(map[string]interface{}, len(msg.Manifest))
	for k, v := range msg.Manifest {
		stringData[k] = v
	}

	sec := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Secret",
		"metadata": map[string]interface{}{
			"name":      "secret-" + msg.SecretID,
			"namespace": msg.ProjectID,
			"labels":    labels,
		},
		"stringData": stringData,
		"type":       string(corev1.SecretTypeOpaque),
	}}

	status, reason := model.AssignmentSynced, "created"

	if _, err := d.Client.Resource(secretGVR).Namespace(msg.ProjectID).Create(ctx, sec, metav1.CreateOptions{}); err != nil {
		status, reason = model.AssignmentSyncedError, err.Error()
	}

	return d.Publisher.Publish(ctx, fabric.TypeProjectSecretsUpdate, fabric.ProjectSecretsUpdateMessage{
		ProjectID: msg.ProjectID,
		SecretID:  msg.SecretID,
		Status:    status,
		Reason:    reason,
		UpdatedAt: d.Now(),
	})
}

func (d *Dispatcher) handleSecretDelete(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.ProjectSecretsDeleteMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	matched, err := d.SecretDeleter.DeleteByLabel(ctx, "project-secret-id", msg.SecretID)
	if err != nil {
		return err
	}

	if !matched {
		return d.Publisher.Publish(ctx, fabric.TypeProjectSecretsUpdate, fabric.ProjectSecretsUpdateMessage{
			ProjectID: msg.ProjectID,
			SecretID:  msg.SecretID,
			Status:    model.AssignmentDeleted,
			Reason:    "secret not found",
			UpdatedAt: d.Now(),
		})
	}

	return nil
}

// handleStorageCreate implements spec §4.8: materializes the config-map
// that carries the bucket URL and the field names within the
// already-synced secret the bucket credentials live in.
func (d *Dispatcher) handleStorageCreate(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.ProjectS3StorageCreateMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	cm := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "ConfigMap",
		"metadata": map[string]interface{}{
			"name":      "storage-" + msg.StorageID,
			"namespace": msg.ProjectID,
			"labels":    map[string]interface{}{"project-storage-id": msg.StorageID},
		},
		"data": map[string]interface{}{
			"bucket_url":       msg.BucketURL,
			"secret_name":      msg.SecretName,
			"access_key_field": msg.AccessKeyField,
			"secret_key_field": msg.SecretKeyField,
		},
	}}

	status := model.ConfigmapAdded

	if _, err := d.Client.Resource(configmapGVR).Namespace(msg.ProjectID).Create(ctx, cm, metav1.CreateOptions{}); err != nil {
		status = model.ConfigmapFailed
	}

	return d.Publisher.Publish(ctx, fabric.TypeProjectStorageUpdate, fabric.ProjectStorageUpdateMessage{
		ProjectID: msg.ProjectID,
		StorageID: msg.StorageID,
		Status:    status,
		UpdatedAt: d.Now(),
	})
}

func (d *Dispatcher) handleStorageDelete(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.ProjectStorageDeleteMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	matched, err := d.StorageDeleter.DeleteByLabel(ctx, "project-storage-id", msg.StorageID)
	if err != nil {
		return err
	}

	if !matched {
		return d.Publisher.Publish(ctx, fabric.TypeProjectStorageUpdate, fabric.ProjectStorageUpdateMessage{
			ProjectID: msg.ProjectID,
			StorageID: msg.StorageID,
			Status:    model.ConfigmapDeleted,
			UpdatedAt: d.Now(),
		})
	}

	return nil
}

// handleQuotasAllocation implements spec §4.6: the dispatcher applies the
// cluster's authoritative quota set to its local KaiwoQueueConfig; a
// minimal representation is synthesized here from the allocation message's
// entries rather than depending on a chart-rendering step, since the quota
// engine's payload is already fully self-describing.
func (d *Dispatcher) handleQuotasAllocation(ctx context.Context, e fabric.Envelope) error {
	var msg fabric.ClusterQuotasAllocationMessage
	if err := fabric.Decode(e, &msg); err != nil {
		return err
	}

	queues := make([]interface{}, 0, len(msg.Quotas))
	for _, q := range msg.Quotas {
		queues = append(queues, map[string]interface{}{
			"name":      q.ProjectName,
			"resources": q.Resources,
		})
	}

	cfg := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "kaiwo.silogen.ai/v1alpha1",
		"kind":       "KaiwoQueueConfig",
		"metadata":   map[string]interface{}{"name": "cluster"},
		"spec":       map[string]interface{}{"queues": queues},
	}}

	queueConfigGVR := schema.GroupVersionResource{Group: "kaiwo.silogen.ai", Version: "v1alpha1", Resource: "kaiwoqueueconfigs"}

	_, err := d.Client.Resource(queueConfigGVR).Update(ctx, cfg, metav1.UpdateOptions{})
	if err != nil {
		return d.Publisher.Publish(ctx, fabric.TypeClusterQuotasFailure, fabric.ClusterQuotasFailureMessage{
			Reason:    err.Error(),
			UpdatedAt: d.Now(),
		})
	}

	return d.Publisher.Publish(ctx, fabric.TypeClusterQuotasStatus, fabric.ClusterQuotasStatusMessage{
		Quotas:    msg.Quotas,
		UpdatedAt: d.Now(),
	})
}
