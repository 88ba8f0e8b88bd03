package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/amd-eai/airm/internal/dispatcher/reconcile"
	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
)

type fakePublisher struct {
	types    []fabric.MessageType
	payloads []interface{}
}

func (f *fakePublisher) Publish(_ context.Context, messageType fabric.MessageType, payload interface{}) error {
	f.types = append(f.types, messageType)
	f.payloads = append(f.payloads, payload)

	return nil
}

func newObj(labels, annotations map[string]string) *unstructured.Unstructured {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{}}
	obj.SetName("my-job")
	obj.SetLabels(labels)
	obj.SetAnnotations(annotations)

	return obj
}

func TestReporterIgnoresObjectsWithoutWorkloadLabels(t *testing.T) {
	pub := &fakePublisher{}
	r := &reconcile.Reporter{Kind: "Job", Status: reconcile.StatusAdded, Publisher: pub, Now: time.Now}

	r.Handle(context.Background(), watch.Added, newObj(nil, nil))

	assert.Empty(t, pub.types)
}

func TestReporterPublishesStatusUpdateOnly(t *testing.T) {
	pub := &fakePublisher{}
	r := &reconcile.Reporter{
		Kind:      "Job",
		Status:    func(*unstructured.Unstructured) model.WorkloadComponentStatus { return model.ComponentRunning },
		Publisher: pub,
		Now:       time.Now,
	}

	labels := map[string]string{"workload-id": "w1", "component-id": "c1", "project-id": "p1"}
	r.Handle(context.Background(), watch.Modified, newObj(labels, nil))

	require.Len(t, pub.types, 1)
	assert.Equal(t, fabric.TypeWorkloadComponentStatusUpdate, pub.types[0])

	msg, ok := pub.payloads[0].(fabric.WorkloadComponentStatusUpdateMessage)
	require.True(t, ok)
	assert.Equal(t, "w1", msg.WorkloadID)
	assert.Equal(t, "c1", msg.ComponentID)
	assert.Equal(t, model.ComponentRunning, msg.Status)
}

func TestReporterPublishesAutoDiscoveredBeforeStatus(t *testing.T) {
	pub := &fakePublisher{}
	r := &reconcile.Reporter{
		Kind:      "ConfigMap",
		Status:    reconcile.StatusAdded,
		Publisher: pub,
		Now:       time.Now,
	}

	labels := map[string]string{"workload-id": "w1", "component-id": "c1", "project-id": "p1"}
	annotations := map[string]string{"airm.silogen.ai/auto-discovered": "true"}
	r.Handle(context.Background(), watch.Added, newObj(labels, annotations))

	require.Len(t, pub.types, 2)
	assert.Equal(t, fabric.TypeAutoDiscoveredWorkloadComponent, pub.types[0])
	assert.Equal(t, fabric.TypeWorkloadComponentStatusUpdate, pub.types[1])

	discovered, ok := pub.payloads[0].(fabric.AutoDiscoveredWorkloadComponentMessage)
	require.True(t, ok)
	assert.Equal(t, "ConfigMap", discovered.Kind)
	assert.Equal(t, "my-job", discovered.Name)
}

func TestReporterMarksDeletedStatusOnDeleteEvent(t *testing.T) {
	pub := &fakePublisher{}
	r := &reconcile.Reporter{
		Kind: "Job",
		Status: func(*unstructured.Unstructured) model.WorkloadComponentStatus {
			t.Fatal("Status should not be called for a delete event")
			return model.ComponentUnknown
		},
		Publisher: pub,
		Now:       time.Now,
	}

	labels := map[string]string{"workload-id": "w1", "component-id": "c1", "project-id": "p1"}
	r.Handle(context.Background(), watch.Deleted, newObj(labels, nil))

	require.Len(t, pub.types, 1)
	msg, ok := pub.payloads[0].(fabric.WorkloadComponentStatusUpdateMessage)
	require.True(t, ok)
	assert.Equal(t, model.ComponentDeleted, msg.Status)
}
