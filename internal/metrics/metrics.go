// Package metrics exposes the controller's allocation gauges (spec C11
// "Health & Observability", spec §1 table). Built on
// github.com/prometheus/client_golang, present in the teacher's own go.mod,
// in the small hand-registered GaugeVec style the teacher uses wherever it
// does touch metrics (pkg/server/options.go's listener setup), rather than
// a generic instrumentation middleware — this system's metrics surface is
// a handful of gauges, not per-request histograms.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns the gauge vectors tracking allocated GPU count and VRAM
// bytes, labeled by organization/cluster/project so an operator can slice
// utilization at any of those boundaries.
type Recorder struct {
	allocatedGPUs prometheus.GaugeVec
	allocatedVRAM prometheus.GaugeVec
}

const (
	labelOrganization = "organization"
	labelCluster      = "cluster"
	labelProject      = "project"
)

// NewRecorder creates and registers the gauge vectors against reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		allocatedGPUs: *prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "airm",
			Subsystem: "quota",
			Name:      "allocated_gpus",
			Help:      "GPUs allocated to a project's active quota.",
		}, []string{labelOrganization, labelCluster, labelProject}),
		allocatedVRAM: *prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "airm",
			Subsystem: "quota",
			Name:      "allocated_vram_bytes",
			Help:      "GPU VRAM bytes implied by a project's active quota.",
		}, []string{labelOrganization, labelCluster, labelProject}),
	}

	reg.MustRegister(&r.allocatedGPUs, &r.allocatedVRAM)

	return r
}

// SetAllocation records a project's currently allocated GPU count. VRAM
// per-GPU is a cluster-level constant (model.ClusterNode.GPUVRAMBytes), so
// callers pass the already-multiplied total.
func (r *Recorder) SetAllocation(organizationID, clusterID, projectID string, gpuCount int, vramBytes int64) {
	labels := prometheus.Labels{labelOrganization: organizationID, labelCluster: clusterID, labelProject: projectID}

	r.allocatedGPUs.With(labels).Set(float64(gpuCount))
	r.allocatedVRAM.With(labels).Set(float64(vramBytes))
}

// DeleteProject removes a project's gauges once it is torn down, so a
// deleted project doesn't linger in a scrape forever.
func (r *Recorder) DeleteProject(organizationID, clusterID, projectID string) {
	labels := prometheus.Labels{labelOrganization: organizationID, labelCluster: clusterID, labelProject: projectID}

	r.allocatedGPUs.Delete(labels)
	r.allocatedVRAM.Delete(labels)
}
