package cluster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amd-eai/airm/internal/cluster"
	"github.com/amd-eai/airm/internal/model"
)

func TestAvailableSumsOnlyReadyNodes(t *testing.T) {
	nodes := []model.ClusterNode{
		{Name: "a", Ready: true, CPUMillicores: 1000, GPUCount: 2, GPUVendor: model.GPUVendorAMD, GPUProductName: "MI300X"},
		{Name: "b", Ready: false, CPUMillicores: 5000, GPUCount: 8},
		{Name: "c", Ready: true, CPUMillicores: 2000},
	}

	d := cluster.Available(nodes)

	assert.Equal(t, int64(3000), d.Available.CPUMillicores)
	assert.Equal(t, 2, d.Available.GPUCount)
	assert.Equal(t, model.GPUVendorAMD, d.GPU.Vendor)
	assert.Equal(t, "MI300X", d.GPU.ProductName)
}

func TestAvailableWithNoGPUNodesLeavesVendorNone(t *testing.T) {
	nodes := []model.ClusterNode{{Name: "a", Ready: true, CPUMillicores: 1000}}

	d := cluster.Available(nodes)

	assert.Equal(t, model.GPUVendorNone, d.GPU.Vendor)
}
