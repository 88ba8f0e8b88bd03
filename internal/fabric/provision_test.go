package fabric_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amd-eai/airm/internal/fabric"
)

func TestProvisionClusterCreatesVHostUserAndPermissions(t *testing.T) {
	var requests []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	admin := fabric.NewAdmin(server.URL, "guest", "guest")

	secret, err := admin.ProvisionCluster(context.Background(), "cluster-1")
	require.NoError(t, err)
	assert.Len(t, secret, 64) // 32 bytes hex-encoded

	require.Equal(t, []string{
		"PUT /vhosts/vh_cluster-1",
		"PUT /users/cluster-1",
		"PUT /permissions/vh_cluster-1/cluster-1",
		"PUT /permissions/vh_airm_common/cluster-1",
	}, requests)
}

func TestDeprovisionClusterToleratesPriorNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	admin := fabric.NewAdmin(server.URL, "guest", "guest")

	err := admin.DeprovisionCluster(context.Background(), "cluster-1")
	assert.NoError(t, err)
}

func TestDeprovisionClusterDeletesUserThenVHost(t *testing.T) {
	var requests []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	admin := fabric.NewAdmin(server.URL, "guest", "guest")

	require.NoError(t, admin.DeprovisionCluster(context.Background(), "cluster-1"))
	assert.Equal(t, []string{"DELETE /users/cluster-1", "DELETE /vhosts/vh_cluster-1"}, requests)
}

func TestConfigureCommonVHost(t *testing.T) {
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	admin := fabric.NewAdmin(server.URL, "guest", "guest")

	require.NoError(t, admin.ConfigureCommonVHost(context.Background()))
	assert.Equal(t, "/vhosts/vh_airm_common", gotPath)
}

func TestProvisionClusterPropagatesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	admin := fabric.NewAdmin(server.URL, "guest", "guest")

	_, err := admin.ProvisionCluster(context.Background(), "cluster-1")
	assert.Error(t, err)
}
