// Package authclient holds the two external-service clients the controller
// delegates to: the cluster-auth key-management service (spec §4.10) and
// the identity provider's group-management API (spec §4.7 "Create" group
// step). Both are grounded on original_source's httpx-based REST clients
// (apikeys/cluster_auth_client.py, utilities/keycloak_admin.py) rather than
// on a generated SDK — neither service ships a Go client anywhere in the
// example pack, so these are hand-written net/http clients in the
// teacher's own direct-REST-call style (pkg/providers/openstack talks to
// OpenStack the same way, via typed request/response structs over
// net/http rather than a heavier client framework).
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amd-eai/airm/internal/apikey"
)

// ClusterAuth is a client for the cluster-auth service (spec §4.10): API
// key issuance/revocation/lookup and group bind/unbind, authenticated with
// a static admin token (original_source's X-Admin-Token header).
type ClusterAuth struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

// NewClusterAuth returns a ClusterAuth client for baseURL, authenticating
// every request with adminToken.
func NewClusterAuth(baseURL, adminToken string) *ClusterAuth {
	return &ClusterAuth{
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminToken: adminToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var _ apikey.ExternalAuth = (*ClusterAuth)(nil)

type createKeyRequest struct {
	TTL            string `json:"ttl"`
	NumUses        int    `json:"num_uses"`
	Period         string `json:"period"`
	Renewable      bool   `json:"renewable"`
	ExplicitMaxTTL string `json:"explicit_max_ttl"`
}

type createKeyResponse struct {
	APIKey string `json:"api_key"`
	KeyID  string `json:"key_id"`
}

// CreateAPIKey implements apikey.ExternalAuth.
func (c *ClusterAuth) CreateAPIKey(ctx context.Context, ttl time.Duration, numUses int, renewable bool, period, explicitMaxTTL time.Duration) (fullKey, externalKeyID string, err error) {
	var resp createKeyResponse

	if err := c.do(ctx, http.MethodPost, "/apikey/create", createKeyRequest{
		TTL:            durationOrZero(ttl),
		NumUses:        numUses,
		Period:         durationOrZero(period),
		Renewable:      renewable,
		ExplicitMaxTTL: durationOrZero(explicitMaxTTL),
	}, &resp); err != nil {
		return "", "", err
	}

	return resp.APIKey, resp.KeyID, nil
}

type keyIDRequest struct {
	KeyID string `json:"key_id"`
}

type lookupResponse struct {
	ExpireTime string `json:"expire_time"`
	Renewable  bool   `json:"renewable"`
	NumUses    int    `json:"num_uses"`
}

// Metadata implements apikey.ExternalAuth.
func (c *ClusterAuth) Metadata(ctx context.Context, externalKeyID string) (expireTime time.Time, renewable bool, numUses int, err error) {
	var resp lookupResponse

	if err := c.do(ctx, http.MethodPost, "/apikey/lookup", keyIDRequest{KeyID: externalKeyID}, &resp); err != nil {
		if isNotFound(err) {
			return time.Time{}, false, 0, apikey.ErrExternalNotFound
		}

		return time.Time{}, false, 0, err
	}

	expireTime, _ = time.Parse(time.RFC3339, resp.ExpireTime)

	return expireTime, resp.Renewable, resp.NumUses, nil
}

// RevokeAPIKey implements apikey.ExternalAuth.
func (c *ClusterAuth) RevokeAPIKey(ctx context.Context, externalKeyID string) error {
	err := c.do(ctx, http.MethodPost, "/apikey/revoke", keyIDRequest{KeyID: externalKeyID}, nil)
	if isNotFound(err) {
		return apikey.ErrExternalNotFound
	}

	return err
}

type bindRequest struct {
	KeyID   string `json:"key_id"`
	GroupID string `json:"group_id"`
}

// BindGroup implements apikey.ExternalAuth.
func (c *ClusterAuth) BindGroup(ctx context.Context, externalKeyID, groupID string) error {
	return c.do(ctx, http.MethodPost, "/apikey/bind", bindRequest{KeyID: externalKeyID, GroupID: groupID}, nil)
}

// UnbindGroup implements apikey.ExternalAuth.
func (c *ClusterAuth) UnbindGroup(ctx context.Context, externalKeyID, groupID string) error {
	return c.do(ctx, http.MethodPost, "/apikey/unbind", bindRequest{KeyID: externalKeyID, GroupID: groupID}, nil)
}

type groupsResponse struct {
	Groups []string `json:"groups"`
}

// CurrentGroups implements apikey.ExternalAuth.
func (c *ClusterAuth) CurrentGroups(ctx context.Context, externalKeyID string) ([]string, error) {
	var resp groupsResponse

	if err := c.do(ctx, http.MethodPost, "/apikey/lookup", keyIDRequest{KeyID: externalKeyID}, &resp); err != nil {
		return nil, err
	}

	return resp.Groups, nil
}

// httpStatusError carries the response status for isNotFound's check.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("cluster-auth: status %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*httpStatusError)
	return ok && se.status == http.StatusNotFound
}

func (c *ClusterAuth) do(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var body io.Reader

	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}

		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("X-Admin-Token", c.adminToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 300 {
		return &httpStatusError{status: resp.StatusCode, body: string(respBytes)}
	}

	if respBody == nil || len(respBytes) == 0 {
		return nil
	}

	return json.Unmarshal(respBytes, respBody)
}

// durationOrZero renders d the way the cluster-auth service expects
// ("0" for no limit, else a Go duration string it parses the same way).
func durationOrZero(d time.Duration) string {
	if d == 0 {
		return "0"
	}

	return d.String()
}
