package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/amd-eai/airm/internal/project"
)

// Keycloak is a client for the identity provider's admin REST API (spec
// §4.7 "Create" group step), authenticated via OAuth2 client-credentials
// (golang.org/x/oauth2, present in the teacher's go.mod for its own
// OpenStack delegated-token flow — see
// pkg/server/authorization/oauth2/delegating.go), grounded on
// original_source's utilities/keycloak_admin.py (group create/delete/member
// calls against a realm).
type Keycloak struct {
	baseURL string
	realm   string
	client  *http.Client
}

// NewKeycloak returns a Keycloak admin client for realm at baseURL,
// obtaining tokens via the client-credentials grant at
// {baseURL}/realms/{realm}/protocol/openid-connect/token.
func NewKeycloak(baseURL, realm, clientID, clientSecret string) *Keycloak {
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", strings.TrimRight(baseURL, "/"), realm)

	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	return &Keycloak{
		baseURL: strings.TrimRight(baseURL, "/"),
		realm:   realm,
		client:  cfg.Client(context.Background()),
	}
}

var (
	_ project.IdentityProvider       = (*Keycloak)(nil)
	_ project.IdentityProviderGroups = (*Keycloak)(nil)
)

type createGroupRequest struct {
	Name string `json:"name"`
}

// CreateProjectGroup implements project.IdentityProvider: it creates a
// subgroup named projectName nested under the organization's own group
// (spec §4.7 "Create" — "create an IdP group for the project, nested under
// the org's own group").
func (k *Keycloak) CreateProjectGroup(ctx context.Context, organizationGroupID, projectName string) (string, error) {
	url := fmt.Sprintf("%s/admin/realms/%s/groups/%s/children", k.baseURL, k.realm, organizationGroupID)

	body, err := json.Marshal(createGroupRequest{Name: projectName})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create group: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("create group: status %d: %s", resp.StatusCode, respBytes)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("create group: no Location header in response")
	}

	return path.Base(location), nil
}

// DeleteGroup implements project.IdentityProviderGroups.
func (k *Keycloak) DeleteGroup(ctx context.Context, groupID string) error {
	url := fmt.Sprintf("%s/admin/realms/%s/groups/%s", k.baseURL, k.realm, groupID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		respBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete group: status %d: %s", resp.StatusCode, respBytes)
	}

	return nil
}
