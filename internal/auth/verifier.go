package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	lru "github.com/hashicorp/golang-lru/v2"
)

// verifyCacheSize bounds the number of distinct raw tokens whose verified
// claims are cached, the same fixed-size-LRU idiom the teacher uses for
// its per-credential OpenStack clients (pkg/server/handler/providers/
// openstack/openstack.go), applied here to avoid re-verifying a JWT's
// signature on every request it's presented in.
const verifyCacheSize = 4096

type cachedClaims struct {
	claims Claims
	expiry time.Time
}

// idTokenClaims mirrors the identity provider's token shape; field names
// follow Keycloak's conventions (realm_access.roles, groups), the identity
// provider named throughout original_source (utilities/keycloak_admin.py).
type idTokenClaims struct {
	OrganizationID string   `json:"organization_id"`
	Email          string   `json:"email"`
	RealmAccess    struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	Groups []string `json:"groups"`
}

// Verifier validates a bearer token against the identity provider's OIDC
// discovery document and signing keys.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
	cache    *lru.Cache[string, cachedClaims]
}

// NewVerifier discovers the issuer's OIDC configuration and returns a
// Verifier checking tokens are issued for audience clientID.
func NewVerifier(ctx context.Context, issuerURL, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}

	cache, err := lru.New[string, cachedClaims](verifyCacheSize)
	if err != nil {
		return nil, err
	}

	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID}), cache: cache}, nil
}

// roleSet is the fixed vocabulary of realm roles Claims recognizes;
// anything else in the token is ignored rather than rejected, since the
// identity provider may carry roles unrelated to this system.
var roleSet = map[string]Role{
	string(RoleSuperAdmin):    RoleSuperAdmin,
	string(RolePlatformAdmin): RolePlatformAdmin,
	string(RoleTeamMember):    RoleTeamMember,
}

// Verify checks rawToken's signature, issuer, audience, and expiry, then
// extracts the claim set Claims needs. A signature check already performed
// for this exact rawToken is skipped on a cache hit, but the expiry is
// re-checked every call regardless — a cached entry past its expiry is
// treated as a miss, never returned.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (Claims, error) {
	if cached, ok := v.cache.Get(rawToken); ok && time.Now().Before(cached.expiry) {
		return cached.claims, nil
	}

	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Claims{}, fmt.Errorf("verify token: %w", err)
	}

	var claims idTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return Claims{}, fmt.Errorf("decode claims: %w", err)
	}

	var roles []Role

	for _, r := range claims.RealmAccess.Roles {
		if role, ok := roleSet[r]; ok {
			roles = append(roles, role)
		}
	}

	result := Claims{
		OrganizationID: claims.OrganizationID,
		Subject:        idToken.Subject,
		Email:          claims.Email,
		Roles:          roles,
		Groups:         claims.Groups,
	}

	v.cache.Add(rawToken, cachedClaims{claims: result, expiry: idToken.Expiry})

	return result, nil
}
