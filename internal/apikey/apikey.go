// Package apikey implements the API-key coordinator (spec §4.10):
// create-with-compensating-rollback against the external auth service,
// concurrent group bind/unbind via a run-to-completion fan-out that
// aggregates every sub-operation's error (spec §9 "Asynchronous
// fan-out"), orphan cleanup on 404, and AIM catalog reconciliation.
// Grounded on unikorn's identity package (pkg/identity) for the "external
// service owns the secret, we store only a reference" shape, and on
// go.uber.org/multierr (used for the same purpose by the example pack's
// karpenter controllers) for combining fan-out errors into one.
package apikey

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/store"
)

// ExternalAuth is the auth service's key-management surface (spec §4.10).
// internal/authclient's concrete client satisfies this.
type ExternalAuth interface {
	CreateAPIKey(ctx context.Context, ttl time.Duration, numUses int, renewable bool, period time.Duration, explicitMaxTTL time.Duration) (fullKey, externalKeyID string, err error)
	Metadata(ctx context.Context, externalKeyID string) (expireTime time.Time, renewable bool, numUses int, err error)
	RevokeAPIKey(ctx context.Context, externalKeyID string) error
	BindGroup(ctx context.Context, externalKeyID, groupID string) error
	UnbindGroup(ctx context.Context, externalKeyID, groupID string) error
	CurrentGroups(ctx context.Context, externalKeyID string) ([]string, error)
}

// GroupResolver resolves an AIM id to the cluster-auth group ids owned by
// that AIM's running/pending inference workloads (spec §4.10 step 4).
type GroupResolver interface {
	GroupsForAIM(ctx context.Context, aimID uuid.UUID) ([]string, error)
}

// CreateParams are the caller-supplied inputs to Create.
type CreateParams struct {
	ProjectID      uuid.UUID
	Name           string
	TTL            time.Duration
	NumUses        int
	Renewable      bool
	Period         time.Duration
	ExplicitMaxTTL time.Duration
	AIMIDs         []uuid.UUID
	CreatedBy      string
}

// CreateResult carries the full key back to the caller exactly once (spec
// §4.10 "The full key is returned in the response exactly once").
type CreateResult struct {
	Key   *model.ApiKey
	Value string
}

// Create implements spec §4.10 "Create". If any step after the external
// create call fails, RevokeAPIKey is invoked as a compensating action; a
// failure to revoke is logged by the caller (via the returned wrapped
// error's chain) but does not mask the original failure.
func Create(ctx context.Context, st *store.Store, auth ExternalAuth, groups GroupResolver, p CreateParams) (*CreateResult, error) {
	fullKey, externalKeyID, err := auth.CreateAPIKey(ctx, p.TTL, p.NumUses, p.Renewable, p.Period, p.ExplicitMaxTTL)
	if err != nil {
		return nil, apierrors.ExternalServiceError(err)
	}

	key, err := createRemainder(ctx, st, auth, groups, externalKeyID, fullKey, p)
	if err != nil {
		if revokeErr := auth.RevokeAPIKey(ctx, externalKeyID); revokeErr != nil {
			return nil, fmt.Errorf("%w (compensating revoke also failed: %v)", err, revokeErr)
		}

		return nil, err
	}

	return &CreateResult{Key: key, Value: fullKey}, nil
}

func createRemainder(ctx context.Context, st *store.Store, auth ExternalAuth, groups GroupResolver, externalKeyID, fullKey string, p CreateParams) (*model.ApiKey, error) {
	truncated := truncate(fullKey)

	key := &model.ApiKey{
		ID:            uuid.New(),
		ProjectID:     p.ProjectID,
		Name:          p.Name,
		TruncatedForm: truncated,
		ExternalKeyID: externalKeyID,
		Audit:         model.Audit{CreatedBy: p.CreatedBy, UpdatedBy: p.CreatedBy},
	}

	if err := st.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		return tx.CreateApiKey(ctx, key)
	}); err != nil {
		return nil, err
	}

	if _, _, _, err := auth.Metadata(ctx, externalKeyID); err != nil {
		return nil, apierrors.ExternalServiceError(err)
	}

	targetGroups, err := resolveGroups(ctx, groups, p.AIMIDs)
	if err != nil {
		return nil, err
	}

	tasks := make([]func() error, len(targetGroups))

	for i, groupID := range targetGroups {
		groupID := groupID

		tasks[i] = func() error { return auth.BindGroup(ctx, externalKeyID, groupID) }
	}

	if err := fanOut(tasks...); err != nil {
		return nil, apierrors.ExternalServiceError(err)
	}

	return key, nil
}

func resolveGroups(ctx context.Context, groups GroupResolver, aimIDs []uuid.UUID) ([]string, error) {
	results := make([][]string, len(aimIDs))
	tasks := make([]func() error, len(aimIDs))

	for i, aimID := range aimIDs {
		i, aimID := i, aimID

		tasks[i] = func() error {
			gs, err := groups.GroupsForAIM(ctx, aimID)
			if err != nil {
				return err
			}

			results[i] = gs

			return nil
		}
	}

	if err := fanOut(tasks...); err != nil {
		return nil, apierrors.ExternalServiceError(err)
	}

	seen := map[string]bool{}

	var out []string

	for _, gs := range results {
		for _, g := range gs {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}

	return out, nil
}

// truncate keeps the last 4 characters of a key for display, matching the
// common "sk-...abcd" convention (spec §3 "truncated display form").
func truncate(fullKey string) string {
	const keep = 4

	if len(fullKey) <= keep {
		return fullKey
	}

	return "..." + fullKey[len(fullKey)-keep:]
}
