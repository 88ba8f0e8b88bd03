package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/store"
)

// ErrExternalNotFound is returned by an ExternalAuth implementation when
// the auth service responds 404 for a stored key (spec §4.10
// "Lookup / renew / revoke").
var ErrExternalNotFound = errors.New("external auth service: key not found")

// Lookup implements spec §4.10's pass-through: fetches the stored row, then
// its canonical metadata from the external service. On a 404 from the
// external service the orphaned row is deleted and not-found is returned.
func Lookup(ctx context.Context, st *store.Store, auth ExternalAuth, id uuid.UUID) (expireTime time.Time, renewable bool, numUses int, err error) {
	key, err := st.GetApiKey(ctx, id)
	if err != nil {
		return time.Time{}, false, 0, err
	}

	expireTime, renewable, numUses, err = auth.Metadata(ctx, key.ExternalKeyID)
	if errors.Is(err, ErrExternalNotFound) {
		if delErr := st.DeleteApiKey(ctx, id); delErr != nil {
			return time.Time{}, false, 0, delErr
		}

		return time.Time{}, false, 0, err
	}

	return expireTime, renewable, numUses, err
}

// Revoke implements spec §4.10's pass-through revoke, deleting the local
// row once the external service confirms revocation (or reports the key
// already gone).
func Revoke(ctx context.Context, st *store.Store, auth ExternalAuth, id uuid.UUID) error {
	key, err := st.GetApiKey(ctx, id)
	if err != nil {
		return err
	}

	if err := auth.RevokeAPIKey(ctx, key.ExternalKeyID); err != nil && !errors.Is(err, ErrExternalNotFound) {
		return err
	}

	return st.DeleteApiKey(ctx, id)
}
